/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"detailpage/internal/domain"
	applog "detailpage/internal/log"
	"detailpage/internal/section"
	"detailpage/internal/textlayout"
)

// MaxPageHeight is the tallest page the PDF format allows, in points.
const MaxPageHeight = 14400.0

// Raster renders a section to pixels; capture.Renderer satisfies it.
type Raster interface {
	Render(ctx context.Context, sec domain.Section) (*image.RGBA, error)
}

// PDFOptions controls PDF export. Units are points and map 1:1 to canvas pixels.
//
// The page is as tall as the stacked sections. When the canvas is taller than
// MaxPageHeight, pages break at section boundaries.
type PDFOptions struct {
	// Raster paints section images. Without it image sections are drawn as
	// labelled boxes.
	Raster        Raster
	AutoHeight    float64
	IncludeGuides bool
	Author        string
}

// WritePDF renders doc to a PDF file at outPath.
func WritePDF(ctx context.Context, doc domain.Document, outPath string, opt PDFOptions) error {
	if doc.Width <= 0 {
		return fmt.Errorf("document width must be positive")
	}
	auto := opt.AutoHeight
	if auto <= 0 {
		auto = 600
	}
	log := applog.WithOperation(applog.WithComponent("export"), "pdf")

	pages := paginate(section.StackSections(doc.Sections, doc.Width, auto), MaxPageHeight)
	byID := make(map[string]domain.Section, len(doc.Sections))
	for _, s := range doc.Sections {
		byID[s.ID] = s
	}
	texts := make(map[string][]domain.TextOverlay)
	for _, t := range doc.Texts {
		texts[t.SectionID] = append(texts[t.SectionID], t)
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: doc.Width, Ht: auto},
	})
	title := doc.Title
	if title == "" {
		title = "Detail page"
	}
	pdf.SetTitle(title, true)
	author := opt.Author
	if author == "" {
		author = "Detail Page Composer"
	}
	pdf.SetAuthor(author, true)
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for _, pg := range pages {
		h := pg.height()
		if h <= 0 {
			continue
		}
		pdf.AddPageFormat("P", gofpdf.SizeType{Wd: doc.Width, Ht: h})
		for _, p := range pg {
			if err := ctx.Err(); err != nil {
				return err
			}
			sec := byID[p.ID]
			y := p.Rect.Y - pg[0].Rect.Y
			drawSection(ctx, pdf, tr, sec, p.Rect.X, y, p.Rect.W, p.Rect.H, opt, log)
			for _, t := range texts[p.ID] {
				drawText(pdf, tr, t, p.Rect.X, y)
			}
			if opt.IncludeGuides {
				pdf.SetDrawColor(255, 0, 0)
				pdf.SetLineWidth(0.2)
				pdf.Rect(p.Rect.X, y, p.Rect.W, p.Rect.H, "D")
			}
		}
	}
	if len(pages) == 0 {
		pdf.AddPage()
	}
	if pdf.Err() {
		return fmt.Errorf("build pdf: %w", pdf.Error())
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	log.Info("pdf written", slog.String("path", outPath), slog.Int("pages", max(len(pages), 1)), slog.Int("sections", len(doc.Sections)))
	return nil
}

type page []section.Placement

func (p page) height() float64 {
	if len(p) == 0 {
		return 0
	}
	last := p[len(p)-1].Rect
	return last.Y + last.H - p[0].Rect.Y
}

// paginate groups placements into pages no taller than limit. A single
// section taller than limit gets its own page, clamped to limit.
func paginate(ps []section.Placement, limit float64) []page {
	var out []page
	var cur page
	for _, p := range ps {
		if p.Rect.H > limit {
			p.Rect.H = limit
		}
		if len(cur) > 0 && p.Rect.Y+p.Rect.H-cur[0].Rect.Y > limit {
			out = append(out, cur)
			cur = nil
		}
		cur = append(cur, p)
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

func drawSection(ctx context.Context, pdf *gofpdf.Fpdf, tr func(string) string, sec domain.Section, x, y, w, h float64, opt PDFOptions, log *slog.Logger) {
	switch sec.Content.Kind {
	case domain.KindSpacer:
		return
	case domain.KindPlaceholder:
		placeholder(pdf, tr, x, y, w, h, "Empty section")
		return
	}
	if _, ok := sec.Content.ImageRef(); ok {
		if !drawImage(ctx, pdf, sec, x, y, w, h, opt.Raster, log) {
			placeholder(pdf, tr, x, y, w, h, "Image")
		}
	} else if sec.Content.Kind == domain.KindImage {
		placeholder(pdf, tr, x, y, w, h, "Image")
	}
	if sec.Content.Kind == domain.KindHero && sec.Content.Hero != nil {
		drawHero(pdf, tr, *sec.Content.Hero, x, y, w)
	}
}

func drawImage(ctx context.Context, pdf *gofpdf.Fpdf, sec domain.Section, x, y, w, h float64, r Raster, log *slog.Logger) bool {
	if r == nil {
		return false
	}
	img, err := r.Render(ctx, withHeight(sec, h))
	if err != nil {
		log.Warn("section image skipped", slog.String("section", sec.ID), slog.Any("err", err))
		return false
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		log.Warn("section image skipped", slog.String("section", sec.ID), slog.Any("err", err))
		return false
	}
	name := "sec-" + sec.ID
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(name, opts, &buf)
	pdf.ImageOptions(name, x, y, w, h, false, opts, 0, "")
	return true
}

// withHeight pins the rendered height to the laid out height, which may
// have been clamped by pagination.
func withHeight(sec domain.Section, h float64) domain.Section {
	sec.Height = &h
	return sec
}

func placeholder(pdf *gofpdf.Fpdf, tr func(string) string, x, y, w, h float64, label string) {
	pdf.SetFillColor(240, 240, 240)
	pdf.SetDrawColor(200, 200, 200)
	pdf.SetLineWidth(1)
	pdf.Rect(x, y, w, h, "FD")
	pdf.SetFont("Helvetica", "", 14)
	pdf.SetTextColor(150, 150, 150)
	pdf.SetXY(x, y+h/2-7)
	pdf.CellFormat(w, 14, tr(label), "", 0, "C", false, 0, "")
}

func drawHero(pdf *gofpdf.Fpdf, tr func(string) string, hero domain.Hero, x, y, w float64) {
	const pad = 40.0
	pdf.SetTextColor(26, 26, 26)
	pdf.SetXY(x+pad, y+pad)
	pdf.SetFont("Helvetica", "B", 32)
	pdf.MultiCell(w-2*pad, 38, tr(hero.ProductName), "", "L", false)
	if hero.Tagline != "" {
		pdf.SetX(x + pad)
		pdf.SetFont("Helvetica", "", 18)
		pdf.MultiCell(w-2*pad, 24, tr(hero.Tagline), "", "L", false)
	}
	pdf.SetFont("Helvetica", "", 14)
	for _, f := range hero.Features {
		pdf.SetX(x + pad)
		pdf.MultiCell(w-2*pad, 20, tr("- "+f), "", "L", false)
	}
}

func drawText(pdf *gofpdf.Fpdf, tr func(string) string, t domain.TextOverlay, sx, sy float64) {
	size := t.Style.FontSize
	if size <= 0 {
		size = 16
	}
	style := ""
	if t.Style.FontWeight >= 600 {
		style = "B"
	}
	pdf.SetFont(pdfFamily(t.Style.FontFamily), style, size)
	c, _ := textlayout.ParseColor(t.Style.Color)
	pdf.SetTextColor(int(c.R), int(c.G), int(c.B))
	w := t.Width
	if w <= 0 {
		w = pdf.GetStringWidth(t.Content) + 2
	}
	pdf.SetXY(sx+t.Left, sy+t.Top)
	pdf.MultiCell(w, size*1.2, tr(t.Content), "", alignCode(t.Style.Align), false)
}

// pdfFamily maps a CSS font family onto one of the PDF core fonts.
func pdfFamily(css string) string {
	f := strings.ToLower(css)
	switch {
	case strings.Contains(f, "mono") || strings.Contains(f, "courier"):
		return "Courier"
	case strings.Contains(f, "sans"):
		return "Helvetica"
	case strings.Contains(f, "serif") || strings.Contains(f, "times") || strings.Contains(f, "georgia"):
		return "Times"
	default:
		return "Helvetica"
	}
}

func alignCode(a string) string {
	switch a {
	case "center":
		return "C"
	case "right":
		return "R"
	default:
		return "L"
	}
}
