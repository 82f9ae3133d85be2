/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"detailpage/internal/domain"
	"detailpage/internal/export"
	applog "detailpage/internal/log"
	"detailpage/internal/session"
	"detailpage/internal/textlayout"
	"detailpage/internal/ui"
	"detailpage/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "Detail Page Composer")
		fmt.Fprintln(cmd.OutOrStdout(), version.String())
	},
}

var uiCmd = &cobra.Command{
	Use:   "ui [document]",
	Short: "Launch the desktop editor (build with -tags fyne)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		var doc string
		if len(args) > 0 {
			doc = args[0]
		}
		return ui.Run(doc)
	},
}

var exportOpts struct {
	pdf    string
	bundle string
	json   string
}

var exportCmd = &cobra.Command{
	Use:   "export <document>",
	Short: "Export a document (.json or bundle .zip) to PDF, a bundle or normalized JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportOpts.pdf == "" && exportOpts.bundle == "" && exportOpts.json == "" {
			return errors.New("nothing to do: pass --pdf, --bundle or --json")
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		l := applog.WithComponent("cli")

		sess, err := session.Open(ctx, session.Options{Offline: true})
		if err != nil {
			return err
		}
		defer func() {
			if cerr := sess.Close(); cerr != nil {
				l.Warn("close session", slog.Any("err", cerr))
			}
		}()
		if err := sess.Load(ctx, args[0]); err != nil {
			return fmt.Errorf("open %s: %w", args[0], err)
		}
		out := cmd.OutOrStdout()
		if exportOpts.json != "" {
			if err := sess.Save(exportOpts.json); err != nil {
				return err
			}
			fmt.Fprintln(out, "Wrote", exportOpts.json)
		}
		if exportOpts.bundle != "" {
			if err := sess.ExportBundle(ctx, exportOpts.bundle); err != nil {
				return err
			}
			fmt.Fprintln(out, "Wrote", exportOpts.bundle)
		}
		if exportOpts.pdf != "" {
			if err := sess.ExportPDF(ctx, exportOpts.pdf); err != nil {
				return err
			}
			fmt.Fprintln(out, "Wrote", exportOpts.pdf)
		}
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate <document.json>",
	Short: "Check a document against the page schema",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		if err := export.Validate(data); err != nil {
			var verr *export.ValidationError
			if errors.As(err, &verr) {
				for _, p := range verr.Problems {
					fmt.Fprintln(cmd.ErrOrStderr(), " -", p)
				}
			}
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "OK")
		return nil
	},
}

var infoCmd = &cobra.Command{
	Use:   "info <document.json>",
	Short: "Print the sections and text overlays of a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, recovered, err := session.OpenDocument(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if recovered {
			fmt.Fprintln(out, "(opened from latest backup)")
		}
		printDocument(out, doc)
		return nil
	},
}

var stylesCmd = &cobra.Command{
	Use:   "styles",
	Short: "List the text style presets",
	Run: func(cmd *cobra.Command, _ []string) {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tSIZE\tWEIGHT\tFAMILY\tCOLOR")
		for _, n := range textlayout.ListStyles() {
			s, _ := textlayout.GetStyle(n)
			fmt.Fprintf(tw, "%s\t%g\t%d\t%s\t%s\n", n, s.FontSize, s.FontWeight, s.FontFamily, s.Color)
		}
		_ = tw.Flush()
	},
}

func init() {
	f := exportCmd.Flags()
	f.StringVar(&exportOpts.pdf, "pdf", "", "write a PDF to this path")
	f.StringVar(&exportOpts.bundle, "bundle", "", "write a zip bundle with images to this path")
	f.StringVar(&exportOpts.json, "json", "", "write the validated document JSON to this path")
}

func printDocument(w io.Writer, doc domain.Document) {
	fmt.Fprintf(w, "Title: %s\nWidth: %g\n\n", doc.Title, doc.Width)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tID\tKIND\tHEIGHT\tSCALE\tTEXTS")
	texts := map[string]int{}
	for _, t := range doc.Texts {
		texts[t.SectionID]++
	}
	for i, s := range doc.Sections {
		h := "auto"
		if s.Height != nil {
			h = fmt.Sprintf("%g", *s.Height)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%g\t%d\n", i+1, s.ID, s.Content.Kind, h, s.Transform.Scale, texts[s.ID])
	}
	_ = tw.Flush()
}
