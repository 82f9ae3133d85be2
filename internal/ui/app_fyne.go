//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	fstorage "fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"detailpage/internal/assets"
	"detailpage/internal/crash"
	"detailpage/internal/domain"
	"detailpage/internal/editor"
	applog "detailpage/internal/log"
	"detailpage/internal/mutation"
	"detailpage/internal/session"
	"detailpage/internal/textlayout"
	"detailpage/internal/version"
)

const appTitle = "Detail Page Composer"

// Run starts the desktop editor. docPath, when set, is opened immediately.
func Run(docPath string) error {
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("ui")
	l.Info("starting UI")

	fyneApp := app.NewWithID("detailpage")
	w := fyneApp.NewWindow(appTitle)
	// Restore window size from preferences (with sane minimums)
	prefs := fyneApp.Preferences()
	winW := max(prefs.IntWithFallback("window.width", 1100), 640)
	winH := max(prefs.IntWithFallback("window.height", 860), 480)
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	status := widget.NewLabel("Ready")
	progress := widget.NewProgressBar()
	progress.Hide()

	var cv *SectionCanvas
	notifier := editor.NotifierFunc(func(n editor.Notice) {
		fyne.Do(func() {
			showNotice(n, status, progress)
			if cv != nil {
				cv.Refresh()
			}
		})
	})
	sess, err := session.Open(context.Background(), session.Options{Notifier: notifier})
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	defer func() {
		if err := sess.Close(); err != nil {
			l.Warn("session close failed", slog.Any("err", err))
		}
	}()
	defer crash.Recover(sess.CrashHandler())

	ed := sess.Editor
	ctx := context.Background()
	cv = NewSectionCanvas(ed)
	scroll := cv.Scroll()

	fail := func(err error) {
		if err == nil {
			return
		}
		l.Warn("action failed", slog.Any("err", err))
		status.SetText(mutation.UserMessage(err))
	}
	refresh := func() {
		cv.Refresh()
		scroll.Refresh()
	}
	setTitle := func() {
		if sess.Path == "" {
			w.SetTitle(appTitle)
			return
		}
		w.SetTitle(fmt.Sprintf("%s — %s", appTitle, sess.Path))
	}

	openDoc := func(path string) {
		if err := sess.Load(ctx, path); err != nil {
			l.Error("open document failed", slog.String("path", path), slog.Any("err", err))
			dialog.ShowError(err, w)
			return
		}
		saveRecentDocs(prefs, pushRecent(loadRecentDocs(prefs), path, recentMax))
		setTitle()
		refresh()
		status.SetText("Opened " + path)
	}

	pickImage := func(then func(path string)) {
		fd := dialog.NewFileOpen(func(ur fyne.URIReadCloser, err error) {
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			if ur == nil {
				return
			}
			path := ur.URI().Path()
			_ = ur.Close()
			then(path)
		}, w)
		fd.SetFilter(fstorage.NewExtensionFileFilter([]string{".png", ".jpg", ".jpeg", ".gif", ".webp"}))
		fd.Show()
	}

	// Context menu actions that need arguments ask for them first.
	askArgs := func(a editor.Action, then func(editor.Args)) {
		switch a {
		case editor.ActionComposite:
			pickImage(func(path string) {
				ref, err := assets.Import(ctx, sess.Assets, path)
				if err != nil {
					dialog.ShowError(err, w)
					return
				}
				then(editor.Args{Source: ref})
			})
		case editor.ActionRecolor:
			target := widget.NewEntry()
			target.SetText("product")
			col := widget.NewEntry()
			col.SetPlaceHolder("navy blue or #1f3a93")
			dialog.ShowForm("Recolor", "Apply", "Cancel", []*widget.FormItem{
				widget.NewFormItem("Target", target),
				widget.NewFormItem("Color", col),
			}, func(ok bool) {
				if ok && strings.TrimSpace(col.Text) != "" {
					then(editor.Args{Target: strings.TrimSpace(target.Text), Color: strings.TrimSpace(col.Text)})
				}
			}, w)
		case editor.ActionPosesFull, editor.ActionPosesUpper:
			count := widget.NewSelect([]string{"1", "2", "3", "4", "5"}, nil)
			count.SetSelected("3")
			dialog.ShowForm("Generate Poses", "Generate", "Cancel", []*widget.FormItem{
				widget.NewFormItem("Variations", count),
			}, func(ok bool) {
				if !ok {
					return
				}
				n, _ := strconv.Atoi(count.Selected)
				then(editor.Args{Count: n})
			}, w)
		case editor.ActionAddText:
			text := widget.NewMultiLineEntry()
			style := widget.NewSelect(textlayout.ListStyles(), nil)
			if names := textlayout.ListStyles(); len(names) > 0 {
				style.SetSelected(names[0])
			}
			dialog.ShowForm("Add Text", "Add", "Cancel", []*widget.FormItem{
				widget.NewFormItem("Text", text),
				widget.NewFormItem("Style", style),
			}, func(ok bool) {
				if ok && strings.TrimSpace(text.Text) != "" {
					then(editor.Args{Text: text.Text, Style: style.Selected})
				}
			}, w)
		}
	}

	cv.OnMenu = func(m editor.Menu, at fyne.Position) {
		items := make([]*fyne.MenuItem, 0, len(m.Items)+2)
		for _, it := range m.Items {
			if it.Action == editor.ActionCancel || it.Action == editor.ActionHold {
				items = append(items, fyne.NewMenuItemSeparator())
			}
			mi := fyne.NewMenuItem(it.Label, func() {
				run := func(args editor.Args) {
					l.Info("section action", slog.String("section", m.SectionID), slog.String("action", string(it.Action)))
					fail(ed.Do(m.SectionID, it.Action, args))
					refresh()
				}
				if needsInput(it.Action) {
					askArgs(it.Action, run)
					return
				}
				run(editor.Args{})
			})
			mi.Disabled = !it.Enabled
			mi.Checked = it.Checked
			items = append(items, mi)
		}
		widget.ShowPopUpMenuAtPosition(fyne.NewMenu("", items...), w.Canvas(), at)
	}

	// Files dropped on a section replace its image; elsewhere they append.
	w.SetOnDropped(func(pos fyne.Position, uris []fyne.URI) {
		origin := fyne.CurrentApp().Driver().AbsolutePositionForObject(cv)
		id, _ := cv.SectionAt(pos.Subtract(origin))
		for _, u := range uris {
			d := editor.DropFile{Name: u.Name(), Path: u.Path(), MIME: u.MimeType()}
			if err := ed.OnDrop(ctx, id, d); err != nil {
				fail(err)
				continue
			}
			// Later files in the same drop append below.
			id = ""
		}
		refresh()
	})

	globalEdit := widget.NewCheck("Edit all sections", func(on bool) {
		ed.SetGlobalEdit(on)
		refresh()
	})
	globalEdit.SetChecked(prefs.BoolWithFallback("edit.global", false))

	toolbar := container.NewHBox(globalEdit, widget.NewButton("Clear force edit", func() {
		ed.ClearForceEdit()
		refresh()
	}))
	bottom := container.NewBorder(nil, nil, nil, progress, status)
	w.SetContent(container.NewBorder(toolbar, bottom, nil, nil, scroll))

	// File menu
	newItem := fyne.NewMenuItem("New", func() {
		if err := ed.LoadDocument(domain.Document{Width: sess.Config.Canvas.Width}); err != nil {
			fail(err)
			return
		}
		sess.Path = ""
		setTitle()
		refresh()
	})
	openItem := fyne.NewMenuItem("Open…", func() {
		fd := dialog.NewFileOpen(func(ur fyne.URIReadCloser, err error) {
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			if ur == nil {
				return
			}
			path := ur.URI().Path()
			_ = ur.Close()
			openDoc(path)
		}, w)
		fd.SetFilter(fstorage.NewExtensionFileFilter([]string{".json", ".zip"}))
		fd.Show()
	})
	recentItem := fyne.NewMenuItem("Open Recent", nil)
	rebuildRecent := func() {
		var sub []*fyne.MenuItem
		for _, p := range loadRecentDocs(prefs) {
			sub = append(sub, fyne.NewMenuItem(p, func() { openDoc(p) }))
		}
		if len(sub) == 0 {
			none := fyne.NewMenuItem("(none)", nil)
			none.Disabled = true
			sub = append(sub, none)
		}
		recentItem.ChildMenu = fyne.NewMenu("", sub...)
	}
	rebuildRecent()

	saveAs := func() {
		fd := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			if uc == nil {
				return
			}
			path := withExt(uc.URI().Path(), ".json")
			_ = uc.Close()
			if err := sess.Save(path); err != nil {
				dialog.ShowError(err, w)
				return
			}
			saveRecentDocs(prefs, pushRecent(loadRecentDocs(prefs), path, recentMax))
			rebuildRecent()
			setTitle()
			status.SetText("Saved " + path)
		}, w)
		fd.SetFileName("detail-page.json")
		fd.SetFilter(fstorage.NewExtensionFileFilter([]string{".json"}))
		fd.Show()
	}
	saveItem := fyne.NewMenuItem("Save", func() {
		if sess.Path == "" {
			saveAs()
			return
		}
		if err := sess.Save(""); err != nil {
			l.Error("save failed", slog.Any("err", err))
			dialog.ShowError(err, w)
			return
		}
		status.SetText("Saved.")
	})
	saveAsItem := fyne.NewMenuItem("Save As…", saveAs)

	exportTo := func(title, name, ext string, write func(path string) error) *fyne.MenuItem {
		return fyne.NewMenuItem(title, func() {
			fd := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
				if err != nil {
					dialog.ShowError(err, w)
					return
				}
				if uc == nil {
					return
				}
				path := withExt(uc.URI().Path(), ext)
				_ = uc.Close()
				start := time.Now()
				if err := write(path); err != nil {
					l.Error("export failed", slog.String("path", path), slog.Any("err", err))
					dialog.ShowError(err, w)
					return
				}
				l.Info("export completed", slog.String("path", path), slog.Duration("elapsed", time.Since(start)))
				dialog.ShowInformation(title, "Exported to "+path, w)
			}, w)
			fd.SetFileName(name)
			fd.SetFilter(fstorage.NewExtensionFileFilter([]string{ext}))
			fd.Show()
		})
	}
	exportPDF := exportTo("Export PDF…", "detail-page.pdf", ".pdf", func(p string) error { return sess.ExportPDF(ctx, p) })
	exportBundle := exportTo("Export Bundle…", "detail-page.zip", ".zip", func(p string) error { return sess.ExportBundle(ctx, p) })

	fileMenu := fyne.NewMenu("File", newItem, openItem, recentItem, fyne.NewMenuItemSeparator(), saveItem, saveAsItem,
		fyne.NewMenuItemSeparator(), exportPDF, exportBundle)

	// Insert menu
	addImage := fyne.NewMenuItem("Image…", func() {
		fd := dialog.NewFileOpen(func(ur fyne.URIReadCloser, err error) {
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			if ur == nil {
				return
			}
			defer ur.Close()
			data, err := io.ReadAll(ur)
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			if _, err := ed.AddImage(ctx, data, ur.URI().MimeType()); err != nil {
				fail(err)
				return
			}
			refresh()
		}, w)
		fd.SetFilter(fstorage.NewExtensionFileFilter([]string{".png", ".jpg", ".jpeg", ".gif", ".webp"}))
		fd.Show()
	})
	addKind := func(label string, kind domain.ContentKind) *fyne.MenuItem {
		return fyne.NewMenuItem(label, func() {
			if _, err := ed.AddPlaceholder(kind); err != nil {
				fail(err)
				return
			}
			refresh()
		})
	}
	heroItem := fyne.NewMenuItem("Hero…", func() {
		name := widget.NewEntry()
		tagline := widget.NewEntry()
		features := widget.NewMultiLineEntry()
		features.SetPlaceHolder("One feature per line")
		dialog.ShowForm("Hero", "Insert", "Cancel", []*widget.FormItem{
			widget.NewFormItem("Product", name),
			widget.NewFormItem("Tagline", tagline),
			widget.NewFormItem("Features", features),
		}, func(ok bool) {
			if !ok || strings.TrimSpace(name.Text) == "" {
				return
			}
			var fs []string
			for _, f := range strings.Split(features.Text, "\n") {
				if f = strings.TrimSpace(f); f != "" {
					fs = append(fs, f)
				}
			}
			ed.Store().EnsureHero(domain.Hero{ProductName: strings.TrimSpace(name.Text), Tagline: strings.TrimSpace(tagline.Text), Features: fs})
			refresh()
		}, w)
	})
	insertMenu := fyne.NewMenu("Insert", addImage, addKind("Placeholder", domain.KindPlaceholder), addKind("Spacer", domain.KindSpacer), heroItem)

	// Edit menu: bulk actions on held sections
	recolorHeld := fyne.NewMenuItem("Recolor Held Sections…", func() {
		askArgs(editor.ActionRecolor, func(a editor.Args) { ed.RecolorHeld(a.Target, a.Color) })
	})
	compositeHeld := fyne.NewMenuItem("Place Product on Held Sections…", func() {
		askArgs(editor.ActionComposite, func(a editor.Args) { ed.CompositeHeld(a.Source) })
	})
	resetVariations := fyne.NewMenuItem("Forget Used Pose Variations", func() {
		ed.Orchestrator().ResetVariations()
		status.SetText("Pose variations reset.")
	})
	editMenu := fyne.NewMenu("Edit", recolorHeld, compositeHeld, fyne.NewMenuItemSeparator(), resetVariations)

	aboutItem := fyne.NewMenuItem("About "+appTitle, func() {
		exe, _ := os.Executable()
		info := fmt.Sprintf("%s\nVersion: %s\nOS: %s\nArch: %s\nGo: %s\nExecutable: %s",
			appTitle, version.String(), runtime.GOOS, runtime.GOARCH, runtime.Version(), exe)
		dialog.ShowInformation("About", info, w)
	})
	aboutMenu := fyne.NewMenu("About", aboutItem)

	w.SetMainMenu(fyne.NewMainMenu(fileMenu, editMenu, insertMenu, aboutMenu))

	// Persist preferences on close
	w.SetCloseIntercept(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		prefs.SetBool("edit.global", globalEdit.Checked)
		if busy := ed.Orchestrator().ProcessingIDs(); len(busy) > 0 {
			l.Info("closing with actions in flight", slog.Int("count", len(busy)))
		}
		w.Close()
	})

	if docPath != "" {
		openDoc(docPath)
	}

	w.ShowAndRun()
	return nil
}

// showNotice reflects an editor notice in the status bar.
func showNotice(n editor.Notice, status *widget.Label, bar *widget.ProgressBar) {
	if n.Level == editor.LevelProgress {
		if !n.Progress.Active() {
			bar.Hide()
			return
		}
		bar.Max = float64(n.Progress.Total)
		bar.SetValue(float64(n.Progress.Current))
		bar.Show()
		status.SetText(n.Message)
		return
	}
	bar.Hide()
	switch n.Level {
	case editor.LevelError:
		status.SetText("Error: " + n.Message)
	case editor.LevelWarn:
		status.SetText("Warning: " + n.Message)
	default:
		status.SetText(n.Message)
	}
}

const recentPrefsKey = "recent.documents"

func loadRecentDocs(p fyne.Preferences) []string {
	raw := p.StringWithFallback(recentPrefsKey, "")
	var items []string
	if strings.TrimSpace(raw) != "" {
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			items = nil
		}
	}
	// Filter out non-existing paths
	out := make([]string, 0, len(items))
	for _, s := range items {
		if _, err := os.Stat(s); err == nil {
			out = append(out, s)
		} else if !errors.Is(err, os.ErrNotExist) {
			out = append(out, s)
		}
	}
	return out
}

func saveRecentDocs(p fyne.Preferences, items []string) {
	b, _ := json.Marshal(items)
	p.SetString(recentPrefsKey, string(b))
}
