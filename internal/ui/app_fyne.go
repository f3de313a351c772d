//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"scanmark/internal/app"
	"scanmark/internal/config"
	"scanmark/internal/crash"
	applog "scanmark/internal/log"
	"scanmark/internal/queue"
	"scanmark/internal/session"
	"scanmark/internal/version"
)

// Run starts the desktop editor on the document queue described by cfg.
func Run(cfg config.AppConfig) error {
	l := applog.WithComponent("ui")
	l.Info("starting UI")

	pc := NewPageCanvas()
	r, err := app.New(cfg, app.Options{Display: pc})
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()
	defer crash.Recover(r)

	fa := fyneapp.NewWithID("scanmark")
	w := fa.NewWindow("ScanMark")
	prefs := fa.Preferences()
	w.Resize(fyne.NewSize(
		float32(max(prefs.IntWithFallback("window.width", 1100), 800)),
		float32(max(prefs.IntWithFallback("window.height", 900), 600)),
	))

	ctx := context.Background()
	status := widget.NewLabel("Ready")
	docLabel := widget.NewLabel("")
	pageLabel := widget.NewLabel("")
	modeLabel := widget.NewLabel("")

	refreshLabels := func() {
		s := pc.Session()
		if s == nil {
			docLabel.SetText("No document")
			pageLabel.SetText("")
			modeLabel.SetText("")
			return
		}
		docLabel.SetText(fmt.Sprintf("%s (%d of %d)", queue.ID(r.Current()), r.Position()+1, len(r.Documents())))
		pageLabel.SetText(s.PageLabel())
		modeLabel.SetText("Mode: " + s.Mode().String())
	}
	pc.OnChange = refreshLabels

	bind := func(s *session.Session, err error) {
		pc.SetSession(s)
		switch {
		case errors.Is(err, app.ErrNoMoreDocuments):
			status.SetText("All documents processed")
		case err != nil:
			l.Error("open failed", slog.Any("err", err))
			status.SetText("Open failed, use Skip PDF to continue")
			dialog.ShowError(err, w)
		}
		refreshLabels()
	}

	// withSession runs fn when a document is open.
	withSession := func(fn func(s *session.Session)) func() {
		return func() {
			s := pc.Session()
			if s == nil {
				status.SetText("No document open")
				return
			}
			fn(s)
			pc.Refresh()
			refreshLabels()
		}
	}

	// askText shows a single-entry form and calls fn with non-empty input.
	askText := func(title, label, initial string, fn func(string)) {
		entry := widget.NewEntry()
		entry.SetText(initial)
		dialog.NewForm(title, "OK", "Cancel", []*widget.FormItem{
			widget.NewFormItem(label, entry),
		}, func(ok bool) {
			if ok && entry.Text != "" {
				fn(entry.Text)
			}
		}, w).Show()
	}

	saveBtn := widget.NewButton("Save PDF", func() {
		out, err := r.Save(ctx)
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		status.SetText("Saved " + out)
	})
	prevBtn := widget.NewButton("Previous", withSession(func(s *session.Session) { s.PrevPage() }))
	nextBtn := widget.NewButton("Next", withSession(func(s *session.Session) { s.NextPage() }))
	addBtn := widget.NewButton("Add Text", withSession(func(s *session.Session) {
		askText("Add Text", "Text", "", func(text string) {
			s.EnableText(text)
			status.SetText("Click on the page to place the text")
			refreshLabels()
		})
	}))
	growBtn := widget.NewButton("Increase Text Size", withSession(func(s *session.Session) { s.Grow() }))
	shrinkBtn := widget.NewButton("Decrease Text Size", withSession(func(s *session.Session) { s.Shrink() }))
	clearBtn := widget.NewButton("Clear All Text", withSession(func(s *session.Session) {
		dialog.ShowConfirm("Clear All Text", "Remove every text from this page?", func(ok bool) {
			if ok && !s.ClearPage() {
				status.SetText("This page is a duplicate and cannot be cleared")
			}
			pc.Refresh()
		}, w)
	}))
	dupBtn := widget.NewButton("Duplicate Pages", withSession(func(s *session.Session) {
		askText("Duplicate Pages", "Range (e.g. 2-3)", "", func(rng string) {
			if err := r.DuplicatePages(rng); err != nil {
				dialog.ShowError(err, w)
				return
			}
			status.SetText(fmt.Sprintf("Duplicated pages %s", rng))
			refreshLabels()
		})
	}))
	editBtn := widget.NewButton("Edit Text", withSession(func(s *session.Session) {
		sel := s.Selected()
		if sel == nil {
			status.SetText("Right-click a text to select it first")
			return
		}
		askText("Edit Text", "Text", sel.Text, func(text string) {
			if !s.EditSelected(text) {
				status.SetText("This text is read-only")
			}
			pc.Refresh()
		})
	}))
	deleteBtn := widget.NewButton("Delete Text", withSession(func(s *session.Session) {
		if !s.DeleteSelected() {
			status.SetText("Nothing deleted")
		}
	}))
	colorBtn := widget.NewButton("Setup Color", withSession(func(s *session.Session) {
		s.EnablePipette()
		status.SetText("Click the background color, then the text color")
	}))
	finishBtn := widget.NewButton("Finish PDF", func() {
		out, s, err := r.Finish(ctx)
		if out != "" {
			status.SetText("Finished " + out)
		}
		if err != nil && out == "" && !errors.Is(err, app.ErrNoMoreDocuments) {
			dialog.ShowError(err, w)
			return
		}
		bind(s, err)
	})
	skipBtn := widget.NewButton("Skip PDF", func() {
		s, err := r.Skip(ctx)
		bind(s, err)
	})

	toolbar := container.NewHBox(saveBtn, prevBtn, nextBtn, addBtn, growBtn, shrinkBtn, clearBtn,
		dupBtn, editBtn, deleteBtn, colorBtn, finishBtn, skipBtn)
	info := container.NewHBox(docLabel, pageLabel, modeLabel)
	w.SetContent(container.NewBorder(
		container.NewVBox(container.NewHScroll(toolbar), info),
		status, nil, nil, pc,
	))

	aboutItem := fyne.NewMenuItem("About ScanMark", func() {
		exe, _ := os.Executable()
		cwd, _ := os.Getwd()
		msg := fmt.Sprintf("ScanMark\nVersion: %s\nOS: %s\nArch: %s\nGo: %s\nExecutable: %s\nWorking Dir: %s",
			version.String(), runtime.GOOS, runtime.GOARCH, runtime.Version(), exe, cwd)
		dialog.ShowInformation("Installation Environment", msg, w)
	})
	reportItem := fyne.NewMenuItem("Write Change Report", func() {
		out, err := r.WriteReport(ctx)
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		status.SetText("Report written to " + out)
	})
	w.SetMainMenu(fyne.NewMainMenu(
		fyne.NewMenu("File", reportItem),
		fyne.NewMenu("About", aboutItem),
	))

	w.SetCloseIntercept(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		w.Close()
	})

	bind(r.Start(ctx))
	w.ShowAndRun()
	l.Info("UI closed")
	return nil
}
