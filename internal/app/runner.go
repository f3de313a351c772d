/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package app runs the document loop: open the next unfinished scan, let the
// operator annotate it, export it and record the outcome.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"time"

	"scanmark/internal/annotate"
	"scanmark/internal/config"
	"scanmark/internal/domain"
	"scanmark/internal/export"
	"scanmark/internal/journal"
	applog "scanmark/internal/log"
	"scanmark/internal/queue"
	"scanmark/internal/report"
	"scanmark/internal/session"
	"scanmark/internal/source"
	"scanmark/internal/storage"
	"scanmark/internal/telemetry"
	"scanmark/internal/textlayout"
	"scanmark/internal/tracker"
)

// ErrNoMoreDocuments is returned when the queue is empty or exhausted.
var ErrNoMoreDocuments = errors.New("no more documents")

// CustomFamily is the family a configured font file is registered under.
const CustomFamily = "custom"

// historyKeep is how many saves per document the history retains.
const historyKeep = 50

// Options carries the collaborators of a Runner. Zero fields get defaults.
type Options struct {
	Provider  source.Provider // PDFProvider if nil
	Display   session.Display // nil runs headless; export then needs a Resize
	Prompter  session.Prompter
	Records   tracker.Store // CSV file from the config if nil
	NoHistory bool
}

// Runner owns the queue and the open session. It is not safe for concurrent use.
type Runner struct {
	cfg      config.AppConfig
	provider source.Provider
	display  session.Display
	prompt   session.Prompter
	tracker  *tracker.Tracker
	history  *storage.History
	fonts    textlayout.Provider
	family   string
	comp     *export.Compositor
	defaults annotate.Config

	docs []string
	pos  int
	sess *session.Session
	now  func() time.Time
	log  *slog.Logger
}

// New prepares a runner for cfg. The queue is read by Start.
func New(cfg config.AppConfig, opts Options) (*Runner, error) {
	l := applog.WithComponent("app")
	defaults, err := AnnotationDefaults(cfg.Annotation)
	if err != nil {
		return nil, err
	}
	lib := textlayout.DefaultLibrary()
	family := textlayout.DefaultFamily
	if cfg.Annotation.FontPath != "" {
		if err := lib.LoadTTF(CustomFamily, cfg.Annotation.FontPath); err != nil {
			return nil, fmt.Errorf("annotation font: %w", err)
		}
		family = CustomFamily
	}
	fonts := textlayout.NewOTProvider(lib)
	if d, ok := opts.Display.(interface {
		SetFonts(textlayout.Provider, string)
	}); ok {
		d.SetFonts(fonts, family)
	}

	r := &Runner{
		cfg:      cfg,
		provider: opts.Provider,
		display:  opts.Display,
		prompt:   opts.Prompter,
		fonts:    fonts,
		family:   family,
		defaults: defaults,
		pos:      -1,
		now:      time.Now,
		log:      l,
	}
	if r.provider == nil {
		r.provider = source.PDFProvider{DPI: cfg.Export.DPI}
	}
	records := opts.Records
	if records == nil {
		records = storage.CSVRecords{Path: cfg.ResolveFile(cfg.Files.Records)}
	}
	r.tracker = tracker.New(records)

	eo := export.DefaultOptions()
	eo.Family = family
	eo.Padding = cfg.Export.Padding
	eo.FontBump = cfg.Export.FontBump
	r.comp = export.NewCompositor(fonts, eo)

	if !opts.NoHistory && cfg.Files.History != "" {
		h, err := storage.OpenHistory(cfg.ResolveFile(cfg.Files.History))
		if err != nil {
			l.Warn("history unavailable", slog.Any("err", err))
		} else {
			r.history = h
		}
	}
	return r, nil
}

// AnnotationDefaults converts the configured colors and size for new annotations.
func AnnotationDefaults(a config.AnnotationConfig) (annotate.Config, error) {
	out := annotate.DefaultConfig()
	var err error
	if a.TextColor != "" {
		if out.TextColor, err = domain.ParseColor(a.TextColor); err != nil {
			return out, fmt.Errorf("annotation text color: %w", err)
		}
	}
	if a.BackgroundColor != "" {
		if out.Background, err = domain.ParseColor(a.BackgroundColor); err != nil {
			return out, fmt.Errorf("annotation background color: %w", err)
		}
	}
	if a.FontSize >= annotate.MinFontSize {
		out.FontSize = a.FontSize
	}
	return out, nil
}

// Fonts returns the font provider and family used for annotations.
func (r *Runner) Fonts() (textlayout.Provider, string) { return r.fonts, r.family }

// Config returns the configuration the runner was built with.
func (r *Runner) Config() config.AppConfig { return r.cfg }

// History returns the save history, or nil.
func (r *Runner) History() *storage.History { return r.history }

// Documents returns the queue read by Start.
func (r *Runner) Documents() []string { return r.docs }

// Position returns the queue index of the current document.
func (r *Runner) Position() int { return r.pos }

// Session returns the open session, or nil.
func (r *Runner) Session() *session.Session { return r.sess }

// Current returns the path of the current document, or "".
func (r *Runner) Current() string {
	if r == nil || r.pos < 0 || r.pos >= len(r.docs) {
		return ""
	}
	return r.docs[r.pos]
}

// Start reads the queue, skips documents already finished and opens the next one.
func (r *Runner) Start(ctx context.Context) (*session.Session, error) {
	docs, err := queue.Discover(r.cfg.Folders.Raw, r.cfg.Documents.Pattern)
	if err != nil {
		return nil, err
	}
	pos, err := r.tracker.Resume(docs)
	if err != nil {
		return nil, err
	}
	r.docs, r.pos = docs, pos
	r.log.Info("queue ready", slog.Int("documents", len(docs)), slog.Int("resume", pos))
	return r.open(ctx)
}

// Open loads the document at path as a single-entry queue, bypassing the tracker.
func (r *Runner) Open(ctx context.Context, path string) (*session.Session, error) {
	r.closeSession()
	r.docs, r.pos = []string{path}, 0
	return r.open(ctx)
}

func (r *Runner) open(ctx context.Context) (*session.Session, error) {
	doc := r.Current()
	if doc == "" {
		return nil, ErrNoMoreDocuments
	}
	ctx = applog.WithDocument(ctx, queue.ID(doc))
	pages, err := r.provider.LoadDocument(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", queue.ID(doc), err)
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("open %s: document has no pages", queue.ID(doc))
	}
	r.sess = session.Open(doc, pages, r.display, r.defaults)
	if r.prompt != nil {
		r.sess.SetPrompter(r.prompt)
	}
	r.log.InfoContext(ctx, "document ready", slog.Int("position", r.pos+1), slog.Int("of", len(r.docs)))
	return r.sess, nil
}

// closeSession ends the open session. Colors set on it, by pipette or
// otherwise, become the defaults for the next document.
func (r *Runner) closeSession() {
	if r.sess != nil {
		c := r.sess.Index().Config()
		r.defaults.TextColor, r.defaults.Background = c.TextColor, c.Background
		r.sess.Close()
		r.sess = nil
	}
}

func (r *Runner) advance(ctx context.Context) (*session.Session, error) {
	r.closeSession()
	if r.pos < len(r.docs) {
		r.pos++
	}
	return r.open(ctx)
}

// Save exports the current document with status saved and stays on it.
func (r *Runner) Save(ctx context.Context) (string, error) {
	return r.save(ctx, domain.StatusSaved)
}

// Finish exports the current document as processed and opens the next one.
// The returned error is ErrNoMoreDocuments after the last document.
func (r *Runner) Finish(ctx context.Context) (string, *session.Session, error) {
	out, err := r.save(ctx, domain.StatusProcessed)
	if err != nil {
		return "", nil, err
	}
	telemetry.Event(telemetry.EventDocumentFinished, map[string]any{"pages": r.sess.PageCount()})
	s, err := r.advance(ctx)
	return out, s, err
}

// Skip records the current document as skipped and opens the next one. It
// also works when the current document failed to open.
func (r *Runner) Skip(ctx context.Context) (*session.Session, error) {
	doc := r.Current()
	if doc == "" {
		return nil, ErrNoMoreDocuments
	}
	if err := r.tracker.Record(queue.ID(doc), domain.StatusSkipped); err != nil {
		return nil, err
	}
	telemetry.Event(telemetry.EventDocumentSkipped, nil)
	r.log.InfoContext(applog.WithDocument(ctx, queue.ID(doc)), "document skipped")
	return r.advance(ctx)
}

// DuplicatePages duplicates a page range of the current document.
func (r *Runner) DuplicatePages(rangeText string) error {
	if r.sess == nil {
		return ErrNoMoreDocuments
	}
	start, end, err := r.sess.DuplicatePages(rangeText)
	if err != nil {
		return err
	}
	telemetry.Event(telemetry.EventPagesDuplicated, map[string]any{"count": end - start + 1})
	return nil
}

// OutputPath is where the edited PDF of doc is written.
func (r *Runner) OutputPath(doc string) string {
	return filepath.Join(r.cfg.Folders.Edited, export.EditedName(doc))
}

func (r *Runner) save(ctx context.Context, status domain.Status) (string, error) {
	if r.sess == nil {
		return "", ErrNoMoreDocuments
	}
	doc := r.sess.Path()
	id := queue.ID(doc)
	ctx = applog.WithDocument(ctx, id)
	l := applog.WithOperation(r.log, "save")

	pages, err := r.sess.Render(r.comp)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", id, err)
	}
	out := r.OutputPath(doc)
	pw, ph := r.cfg.Export.PageSizePt()
	if err := export.WritePDF(out, pages, export.PDFOptions{PageW: pw, PageH: ph, Title: queue.Stem(doc), Author: "scanmark", Created: r.now()}); err != nil {
		return "", err
	}
	if !r.cfg.Export.SkipVerify {
		if err := export.VerifyPDF(out, len(pages)); err != nil {
			return "", err
		}
	}
	if err := r.tracker.Record(id, status); err != nil {
		return "", err
	}
	entry := journal.BuildEntry(r.sess.Index())
	if err := journal.Put(r.cfg.ResolveFile(r.cfg.Files.Journal), queue.Stem(doc), entry); err != nil {
		return "", fmt.Errorf("journal: %w", err)
	}
	r.recordHistory(ctx, id, status, out, entry, pages)
	telemetry.Event(telemetry.EventExportWritten, map[string]any{"pages": len(pages), "status": string(status)})
	l.InfoContext(ctx, "document saved", slog.String("status", string(status)), slog.String("out", out), slog.Int("pages", len(pages)))
	return out, nil
}

func (r *Runner) recordHistory(ctx context.Context, id string, status domain.Status, out string, entry journal.Entry, pages []*image.RGBA) {
	if r.history == nil {
		return
	}
	raw, _ := json.Marshal(entry)
	s := storage.Save{DocID: id, TS: r.now(), Status: status, Pages: len(pages), Output: out, Entry: raw, Digests: export.Digests(pages)}
	if err := r.history.RecordSave(ctx, s); err != nil {
		r.log.WarnContext(ctx, "history not updated", slog.Any("err", err))
		return
	}
	if _, err := r.history.Prune(ctx, id, historyKeep); err != nil {
		r.log.WarnContext(ctx, "history prune failed", slog.Any("err", err))
	}
}

// WriteReport exports the journal and the saved-document summary to the report workbook.
func (r *Runner) WriteReport(ctx context.Context) (string, error) {
	j, err := journal.Load(r.cfg.ResolveFile(r.cfg.Files.Journal))
	if err != nil {
		return "", err
	}
	var docs []storage.DocumentRow
	if r.history != nil {
		if docs, err = r.history.Documents(ctx); err != nil {
			return "", err
		}
	}
	path := r.cfg.ResolveFile(r.cfg.Files.Report)
	return path, report.WriteWorkbook(path, j, docs)
}

// CrashDir implements crash.Autosaver.
func (r *Runner) CrashDir() string {
	if r == nil {
		return ""
	}
	return r.cfg.Folders.Output
}

// Document implements crash.Autosaver.
func (r *Runner) Document() string {
	if r == nil || r.sess == nil {
		return ""
	}
	return queue.ID(r.sess.Path())
}

// Autosave writes the journal entry of the open document to
// <output>/autosave/<stem>.json without touching the journal itself.
func (r *Runner) Autosave() (string, error) {
	if r == nil || r.sess == nil {
		return "", errors.New("no document open")
	}
	data, err := json.MarshalIndent(journal.Journal{queue.Stem(r.sess.Path()): journal.BuildEntry(r.sess.Index())}, "", "    ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(r.cfg.Folders.Output, "autosave", queue.Stem(r.sess.Path())+".json")
	return path, storage.WriteFile(path, data)
}

// Close ends the session and releases the history database.
func (r *Runner) Close() error {
	r.closeSession()
	if r.history != nil {
		return r.history.Close()
	}
	return nil
}
