/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package app

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/image/font/gofont/goregular"

	"scanmark/internal/config"
	"scanmark/internal/domain"
	"scanmark/internal/journal"
	"scanmark/internal/storage"
	"scanmark/internal/surface"
)

// fakeProvider serves pages per base name; unknown documents fail to open.
type fakeProvider map[string]int

func (f fakeProvider) LoadDocument(ctx context.Context, path string) ([]image.Image, error) {
	n, ok := f[filepath.Base(path)]
	if !ok {
		return nil, errors.New("unreadable")
	}
	out := make([]image.Image, n)
	for i := range out {
		img := image.NewRGBA(image.Rect(0, 0, 600, 800))
		draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
		out[i] = img
	}
	return out, nil
}

func testConfig(t *testing.T, docs ...string) config.AppConfig {
	t.Helper()
	root := t.TempDir()
	cfg := config.Defaults()
	cfg.Folders = config.FoldersConfig{
		Raw:    filepath.Join(root, "raw"),
		Edited: filepath.Join(root, "edited"),
		Output: filepath.Join(root, "output"),
	}
	if err := os.MkdirAll(cfg.Folders.Raw, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, d := range docs {
		if err := os.WriteFile(filepath.Join(cfg.Folders.Raw, d), []byte("%PDF-1.4\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return cfg
}

func newRunner(t *testing.T, cfg config.AppConfig, pv fakeProvider) *Runner {
	t.Helper()
	r, err := New(cfg, Options{Provider: pv, Display: surface.NewRaster(300, nil)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r.now = func() time.Time { return time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestFinishExportsAndAdvances(t *testing.T) {
	cfg := testConfig(t, "a.pdf", "b.pdf")
	r := newRunner(t, cfg, fakeProvider{"a.pdf": 2, "b.pdf": 1})
	ctx := context.Background()

	s, err := r.Start(ctx)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	s.PlaceAt(domain.Pt(20, 20), "Approved")
	if err := r.DuplicatePages("1"); err != nil {
		t.Fatalf("DuplicatePages: %v", err)
	}

	out, next, err := r.Finish(ctx)
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if out != filepath.Join(cfg.Folders.Edited, "a_edited.pdf") {
		t.Fatalf("output = %s", out)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("edited PDF missing: %v", err)
	}
	if next == nil || filepath.Base(next.Path()) != "b.pdf" {
		t.Fatalf("next session = %v", next)
	}

	recs, _ := storage.CSVRecords{Path: cfg.ResolveFile(cfg.Files.Records)}.Load()
	if diff := cmp.Diff([]domain.Record{{ID: "a.pdf", Status: domain.StatusProcessed}}, recs); diff != "" {
		t.Fatalf("records (-want +got):\n%s", diff)
	}

	j, err := journal.Load(cfg.ResolveFile(cfg.Files.Journal))
	if err != nil {
		t.Fatal(err)
	}
	e, ok := j["a"]
	if !ok || len(e.OriginalPages["1"].Added) != 1 || len(e.DuplicatedPages["2"].Edited) != 1 {
		t.Fatalf("journal entry = %+v", j)
	}

	saves, err := r.History().Saves(ctx, "a.pdf", 10)
	if err != nil || len(saves) != 1 || saves[0].Pages != 3 || len(saves[0].Digests) != 3 {
		t.Fatalf("history = %+v, %v", saves, err)
	}
}

func TestStartResumesAfterFinished(t *testing.T) {
	cfg := testConfig(t, "a.pdf", "b.pdf", "c.pdf")
	rec := storage.CSVRecords{Path: cfg.ResolveFile(cfg.Files.Records)}
	if err := rec.Save([]domain.Record{{ID: "a.pdf", Status: domain.StatusProcessed}, {ID: "b.pdf", Status: domain.StatusSaved}}); err != nil {
		t.Fatal(err)
	}
	r := newRunner(t, cfg, fakeProvider{"a.pdf": 1, "b.pdf": 1, "c.pdf": 1})
	s, err := r.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(s.Path()) != "b.pdf" || r.Position() != 1 {
		t.Fatalf("resumed at %s (%d)", s.Path(), r.Position())
	}
}

func TestSaveStaysOnDocument(t *testing.T) {
	cfg := testConfig(t, "a.pdf", "b.pdf")
	r := newRunner(t, cfg, fakeProvider{"a.pdf": 1, "b.pdf": 1})
	ctx := context.Background()
	s, _ := r.Start(ctx)
	if _, err := r.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if r.Session() != s || r.Position() != 0 {
		t.Fatal("Save moved to another document")
	}
	recs, _ := storage.CSVRecords{Path: cfg.ResolveFile(cfg.Files.Records)}.Load()
	if len(recs) != 1 || recs[0].Status != domain.StatusSaved {
		t.Fatalf("records = %v", recs)
	}
}

func TestSkipAndExhaustion(t *testing.T) {
	cfg := testConfig(t, "a.pdf", "broken.pdf")
	r := newRunner(t, cfg, fakeProvider{"a.pdf": 1})
	ctx := context.Background()
	if _, err := r.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Skip(ctx); err == nil || errors.Is(err, ErrNoMoreDocuments) {
		t.Fatalf("expected open failure for broken.pdf, got %v", err)
	}
	if r.Current() == "" || r.Session() != nil {
		t.Fatal("failed document should stay current without a session")
	}
	if _, err := r.Skip(ctx); !errors.Is(err, ErrNoMoreDocuments) {
		t.Fatalf("Skip at end = %v", err)
	}
	recs, _ := storage.CSVRecords{Path: cfg.ResolveFile(cfg.Files.Records)}.Load()
	want := []domain.Record{{ID: "a.pdf", Status: domain.StatusSkipped}, {ID: "broken.pdf", Status: domain.StatusSkipped}}
	if diff := cmp.Diff(want, recs); diff != "" {
		t.Fatalf("records (-want +got):\n%s", diff)
	}
}

func TestEmptyQueue(t *testing.T) {
	r := newRunner(t, testConfig(t), fakeProvider{})
	if _, err := r.Start(context.Background()); !errors.Is(err, ErrNoMoreDocuments) {
		t.Fatalf("Start = %v", err)
	}
	if _, err := r.Save(context.Background()); !errors.Is(err, ErrNoMoreDocuments) {
		t.Fatalf("Save = %v", err)
	}
}

func TestAutosaveAndReport(t *testing.T) {
	cfg := testConfig(t, "a.pdf")
	r := newRunner(t, cfg, fakeProvider{"a.pdf": 1})
	ctx := context.Background()
	s, _ := r.Start(ctx)
	s.PlaceAt(domain.Pt(5, 5), "draft")
	if r.Document() != "a.pdf" || r.CrashDir() != cfg.Folders.Output {
		t.Fatalf("autosaver = %q %q", r.Document(), r.CrashDir())
	}
	path, err := r.Autosave()
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := journal.Validate(data); err != nil {
		t.Fatalf("autosave is not a valid journal: %v", err)
	}

	if _, _, err := r.Finish(ctx); !errors.Is(err, ErrNoMoreDocuments) {
		t.Fatalf("Finish on last document = %v", err)
	}
	rp, err := r.WriteReport(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(rp); err != nil {
		t.Fatalf("report missing: %v", err)
	}
}

func TestNilRunnerAutosaver(t *testing.T) {
	var r *Runner
	if r.Document() != "" || r.CrashDir() != "" {
		t.Fatal("nil runner should report nothing")
	}
	if _, err := r.Autosave(); err == nil {
		t.Fatal("expected error")
	}
}

func TestBadAnnotationColor(t *testing.T) {
	cfg := testConfig(t)
	cfg.Annotation.TextColor = "blue-ish"
	if _, err := New(cfg, Options{NoHistory: true}); err == nil {
		t.Fatal("expected color error")
	}
}

func TestColorsCarryToNextDocument(t *testing.T) {
	cfg := testConfig(t, "a.pdf", "b.pdf", "c.pdf")
	r := newRunner(t, cfg, fakeProvider{"a.pdf": 1, "b.pdf": 1, "c.pdf": 1})
	ctx := context.Background()

	s, err := r.Start(ctx)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	red, yellow := domain.MustColor("#ff0000"), domain.MustColor("#ffff00")
	s.Index().SetColors(red, yellow)

	_, next, err := r.Finish(ctx)
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if c := next.Index().Config(); c.TextColor != red || c.Background != yellow {
		t.Fatalf("after Finish: text=%s background=%s", c.TextColor.Hex(), c.Background.Hex())
	}
	next, err = r.Skip(ctx)
	if err != nil {
		t.Fatalf("Skip: %v", err)
	}
	if c := next.Index().Config(); c.TextColor != red || c.Background != yellow {
		t.Fatalf("after Skip: text=%s background=%s", c.TextColor.Hex(), c.Background.Hex())
	}
}

func TestCustomFontReachesDisplay(t *testing.T) {
	cfg := testConfig(t)
	cfg.Annotation.FontPath = filepath.Join(t.TempDir(), "regular.ttf")
	if err := os.WriteFile(cfg.Annotation.FontPath, goregular.TTF, 0o644); err != nil {
		t.Fatal(err)
	}
	display := surface.NewRaster(300, nil)
	r, err := New(cfg, Options{Provider: fakeProvider{}, Display: display, NoHistory: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()
	if _, family := r.Fonts(); family != CustomFamily || display.Family() != CustomFamily {
		t.Fatalf("runner family %q, display family %q", family, display.Family())
	}
}
