/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package tracker

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"scanmark/internal/domain"
	"scanmark/internal/storage"
)

func TestResumeIndex(t *testing.T) {
	docs := []string{"raw/a.pdf", "raw/b.pdf", "raw/c.pdf"}
	cases := []struct {
		name string
		recs []domain.Record
		want int
	}{
		{"no records", nil, 0},
		{"last processed", []domain.Record{{ID: "a.pdf", Status: domain.StatusProcessed}, {ID: "b.pdf", Status: domain.StatusProcessed}}, 2},
		{"skipped counts", []domain.Record{{ID: "a.pdf", Status: domain.StatusSkipped}}, 1},
		{"saved ignored", []domain.Record{{ID: "a.pdf", Status: domain.StatusProcessed}, {ID: "b.pdf", Status: domain.StatusSaved}}, 1},
		{"file order wins", []domain.Record{{ID: "c.pdf", Status: domain.StatusProcessed}, {ID: "a.pdf", Status: domain.StatusProcessed}}, 1},
		{"unknown doc", []domain.Record{{ID: "gone.pdf", Status: domain.StatusProcessed}}, 0},
		{"last of queue", []domain.Record{{ID: "c.pdf", Status: domain.StatusSkipped}}, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ResumeIndex(docs, tc.recs); got != tc.want {
				t.Fatalf("ResumeIndex = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestRecordIsIdempotent(t *testing.T) {
	store := storage.CSVRecords{Path: filepath.Join(t.TempDir(), "local_records.csv")}
	tr := New(store)
	for i := 0; i < 2; i++ {
		if err := tr.Record("a.pdf", domain.StatusProcessed); err != nil {
			t.Fatal(err)
		}
	}
	got, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	want := []domain.Record{{ID: "a.pdf", Status: domain.StatusProcessed}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("records (-want +got):\n%s", diff)
	}
}

func TestRecordUpdatesInPlace(t *testing.T) {
	store := storage.CSVRecords{Path: filepath.Join(t.TempDir(), "r.csv")}
	tr := New(store)
	_ = tr.Record("a.pdf", domain.StatusSaved)
	_ = tr.Record("b.pdf", domain.StatusSkipped)
	_ = tr.Record("a.pdf", domain.StatusProcessed)

	got, _ := store.Load()
	want := []domain.Record{{ID: "a.pdf", Status: domain.StatusProcessed}, {ID: "b.pdf", Status: domain.StatusSkipped}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("records (-want +got):\n%s", diff)
	}
	st, ok, err := tr.Status("a.pdf")
	if err != nil || !ok || st != domain.StatusProcessed {
		t.Fatalf("Status = %q, %v, %v", st, ok, err)
	}

	i, err := tr.Resume([]string{"x/a.pdf", "x/b.pdf", "x/c.pdf"})
	if err != nil || i != 2 {
		t.Fatalf("Resume = %d, %v; want 2", i, err)
	}
}

func TestRecordRejectsUnknownStatus(t *testing.T) {
	tr := New(storage.CSVRecords{Path: filepath.Join(t.TempDir(), "r.csv")})
	if err := tr.Record("a.pdf", "done"); err == nil {
		t.Fatal("expected error")
	}
}

type failingStore struct{}

var errDisk = errors.New("disk gone")

func (failingStore) Load() ([]domain.Record, error) { return nil, errDisk }
func (failingStore) Save([]domain.Record) error   { return errDisk }

func TestStoreErrorsAreWrapped(t *testing.T) {
	tr := New(failingStore{})
	if _, err := tr.Resume(nil); !errors.Is(err, errDisk) {
		t.Fatalf("Resume err = %v", err)
	}
	if err := tr.Record("a.pdf", domain.StatusSaved); !errors.Is(err, errDisk) {
		t.Fatalf("Record err = %v", err)
	}
}
