/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package report

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"

	"scanmark/internal/domain"
	"scanmark/internal/journal"
	"scanmark/internal/storage"
)

func TestWriteWorkbook(t *testing.T) {
	j := journal.Journal{
		"scan_b": {
			OriginalPages: map[string]journal.Added{"1": {Added: []journal.Item{
				{Text: "Paid", X: 10, Y: 20.5, FontSize: 12, TextColor: domain.Black, Background: domain.White},
			}}},
			DuplicatedPages: map[string]journal.Edited{"2": {Edited: []journal.Item{
				{Text: "Paid", X: 10, Y: 20.5, FontSize: 14, TextColor: domain.MustColor("#ff0000"), Background: domain.White},
			}}},
		},
		"scan_a": journal.NewEntry(),
	}
	docs := []storage.DocumentRow{{DocID: "scan_b.pdf", Status: domain.StatusProcessed, Pages: 2, Saves: 3, Output: "edited/scan_b_edited.pdf", UpdatedAt: time.Now()}}
	path := filepath.Join(t.TempDir(), "document_changes.xlsx")
	if err := WriteWorkbook(path, j, docs); err != nil {
		t.Fatalf("WriteWorkbook: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if diff := cmp.Diff([]string{ChangesSheet, DocumentsSheet}, f.GetSheetList()); diff != "" {
		t.Fatalf("sheets (-want +got):\n%s", diff)
	}
	rows, err := f.GetRows(ChangesSheet)
	if err != nil {
		t.Fatal(err)
	}
	want := [][]string{
		{"Document", "Page", "Section", "Text", "X", "Y", "Font Size", "Text Color", "Background"},
		{"scan_b", "1", "original", "Paid", "10", "20.5", "12", "#000000", "#ffffff"},
		{"scan_b", "2", "duplicated", "Paid", "10", "20.5", "14", "#ff0000", "#ffffff"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Fatalf("changes (-want +got):\n%s", diff)
	}
	docRows, err := f.GetRows(DocumentsSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(docRows) != 2 || docRows[1][0] != "scan_b.pdf" || docRows[1][1] != "processed" || docRows[1][3] != "3" {
		t.Fatalf("documents rows = %v", docRows)
	}
}

func TestWriteWorkbookEmptyJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "r.xlsx")
	if err := WriteWorkbook(path, journal.Journal{}, nil); err != nil {
		t.Fatalf("WriteWorkbook: %v", err)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, _ := f.GetRows(ChangesSheet)
	if len(rows) != 1 {
		t.Fatalf("expected header only, got %v", rows)
	}
}
