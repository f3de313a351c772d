/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package report exports the change journal as a spreadsheet.
package report

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"scanmark/internal/journal"
	applog "scanmark/internal/log"
	"scanmark/internal/storage"
)

const (
	ChangesSheet   = "Changes"
	DocumentsSheet = "Documents"
)

var changesHeader = []any{"Document", "Page", "Section", "Text", "X", "Y", "Font Size", "Text Color", "Background"}

var documentsHeader = []any{"Document", "Status", "Pages", "Saves", "Output", "Updated"}

// WriteWorkbook writes j and the saved-document summary docs to path.
// docs may be empty when no history is available.
func WriteWorkbook(path string, j journal.Journal, docs []storage.DocumentRow) error {
	l := applog.WithOperation(applog.WithComponent("report"), "write").With(slog.String("path", path))
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", ChangesSheet); err != nil {
		return err
	}
	head, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	rows := j.Rows()
	if err := writeTable(f, ChangesSheet, changesHeader, len(rows), head, func(i int) []any {
		r := rows[i]
		section := "original"
		if r.Duplicated {
			section = "duplicated"
		}
		return []any{r.Doc, r.Page, section, r.Text, r.X, r.Y, r.FontSize, r.TextColor.Hex(), r.Background.Hex()}
	}); err != nil {
		return fmt.Errorf("changes sheet: %w", err)
	}
	swatches := map[string]int{}
	for i, r := range rows {
		for col, c := range map[string]string{"H": r.TextColor.Hex(), "I": r.Background.Hex()} {
			id, ok := swatches[c]
			if !ok {
				id, err = f.NewStyle(&excelize.Style{Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{strings.TrimPrefix(c, "#")}}})
				if err != nil {
					return err
				}
				swatches[c] = id
			}
			cell := fmt.Sprintf("%s%d", col, i+2)
			if err := f.SetCellStyle(ChangesSheet, cell, cell, id); err != nil {
				return err
			}
		}
	}

	if _, err := f.NewSheet(DocumentsSheet); err != nil {
		return err
	}
	if err := writeTable(f, DocumentsSheet, documentsHeader, len(docs), head, func(i int) []any {
		d := docs[i]
		return []any{d.DocID, string(d.Status), d.Pages, d.Saves, d.Output, d.UpdatedAt.Local().Format(time.DateTime)}
	}); err != nil {
		return fmt.Errorf("documents sheet: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return fmt.Errorf("encode workbook: %w", err)
	}
	if err := storage.WriteFile(path, buf.Bytes()); err != nil {
		return err
	}
	l.Info("report written", slog.Int("changes", len(rows)), slog.Int("documents", len(docs)))
	return nil
}

// writeTable writes a bold header, n rows, a frozen header row and an auto filter.
func writeTable(f *excelize.File, sheet string, header []any, n, headStyle int, row func(int) []any) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headStyle); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		vals := row(i)
		if err := f.SetSheetRow(sheet, cell, &vals); err != nil {
			return err
		}
	}
	end, err := excelize.CoordinatesToCellName(len(header), n+1)
	if err != nil {
		return err
	}
	if err := f.AutoFilter(sheet, "A1:"+end, nil); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "A", "A", 28); err != nil {
		return err
	}
	return f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}
