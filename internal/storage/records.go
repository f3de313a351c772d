/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"scanmark/internal/domain"
)

// CSVRecords stores document records as a two-column CSV file (id,status)
// without a header. Rows keep file order.
type CSVRecords struct {
	Path string
}

// Load returns all rows. A missing or empty file yields no records.
func (c CSVRecords) Load() ([]domain.Record, error) {
	data, err := os.ReadFile(c.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	var out []domain.Record
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", c.Path, err)
		}
		if len(row) < 2 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		out = append(out, domain.Record{ID: row[0], Status: domain.Status(strings.TrimSpace(row[1]))})
	}
	return out, nil
}

// Save rewrites the whole file with recs.
func (c CSVRecords) Save(recs []domain.Record) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, rec := range recs {
		if err := w.Write([]string{rec.ID, string(rec.Status)}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return WriteFile(c.Path, buf.Bytes())
}
