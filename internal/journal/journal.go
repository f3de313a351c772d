/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package journal keeps the JSON change journal: for every saved document the
// text placed on its original pages and the text carried onto duplicated ones.
package journal

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"scanmark/internal/annotate"
	"scanmark/internal/domain"
	applog "scanmark/internal/log"
	"scanmark/internal/storage"
)

//go:embed schema.json
var schemaJSON []byte

// Item is one annotation as recorded in the journal. Coordinates are in display space.
type Item struct {
	Text       string       `json:"text"`
	X          float64      `json:"x"`
	Y          float64      `json:"y"`
	FontSize   int          `json:"font_size"`
	TextColor  domain.Color `json:"text_color"`
	Background domain.Color `json:"text_background_color"`
}

// Added lists the items of an original page.
type Added struct {
	Added []Item `json:"added"`
}

// Edited lists the items of a page produced by duplication.
type Edited struct {
	Edited []Item `json:"edited"`
}

// Entry is the journal record of one document. Keys are 1-based page numbers.
type Entry struct {
	OriginalPages   map[string]Added  `json:"original_pages"`
	DuplicatedPages map[string]Edited `json:"duplicated_pages"`
}

// Journal maps document ids (file stems) to their latest entry.
type Journal map[string]Entry

// NewEntry returns an entry with both sections present.
func NewEntry() Entry {
	return Entry{OriginalPages: map[string]Added{}, DuplicatedPages: map[string]Edited{}}
}

// BuildEntry snapshots idx. A page holding any read-only annotation is filed
// under duplicated_pages, every other page under original_pages.
func BuildEntry(idx *annotate.Index) Entry {
	e := NewEntry()
	for _, p := range idx.Pages() {
		list := idx.Page(p)
		items := make([]Item, 0, len(list))
		dup := false
		for _, a := range list {
			dup = dup || a.ReadOnly
			items = append(items, itemOf(a))
		}
		key := strconv.Itoa(p + 1)
		if dup {
			e.DuplicatedPages[key] = Edited{Edited: items}
		} else {
			e.OriginalPages[key] = Added{Added: items}
		}
	}
	return e
}

func itemOf(a *annotate.Annotation) Item {
	return Item{
		Text:       a.Text,
		X:          a.Pos.X,
		Y:          a.Pos.Y,
		FontSize:   a.FontSize,
		TextColor:  a.TextColor,
		Background: a.Background,
	}
}

func (e Entry) normalized() Entry {
	if e.OriginalPages == nil {
		e.OriginalPages = map[string]Added{}
	}
	if e.DuplicatedPages == nil {
		e.DuplicatedPages = map[string]Edited{}
	}
	return e
}

// Len returns the number of items in e.
func (e Entry) Len() int {
	n := 0
	for _, p := range e.OriginalPages {
		n += len(p.Added)
	}
	for _, p := range e.DuplicatedPages {
		n += len(p.Edited)
	}
	return n
}

// Row is one flattened journal item.
type Row struct {
	Doc        string
	Page       int
	Duplicated bool
	Item
}

// Rows flattens j ordered by document, page and z-order.
func (j Journal) Rows() []Row {
	var out []Row
	for doc, e := range j {
		for k, p := range e.OriginalPages {
			n, _ := strconv.Atoi(k)
			for _, it := range p.Added {
				out = append(out, Row{Doc: doc, Page: n, Item: it})
			}
		}
		for k, p := range e.DuplicatedPages {
			n, _ := strconv.Atoi(k)
			for _, it := range p.Edited {
				out = append(out, Row{Doc: doc, Page: n, Duplicated: true, Item: it})
			}
		}
	}
	// A page key lives in exactly one section, so (doc, page) ties only
	// between items of one page, which keep their list order.
	sort.SliceStable(out, func(i, k int) bool {
		if out[i].Doc != out[k].Doc {
			return out[i].Doc < out[k].Doc
		}
		return out[i].Page < out[k].Page
	})
	return out
}

// Validate checks data against the journal schema.
func Validate(data []byte) error {
	res, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schemaJSON), gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("validate journal: %w", err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return errors.New("journal schema: " + strings.Join(msgs, "; "))
}

// Load reads the journal at path. A missing, unreadable JSON or
// schema-invalid file yields an empty journal; only I/O failures are errors.
func Load(path string) (Journal, error) {
	l := applog.WithOperation(applog.WithComponent("journal"), "load").With(slog.String("path", path))
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Journal{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return Journal{}, nil
	}
	if err := Validate(data); err != nil {
		l.Warn("journal ignored", slog.Any("err", err))
		return Journal{}, nil
	}
	var j Journal
	if err := json.Unmarshal(data, &j); err != nil {
		l.Warn("journal ignored", slog.Any("err", err))
		return Journal{}, nil
	}
	if j == nil {
		j = Journal{}
	}
	return j, nil
}

// Save writes j to path, keeping a backup of the previous file.
func Save(path string, j Journal) error {
	for doc, e := range j {
		if e.OriginalPages == nil || e.DuplicatedPages == nil {
			j[doc] = e.normalized()
		}
	}
	data, err := json.MarshalIndent(j, "", "    ")
	if err != nil {
		return fmt.Errorf("encode journal: %w", err)
	}
	return storage.WriteFile(path, data)
}

// Put replaces the entry of doc in the journal at path.
func Put(path, doc string, e Entry) error {
	j, err := Load(path)
	if err != nil {
		return err
	}
	j[doc] = e
	if err := Save(path, j); err != nil {
		return err
	}
	applog.WithComponent("journal").Debug("entry written", slog.String("doc", doc), slog.Int("items", e.Len()))
	return nil
}
