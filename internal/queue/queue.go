/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package queue finds the documents waiting to be annotated.
package queue

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	applog "scanmark/internal/log"
)

// DefaultPattern matches the PDFs directly inside the folder.
const DefaultPattern = "*.pdf"

// Discover returns the files in dir matching pattern, ordered by base name.
// The folder is created when missing. Patterns may use ** to descend.
func Discover(dir, pattern string) ([]string, error) {
	l := applog.WithOperation(applog.WithComponent("queue"), "discover")
	if strings.TrimSpace(pattern) == "" {
		pattern = DefaultPattern
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid document pattern %q", pattern)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure %s: %w", dir, err)
	}
	matches, err := doublestar.FilepathGlob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("pattern matching failed: %w", err)
	}
	docs := matches[:0]
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		docs = append(docs, m)
	}
	sort.SliceStable(docs, func(i, j int) bool {
		bi, bj := filepath.Base(docs[i]), filepath.Base(docs[j])
		if bi != bj {
			return bi < bj
		}
		return docs[i] < docs[j]
	})
	l.Debug("documents found", slog.String("dir", dir), slog.Int("count", len(docs)))
	return docs, nil
}

// ID is the record key of a document: its base file name.
func ID(path string) string { return filepath.Base(path) }

// Stem is the journal key of a document: its base name without extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
