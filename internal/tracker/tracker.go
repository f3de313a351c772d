/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package tracker remembers which documents of the queue were already
// handled, so a restarted session resumes after the last finished one.
package tracker

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"scanmark/internal/domain"
	applog "scanmark/internal/log"
)

// Store persists the record set. Save replaces everything previously stored.
type Store interface {
	Load() ([]domain.Record, error)
	Save([]domain.Record) error
}

// ResumeIndex returns the queue position to continue from: one past the
// document named by the last processed or skipped record, or 0.
func ResumeIndex(docs []string, recs []domain.Record) int {
	var last string
	for _, r := range recs {
		if r.Status.Final() {
			last = r.ID
		}
	}
	if last == "" {
		return 0
	}
	for i, d := range docs {
		if filepath.Base(d) == last {
			return i + 1
		}
	}
	return 0
}

// Tracker records document outcomes in a Store.
type Tracker struct {
	store Store
	log   *slog.Logger
}

// New returns a tracker backed by store.
func New(store Store) *Tracker {
	return &Tracker{store: store, log: applog.WithComponent("tracker")}
}

// Resume loads the records and computes the resume position for docs.
func (t *Tracker) Resume(docs []string) (int, error) {
	recs, err := t.store.Load()
	if err != nil {
		return 0, fmt.Errorf("load records: %w", err)
	}
	i := ResumeIndex(docs, recs)
	t.log.Debug("resume", slog.Int("records", len(recs)), slog.Int("index", i))
	return i, nil
}

// Record sets the status of id, updating its row in place or appending one,
// and rewrites the store.
func (t *Tracker) Record(id string, status domain.Status) error {
	if !status.Valid() {
		return fmt.Errorf("invalid status %q", status)
	}
	recs, err := t.store.Load()
	if err != nil {
		return fmt.Errorf("load records: %w", err)
	}
	found := false
	for i := range recs {
		if recs[i].ID == id {
			recs[i].Status = status
			found = true
			break
		}
	}
	if !found {
		recs = append(recs, domain.Record{ID: id, Status: status})
	}
	if err := t.store.Save(recs); err != nil {
		return fmt.Errorf("save records: %w", err)
	}
	t.log.Info("recorded", slog.String("id", id), slog.String("status", string(status)))
	return nil
}

// Status returns the recorded status of id.
func (t *Tracker) Status(id string) (domain.Status, bool, error) {
	recs, err := t.store.Load()
	if err != nil {
		return "", false, err
	}
	for _, r := range recs {
		if r.ID == id {
			return r.Status, true, nil
		}
	}
	return "", false, nil
}
