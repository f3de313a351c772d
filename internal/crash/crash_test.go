/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package crash

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type fakeSaver struct {
	dir, doc string
	err      error
	saved    int
}

func (f *fakeSaver) CrashDir() string { return f.dir }
func (f *fakeSaver) Document() string { return f.doc }
func (f *fakeSaver) Autosave() (string, error) {
	f.saved++
	return filepath.Join(f.dir, "autosave.json"), f.err
}

func silenceStderr(t *testing.T) {
	t.Helper()
	old := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w
	t.Cleanup(func() {
		_ = w.Close()
		os.Stderr = old
		_, _ = io.Copy(io.Discard, r)
	})
}

func interceptExit(t *testing.T) *int {
	t.Helper()
	code := -1
	old := exitFn
	exitFn = func(c int) { code = c }
	t.Cleanup(func() { exitFn = old })
	return &code
}

func TestWriteReportCreatesFileInTemp(t *testing.T) {
	path, err := writeReport(nil, "boom", []byte("stacktrace"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	t.Cleanup(func() { _ = os.Remove(path) })
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, "ScanMark Crash Report") || !strings.Contains(s, "Panic: boom") {
		t.Fatalf("unexpected report: %s", s)
	}
}

func TestRecoverWritesReportAndAutosaves(t *testing.T) {
	silenceStderr(t)
	code := interceptExit(t)
	saver := &fakeSaver{dir: filepath.Join(t.TempDir(), "output"), doc: "scan_001.pdf"}

	func() {
		defer Recover(saver)
		panic("boom")
	}()

	if *code != 2 {
		t.Fatalf("exit code = %d, want 2", *code)
	}
	if saver.saved != 1 {
		t.Fatalf("Autosave called %d times", saver.saved)
	}
	matches, _ := filepath.Glob(filepath.Join(saver.dir, "crash-*.log"))
	if len(matches) != 1 {
		t.Fatalf("crash reports = %v", matches)
	}
	b, _ := os.ReadFile(matches[0])
	if !strings.Contains(string(b), "Document: scan_001.pdf") {
		t.Fatalf("report lacks document: %s", b)
	}
}

func TestRecoverWithoutDocumentSkipsAutosave(t *testing.T) {
	silenceStderr(t)
	interceptExit(t)
	saver := &fakeSaver{dir: t.TempDir(), err: errors.New("unused")}
	func() {
		defer Recover(saver)
		panic("idle")
	}()
	if saver.saved != 0 {
		t.Fatal("autosave attempted without an open document")
	}
}

func TestRecoverNoPanic(t *testing.T) {
	code := interceptExit(t)
	func() {
		defer Recover(nil)
	}()
	if *code != -1 {
		t.Fatalf("exit called without panic: %d", *code)
	}
}
