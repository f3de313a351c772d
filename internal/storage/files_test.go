/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteFileCreatesDirsAndBacksUp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "records.json")
	if err := WriteFile(path, []byte("first")); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if list, _ := Backups(path); len(list) != 0 {
		t.Fatalf("no backup expected for a new file, got %v", list)
	}
	if err := WriteFile(path, []byte("second")); err != nil {
		t.Fatalf("second write: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil || string(b) != "second" {
		t.Fatalf("content = %q, %v", b, err)
	}
	list, err := Backups(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || !strings.HasSuffix(list[0], backupExt) {
		t.Fatalf("expected one xz backup, got %v", list)
	}
	old, err := ReadBackup(list[0])
	if err != nil {
		t.Fatal(err)
	}
	if string(old) != "first" {
		t.Fatalf("backup content = %q", old)
	}
}

func TestWriteFileLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.csv")
	for i := 0; i < 3; i++ {
		if err := WriteFile(path, []byte{byte('a' + i)}); err != nil {
			t.Fatal(err)
		}
	}
	ents, _ := os.ReadDir(dir)
	for _, e := range ents {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}

func TestBackupsArePruned(t *testing.T) {
	path := filepath.Join(t.TempDir(), "j.json")
	if err := os.WriteFile(path, []byte("v"), 0o644); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < KeepBackups+3; i++ {
		if _, err := BackupFile(path); err != nil {
			t.Fatal(err)
		}
	}
	list, _ := Backups(path)
	if len(list) > KeepBackups {
		t.Fatalf("kept %d backups, want at most %d", len(list), KeepBackups)
	}
}

func TestRestoreLatest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "j.json")
	_ = WriteFile(path, []byte("good"))
	_ = WriteFile(path, []byte("broken"))
	if _, err := RestoreLatest(path); err != nil {
		t.Fatalf("RestoreLatest: %v", err)
	}
	b, _ := os.ReadFile(path)
	if string(b) != "good" {
		t.Fatalf("restored %q, want good", b)
	}
}

func TestRestoreLatestWithoutBackups(t *testing.T) {
	if _, err := RestoreLatest(filepath.Join(t.TempDir(), "none.json")); err == nil {
		t.Fatal("expected error")
	}
}
