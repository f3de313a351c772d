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
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ulikunitz/xz"
)

const (
	BackupsDirName = "backups"
	backupExt      = ".xz"
	// KeepBackups is how many backups per file survive pruning.
	KeepBackups = 10
)

// WriteFile replaces path with data. An existing file is first kept as
// <dir>/backups/<name>.<stamp>.xz.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		if _, err := BackupFile(path); err != nil {
			return fmt.Errorf("backup %s: %w", filepath.Base(path), err)
		}
	}
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(path), os.Getpid(), rand.Int()))
	if err := writeFileSync(temp, data); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("write temp: %w", err)
	}
	if err := os.Rename(temp, path); err != nil {
		// Windows refuses to rename over an existing file
		_ = os.Remove(path)
		if err2 := os.Rename(temp, path); err2 != nil {
			_ = os.Remove(temp)
			return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
		}
	}
	return nil
}

// BackupFile compresses the current content of path into the backups folder
// next to it, prunes old backups and returns the backup path.
func BackupFile(path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = src.Close() }()

	bdir := filepath.Join(filepath.Dir(path), BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return "", err
	}
	stamp := time.Now().Format("20060102-150405.000000")
	bpath := filepath.Join(bdir, fmt.Sprintf("%s.%s%s", filepath.Base(path), stamp, backupExt))

	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(w, src); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	if err := writeFileSync(bpath, buf.Bytes()); err != nil {
		return "", err
	}
	pruneBackups(path, KeepBackups)
	return bpath, nil
}

// Backups lists the backups of path, oldest first.
func Backups(path string) ([]string, error) {
	bdir := filepath.Join(filepath.Dir(path), BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	prefix := filepath.Base(path) + "."
	var out []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, backupExt) {
			out = append(out, filepath.Join(bdir, name))
		}
	}
	sort.Strings(out) // the stamp sorts chronologically
	return out, nil
}

// ReadBackup returns the decompressed content of a backup file.
func ReadBackup(bpath string) ([]byte, error) {
	f, err := os.Open(bpath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	r, err := xz.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("open backup %s: %w", filepath.Base(bpath), err)
	}
	return io.ReadAll(r)
}

// RestoreLatest replaces path with its most recent backup.
func RestoreLatest(path string) (string, error) {
	list, err := Backups(path)
	if err != nil {
		return "", err
	}
	if len(list) == 0 {
		return "", errors.New("no backups found")
	}
	latest := list[len(list)-1]
	data, err := ReadBackup(latest)
	if err != nil {
		return "", err
	}
	return latest, WriteFile(path, data)
}

func pruneBackups(path string, keep int) {
	list, err := Backups(path)
	if err != nil || len(list) <= keep {
		return
	}
	for _, old := range list[:len(list)-keep] {
		_ = os.Remove(old)
	}
}

// writeFileSync writes data to a file and flushes it to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}
