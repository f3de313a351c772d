/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type memTokens map[string]string

func (m memTokens) Get(service, key string) (string, error) {
	v, ok := m[service+"/"+key]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}
func (m memTokens) Set(service, key, value string) error { m[service+"/"+key] = value; return nil }
func (m memTokens) Delete(service, key string) error     { delete(m, service+"/"+key); return nil }

// isolate points the config at a temp file and swaps the keyring for memory.
func isolate(t *testing.T) (string, memTokens) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv(EnvConfigPath, path)
	for _, name := range envFields {
		t.Setenv(name, "")
	}
	old := tokenStore
	mem := memTokens{}
	tokenStore = mem
	t.Cleanup(func() { tokenStore = old })
	return path, mem
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	isolate(t)
	cfg, tok, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if tok != "" {
		t.Fatalf("token = %q, want empty", tok)
	}
	def := Defaults()
	if cfg.Folders != def.Folders || cfg.Annotation != def.Annotation || cfg.Export != def.Export {
		t.Fatalf("Load() = %+v, want defaults %+v", cfg, def)
	}
}

func TestSaveLoadRoundTripWithToken(t *testing.T) {
	path, mem := isolate(t)
	cfg := Defaults()
	cfg.Folders.Raw = "/scans/inbox"
	cfg.Annotation.BackgroundColor = "#ffff00"
	cfg.Export.PageSize = "a4"
	if err := Save(cfg, "s3cret"); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file missing: %v", err)
	}
	if mem[keyringService+"/"+keyringToken] != "s3cret" {
		t.Fatalf("token not stored in keyring: %v", mem)
	}
	got, tok, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got.Folders.Raw != "/scans/inbox" || got.Annotation.BackgroundColor != "#ffff00" || got.Export.PageSize != "a4" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if tok != "s3cret" {
		t.Fatalf("token = %q, want s3cret", tok)
	}
	if err := ForgetToken(); err != nil {
		t.Fatalf("ForgetToken() error: %v", err)
	}
	if _, tok, _ = Load(); tok != "" {
		t.Fatalf("token after forget = %q", tok)
	}
}

func TestLoadRejectsBrokenYAML(t *testing.T) {
	path, _ := isolate(t)
	if err := os.WriteFile(path, []byte("folders: [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := Load(); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestMergeKeepsDefaultsForZeroValues(t *testing.T) {
	dst := Defaults()
	src := AppConfig{Annotation: AnnotationConfig{FontSize: 1, TextColor: "  "}, Files: FilesConfig{Journal: "j.json"}}
	mergeInto(&dst, &src)
	if dst.Annotation.FontSize != 12 {
		t.Fatalf("FontSize = %d, want 12", dst.Annotation.FontSize)
	}
	if dst.Annotation.TextColor != "#000000" {
		t.Fatalf("TextColor = %q, want default", dst.Annotation.TextColor)
	}
	if dst.Files.Journal != "j.json" || dst.Files.Records != "local_records.csv" {
		t.Fatalf("files merged incorrectly: %+v", dst.Files)
	}
}

func TestMergeIncludesLogging(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.Logging = LoggingConfig{Level: " DEBUG ", Format: "json", Source: true, File: "/tmp/smk.log"}
	mergeInto(&dst, &src)
	if dst.Logging.Level != "debug" || dst.Logging.Format != "json" || !dst.Logging.Source || dst.Logging.File != "/tmp/smk.log" {
		t.Fatalf("logging fields not merged correctly: %#v", dst.Logging)
	}
}

func TestEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv(EnvRawDir, "/in")
	t.Setenv(EnvTextColor, "#ff0000")
	t.Setenv(EnvTelemetryOptIn, "yes")
	t.Setenv(EnvLogSource, "1")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Folders.Raw != "/in" || cfg.Annotation.TextColor != "#ff0000" {
		t.Fatalf("string overrides not applied: %+v", cfg)
	}
	if !cfg.General.TelemetryOptIn || !cfg.Logging.Source {
		t.Fatalf("bool overrides not applied: %+v", cfg)
	}
	if name, ok := EnvOverrideFor("folders.raw"); !ok || name != EnvRawDir {
		t.Fatalf("EnvOverrideFor(folders.raw) = %q, %v", name, ok)
	}
	if _, ok := EnvOverrideFor("folders.edited"); ok {
		t.Fatalf("folders.edited reported as overridden")
	}
	if _, ok := EnvOverrideFor("no.such.key"); ok {
		t.Fatalf("unknown key reported as overridden")
	}
}

func TestResolveFileAndPageSize(t *testing.T) {
	cfg := Defaults()
	if got, want := cfg.ResolveFile("records.json"), filepath.Join("output", "records.json"); got != want {
		t.Fatalf("ResolveFile = %q, want %q", got, want)
	}
	abs := filepath.Join(t.TempDir(), "x.csv")
	if got := cfg.ResolveFile(abs); got != abs {
		t.Fatalf("ResolveFile(abs) = %q", got)
	}
	if w, h := cfg.Export.PageSizePt(); w != 612 || h != 792 {
		t.Fatalf("letter = %vx%v", w, h)
	}
	cfg.Export.PageSize = "A4"
	if w, _ := cfg.Export.PageSizePt(); w != 595.28 {
		t.Fatalf("a4 width = %v", w)
	}
}
