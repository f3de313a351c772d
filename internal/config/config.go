/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package config loads the per-user scanmark configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// FoldersConfig names the three working folders: scans to process, edited PDFs, bookkeeping.
type FoldersConfig struct {
	Raw    string `yaml:"raw"`
	Edited string `yaml:"edited"`
	Output string `yaml:"output"`
}

// FilesConfig holds bookkeeping file names. Relative names resolve against Folders.Output.
type FilesConfig struct {
	Records string `yaml:"records"`
	Journal string `yaml:"journal"`
	History string `yaml:"history"`
	Report  string `yaml:"report"`
}

type DocumentsConfig struct {
	Pattern string `yaml:"pattern"`
}

type AnnotationConfig struct {
	TextColor       string `yaml:"text_color"`
	BackgroundColor string `yaml:"background_color"`
	FontSize        int    `yaml:"font_size"`
	FontPath        string `yaml:"font_path"` // empty uses the bundled bold face
}

type ExportConfig struct {
	PageSize   string  `yaml:"page_size"` // "letter" | "a4"
	Padding    int     `yaml:"padding"`
	FontBump   int     `yaml:"font_bump"`
	DPI        float64 `yaml:"dpi"` // resolution for pages that carry no scan image
	SkipVerify bool    `yaml:"skip_verify"`
}

type GeneralConfig struct {
	TelemetryOptIn bool   `yaml:"telemetry_opt_in"`
	TelemetryURL   string `yaml:"telemetry_url"`
	// The telemetry token is not stored on disk; it lives in the OS keychain.
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// AppConfig is the user-editable configuration persisted as YAML in the user scope.
// Environment variables override it at runtime and are never written back.
type AppConfig struct {
	ConfigVersion int              `yaml:"config_version"`
	Folders       FoldersConfig    `yaml:"folders"`
	Files         FilesConfig      `yaml:"files"`
	Documents     DocumentsConfig  `yaml:"documents"`
	Annotation    AnnotationConfig `yaml:"annotation"`
	Export        ExportConfig     `yaml:"export"`
	General       GeneralConfig    `yaml:"general"`
	Logging       LoggingConfig    `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Folders:       FoldersConfig{Raw: "raw", Edited: "edited", Output: "output"},
		Files: FilesConfig{
			Records: "local_records.csv",
			Journal: "records.json",
			History: "history.sqlite",
			Report:  "document_changes.xlsx",
		},
		Documents:  DocumentsConfig{Pattern: "*.pdf"},
		Annotation: AnnotationConfig{TextColor: "#000000", BackgroundColor: "#ffffff", FontSize: 12},
		Export:     ExportConfig{PageSize: "letter", Padding: 1, FontBump: 2, DPI: 72},
		Logging:    LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvConfigPath      = "SMK_CONFIG"
	EnvRawDir          = "SMK_RAW_DIR"
	EnvEditedDir       = "SMK_EDITED_DIR"
	EnvOutputDir       = "SMK_OUTPUT_DIR"
	EnvTextColor       = "SMK_TEXT_COLOR"
	EnvBackgroundColor = "SMK_BACKGROUND_COLOR"
	EnvFontPath        = "SMK_FONT_PATH"
	EnvTelemetryOptIn  = "SMK_TELEMETRY_OPT_IN"
	EnvTelemetryURL    = "SMK_TELEMETRY_URL"
	EnvLogLevel        = "SMK_LOG_LEVEL"
	EnvLogFormat       = "SMK_LOG_FORMAT"
	EnvLogSource       = "SMK_LOG_SOURCE"
	EnvLogFile         = "SMK_LOG_FILE"
)

// envFields maps dotted yaml keys to the variable overriding them.
var envFields = map[string]string{
	"folders.raw":                 EnvRawDir,
	"folders.edited":              EnvEditedDir,
	"folders.output":              EnvOutputDir,
	"annotation.text_color":       EnvTextColor,
	"annotation.background_color": EnvBackgroundColor,
	"annotation.font_path":        EnvFontPath,
	"general.telemetry_opt_in":    EnvTelemetryOptIn,
	"general.telemetry_url":       EnvTelemetryURL,
	"logging.level":               EnvLogLevel,
	"logging.format":              EnvLogFormat,
	"logging.source":              EnvLogSource,
	"logging.file":                EnvLogFile,
}

// OS keyring entry holding the telemetry token.
const (
	keyringService = "ScanMark"
	keyringToken   = "telemetry_token"
)

// tokenStore abstracts the keyring so tests can stub it.
var tokenStore TokenStore = osKeyring{}

type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// osKeyring delegates to the functions installed by keyring_real.go.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyringGet(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyringSet(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyringDelete(service, key) }

// ConfigPath returns the per-user config file path, or $SMK_CONFIG when set.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "ScanMark")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "ScanMark")
	default:
		home := os.Getenv("HOME")
		if home == "" {
			return "", errors.New("cannot resolve config directory")
		}
		base = filepath.Join(home, ".config", "scanmark")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults and merges environment overrides.
// The telemetry token comes from the keyring and is returned separately.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, "", fmt.Errorf("parse %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	case !errors.Is(err, os.ErrNotExist):
		return cfg, "", fmt.Errorf("read %s: %w", path, err)
	}
	applyEnvOverrides(&cfg)
	tok, _ := tokenStore.Get(keyringService, keyringToken)
	return cfg, tok, nil
}

// Save writes the user config YAML and stores a non-empty token in the OS keyring.
func Save(cfg AppConfig, token string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if token != "" {
		return tokenStore.Set(keyringService, keyringToken, token)
	}
	return nil
}

// ForgetToken removes the telemetry token from the keyring.
func ForgetToken() error { return tokenStore.Delete(keyringService, keyringToken) }

func mergeInto(dst, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	setStr(&dst.Folders.Raw, src.Folders.Raw)
	setStr(&dst.Folders.Edited, src.Folders.Edited)
	setStr(&dst.Folders.Output, src.Folders.Output)
	setStr(&dst.Files.Records, src.Files.Records)
	setStr(&dst.Files.Journal, src.Files.Journal)
	setStr(&dst.Files.History, src.Files.History)
	setStr(&dst.Files.Report, src.Files.Report)
	setStr(&dst.Documents.Pattern, src.Documents.Pattern)
	setStr(&dst.Annotation.TextColor, src.Annotation.TextColor)
	setStr(&dst.Annotation.BackgroundColor, src.Annotation.BackgroundColor)
	setStr(&dst.Annotation.FontPath, src.Annotation.FontPath)
	if src.Annotation.FontSize >= 2 {
		dst.Annotation.FontSize = src.Annotation.FontSize
	}
	if s := strings.ToLower(strings.TrimSpace(src.Export.PageSize)); s != "" {
		dst.Export.PageSize = s
	}
	if src.Export.Padding > 0 {
		dst.Export.Padding = src.Export.Padding
	}
	if src.Export.FontBump > 0 {
		dst.Export.FontBump = src.Export.FontBump
	}
	if src.Export.DPI > 0 {
		dst.Export.DPI = src.Export.DPI
	}
	// booleans: the file value wins so user preferences persist
	dst.Export.SkipVerify = src.Export.SkipVerify
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	setStr(&dst.General.TelemetryURL, src.General.TelemetryURL)
	if s := strings.ToLower(strings.TrimSpace(src.Logging.Level)); s != "" {
		dst.Logging.Level = s
	}
	if s := strings.ToLower(strings.TrimSpace(src.Logging.Format)); s != "" {
		dst.Logging.Format = s
	}
	dst.Logging.Source = src.Logging.Source
	setStr(&dst.Logging.File, src.Logging.File)
}

func setStr(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	env := func(name string) string { return strings.TrimSpace(os.Getenv(name)) }
	setStr(&cfg.Folders.Raw, env(EnvRawDir))
	setStr(&cfg.Folders.Edited, env(EnvEditedDir))
	setStr(&cfg.Folders.Output, env(EnvOutputDir))
	setStr(&cfg.Annotation.TextColor, env(EnvTextColor))
	setStr(&cfg.Annotation.BackgroundColor, env(EnvBackgroundColor))
	setStr(&cfg.Annotation.FontPath, env(EnvFontPath))
	if v := env(EnvTelemetryOptIn); v != "" {
		cfg.General.TelemetryOptIn = parseBool(v)
	}
	setStr(&cfg.General.TelemetryURL, env(EnvTelemetryURL))
	if v := env(EnvLogLevel); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := env(EnvLogFormat); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := env(EnvLogSource); v != "" {
		cfg.Logging.Source = parseBool(v)
	}
	setStr(&cfg.Logging.File, env(EnvLogFile))
}

func parseBool(v string) bool {
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	lv := strings.ToLower(v)
	return lv == "on" || lv == "yes"
}

// EnvOverrideFor returns the env var name if the dotted key is currently overridden.
func EnvOverrideFor(key string) (string, bool) {
	name, ok := envFields[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}

// ResolveFile joins a bookkeeping file name onto the output folder unless it is absolute.
func (c AppConfig) ResolveFile(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Folders.Output, name)
}

// PageSizePt returns the output page size in points.
func (e ExportConfig) PageSizePt() (w, h float64) {
	if strings.EqualFold(e.PageSize, "a4") {
		return 595.28, 841.89
	}
	return 612, 792
}
