/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"scanmark/internal/app"
	"scanmark/internal/config"
	"scanmark/internal/crash"
	"scanmark/internal/export"
	applog "scanmark/internal/log"
	"scanmark/internal/queue"
	"scanmark/internal/script"
	"scanmark/internal/storage"
	"scanmark/internal/surface"
	"scanmark/internal/telemetry"
	"scanmark/internal/tracker"
	"scanmark/internal/ui"
	"scanmark/internal/version"
)

// defaultWidth is the display width used when a script sets none.
const defaultWidth = 800

func usage() {
	fmt.Println("ScanMark - annotate scanned PDF documents")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  scanmark version|-v|--version                   Show version")
	fmt.Println("  scanmark config                                 Print the effective configuration")
	fmt.Println("  scanmark queue                                  List documents in the raw folder with their status")
	fmt.Println("  scanmark apply <pdf> <script> [--finish]        Run an edit script and export the result")
	fmt.Println("  scanmark preview <pdf> <page> <width> <out.png> Render one page as the editor shows it")
	fmt.Println("  scanmark report                                 Write the change journal as an XLSX workbook")
	fmt.Println("  scanmark history <doc>                          List the saves recorded for a document")
	fmt.Println("  scanmark ui                                     Launch desktop UI (build with -tags fyne)")
}

// runnerRef lets the deferred crash handler see a runner created later.
type runnerRef struct{ r *app.Runner }

func (h *runnerRef) CrashDir() string          { return h.r.CrashDir() }
func (h *runnerRef) Document() string          { return h.r.Document() }
func (h *runnerRef) Autosave() (string, error) { return h.r.Autosave() }

func main() {
	cfg, token, cfgErr := config.Load()
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	l := applog.WithComponent("cli")
	if cfgErr != nil {
		l.Warn("config not loaded, using defaults", slog.Any("err", cfgErr))
	}
	tc := telemetry.Install(telemetry.FromConfig(cfg.General, token))
	defer flushTelemetry(tc)

	ref := &runnerRef{}
	defer crash.Recover(ref)

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) < 2 {
		usage()
		return
	}
	ctx := context.Background()
	var err error
	switch args[1] {
	case "version", "--version", "-v":
		fmt.Println("ScanMark")
		fmt.Println(version.String())
		return
	case "config":
		err = printConfig(cfg)
	case "queue":
		err = listQueue(cfg)
	case "apply":
		if len(args) < 4 {
			fmt.Println("apply requires <pdf> and <script>")
			usage()
			os.Exit(2)
		}
		finish := len(args) > 4 && args[4] == "--finish"
		err = applyScript(ctx, cfg, ref, args[2], args[3], finish)
	case "preview":
		if len(args) < 6 {
			fmt.Println("preview requires <pdf> <page> <width> <out.png>")
			usage()
			os.Exit(2)
		}
		err = preview(ctx, cfg, args[2], args[3], args[4], args[5])
	case "report":
		err = writeReport(ctx, cfg, ref)
	case "history":
		if len(args) < 3 {
			fmt.Println("history requires <doc>")
			usage()
			os.Exit(2)
		}
		err = listHistory(ctx, cfg, args[2])
	case "ui":
		err = ui.Run(cfg)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		l.Error("command failed", slog.String("cmd", args[1]), slog.Any("err", err))
		fmt.Println("Error:", err)
		flushTelemetry(tc)
		os.Exit(1)
	}
}

func flushTelemetry(tc *telemetry.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	tc.Flush(ctx)
	tc.Close()
}

func printConfig(cfg config.AppConfig) error {
	path, err := config.ConfigPath()
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	fmt.Printf("# %s\n%s", path, data)
	return nil
}

func listQueue(cfg config.AppConfig) error {
	docs, err := queue.Discover(cfg.Folders.Raw, cfg.Documents.Pattern)
	if err != nil {
		return err
	}
	tr := tracker.New(storage.CSVRecords{Path: cfg.ResolveFile(cfg.Files.Records)})
	resume, err := tr.Resume(docs)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tDOCUMENT\tSTATUS\t")
	for i, d := range docs {
		st, ok, err := tr.Status(queue.ID(d))
		if err != nil {
			return err
		}
		label := "-"
		if ok {
			label = string(st)
		}
		marker := ""
		if i == resume {
			marker = "<- next"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i+1, queue.ID(d), label, marker)
	}
	return tw.Flush()
}

func applyScript(ctx context.Context, cfg config.AppConfig, ref *runnerRef, pdf, scriptPath string, finish bool) error {
	src, err := os.ReadFile(scriptPath)
	if err != nil {
		return err
	}
	sc, errs := script.Parse(string(src))
	if len(errs) > 0 {
		for _, e := range errs {
			fmt.Printf("%s:%s\n", scriptPath, e.Error())
		}
		return fmt.Errorf("%d error(s) in %s", len(errs), scriptPath)
	}

	r, err := app.New(cfg, app.Options{Display: surface.NewRaster(defaultWidth, nil)})
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()
	ref.r = r
	if _, err := r.Open(ctx, pdf); err != nil {
		return err
	}
	if err := script.Apply(r, sc); err != nil {
		return err
	}
	var out string
	if finish {
		out, _, err = r.Finish(ctx)
		if errors.Is(err, app.ErrNoMoreDocuments) {
			err = nil
		}
	} else {
		out, err = r.Save(ctx)
	}
	if err != nil {
		return err
	}
	fmt.Println("Wrote", out)
	return nil
}

func preview(ctx context.Context, cfg config.AppConfig, pdf, pageArg, widthArg, out string) error {
	page, err := strconv.Atoi(pageArg)
	if err != nil {
		return fmt.Errorf("page %q: %w", pageArg, err)
	}
	width, err := strconv.Atoi(widthArg)
	if err != nil || width <= 0 {
		return fmt.Errorf("width %q must be a positive integer", widthArg)
	}
	raster := surface.NewRaster(width, nil)
	r, err := app.New(cfg, app.Options{Display: raster, NoHistory: true})
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()
	s, err := r.Open(ctx, pdf)
	if err != nil {
		return err
	}
	if page < 1 || page > s.PageCount() {
		return fmt.Errorf("page %d of %d", page, s.PageCount())
	}
	s.GoTo(page - 1)
	if err := export.WritePNG(out, raster.Render()); err != nil {
		return err
	}
	fmt.Println("Wrote", out)
	return nil
}

func writeReport(ctx context.Context, cfg config.AppConfig, ref *runnerRef) error {
	r, err := app.New(cfg, app.Options{})
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()
	ref.r = r
	out, err := r.WriteReport(ctx)
	if err != nil {
		return err
	}
	fmt.Println("Wrote", out)
	return nil
}

func listHistory(ctx context.Context, cfg config.AppConfig, doc string) error {
	h, err := storage.OpenHistory(cfg.ResolveFile(cfg.Files.History))
	if err != nil {
		return err
	}
	defer h.Close()
	saves, err := h.Saves(ctx, queue.ID(doc), 0)
	if err != nil {
		return err
	}
	if len(saves) == 0 {
		fmt.Println("No saves recorded for", queue.ID(doc))
		return nil
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tSTATUS\tPAGES\tOUTPUT\t")
	for _, s := range saves {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t\n", s.TS.Local().Format(time.DateTime), s.Status, s.Pages, s.Output)
	}
	return tw.Flush()
}
