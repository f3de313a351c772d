/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// PDFOptions controls PDF output. Units are points.
type PDFOptions struct {
	PageW, PageH float64 // US Letter if zero
	Title        string
	Author       string
	// Created pins the creation date; the current time is used when zero.
	Created time.Time
}

// Placement returns where an iw x ih bitmap lands on a pw x ph page: centered,
// uniformly scaled to fit.
func Placement(iw, ih, pw, ph float64) (x, y, w, h float64) {
	s := min(pw/iw, ph/ih)
	w, h = iw*s, ih*s
	return (pw - w) / 2, (ph - h) / 2, w, h
}

// WritePDF writes one page per bitmap to outPath.
func WritePDF(outPath string, pages []*image.RGBA, opt PDFOptions) error {
	if len(pages) == 0 {
		return fmt.Errorf("write pdf: no pages")
	}
	pw, ph := opt.PageW, opt.PageH
	if pw <= 0 || ph <= 0 {
		pw, ph = 612, 792
	}
	pdf := gofpdf.NewCustom(&gofpdf.InitType{UnitStr: "pt", Size: gofpdf.SizeType{Wd: pw, Ht: ph}})
	pdf.SetAutoPageBreak(false, 0)
	if opt.Title != "" {
		pdf.SetTitle(opt.Title, true)
	}
	pdf.SetAuthor(opt.Author, true)
	pdf.SetCreator("scanmark", false)
	if !opt.Created.IsZero() {
		pdf.SetCreationDate(opt.Created)
	}

	imgOpt := gofpdf.ImageOptions{ImageType: "PNG"}
	for i, img := range pages {
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return fmt.Errorf("encode page %d: %w", i+1, err)
		}
		name := fmt.Sprintf("page-%d", i+1)
		pdf.RegisterImageOptionsReader(name, imgOpt, &buf)
		pdf.AddPageFormat("P", gofpdf.SizeType{Wd: pw, Ht: ph})
		b := img.Bounds()
		x, y, w, h := Placement(float64(b.Dx()), float64(b.Dy()), pw, ph)
		pdf.ImageOptions(name, x, y, w, h, false, imgOpt, 0, "")
		if err := pdf.Error(); err != nil {
			return fmt.Errorf("page %d: %w", i+1, err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	tmp := outPath + ".tmp"
	if err := pdf.OutputFileAndClose(tmp); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write pdf: %w", err)
	}
	if err := os.Rename(tmp, outPath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// VerifyPDF re-reads path and checks it has want pages.
func VerifyPDF(path string, want int) error {
	n, err := api.PageCountFile(path)
	if err != nil {
		return fmt.Errorf("verify %s: %w", filepath.Base(path), err)
	}
	if n != want {
		return fmt.Errorf("verify %s: %d pages, want %d", filepath.Base(path), n, want)
	}
	return nil
}

// EditedName maps a source document to its output name: scan.pdf -> scan_edited.pdf.
func EditedName(src string) string {
	base := filepath.Base(src)
	return base[:len(base)-len(filepath.Ext(base))] + "_edited.pdf"
}
