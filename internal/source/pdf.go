/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package source turns scanned PDF documents into page bitmaps.
//
// Scans carry one raster image per page. The provider extracts the embedded
// images instead of rendering page content, so the bitmaps keep the scanner's
// resolution.
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"math"
	"os"

	"github.com/h2non/filetype"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/image/tiff"

	applog "scanmark/internal/log"
)

// ErrNotPDF is returned for files that do not start with a PDF signature.
var ErrNotPDF = errors.New("not a PDF file")

// Provider loads the page bitmaps of one document.
type Provider interface {
	LoadDocument(ctx context.Context, path string) ([]image.Image, error)
}

// PDFProvider reads scans with pdfcpu.
type PDFProvider struct {
	// DPI sizes the blank bitmap of a page that has no usable image. 72 if zero.
	DPI float64
	// Conf is passed to pdfcpu; nil uses relaxed validation.
	Conf *model.Configuration
}

func (p PDFProvider) conf() *model.Configuration {
	if p.Conf != nil {
		return p.Conf
	}
	c := model.NewDefaultConfiguration()
	c.ValidationMode = model.ValidationRelaxed
	return c
}

// LoadDocument returns one bitmap per page in page order.
func (p PDFProvider) LoadDocument(ctx context.Context, path string) ([]image.Image, error) {
	l := applog.WithOperation(applog.WithComponent("source"), "load")
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	head := make([]byte, 261)
	n, _ := io.ReadFull(f, head)
	if !filetype.Is(head[:n], "pdf") {
		return nil, fmt.Errorf("%s: %w", path, ErrNotPDF)
	}

	conf := p.conf()
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	dims, err := api.PageDims(f, conf)
	if err != nil {
		return nil, fmt.Errorf("page dims %s: %w", path, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	raw, err := api.ExtractImagesRaw(f, nil, conf)
	if err != nil {
		return nil, fmt.Errorf("extract images %s: %w", path, err)
	}

	byPage := map[int][]model.Image{}
	for _, m := range raw {
		for _, img := range m {
			byPage[img.PageNr] = append(byPage[img.PageNr], img)
		}
	}

	dpi := p.DPI
	if dpi <= 0 {
		dpi = 72
	}
	pages := make([]image.Image, 0, len(dims))
	for i, d := range dims {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		nr := i + 1
		if img, ok := pickScan(byPage[nr]); ok {
			bmp, err := Decode(img)
			if err == nil {
				pages = append(pages, bmp)
				continue
			}
			l.Warn("page image not decodable, using blank page", slog.Int("page", nr), slog.String("type", img.FileType), slog.Any("err", err))
		}
		pages = append(pages, Blank(d.Width, d.Height, dpi))
	}
	l.Debug("document loaded", slog.String("path", path), slog.Int("pages", len(pages)))
	return pages, nil
}

// pickScan chooses the page image with the largest area, lowest object number on ties.
func pickScan(imgs []model.Image) (model.Image, bool) {
	var best model.Image
	found := false
	for _, img := range imgs {
		if img.Reader == nil || img.Thumb || img.IsImgMask {
			continue
		}
		a, b := img.Width*img.Height, best.Width*best.Height
		if !found || a > b || (a == b && img.ObjNr < best.ObjNr) {
			best, found = img, true
		}
	}
	return best, found
}

// Decode reads the bytes of an extracted image, sniffing the format.
func Decode(img model.Image) (image.Image, error) {
	data, err := io.ReadAll(img.Reader)
	if err != nil {
		return nil, err
	}
	return DecodeBytes(data)
}

// DecodeBytes decodes JPEG, PNG or TIFF data.
func DecodeBytes(data []byte) (image.Image, error) {
	kind, err := filetype.Match(data)
	if err != nil {
		return nil, err
	}
	r := bytes.NewReader(data)
	switch kind.Extension {
	case "jpg":
		return jpeg.Decode(r)
	case "png":
		return png.Decode(r)
	case "tif":
		return tiff.Decode(r)
	default:
		return nil, fmt.Errorf("unsupported image type %q", kind.Extension)
	}
}

// Blank returns a white bitmap for a page of w x h points at dpi.
func Blank(w, h, dpi float64) *image.RGBA {
	pw := max(1, int(math.Round(w*dpi/72)))
	ph := max(1, int(math.Round(h*dpi/72)))
	img := image.NewRGBA(image.Rect(0, 0, pw, ph))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return img
}
