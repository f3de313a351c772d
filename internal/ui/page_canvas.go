//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"image"
	"image/color"
	"slices"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"scanmark/internal/annotate"
	"scanmark/internal/domain"
	"scanmark/internal/session"
)

// wheelUnit is how many Fyne scroll pixels make one session scroll step.
const wheelUnit = 10

type canvasItem struct {
	h   annotate.Handle
	obj fyne.CanvasObject
	box domain.Rect
}

// PageCanvas shows the current page and its annotations. It implements
// session.Display and forwards pointer input to the bound session.
type PageCanvas struct {
	widget.BaseWidget

	sess     *session.Session
	backdrop *canvas.Image
	pageSize fyne.Size
	items    []canvasItem
	next     annotate.Handle

	// OnChange runs after input changed the session (selection, page, colors).
	OnChange func()
}

func NewPageCanvas() *PageCanvas {
	pc := &PageCanvas{backdrop: canvas.NewImageFromImage(nil)}
	pc.backdrop.FillMode = canvas.ImageFillStretch
	pc.backdrop.ScaleMode = canvas.ImageScaleSmooth
	pc.ExtendBaseWidget(pc)
	return pc
}

// SetSession binds s, or unbinds when s is nil.
func (p *PageCanvas) SetSession(s *session.Session) {
	p.sess = s
	if s == nil {
		p.items = nil
		p.backdrop.Image = nil
		p.pageSize = fyne.Size{}
	} else if sz := p.Size(); sz.Width > 0 {
		s.Resize(float64(sz.Width), float64(sz.Height))
	}
	p.Refresh()
}

// Session returns the bound session, or nil.
func (p *PageCanvas) Session() *session.Session { return p.sess }

// Width is the display width used for coordinate mapping.
func (p *PageCanvas) Width() float64 {
	if w := p.Size().Width; w > 0 {
		return float64(w)
	}
	return float64(p.MinSize().Width)
}

// ShowPage replaces the backdrop. Fyne scales it to the widget width.
func (p *PageCanvas) ShowPage(page image.Image) {
	p.backdrop.Image = page
	b := page.Bounds()
	w := float32(p.Width())
	if b.Dx() > 0 {
		p.pageSize = fyne.NewSize(w, w*float32(b.Dy())/float32(b.Dx()))
	}
	p.backdrop.Refresh()
	p.Refresh()
}

func (p *PageCanvas) add(obj fyne.CanvasObject, box domain.Rect) annotate.Handle {
	p.next++
	p.items = append(p.items, canvasItem{h: p.next, obj: obj, box: box})
	p.Refresh()
	return p.next
}

func (p *PageCanvas) DrawText(text string, pos domain.Point, size int, c domain.Color) annotate.Handle {
	t := canvas.NewText(text, c)
	t.TextSize = float32(size)
	t.TextStyle = fyne.TextStyle{Bold: true}
	sz := fyne.MeasureText(text, t.TextSize, t.TextStyle)
	t.Resize(sz)
	return p.add(t, domain.Rect{Min: pos, Max: pos.Add(domain.Pt(float64(sz.Width), float64(sz.Height)))})
}

func (p *PageCanvas) DrawRect(box domain.Rect, fill domain.Color) annotate.Handle {
	r := canvas.NewRectangle(fill)
	r.Resize(fyne.NewSize(float32(box.Width()), float32(box.Height())))
	return p.add(r, box)
}

func (p *PageCanvas) BoundingBox(h annotate.Handle) (domain.Rect, bool) {
	if i := p.find(h); i >= 0 {
		return p.items[i].box, true
	}
	return domain.Rect{}, false
}

func (p *PageCanvas) StackBelow(h, ref annotate.Handle) {
	i := p.find(h)
	if i < 0 || p.find(ref) < 0 {
		return
	}
	it := p.items[i]
	p.items = slices.Delete(p.items, i, i+1)
	p.items = slices.Insert(p.items, p.find(ref), it)
	p.Refresh()
}

func (p *PageCanvas) Delete(h annotate.Handle) {
	if i := p.find(h); i >= 0 {
		p.items = slices.Delete(p.items, i, i+1)
		p.Refresh()
	}
}

func (p *PageCanvas) find(h annotate.Handle) int {
	return slices.IndexFunc(p.items, func(it canvasItem) bool { return it.h == h })
}

func (p *PageCanvas) pointer(pos fyne.Position) domain.Point {
	return domain.Pt(float64(pos.X), float64(pos.Y))
}

func (p *PageCanvas) changed() {
	p.Refresh()
	if p.OnChange != nil {
		p.OnChange()
	}
}

// Tapped places text or picks a color, depending on the session mode.
func (p *PageCanvas) Tapped(e *fyne.PointEvent) {
	if p.sess == nil {
		return
	}
	p.sess.Click(p.pointer(e.Position))
	p.changed()
}

// TappedSecondary selects the nearest annotation.
func (p *PageCanvas) TappedSecondary(e *fyne.PointEvent) {
	if p.sess == nil {
		return
	}
	p.sess.RightClick(p.pointer(e.Position))
	p.changed()
}

// Dragged moves the selection with the pointer.
func (p *PageCanvas) Dragged(e *fyne.DragEvent) {
	if p.sess == nil {
		return
	}
	p.sess.Drag(p.pointer(e.Position))
	p.Refresh()
}

func (p *PageCanvas) DragEnd() { p.changed() }

// Scrolled scrolls the page vertically. Fyne reports wheel-up as positive DY.
func (p *PageCanvas) Scrolled(e *fyne.ScrollEvent) {
	if p.sess == nil {
		return
	}
	p.sess.Scroll(-float64(e.Scrolled.DY) / wheelUnit)
	p.Refresh()
}

// Resize lays the widget out and remaps the session to the new width.
func (p *PageCanvas) Resize(size fyne.Size) {
	old := p.Size()
	p.BaseWidget.Resize(size)
	if p.sess != nil && size != old {
		p.sess.Resize(float64(size.Width), float64(size.Height))
	}
}

func (p *PageCanvas) MinSize() fyne.Size { return fyne.NewSize(640, 480) }

func (p *PageCanvas) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(color.RGBA{R: 30, G: 30, B: 34, A: 255})
	return &pageCanvasRenderer{pc: p, bg: bg}
}

// pageCanvasRenderer places the backdrop and annotation objects shifted by the
// session scroll offset.
type pageCanvasRenderer struct {
	pc *PageCanvas
	bg *canvas.Rectangle
}

func (r *pageCanvasRenderer) Destroy()           {}
func (r *pageCanvasRenderer) MinSize() fyne.Size { return r.pc.MinSize() }
func (r *pageCanvasRenderer) Refresh()           { r.Layout(r.pc.Size()); canvas.Refresh(r.pc) }

func (r *pageCanvasRenderer) Objects() []fyne.CanvasObject {
	objs := make([]fyne.CanvasObject, 0, len(r.pc.items)+2)
	objs = append(objs, r.bg, r.pc.backdrop)
	for _, it := range r.pc.items {
		objs = append(objs, it.obj)
	}
	return objs
}

func (r *pageCanvasRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))

	var dy float32
	if r.pc.sess != nil {
		dy = float32(r.pc.sess.ScrollOffset())
	}
	r.pc.backdrop.Resize(r.pc.pageSize)
	r.pc.backdrop.Move(fyne.NewPos(0, -dy))
	for _, it := range r.pc.items {
		it.obj.Move(fyne.NewPos(float32(it.box.Min.X), float32(it.box.Min.Y)-dy))
	}
}
