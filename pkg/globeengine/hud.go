package globeengine

import (
	"bytes"
	"fmt"
	"image/color"
	"sort"
	"strings"

	"github.com/biter777/countries"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

type hudFonts struct {
	fontSource *text.GoTextFaceSource
	monoSource *text.GoTextFaceSource
}

func (h *hudFonts) initFonts() {
	s, _ := text.NewGoTextFaceSource(bytes.NewReader(goregular.TTF))
	m, _ := text.NewGoTextFaceSource(bytes.NewReader(gomono.TTF))
	h.fontSource = s
	h.monoSource = m
}

var (
	colorBoxFill   = color.RGBA{0, 0, 0, 100}
	colorBoxStroke = color.RGBA{36, 42, 53, 255}
	colorAccent    = color.RGBA{0, 191, 255, 255}
	colorFailure   = color.RGBA{255, 50, 50, 255}
)

// drawBox paints a HUD panel: dark fill, thin border, accent bar and a dimmed
// title.
func (e *Engine) drawBox(screen *ebiten.Image, x, y, w, h, fontSize float64, title string) {
	vector.DrawFilledRect(screen, float32(x-10), float32(y-fontSize-15), float32(w), float32(h), colorBoxFill, false)
	vector.StrokeRect(screen, float32(x-10), float32(y-fontSize-15), float32(w), float32(h), 1, colorBoxStroke, false)
	vector.DrawFilledRect(screen, float32(x-10), float32(y-fontSize-15), 4, float32(fontSize+10), colorAccent, false)

	titleFace := &text.GoTextFace{Source: e.fontSource, Size: fontSize * 0.8}
	op := &text.DrawOptions{}
	op.GeoM.Translate(x+5, y-fontSize-5)
	op.ColorScale.Scale(1, 1, 1, 0.5)
	text.Draw(screen, title, titleFace, op)
}

func (e *Engine) drawHUD(screen *ebiten.Image) {
	if e.fontSource == nil {
		return
	}
	margin, fontSize := 40.0, 16.0
	face := &text.GoTextFace{Source: e.fontSource, Size: fontSize}
	mono := &text.GoTextFace{Source: e.monoSource, Size: fontSize}

	line := func(s string, x, y, alpha float64, f *text.GoTextFace) {
		op := &text.DrawOptions{}
		op.GeoM.Translate(x, y)
		op.ColorScale.Scale(1, 1, 1, float32(alpha))
		text.Draw(screen, s, f, op)
	}

	// Stats panel
	x := margin
	y := margin + fontSize + 15
	boxW, rowH := 280.0, fontSize+8
	e.drawBox(screen, x, y, boxW, rowH*4+20, fontSize, "ACCESS LOG GLOBE")
	if e.dataset == nil {
		line("loading dataset...", x, y+5, 0.6, face)
	} else {
		line(fmt.Sprintf("hits      %d / %d", len(e.filtered), len(e.dataset.Hits)), x, y+5, 0.8, mono)
		line(fmt.Sprintf("addresses %d", len(e.summaries)), x, y+5+rowH, 0.8, mono)
		line(fmt.Sprintf("generated %s", trim(e.dataset.GeneratedAt, 19)), x, y+5+rowH*2, 0.6, mono)
	}
	if e.land == nil {
		line("loading base map...", x, y+5+rowH*3, 0.6, face)
	}

	// Top countries panel
	top := e.topCountries(5)
	if len(top) > 0 {
		cy := y + rowH*4 + 60
		e.drawBox(screen, x, cy, boxW, rowH*float64(len(top))+20, fontSize, "TOP COUNTRIES (hits)")
		for i, tc := range top {
			ty := cy + 5 + rowH*float64(i)
			line(countryDisplayName(tc.cc), x, ty, 0.8, face)
			countStr := fmt.Sprintf("%d", tc.count)
			tw, _ := text.Measure(countStr, face, 0)
			line(countStr, x+boxW-tw-25, ty, 0.6, face)
		}
	}

	// Filter and control lines along the bottom
	fy := float64(e.Height) - margin
	line(e.filterLine(), margin, fy-rowH, 0.7, mono)
	line(fmt.Sprintf("[%s]  1/2/3 projection  drag spin/pan  wheel zoom  / search  C country  X city  V device  arrows time  R reset",
		e.view.Kind), margin, fy, 0.4, face)
}

func (e *Engine) filterLine() string {
	var parts []string
	if e.searchMode {
		parts = append(parts, fmt.Sprintf("search: %s_", e.filter.Query))
	} else if e.filter.Query != "" {
		parts = append(parts, fmt.Sprintf("search: %s", e.filter.Query))
	}
	parts = append(parts, "country: "+orAll(e.filter.Country))
	parts = append(parts, "city: "+orAll(e.filter.City))
	parts = append(parts, "device: "+orAll(e.filter.Device))
	if e.filter.HasStart || e.filter.HasEnd {
		parts = append(parts, fmt.Sprintf("time: %s .. %s",
			e.filter.Start.Format("01-02 15:04"), e.filter.End.Format("01-02 15:04")))
	}
	return strings.Join(parts, "   ")
}

func orAll(s string) string {
	if s == "" {
		return "all"
	}
	return s
}

func trim(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}

type countryCount struct {
	cc    string
	count int
}

// topCountries sums summary counts per country code, descending.
func (e *Engine) topCountries(max int) []countryCount {
	totals := make(map[string]int)
	for i := range e.summaries {
		if cc := e.summaries[i].Country; cc != "" {
			totals[cc] += e.summaries[i].Count
		}
	}
	out := make([]countryCount, 0, len(totals))
	for cc, n := range totals {
		out = append(out, countryCount{cc, n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].cc < out[j].cc
	})
	if len(out) > max {
		out = out[:max]
	}
	return out
}

func countryDisplayName(cc string) string {
	name := countries.ByName(cc).String()
	if name == "Unknown" {
		name = cc
	}
	if idx := strings.Index(name, " ("); idx != -1 {
		name = name[:idx]
	}
	const maxLen = 18
	if len(name) > maxLen {
		name = name[:maxLen-3] + "..."
	}
	return name
}

// drawFailure renders the terminal resource-load failure state.
func (e *Engine) drawFailure(screen *ebiten.Image) {
	if e.fontSource == nil {
		return
	}
	face := &text.GoTextFace{Source: e.fontSource, Size: 28}
	msg := "FAILED TO LOAD"
	tw, th := text.Measure(msg, face, 0)
	op := &text.DrawOptions{}
	op.GeoM.Translate(float64(e.Width)/2-tw/2, float64(e.Height)/2-th/2)
	op.ColorScale.ScaleWithColor(colorFailure)
	text.Draw(screen, msg, face, op)

	detail := e.loadErr.Error()
	dFace := &text.GoTextFace{Source: e.monoSource, Size: 14}
	dw, _ := text.Measure(detail, dFace, 0)
	dop := &text.DrawOptions{}
	dop.GeoM.Translate(float64(e.Width)/2-dw/2, float64(e.Height)/2+th)
	dop.ColorScale.Scale(1, 1, 1, 0.5)
	text.Draw(screen, detail, dFace, dop)
}
