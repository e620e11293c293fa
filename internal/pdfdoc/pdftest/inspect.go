package pdftest

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var confOnce sync.Once

func conf() *model.Configuration {
	confOnce.Do(api.DisableConfigDir)
	c := model.NewDefaultConfiguration()
	c.ValidationMode = model.ValidationRelaxed
	return c
}

// PageContent returns the decoded content streams of a 1-based page,
// concatenated in drawing order.
func PageContent(data []byte, page int) (string, error) {
	ctx, err := api.ReadContext(bytes.NewReader(data), conf())
	if err != nil {
		return "", err
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return "", err
	}
	d, _, _, err := ctx.PageDict(page, false)
	if err != nil {
		return "", err
	}
	b, err := ctx.PageContent(d, page)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Run is text the way a viewer lays it out: the baseline origin of its
// first glyph, the font size and the decoded string.
type Run struct {
	X, Y float64
	Size float64
	Text string
}

// Runs lists the text of a 1-based page in drawing order. Consecutive
// glyphs on the same baseline with the same size form one run.
func Runs(data []byte, page int) (runs []Run, err error) {
	defer func() {
		if r := recover(); r != nil {
			runs, err = nil, fmt.Errorf("read page %d: %v", page, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	p := r.Page(page)
	if p.V.IsNull() {
		return nil, fmt.Errorf("no page %d", page)
	}
	for _, t := range p.Content().Text {
		if n := len(runs); n > 0 && runs[n-1].Y == t.Y && runs[n-1].Size == t.FontSize {
			runs[n-1].Text += t.S
			continue
		}
		runs = append(runs, Run{X: t.X, Y: t.Y, Size: t.FontSize, Text: t.S})
	}
	return runs, nil
}
