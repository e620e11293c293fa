package pdfdoc

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/font"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/color"
	pdffont "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/font"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/and161185/signator/internal/errs"
)

// Default text style.
const (
	DefaultFont     = "Helvetica"
	DefaultFontSize = 12
	DefaultColor    = "#000000"
)

// font resource names are allocated from this prefix
const fontResPrefix = "SgF"

// Mark is one piece of text drawn on a page. X/Y is the left end of the
// text baseline in PDF points.
type Mark struct {
	Page     int // 1-based
	Text     string
	X, Y     float64
	Font     string // one of the 14 standard PDF fonts
	FontSize int
	Color    string // #RRGGBB
}

type style struct {
	font  string
	size  int
	color color.SimpleColor
}

func (m Mark) style() (style, error) {
	st := style{font: m.Font, size: m.FontSize}
	if st.font == "" {
		st.font = DefaultFont
	}
	if !font.IsCoreFont(st.font) {
		return style{}, errs.Invalid("font %q is not a standard pdf font", st.font)
	}
	if st.size <= 0 {
		st.size = DefaultFontSize
	}
	hex := m.Color
	if hex == "" {
		hex = DefaultColor
	}
	c, err := color.NewSimpleColorForHexCode(hex)
	if err != nil {
		return style{}, errs.Invalid("color %q: want #RRGGBB", hex)
	}
	st.color = c
	return st, nil
}

// Stamper draws marks onto a PDF and returns the new document.
type Stamper struct{}

// Stamp writes every mark into the content stream of its page, so the text
// is part of the page and not an optional layer. Text is shown verbatim.
// src is not modified.
func (Stamper) Stamp(src []byte, marks []Mark) ([]byte, error) {
	if len(marks) == 0 {
		return append([]byte(nil), src...), nil
	}
	conf := newConf()
	// checked against the document permissions like pdfcpu's own stamping
	conf.Cmd = model.ADDWATERMARKS
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(src), conf)
	if err != nil {
		return nil, errs.Invalid("not a readable pdf: %v", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, errs.Invalid("page count: %v", err)
	}

	byPage := make(map[int][]Mark)
	for _, m := range marks {
		if m.Page < 1 || m.Page > ctx.PageCount {
			return nil, fmt.Errorf("mark on page %d of %d: %w", m.Page, ctx.PageCount, errs.ErrInvalidPageNumber)
		}
		byPage[m.Page] = append(byPage[m.Page], m)
	}
	pages := make([]int, 0, len(byPage))
	for p := range byPage {
		pages = append(pages, p)
	}
	sort.Ints(pages)

	for _, p := range pages {
		if err := stampPage(ctx.XRefTable, p, byPage[p]); err != nil {
			return nil, fmt.Errorf("stamp page %d: %w", p, err)
		}
	}

	var out bytes.Buffer
	if err := api.Write(ctx, &out, conf); err != nil {
		return nil, fmt.Errorf("stamp: %w", err)
	}
	return out.Bytes(), nil
}

func stampPage(xt *model.XRefTable, page int, marks []Mark) error {
	d, _, inh, err := xt.PageDict(page, false)
	if err != nil {
		return err
	}

	// the page gets its own resources; the originals may be shared
	res := types.NewDict()
	if inh != nil && inh.Resources != nil {
		res = inh.Resources.Clone().(types.Dict)
	}
	fonts := types.NewDict()
	if o, ok := res.Find("Font"); ok && o != nil {
		fd, err := xt.DereferenceDict(o)
		if err != nil {
			return err
		}
		if fd != nil {
			fonts = fd.Clone().(types.Dict)
		}
	}

	ids := make(map[string]string)
	var b bytes.Buffer
	b.WriteString("\nQ\n")
	for _, m := range marks {
		st, err := m.style()
		if err != nil {
			return err
		}
		id, ok := ids[st.font]
		if !ok {
			ref, err := pdffont.EnsureFontDict(xt, st.font, "", "", false, nil)
			if err != nil {
				return err
			}
			id = freeResName(fonts, fontResPrefix)
			fonts.Insert(id, *ref)
			ids[st.font] = id
		}
		text, _ := types.Escape(model.DecodeUTF8ToByte(m.Text))
		fmt.Fprintf(&b, "q BT /%s %d Tf %.3f %.3f %.3f rg 1 0 0 1 %.2f %.2f Tm (%s) Tj ET Q\n",
			id, st.size, st.color.R, st.color.G, st.color.B, m.X, m.Y, *text)
	}
	res.Update("Font", fonts)
	d.Update("Resources", res)

	return wrapContents(xt, d, b.Bytes())
}

// wrapContents brackets the existing page content with q/Q so a graphics
// state left open by the page cannot move the marks, then appends draw.
// draw must restore with Q before drawing.
func wrapContents(xt *model.XRefTable, page types.Dict, draw []byte) error {
	open, err := xt.StreamDictIndRef([]byte("q\n"))
	if err != nil {
		return err
	}
	closing, err := xt.StreamDictIndRef(draw)
	if err != nil {
		return err
	}

	contents := types.Array{*open}
	if o, ok := page.Find("Contents"); ok && o != nil {
		switch v := o.(type) {
		case types.IndirectRef:
			obj, err := xt.Dereference(v)
			if err != nil {
				return err
			}
			if arr, ok := obj.(types.Array); ok {
				contents = append(contents, arr...)
			} else {
				contents = append(contents, v)
			}
		case types.Array:
			contents = append(contents, v...)
		default:
			return errs.Invalid("unsupported page contents %T", o)
		}
	}
	contents = append(contents, *closing)
	page.Update("Contents", contents)
	return nil
}

func freeResName(d types.Dict, prefix string) string {
	for i := 0; ; i++ {
		name := fmt.Sprintf("%s%d", prefix, i)
		if _, taken := d.Find(name); !taken {
			return name
		}
	}
}
