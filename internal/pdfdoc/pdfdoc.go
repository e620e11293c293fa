// Package pdfdoc wraps the PDF engines used for inspecting, splitting,
// stamping and reading documents. All functions work on in-memory bytes.
package pdfdoc

import (
	"bytes"
	"fmt"
	"strconv"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/and161185/signator/internal/errs"
	"github.com/and161185/signator/internal/geometry"
)

var confOnce sync.Once

// newConf returns a relaxed pdfcpu configuration that never touches the user config dir.
func newConf() *model.Configuration {
	confOnce.Do(api.DisableConfigDir)
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// Info describes the page structure of a PDF.
type Info struct {
	Pages int
	Dims  []geometry.Size // native page sizes in points, index = page-1
}

// PageSize returns the native size of a 1-based page.
func (i Info) PageSize(page int) (geometry.Size, bool) {
	idx, ok := geometry.PageIndex(page, len(i.Dims))
	if !ok {
		return geometry.Size{}, false
	}
	return i.Dims[idx], true
}

// Inspect parses src and reports page count and per-page dimensions.
// Unparseable input yields errs.ErrInvalidInput.
func Inspect(src []byte) (Info, error) {
	ctx, err := api.ReadContext(bytes.NewReader(src), newConf())
	if err != nil {
		return Info{}, errs.Invalid("not a readable pdf: %v", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return Info{}, errs.Invalid("page count: %v", err)
	}
	dims, err := ctx.PageDims()
	if err != nil {
		return Info{}, errs.Invalid("page dims: %v", err)
	}
	info := Info{Pages: ctx.PageCount, Dims: make([]geometry.Size, 0, len(dims))}
	for _, d := range dims {
		info.Dims = append(info.Dims, geometry.Size{W: d.Width, H: d.Height})
	}
	if info.Pages == 0 {
		return Info{}, errs.Invalid("pdf has no pages")
	}
	return info, nil
}

// ExtractPage returns a standalone PDF containing only the given 1-based page.
func ExtractPage(src []byte, page int) ([]byte, error) {
	info, err := Inspect(src)
	if err != nil {
		return nil, err
	}
	if _, ok := geometry.PageIndex(page, info.Pages); !ok {
		return nil, fmt.Errorf("page %d of %d: %w", page, info.Pages, errs.ErrInvalidPageNumber)
	}
	var out bytes.Buffer
	if err := api.Trim(bytes.NewReader(src), &out, []string{strconv.Itoa(page)}, newConf()); err != nil {
		return nil, fmt.Errorf("extract page %d: %w", page, err)
	}
	return out.Bytes(), nil
}
