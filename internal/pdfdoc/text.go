package pdfdoc

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/and161185/signator/internal/errs"
)

// ExtractText returns the plain text of every page joined by blank lines.
func ExtractText(src []byte) (text string, err error) {
	// the reader panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			text, err = "", errs.Invalid("unreadable pdf text: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(src), int64(len(src)))
	if err != nil {
		return "", errs.Invalid("not a readable pdf: %v", err)
	}
	parts := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		s, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d text: %w", i, err)
		}
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}
