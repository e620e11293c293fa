// Package pdftest builds small, valid PDF documents in memory for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"strings"
)

// Page describes one generated page.
type Page struct {
	W, H float64
	Text string // drawn in Helvetica 12pt near the top-left corner
}

// Letter returns a US Letter page with the given text.
func Letter(text string) Page { return Page{W: 612, H: 792, Text: text} }

// Build assembles a PDF with a correct cross-reference table.
func Build(pages ...Page) []byte {
	var objs []string
	// 1: catalog, 2: page tree, 3: font, then a (page, content) pair per page.
	kids := make([]string, 0, len(pages))
	for i := range pages {
		kids = append(kids, fmt.Sprintf("%d 0 R", 4+2*i))
	}
	objs = append(objs,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	)
	for i, p := range pages {
		content := fmt.Sprintf("BT /F1 12 Tf 72 %.0f Td (%s) Tj ET", p.H-72, escape(p.Text))
		objs = append(objs,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %.0f %.0f] "+
				"/Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", p.W, p.H, 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		)
	}

	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n", len(objs)+1)
	b.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return b.Bytes()
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}
