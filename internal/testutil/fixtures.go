// Package testutil builds small document fixtures for tests.
package testutil

import (
	"archive/zip"
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"
)

// GraphicsOnlyPage is a content stream that paints a rectangle and shows
// no text, like a scanned page.
const GraphicsOnlyPage = "q 0.5 g 72 72 468 648 re f Q"

// BuildPDF assembles a minimal US Letter PDF with one page per content
// stream and a correct cross reference table.
func BuildPDF(tb testing.TB, contents ...string) []byte {
	tb.Helper()

	var buf bytes.Buffer
	var offsets []int
	writeObj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")

	// 1 catalog, 2 pages, 3 font, then page/content pairs
	kids := ""
	for i := range contents {
		kids += fmt.Sprintf("%d 0 R ", 4+2*i)
	}
	writeObj("<< /Type /Catalog /Pages 2 0 R >>")
	writeObj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d /MediaBox [0 0 612 792] >>", kids, len(contents)))
	writeObj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")
	for i, c := range contents {
		writeObj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i))
		writeObj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(c), c))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

// TextPage returns a content stream showing each line in Helvetica.
func TextPage(lines ...string) string {
	var b bytes.Buffer
	b.WriteString("BT /F1 12 Tf 72 720 Td\n")
	for i, l := range lines {
		if i > 0 {
			b.WriteString("0 -16 Td\n")
		}
		fmt.Fprintf(&b, "(%s) Tj\n", l)
	}
	b.WriteString("ET")
	return b.String()
}

// BuildDOCX zips a minimal Word package. Nil paragraphs omit
// word/document.xml entirely.
func BuildDOCX(tb testing.TB, paragraphs []string) []byte {
	tb.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	add := func(name, body string) {
		w, err := zw.Create(name)
		if err != nil {
			tb.Fatalf("create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			tb.Fatalf("write %s: %v", name, err)
		}
	}

	add("[Content_Types].xml", `<?xml version="1.0" encoding="UTF-8"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`)

	if paragraphs != nil {
		var body bytes.Buffer
		body.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
		for _, p := range paragraphs {
			fmt.Fprintf(&body, `<w:p><w:pPr><w:pStyle w:val="Normal"/></w:pPr><w:r><w:rPr><w:b/></w:rPr><w:t>%s</w:t></w:r></w:p>`, p)
		}
		body.WriteString(`</w:body></w:document>`)
		add("word/document.xml", body.String())
	}

	if err := zw.Close(); err != nil {
		tb.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

// PNG encodes a w by h gray image.
func PNG(tb testing.TB, w, h int) []byte {
	tb.Helper()

	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xEE
	}
	img.Set(0, 0, color.Black)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		tb.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// Image returns an in-memory page of the given size.
func Image(w, h int) image.Image {
	return image.NewGray(image.Rect(0, 0, w, h))
}
