package service

import (
	"bytes"
	"fmt"
	"strings"
)

// Minimal PDF writer for the PDF child artifact. It emits uncompressed
// Helvetica text on US-Letter pages with a hand-built xref table. The
// corpus carries no PDF library, and the artifact only needs to be a valid,
// readable rendition of the body text; anything richer belongs behind the
// Renderer interface.

const (
	pdfLinesPerPage = 48
	pdfLeading      = 14
)

func buildPDF(headline, author string, lines []string) []byte {
	pages := paginate(lines, pdfLinesPerPage)
	if len(pages) == 0 {
		pages = [][]string{nil}
	}

	// Object layout: 1 catalog, 2 page tree, 3 font, then per page one
	// page object and one content stream.
	objCount := 3 + 2*len(pages)
	offsets := make([]int, objCount+1)

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	writeObj := func(num int, body string) {
		offsets[num] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", num, body)
	}

	var kids []string
	for i := range pages {
		kids = append(kids, fmt.Sprintf("%d 0 R", 4+2*i))
	}

	writeObj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	writeObj(2, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>",
		strings.Join(kids, " "), len(pages)))
	writeObj(3, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")

	for i, page := range pages {
		pageNum := 4 + 2*i
		contentNum := pageNum + 1

		writeObj(pageNum, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>",
			contentNum))

		stream := contentStream(headline, author, page, i == 0)
		writeObj(contentNum, fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", len(stream), stream))
	}

	xrefAt := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", objCount+1)
	buf.WriteString("0000000000 65535 f \n")
	for num := 1; num <= objCount; num++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[num])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", objCount+1, xrefAt)

	return buf.Bytes()
}

func contentStream(headline, author string, lines []string, first bool) string {
	var sb strings.Builder
	sb.WriteString("BT\n")

	// Tm sets the text matrix absolutely; the quote operator then advances
	// one leading per line.
	y := 750
	if first {
		fmt.Fprintf(&sb, "/F1 18 Tf 1 0 0 1 54 %d Tm (%s) Tj\n", y, escapePDFText(headline))
		y -= 24
		if author != "" {
			fmt.Fprintf(&sb, "/F1 10 Tf 1 0 0 1 54 %d Tm (%s) Tj\n", y, escapePDFText(author))
			y -= 20
		}
	}

	fmt.Fprintf(&sb, "/F1 10 Tf 1 0 0 1 54 %d Tm %d TL\n", y, pdfLeading)
	for _, line := range lines {
		fmt.Fprintf(&sb, "(%s) '\n", escapePDFText(line))
	}

	sb.WriteString("ET\n")
	return sb.String()
}

func paginate(lines []string, perPage int) [][]string {
	var pages [][]string
	for start := 0; start < len(lines); start += perPage {
		end := start + perPage
		if end > len(lines) {
			end = len(lines)
		}
		pages = append(pages, lines[start:end])
	}
	return pages
}

// escapePDFText escapes the characters that terminate a PDF literal string
// and strips bytes outside the WinAnsi range.
func escapePDFText(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '(', ')', '\\':
			sb.WriteByte('\\')
			sb.WriteRune(r)
		default:
			if r < 32 || r > 126 {
				sb.WriteByte('?')
				continue
			}
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
