package testsupport

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	const chunkSize = 32 * 1024
	buf := make([]byte, chunkSize)
	for i := range buf {
		buf[i] = 0x42
	}

	remaining := size
	for remaining > 0 {
		toWrite := int64(chunkSize)
		if remaining < toWrite {
			toWrite = remaining
		}
		if _, err := f.Write(buf[:toWrite]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		remaining -= toWrite
	}
}

// ImageBytes encodes a solid w x h image. The format follows ext (".png" or
// ".jpg"/".jpeg").
func ImageBytes(t testing.TB, ext string, w, h int, fill color.Color) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, fill)
		}
	}
	var buf bytes.Buffer
	switch strings.ToLower(ext) {
	case ".png":
		if err := png.Encode(&buf, img); err != nil {
			t.Fatalf("encode png: %v", err)
		}
	case ".jpg", ".jpeg":
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
			t.Fatalf("encode jpeg: %v", err)
		}
	default:
		t.Fatalf("unsupported fixture image extension %q", ext)
	}
	return buf.Bytes()
}

// PNGDeclaringSize returns a 1x1 PNG whose IHDR chunk is rewritten to claim
// w x h pixels. Header-only decoders report the claimed size; decoding the
// pixels fails.
func PNGDeclaringSize(t testing.TB, w, h int) []byte {
	t.Helper()

	data := ImageBytes(t, ".png", 1, 1, color.White)
	// 8-byte signature, then IHDR: length(4) type(4) width(4) height(4) ... crc(4).
	const ihdrType, ihdrData, ihdrCRC = 12, 16, 29
	binary.BigEndian.PutUint32(data[ihdrData:], uint32(w))
	binary.BigEndian.PutUint32(data[ihdrData+4:], uint32(h))
	binary.BigEndian.PutUint32(data[ihdrCRC:], crc32.ChecksumIEEE(data[ihdrType:ihdrCRC]))
	return data
}

// WriteImage writes a solid image fixture to path, encoded per its extension.
func WriteImage(t testing.TB, path string, w, h int, fill color.Color) {
	t.Helper()

	writeBytes(t, path, ImageBytes(t, filepath.Ext(path), w, h, fill))
}

// PDFBytes builds a small uncompressed letter-size PDF with one page per
// marker. Each page draws its marker as text.
func PDFBytes(markers ...string) []byte {
	if len(markers) == 0 {
		markers = []string{"PAGE"}
	}
	pages := make([]pdfPage, len(markers))
	for i, marker := range markers {
		pages[i] = pdfPage{marker: marker, width: 612}
	}
	return buildPDF(pages)
}

// PDFWidthsBytes builds a PDF whose pages have the given MediaBox widths, so
// tests can follow page order through merges and splits.
func PDFWidthsBytes(widths ...int) []byte {
	pages := make([]pdfPage, len(widths))
	for i, width := range widths {
		pages[i] = pdfPage{marker: fmt.Sprintf("W%d", width), width: width}
	}
	return buildPDF(pages)
}

type pdfPage struct {
	marker string
	width  int
}

func buildPDF(pages []pdfPage) []byte {
	var (
		buf     bytes.Buffer
		offsets []int
	)
	object := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")

	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	object("<< /Type /Catalog /Pages 2 0 R >>")
	object(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))
	object("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")
	for i, page := range pages {
		content := fmt.Sprintf("BT /F1 24 Tf 72 720 Td (%s) Tj ET", page.marker)
		object(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %d 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", page.width, 5+2*i))
		object(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

// WritePDF writes a PDFBytes fixture to path.
func WritePDF(t testing.TB, path string, markers ...string) {
	t.Helper()

	writeBytes(t, path, PDFBytes(markers...))
}

func writeBytes(t testing.TB, path string, data []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
