package testsupport

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
)

// Form builds multipart/form-data request bodies for handler tests.
type Form struct {
	t      testing.TB
	buf    bytes.Buffer
	writer *multipart.Writer
}

// NewForm starts an empty multipart body.
func NewForm(t testing.TB) *Form {
	t.Helper()

	f := &Form{t: t}
	f.writer = multipart.NewWriter(&f.buf)
	return f
}

// File adds a file part under field.
func (f *Form) File(field, filename string, data []byte) *Form {
	f.t.Helper()

	part, err := f.writer.CreateFormFile(field, filename)
	if err != nil {
		f.t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		f.t.Fatalf("write form file: %v", err)
	}
	return f
}

// Field adds a plain form value.
func (f *Form) Field(name, value string) *Form {
	f.t.Helper()

	if err := f.writer.WriteField(name, value); err != nil {
		f.t.Fatalf("write field: %v", err)
	}
	return f
}

// Request closes the body and returns a POST request carrying it.
func (f *Form) Request(target string) *http.Request {
	f.t.Helper()

	if err := f.writer.Close(); err != nil {
		f.t.Fatalf("close multipart writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(f.buf.Bytes()))
	req.Header.Set("Content-Type", f.writer.FormDataContentType())
	return req
}

// Parse closes the body and parses it the way an HTTP server would.
func (f *Form) Parse() *multipart.Form {
	f.t.Helper()

	req := f.Request("/")
	if err := req.ParseMultipartForm(32 << 20); err != nil {
		f.t.Fatalf("parse multipart form: %v", err)
	}
	f.t.Cleanup(func() {
		_ = req.MultipartForm.RemoveAll()
	})
	return req.MultipartForm
}

// ReadAll drains r, failing the test on error.
func ReadAll(t testing.TB, r io.Reader) []byte {
	t.Helper()

	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return data
}
