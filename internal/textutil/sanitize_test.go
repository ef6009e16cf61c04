package textutil

import "testing"

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"holiday photo.jpg", "holiday photo.jpg"},
		{"../../etc/passwd", "-..-etc-passwd"},
		{"a:b*c?d", "a-b-cd"},
		{"  café\tmenu  ", "cafe menu"},
		{"line\nbreak", "line break"},
		{"bell\x07", "bell"},
		{"...", ""},
		{"", ""},
	}
	for _, tc := range tests {
		if got := SanitizeFileName(tc.in); got != tc.want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestStem(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"report.pdf", "report"},
		{"C:\\Users\\me\\scan.final.PDF", "scan.final"},
		{"dir/sub/photo.jpeg", "photo"},
		{".pdf", "document"},
		{"", "document"},
	}
	for _, tc := range tests {
		if got := Stem(tc.in, "document"); got != tc.want {
			t.Errorf("Stem(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSanitizeToken(t *testing.T) {
	if got := SanitizeToken("Image Resize"); got != "image_resize" {
		t.Fatalf("unexpected token %q", got)
	}
	if got := SanitizeToken("  "); got != "unknown" {
		t.Fatalf("expected unknown, got %q", got)
	}
}
