package imd

import (
	"bytes"
	"strings"
	"testing"
)

func TestReadHeaderLineBasic(t *testing.T) {
	r := strings.NewReader("IMD 1.19: 05/03/2026 14:30:00\r\n")
	info, err := readHeaderLine(r)
	if err != nil {
		t.Fatalf("readHeaderLine() error: %v", err)
	}
	if info.Version != "1.19" {
		t.Errorf("Version = %q, expected %q", info.Version, "1.19")
	}
	if info.Day != 5 || info.Month != 3 || info.Year != 2026 {
		t.Errorf("date = %02d/%02d/%04d, expected 05/03/2026", info.Day, info.Month, info.Year)
	}
	if info.Hour != 14 || info.Minute != 30 || info.Second != 0 {
		t.Errorf("time = %02d:%02d:%02d, expected 14:30:00", info.Hour, info.Minute, info.Second)
	}
}

func TestReadHeaderLineMissingPrefix(t *testing.T) {
	r := strings.NewReader("XYZ 1.19: 05/03/2026 14:30:00\n")
	if _, err := readHeaderLine(r); err == nil {
		t.Errorf("readHeaderLine() with a bad prefix expected an error, got nil")
	}
}

func TestReadHeaderLineBadDateZeroesFields(t *testing.T) {
	r := strings.NewReader("IMD 1.19: garbage\n")
	info, err := readHeaderLine(r)
	if err != nil {
		t.Fatalf("readHeaderLine() error: %v", err)
	}
	if info.Version != "1.19" {
		t.Errorf("Version = %q, expected %q", info.Version, "1.19")
	}
	if info.Day != 0 || info.Month != 0 || info.Year != 0 {
		t.Errorf("date fields = %d/%d/%d, expected all zero on unparsable date", info.Day, info.Month, info.Year)
	}
}

func TestReadHeaderLineEmptyVersion(t *testing.T) {
	r := strings.NewReader("IMD : 05/03/2026 14:30:00\n")
	info, err := readHeaderLine(r)
	if err != nil {
		t.Fatalf("readHeaderLine() error: %v", err)
	}
	if info.Version != "Unknown" {
		t.Errorf("Version = %q, expected %q", info.Version, "Unknown")
	}
}

func TestWriteHeaderLineRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := writeHeaderLine(&buf, "1.19"); err != nil {
		t.Fatalf("writeHeaderLine() error: %v", err)
	}
	info, err := readHeaderLine(&buf)
	if err != nil {
		t.Fatalf("readHeaderLine() on written output error: %v", err)
	}
	if info.Version != "1.19" {
		t.Errorf("Version = %q, expected %q", info.Version, "1.19")
	}
}

func TestReadCommentEmpty(t *testing.T) {
	r := bytes.NewReader([]byte{0x1A})
	comment, err := readComment(r)
	if err != nil {
		t.Fatalf("readComment() error: %v", err)
	}
	if len(comment) != 0 {
		t.Errorf("comment = %q, expected empty", comment)
	}
}

func TestReadCommentUnterminated(t *testing.T) {
	r := strings.NewReader("no terminator here")
	if _, err := readComment(r); err == nil {
		t.Errorf("readComment() on an unterminated block expected an error, got nil")
	}
}

func TestWriteCommentBlockRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	want := []byte("hello, disk")
	if err := writeCommentBlock(&buf, want); err != nil {
		t.Fatalf("writeCommentBlock() error: %v", err)
	}
	got, err := readComment(&buf)
	if err != nil {
		t.Fatalf("readComment() on written output error: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("comment = %q, expected %q", got, want)
	}
}
