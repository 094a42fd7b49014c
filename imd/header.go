package imd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// DefaultVersion is substituted for the stored header version on rewrite
// when that version is empty or the literal "Unknown" (spec 4.6).
const DefaultVersion = "1.19"

const headerLineCap = 256
const maxVersionLen = 31

// HeaderInfo is the parsed textual header line that opens every IMD file.
type HeaderInfo struct {
	Raw     string // the raw line, CR/LF stripped, capped at 256 bytes
	Version string
	Year    int
	Month   int
	Day     int
	Hour    int
	Minute  int
	Second  int
}

// readHeaderLine reads the "IMD <version>: DD/MM/YYYY HH:MM:SS" line that
// opens an IMD file. Missing the "IMD " prefix or a read fault fails with
// ReadError; out-of-range date/time fields are zeroed rather than failing
// the read (spec 4.2).
func readHeaderLine(r io.Reader) (*HeaderInfo, error) {
	var raw []byte
	for {
		b, err := readByte(r)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, newError(CodeReadError, "unexpected end of input reading header line", nil)
			}
			return nil, err
		}
		if b == '\n' {
			break
		}
		if len(raw) < headerLineCap {
			raw = append(raw, b)
		}
	}
	raw = bytes.TrimRight(raw, "\r")
	line := string(raw)

	if !strings.HasPrefix(line, "IMD ") {
		return nil, newErrorf(CodeReadError, "missing IMD header prefix in %q", line)
	}

	info := &HeaderInfo{Raw: line}
	parseHeaderFields(info, line[len("IMD "):])
	return info, nil
}

// parseHeaderFields extracts the version and date/time fields from the
// remainder of the header line (everything after "IMD "). Any failure to
// recover the date/time fields zeroes them but still returns success; the
// version is kept if it was itself recoverable, else set to "Unknown".
func parseHeaderFields(info *HeaderInfo, rest string) {
	colon := strings.IndexByte(rest, ':')
	if colon < 0 {
		info.Version = "Unknown"
		return
	}

	version := strings.TrimSpace(rest[:colon])
	if len(version) > maxVersionLen {
		version = version[:maxVersionLen]
	}
	if version == "" {
		version = "Unknown"
	}
	info.Version = version

	var day, month, year, hour, minute, second int
	n, err := fmt.Sscanf(rest[colon+1:], " %d/%d/%d %d:%d:%d", &day, &month, &year, &hour, &minute, &second)
	if err != nil || n != 6 || !validDateTime(month, day, hour, minute, second) {
		return // date/time fields stay zero
	}

	info.Year, info.Month, info.Day = year, month, day
	info.Hour, info.Minute, info.Second = hour, minute, second
}

func validDateTime(month, day, hour, minute, second int) bool {
	return month >= 1 && month <= 12 &&
		day >= 1 && day <= 31 &&
		hour >= 0 && hour <= 23 &&
		minute >= 0 && minute <= 59 &&
		second >= 0 && second <= 59
}

// writeHeaderLine emits "IMD <version>: DD/MM/YYYY HH:MM:SS\r\n" using the
// current local wall-clock time (spec 4.2: local time, for compatibility
// with the original MS-DOS tool).
func writeHeaderLine(w io.Writer, version string) error {
	now := time.Now()
	line := fmt.Sprintf("IMD %s: %02d/%02d/%04d %02d:%02d:%02d\r\n",
		version, now.Day(), now.Month(), now.Year(), now.Hour(), now.Minute(), now.Second())
	return writeExact(w, []byte(line))
}

// readComment reads the comment block that follows the header: raw bytes
// up to and including the 0x1A terminator, which is consumed but not
// returned. An empty comment (terminator immediately) is legal;
// end-of-input before the terminator is a ReadError.
func readComment(r io.Reader) ([]byte, error) {
	var buf []byte
	for {
		b, err := readByte(r)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, newError(CodeReadError, "unexpected end of input reading comment block", nil)
			}
			return nil, err
		}
		if b == 0x1A {
			return buf, nil
		}
		buf = append(buf, b)
	}
}

// writeCommentBlock emits the comment bytes verbatim followed by the 0x1A
// terminator.
func writeCommentBlock(w io.Writer, comment []byte) error {
	if err := writeExact(w, comment); err != nil {
		return err
	}
	return writeExact(w, []byte{0x1A})
}
