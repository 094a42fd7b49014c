package imd

import (
	"errors"
	"io"
)

// sectorSizeTable maps a sector_size_code (0-6) to its byte length.
var sectorSizeTable = [7]int{128, 256, 512, 1024, 2048, 4096, 8192}

// SectorSize returns the sector size in bytes for a given size code, or
// an error if the code is out of range (spec 4.1 / 6 size-code table).
func SectorSize(code byte) (int, error) {
	if int(code) >= len(sectorSizeTable) {
		return 0, newErrorf(CodeReadError, "invalid sector size code %d", code)
	}
	return sectorSizeTable[code], nil
}

// sizeCodeFor returns the size code for an exact sector size, or false if
// size does not match one of the table entries.
func sizeCodeFor(size int) (byte, bool) {
	for i, s := range sectorSizeTable {
		if s == size {
			return byte(i), true
		}
	}
	return 0, false
}

// Sector Data Record type (sflag) predicates, spec section 3.

// HasData reports whether sflag carries a body on disk (odd or even
// nonzero codes 0x01-0x08).
func HasData(sflag byte) bool {
	return sflag >= 0x01 && sflag <= 0x08
}

// IsCompressed reports whether sflag is an even, nonzero code (one fill
// byte on disk, expanded to sector_size in memory).
func IsCompressed(sflag byte) bool {
	return sflag != 0 && sflag%2 == 0
}

// HasDAM reports whether sflag asserts the deleted-address-mark bit
// (codes 0x03, 0x04, 0x07, 0x08).
func HasDAM(sflag byte) bool {
	switch sflag {
	case 0x03, 0x04, 0x07, 0x08:
		return true
	default:
		return false
	}
}

// HasErr reports whether sflag asserts the read-error bit (codes 0x05,
// 0x06, 0x07, 0x08).
func HasErr(sflag byte) bool {
	switch sflag {
	case 0x05, 0x06, 0x07, 0x08:
		return true
	default:
		return false
	}
}

// readByte reads a single byte, distinguishing clean end-of-input (io.EOF,
// returned as-is) from any other I/O fault (wrapped as ReadError).
func readByte(r io.Reader) (byte, error) {
	var buf [1]byte
	n, err := r.Read(buf[:])
	if n == 1 {
		return buf[0], nil
	}
	if err == nil {
		err = io.ErrUnexpectedEOF
	}
	if errors.Is(err, io.EOF) {
		return 0, io.EOF
	}
	return 0, newError(CodeReadError, "read byte", err)
}

// readExact reads exactly len(buf) bytes. A short read at offset 0 (clean
// end-of-input) is reported as io.EOF; any other short read or fault is a
// ReadError.
func readExact(r io.Reader, buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	n, err := io.ReadFull(r, buf)
	if n == 0 && errors.Is(err, io.EOF) {
		return io.EOF
	}
	if err != nil {
		return newError(CodeReadError, "read exact", err)
	}
	return nil
}

// writeExact writes all of buf, mapping any fault to WriteError.
func writeExact(w io.Writer, buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	if _, err := w.Write(buf); err != nil {
		return newError(CodeWriteError, "write exact", err)
	}
	return nil
}

// isUniform reports whether every byte of data equals data[0]. An empty
// sector is vacuously uniform (spec 4.4).
func isUniform(data []byte) (byte, bool) {
	if len(data) == 0 {
		return 0, true
	}
	fill := data[0]
	for _, b := range data[1:] {
		if b != fill {
			return fill, false
		}
	}
	return fill, true
}
