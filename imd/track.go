package imd

import (
	"errors"
	"fmt"
	"io"
)

// Hflag bits packed into the high nibble of the on-disk head byte.
const (
	HFlagCMapPresent byte = 0x80
	HFlagHMapPresent byte = 0x40
)

// Track is one (cylinder, head) track: its header fields, the three
// per-sector maps, each sector's Sector Data Record type, and (once
// Loaded) the sector data itself (spec section 3).
type Track struct {
	Mode           byte
	Cyl            byte
	Head           byte // 0 or 1, low nibble only
	HFlag          byte // high-nibble bits: CMAP_PRES 0x80, HMAP_PRES 0x40, rest reserved
	NumSectors     int
	SectorSizeCode byte
	SectorSize     int

	SMap  []byte
	CMap  []byte
	HMap  []byte
	SFlag []byte
	Data  []byte // len == NumSectors*SectorSize once Loaded

	Loaded bool
}

// Clone returns a deep copy of t, used as the working copy that
// WriteTrackIMD and WriteTrackBin apply interleave transforms to without
// mutating the caller's track.
func (t *Track) Clone() *Track {
	c := *t
	c.SMap = append([]byte(nil), t.SMap...)
	c.CMap = append([]byte(nil), t.CMap...)
	c.HMap = append([]byte(nil), t.HMap...)
	c.SFlag = append([]byte(nil), t.SFlag...)
	c.Data = append([]byte(nil), t.Data...)
	return &c
}

// SectorData returns the data slice for the sector at physical position i.
func (t *Track) SectorData(i int) []byte {
	off := i * t.SectorSize
	return t.Data[off : off+t.SectorSize]
}

// String gives a one-line human summary, in the spirit of the informal
// dumps the teacher's test files print for diagnostics.
func (t *Track) String() string {
	return fmt.Sprintf("cyl=%d head=%d mode=%d nsec=%d ssize=%d loaded=%v",
		t.Cyl, t.Head, t.Mode, t.NumSectors, t.SectorSize, t.Loaded)
}

// readVariant selects which of the three read paths readTrackCore takes.
type readVariant int

const (
	variantHeaderOnly readVariant = iota
	variantHeaderAndFlags
	variantFull
)

// LoadTrack reads one full track (header, maps, and all sector data,
// expanding compressed sectors and filling unavailable ones with
// fillByte) from rs. At clean end-of-input before the first header byte,
// it returns io.EOF to signal "no more tracks" (spec 4.3).
func LoadTrack(rs io.ReadSeeker, fillByte byte) (*Track, error) {
	return readTrackCore(rs, variantFull, fillByte)
}

// ReadTrackHeader reads only a track's header and maps, skipping sector
// data entirely. The returned track has Loaded=false and Data=nil.
func ReadTrackHeader(rs io.ReadSeeker) (*Track, error) {
	return readTrackCore(rs, variantHeaderOnly, 0)
}

// ReadTrackHeaderAndFlags reads the header, maps, and each sector's flag
// byte, but skips the sector data bodies. Used by the consistency scanner
// so it never allocates sector data.
func ReadTrackHeaderAndFlags(rs io.ReadSeeker) (*Track, error) {
	return readTrackCore(rs, variantHeaderAndFlags, 0)
}

func readTrackCore(rs io.ReadSeeker, variant readVariant, fillByte byte) (*Track, error) {
	start, haveStart := tellOrZero(rs)

	restore := func() {
		if haveStart {
			rs.Seek(start, io.SeekStart)
		}
	}
	fail := func(err error) (*Track, error) {
		restore()
		return nil, err
	}

	mode, err := readByte(rs)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		restore()
		return nil, err
	}
	if mode >= 6 {
		return fail(newErrorf(CodeReadError, "invalid track mode %d", mode))
	}

	cyl, err := readByte(rs)
	if err != nil {
		return fail(fatalRead(err))
	}
	headByte, err := readByte(rs)
	if err != nil {
		return fail(fatalRead(err))
	}
	head := headByte & 0x0F
	hflag := headByte &^ byte(0x0F)
	if head > 1 {
		return fail(newErrorf(CodeReadError, "invalid head %d", head))
	}

	nsecByte, err := readByte(rs)
	if err != nil {
		return fail(fatalRead(err))
	}
	numSectors := int(nsecByte)
	if numSectors > 256 {
		return fail(newErrorf(CodeReadError, "invalid sector count %d", numSectors))
	}

	ssizeCode, err := readByte(rs)
	if err != nil {
		return fail(fatalRead(err))
	}
	if ssizeCode >= 7 {
		return fail(newErrorf(CodeReadError, "invalid sector size code %d", ssizeCode))
	}

	t := &Track{
		Mode:           mode,
		Cyl:            cyl,
		Head:           head,
		HFlag:          hflag,
		NumSectors:     numSectors,
		SectorSizeCode: ssizeCode,
		SectorSize:     sectorSizeTable[ssizeCode],
	}

	t.SMap = make([]byte, numSectors)
	if err := readExact(rs, t.SMap); err != nil {
		return fail(fatalRead(err))
	}
	if hflag&HFlagCMapPresent != 0 {
		t.CMap = make([]byte, numSectors)
		if err := readExact(rs, t.CMap); err != nil {
			return fail(fatalRead(err))
		}
	}
	if hflag&HFlagHMapPresent != 0 {
		t.HMap = make([]byte, numSectors)
		if err := readExact(rs, t.HMap); err != nil {
			return fail(fatalRead(err))
		}
	}

	if variant == variantFull {
		// Defaults are materialized on load only; the skip variants leave
		// an absent map as nil.
		if hflag&HFlagCMapPresent == 0 {
			t.CMap = make([]byte, numSectors)
			fillSlice(t.CMap, cyl)
		}
		if hflag&HFlagHMapPresent == 0 {
			t.HMap = make([]byte, numSectors)
			fillSlice(t.HMap, head)
		}
	}

	if variant == variantHeaderOnly {
		return t, nil
	}

	t.SFlag = make([]byte, numSectors)
	if variant == variantFull {
		t.Data = make([]byte, numSectors*t.SectorSize)
	}

	for i := 0; i < numSectors; i++ {
		flag, err := readByte(rs)
		if err != nil {
			return fail(fatalRead(err))
		}
		if variant == variantFull && flag > 0x08 {
			return fail(newErrorf(CodeReadError, "invalid sector flag 0x%02X at sector %d", flag, i))
		}
		t.SFlag[i] = flag

		switch variant {
		case variantHeaderAndFlags:
			// An out-of-range flag is not rejected here: it is stored as-is
			// and skipped by its even/odd parity, same as libimd's
			// imd_read_track_header_and_flags, leaving validation to the
			// consistency scanner (FailInvSflagValue).
			if err := skipSectorBody(rs, flag, t.SectorSize); err != nil {
				return fail(err)
			}
		case variantFull:
			sector := t.SectorData(i)
			switch {
			case flag == 0x00:
				fillSlice(sector, fillByte)
			case IsCompressed(flag):
				fb, err := readByte(rs)
				if err != nil {
					return fail(fatalRead(err))
				}
				fillSlice(sector, fb)
			default:
				if err := readExact(rs, sector); err != nil {
					return fail(fatalRead(err))
				}
			}
		}
	}

	if variant == variantFull {
		t.Loaded = true
	}
	return t, nil
}

// tellOrZero returns the stream's current position and whether Seek
// succeeded, for best-effort restore on a fatal parse error.
func tellOrZero(rs io.ReadSeeker) (int64, bool) {
	pos, err := rs.Seek(0, io.SeekCurrent)
	return pos, err == nil
}

// fatalRead converts a mid-track io.EOF (truncated file) into a ReadError;
// errors already wrapped by readByte/readExact pass through unchanged.
func fatalRead(err error) error {
	if errors.Is(err, io.EOF) {
		return newError(CodeReadError, "unexpected end of input mid-track", nil)
	}
	return err
}

func fillSlice(buf []byte, v byte) {
	for i := range buf {
		buf[i] = v
	}
}

// skipSectorBody skips the on-disk body of one Sector Data Record without
// reading it into memory, per the record's flag (0 bytes / 1 fill byte /
// sector_size bytes).
func skipSectorBody(rs io.ReadSeeker, flag byte, sectorSize int) error {
	var n int
	switch {
	case flag == 0x00:
		n = 0
	case IsCompressed(flag):
		n = 1
	default:
		n = sectorSize
	}
	if n == 0 {
		return nil
	}
	return skipBytes(rs, n)
}

// skipBytes attempts a positional seek over n bytes; if the seek is
// unsupported it falls back to a fixed-buffer read-and-discard, and any
// short read in that fallback is a ReadError (spec 4.3).
func skipBytes(rs io.ReadSeeker, n int) error {
	pre, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return skipByReadDiscard(rs, n)
	}
	post, err := rs.Seek(int64(n), io.SeekCurrent)
	if err != nil {
		return skipByReadDiscard(rs, n)
	}
	if post != pre+int64(n) {
		return newErrorf(CodeReadError, "seek past end while skipping %d bytes", n)
	}
	return nil
}

const skipBufSize = 4096

func skipByReadDiscard(r io.Reader, n int) error {
	buf := make([]byte, skipBufSize)
	for n > 0 {
		chunk := n
		if chunk > len(buf) {
			chunk = len(buf)
		}
		if err := readExact(r, buf[:chunk]); err != nil {
			if errors.Is(err, io.EOF) {
				return newError(CodeReadError, "short read while skipping sector data", nil)
			}
			return err
		}
		n -= chunk
	}
	return nil
}
