package imd

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

// failAfterSeeker wraps a *bytes.Reader, lets the first n
// Seek(0, io.SeekCurrent) ("tell") calls succeed and fails every one after
// that, to exercise Scan's FailFtell path without a real I/O failure.
type failAfterSeeker struct {
	*bytes.Reader
	n int
}

func (f *failAfterSeeker) Seek(offset int64, whence int) (int64, error) {
	if whence == io.SeekCurrent && offset == 0 {
		if f.n <= 0 {
			return 0, errors.New("simulated ftell failure")
		}
		f.n--
	}
	return f.Reader.Seek(offset, whence)
}

func buildSampleImage(t *testing.T, tracks []*Track) *bytes.Reader {
	t.Helper()
	var buf bytes.Buffer
	if err := writeHeaderLine(&buf, "1.19"); err != nil {
		t.Fatalf("writeHeaderLine() error: %v", err)
	}
	if err := writeCommentBlock(&buf, []byte("test image")); err != nil {
		t.Fatalf("writeCommentBlock() error: %v", err)
	}
	for _, tr := range tracks {
		if err := WriteTrackIMD(&buf, tr, DefaultWriteOptions()); err != nil {
			t.Fatalf("WriteTrackIMD() error: %v", err)
		}
	}
	return bytes.NewReader(buf.Bytes())
}

func plainTrack(cyl, head byte, numSectors int) *Track {
	tr := &Track{
		Mode:           3,
		Cyl:            cyl,
		Head:           head,
		NumSectors:     numSectors,
		SectorSizeCode: 0,
		SectorSize:     128,
		SMap:           make([]byte, numSectors),
		CMap:           make([]byte, numSectors),
		HMap:           make([]byte, numSectors),
		SFlag:          make([]byte, numSectors),
		Loaded:         true,
	}
	for i := 0; i < numSectors; i++ {
		tr.SMap[i] = byte(i + 1)
		tr.SFlag[i] = 0x01
	}
	tr.Data = make([]byte, numSectors*tr.SectorSize)
	return tr
}

func TestScanCleanImage(t *testing.T) {
	tracks := []*Track{
		plainTrack(0, 0, 9),
		plainTrack(0, 1, 9),
		plainTrack(1, 0, 9),
		plainTrack(1, 1, 9),
	}
	r := buildSampleImage(t, tracks)

	result, err := Scan(r, DefaultScanOptions())
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	if result.Failures != 0 {
		t.Errorf("Failures = 0x%04X, expected 0 on a clean image", result.Failures)
	}
	if result.TrackCount != 4 {
		t.Errorf("TrackCount = %d, expected 4", result.TrackCount)
	}
	if result.TotalSectors != 36 {
		t.Errorf("TotalSectors = %d, expected 36", result.TotalSectors)
	}
	if result.MaxCylSide0 != 1 || result.MaxCylSide1 != 1 {
		t.Errorf("MaxCylSide0/1 = %d/%d, expected 1/1", result.MaxCylSide0, result.MaxCylSide1)
	}
	if result.FirstInterleave != 1 {
		t.Errorf("FirstInterleave = %d, expected 1 for an identity smap", result.FirstInterleave)
	}
}

func TestScanDetectsDuplicateSectorID(t *testing.T) {
	tr := plainTrack(0, 0, 4)
	tr.SMap[3] = tr.SMap[0]
	r := buildSampleImage(t, []*Track{tr})

	result, err := Scan(r, DefaultScanOptions())
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	if result.Failures&FailDupeSid == 0 {
		t.Errorf("Failures = 0x%04X, expected FailDupeSid set", result.Failures)
	}
}

func TestScanDetectsCylinderDecrease(t *testing.T) {
	tracks := []*Track{plainTrack(1, 0, 4), plainTrack(0, 0, 4)}
	r := buildSampleImage(t, tracks)

	result, err := Scan(r, DefaultScanOptions())
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	if result.Failures&FailSeqCylDec == 0 {
		t.Errorf("Failures = 0x%04X, expected FailSeqCylDec set", result.Failures)
	}
}

func TestScanDataErrorAndDeletedTally(t *testing.T) {
	tr := plainTrack(0, 0, 3)
	tr.SFlag[0] = 0x05 // error
	tr.SFlag[1] = 0x03 // deleted
	r := buildSampleImage(t, []*Track{tr})

	result, err := Scan(r, DefaultScanOptions())
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	if result.DataError != 1 {
		t.Errorf("DataError = %d, expected 1", result.DataError)
	}
	if result.Deleted != 1 {
		t.Errorf("Deleted = %d, expected 1", result.Deleted)
	}
	if result.Failures&FailSflagDataErr == 0 || result.Failures&FailSflagDelDam == 0 {
		t.Errorf("Failures = 0x%04X, expected both FailSflagDataErr and FailSflagDelDam set", result.Failures)
	}
}

func TestScanFatalMaskAbortsEarly(t *testing.T) {
	tracks := []*Track{plainTrack(1, 0, 4), plainTrack(0, 0, 4)}
	r := buildSampleImage(t, tracks)

	opts := DefaultScanOptions()
	opts.FatalMask = FailSeqCylDec
	result, err := Scan(r, opts)
	if err == nil {
		t.Fatalf("Scan() with a fatal mask expected an error, got nil (result %+v)", result)
	}
}

func TestScanDetectsInvalidSflagValue(t *testing.T) {
	// WriteTrackIMD always re-derives a valid sflag via decideSectorFlag, so
	// an out-of-range byte on disk can only come from a raw/corrupted
	// stream; build the track record by hand rather than through the
	// normal write path.
	var buf bytes.Buffer
	if err := writeHeaderLine(&buf, "1.19"); err != nil {
		t.Fatalf("writeHeaderLine() error: %v", err)
	}
	if err := writeCommentBlock(&buf, []byte("test image")); err != nil {
		t.Fatalf("writeCommentBlock() error: %v", err)
	}
	// mode=3 cyl=0 head=0 nsec=2 ssize=0(128B) smap=[1,2] sflag0=0x01(data) sflag1=0x0A(invalid,even)
	buf.Write([]byte{3, 0, 0, 2, 0, 1, 2})
	buf.Write([]byte{0x01})
	buf.Write(make([]byte, 128))
	buf.Write([]byte{0x0A, 0xE5})
	r := bytes.NewReader(buf.Bytes())

	result, err := Scan(r, DefaultScanOptions())
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	if result.Failures&FailInvSflagValue == 0 {
		t.Errorf("Failures = 0x%04X, expected FailInvSflagValue set", result.Failures)
	}
}

func TestScanFtellFailureTripsFailFtell(t *testing.T) {
	base := buildSampleImage(t, []*Track{plainTrack(0, 0, 4)})
	fs := &failAfterSeeker{Reader: base, n: 0}

	result, err := Scan(fs, DefaultScanOptions())
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	if result.Failures&FailFtell == 0 {
		t.Errorf("Failures = 0x%04X, expected FailFtell set", result.Failures)
	}
}

func TestScanFtellFailureFatal(t *testing.T) {
	base := buildSampleImage(t, []*Track{plainTrack(0, 0, 4)})
	fs := &failAfterSeeker{Reader: base, n: 0}

	opts := DefaultScanOptions()
	opts.FatalMask = FailFtell
	if _, err := Scan(fs, opts); err == nil {
		t.Errorf("Scan() with FailFtell fatal expected an error, got nil")
	}
}

func TestScanConstraintViolation(t *testing.T) {
	r := buildSampleImage(t, []*Track{plainTrack(5, 0, 4)})

	opts := DefaultScanOptions()
	opts.MaxCyl = 2
	result, err := Scan(r, opts)
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	if result.Failures&FailConCyl == 0 {
		t.Errorf("Failures = 0x%04X, expected FailConCyl set", result.Failures)
	}
}
