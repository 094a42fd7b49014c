package imd

import (
	"errors"
	"io"
	"os"
	"sort"
)

// geometryUnset is the "disabled" sentinel for a soft-geometry limit.
const geometryUnset = 0xFF

// Geometry is the image's soft geometry limits (spec 4.6). A field set to
// 0xFF disables that particular check.
type Geometry struct {
	MaxCyl  int
	MaxHead int
	MaxSpt  int
}

// DefaultFillByte is used by Open when the caller does not override it.
const DefaultFillByte = 0xE5

// initialTrackCapacity mirrors the original tool's growable track vector,
// which started at 80 entries and doubled on demand. Go's append already
// grows a slice geometrically, so this is only a starting hint.
const initialTrackCapacity = 80

// Image is the in-memory model of an open IMD file: its header, comment,
// ordered track vector, geometry limits, and write-protect state (spec
// section 3). It owns the backing file handle between Open and Close.
type Image struct {
	file     *os.File
	path     string
	readOnly bool

	header  *HeaderInfo
	comment []byte
	tracks  []*Track

	geometry     Geometry
	writeProtect bool
	fillByte     byte
}

// Open parses an IMD file's header and comment, then loads every track
// (spec 4.6). The file handle is kept open for subsequent rewrites.
func Open(path string, readOnly bool) (*Image, error) {
	return OpenWithFillByte(path, readOnly, DefaultFillByte)
}

// OpenWithFillByte is Open with an explicit fill byte for unavailable
// sectors, instead of the default 0xE5.
func OpenWithFillByte(path string, readOnly bool, fillByte byte) (*Image, error) {
	var file *os.File
	var err error
	if readOnly {
		file, err = os.Open(path)
	} else {
		file, err = os.OpenFile(path, os.O_RDWR, 0)
	}
	if err != nil {
		return nil, newError(CodeCannotOpen, "open image file", err)
	}

	img := &Image{
		file:     file,
		path:     path,
		readOnly: readOnly,
		geometry: Geometry{MaxCyl: geometryUnset, MaxHead: geometryUnset, MaxSpt: geometryUnset},
		fillByte: fillByte,
	}

	header, err := readHeaderLine(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	img.header = header

	comment, err := readComment(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	img.comment = comment

	tracks := make([]*Track, 0, initialTrackCapacity)
	for {
		t, err := LoadTrack(file, img.fillByte)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			file.Close()
			return nil, err
		}
		tracks = append(tracks, t)
	}
	img.tracks = tracks

	return img, nil
}

// Create writes a fresh, empty IMD file (header line plus an empty
// comment block, no tracks) at path and opens it for reading and
// writing, for use by callers like `imdtool format` that build up a new
// image one FormatTrack call at a time.
func Create(path string, version string) (*Image, error) {
	if version == "" {
		version = DefaultVersion
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, newError(CodeCannotOpen, "create image file", err)
	}
	if err := writeHeaderLine(f, version); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeCommentBlock(f, nil); err != nil {
		f.Close()
		return nil, err
	}
	f.Close()

	return Open(path, false)
}

// Close releases the track vector, comment, and header, and closes the
// backing handle.
func (img *Image) Close() error {
	if img.file == nil {
		return nil
	}
	err := img.file.Close()
	img.file = nil
	img.tracks = nil
	img.comment = nil
	img.header = nil
	if err != nil {
		return newError(CodeIO, "close image file", err)
	}
	return nil
}

// Path returns the backing file's path.
func (img *Image) Path() string { return img.path }

// Version returns the header's version string ("Unknown" if unrecoverable).
func (img *Image) Version() string { return img.header.Version }

// Comment returns the raw comment bytes (excluding the terminator).
func (img *Image) Comment() []byte { return img.comment }

// Tracks returns the ordered, read-only track vector. Callers must not
// mutate the returned tracks directly; use WriteSector/WriteTrack.
func (img *Image) Tracks() []*Track { return img.tracks }

// SetGeometry sets the soft-geometry limits; 0xFF disables a given check.
func (img *Image) SetGeometry(maxCyl, maxHead, maxSpt int) {
	img.geometry = Geometry{MaxCyl: maxCyl, MaxHead: maxHead, MaxSpt: maxSpt}
}

// GetGeometry returns the current soft-geometry limits.
func (img *Image) GetGeometry() Geometry { return img.geometry }

func (img *Image) checkGeometry(cyl, head byte, numSectors int) error {
	g := img.geometry
	if g.MaxCyl != geometryUnset && int(cyl) > g.MaxCyl {
		return newErrorf(CodeGeometry, "cylinder %d exceeds max %d", cyl, g.MaxCyl)
	}
	if g.MaxHead != geometryUnset && int(head) > g.MaxHead {
		return newErrorf(CodeGeometry, "head %d exceeds max %d", head, g.MaxHead)
	}
	if g.MaxSpt != geometryUnset && numSectors > g.MaxSpt {
		return newErrorf(CodeGeometry, "sector count %d exceeds max %d", numSectors, g.MaxSpt)
	}
	return nil
}

// WriteProtected reports the image's current write-protect state.
func (img *Image) WriteProtected() bool { return img.writeProtect }

// SetWriteProtect sets the write-protect bit. Disabling it fails with
// WriteProtected if the backing handle was opened read-only.
func (img *Image) SetWriteProtect(protect bool) error {
	if !protect && img.readOnly {
		return newError(CodeWriteProtected, "cannot clear write-protect on a read-only handle", nil)
	}
	img.writeProtect = protect
	return nil
}

func (img *Image) findTrack(cyl, head byte) (int, bool) {
	i := sort.Search(len(img.tracks), func(i int) bool {
		t := img.tracks[i]
		if t.Cyl != cyl {
			return t.Cyl >= cyl
		}
		return t.Head >= head
	})
	if i < len(img.tracks) && img.tracks[i].Cyl == cyl && img.tracks[i].Head == head {
		return i, true
	}
	return i, false
}

// insertTrackAt inserts t into the sorted track vector at index i,
// growing the vector's backing array as needed (Go's append already
// doubles capacity; see initialTrackCapacity).
func (img *Image) insertTrackAt(i int, t *Track) {
	img.tracks = append(img.tracks, nil)
	copy(img.tracks[i+1:], img.tracks[i:])
	img.tracks[i] = t
}

// ReadSector copies the named logical sector's data into buf. Unavailable
// sectors (sflag 0x00) fail with Unavailable.
func (img *Image) ReadSector(cyl, head, sectorID byte, buf []byte) error {
	idx, ok := img.findTrack(cyl, head)
	if !ok {
		return newErrorf(CodeNotFound, "track cyl=%d head=%d not found", cyl, head)
	}
	t := img.tracks[idx]
	if err := img.checkGeometry(cyl, head, t.NumSectors); err != nil {
		return err
	}

	pos := indexOfSector(t.SMap, sectorID)
	if pos < 0 {
		return newErrorf(CodeNotFound, "sector %d not found on cyl=%d head=%d", sectorID, cyl, head)
	}
	if t.SFlag[pos] == 0x00 {
		return newError(CodeUnavailable, "sector is unavailable", nil)
	}
	if len(buf) < t.SectorSize {
		return newErrorf(CodeBufferSize, "buffer of %d bytes is smaller than sector size %d", len(buf), t.SectorSize)
	}
	copy(buf, t.SectorData(pos))
	return nil
}

// WriteSector overwrites the named logical sector's data and persists the
// change by a full rewrite (spec 4.6). If the sector was compressed and
// the new bytes break uniformity, the whole track is decompressed on
// disk; otherwise the rewrite keeps every other track as-read.
func (img *Image) WriteSector(cyl, head, sectorID byte, data []byte) error {
	if img.writeProtect {
		return ErrWriteProtected
	}
	idx, ok := img.findTrack(cyl, head)
	if !ok {
		return newErrorf(CodeNotFound, "track cyl=%d head=%d not found", cyl, head)
	}
	t := img.tracks[idx]
	if err := img.checkGeometry(cyl, head, t.NumSectors); err != nil {
		return err
	}
	if len(data) != t.SectorSize {
		return newErrorf(CodeSectorSize, "write buffer is %d bytes, sector size is %d", len(data), t.SectorSize)
	}

	pos := indexOfSector(t.SMap, sectorID)
	if pos < 0 {
		return newErrorf(CodeNotFound, "sector %d not found on cyl=%d head=%d", sectorID, cyl, head)
	}

	origFlag := t.SFlag[pos]
	copy(t.SectorData(pos), data)

	if IsCompressed(origFlag) {
		if _, uniform := isUniform(t.SectorData(pos)); !uniform {
			if err := img.rewrite(idx, WriteOptions{Compression: CompressionForceDecompress}); err != nil {
				return err
			}
			for i := range t.SFlag {
				if t.SFlag[i] == 0x00 {
					continue
				}
				t.SFlag[i] = combineSectorFlag(false, HasDAM(t.SFlag[i]), HasErr(t.SFlag[i]))
			}
			return nil
		}
	}

	if err := img.rewrite(idx, DefaultWriteOptions()); err != nil {
		return err
	}
	t.SFlag[pos] = decideSectorFlag(origFlag, t.SectorData(pos), DefaultWriteOptions())
	return nil
}

// WriteTrack creates or overwrites a whole track at (cyl, head). smap,
// cmap, and hmap may be nil/empty to use defaults: smap defaults to
// 1..numSectors, cmap/hmap default to not-present (and so not emitted).
// The track is filled with fillByte and then rewritten with
// force-compress, which adjusts the sectors' in-memory sflag to reflect
// which ones came out uniform (spec 4.6).
func (img *Image) WriteTrack(cyl, head, mode byte, numSectors, sectorSize int, smap, cmap, hmap []byte, fillByte byte) error {
	if img.writeProtect {
		return ErrWriteProtected
	}
	sizeCode, ok := sizeCodeFor(sectorSize)
	if !ok {
		return newErrorf(CodeSectorSize, "invalid sector size %d", sectorSize)
	}
	if err := img.checkGeometry(cyl, head, numSectors); err != nil {
		return err
	}

	t := &Track{
		Mode:           mode,
		Cyl:            cyl,
		Head:           head & 0x0F,
		NumSectors:     numSectors,
		SectorSizeCode: sizeCode,
		SectorSize:     sectorSize,
		Loaded:         true,
	}

	if len(smap) == numSectors {
		t.SMap = append([]byte(nil), smap...)
	} else {
		t.SMap = make([]byte, numSectors)
		for i := range t.SMap {
			t.SMap[i] = byte(i + 1)
		}
	}

	if len(cmap) == numSectors {
		t.CMap = append([]byte(nil), cmap...)
		t.HFlag |= HFlagCMapPresent
	} else {
		t.CMap = make([]byte, numSectors)
		fillSlice(t.CMap, cyl)
	}

	if len(hmap) == numSectors {
		t.HMap = append([]byte(nil), hmap...)
		t.HFlag |= HFlagHMapPresent
	} else {
		t.HMap = make([]byte, numSectors)
		fillSlice(t.HMap, t.Head)
	}

	t.Data = make([]byte, numSectors*sectorSize)
	fillSlice(t.Data, fillByte)
	t.SFlag = make([]byte, numSectors)
	for i := range t.SFlag {
		t.SFlag[i] = 0x01 // normal until the force-compress rewrite below adjusts it
	}

	idx, existing := img.findTrack(cyl, head)
	if existing {
		img.tracks[idx] = t
	} else {
		img.insertTrackAt(idx, t)
	}

	if err := img.rewrite(idx, WriteOptions{Compression: CompressionForceCompress}); err != nil {
		return err
	}
	for i := 0; i < numSectors; i++ {
		if _, uniform := isUniform(t.SectorData(i)); uniform {
			t.SFlag[i] = 0x02
		} else {
			t.SFlag[i] = 0x01
		}
	}
	return nil
}

// FormatTrack lays out a fresh track with the given interleave and skew,
// then behaves like WriteTrack with the generated smap (spec 4.6).
func (img *Image) FormatTrack(cyl, head, mode byte, numSectors, sectorSize int, firstSectorID byte, interleave, skew int, fillByte byte) error {
	if interleave < 1 {
		return newErrorf(CodeInvalidArg, "invalid interleave factor %d", interleave)
	}
	if numSectors < 1 {
		return newError(CodeInvalidArg, "numSectors must be positive", nil)
	}

	var smap []byte
	if numSectors == 1 {
		smap = []byte{firstSectorID}
	} else {
		target := placeInterleaved(numSectors, interleave, skew)
		smap = make([]byte, numSectors)
		for i := 0; i < numSectors; i++ {
			smap[target[i]] = firstSectorID + byte(i)
		}
	}

	return img.WriteTrack(cyl, head, mode, numSectors, sectorSize, smap, nil, nil, fillByte)
}

// indexOfSector returns the physical index where smap holds id, or -1.
func indexOfSector(smap []byte, id byte) int {
	for i, v := range smap {
		if v == id {
			return i
		}
	}
	return -1
}

// rewrite persists the whole image by seeking to 0, writing the header
// and comment, writing every track (special receives specialOpts, all
// others get DefaultWriteOptions), flushing, and truncating to the final
// length. A truncation failure is logged, not propagated (spec 4.6/4.7).
func (img *Image) rewrite(special int, specialOpts WriteOptions) error {
	if _, err := img.file.Seek(0, io.SeekStart); err != nil {
		return newError(CodeSeekError, "seek to start for rewrite", err)
	}

	version := img.header.Version
	if version == "" || version == "Unknown" {
		version = DefaultVersion
	}
	if err := writeHeaderLine(img.file, version); err != nil {
		return err
	}
	if err := writeCommentBlock(img.file, img.comment); err != nil {
		return err
	}

	for i, t := range img.tracks {
		opts := DefaultWriteOptions()
		if i == special {
			opts = specialOpts
		}
		if err := WriteTrackIMD(img.file, t, opts); err != nil {
			return err
		}
	}

	if err := img.file.Sync(); err != nil {
		return newError(CodeIO, "flush rewrite", err)
	}
	pos, err := img.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return newError(CodeSeekError, "tell after rewrite", err)
	}
	if err := img.file.Truncate(pos); err != nil {
		DefaultReporter.Warnf("imd: truncate to %d bytes failed: %v", pos, err)
	}
	return nil
}
