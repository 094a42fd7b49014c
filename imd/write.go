package imd

import "io"

// WriteTrackIMD emits one track record in IMD wire format: the 5-byte
// header (with a translated mode and combined head|hflag), the present
// maps, then each sector's freshly-decided flag and body. The source
// track is not mutated; interleave (if requested) is applied to a working
// copy first (spec 4.3).
func WriteTrackIMD(w io.Writer, t *Track, opts WriteOptions) error {
	if !t.Loaded {
		return newError(CodeInvalidArg, "track is not loaded", nil)
	}
	if t.NumSectors > 255 {
		return newErrorf(CodeInvalidArg, "track has %d sectors, cannot encode in one byte", t.NumSectors)
	}

	work := t.Clone()
	if err := applyWriteInterleave(work, opts.Interleave); err != nil {
		return err
	}

	mode := work.Mode
	modeMap := opts.effectiveModeMap()
	if int(work.Mode) < len(modeMap) {
		mode = modeMap[work.Mode]
	}

	headByte := work.Head | work.HFlag
	header := []byte{mode, work.Cyl, headByte, byte(work.NumSectors), work.SectorSizeCode}
	if err := writeExact(w, header); err != nil {
		return err
	}
	if err := writeExact(w, work.SMap); err != nil {
		return err
	}
	if work.HFlag&HFlagCMapPresent != 0 {
		if err := writeExact(w, work.CMap); err != nil {
			return err
		}
	}
	if work.HFlag&HFlagHMapPresent != 0 {
		if err := writeExact(w, work.HMap); err != nil {
			return err
		}
	}

	for i := 0; i < work.NumSectors; i++ {
		sector := work.SectorData(i)
		outFlag := decideSectorFlag(work.SFlag[i], sector, opts)
		if err := writeExact(w, []byte{outFlag}); err != nil {
			return err
		}
		switch {
		case outFlag == 0x00:
			// no body
		case IsCompressed(outFlag):
			fill, _ := isUniform(sector)
			if err := writeExact(w, []byte{fill}); err != nil {
				return err
			}
		default:
			if err := writeExact(w, sector); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteTrackBin emits only the track's (possibly interleaved) sector data
// bytes in physical order, with no IMD framing.
func WriteTrackBin(w io.Writer, t *Track, interleave int) error {
	if t.NumSectors > 0 && (t.Data == nil || len(t.Data) != t.NumSectors*t.SectorSize) {
		return newErrorf(CodeInvalidArg, "track has %d sectors but no matching data buffer", t.NumSectors)
	}
	work := t.Clone()
	if err := applyWriteInterleave(work, interleave); err != nil {
		return err
	}
	return writeExact(w, work.Data)
}

// applyWriteInterleave implements the three-way sentinel used throughout
// WriteTrackIMD/WriteTrackBin: 0 = as-read (no change), 255 =
// best-guess (detect then apply), anything else = apply that factor.
func applyWriteInterleave(t *Track, interleave int) error {
	switch interleave {
	case 0:
		return nil
	case 255:
		factor := DetectInterleave(t.SMap)
		return ApplyInterleave(t, factor)
	default:
		return ApplyInterleave(t, interleave)
	}
}
