package imd

// CompressionMode selects how WriteTrackIMD decides between a
// compressed (one fill byte) and full-data Sector Data Record (spec 4.4).
type CompressionMode int

const (
	// CompressionAsRead keeps a sector compressed if it was compressed on
	// input and is still uniform, decompresses it if editing broke
	// uniformity, and otherwise keeps a normal sector normal.
	CompressionAsRead CompressionMode = iota
	// CompressionForceCompress compresses any sector whose bytes are
	// currently uniform, regardless of how it arrived.
	CompressionForceCompress
	// CompressionForceDecompress always emits full sector data.
	CompressionForceDecompress
)

// ModeMap translates an input track mode (0-5) to an output mode on
// write. The zero value is not a valid map; use IdentityModeMap.
type ModeMap [6]byte

// IdentityModeMap returns the identity translation table.
func IdentityModeMap() ModeMap {
	return ModeMap{0, 1, 2, 3, 4, 5}
}

// WriteOptions controls WriteTrackIMD's per-sector policy (C4) and the
// interleave step applied beforehand (C5).
type WriteOptions struct {
	// Interleave: 0 means "as-read" (skip the interleave step), 255 means
	// "best-guess" (detect a factor from the current smap), any other
	// positive value is used directly as the interleave factor.
	Interleave int
	// ModeMap translates the track's mode on write. It is used only when
	// UseModeMap is set; otherwise the identity map applies (see
	// effectiveModeMap).
	ModeMap         ModeMap
	UseModeMap      bool
	Compression     CompressionMode
	ForceNonBad     bool // clears ERR regardless of input
	ForceNonDeleted bool // clears DAM regardless of input
}

// DefaultWriteOptions is the safe default used for every track in a
// rewrite except one the caller singles out: as-read compression,
// identity mode map, no forced flags, interleave as-read.
func DefaultWriteOptions() WriteOptions {
	return WriteOptions{Interleave: 0, Compression: CompressionAsRead}
}

func (o WriteOptions) effectiveModeMap() ModeMap {
	if o.UseModeMap {
		return o.ModeMap
	}
	return IdentityModeMap()
}

// decideSectorFlag computes the output Sector Data Record type for one
// sector given its input flag, its current (possibly edited) bytes, and
// the write options (spec 4.4).
func decideSectorFlag(inputFlag byte, data []byte, opts WriteOptions) byte {
	if inputFlag == 0x00 {
		return 0x00
	}

	var compressed bool
	switch opts.Compression {
	case CompressionForceCompress:
		_, compressed = isUniform(data)
	case CompressionForceDecompress:
		compressed = false
	default: // CompressionAsRead
		if IsCompressed(inputFlag) {
			_, compressed = isUniform(data)
		} else {
			compressed = false
		}
	}

	dam := HasDAM(inputFlag) && !opts.ForceNonDeleted
	errBit := HasErr(inputFlag) && !opts.ForceNonBad
	return combineSectorFlag(compressed, dam, errBit)
}

// sectorFlagTable is the canonical (base, DAM, ERR) -> sflag mapping from
// spec 4.4. Row 0 is normal, row 1 is compressed; column index packs
// DAM in bit 0 and ERR in bit 1.
var sectorFlagTable = [2][4]byte{
	{0x01, 0x03, 0x05, 0x07},
	{0x02, 0x04, 0x06, 0x08},
}

func combineSectorFlag(compressed, dam, errBit bool) byte {
	row := 0
	if compressed {
		row = 1
	}
	col := 0
	if dam {
		col |= 1
	}
	if errBit {
		col |= 2
	}
	return sectorFlagTable[row][col]
}
