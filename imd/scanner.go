package imd

import (
	"errors"
	"io"
)

// Failure bits set on a ScanResult, one per consistency check (spec 4.7).
// FatalMask lets a caller decide which of these should abort the scan
// rather than merely being counted.
const (
	FailHeader uint32 = 1 << iota
	FailCommentTerm
	FailTrackRead
	FailFtell
	FailConCyl
	FailConHead
	FailConSectors
	FailSeqCylDec
	FailSeqHeadOrder
	FailDupeSid
	FailInvSflagValue
	FailSflagDataErr
	FailSflagDelDam
	FailDiffMaxCyl
)

// ScanOptions bounds the scan's geometry constraints and tells it which
// failure bits are fatal. A negative limit disables the corresponding
// constraint check.
type ScanOptions struct {
	FatalMask    uint32
	MaxCyl       int
	RequiredHead int
	MaxSectors   int
}

// DefaultScanOptions leaves every constraint unconstrained and nothing
// fatal; the scan always runs to completion and just reports.
func DefaultScanOptions() ScanOptions {
	return ScanOptions{MaxCyl: -1, RequiredHead: -1, MaxSectors: -1}
}

// ScanResult tallies everything the scanner observed across the image
// (spec 4.7): cumulative Sector Data Record statistics, the highest
// cylinder seen per side, and the interleave factor detected on the
// first track.
type ScanResult struct {
	Failures uint32

	TrackCount   int
	TotalSectors int

	Unavailable int
	Deleted     int
	Compressed  int
	DataError   int

	MaxCylSide0     int
	MaxCylSide1     int
	MaxHead         int
	FirstInterleave int
}

func newScanResult() *ScanResult {
	return &ScanResult{MaxCylSide0: -1, MaxCylSide1: -1, MaxHead: -1, FirstInterleave: -1}
}

// trip records bit in the result and reports whether it falls within
// opts.FatalMask, letting callers short-circuit per-track work once a
// fatal condition has been recorded.
func (r *ScanResult) trip(opts ScanOptions, bit uint32) bool {
	r.Failures |= bit
	return opts.FatalMask&bit != 0
}

// Scan walks an IMD stream track by track, using ReadTrackHeaderAndFlags
// so sector bodies are skipped rather than allocated, and accumulates a
// ScanResult describing the image's structural health (spec 4.7). It
// returns an error only when a fatal condition (per opts.FatalMask) or an
// unrecoverable read error aborts the walk early; non-fatal findings are
// recorded in the result and the scan continues.
func Scan(rs io.ReadSeeker, opts ScanOptions) (*ScanResult, error) {
	res := newScanResult()

	if _, err := readHeaderLine(rs); err != nil {
		res.trip(opts, FailHeader)
		return res, err
	}
	if _, err := readComment(rs); err != nil {
		res.trip(opts, FailCommentTerm)
		return res, err
	}

	prevCyl := -1
	prevHead := -1

	for {
		if _, err := rs.Seek(0, io.SeekCurrent); err != nil {
			if res.trip(opts, FailFtell) {
				return res, newErrorf(CodeSeekError, "cannot determine stream position: %v", err)
			}
			break
		}

		t, err := ReadTrackHeaderAndFlags(rs)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if res.trip(opts, FailTrackRead) {
				return res, err
			}
			break
		}

		res.TrackCount++
		res.TotalSectors += t.NumSectors

		if opts.MaxCyl >= 0 && int(t.Cyl) > opts.MaxCyl {
			if res.trip(opts, FailConCyl) {
				return res, newErrorf(CodeReadError, "cylinder %d exceeds max %d", t.Cyl, opts.MaxCyl)
			}
		}
		if opts.RequiredHead >= 0 && int(t.Head) != opts.RequiredHead {
			if res.trip(opts, FailConHead) {
				return res, newErrorf(CodeReadError, "head %d does not match required %d", t.Head, opts.RequiredHead)
			}
		}
		if opts.MaxSectors >= 0 && t.NumSectors > opts.MaxSectors {
			if res.trip(opts, FailConSectors) {
				return res, newErrorf(CodeReadError, "sector count %d exceeds max %d", t.NumSectors, opts.MaxSectors)
			}
		}

		if int(t.Cyl) < prevCyl {
			if res.trip(opts, FailSeqCylDec) {
				return res, newErrorf(CodeReadError, "cylinder %d follows cylinder %d out of order", t.Cyl, prevCyl)
			}
		}
		if int(t.Cyl) == prevCyl && int(t.Head) <= prevHead {
			if res.trip(opts, FailSeqHeadOrder) {
				return res, newErrorf(CodeReadError, "head %d out of order at cylinder %d", t.Head, t.Cyl)
			}
		}
		if int(t.Cyl) != prevCyl {
			prevHead = -1
		}
		prevCyl = int(t.Cyl)
		prevHead = int(t.Head)

		seen := make(map[byte]bool, t.NumSectors)
		for _, id := range t.SMap {
			if seen[id] {
				if res.trip(opts, FailDupeSid) {
					return res, newErrorf(CodeReadError, "duplicate sector id %d at cyl=%d head=%d", id, t.Cyl, t.Head)
				}
			}
			seen[id] = true
		}

		for _, flag := range t.SFlag {
			if flag > 0x08 {
				if res.trip(opts, FailInvSflagValue) {
					return res, newErrorf(CodeReadError, "invalid sflag 0x%02X at cyl=%d head=%d", flag, t.Cyl, t.Head)
				}
			}
			if !HasData(flag) {
				res.Unavailable++
				continue
			}
			if IsCompressed(flag) {
				res.Compressed++
			}
			if HasErr(flag) {
				res.DataError++
				if res.trip(opts, FailSflagDataErr) {
					return res, newErrorf(CodeReadError, "data error sflag at cyl=%d head=%d", t.Cyl, t.Head)
				}
			}
			if HasDAM(flag) {
				res.Deleted++
				if res.trip(opts, FailSflagDelDam) {
					return res, newErrorf(CodeReadError, "deleted-address-mark sflag at cyl=%d head=%d", t.Cyl, t.Head)
				}
			}
		}

		if res.FirstInterleave < 0 {
			res.FirstInterleave = DetectInterleave(t.SMap)
		}

		switch t.Head {
		case 0:
			if int(t.Cyl) > res.MaxCylSide0 {
				res.MaxCylSide0 = int(t.Cyl)
			}
		case 1:
			if int(t.Cyl) > res.MaxCylSide1 {
				res.MaxCylSide1 = int(t.Cyl)
			}
		}
		if int(t.Head) > res.MaxHead {
			res.MaxHead = int(t.Head)
		}
	}

	if res.MaxCylSide0 >= 0 && res.MaxCylSide1 >= 0 && res.MaxCylSide0 != res.MaxCylSide1 {
		res.trip(opts, FailDiffMaxCyl)
	}

	return res, nil
}
