package imd

import "testing"

func TestDetectInterleaveIdentity(t *testing.T) {
	smap := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	if got := DetectInterleave(smap); got != 1 {
		t.Errorf("DetectInterleave(identity) = %d, expected 1", got)
	}
}

func TestDetectInterleaveFactorTwo(t *testing.T) {
	smap := []byte{1, 5, 2, 6, 3, 7, 4, 8}
	if got := DetectInterleave(smap); got != 2 {
		t.Errorf("DetectInterleave(%v) = %d, expected 2", smap, got)
	}
}

func TestApplyInterleaveFactorTwo(t *testing.T) {
	track := &Track{
		NumSectors: 8,
		SectorSize: 1,
		SMap:       []byte{1, 2, 3, 4, 5, 6, 7, 8},
		CMap:       make([]byte, 8),
		HMap:       make([]byte, 8),
		SFlag:      make([]byte, 8),
		Data:       []byte{1, 2, 3, 4, 5, 6, 7, 8},
		Loaded:     true,
	}
	if err := ApplyInterleave(track, 2); err != nil {
		t.Fatalf("ApplyInterleave() error: %v", err)
	}
	want := []byte{1, 5, 2, 6, 3, 7, 4, 8}
	for i, v := range want {
		if track.SMap[i] != v {
			t.Errorf("SMap[%d] = %d, expected %d (full SMap %v)", i, track.SMap[i], v, track.SMap)
			break
		}
	}
	// Data should have moved together with the sector IDs.
	for i, v := range want {
		if track.Data[i] != v {
			t.Errorf("Data[%d] = %d, expected %d (data must follow its sector's new position)", i, track.Data[i], v)
			break
		}
	}
}

func TestApplyInterleaveFactorOneIsIdempotentOnSecondApplication(t *testing.T) {
	track := &Track{
		NumSectors: 8,
		SectorSize: 1,
		SMap:       []byte{1, 5, 2, 6, 3, 7, 4, 8},
		CMap:       make([]byte, 8),
		HMap:       make([]byte, 8),
		SFlag:      make([]byte, 8),
		Data:       make([]byte, 8),
		Loaded:     true,
	}
	if err := ApplyInterleave(track, 1); err != nil {
		t.Fatalf("first ApplyInterleave(k=1) error: %v", err)
	}
	afterFirst := append([]byte(nil), track.SMap...)

	if err := ApplyInterleave(track, 1); err != nil {
		t.Fatalf("second ApplyInterleave(k=1) error: %v", err)
	}
	for i, v := range afterFirst {
		if track.SMap[i] != v {
			t.Errorf("second k=1 application changed SMap[%d]: %d -> %d, expected idempotence", i, v, track.SMap[i])
		}
	}
}

func TestApplyInterleaveRejectsUnloadedOrTooFewSectors(t *testing.T) {
	if err := ApplyInterleave(&Track{Loaded: false}, 1); err == nil {
		t.Errorf("ApplyInterleave() on an unloaded track expected an error, got nil")
	}
	if err := ApplyInterleave(&Track{Loaded: true, NumSectors: 1}, 1); err == nil {
		t.Errorf("ApplyInterleave() on a single-sector track expected an error, got nil")
	}
}
