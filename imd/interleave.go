package imd

import "sort"

// DetectInterleave guesses the interleave factor that produced smap, by
// tallying the forward distance (mod n) between each pair of
// consecutively-numbered logical sectors, including the wrap from the
// largest ID back to the smallest, and returning the most common
// distance. Ties are broken by the smallest distance (spec 4.5).
//
// Duplicate logical IDs are tolerated: a later occurrence simply
// overwrites an earlier one's recorded position (spec's open question,
// preserved here rather than tightened into an error).
func DetectInterleave(smap []byte) int {
	n := len(smap)
	if n < 2 {
		return 1
	}

	pos := make(map[byte]int, n)
	for i, id := range smap {
		pos[id] = i
	}

	ids := make([]byte, 0, len(pos))
	for id := range pos {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	tally := make(map[int]int)
	m := len(ids)
	for i := 0; i < m; i++ {
		a, b := ids[i], ids[(i+1)%m]
		dist := ((pos[b]-pos[a])%n + n) % n
		if dist == 0 {
			continue
		}
		tally[dist]++
	}

	best, bestCount := 1, -1
	distances := make([]int, 0, len(tally))
	for d := range tally {
		distances = append(distances, d)
	}
	sort.Ints(distances) // ascending, so ties favor the smallest distance
	for _, d := range distances {
		if tally[d] > bestCount {
			bestCount = tally[d]
			best = d
		}
	}
	return best
}

// placeInterleaved returns, for a canonical logical order of n entries,
// the physical position each should land at: starting at start, advancing
// by step (mod n) each time, skipping positions already taken. This is
// the placement primitive shared by ApplyInterleave (start=0) and
// Image.FormatTrack (start=skew).
func placeInterleaved(n, step, start int) []int {
	taken := make([]bool, n)
	target := make([]int, n)
	pos := ((start % n) + n) % n
	for i := 0; i < n; i++ {
		for taken[pos] {
			pos = (pos + 1) % n
		}
		target[i] = pos
		taken[pos] = true
		pos = (pos + step) % n
	}
	return target
}

// ApplyInterleave reorders t's maps and data in place so that the
// logically i-th smallest sector ID lands at the physical position
// placeInterleaved(n, k, 0)[i]. Applying k=1 twice in a row is a no-op
// the second time (idempotent in the f(f(x))==f(x) sense): the first
// application sorts physical order to match ascending logical order,
// and re-sorting an already-sorted order changes nothing.
func ApplyInterleave(t *Track, k int) error {
	if !t.Loaded {
		return newError(CodeInvalidArg, "track is not loaded", nil)
	}
	n := t.NumSectors
	if k < 1 {
		return newErrorf(CodeInvalidArg, "invalid interleave factor %d", k)
	}
	if n < 2 {
		return newError(CodeInvalidArg, "track has fewer than two sectors", nil)
	}

	type origin struct {
		id  byte
		idx int
	}
	origins := make([]origin, n)
	for i := 0; i < n; i++ {
		origins[i] = origin{t.SMap[i], i}
	}
	sort.SliceStable(origins, func(i, j int) bool { return origins[i].id < origins[j].id })

	target := placeInterleaved(n, k, 0)

	origSMap := t.SMap
	origCMap := t.CMap
	origHMap := t.HMap
	origSFlag := t.SFlag
	origData := t.Data

	newSMap := make([]byte, n)
	newCMap := make([]byte, n)
	newHMap := make([]byte, n)
	newSFlag := make([]byte, n)
	newData := make([]byte, len(origData))

	for i := 0; i < n; i++ {
		src := origins[i].idx
		dst := target[i]
		newSMap[dst] = origSMap[src]
		newCMap[dst] = origCMap[src]
		newHMap[dst] = origHMap[src]
		newSFlag[dst] = origSFlag[src]
		copy(newData[dst*t.SectorSize:(dst+1)*t.SectorSize], origData[src*t.SectorSize:(src+1)*t.SectorSize])
	}

	t.SMap, t.CMap, t.HMap, t.SFlag, t.Data = newSMap, newCMap, newHMap, newSFlag, newData
	return nil
}
