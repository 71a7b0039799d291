package flat

import (
	"sort"
)

// Scan marks adjacent flats in every bucket and returns how many flats were
// marked. The first write error stops the scan.
func Scan(buckets Buckets) (int, error) {
	marked := 0
	for _, key := range buckets.Keys() {
		n, err := ScanBucket(buckets[key])
		marked += n
		if err != nil {
			return marked, err
		}
	}
	return marked, nil
}

// ScanBucket sorts the flats of one group by number and walks consecutive
// pairs. When flat i and i+1 are consecutive, flat i is marked and i+1 is
// consumed; if i+1's successor is the last flat and is also consecutive,
// that last flat is marked as well. A run 10..14 therefore marks 10, 12
// and 14, and a run 10..13 marks 10 and 12.
func ScanBucket(flats []*Flat) (int, error) {
	if len(flats) < 2 {
		return 0, nil
	}
	sorted := make([]*Flat, len(flats))
	copy(sorted, flats)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Number < sorted[j].Number })

	marked := 0
	mark := func(f *Flat) error {
		wasMarked := f.IsSemitone()
		if _, err := f.SetSemitone(); err != nil {
			return err
		}
		if !wasMarked {
			marked++
		}
		return nil
	}

	n := len(sorted)
	for i := 0; i < n-1; i++ {
		if sorted[i+1].Number-sorted[i].Number != 1 {
			continue
		}
		if err := mark(sorted[i]); err != nil {
			return marked, err
		}
		i++
		if n-1 == i+1 && sorted[i+1].Number-sorted[i].Number == 1 {
			if err := mark(sorted[i+1]); err != nil {
				return marked, err
			}
		}
	}
	return marked, nil
}
