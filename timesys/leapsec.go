package timesys

import "sort"

type leapEntry struct {
	stdMJD float64 // UTC date (standard MJD) from which ΔAT applies
	ΔAT    float64
}

// IERS Bulletin C, up to the 2017-01-01 leap second.
var leapTable = []leapEntry{
	{41317, 10}, {41499, 11}, {41683, 12}, {42048, 13}, {42413, 14}, {42778, 15},
	{43144, 16}, {43509, 17}, {43874, 18}, {44239, 19}, {44786, 20}, {45151, 21},
	{45516, 22}, {46247, 23}, {47161, 24}, {47892, 25}, {48257, 26}, {48804, 27},
	{49169, 28}, {49534, 29}, {50083, 30}, {50630, 31}, {51179, 32}, {53736, 33},
	{54832, 34}, {56109, 35}, {57204, 36}, {57754, 37},
}

// LeapSeconds returns TAI - UTC in seconds for a UTC epoch.
// Epochs before 1972 are clamped to the first entry of the table.
func LeapSeconds(utc Epoch) float64 {
	mjd := float64(utc) + stdMJDOffset
	idx := sort.Search(len(leapTable), func(i int) bool {
		return leapTable[i].stdMJD > mjd
	})
	if idx == 0 {
		return leapTable[0].ΔAT
	}
	return leapTable[idx-1].ΔAT
}
