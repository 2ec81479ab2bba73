package catalog

import "strings"

// qualityRanks orders stream qualities: 4K > FHD > HD > SD > CAM.
var qualityRanks = map[string]int{
	"4K":  5,
	"FHD": 4,
	"HD":  3,
	"SD":  2,
	"CAM": 1,
}

// QualityRank maps a quality label to its ordinal; unknown labels rank 0 so
// any recognized quality beats them.
func QualityRank(q string) int {
	return qualityRanks[strings.ToUpper(strings.TrimSpace(q))]
}

// BetterQuality returns whichever of a and b ranks higher, preferring a on
// ties so an established value is not churned for no gain.
func BetterQuality(a, b string) string {
	if QualityRank(b) > QualityRank(a) {
		return b
	}
	if a == "" {
		return b
	}
	return a
}
