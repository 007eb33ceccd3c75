package goal

import (
	"strings"

	"github.com/arbovm/levenshtein"
	"github.com/codycollier/wer"
)

// Suggest returns the preset an off-topic goal was most likely meant to be,
// e.g. "Lot Resorces" -> "Loot Resources". Presets are ranked by word error
// rate; the best one is only offered when its character edit distance is
// within a third of the preset's length. Suggest never changes what Validate
// accepts.
func Suggest(goal string) (string, bool) {
	lower := strings.Join(strings.Fields(strings.ToLower(goal)), " ")
	if lower == "" {
		return "", false
	}
	candidate := strings.Fields(lower)

	best := ""
	bestRate := 0.0
	bestDistance := 0
	for _, preset := range presets {
		p := strings.ToLower(preset)
		rate, _ := wer.WER(strings.Fields(p), candidate)
		distance := levenshtein.Distance(lower, p)

		if best == "" || rate < bestRate || (rate == bestRate && distance < bestDistance) {
			best, bestRate, bestDistance = preset, rate, distance
		}
	}

	if bestDistance == 0 || bestDistance > len(best)/3 {
		return "", false
	}
	return best, true
}
