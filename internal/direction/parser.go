package direction

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"go-attack-planner/pkg/models"
)

var (
	// "3 o'clock", "3 oclock", "3 o clock", "3 clock", "3 clcok". Hours outside
	// 1-12 never match because both alternatives are anchored on a word boundary.
	clockPattern = regexp.MustCompile(`(\b1[0-2]|\b[1-9])\s*o?\s*'?\s*(?:clock|clcok)\b`)

	// "7:30", "7.30". A numbered step followed by a count ("Step 1. 20
	// Barbarians") also reads as a time; that false positive is accepted.
	timePattern = regexp.MustCompile(`(\b1[0-2]|\b[1-9])\s*[:.]\s*(\d{2})\b`)

	diagonalWords = []wordRule{
		{regexp.MustCompile(`\bnorth[\s-]?west\b|\b(?:top|upper)[\s-]?left\b`), TopLeft},
		{regexp.MustCompile(`\bnorth[\s-]?east\b|\b(?:top|upper)[\s-]?right\b`), TopRight},
		{regexp.MustCompile(`\bsouth[\s-]?west\b|\b(?:bottom|lower)[\s-]?left\b`), BottomLeft},
		{regexp.MustCompile(`\bsouth[\s-]?east\b|\b(?:bottom|lower)[\s-]?right\b`), BottomRight},
	}

	plainWords = []wordRule{
		{regexp.MustCompile(`\b(?:north|top|upper)\b`), Top},
		{regexp.MustCompile(`\b(?:south|bottom|lower)\b`), Bottom},
		{regexp.MustCompile(`\b(?:east|right)\b`), Right},
		{regexp.MustCompile(`\b(?:west|left)\b`), Left},
	}

	apostrophes = strings.NewReplacer("’", "'", "‘", "'")
)

type wordRule struct {
	pattern   *regexp.Regexp
	direction Direction
}

// hourDirections maps a clock hour to its compass direction.
var hourDirections = map[int]Direction{
	12: Top, 3: Right, 6: Bottom, 9: Left,
	1: TopRight, 2: TopRight,
	4: BottomRight, 5: BottomRight,
	7: BottomLeft, 8: BottomLeft,
	10: TopLeft, 11: TopLeft,
}

// halfHourDirections replaces the cardinal hours when the minutes point
// halfway to the next diagonal.
var halfHourDirections = map[int]Direction{
	12: TopRight, 3: BottomRight, 6: BottomLeft, 9: TopLeft,
}

// Extract returns the directions mentioned in text.
//
// Explicit clock notation wins outright: when any "N o'clock" or "H:MM" form is
// present the compass words are not consulted at all. Otherwise every compass
// word found is added, with a diagonal phrase ("north west", "top left")
// consuming its component words.
func Extract(text string) Set {
	lower := Normalize(text)

	dirs := clockDirections(lower)
	if dirs.Len() > 0 {
		return dirs
	}
	return wordDirections(lower)
}

// ExtractPhase parses a phase's description together with its troop list.
func ExtractPhase(phase models.Phase) Set {
	return Extract(PhaseText(phase))
}

// PhaseText is the text a phase's markers are derived from.
func PhaseText(phase models.Phase) string {
	return phase.Description + " " + strings.Join(phase.TroopsUsed, " ")
}

// Normalize lower-cases text, straightens curly apostrophes and collapses
// whitespace runs (non-breaking spaces included) to single spaces.
func Normalize(text string) string {
	lower := apostrophes.Replace(strings.ToLower(text))
	return strings.Join(strings.FieldsFunc(lower, unicode.IsSpace), " ")
}

func clockDirections(lower string) Set {
	dirs := NewSet()

	for _, m := range clockPattern.FindAllStringSubmatch(lower, -1) {
		hour, _ := strconv.Atoi(m[1])
		if d, ok := hourDirections[hour]; ok {
			dirs.Add(d)
		}
	}

	for _, m := range timePattern.FindAllStringSubmatch(lower, -1) {
		hour, _ := strconv.Atoi(m[1])
		minutes, _ := strconv.Atoi(m[2])
		halfHour := minutes >= 15 && minutes <= 45

		if d, ok := halfHourDirections[hour]; ok && halfHour {
			dirs.Add(d)
			continue
		}
		if d, ok := hourDirections[hour]; ok {
			dirs.Add(d)
		}
	}

	return dirs
}

func wordDirections(lower string) Set {
	dirs := NewSet()

	remaining := lower
	for _, rule := range diagonalWords {
		if !rule.pattern.MatchString(remaining) {
			continue
		}
		dirs.Add(rule.direction)
		remaining = rule.pattern.ReplaceAllStringFunc(remaining, blank)
	}

	for _, rule := range plainWords {
		if rule.pattern.MatchString(remaining) {
			dirs.Add(rule.direction)
		}
	}

	return dirs
}

// blank keeps offsets stable while hiding a consumed phrase from later rules.
func blank(s string) string {
	return strings.Repeat(" ", len(s))
}
