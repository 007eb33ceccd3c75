// Package goal screens free-text tactical goals before they reach the model.
package goal

import (
	"strings"

	apperrors "go-attack-planner/internal/errors"
)

// Rejection reasons carried on the validation error.
const (
	ReasonEmpty         = "empty"
	ReasonContentPolicy = "content_policy"
	ReasonOffTopic      = "off_topic"
)

// RejectedMessage is shown to the user when either keyword filter trips.
const RejectedMessage = "This request isn't allowed. Please enter a Clash of Clans-related request, check your spelling, and try again."

// EmptyMessage is shown when no goal was entered.
const EmptyMessage = "Please specify a goal for the attack."

// Presets are the quick-select goals; the first one is the default.
var presets = [...]string{
	"Three Star / Destruction",
	"Loot Resources",
	"Trophy Push",
	"Safe Two Star",
}

// blockedKeywords are matched as plain substrings of the lower-cased goal.
// Unrelated words that happen to contain one ("Essex") are rejected too.
var blockedKeywords = [...]string{
	"porn", "sex", "nude", "nudes", "nsfw", "xxx", "adult",
	"erotic", "fetish", "boobs", "dick", "vagina", "blowjob",
	"onlyfans", "hentai",
}

// domainKeywords is the game vocabulary; at least one must appear.
var domainKeywords = [...]string{
	"clash of clans", "clash", "coc",
	"town hall", "eagle artillery", "inferno", "scattershot", "x-bow",
	"barbarian", "archer", "giant", "goblin", "wizard", "healer",
	"dragon", "baby dragon", "pekka", "golem", "valkyrie", "witch",
	"lava hound", "bowler", "miner", "electro dragon", "hog rider",
	"royal champion", "grand warden", "archer queen", "barbarian king",
	"elixir", "dark elixir", "trophy", "loot", "three star", "two star",
	"war", "clan war", "siege", "blimp", "stone slammer", "wall wrecker",
}

// Presets returns a copy of the preset goal list.
func Presets() []string {
	return append([]string{}, presets[:]...)
}

// DefaultGoal is the goal a new session starts with.
func DefaultGoal() string {
	return presets[0]
}

// Validate accepts a goal or returns a validation error whose Reason is one
// of ReasonEmpty, ReasonContentPolicy or ReasonOffTopic. The content filter is
// checked first, so domain words never rescue a blocked goal.
func Validate(goal string) error {
	if strings.TrimSpace(goal) == "" {
		return apperrors.NewValidationError(EmptyMessage, nil).WithReason(ReasonEmpty)
	}
	if IsBlocked(goal) {
		return apperrors.NewValidationError(RejectedMessage, nil).WithReason(ReasonContentPolicy)
	}
	if !IsOnTopic(goal) {
		return apperrors.NewValidationError(RejectedMessage, nil).WithReason(ReasonOffTopic)
	}
	return nil
}

// IsBlocked reports whether goal contains a content-policy keyword.
func IsBlocked(goal string) bool {
	return containsAny(strings.ToLower(goal), blockedKeywords[:])
}

// IsOnTopic reports whether goal contains any game-domain keyword.
func IsOnTopic(goal string) bool {
	return containsAny(strings.ToLower(goal), domainKeywords[:])
}

func containsAny(lower string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}
