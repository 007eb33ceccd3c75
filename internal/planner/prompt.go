package planner

import (
	"fmt"
	"strings"
)

const promptTemplate = `You are an expert strategic game coach.
Goal: %q.

Analyze the Army Image and Enemy Base Image.
Create a step-by-step attack plan.
Break the attack into 3 to 5 distinct phases.
Use explicit numeric counts for troops and spells (no vague phrases like "a line of", "several", or "some").
Every deploy instruction must include a direction, using both clock position and cardinal direction (e.g., "Deploy 2 Dragons at 3 o'clock (east)").`

// BuildPrompt returns the instruction sent alongside the two images. The army
// image is always attached first and the base image second.
func BuildPrompt(goal string) string {
	return fmt.Sprintf(promptTemplate, strings.TrimSpace(goal))
}
