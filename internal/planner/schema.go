package planner

// SchemaType is the JSON type of a schema node.
type SchemaType string

const (
	TypeObject SchemaType = "object"
	TypeArray  SchemaType = "array"
	TypeString SchemaType = "string"
)

// Schema is a provider-neutral description of the structured output. Model
// adapters convert it to whatever their SDK expects.
type Schema struct {
	Type        SchemaType
	Description string
	Properties  map[string]*Schema
	// PropertyOrder lists Properties keys in the order they should be emitted
	PropertyOrder []string
	Items         *Schema
	Required      []string
}

// PlanSchema returns a fresh copy of the attack plan output schema: four
// required top-level fields and, per phase, a required name, description and
// troop list.
func PlanSchema() *Schema {
	phase := &Schema{
		Type: TypeObject,
		Properties: map[string]*Schema{
			"phaseName": {
				Type:        TypeString,
				Description: "e.g., 'Phase 1: Funneling' or 'Phase 2: Main Push'",
			},
			"description": {
				Type:        TypeString,
				Description: "Detailed instructions for this step.",
			},
			"troopsUsed": {
				Type:        TypeArray,
				Description: "List of specific troops/spells used in this phase (e.g. ['Golem', 'Wizard']).",
				Items:       &Schema{Type: TypeString},
			},
		},
		PropertyOrder: []string{"phaseName", "description", "troopsUsed"},
		Required:      []string{"phaseName", "description", "troopsUsed"},
	}

	return &Schema{
		Type: TypeObject,
		Properties: map[string]*Schema{
			"armyAnalysis": {
				Type:        TypeString,
				Description: "Analysis of the user's army strengths/weaknesses.",
			},
			"baseWeaknesses": {
				Type:        TypeString,
				Description: "Key vulnerabilities in the enemy base.",
			},
			"criticalAdvice": {
				Type:        TypeString,
				Description: "Top 1-2 critical things to avoid.",
			},
			"steps": {
				Type:        TypeArray,
				Description: "A list of 3 to 5 distinct phases of the attack.",
				Items:       phase,
			},
		},
		PropertyOrder: []string{"armyAnalysis", "baseWeaknesses", "criticalAdvice", "steps"},
		Required:      []string{"armyAnalysis", "baseWeaknesses", "criticalAdvice", "steps"},
	}
}
