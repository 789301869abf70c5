package models

// Classification is the structured assessment produced by the analyzer for a
// piece of monitored content. Gateway and mock output share this exact shape.
type Classification struct {
	Summary        string      `json:"summary"`
	Impact         ImpactLevel `json:"impact"`
	ActionRequired bool        `json:"action_required"`
	Actions        []string    `json:"actions"`
}

// Normalize fills in the defaults used for malformed classifications:
// an empty summary becomes content, and an unknown impact level becomes
// Medium with action required.
func (c Classification) Normalize(content string) Classification {
	if c.Summary == "" {
		c.Summary = content
	}
	if !c.Impact.Valid() {
		c.Impact = ImpactMedium
		c.ActionRequired = true
	}
	if c.Actions == nil {
		c.Actions = []string{}
	}
	return c
}
