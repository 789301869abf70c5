package analyzer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/good-yellow-bee/compliops/internal/models"
)

// ErrMalformed is returned when a gateway response is not a JSON classification.
var ErrMalformed = errors.New("malformed classification")

// wireClassification is the loosely typed shape accepted from the gateway.
// Impact is a string so unknown levels can be mapped to defaults instead of
// failing the decode.
type wireClassification struct {
	Summary        string   `json:"summary"`
	Impact         string   `json:"impact"`
	ActionRequired *bool    `json:"action_required"`
	Actions        []string `json:"actions"`
}

// ParseClassification decodes a gateway response into a Classification.
//
// The response may be wrapped in a markdown code fence or surrounded by prose;
// the outermost JSON object is used. Anything that is not a JSON object with
// the expected field types is ErrMalformed. An unknown impact level is not an
// error: it yields Medium with action required.
func ParseClassification(text string) (models.Classification, error) {
	raw := extractObject(text)
	if raw == "" {
		return models.Classification{}, fmt.Errorf("%w: no JSON object in response", ErrMalformed)
	}

	var w wireClassification
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return models.Classification{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	c := models.Classification{
		Summary:        strings.TrimSpace(w.Summary),
		ActionRequired: true,
		Actions:        make([]string, 0, len(w.Actions)),
	}
	if w.ActionRequired != nil {
		c.ActionRequired = *w.ActionRequired
	}
	if level, ok := models.ParseImpactLevel(w.Impact); ok {
		c.Impact = level
	} else {
		c.Impact = models.ImpactMedium
		c.ActionRequired = true
	}
	for _, a := range w.Actions {
		if a = strings.TrimSpace(a); a != "" {
			c.Actions = append(c.Actions, a)
		}
	}
	return c, nil
}

func extractObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}
