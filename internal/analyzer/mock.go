package analyzer

import "github.com/good-yellow-bee/compliops/internal/models"

// mockActions is the fixed action list returned by the mock path.
var mockActions = [...]string{
	"Review compliance documentation",
	"Update internal policies",
	"Notify compliance team immediately",
}

// Mock classifies content without any backend. It is a pure function of
// content: the same input always yields an identical classification.
func Mock(content string) models.Classification {
	return models.Classification{
		Summary:        content,
		Impact:         models.ImpactHigh,
		ActionRequired: true,
		Actions:        append([]string(nil), mockActions[:]...),
	}
}
