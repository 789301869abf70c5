// Package analyzer classifies monitored content into an impact assessment,
// using the intelligence gateway when it works and a deterministic mock when
// it does not.
package analyzer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/good-yellow-bee/compliops/internal/intel"
	"github.com/good-yellow-bee/compliops/internal/metrics"
	"github.com/good-yellow-bee/compliops/internal/models"
)

const classifyPrompt = `Analyze this compliance update and provide:
1. A one-line summary
2. Impact level (Low/Medium/High)
3. Whether action is required
4. Required actions (list 2-3 items)

Update: %s

Return only a JSON object with the keys "summary" (string), "impact" ("Low", "Medium" or "High"),
"action_required" (boolean) and "actions" (array of strings).`

// ClassificationPrompt builds the structured prompt sent to the gateway.
func ClassificationPrompt(content string) string {
	return fmt.Sprintf(classifyPrompt, content)
}

// Analyzer classifies content. It never returns an error.
type Analyzer struct {
	gateway intel.Gateway
	logger  *zap.Logger
}

// New creates an analyzer. A nil gateway is treated as unavailable.
func New(gateway intel.Gateway, logger *zap.Logger) *Analyzer {
	if gateway == nil {
		gateway = intel.Unavailable
	}
	return &Analyzer{
		gateway: gateway,
		logger:  logger.Named("analyzer"),
	}
}

// Configured reports whether a real gateway backs this analyzer.
func (a *Analyzer) Configured() bool {
	return intel.Configured(a.gateway)
}

// Classify returns the impact classification for content. Gateway absence,
// errors, timeouts and unparseable responses all produce Mock(content).
func (a *Analyzer) Classify(ctx context.Context, content string) models.Classification {
	if !a.Configured() {
		metrics.FallbacksTotal.WithLabelValues("classify", "absent").Inc()
		a.logger.Debug("no gateway configured, using mock classification")
		return Mock(content)
	}

	text, err := a.gateway.Invoke(ctx, ClassificationPrompt(content))
	if err != nil {
		metrics.FallbacksTotal.WithLabelValues("classify", "error").Inc()
		a.logger.Warn("gateway classification failed, falling back to mock", zap.Error(err))
		return Mock(content)
	}

	c, err := ParseClassification(text)
	if err != nil {
		metrics.FallbacksTotal.WithLabelValues("classify", "error").Inc()
		a.logger.Warn("gateway classification unparseable, falling back to mock", zap.Error(err))
		return Mock(content)
	}

	a.logger.Info("gateway classification completed", zap.String("impact", string(c.Impact)))
	return c.Normalize(content)
}
