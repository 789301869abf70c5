// Package chat answers compliance questions from a small built-in knowledge
// base, phrased by the intelligence gateway when one is available.
package chat

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/good-yellow-bee/compliops/internal/intel"
	"github.com/good-yellow-bee/compliops/internal/metrics"
)

// GeneralKey is the knowledge key used when no entry matches the query.
const GeneralKey = "general"

const generalContext = "No specific compliance context found for this query. " +
	"Please refine your question or contact compliance team."

// Entry is one knowledge base document, matched by keyword.
type Entry struct {
	Key     string
	Context string
}

// DefaultKnowledge is the built-in knowledge base. Entries are matched in order.
var DefaultKnowledge = []Entry{
	{
		Key: "bnpl",
		Context: "SAMA Circular 123 states that 'Buy Now, Pay Later' (BNPL) services must: " +
			"1) Clearly disclose all fees and terms before purchase; " +
			"2) Comply with consumer protection standards; " +
			"3) Maintain adequate capital reserves; " +
			"4) Report all transactions to SAMA within 24 hours.",
	},
	{
		Key: "data residency",
		Context: "The CBUAE rulebook requires all Personally Identifiable Information (PII) data to be " +
			"stored within UAE borders unless explicitly approved by the regulator. " +
			"Data residency compliance is mandatory for all fintech operators.",
	},
	{
		Key: "kyc",
		Context: "Know Your Customer (KYC) requirements mandate that financial institutions verify " +
			"customer identity through government-issued ID, biometric data, and address verification. " +
			"Re-verification is required annually or when significant changes are detected.",
	},
	{
		Key: "aml",
		Context: "Anti-Money Laundering (AML) regulations require transaction monitoring, " +
			"Suspicious Activity Reporting (SAR), and Customer Due Diligence (CDD) at account opening. " +
			"Threshold: transactions above AED 500,000 require enhanced due diligence.",
	},
}

// Answer is the response to a question.
type Answer struct {
	Answer string `json:"answer"`
	Source string `json:"source"`
}

// Advisor answers questions. It never fails: without a working gateway it
// returns a mock answer quoting the matched context.
type Advisor struct {
	knowledge []Entry
	gateway   intel.Gateway
	logger    *zap.Logger
}

// NewAdvisor creates an advisor over knowledge. A nil gateway is treated as
// unavailable and nil knowledge means DefaultKnowledge.
func NewAdvisor(knowledge []Entry, gateway intel.Gateway, logger *zap.Logger) *Advisor {
	if knowledge == nil {
		knowledge = DefaultKnowledge
	}
	if gateway == nil {
		gateway = intel.Unavailable
	}
	return &Advisor{
		knowledge: knowledge,
		gateway:   gateway,
		logger:    logger.Named("chat"),
	}
}

// Lookup returns the first entry whose key occurs in query, or the general entry.
func (a *Advisor) Lookup(query string) Entry {
	q := strings.ToLower(query)
	for _, e := range a.knowledge {
		if strings.Contains(q, e.Key) {
			return e
		}
	}
	return Entry{Key: GeneralKey, Context: generalContext}
}

const ragPrompt = `You are a compliance expert assistant.

Context from compliance documentation:
%s

User Question: %s

Answer based ONLY on the context above. If the context doesn't answer the question, say so.`

// Ask answers query.
func (a *Advisor) Ask(ctx context.Context, query string) Answer {
	entry := a.Lookup(query)
	logger := a.logger.With(zap.String("matched", entry.Key))

	if !intel.Configured(a.gateway) {
		metrics.FallbacksTotal.WithLabelValues("chat", "absent").Inc()
		logger.Debug("no gateway configured, using mock answer")
		return MockAnswer(entry)
	}

	text, err := a.gateway.Invoke(ctx, fmt.Sprintf(ragPrompt, entry.Context, query))
	if err == nil && strings.TrimSpace(text) == "" {
		err = fmt.Errorf("%w: empty answer", intel.ErrGateway)
	}
	if err != nil {
		metrics.FallbacksTotal.WithLabelValues("chat", "error").Inc()
		logger.Warn("gateway answer failed, falling back to mock", zap.Error(err))
		return MockAnswer(entry)
	}

	logger.Info("answer generated")
	return Answer{
		Answer: strings.TrimSpace(text),
		Source: fmt.Sprintf("Compliance DB (Key: %s)", entry.Key),
	}
}

// MockAnswer is the deterministic answer for entry.
func MockAnswer(entry Entry) Answer {
	return Answer{
		Answer: "This is a mock answer. Based on your query, I found this context: " + entry.Context,
		Source: "Mock: " + strings.ToUpper(entry.Key),
	}
}
