package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	"github.com/good-yellow-bee/compliops/internal/intel"
)

func TestLookup(t *testing.T) {
	a := NewAdvisor(nil, nil, zaptest.NewLogger(t))

	tests := []struct {
		query string
		want  string
	}{
		{"What are the BNPL disclosure rules?", "bnpl"},
		{"Where must we keep PII? data residency please", "data residency"},
		{"kyc refresh frequency", "kyc"},
		{"AML thresholds in the UAE", "aml"},
		{"What is the weather?", GeneralKey},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, a.Lookup(tt.query).Key)
		})
	}
}

func TestAsk_NoGateway(t *testing.T) {
	a := NewAdvisor(nil, nil, zaptest.NewLogger(t))

	got := a.Ask(context.Background(), "Tell me about KYC")
	assert.Equal(t, "Mock: KYC", got.Source)
	assert.True(t, strings.HasPrefix(got.Answer, "This is a mock answer. Based on your query, I found this context: Know Your Customer"))
}

func TestAsk_GeneralFallback(t *testing.T) {
	got := NewAdvisor(nil, nil, zaptest.NewLogger(t)).Ask(context.Background(), "hello")
	assert.Equal(t, "Mock: GENERAL", got.Source)
	assert.Contains(t, got.Answer, "No specific compliance context found")
}

func TestAsk_Gateway(t *testing.T) {
	var prompt string
	gw := intel.Func(func(_ context.Context, p string) (string, error) {
		prompt = p
		return "  Transactions above AED 500,000 need EDD.  ", nil
	})

	got := NewAdvisor(nil, gw, zaptest.NewLogger(t)).Ask(context.Background(), "AML threshold?")
	assert.Equal(t, "Transactions above AED 500,000 need EDD.", got.Answer)
	assert.Equal(t, "Compliance DB (Key: aml)", got.Source)
	assert.Contains(t, prompt, "AED 500,000")
	assert.Contains(t, prompt, "User Question: AML threshold?")
}

func TestAsk_GatewayFailure(t *testing.T) {
	for name, gw := range map[string]intel.Gateway{
		"error": intel.Func(func(context.Context, string) (string, error) { return "", errors.New("quota") }),
		"empty": intel.Func(func(context.Context, string) (string, error) { return " ", nil }),
	} {
		t.Run(name, func(t *testing.T) {
			got := NewAdvisor(nil, gw, zaptest.NewLogger(t)).Ask(context.Background(), "bnpl fees")
			assert.Equal(t, MockAnswer(DefaultKnowledge[0]), got)
		})
	}
}
