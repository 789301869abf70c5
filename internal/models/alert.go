// Package models contains the core data structures for CompliOps.
package models

import (
	"strings"
	"time"
)

// AlertSource identifies what raised an alert.
type AlertSource string

const (
	AlertSourceWatchtower AlertSource = "watchtower"
)

// ImpactLevel represents how strongly a regulatory change affects the business.
type ImpactLevel string

const (
	ImpactLow    ImpactLevel = "Low"
	ImpactMedium ImpactLevel = "Medium"
	ImpactHigh   ImpactLevel = "High"
)

// Valid reports whether l is one of the known impact levels.
func (l ImpactLevel) Valid() bool {
	switch l {
	case ImpactLow, ImpactMedium, ImpactHigh:
		return true
	}
	return false
}

// Rank orders impact levels from Low (1) to High (3). Unknown levels rank 0.
func (l ImpactLevel) Rank() int {
	switch l {
	case ImpactLow:
		return 1
	case ImpactMedium:
		return 2
	case ImpactHigh:
		return 3
	}
	return 0
}

// ParseImpactLevel converts a string to ImpactLevel, ignoring case.
// The second return value is false for unknown levels.
func ParseImpactLevel(s string) (ImpactLevel, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return ImpactLow, true
	case "medium":
		return ImpactMedium, true
	case "high":
		return ImpactHigh, true
	default:
		return ImpactMedium, false
	}
}

// Impact is the persisted severity/action assessment attached to an alert.
type Impact struct {
	Level          ImpactLevel `json:"level"`
	ActionRequired bool        `json:"action_required"`
	Actions        []string    `json:"actions"`
}

// Alert is a detected compliance change. Alerts are append-only.
type Alert struct {
	ID        string      `json:"id"`
	Source    AlertSource `json:"source"`
	Summary   string      `json:"summary"`
	Impact    Impact      `json:"impact"`
	CreatedAt time.Time   `json:"created_at"`
}

// NewAlert builds an alert from a classification.
func NewAlert(source AlertSource, c Classification) *Alert {
	actions := make([]string, len(c.Actions))
	copy(actions, c.Actions)
	return &Alert{
		Source:  source,
		Summary: c.Summary,
		Impact: Impact{
			Level:          c.Impact,
			ActionRequired: c.ActionRequired,
			Actions:        actions,
		},
		CreatedAt: time.Now().UTC(),
	}
}
