package notifier

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/good-yellow-bee/compliops/internal/models"
)

// TeamsNotifier sends alerts to Microsoft Teams via webhook.
type TeamsNotifier struct {
	config     WebhookConfig
	httpClient *http.Client
}

// NewTeamsNotifier creates a new Teams notifier.
func NewTeamsNotifier(config WebhookConfig) (*TeamsNotifier, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid teams config: %w", err)
	}
	return &TeamsNotifier{config: config, httpClient: newWebhookClient()}, nil
}

// Name returns "teams".
func (t *TeamsNotifier) Name() string {
	return "teams"
}

// Send sends an alert to Microsoft Teams.
func (t *TeamsNotifier) Send(ctx context.Context, alert *models.Alert) error {
	return postJSON(ctx, t.httpClient, "teams", t.config.WebhookURL, buildTeamsMessage(alert))
}

// teamsMessage represents the Teams webhook payload with Adaptive Card.
type teamsMessage struct {
	Type        string            `json:"type"`
	Attachments []teamsAttachment `json:"attachments"`
}

// teamsAttachment represents an attachment in the Teams message.
type teamsAttachment struct {
	ContentType string       `json:"contentType"`
	ContentURL  *string      `json:"contentUrl"`
	Content     adaptiveCard `json:"content"`
}

// adaptiveCard represents a Microsoft Adaptive Card.
type adaptiveCard struct {
	Schema  string `json:"$schema"`
	Type    string `json:"type"`
	Version string `json:"version"`
	Body    []any  `json:"body"`
}

// Adaptive Card element types
type textBlock struct {
	Type   string `json:"type"`
	Text   string `json:"text"`
	Size   string `json:"size,omitempty"`
	Weight string `json:"weight,omitempty"`
	Color  string `json:"color,omitempty"`
	Wrap   bool   `json:"wrap,omitempty"`
}

type factSet struct {
	Type  string `json:"type"`
	Facts []fact `json:"facts"`
}

type fact struct {
	Title string `json:"title"`
	Value string `json:"value"`
}

type container struct {
	Type  string `json:"type"`
	Style string `json:"style,omitempty"`
	Items []any  `json:"items"`
}

func buildTeamsMessage(alert *models.Alert) teamsMessage {
	level := string(alert.Impact.Level)
	emoji := impactEmoji(alert.Impact.Level)

	body := []any{
		container{
			Type:  "Container",
			Style: teamsImpactStyle(alert.Impact.Level),
			Items: []any{
				textBlock{
					Type:   "TextBlock",
					Text:   fmt.Sprintf("%s CompliOps Alert: %s impact", emoji, level),
					Size:   "Large",
					Weight: "Bolder",
					Wrap:   true,
				},
			},
		},
		factSet{
			Type: "FactSet",
			Facts: []fact{
				{Title: "Impact", Value: fmt.Sprintf("%s %s", emoji, strings.ToUpper(level))},
				{Title: "Action required", Value: yesNo(alert.Impact.ActionRequired)},
				{Title: "Detected", Value: alert.CreatedAt.Format("2006-01-02 15:04:05 MST")},
			},
		},
		textBlock{
			Type: "TextBlock",
			Text: fmt.Sprintf("**Summary:** %s", truncate(alert.Summary, 2000)),
			Wrap: true,
		},
	}

	if len(alert.Impact.Actions) > 0 {
		lines := make([]string, len(alert.Impact.Actions))
		for i, action := range alert.Impact.Actions {
			lines[i] = fmt.Sprintf("%d. %s", i+1, action)
		}
		body = append(body, textBlock{
			Type: "TextBlock",
			Text: "**Required actions:**\n\n" + strings.Join(lines, "\n"),
			Wrap: true,
		})
	}

	body = append(body, textBlock{
		Type:  "TextBlock",
		Text:  fmt.Sprintf("_Alert %s from %s_", alert.ID, alert.Source),
		Wrap:  true,
		Color: "light",
	})

	return teamsMessage{
		Type: "message",
		Attachments: []teamsAttachment{
			{
				ContentType: "application/vnd.microsoft.card.adaptive",
				Content: adaptiveCard{
					Schema:  "http://adaptivecards.io/schemas/adaptive-card.json",
					Type:    "AdaptiveCard",
					Version: "1.4",
					Body:    body,
				},
			},
		},
	}
}

// teamsImpactStyle returns an Adaptive Card container style for the impact level.
func teamsImpactStyle(level models.ImpactLevel) string {
	switch level {
	case models.ImpactHigh:
		return "attention" // red
	case models.ImpactMedium:
		return "warning" // orange/yellow
	case models.ImpactLow:
		return "good" // green
	default:
		return "default"
	}
}
