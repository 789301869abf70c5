package notifier

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/good-yellow-bee/compliops/internal/models"
)

// SlackNotifier sends alerts to Slack via webhook.
type SlackNotifier struct {
	config     WebhookConfig
	httpClient *http.Client
}

// NewSlackNotifier creates a new Slack notifier.
func NewSlackNotifier(config WebhookConfig) (*SlackNotifier, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid slack config: %w", err)
	}
	return &SlackNotifier{config: config, httpClient: newWebhookClient()}, nil
}

// Name returns "slack".
func (s *SlackNotifier) Name() string {
	return "slack"
}

// Send sends an alert to Slack.
func (s *SlackNotifier) Send(ctx context.Context, alert *models.Alert) error {
	return postJSON(ctx, s.httpClient, "slack", s.config.WebhookURL, buildSlackMessage(alert))
}

// slackMessage represents the Slack webhook payload.
type slackMessage struct {
	Blocks []slackBlock `json:"blocks"`
}

// slackBlock represents a Slack Block Kit block.
type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Fields   []slackText `json:"fields,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
}

// slackText represents text in Slack Block Kit.
type slackText struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

func buildSlackMessage(alert *models.Alert) slackMessage {
	level := string(alert.Impact.Level)
	emoji := impactEmoji(alert.Impact.Level)

	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackText{
				Type:  "plain_text",
				Text:  fmt.Sprintf("%s CompliOps Alert: %s impact", emoji, level),
				Emoji: true,
			},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: fmt.Sprintf("*Impact:*\n%s %s", emoji, strings.ToUpper(level))},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Action required:*\n%s", yesNo(alert.Impact.ActionRequired))},
			},
		},
		{
			Type: "section",
			Text: &slackText{
				Type: "mrkdwn",
				Text: fmt.Sprintf("*Summary:*\n%s", truncate(alert.Summary, 2000)),
			},
		},
	}

	if len(alert.Impact.Actions) > 0 {
		var b strings.Builder
		b.WriteString("*Required actions:*")
		for i, action := range alert.Impact.Actions {
			fmt.Fprintf(&b, "\n%d. %s", i+1, action)
		}
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: b.String()},
		})
	}

	blocks = append(blocks, slackBlock{
		Type: "context",
		Elements: []slackText{
			{
				Type: "mrkdwn",
				Text: fmt.Sprintf("Alert `%s` from %s at %s",
					alert.ID, alert.Source, alert.CreatedAt.Format("2006-01-02 15:04:05 MST")),
			},
		},
	})

	return slackMessage{Blocks: blocks}
}
