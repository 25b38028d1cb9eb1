package notification

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/naiba/uptime/model"
	"github.com/naiba/uptime/pkg/utils"
)

func postJSON(ctx context.Context, client *http.Client, url string, payload interface{}) error {
	if url == "" {
		return ErrMissingTarget
	}
	body, err := utils.Json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%d@%s %s", resp.StatusCode, resp.Status, string(body))
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
	}
	return nil
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "N/A"
	}
	return t.UTC().Format(time.RFC3339)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// WebhookSender 原样 POST 告警 JSON
type WebhookSender struct {
	Client *http.Client
}

func (s *WebhookSender) Send(ctx context.Context, ch *model.NotificationChannel, alert model.Alert) error {
	return postJSON(ctx, s.Client, ch.Config.URL, alert)
}

type SlackSender struct {
	Client *http.Client
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
}

func slackSection(format string, args ...interface{}) slackBlock {
	return slackBlock{Type: "section", Text: &slackText{Type: "mrkdwn", Text: fmt.Sprintf(format, args...)}}
}

func slackBlocks(a model.Alert) []slackBlock {
	resolved := "No"
	if a.Resolved {
		resolved = "Yes"
	}
	return []slackBlock{
		{Type: "header", Text: &slackText{Type: "plain_text", Text: "Status Alert"}},
		slackSection("*Monitor name:* %s", a.Name),
		slackSection("*Status:* %s", a.Status),
		slackSection("*URL:* %s", a.URL),
		slackSection("resolved: %s", resolved),
		slackSection("Resolution Type: %s", orNA(string(a.ResolutionType))),
		slackSection("Resolved by: %s", orNA(a.ResolvedBy)),
		slackSection("Resolution note: %s", orNA(a.ResolutionNote)),
		slackSection("*Checked at:* %s", formatTime(a.CheckTime)),
		{Type: "divider"},
		{Type: "context", Elements: []slackText{{Type: "mrkdwn", Text: "*Alert generated at:* " + formatTime(&a.AlertTime)}}},
	}
}

func (s *SlackSender) Send(ctx context.Context, ch *model.NotificationChannel, alert model.Alert) error {
	return postJSON(ctx, s.Client, ch.Config.URL, map[string]interface{}{
		"text":   "Status Alert",
		"blocks": slackBlocks(alert),
	})
}

const (
	discordColorUp   = 65280
	discordColorDown = 16711680
)

type DiscordSender struct {
	Client *http.Client
}

type discordField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type discordEmbed struct {
	Color       int            `json:"color"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Fields      []discordField `json:"fields"`
}

func discordEmbedOf(a model.Alert) discordEmbed {
	color := discordColorDown
	if a.Status == string(model.MonitorStatusUp) {
		color = discordColorUp
	}
	return discordEmbed{
		Color:       color,
		Title:       "Monitor name: " + a.Name,
		Description: "Status: **" + a.Status + "**",
		Fields: []discordField{
			{Name: "Url", Value: a.URL},
			{Name: "Checked at", Value: formatTime(a.CheckTime)},
			{Name: "Alert time", Value: formatTime(&a.AlertTime)},
		},
	}
}

func (s *DiscordSender) Send(ctx context.Context, ch *model.NotificationChannel, alert model.Alert) error {
	return postJSON(ctx, s.Client, ch.Config.URL, map[string]interface{}{
		"content": "Status Alert",
		"embeds":  []discordEmbed{discordEmbedOf(alert)},
	})
}

func DefaultSenders(client *http.Client, smtp SMTPConfig) map[model.ChannelType]Sender {
	return map[model.ChannelType]Sender{
		model.ChannelTypeEmail:   NewEmailSender(smtp),
		model.ChannelTypeSlack:   &SlackSender{Client: client},
		model.ChannelTypeDiscord: &DiscordSender{Client: client},
		model.ChannelTypeWebhook: &WebhookSender{Client: client},
	}
}
