package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/NanaAbabioh/testimony-app-backend/internal/notify"
)

// Client posts moderation events to a Slack incoming webhook.
type Client struct {
	webhookURL string
	http       *http.Client
}

// New creates a Slack webhook client. Notify is a no-op when webhookURL is empty.
func New(webhookURL string) *Client {
	return &Client{
		webhookURL: webhookURL,
		http:       &http.Client{Timeout: 10 * time.Second},
	}
}

type block struct {
	Type     string `json:"type"`
	Text     *text  `json:"text,omitempty"`
	Elements []text `json:"elements,omitempty"`
}

type text struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type payload struct {
	Blocks []block `json:"blocks"`
}

func (c *Client) Notify(ctx context.Context, ev notify.Event) error {
	if c == nil || c.webhookURL == "" {
		return nil
	}
	return c.postMessage(ctx, messageFor(ev))
}

func messageFor(ev notify.Event) payload {
	title := ev.Title
	if title == "" {
		title = "Untitled clip"
	}

	var headline string
	switch ev.Name {
	case notify.EventClipReady:
		headline = fmt.Sprintf(":clapper: *Clip ready for review*\n%s", title)
	case notify.EventClipFailed:
		headline = fmt.Sprintf(":warning: *Clip processing failed*\n%s", title)
	case notify.EventTitleGenerated:
		headline = fmt.Sprintf(":sparkles: *Short title generated*\n%s", title)
	default:
		headline = fmt.Sprintf("*%s*\n%s", ev.Name, title)
	}

	p := payload{
		Blocks: []block{
			{Type: "section", Text: &text{Type: "mrkdwn", Text: headline}},
		},
	}
	if ev.Detail != "" {
		p.Blocks = append(p.Blocks, block{
			Type: "section",
			Text: &text{Type: "mrkdwn", Text: "> " + ev.Detail},
		})
	}
	p.Blocks = append(p.Blocks, block{
		Type:     "context",
		Elements: []text{{Type: "mrkdwn", Text: "Clip `" + ev.ClipID + "`"}},
	})
	return p
}

func (c *Client) postMessage(ctx context.Context, p payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send slack message: %w", err)
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned status %d", resp.StatusCode)
	}

	return nil
}
