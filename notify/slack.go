package notify

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// SlackNotifier posts messages to an incoming-webhook URL.
type SlackNotifier struct {
	webhookURL string
	channel    string
	client     *resty.Client
}

// NewSlackNotifier creates a notifier for the given webhook. The channel may
// be empty to use the webhook's default.
func NewSlackNotifier(webhookURL, channel string) *SlackNotifier {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)

	return &SlackNotifier{
		webhookURL: webhookURL,
		channel:    channel,
		client:     client,
	}
}

type slackMessage struct {
	Channel string `json:"channel,omitempty"`
	Text    string `json:"text"`
}

// Send posts one message to the webhook.
func (s *SlackNotifier) Send(message string) error {
	resp, err := s.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(slackMessage{Channel: s.channel, Text: message}).
		Post(s.webhookURL)
	if err != nil {
		return fmt.Errorf("slack webhook post: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("slack webhook returned %s: %s", resp.Status(), resp.String())
	}
	return nil
}
