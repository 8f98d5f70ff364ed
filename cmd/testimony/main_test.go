package main

import (
	"testing"

	"github.com/NanaAbabioh/testimony-app-backend/internal/config"
)

func TestTitleGeneratorDisabled(t *testing.T) {
	if ai := titleGenerator(config.AI{Enabled: false, BaseURL: "http://ai"}); ai != nil {
		t.Errorf("expected nil generator when AI is disabled, got %T", ai)
	}
}

func TestTitleGeneratorEnabled(t *testing.T) {
	if ai := titleGenerator(config.AI{Enabled: true, BaseURL: "http://ai", Model: "m"}); ai == nil {
		t.Error("expected a generator when AI is enabled")
	}
}

func TestNotifiersOnlyConfiguredChannels(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Notifications
		want int
	}{
		{"none", config.Notifications{}, 0},
		{"webhook", config.Notifications{WebhookURL: "https://hooks.example.org", WebhookSecret: "s"}, 1},
		{"slack", config.Notifications{SlackWebhookURL: "https://hooks.slack.com/services/x"}, 1},
		{"both", config.Notifications{WebhookURL: "https://hooks.example.org", WebhookSecret: "s", SlackWebhookURL: "https://hooks.slack.com/services/x"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := notifiers(tt.cfg, nil).Len(); got != tt.want {
				t.Errorf("Len() = %d, want %d", got, tt.want)
			}
		})
	}
}
