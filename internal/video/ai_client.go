package video

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/NanaAbabioh/testimony-app-backend/internal/validate"
)

// TitleSuggestion is the generated short title and summary for a clip.
type TitleSuggestion struct {
	TitleShort   string `json:"titleShort"`
	SummaryShort string `json:"summaryShort"`
}

type AIClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewAIClient(baseURL, apiKey, model string) *AIClient {
	return &AIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

const titleSystemPrompt = `You write headlines for short church testimony clips. Given the clip's working title and its transcript, produce a JSON object with:
- "titleShort": a headline of at most 8 words naming what happened to the speaker.
- "summaryShort": one or two sentences in the third person describing the testimony.

Return ONLY valid JSON, no markdown formatting.`

const maxTranscriptChars = 12000

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
}

// GenerateTitle asks an OpenAI-compatible chat endpoint for a short title and
// summary. Results are clipped to the admin field limits.
func (c *AIClient) GenerateTitle(ctx context.Context, title, transcript string) (*TitleSuggestion, error) {
	user := "Title: " + title + "\n\nTranscript:\n" + truncateRunes(transcript, maxTranscriptChars)
	content, err := c.complete(ctx, titleSystemPrompt, user)
	if err != nil {
		return nil, err
	}

	result, err := parseTitleJSON(content)
	if err != nil {
		return nil, err
	}
	result.TitleShort = truncateRunes(strings.TrimSpace(result.TitleShort), validate.MaxTitleShortLength)
	result.SummaryShort = truncateRunes(strings.TrimSpace(result.SummaryShort), validate.MaxSummaryShortLength)
	if result.TitleShort == "" {
		return nil, errors.New("AI response has no titleShort")
	}
	return result, nil
}

func (c *AIClient) complete(ctx context.Context, system, user string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("AI API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", errors.New("AI API returned empty choices")
	}
	return chatResp.Choices[0].Message.Content, nil
}

func parseTitleJSON(content string) (*TitleSuggestion, error) {
	var result TitleSuggestion
	if err := json.Unmarshal([]byte(content), &result); err == nil {
		return &result, nil
	}
	if err := json.Unmarshal([]byte(stripMarkdownFences(content)), &result); err != nil {
		return nil, fmt.Errorf("parse title JSON: %w", err)
	}
	return &result, nil
}

func stripMarkdownFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	firstNewline := strings.Index(trimmed, "\n")
	if firstNewline == -1 {
		return trimmed
	}
	trimmed = trimmed[firstNewline+1:]
	if idx := strings.LastIndex(trimmed, "```"); idx != -1 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

// truncateRunes cuts s to at most max bytes without splitting a rune.
func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	s = s[:max]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
