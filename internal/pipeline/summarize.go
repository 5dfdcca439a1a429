package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/mailsync/pkg/anthropic"
)

const (
	summaryTemperature = 0.3
	summaryMaxTokens   = 200
	summaryBodyLimit   = 2000
)

// summarySystemText is the fixed instruction preamble, sent as a cached
// system block shared across the batch.
const summarySystemText = `Provide a concise summary of the email in Korean.

Summary should be 2-3 sentences focusing on:
1. Main purpose of the email
2. Key information or requests
3. Any action items or deadlines`

// Summarizer produces a short Korean summary of one message.
type Summarizer struct {
	client anthropic.Client
	model  string
	system []anthropic.SystemBlock
}

func NewSummarizer(client anthropic.Client, model string) *Summarizer {
	return &Summarizer{
		client: client,
		model:  model,
		system: anthropic.BuildCachedSystemBlocks(summarySystemText),
	}
}

// Summarize returns a 2-3 sentence Korean summary. Any failure yields
// the deterministic fallback string; it never errors outward.
func (s *Summarizer) Summarize(ctx context.Context, subject, body string) string {
	temp := summaryTemperature
	resp, err := s.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       s.model,
		MaxTokens:   summaryMaxTokens,
		Temperature: &temp,
		System:      s.system,
		Messages: []anthropic.Message{
			{Role: "user", Content: buildSummaryContent(subject, body)},
		},
	})
	if err != nil {
		zap.L().Warn("summary generation failed", zap.String("subject", subject), zap.Error(err))
		return "요약 생성 실패: " + subject
	}
	resp.Usage.LogCost(s.model, "summarize")

	summary := strings.TrimSpace(resp.Text())
	if summary == "" {
		return "요약 생성 실패: " + subject
	}
	return summary
}

// buildSummaryContent carries only the per-message data, body capped to
// keep token spend bounded.
func buildSummaryContent(subject, body string) string {
	if r := []rune(body); len(r) > summaryBodyLimit {
		body = string(r[:summaryBodyLimit])
	}
	return fmt.Sprintf("Subject: %s\nBody: %s", subject, body)
}
