package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/mailsync/pkg/anthropic"
)

const (
	extractTemperature = 0.1
	extractMaxTokens   = 300
)

// ModelResult holds what the model read out of a single message. The
// zero value means nothing was extracted.
type ModelResult struct {
	Phones     []string
	Position   string
	Categories []string
}

// extractSystemText is the fixed instruction preamble. It is sent as a
// cached system block so only the first message of a batch pays for it.
const extractSystemText = `Extract contact information from an email. If any information is not available, return null for that field.

Extract and return in JSON format:
1. phone_numbers: Array of phone numbers found in the email (Korean or international format)
2. sender_position: The job title/position of the sender (e.g., "마케팅 팀장", "CEO", "Sales Manager")
3. company_categories: Array of business categories/industries mentioned (e.g., ["IT", "마케팅", "E-commerce"])

Return only valid JSON without any additional text:
{
    "phone_numbers": ["phone1", "phone2"] or null,
    "sender_position": "position" or null,
    "company_categories": ["category1", "category2"] or null
}`

// ModelExtractor asks Claude for contact signals the pattern tables
// cannot see, such as positions phrased in free text.
type ModelExtractor struct {
	client anthropic.Client
	model  string
	system []anthropic.SystemBlock
}

func NewModelExtractor(client anthropic.Client, model string) *ModelExtractor {
	return &ModelExtractor{
		client: client,
		model:  model,
		system: anthropic.BuildCachedSystemBlocks(extractSystemText),
	}
}

// Extract runs one completion and parses its JSON leniently. Transport
// and parse failures degrade to the zero result; they never abort the
// message.
func (e *ModelExtractor) Extract(ctx context.Context, subject, body, senderInfo string) ModelResult {
	temp := extractTemperature
	resp, err := e.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       e.model,
		MaxTokens:   extractMaxTokens,
		Temperature: &temp,
		System:      e.system,
		Messages: []anthropic.Message{
			{Role: "user", Content: buildExtractContent(subject, body, senderInfo)},
		},
	})
	if err != nil {
		zap.L().Warn("model extraction failed", zap.Error(err))
		return ModelResult{}
	}
	resp.Usage.LogCost(e.model, "extract")

	return parseExtractResponse(resp.Text())
}

// buildExtractContent carries only the per-message data; the instructions
// live in the cached system block.
func buildExtractContent(subject, body, senderInfo string) string {
	return fmt.Sprintf(`Email Information:
Sender: %s
Subject: %s
Body: %s`, senderInfo, subject, body)
}

// parseExtractResponse tolerates nulls, wrong types, and wrapping text
// around the JSON object.
func parseExtractResponse(text string) ModelResult {
	var raw map[string]any
	if err := json.Unmarshal([]byte(cleanJSON(text)), &raw); err != nil {
		zap.L().Warn("failed to parse extraction response", zap.String("response", text))
		return ModelResult{}
	}

	result := ModelResult{
		Phones:     toStringSlice(raw["phone_numbers"]),
		Categories: toStringSlice(raw["company_categories"]),
	}
	if s, ok := raw["sender_position"].(string); ok {
		result.Position = strings.TrimSpace(s)
	}
	return result
}

func toStringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}

// cleanJSON attempts to extract a JSON object from text that may contain
// markdown code fences or other wrapping.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	// Strip markdown code fences.
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	// Find first { and last }.
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
