package anthropic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateCost(t *testing.T) {
	usage := TokenUsage{InputTokens: 1_000_000, OutputTokens: 500_000}

	cost := usage.EstimateCost("claude-haiku-4-5-20251001")
	assert.InDelta(t, 0.80+2.00, cost, 0.001)
}

func TestEstimateCost_UnknownModel(t *testing.T) {
	usage := TokenUsage{InputTokens: 1_000_000}
	assert.Zero(t, usage.EstimateCost("some-unknown-model"))
}

func TestEstimateCost_CacheTokens(t *testing.T) {
	usage := TokenUsage{
		CacheCreationInputTokens: 1_000_000,
		CacheReadInputTokens:     1_000_000,
	}

	cost := usage.EstimateCost("claude-haiku-4-5-20251001")
	assert.InDelta(t, 0.80*1.25+0.80*0.1, cost, 0.001)
}

func TestMessageResponse_Text(t *testing.T) {
	resp := &MessageResponse{Content: []ContentBlock{
		{Type: "text", Text: "hello "},
		{Type: "tool_use", Text: "ignored"},
		{Type: "text", Text: "world"},
	}}
	assert.Equal(t, "hello world", resp.Text())
}

func TestMessageResponse_Text_Empty(t *testing.T) {
	resp := &MessageResponse{}
	assert.Empty(t, resp.Text())
}

func TestBuildCachedSystemBlocks(t *testing.T) {
	blocks := BuildCachedSystemBlocks("You are an assistant.")

	assert.Len(t, blocks, 1)
	assert.Equal(t, "You are an assistant.", blocks[0].Text)
	assert.NotNil(t, blocks[0].CacheControl)
	assert.Equal(t, "1h", blocks[0].CacheControl.TTL)
}

func TestToSDKSystemBlocks(t *testing.T) {
	out := toSDKSystemBlocks([]SystemBlock{
		{Text: "cached", CacheControl: &CacheControl{TTL: "1h"}},
		{Text: "plain"},
	})

	assert.Len(t, out, 2)
	assert.Equal(t, "cached", out[0].Text)
	assert.Equal(t, "1h", string(out[0].CacheControl.TTL))
	assert.Equal(t, "plain", out[1].Text)
}
