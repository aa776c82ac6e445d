package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice_story/internal/apperr"
	"voice_story/internal/models"
)

func TestParseComposition(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		poem   string
		prompt string
	}{
		{"plain", `{"poem":"雪落无声","image_prompt":"雪夜小屋"}`, "雪落无声", "雪夜小屋"},
		{"json fence", "```json\n{\"poem\":\"灯火\",\"image_prompt\":\"暖光\"}\n```", "灯火", "暖光"},
		{"bare fence", "```\n{\"poem\":\"星河\",\"image_prompt\":\"银河\"}\n```", "星河", "银河"},
		{"surrounding whitespace", "  \n{\"poem\":\"风\",\"image_prompt\":\"原野\"}\n\n", "风", "原野"},
		{"missing prompt", `{"poem":"只有诗"}`, "只有诗", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ParseComposition(tt.raw, "用户原话")
			assert.Equal(t, models.Parsed, res.Outcome)
			assert.NoError(t, res.Err)
			assert.Equal(t, tt.poem, res.Composition.PoemText)
			assert.Equal(t, tt.prompt, res.Composition.ImagePrompt)
		})
	}
}

func TestParseComposition_Fallback(t *testing.T) {
	raw := "这不是JSON，而是一首诗。"
	res := ParseComposition(raw, "今晚下雪了")

	assert.Equal(t, models.Fallback, res.Outcome)
	assert.Error(t, res.Err)
	assert.Equal(t, raw, res.Composition.PoemText)
	assert.Equal(t, fmt.Sprintf(FallbackImagePromptTemplate, "今晚下雪了"), res.Composition.ImagePrompt)
	assert.Equal(t, "Christmas atmosphere, magical, 今晚下雪了", res.Composition.ImagePrompt)
}

func TestParseComposition_FallbackKeepsRawFence(t *testing.T) {
	raw := "```json\n{\"poem\": broken\n```"
	res := ParseComposition(raw, "x")
	assert.Equal(t, models.Fallback, res.Outcome)
	assert.Equal(t, raw, res.Composition.PoemText)
}

func TestBuildCompositionPrompt(t *testing.T) {
	system, user := BuildCompositionPrompt("我想念家乡")
	assert.Contains(t, system, "JSON")
	assert.Contains(t, user, `"我想念家乡"`)
	assert.Contains(t, user, "60字以内")
	assert.Contains(t, user, `"image_prompt"`)
}

func TestComposer_Generate(t *testing.T) {
	llm := &fakeLLM{content: `{"poem":"愿你被温柔以待","image_prompt":"窗边的暖灯"}`}
	res, err := NewComposer(llm).Generate(context.Background(), "今天有点累")
	require.NoError(t, err)

	assert.Equal(t, models.Parsed, res.Outcome)
	assert.Equal(t, "愿你被温柔以待", res.Composition.PoemText)
	assert.Contains(t, llm.user, "今天有点累")
	assert.NotEmpty(t, llm.system)
}

func TestComposer_LLMFailureIsGenerationError(t *testing.T) {
	_, err := NewComposer(&fakeLLM{err: errProvider}).Generate(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, apperr.KindGeneration, apperr.KindOf(err))
	assert.ErrorIs(t, err, errProvider)
}

func TestComposer_KeepsClassifiedError(t *testing.T) {
	classified := apperr.New(apperr.KindGeneration, "LLM failed").WithDetails("status 401")
	_, err := NewComposer(&fakeLLM{err: classified}).Generate(context.Background(), "x")

	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "status 401", appErr.Details)
}
