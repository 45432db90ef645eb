package transcription

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestIsPlaceholderTitle(t *testing.T) {
	assert.True(t, IsPlaceholderTitle(""))
	assert.True(t, IsPlaceholderTitle("  Untitled "))
	assert.True(t, IsPlaceholderTitle("Processing..."))
	assert.False(t, IsPlaceholderTitle("Board meeting"))
}

func TestInferTitle(t *testing.T) {
	tests := []struct {
		name, text, want string
	}{
		{"short", "Hello world.", "Hello world."},
		{"sentence end in window", "We met at noon today. Then we left for home.", "We met at noon today."},
		{"sentence end before window", "Hi. This is a long recording about nothing much", "Hi. This is a long recording about nothing..."},
		{"exactly eight", "one two three four five six seven eight", "one two three four five six seven eight"},
		{"truncated", "one two three four five six seven eight, nine", "one two three four five six seven eight..."},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferTitle(tt.text))
		})
	}
}

func TestInferTitle_CapsLength(t *testing.T) {
	long := strings.Repeat("x", 60)
	title := InferTitle(strings.Repeat(long+" ", 10))
	assert.Equal(t, 100, utf8.RuneCountInString(title))
	assert.True(t, strings.HasSuffix(title, "..."))
}

func TestInferTitle_Unspaced(t *testing.T) {
	tests := []struct {
		name, text, want string
	}{
		{"sentence end in window", "今天我们讨论季度预算。然后是人员安排的问题。", "今天我们讨论季度预算。"},
		{"japanese", "本日は会議の議事録を確認します。次に予算です。", "本日は会議の議事録を確認します。"},
		{"short", "你好。", "你好。"},
		{
			"truncated",
			"这是一段很长的录音内容没有任何标点符号一直在讲同一个话题直到结束",
			"这是一段很长的录音内容没有任何标点符号一…",
		},
		{"early sentence end skipped", "好的。我们开始今天的会议内容安排以及接下来几周的工作计划吧", "好的。我们开始今天的会议内容安排以及接下…"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferTitle(tt.text))
		})
	}
}

func TestInferTitle_UnspacedStaysShort(t *testing.T) {
	title := InferTitle(strings.Repeat("会议记录", 50))
	assert.Equal(t, 21, utf8.RuneCountInString(title))
}
