package notify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUTF16Len(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int
	}{
		{"ascii", "abc", 3},
		{"turkish", "çış", 3},
		{"emoji surrogate pair", "📊", 2},
		{"empty", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, utf16Len(tt.in))
		})
	}
}

func TestSplit_ShortTextIsOnePart(t *testing.T) {
	assert.Equal(t, []string{"hello"}, Split("hello", 10))
	assert.Equal(t, []string{""}, Split("", 10))
}

func TestSplit_PrefersLineBreaks(t *testing.T) {
	text := "- Ali — 3\n- Veli — 2\n- Ayşe — 1"

	parts := Split(text, 12)

	assert.Equal(t, []string{"- Ali — 3", "- Veli — 2", "- Ayşe — 1"}, parts)
}

func TestSplit_FallsBackToSpaces(t *testing.T) {
	parts := Split("aaaa bbbb cccc", 10)

	require.Len(t, parts, 2)
	assert.Equal(t, "aaaa bbbb ", parts[0])
	assert.Equal(t, "cccc", parts[1])
}

func TestSplit_CountsEmojiAsTwoUnits(t *testing.T) {
	text := strings.Repeat("📊", 5)

	parts := Split(text, 4)

	assert.Equal(t, []string{"📊📊", "📊📊", "📊"}, parts)

	for _, p := range parts {
		assert.LessOrEqual(t, utf16Len(p), 4)
	}
}

func TestSplit_TelegramLimit(t *testing.T) {
	line := strings.Repeat("x", 99) + "\n"
	text := strings.Repeat(line, 100)

	parts := Split(text, MaxMessageUnits)

	require.Len(t, parts, 3)

	for _, p := range parts {
		assert.LessOrEqual(t, utf16Len(p), MaxMessageUnits)
	}

	assert.Equal(t, strings.TrimRight(text, "\n"), strings.Join(parts, "\n"))
}
