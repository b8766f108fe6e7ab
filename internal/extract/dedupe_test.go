package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeBlocks(t *testing.T) {
	tests := []struct {
		name   string
		blocks []string
		want   string
	}{
		{
			name:   "duplicates removed first seen order",
			blocks: []string{"alpha", "beta", "alpha", "gamma", "beta"},
			want:   "alpha\nbeta\ngamma",
		},
		{
			name:   "whitespace trimmed before comparison",
			blocks: []string{"  alpha  ", "alpha"},
			want:   "alpha",
		},
		{
			name:   "empty blocks dropped",
			blocks: []string{"", "alpha", "   ", "beta"},
			want:   "alpha\nbeta",
		},
		{
			name:   "all empty",
			blocks: []string{"", "  ", "\n"},
			want:   "",
		},
		{
			name:   "nil input",
			blocks: nil,
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, dedupeBlocks(tt.blocks))
		})
	}
}

func TestLooksLikeText(t *testing.T) {
	assert.True(t, looksLikeText("plain text\nwith lines\tand tabs"))
	assert.True(t, looksLikeText(""))
	assert.True(t, looksLikeText("日本語のテキスト"))
	assert.False(t, looksLikeText(string([]byte{0xFF, 0xFE, 0x00})))
	assert.False(t, looksLikeText("\x00\x01\x02\x03\x04"))
}
