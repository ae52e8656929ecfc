package readability

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsReadable(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"empty", "", false},
		{"whitespace only", " \n\t\r ", false},
		{"all alphanumeric", "aaaa1111", true},
		{"all symbols", "!@#$%^&*()", false},
		{"prose with spaces", "Senior Go engineer with 8 years of experience", true},
		{"exactly at threshold", "abcdefg!!!", false},
		{"just above threshold", "abcdefgh!!", true},
		{"non-ascii letters count against", "résumé été", false},
		{"binary leakage", "\x00\x01\x02ab\xff\xfe", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsReadable(tt.text, DefaultThreshold))
		})
	}
}

func TestIsReadableCustomThreshold(t *testing.T) {
	text := "ab!!" // ratio 0.5
	assert.True(t, IsReadable(text, 0.4))
	assert.False(t, IsReadable(text, 0.5))
}

func TestRatio(t *testing.T) {
	ratio, ok := Ratio("a b !")
	assert.True(t, ok)
	assert.InDelta(t, 2.0/3.0, ratio, 1e-9)

	_, ok = Ratio(strings.Repeat(" ", 10))
	assert.False(t, ok)
}
