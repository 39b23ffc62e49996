package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTelegram(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"bold and list", "**Swapped** <ul><li>done</li></ul>", "<b>Swapped</b> <li>done</li>"},
		{"plain", "gm degen", "gm degen"},
		{"italic kept", "<i>note</i> and **x**", "<i>note</i> and <b>x</b>"},
		{"multiple bold", "**a** then **b**", "<b>a</b> then <b>b</b>"},
		{"unterminated", "**open", "**open"},
		{"empty", "", Fallback},
		{"whitespace", "  \n ", Fallback},
		{"empty list", "<ul></ul>", Fallback},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Telegram(tc.in))
		})
	}
}

func TestTelegramDoesNotSpanLines(t *testing.T) {
	assert.Equal(t, "**a\nb**", Telegram("**a\nb**"))
}
