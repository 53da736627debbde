package compose

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "You have two tasks.", "You have two tasks."},
		{"emphasis", "You have **two** tasks, _both_ due today.", "You have two tasks, both due today."},
		{"wrapping quotes", `"Sure, it's on your calendar."`, "Sure, it's on your calendar."},
		{"curly quotes", "“Done.”", "Done."},
		{"inner quotes kept", `"Renew passport" and "File expenses" are due.`, `"Renew passport" and "File expenses" are due.`},
		{"whitespace", "Line one.\n\n   Line   two.\t", "Line one. Line two."},
		{"heading", "# Your day\nTwo meetings.", "Your day. Two meetings."},
		{"bullets", "Your tasks:\n\n- Renew passport\n- File expenses\n", "Your tasks: Renew passport. File expenses."},
		{"link", "See [the doc](https://example.com) for details.", "See the doc for details."},
		{"code span", "Run `make seed` first.", "Run make seed first."},
		{"empty", "  \n ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}
