package normalizers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessage(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"lowercases", "Your Payment Is Due", "your payment is due"},
		{"drops punctuation", "your payment is due!!", "your payment is due"},
		{"collapses whitespace", "  hello \t\n  world  ", "hello world"},
		{"compatibility fold", "ｈｅｌｌｏ", "hello"},
		{"keeps digits", "Order #1234 shipped.", "order 1234 shipped"},
		{"only punctuation", "?!...", ""},
		{"keeps non latin letters", "Olá, ¿cómo estás?", "olá cómo estás"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Message(tt.input))
		})
	}
}

func TestMessage_Idempotent(t *testing.T) {
	for _, s := range []string{"Hello, World!", "ｈｅｌｌｏ  there", "  A.B.C  "} {
		once := Message(s)
		assert.Equal(t, once, Message(once))
	}
}

func TestApply(t *testing.T) {
	t.Run("known normalizer", func(t *testing.T) {
		assert.Equal(t, "15551234567", Apply("+1 (555) 123-4567", "nphone"))
	})

	t.Run("unknown normalizer returns input", func(t *testing.T) {
		assert.Equal(t, "Value", Apply("Value", "does_not_exist"))
	})

	t.Run("chain", func(t *testing.T) {
		assert.Equal(t, "hello world", ApplyChain("  Hello,   World! ", "remove_punctuation", "lowercase", "collapse_whitespace"))
	})
}

func TestRegister(t *testing.T) {
	Register("upper_x", func(s string) string { return s + "X" })
	fn, ok := Get("upper_x")
	assert.True(t, ok)
	assert.Equal(t, "aX", fn("a"))
}
