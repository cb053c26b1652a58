package xmlfeed

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	assert.Equal(t, "", String(nil))
	assert.Equal(t, "abc", String("  abc "))
	assert.Equal(t, "1500000", String(1500000.0))
	assert.Equal(t, "25.07", String(25.07))
	assert.Equal(t, "x", String(map[string]any{TextKey: "x", "lang": "en"}))
	assert.Equal(t, "first", String([]any{"first", "second"}))
}

func TestNumber(t *testing.T) {
	n, ok := Number("1,250,000")
	assert.True(t, ok)
	assert.Equal(t, 1250000.0, n)

	n, ok = Number(3.0)
	assert.True(t, ok)
	assert.Equal(t, 3.0, n)

	_, ok = Number("")
	assert.False(t, ok)

	_, ok = Number("studio")
	assert.False(t, ok)
}

func TestList(t *testing.T) {
	assert.Nil(t, List(nil))
	assert.Equal(t, []any{"a"}, List("a"))
	assert.Equal(t, []any{"a", "b"}, List([]any{"a", "b"}))
}
