package tokens

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimate(t *testing.T) {
	n := Estimate("gpt-4o-mini", "What is the best developer tool?")
	assert.Greater(t, n, 0)
	assert.Less(t, n, 20)
}

func TestEstimate_EmptyText(t *testing.T) {
	assert.Equal(t, 0, Estimate("gpt-4o", ""))
}

func TestEstimate_UnknownModelFallsBack(t *testing.T) {
	// Unknown models fall back to a generic encoding, never zero for
	// non-empty text.
	n := Estimate("claude-3-5-sonnet-latest", "Some answer text here.")
	assert.Greater(t, n, 0)
}

func TestEstimate_LongerTextCostsMore(t *testing.T) {
	short := Estimate("gpt-4o", "one two three")
	long := Estimate("gpt-4o", "one two three four five six seven eight nine ten")
	assert.Greater(t, long, short)
}
