package wordle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		word string
		want bool
	}{
		{"crane", false},
		{"apple", true},
		{"APPLE", true},
		{"  world ", true},
		{"worlds", false},
		{"", false},
		{"zzzzz", false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Validate(tc.word), tc.word)
	}
	assert.Greater(t, Size(), 400)
}

func TestScore(t *testing.T) {
	assert.Equal(t, []Mark{Correct, Correct, Correct, Correct, Correct}, Score("apple", "apple"))
	assert.True(t, Solved(Score("apple", "APPLE")))

	// the only l in "world" is taken by the exact match, so the first l stays absent
	assert.Equal(t, []Mark{Absent, Absent, Absent, Correct, Present}, Score("hello", "world"))

	// only one p left over after the exact match, so only the first misplaced p counts
	assert.Equal(t, []Mark{Present, Correct, Absent, Absent, Absent}, Score("ppxyz", "apple"))

	assert.False(t, Solved(nil))
}
