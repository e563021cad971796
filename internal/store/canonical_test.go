package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "sorts keys and drops whitespace",
			input:    `{ "b": 1, "a": [true, null] }`,
			expected: `{"a":[true,null],"b":1}`,
		},
		{
			name:     "normalizes numbers a double carries",
			input:    `{"n":1.0,"m":1e3,"f":0.1}`,
			expected: `{"f":0.1,"m":1000,"n":1}`,
		},
		{
			name:     "keeps integers above 2^53",
			input:    `{"edition":12345678901234567891,"b":"<x>"}`,
			expected: `{"b":"<x>","edition":12345678901234567891}`,
		},
		{
			name:     "keeps out of range exponents",
			input:    `[1e400]`,
			expected: `[1e400]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := canonicalize([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(got))

			again, err := canonicalize(got)
			require.NoError(t, err)
			assert.Equal(t, string(got), string(again))
		})
	}
}

func TestCanonicalize_Invalid(t *testing.T) {
	for _, input := range []string{`{"title":`, `{} {}`, ``} {
		_, err := canonicalize([]byte(input))
		assert.Error(t, err, input)
	}
}
