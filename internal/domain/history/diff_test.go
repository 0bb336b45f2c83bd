package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateDiff_IdenticalInputIsEmpty(t *testing.T) {
	for _, s := range []string{"", "x", "a\nb\nc", "trailing\n", "\n\n"} {
		assert.Empty(t, GenerateDiff(s, s), "input %q", s)
	}
}

func TestGenerateDiff(t *testing.T) {
	tests := []struct {
		name string
		old  string
		new  string
		want []DiffLine
	}{
		{
			name: "from empty every line is added",
			old:  "",
			new:  "x\ny",
			want: []DiffLine{
				{Type: Added, Line: 1, Content: "x"},
				{Type: Added, Line: 2, Content: "y"},
			},
		},
		{
			name: "to empty every line is removed",
			old:  "x\ny",
			new:  "",
			want: []DiffLine{
				{Type: Removed, Line: 1, Content: "x"},
				{Type: Removed, Line: 2, Content: "y"},
			},
		},
		{
			name: "changed line is a remove+add pair",
			old:  "a\nb\nc",
			new:  "a\nB\nc",
			want: []DiffLine{
				{Type: Removed, Line: 2, Content: "b"},
				{Type: Added, Line: 2, Content: "B"},
			},
		},
		{
			name: "appended lines beyond the common prefix",
			old:  "a",
			new:  "a\nb\nc",
			want: []DiffLine{
				{Type: Added, Line: 2, Content: "b"},
				{Type: Added, Line: 3, Content: "c"},
			},
		},
		{
			// Positional, not minimal: a Myers diff would report a single added line.
			name: "insertion at the top shifts every following line",
			old:  "a\nb",
			new:  "z\na\nb",
			want: []DiffLine{
				{Type: Removed, Line: 1, Content: "a"},
				{Type: Added, Line: 1, Content: "z"},
				{Type: Removed, Line: 2, Content: "b"},
				{Type: Added, Line: 2, Content: "a"},
				{Type: Added, Line: 3, Content: "b"},
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GenerateDiff(tt.old, tt.new))
		})
	}
}
