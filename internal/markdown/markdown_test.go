package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToHTML(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		contains []string
	}{
		{name: "heading gets an id", in: "# Getting Started", contains: []string{`<h1 id="getting-started">Getting Started</h1>`}},
		{name: "emphasis", in: "some **bold** text", contains: []string{"<strong>bold</strong>"}},
		{name: "gfm table", in: "| a | b |\n|---|---|\n| 1 | 2 |", contains: []string{"<table>", "<td>1</td>"}},
		{name: "raw html passes through", in: `<div class="note">hi</div>`, contains: []string{`<div class="note">hi</div>`}},
		{name: "fenced code", in: "```go\nfmt.Println(1)\n```", contains: []string{"<pre", "Println"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToHTML(tt.in)
			require.NoError(t, err)
			for _, want := range tt.contains {
				assert.Contains(t, got, want)
			}
		})
	}
}

func TestToHTML_Empty(t *testing.T) {
	got, err := ToHTML("")
	require.NoError(t, err)
	assert.Empty(t, got)
}
