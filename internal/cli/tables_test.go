package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderTable(t *testing.T) {
	out := RenderTable(
		[]string{"SUBJECT", "YES", "RATIO"},
		[][]string{
			{"1090018000", "12", "0.86"},
			{"1090018001", "3"}, // short row pads out
		},
		[]Alignment{AlignLeft, AlignRight, AlignRight},
	)

	assert.Contains(t, out, "SUBJECT")
	assert.Contains(t, out, "1090018000")
	assert.Contains(t, out, "0.86")
	assert.Contains(t, out, "1090018001")

	// Rounded border and one line per row plus frame.
	assert.Contains(t, out, "╭")
	lines := strings.Split(out, "\n")
	assert.Len(t, lines, 6)
}

func TestRenderTable_Empty(t *testing.T) {
	assert.Empty(t, RenderTable(nil, nil, nil))
}
