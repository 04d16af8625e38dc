package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const a4Height = 841.89

func TestPaginate(t *testing.T) {
	pages := Paginate("a\nb\nc", a4Height)
	require.Len(t, pages, 1)
	assert.Equal(t, []string{"a", "b", "c"}, pages[0])

	long := strings.Repeat("line\n", 120)
	pages = Paginate(strings.TrimSuffix(long, "\n"), a4Height)
	require.Len(t, pages, 3)
	assert.Len(t, pages[0], 53)
	assert.Len(t, pages[1], 53)
	assert.Len(t, pages[2], 14)
}

func TestRenderPDF(t *testing.T) {
	out, err := RenderPDF("To,\nThe Municipal Commissioner\n\nSubject: Pothole at Ward 7")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))

	_, err = RenderPDF("  \n ")
	assert.ErrorIs(t, err, ErrEmptyComplaint)
	assert.Equal(t, "report: complaint text missing", err.Error())
}
