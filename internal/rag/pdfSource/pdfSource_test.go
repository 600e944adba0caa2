package pdfSource

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/akolanti/DocMind/internal/testsupport/pdfFixture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_ReadsPagesAndProperties(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paper.pdf")
	require.NoError(t, pdfFixture.Write(path, "Attention Is All You Need", "Ashish Vaswani", []pdfFixture.Page{
		{Text: "The dominant sequence transduction models are based on recurrent networks."},
		{},
	}))

	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, 2, f.NumPage())
	assert.Positive(t, f.Size())

	text, err := f.PageText(1)
	require.NoError(t, err)
	assert.Contains(t, text, "sequence transduction")
	assert.False(t, f.PageHasImages(1))

	text, err = f.PageText(2)
	require.NoError(t, err)
	assert.Empty(t, strings.TrimSpace(text))

	props := f.Properties()
	assert.Equal(t, "Attention Is All You Need", props.Title)
	assert.Equal(t, "Ashish Vaswani", props.Author)
	assert.Equal(t, "docmind fixture", props.Producer)
}

func TestOpen_DetectsImageXObjects(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.pdf")
	require.NoError(t, pdfFixture.Write(path, "Scan", "", []pdfFixture.Page{{HasImage: true}}))

	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()

	assert.True(t, f.PageHasImages(1))
	text, err := f.PageText(1)
	require.NoError(t, err)
	assert.Empty(t, strings.TrimSpace(text))
}

func TestOpen_Errors(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Error(t, err)

	garbage := filepath.Join(t.TempDir(), "garbage.pdf")
	require.NoError(t, os.WriteFile(garbage, []byte("not a pdf at all"), 0o644))
	_, err = Open(garbage)
	assert.Error(t, err)
}
