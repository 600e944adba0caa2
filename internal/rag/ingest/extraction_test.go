package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/akolanti/DocMind/internal/domain/commonModels"
	"github.com/akolanti/DocMind/internal/testsupport/pdfFixture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePages struct {
	texts  []string
	closed bool
}

func (f *fakePages) NumPage() int                { return len(f.texts) }
func (f *fakePages) PageHasImages(page int) bool { return strings.TrimSpace(f.texts[page-1]) == "" }
func (f *fakePages) Close() error                { f.closed = true; return nil }

func (f *fakePages) PageText(page int) (string, error) {
	if f.texts[page-1] == "<broken>" {
		return "", errors.New("malformed content stream")
	}
	return f.texts[page-1], nil
}

type mockOCR struct {
	calls      []int
	OnPageText func(ctx context.Context, path string, page int) (string, error)
}

func (m *mockOCR) PageText(ctx context.Context, path string, page int) (string, error) {
	m.calls = append(m.calls, page)
	if m.OnPageText != nil {
		return m.OnPageText(ctx, path, page)
	}
	return "", nil
}

func extractorFor(pages *fakePages, o PageOCR) *Extractor {
	e := NewExtractor(o)
	e.open = func(string) (pageDocument, error) { return pages, nil }
	return e
}

func blankPages(n int) *fakePages {
	return &fakePages{texts: make([]string, n)}
}

func TestExtract_ScannedDocumentOCRsEveryPage(t *testing.T) {
	pages := blankPages(10)
	o := &mockOCR{OnPageText: func(_ context.Context, _ string, page int) (string, error) {
		return fmt.Sprintf("recognised text of page %d", page), nil
	}}

	got, err := extractorFor(pages, o).Extract(context.Background(), "scan.pdf")
	require.NoError(t, err)

	assert.Len(t, o.calls, 10)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, got.Stats.OCRPages)
	assert.Equal(t, 10, got.Stats.PagesProcessed)
	for _, m := range got.Stats.ExtractionMethod {
		assert.Equal(t, MethodOCR, m)
	}
	assert.Contains(t, got.Text, "recognised text of page 10")
	assert.True(t, pages.closed)
}

func TestExtract_ScannedDocumentWithoutUsableOCR(t *testing.T) {
	o := &mockOCR{OnPageText: func(context.Context, string, int) (string, error) {
		return "  ~ ", nil
	}}

	_, err := extractorFor(blankPages(10), o).Extract(context.Background(), "scan.pdf")
	assert.ErrorIs(t, err, commonModels.ErrExtraction)
	assert.Len(t, o.calls, 10)
}

func TestExtract_OneUsablePageIsEnough(t *testing.T) {
	o := &mockOCR{OnPageText: func(_ context.Context, _ string, page int) (string, error) {
		if page == 7 {
			return "only page seven was readable", nil
		}
		return "", errors.New("tesseract exited 1")
	}}

	got, err := extractorFor(blankPages(10), o).Extract(context.Background(), "scan.pdf")
	require.NoError(t, err)
	assert.Equal(t, []int{7}, got.Stats.OCRPages)
	assert.Equal(t, MethodOCR, got.Stats.ExtractionMethod[6])
	assert.Equal(t, MethodNativeFallback, got.Stats.ExtractionMethod[0])
	assert.Equal(t, "only page seven was readable", got.Text)
}

func TestExtract_NativePagesSkipOCR(t *testing.T) {
	native := strings.Repeat("Attention weighs every token against the others. ", 3)
	pages := &fakePages{texts: []string{native, "<broken>", "short caption"}}
	o := &mockOCR{}

	got, err := extractorFor(pages, o).Extract(context.Background(), "mixed.pdf")
	require.NoError(t, err)

	assert.Equal(t, []int{2, 3}, o.calls)
	assert.Equal(t, []string{MethodNative, MethodNativeFallback, MethodNativeFallback}, got.Stats.ExtractionMethod)
	assert.Empty(t, got.Stats.OCRPages)
	assert.Equal(t, len(strings.Fields(got.Text)), got.Stats.WordCount)
	assert.True(t, strings.HasSuffix(got.Text, "short caption"))
}

func TestExtract_ThresholdsCountCharacters(t *testing.T) {
	// 40 Greek letters are 80 bytes but fewer than 50 characters, so the page still goes to OCR
	greek := strings.Repeat("αβγδ", 10)
	o := &mockOCR{OnPageText: func(context.Context, string, int) (string, error) {
		return "ζηθικλ", nil // 12 bytes, 6 characters: not useful
	}}

	got, err := extractorFor(&fakePages{texts: []string{greek}}, o).Extract(context.Background(), "greek.pdf")
	require.NoError(t, err)

	assert.Equal(t, []int{1}, o.calls)
	assert.Equal(t, []string{MethodNativeFallback}, got.Stats.ExtractionMethod)
	assert.Equal(t, greek, got.Text)
	assert.Equal(t, 40, got.Stats.CharCount)
}

func TestExtract_OCRDisabled(t *testing.T) {
	_, err := extractorFor(blankPages(3), nil).Extract(context.Background(), "scan.pdf")
	assert.ErrorIs(t, err, commonModels.ErrExtraction)
}

func TestExtract_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := extractorFor(blankPages(2), &mockOCR{}).Extract(ctx, "scan.pdf")
	assert.ErrorIs(t, err, commonModels.ErrExtraction)
}

func TestCleanText(t *testing.T) {
	in := "  Title\n\n\n   \nFirst\t\tline  with   spaces\n\nEnd  "
	assert.Equal(t, "Title\n\nFirst line with spaces\n\nEnd", CleanText(in))
}

func TestValidateFile(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "paper.pdf")
	require.NoError(t, pdfFixture.Write(good, "Paper", "Author", []pdfFixture.Page{
		{Text: "Page one"}, {Text: "Page two"},
	}))
	notPDF := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(notPDF, []byte("plain"), 0o644))
	garbage := filepath.Join(dir, "garbage.pdf")
	require.NoError(t, os.WriteFile(garbage, []byte("this is not a pdf"), 0o644))

	res, err := ValidateFile(good, 100<<20)
	require.NoError(t, err)
	assert.Equal(t, 2, res.PageCount)
	assert.Positive(t, res.FileSize)

	tests := []struct {
		name     string
		path     string
		maxBytes int64
	}{
		{"missing", filepath.Join(dir, "missing.pdf"), 100 << 20},
		{"directory", dir, 100 << 20},
		{"extension", notPDF, 100 << 20},
		{"too large", good, 10},
		{"unreadable", garbage, 100 << 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateFile(tt.path, tt.maxBytes)
			assert.ErrorIs(t, err, commonModels.ErrValidation)
		})
	}
}

func TestInUploadDir(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		path string
		dir  string
		want bool
	}{
		{"inside", filepath.Join(dir, "a1b2_paper.pdf"), dir, true},
		{"nested", filepath.Join(dir, "2026", "paper.pdf"), dir, true},
		{"sibling", filepath.Join(filepath.Dir(dir), "paper.pdf"), dir, false},
		{"prefix trick", dir + "-other/paper.pdf", dir, false},
		{"the dir itself", dir, dir, false},
		{"no upload dir", filepath.Join(dir, "paper.pdf"), "", false},
		{"no path", "", dir, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InUploadDir(tt.path, tt.dir))
		})
	}
}

func TestRemoveUpload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paper.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o600))

	require.NoError(t, RemoveUpload(path))
	assert.NoFileExists(t, path)
	assert.NoError(t, RemoveUpload(path), "already gone")
	assert.NoError(t, RemoveUpload(""))
}
