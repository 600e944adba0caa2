package metadata

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/akolanti/DocMind/internal/domain/commonModels"
	"github.com/akolanti/DocMind/internal/testsupport/pdfFixture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTEI = `<?xml version="1.0" encoding="UTF-8"?>
<TEI xmlns="http://www.tei-c.org/ns/1.0">
  <teiHeader>
    <fileDesc>
      <titleStmt><title level="a" type="main">Attention Is All You Need</title></titleStmt>
      <publicationStmt><date type="published" when="2017-06-12">12 June 2017</date></publicationStmt>
      <sourceDesc>
        <biblStruct>
          <analytic>
            <author><persName><forename type="first">Ashish</forename><surname>Vaswani</surname></persName></author>
            <author><persName><forename type="first">Noam</forename><surname>Shazeer</surname></persName></author>
            <author><affiliation>Google Brain</affiliation></author>
          </analytic>
        </biblStruct>
      </sourceDesc>
    </fileDesc>
    <profileDesc>
      <abstract><div><p>The dominant sequence transduction models are based on recurrent networks.</p></div></abstract>
    </profileDesc>
  </teiHeader>
  <text>
    <back>
      <div type="references">
        <listBibl>
          <biblStruct><analytic><title level="a" type="main">Layer normalization</title></analytic></biblStruct>
          <biblStruct><analytic><title level="a" type="main">Neural machine translation</title></analytic></biblStruct>
          <biblStruct><monogr><title level="m">A book without analytic part</title></monogr></biblStruct>
        </listBibl>
      </div>
    </back>
  </text>
</TEI>`

func TestParseTEI(t *testing.T) {
	meta, err := ParseTEI([]byte(sampleTEI))
	require.NoError(t, err)

	assert.Equal(t, "Attention Is All You Need", meta.Title)
	assert.Equal(t, "Ashish Vaswani", meta.Author)
	assert.Equal(t, []string{"Ashish Vaswani", "Noam Shazeer"}, meta.Authors)
	assert.Contains(t, meta.Abstract, "sequence transduction")
	assert.Equal(t, 2, meta.ReferenceCount)
	assert.Equal(t, "Layer normalization", meta.References[0].Title)
	assert.Equal(t, "2017-06-12", meta.CreationDate)
	assert.Equal(t, SourceGrobid, meta.Source)
	assert.True(t, meta.AppearsAcademic)
}

func TestParseTEI_Invalid(t *testing.T) {
	_, err := ParseTEI([]byte("<html>not tei</html>"))
	assert.Error(t, err)
}

func TestAppearsAcademic(t *testing.T) {
	tests := []struct {
		name string
		meta commonModels.PaperMetadata
		want bool
	}{
		{"nothing", commonModels.PaperMetadata{}, false},
		{"abstract only", commonModels.PaperMetadata{Abstract: "x"}, false},
		{"abstract and author", commonModels.PaperMetadata{Abstract: "x", Author: "y"}, true},
		{"references count as two signals", commonModels.PaperMetadata{
			References: make([]commonModels.Reference, 4), ReferenceCount: 4,
		}, true},
		{"few references", commonModels.PaperMetadata{
			References: make([]commonModels.Reference, 2), ReferenceCount: 2,
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, appearsAcademic(tt.meta))
		})
	}
}

func newTestGrobid(t *testing.T, handler http.HandlerFunc) *GrobidClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewGrobidClient(srv.URL)
	c.retry.InitialDelay = time.Millisecond
	c.retry.MaxDelay = 5 * time.Millisecond
	return c
}

func writePDF(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "paper.pdf")
	require.NoError(t, pdfFixture.Write(path, "Embedded Title", "Jane Roe", []pdfFixture.Page{
		{Text: "Some page text for the fixture document."},
		{Text: "Second page."},
	}))
	return path
}

func TestGrobidClient_RetriesWhenBusy(t *testing.T) {
	var calls atomic.Int32
	c := newTestGrobid(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/isalive":
			w.WriteHeader(http.StatusOK)
		case "/api/processFulltextDocument":
			file, header, err := r.FormFile("input")
			if !assert.NoError(t, err) {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			defer file.Close()
			assert.Equal(t, "paper.pdf", header.Filename)
			_, _ = io.Copy(io.Discard, file)

			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte(sampleTEI))
		}
	})

	assert.True(t, c.IsAlive(context.Background()))
	meta, err := c.ProcessFulltext(context.Background(), writePDF(t))
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, "Attention Is All You Need", meta.Title)
}

func TestGrobidClient_ServerError(t *testing.T) {
	var calls atomic.Int32
	c := newTestGrobid(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})
	_, err := c.ProcessFulltext(context.Background(), writePDF(t))
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGrobidClient_NotAlive(t *testing.T) {
	c := NewGrobidClient("http://127.0.0.1:1")
	assert.False(t, c.IsAlive(context.Background()))
}

type mockGrobid struct {
	OnIsAlive         func(ctx context.Context) bool
	OnProcessFulltext func(ctx context.Context, path string) (commonModels.PaperMetadata, error)
}

func (m *mockGrobid) IsAlive(ctx context.Context) bool { return m.OnIsAlive(ctx) }
func (m *mockGrobid) ProcessFulltext(ctx context.Context, path string) (commonModels.PaperMetadata, error) {
	return m.OnProcessFulltext(ctx, path)
}

func TestExtractor_UsesGrobidForDigital(t *testing.T) {
	path := writePDF(t)
	e := NewExtractor(&mockGrobid{
		OnIsAlive: func(ctx context.Context) bool { return true },
		OnProcessFulltext: func(ctx context.Context, p string) (commonModels.PaperMetadata, error) {
			return commonModels.PaperMetadata{Title: "From Grobid", Source: SourceGrobid, AppearsAcademic: true}, nil
		},
	})

	meta := e.Extract(context.Background(), path, commonModels.PDFDigital)
	assert.Equal(t, "From Grobid", meta.Title)
	assert.Equal(t, "paper.pdf", meta.FileName)
	assert.Positive(t, meta.FileSize)
	assert.Empty(t, meta.Fallbacks)
}

func TestExtractor_ScannedSkipsGrobid(t *testing.T) {
	path := writePDF(t)
	e := NewExtractor(&mockGrobid{
		OnIsAlive: func(ctx context.Context) bool {
			t.Fatal("grobid must not be consulted for scanned documents")
			return false
		},
	})

	meta := e.Extract(context.Background(), path, commonModels.PDFScanned)
	assert.Equal(t, SourceBasic, meta.Source)
	assert.Equal(t, "Embedded Title", meta.Title)
	assert.Equal(t, "Jane Roe", meta.Author)
	assert.Equal(t, 2, meta.PageCount)
	assert.False(t, meta.AppearsAcademic)
	require.Len(t, meta.Fallbacks, 1)
	assert.Contains(t, meta.Fallbacks[0], "grobid")
}

func TestExtractor_GrobidFailureFallsBack(t *testing.T) {
	path := writePDF(t)
	e := NewExtractor(&mockGrobid{
		OnIsAlive: func(ctx context.Context) bool { return true },
		OnProcessFulltext: func(ctx context.Context, p string) (commonModels.PaperMetadata, error) {
			return commonModels.PaperMetadata{}, errors.New("tei broken")
		},
	})

	meta := e.Extract(context.Background(), path, commonModels.PDFDigital)
	assert.Equal(t, SourceBasic, meta.Source)
	assert.Equal(t, []string{"grobid: tei broken"}, meta.Fallbacks)
}

func TestExtractor_NeverFails(t *testing.T) {
	e := NewExtractor(nil)
	meta := e.Extract(context.Background(), filepath.Join(t.TempDir(), "gone.pdf"), commonModels.PDFUnknown)
	assert.Equal(t, "gone.pdf", meta.FileName)
	assert.Equal(t, SourceBasic, meta.Source)
	assert.Len(t, meta.Fallbacks, 2)
}
