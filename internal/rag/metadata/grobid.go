package metadata

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/akolanti/DocMind/internal/config"
	"github.com/akolanti/DocMind/internal/customHttpClient"
	"github.com/akolanti/DocMind/internal/domain/commonModels"
	"github.com/akolanti/DocMind/internal/metrics"
	"github.com/akolanti/DocMind/pkg/logger_i"
	"github.com/akolanti/DocMind/pkg/retry"
)

var errGrobidBusy = errors.New("grobid busy")

// GrobidClient talks to the GROBID REST API.
type GrobidClient struct {
	baseURL     string
	http        *http.Client
	aliveClient *http.Client
	retry       retry.Config
	logger      *logger_i.Logger
}

func NewGrobidClient(baseURL string) *GrobidClient {
	if baseURL == "" {
		baseURL = config.GrobidURL
	}
	logger := logger_i.NewLogger("grobid")
	rc := retry.DefaultConfig()
	rc.InitialDelay = time.Second
	rc.Retryable = func(err error) bool { return errors.Is(err, errGrobidBusy) }
	rc.Logger = logger
	return &GrobidClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		http:        customHttpClient.NewClient(config.GrobidProcessTimeout),
		aliveClient: customHttpClient.NewClient(config.GrobidAliveTimeout),
		retry:       rc,
		logger:      logger,
	}
}

func (c *GrobidClient) IsAlive(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/isalive", nil)
	if err != nil {
		return false
	}
	resp, err := c.aliveClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

// ProcessFulltext uploads the PDF and parses the returned TEI document.
func (c *GrobidClient) ProcessFulltext(ctx context.Context, path string) (commonModels.PaperMetadata, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("grobid", time.Since(start)) }()

	pdfBytes, err := os.ReadFile(path)
	if err != nil {
		return commonModels.PaperMetadata{}, err
	}

	body, err := retry.DoWithResult(ctx, c.retry, func() ([]byte, error) {
		return c.post(ctx, filepath.Base(path), pdfBytes)
	})
	if err != nil {
		return commonModels.PaperMetadata{}, err
	}
	return ParseTEI(body)
}

func (c *GrobidClient) post(ctx context.Context, fileName string, pdfBytes []byte) ([]byte, error) {
	var form bytes.Buffer
	writer := multipart.NewWriter(&form)
	part, err := writer.CreateFormFile("input", fileName)
	if err != nil {
		return nil, err
	}
	if _, err = part.Write(pdfBytes); err != nil {
		return nil, err
	}
	if err = writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/processFulltextDocument", &form)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/xml")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusServiceUnavailable:
		return nil, errGrobidBusy
	default:
		return nil, fmt.Errorf("grobid returned %d", resp.StatusCode)
	}
}

type teiDocument struct {
	XMLName         xml.Name        `xml:"TEI"`
	Title           string          `xml:"teiHeader>fileDesc>titleStmt>title"`
	Authors         []teiAuthor     `xml:"teiHeader>fileDesc>sourceDesc>biblStruct>analytic>author"`
	AbstractDivs    []string        `xml:"teiHeader>profileDesc>abstract>div>p"`
	AbstractDirect  []string        `xml:"teiHeader>profileDesc>abstract>p"`
	Bibliography    []teiBiblStruct `xml:"text>back>div>listBibl>biblStruct"`
	PublicationDate teiDate         `xml:"teiHeader>fileDesc>publicationStmt>date"`
}

type teiAuthor struct {
	Forenames []string `xml:"persName>forename"`
	Surname   string   `xml:"persName>surname"`
}

func (a teiAuthor) name() string {
	parts := make([]string, 0, len(a.Forenames)+1)
	for _, f := range a.Forenames {
		if f = strings.TrimSpace(f); f != "" {
			parts = append(parts, f)
		}
	}
	if s := strings.TrimSpace(a.Surname); s != "" {
		parts = append(parts, s)
	}
	return strings.Join(parts, " ")
}

type teiBiblStruct struct {
	Titles []teiTitle `xml:"analytic>title"`
}

type teiTitle struct {
	Level string `xml:"level,attr"`
	Value string `xml:",chardata"`
}

type teiDate struct {
	When  string `xml:"when,attr"`
	Value string `xml:",chardata"`
}

// ParseTEI turns a GROBID TEI response into paper metadata.
func ParseTEI(body []byte) (commonModels.PaperMetadata, error) {
	var doc teiDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return commonModels.PaperMetadata{}, fmt.Errorf("parse tei: %w", err)
	}

	meta := commonModels.PaperMetadata{
		Title:  strings.TrimSpace(doc.Title),
		Source: SourceGrobid,
	}
	for _, a := range doc.Authors {
		if name := a.name(); name != "" {
			meta.Authors = append(meta.Authors, name)
		}
	}
	if len(meta.Authors) > 0 {
		meta.Author = meta.Authors[0]
	}

	paragraphs := append(doc.AbstractDivs, doc.AbstractDirect...)
	meta.Abstract = strings.TrimSpace(strings.Join(trimAll(paragraphs), " "))

	for _, b := range doc.Bibliography {
		for _, t := range b.Titles {
			title := strings.TrimSpace(t.Value)
			if t.Level == "a" && title != "" {
				meta.References = append(meta.References, commonModels.Reference{Title: title})
				break
			}
		}
	}
	meta.ReferenceCount = len(meta.References)

	if doc.PublicationDate.When != "" {
		meta.CreationDate = doc.PublicationDate.When
	} else {
		meta.CreationDate = strings.TrimSpace(doc.PublicationDate.Value)
	}

	meta.AppearsAcademic = appearsAcademic(meta)
	return meta, nil
}

func appearsAcademic(meta commonModels.PaperMetadata) bool {
	signals := 0
	for _, ok := range []bool{
		meta.Abstract != "",
		meta.Author != "",
		len(meta.References) > 0,
		meta.ReferenceCount > config.GrobidMinReferenceSignal,
	} {
		if ok {
			signals++
		}
	}
	return signals >= 2
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
