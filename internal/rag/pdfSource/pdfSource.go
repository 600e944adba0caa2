package pdfSource

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/akolanti/DocMind/internal/config"
	"github.com/akolanti/DocMind/pkg/logger_i"
	"github.com/dslipak/pdf"
)

var ErrPageTimeout = errors.New("page text extraction timed out")

// Source is the per-page view of a PDF used by the classifier and the extractor. Pages are 1-based.
type Source interface {
	NumPage() int
	PageText(page int) (string, error)
	PageHasImages(page int) bool
}

type Properties struct {
	Title        string
	Author       string
	Subject      string
	Creator      string
	Producer     string
	CreationDate string
	ModDate      string
}

type File struct {
	file   *os.File
	reader *pdf.Reader
	path   string
	size   int64
	logger *logger_i.Logger
}

var pageTimeout = config.PageTextExtractTimeout

func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to stat pdf: %w", err)
	}

	reader, err := newReader(f, info.Size())
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to parse pdf: %w", err)
	}

	return &File{
		file:   f,
		reader: reader,
		path:   path,
		size:   info.Size(),
		logger: logger_i.NewLogger("pdf_source").With("path", path),
	}, nil
}

// newReader guards against the parser panicking on malformed cross-reference tables.
func newReader(f *os.File, size int64) (r *pdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("malformed pdf: %v", rec)
		}
	}()
	return pdf.NewReader(f, size)
}

func (f *File) Close() error {
	return f.file.Close()
}

func (f *File) Path() string { return f.path }

func (f *File) Size() int64 { return f.size }

func (f *File) NumPage() int {
	return f.reader.NumPage()
}

func (f *File) PageText(page int) (string, error) {
	p := f.reader.Page(page)
	if p.V.IsNull() {
		f.logger.Debug("page value is null", "page", page)
		return "", nil
	}
	return protectExtract(p)
}

func (f *File) PageHasImages(page int) bool {
	p := f.reader.Page(page)
	if p.V.IsNull() {
		return false
	}
	return hasImages(p.Resources(), 0)
}

// Properties reads the document Info dictionary.
func (f *File) Properties() Properties {
	info := f.reader.Trailer().Key("Info")
	if info.IsNull() {
		return Properties{}
	}
	return Properties{
		Title:        info.Key("Title").Text(),
		Author:       info.Key("Author").Text(),
		Subject:      info.Key("Subject").Text(),
		Creator:      info.Key("Creator").Text(),
		Producer:     info.Key("Producer").Text(),
		CreationDate: info.Key("CreationDate").Text(),
		ModDate:      info.Key("ModDate").Text(),
	}
}

// form xobjects can nest images one level down
func hasImages(resources pdf.Value, depth int) bool {
	if resources.IsNull() || depth > 1 {
		return false
	}
	xobjects := resources.Key("XObject")
	if xobjects.IsNull() {
		return false
	}
	for _, name := range xobjects.Keys() {
		obj := xobjects.Key(name)
		switch obj.Key("Subtype").Name() {
		case "Image":
			return true
		case "Form":
			if hasImages(obj.Key("Resources"), depth+1) {
				return true
			}
		}
	}
	return false
}

func protectExtract(page pdf.Page) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				resChan <- result{"", fmt.Errorf("page text extraction panicked: %v", rec)}
			}
		}()
		content, err := page.GetPlainText(nil)
		resChan <- result{content, err}
	}()

	select {
	case r := <-resChan:
		return r.content, r.err
	case <-time.After(pageTimeout):
		return "", ErrPageTimeout
	}
}
