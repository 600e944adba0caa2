// Package chunker splits cleaned document text into ordered, overlapping chunks.
package chunker

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/akolanti/DocMind/internal/config"
	"github.com/akolanti/DocMind/internal/domain/commonModels"
	"github.com/tmc/langchaingo/textsplitter"
)

var separators = []string{"\n\n", "\n", ". ", " ", ""}

var (
	pageMarker   = regexp.MustCompile(`(?m)^--- Page \d+.*$`)
	blankLineRun = regexp.MustCompile(`\n\s*\n`)
)

type Chunker struct {
	size     int
	overlap  int
	strategy commonModels.ChunkStrategy
}

type Option func(*Chunker)

func WithChunkSize(size int) Option {
	return func(c *Chunker) { c.size = size }
}

func WithOverlap(overlap int) Option {
	return func(c *Chunker) { c.overlap = overlap }
}

func WithStrategy(strategy commonModels.ChunkStrategy) Option {
	return func(c *Chunker) { c.strategy = strategy }
}

func New(opts ...Option) (*Chunker, error) {
	c := &Chunker{
		size:     config.StandardChunkSize,
		overlap:  config.StandardChunkOverlap,
		strategy: commonModels.ChunkStandard,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.size <= 0 || c.overlap < 0 || c.overlap >= c.size {
		return nil, fmt.Errorf("invalid chunk size %d / overlap %d", c.size, c.overlap)
	}
	return c, nil
}

func Standard() *Chunker {
	return &Chunker{size: config.StandardChunkSize, overlap: config.StandardChunkOverlap, strategy: commonModels.ChunkStandard}
}

func Research() *Chunker {
	return &Chunker{size: config.ResearchChunkSize, overlap: config.ResearchChunkOverlap, strategy: commonModels.ChunkResearch}
}

func (c *Chunker) Size() int                            { return c.size }
func (c *Chunker) Overlap() int                         { return c.overlap }
func (c *Chunker) Strategy() commonModels.ChunkStrategy { return c.strategy }

// Chunk returns chunks indexed 0..n-1 in reading order. Blank pieces are dropped before numbering.
func (c *Chunker) Chunk(documentId, text string) ([]commonModels.DocChunk, error) {
	text = Clean(text)
	if text == "" {
		return []commonModels.DocChunk{}, nil
	}

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(c.size),
		textsplitter.WithChunkOverlap(c.overlap),
		textsplitter.WithSeparators(separators),
		// a split sentence keeps its ". " at the head of the next piece
		textsplitter.WithKeepSeparator(true),
	)
	pieces, err := splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", commonModels.ErrChunking, err)
	}

	chunks := make([]commonModels.DocChunk, 0, len(pieces))
	for _, piece := range pieces {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}
		chunks = append(chunks, commonModels.DocChunk{
			DocumentId: documentId,
			Index:      len(chunks),
			Content:    piece,
			Length:     utf8.RuneCountInString(piece),
			Strategy:   c.strategy,
			Source:     commonModels.ChunkSourcePDF,
		})
	}
	return chunks, nil
}

// Clean drops page marker lines and collapses blank-line runs.
func Clean(text string) string {
	text = pageMarker.ReplaceAllString(text, "")
	text = blankLineRun.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// Settings-driven presets, used by the pipeline.
type Presets struct {
	standard *Chunker
	research *Chunker
}

func NewPresets(s config.ChunkingSettings) (*Presets, error) {
	standard, err := New(WithChunkSize(s.StandardSize), WithOverlap(s.StandardOverlap), WithStrategy(commonModels.ChunkStandard))
	if err != nil {
		return nil, fmt.Errorf("standard preset: %w", err)
	}
	research, err := New(WithChunkSize(s.ResearchSize), WithOverlap(s.ResearchOverlap), WithStrategy(commonModels.ChunkResearch))
	if err != nil {
		return nil, fmt.Errorf("research preset: %w", err)
	}
	return &Presets{standard: standard, research: research}, nil
}

func (p *Presets) For(academic bool) *Chunker {
	if academic {
		return p.research
	}
	return p.standard
}
