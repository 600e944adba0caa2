package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/akolanti/DocMind/internal/config"
	"github.com/akolanti/DocMind/internal/domain/commonModels"
	"github.com/akolanti/DocMind/internal/metrics"
	"github.com/akolanti/DocMind/internal/rag/vectorDB"
	"github.com/akolanti/DocMind/pkg/fallback"
	"github.com/akolanti/DocMind/pkg/logger_i"
)

type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
}

type Options struct {
	TopN          int
	MaxDistance   float64
	FallbackCount int
	HistoryTurns  int
	Metric        vectorDB.Metric
}

func OptionsFrom(s config.RetrievalSettings) (Options, error) {
	metric, err := vectorDB.ParseMetric(s.Metric)
	if err != nil {
		return Options{}, err
	}
	return Options{
		TopN:          s.TopN,
		MaxDistance:   s.MaxDistance,
		FallbackCount: s.FallbackCount,
		HistoryTurns:  s.HistoryTurns,
		Metric:        metric,
	}, nil
}

type Result struct {
	Query         string
	Chunks        []commonModels.RetrievedChunk
	LowConfidence bool
	// Vector is the embedded query, kept for the answer cache.
	Vector []float32
}

type Retriever struct {
	embedder QueryEmbedder
	index    vectorDB.Index
	opts     Options
	ranking  *fallback.Chain[[]commonModels.RetrievedChunk, []commonModels.RetrievedChunk]
	logger   *logger_i.Logger
}

// New refuses an index whose distance metric differs from the configured one.
func New(embedder QueryEmbedder, index vectorDB.Index, opts Options) (*Retriever, error) {
	if opts.Metric != index.Metric() {
		return nil, fmt.Errorf("retrieval metric %q does not match index metric %q", opts.Metric, index.Metric())
	}
	if opts.TopN <= 0 {
		opts.TopN = config.RetrievalTopN
	}
	if opts.MaxDistance <= 0 {
		opts.MaxDistance = config.RetrievalMaxDistance
	}
	if opts.FallbackCount < 0 {
		opts.FallbackCount = config.RetrievalFallbackCount
	}

	r := &Retriever{
		embedder: embedder,
		index:    index,
		opts:     opts,
		logger:   logger_i.NewLogger("retrieval"),
	}
	r.ranking = fallback.New(
		fallback.Strategy[[]commonModels.RetrievedChunk, []commonModels.RetrievedChunk]{Name: "threshold", Try: r.withinThreshold},
		fallback.Strategy[[]commonModels.RetrievedChunk, []commonModels.RetrievedChunk]{Name: "top_fallback", Try: r.topFallback},
	)
	return r, nil
}

// BuildQuery prefixes the question with the last few conversation turns.
func BuildQuery(question string, history []commonModels.ConversationTurn, turns int) string {
	if len(history) == 0 || turns <= 0 {
		return question
	}
	if len(history) > turns {
		history = history[len(history)-turns:]
	}

	parts := make([]string, 0, len(history)+1)
	for _, turn := range history {
		switch turn.Role {
		case commonModels.RoleUser:
			parts = append(parts, "Previous question: "+turn.Content)
		case commonModels.RoleAssistant:
			parts = append(parts, "Previous answer: "+truncate(turn.Content, 100)+"...")
		}
	}
	if len(parts) == 0 {
		return question
	}
	return strings.Join(parts, " ") + "\n\nCurrent question: " + question
}

func (r *Retriever) Retrieve(ctx context.Context, question string, history []commonModels.ConversationTurn, documentId string) (Result, error) {
	query := BuildQuery(question, history, r.opts.HistoryTurns)
	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return Result{}, err
	}
	return r.Search(ctx, query, vector, documentId)
}

// Search runs an already embedded query. Nothing found is a normal, empty result.
func (r *Retriever) Search(ctx context.Context, query string, vector []float32, documentId string) (Result, error) {
	log := r.logger.WithTrace(ctx)
	hits, err := r.index.Query(ctx, vector, r.opts.TopN, documentId)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", commonModels.ErrStorage, err)
	}

	result := Result{Query: query, Vector: vector, Chunks: []commonModels.RetrievedChunk{}}
	if len(hits) == 0 {
		log.Debug("no hits", "document_id", documentId)
		return result, nil
	}

	outcome, err := r.ranking.Run(ctx, r.score(hits))
	if errors.Is(err, fallback.ErrExhausted) {
		log.Debug("all hits rejected", "reasons", outcome.Skipped())
		return result, nil
	} else if err != nil {
		return Result{}, err
	}
	result.Chunks = outcome.Value
	if outcome.Strategy != "threshold" {
		result.LowConfidence = true
		metrics.CaptureRetrievalFallback()
		log.Info("no chunk within distance threshold, using closest chunks", "kept", len(result.Chunks))
	}
	return result, nil
}

func (r *Retriever) score(hits []vectorDB.Hit) []commonModels.RetrievedChunk {
	scored := make([]commonModels.RetrievedChunk, len(hits))
	for i, h := range hits {
		normalized := r.opts.Metric.ToSquaredL2(h.Distance)
		scored[i] = commonModels.RetrievedChunk{
			Chunk:      h.Chunk,
			Distance:   h.Distance,
			Normalized: normalized,
			Score:      vectorDB.Similarity(normalized),
		}
	}
	return scored
}

var errNothingWithinThreshold = errors.New("no chunk within distance threshold")

func (r *Retriever) withinThreshold(_ context.Context, in []commonModels.RetrievedChunk) ([]commonModels.RetrievedChunk, error) {
	kept := make([]commonModels.RetrievedChunk, 0, len(in))
	for _, c := range in {
		if c.Normalized <= r.opts.MaxDistance {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		return nil, errNothingWithinThreshold
	}
	return kept, nil
}

func (r *Retriever) topFallback(_ context.Context, in []commonModels.RetrievedChunk) ([]commonModels.RetrievedChunk, error) {
	n := min(r.opts.FallbackCount, len(in))
	if n == 0 {
		return nil, errors.New("fallback disabled")
	}
	return in[:n], nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
