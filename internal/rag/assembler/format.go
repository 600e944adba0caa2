package assembler

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/akolanti/DocMind/internal/domain/commonModels"
)

const (
	maxKeyPoints     = 10
	minKeyPointLen   = 10
	maxQuestions     = 4
	minQuestionLen   = 10
	previewLength    = 150
	bulletMarkers    = "•-*→"
	questionTrimSet  = "0123456789.- "
	keyPointTrimSet  = bulletMarkers + "0123456789. "
	scoreRoundFactor = 1000
)

var numberedLine = regexp.MustCompile(`^(1[0-9]|[1-9])\.`)

var fallbackQuestions = []string{
	"What are the main findings of this document?",
	"What methodology was used in this research?",
	"What are the practical applications mentioned?",
	"What limitations or future work are discussed?",
}

func FallbackQuestions() []string {
	out := make([]string, len(fallbackQuestions))
	copy(out, fallbackQuestions)
	return out
}

// ParseBulletPoints keeps marked or numbered lines of at least ten characters, up to ten of them.
func ParseBulletPoints(text string) []string {
	points := []string{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.ContainsAny(firstRune(line), bulletMarkers) && !numberedLine.MatchString(line) {
			continue
		}
		point := strings.TrimSpace(strings.TrimLeft(line, keyPointTrimSet))
		if utf8.RuneCountInString(point) < minKeyPointLen {
			continue
		}
		points = append(points, point)
		if len(points) == maxKeyPoints {
			break
		}
	}
	return points
}

// ParseQuestions keeps lines that contain a question mark and are longer than ten characters.
func ParseQuestions(text string) []string {
	questions := []string{}
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.Contains(trimmed, "?") || utf8.RuneCountInString(trimmed) <= minQuestionLen {
			continue
		}
		questions = append(questions, strings.TrimSpace(strings.TrimLeft(trimmed, questionTrimSet)))
		if len(questions) == maxQuestions {
			break
		}
	}
	return questions
}

func FormatAnswer(question, text string, chunks []commonModels.RetrievedChunk, model string, tokens int, lowConfidence bool) commonModels.Answer {
	sources := make([]commonModels.Source, len(chunks))
	for i, c := range chunks {
		sources[i] = commonModels.Source{
			DocumentId:     c.Chunk.DocumentId,
			ChunkIndex:     c.Chunk.Index,
			Score:          math.Round(c.Score*scoreRoundFactor) / scoreRoundFactor,
			ContentPreview: Preview(c.Chunk.Content),
		}
	}
	return commonModels.Answer{
		Question: question,
		Answer:   text,
		Sources:  sources,
		Metadata: commonModels.AnswerMetadata{
			Model:         model,
			TokensUsed:    tokens,
			ChunksUsed:    len(chunks),
			LowConfidence: lowConfidence,
		},
	}
}

// NoAnswer is the successful reply to a question nothing in the index matched.
func NoAnswer(question string) commonModels.Answer {
	return commonModels.Answer{
		Question: question,
		Answer:   NoAnswerText,
		Sources:  []commonModels.Source{},
		Metadata: commonModels.AnswerMetadata{Reason: NoAnswerReason},
	}
}

func Preview(content string) string {
	if utf8.RuneCountInString(content) <= previewLength {
		return content
	}
	return string([]rune(content)[:previewLength]) + "..."
}

func firstRune(s string) string {
	r, _ := utf8.DecodeRuneInString(s)
	return string(r)
}
