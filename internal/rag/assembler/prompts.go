package assembler

import (
	"fmt"
	"strings"

	"github.com/akolanti/DocMind/internal/domain/commonModels"
)

const NoContext = "No relevant context found."

const (
	NoAnswerText   = "No relevant information found. Please rephrase or check the document."
	NoAnswerReason = "no_relevant_context"
)

const defaultTemplate = `You are an AI assistant for academic documents.

Guidelines:
- Use only the provided context to answer questions
- For research papers, focus on methodology, findings, and conclusions
- Cite specific parts of the context when possible
- Be precise, factual, and professional
- If context is insufficient, state limitations
- For summaries, provide concise bullet points (background, methods, results, conclusions)
- For question generation, create 4 analytical questions

Context:
%s

Task: %s`

const questionTemplate = `Generate 4 analytical questions based on the document content.

Guidelines:
- Focus on methodology, findings, implications, and applications
- Ensure questions are specific to the content
- Return one question per line, without numbering

Content:
%s`

const summaryTask = "Summarize the document in concise bullet points."

// FormatContext renders retrieved chunks in retrieval order.
func FormatContext(chunks []commonModels.RetrievedChunk) string {
	if len(chunks) == 0 {
		return NoContext
	}
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = fmt.Sprintf("[Document %s, Chunk %d, Relevance: %.2f]\n%s", c.Chunk.DocumentId, c.Chunk.Index, c.Score, c.Chunk.Content)
	}
	return strings.Join(parts, "\n")
}

func AnswerPrompt(question string, chunks []commonModels.RetrievedChunk) string {
	return fmt.Sprintf(defaultTemplate, FormatContext(chunks), "Answer: "+question)
}

func SummaryPrompt(doc commonModels.Document, chunks []commonModels.RetrievedChunk) string {
	context := documentHeader("Document", doc) + "\n\n" + joinContent(chunks)
	return fmt.Sprintf(defaultTemplate, context, summaryTask)
}

func QuestionsPrompt(doc commonModels.Document, chunks []commonModels.RetrievedChunk) string {
	return fmt.Sprintf(questionTemplate, documentHeader("Document Title", doc)+"\n\n"+joinContent(chunks))
}

func documentHeader(label string, doc commonModels.Document) string {
	authors := doc.Authors
	if authors == "" {
		authors = "Unknown"
	}
	return fmt.Sprintf("%s: %s\nAuthors: %s", label, doc.DisplayTitle(), authors)
}

func joinContent(chunks []commonModels.RetrievedChunk) string {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = c.Chunk.Content
	}
	return strings.Join(parts, "\n")
}
