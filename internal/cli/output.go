package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/akolanti/DocMind/internal/domain/commonModels"
	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
)

var (
	success = color.New(color.FgGreen)
	warning = color.New(color.FgYellow)
	failure = color.New(color.FgRed)
	heading = color.New(color.FgCyan, color.Bold)
)

func newProgressBar(w io.Writer, total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("files"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func statusColor(s commonModels.ProcessingStatus) *color.Color {
	switch s {
	case commonModels.StatusCompleted:
		return success
	case commonModels.StatusFailed:
		return failure
	default:
		return warning
	}
}

func printOutcome(w io.Writer, out commonModels.IngestOutcome) {
	statusColor(out.Status).Fprintf(w, "%-10s", out.Status)
	fmt.Fprintf(w, " %s  id=%s chunks=%d type=%s", out.FileName, out.DocumentId, out.ChunkCount, out.Classification.Type)
	if out.Existed {
		fmt.Fprint(w, " (replaced)")
	}
	fmt.Fprintln(w)
	if out.Metadata.Title != "" {
		fmt.Fprintf(w, "           title: %s\n", out.Metadata.Title)
	}
	if out.Error != "" {
		failure.Fprintf(w, "           error: %s\n", out.Error)
	}
}

func printDocument(w io.Writer, d commonModels.Document) {
	heading.Fprintf(w, "Document %s\n\n", d.Id)
	fmt.Fprintf(w, "  File:      %s\n", d.FileName)
	fmt.Fprintf(w, "  Title:     %s\n", d.DisplayTitle())
	if d.Authors != "" {
		fmt.Fprintf(w, "  Authors:   %s\n", d.Authors)
	}
	fmt.Fprintf(w, "  Pages:     %d (%s)\n", d.PageCount, d.PDFType)
	fmt.Fprint(w, "  Status:    ")
	statusColor(d.Status).Fprintln(w, d.Status)
	fmt.Fprintf(w, "  Chunks:    %d\n", d.ChunkCount)
	fmt.Fprintf(w, "  Uploaded:  %s\n", d.UploadedAt.Format("2006-01-02 15:04:05"))
	if !d.LastProcessed.IsZero() {
		fmt.Fprintf(w, "  Processed: %s\n", d.LastProcessed.Format("2006-01-02 15:04:05"))
	}
}

func printAnswer(w io.Writer, a commonModels.Answer) {
	fmt.Fprintln(w, a.Answer)
	if a.Metadata.LowConfidence {
		warning.Fprintln(w, "\nLow confidence: no chunk was close enough, the answer uses the nearest matches.")
	}
	if len(a.Sources) == 0 {
		return
	}
	heading.Fprintln(w, "\nSources:")
	for i, s := range a.Sources {
		fmt.Fprintf(w, "  [%d] %s chunk %d (similarity %.2f)\n", i+1, s.DocumentId, s.ChunkIndex, s.Score)
		if preview := strings.TrimSpace(s.ContentPreview); preview != "" {
			fmt.Fprintf(w, "      %s\n", preview)
		}
	}
}
