// Package summary turns drive documents into short natural-language summaries:
// content is normalized to markdown, then sent to a chat completion model.
package summary

import (
	"context"
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/LeonardHd/maf-onedrive-integration/internal/convert"
	"github.com/LeonardHd/maf-onedrive-integration/internal/logging"
	"github.com/LeonardHd/maf-onedrive-integration/internal/metrics"
)

// Outcome classifies a pipeline run.
type Outcome string

const (
	OutcomeSuccess           Outcome = "success"
	OutcomeUnsupportedFormat Outcome = "unsupported_format"
	OutcomeModelUnavailable  Outcome = "model_unavailable"
)

// Result is either a summary or an error text, never both.
type Result struct {
	Success bool
	Summary string
	Error   string
	Outcome Outcome
}

// Succeeded returns a successful result.
func Succeeded(summary string) Result {
	return Result{Success: true, Summary: summary, Outcome: OutcomeSuccess}
}

// Failed returns a failed result with the given reason.
func Failed(outcome Outcome, reason string) Result {
	return Result{Error: reason, Outcome: outcome}
}

// Request is the normalized input handed to a Summarizer.
type Request struct {
	Filename  string
	Text      string // markdown
	Language  string // "" when unknown
	Truncated bool
}

// Summarizer produces a summary for normalized text.
type Summarizer interface {
	Summarize(ctx context.Context, req Request) (string, error)
}

// DefaultMaxInputChars bounds the text sent to the model.
const DefaultMaxInputChars = 100_000

// Pipeline runs conversion and summarization for one document at a time.
// It holds no per-request state.
type Pipeline struct {
	summarizer    Summarizer
	maxInputChars int
}

// NewPipeline creates a pipeline. maxInputChars <= 0 selects the default.
func NewPipeline(s Summarizer, maxInputChars int) *Pipeline {
	if maxInputChars <= 0 {
		maxInputChars = DefaultMaxInputChars
	}
	return &Pipeline{summarizer: s, maxInputChars: maxInputChars}
}

// Summarize converts data to markdown and asks the model for a summary.
// Conversion failure skips the model call.
func (p *Pipeline) Summarize(ctx context.Context, data []byte, filename string) Result {
	doc, err := convert.Convert(data, filename)
	if err != nil {
		logging.WithContext(ctx).Warn("document conversion failed",
			zap.String("filename", filename),
			zap.Error(err))
		metrics.RecordSummary(string(OutcomeUnsupportedFormat))
		return Failed(OutcomeUnsupportedFormat, fmt.Sprintf(
			"Could not convert '%s' to Markdown. The file format may not be supported.", filename))
	}

	req := Request{Filename: filename, Text: doc.Text, Language: doc.Language}
	if utf8.RuneCountInString(req.Text) > p.maxInputChars {
		req.Text = truncateRunes(req.Text, p.maxInputChars)
		req.Truncated = true
	}

	summary, err := p.summarizer.Summarize(ctx, req)
	if err != nil {
		logging.WithContext(ctx).Warn("model summarization failed",
			zap.String("filename", filename),
			zap.String("format", doc.Format),
			zap.Error(err))
		metrics.RecordSummary(string(OutcomeModelUnavailable))
		return Failed(OutcomeModelUnavailable,
			"The model could not generate a summary. Please check that the model token is set and valid.")
	}

	logging.WithContext(ctx).Info("document summarized",
		zap.String("filename", filename),
		zap.String("format", doc.Format),
		zap.String("language", doc.Language),
		zap.Bool("truncated", req.Truncated))
	metrics.RecordSummary(string(OutcomeSuccess))
	return Succeeded(summary)
}

func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
