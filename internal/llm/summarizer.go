// Package llm defines the language-model provider contract and a
// summarizer that narrates backtest results.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/northquay/pharos/internal/core"
	"github.com/northquay/pharos/internal/perf"
)

const summarySystemPrompt = `You are a quantitative analyst. Summarize backtest results
for a portfolio manager in 3-5 sentences. Be factual and concise: state the strategy,
the period, the headline return and risk numbers, and one caveat worth knowing.
Do not invent numbers that are not in the input.`

// RunSummary describes a completed backtest for the summarizer.
type RunSummary struct {
	Strategy    string
	Start, End  string
	InitialCash float64
	FinalValue  float64
	Orders      int
	Rejected    int
	Report      *perf.Report
}

// Summarizer turns backtest reports into short narratives.
type Summarizer struct {
	provider Provider
}

// NewSummarizer wraps a provider.
func NewSummarizer(provider Provider) *Summarizer {
	return &Summarizer{provider: provider}
}

// Summarize asks the provider for a narrative of the run.
func (s *Summarizer) Summarize(ctx context.Context, run RunSummary) (string, error) {
	resp, err := s.provider.Chat(ctx, ChatRequest{
		SystemPrompt: summarySystemPrompt,
		Messages: []Message{
			{Role: "user", Content: buildPrompt(run)},
		},
		MaxTokens:   512,
		Temperature: 0.2,
	})
	if err != nil {
		return "", core.WrapError(core.ErrLLMFailed, err)
	}
	return strings.TrimSpace(resp.Content), nil
}

func buildPrompt(run RunSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Strategy: %s\n", run.Strategy)
	fmt.Fprintf(&b, "Period: %s to %s\n", run.Start, run.End)
	fmt.Fprintf(&b, "Initial capital: %.2f\n", run.InitialCash)
	fmt.Fprintf(&b, "Final value: %.2f\n", run.FinalValue)
	fmt.Fprintf(&b, "Orders executed: %d, rejected: %d\n", run.Orders, run.Rejected)

	if run.Report != nil {
		b.WriteString("Metrics:\n")
		for name, value := range run.Report.Map() {
			if value == nil {
				continue
			}
			fmt.Fprintf(&b, "  %s: %.6f\n", name, *value)
		}
	}
	return b.String()
}
