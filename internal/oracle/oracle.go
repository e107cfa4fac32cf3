package oracle

import (
	"context"
	"fmt"
	"log/slog"

	"diffscope/internal/llm"
	"diffscope/internal/types"
)

// Evidence is everything the oracle sees when deciding.
type Evidence struct {
	DiffText          string
	StructuralSummary string
	Collected         types.CollectedContext
	Iteration         int
	MaxIterations     int
}

// Oracle turns evidence into the next action of a review session.
type Oracle interface {
	Decide(ctx context.Context, ev Evidence) (Action, error)
}

// LLMOracle asks a language model to decide, resubmitting a bounded
// number of times when the response does not decode.
type LLMOracle struct {
	provider llm.Provider
	retries  int
	log      *slog.Logger
}

func NewLLMOracle(provider llm.Provider, retries int, log *slog.Logger) *LLMOracle {
	if retries <= 0 {
		retries = 3
	}
	if log == nil {
		log = slog.Default()
	}
	return &LLMOracle{provider: provider, retries: retries, log: log}
}

func (o *LLMOracle) Decide(ctx context.Context, ev Evidence) (Action, error) {
	prompt, err := buildDecisionPrompt(ev)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < o.retries; attempt++ {
		raw, err := o.provider.Generate(ctx, prompt)
		if err != nil {
			return nil, fmt.Errorf("oracle call failed: %w", err)
		}

		action, decodeErr := Decode(raw)
		if decodeErr == nil {
			return action, nil
		}

		lastErr = decodeErr
		o.log.Warn("malformed oracle response, resubmitting",
			"attempt", attempt+1, "error", decodeErr)
		prompt = fmt.Sprintf(resubmitPromptTemplate, decodeErr, raw)
	}

	return nil, fmt.Errorf("oracle response invalid after %d attempts: %w", o.retries, lastErr)
}
