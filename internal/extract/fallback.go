package extract

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// attemptFunc performs one backend call for one model variant.
type attemptFunc func(ctx context.Context, model string) (string, error)

// passOutcome is the result of consuming a candidate list.
type passOutcome struct {
	Text     string
	Model    string
	Attempts int
	Decision Decision // how the loop ended when Text is empty
	LastErr  error
}

// runCandidates tries each model in order, strictly sequentially, until one
// succeeds or the policy ends the pass. A non-nil error is returned only for
// AbortFatal or context cancellation.
func runCandidates(ctx context.Context, pass string, models []string, call attemptFunc, classify func(error) ErrorKind, policy Policy, logger *slog.Logger, m *Metrics) (passOutcome, error) {
	out := passOutcome{Decision: Continue}
	for i, model := range models {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		out.Attempts++
		start := time.Now()
		text, err := call(ctx, model)
		if err == nil {
			out.Text = text
			out.Model = model
			m.observeAttempt(pass, "ok", time.Since(start))
			logger.Info("extract."+pass+".ok", "model", model, "attempt", i+1, "elapsed_ms", time.Since(start).Milliseconds())
			return out, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return out, ctxErr
		}

		kind := classify(err)
		last := i == len(models)-1
		decision := policy(kind, last)
		out.Decision = decision
		out.LastErr = err
		m.observeAttempt(pass, kind.String(), time.Since(start))
		logger.Warn("extract."+pass+".fallback",
			"model", model,
			"attempt", i+1,
			"kind", kind.String(),
			"decision", decision.String(),
			"error", err,
		)

		switch decision {
		case AbortFatal:
			return out, fmt.Errorf("%s pass, model %s: %w: %w", pass, model, ErrFatalBackend, err)
		case AbandonPass:
			return out, nil
		}
	}
	return out, nil
}
