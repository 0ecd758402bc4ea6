package classify

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"genie-copilot/internal/domain"
)

// Classifier fans classification requests out to the completion service
// with bounded concurrency and assigns a tier to every input query.
type Classifier struct {
	completions domain.CompletionClient
	model       string
	policy      RetryPolicy
	limiter     *rate.Limiter
	concurrency int
	logger      *slog.Logger
}

// Deps holds dependencies for the Classifier.
type Deps struct {
	Completions domain.CompletionClient
	Model       string
	Policy      RetryPolicy
	Concurrency int     // parallel in-flight requests (default 4)
	RPS         float64 // sustained request rate (default 2)
	Logger      *slog.Logger
}

// New creates a Classifier.
func New(deps Deps) *Classifier {
	concurrency := deps.Concurrency
	if concurrency < 1 {
		concurrency = 4
	}
	rps := deps.RPS
	if rps <= 0 {
		rps = 2
	}
	policy := deps.Policy
	if policy.MaxAttempts == 0 {
		policy = DefaultRetryPolicy
	}
	return &Classifier{
		completions: deps.Completions,
		model:       deps.Model,
		policy:      policy,
		limiter:     rate.NewLimiter(rate.Limit(rps), concurrency),
		concurrency: concurrency,
		logger:      deps.Logger,
	}
}

// Classify returns exactly one ClassifiedQuery per input query, in input
// order. Queries whose classification fails or cannot be parsed come back
// with TierUnclassifiable; only context cancellation aborts the batch.
func (c *Classifier) Classify(ctx context.Context, queries []domain.ExtractedQuery) ([]domain.ClassifiedQuery, error) {
	results := make([]domain.ClassifiedQuery, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for i, q := range queries {
		g.Go(func() error {
			if err := c.limiter.Wait(gctx); err != nil {
				return err
			}
			results[i] = c.classifyOne(gctx, q)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	resolveNameCollisions(results)
	return results, nil
}

// classifyOne issues one retried classification call. Failures degrade
// to TierUnclassifiable with the failure reason as the rationale.
//
// The suggested name is always derived from the question, never from the
// model's response, so the same query resolves to the same target identity
// on every run. The model's NAME line is surfaced in logs only.
func (c *Classifier) classifyOne(ctx context.Context, q domain.ExtractedQuery) domain.ClassifiedQuery {
	out := domain.ClassifiedQuery{
		ExtractedQuery: q,
		SuggestedName:  SuggestName(q.Question),
	}

	prompt := BuildPrompt(q.Question, q.SQL)
	var parsed parsedResponse
	err := c.policy.Do(ctx, func() error {
		raw, err := c.completions.Complete(ctx, c.model, prompt)
		if err != nil {
			return err
		}
		parsed, err = parseResponse(raw)
		return err
	})

	if err != nil {
		var unparseable *domain.UnparseableResponseError
		switch {
		case errors.As(err, &unparseable):
			c.logger.Warn("unparseable classification response", "message_id", q.MessageID, "error", err)
			out.Rationale = "unparseable response: " + unparseable.Message
		default:
			c.logger.Warn("classification failed", "message_id", q.MessageID, "error", err)
			out.Rationale = "classification failed: " + err.Error()
		}
		out.Tier = domain.TierUnclassifiable
		return out
	}

	out.Tier = parsed.Tier
	out.Rationale = parsed.Rationale
	out.Features = parsed.Features
	c.logger.Debug("classified query",
		"message_id", q.MessageID,
		"tier", out.Tier.String(),
		"name", out.SuggestedName,
		"model_name", parsed.Name)
	return out
}

// resolveNameCollisions rewrites suggested names so no two distinct
// queries in the batch map to the same target identity. The first holder
// keeps the plain name; later ones get a content-derived suffix, widened
// until it no longer clashes with any earlier entry. Names that match
// assets already in the catalog are left alone: that match is what lets
// the planner recognize an existing artifact and skip it.
func resolveNameCollisions(results []domain.ClassifiedQuery) {
	taken := make(map[string]bool, len(results))
	for i := range results {
		base := results[i].SuggestedName
		if base == "" {
			continue
		}
		name := base
		for width := minDigestWidth; taken[name] && width <= maxDigestWidth; width++ {
			name = disambiguate(base, results[i].NormalizedSQL, width)
		}
		for n := 2; taken[name]; n++ {
			name = withSuffix(base, "_"+strconv.Itoa(n))
		}
		results[i].SuggestedName = name
		taken[name] = true
	}
}
