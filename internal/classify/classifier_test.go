package classify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genie-copilot/internal/domain"
)

type fakeCompletions struct {
	mu       sync.Mutex
	calls    int
	response func(prompt string) (string, error)
}

func (f *fakeCompletions) Complete(_ context.Context, _ string, prompt string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.response(prompt)
}

func newTestClassifier(completions domain.CompletionClient) *Classifier {
	return New(Deps{
		Completions: completions,
		Model:       "test-model",
		Policy:      RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond},
		Concurrency: 4,
		RPS:         1000,
		Logger:      slog.New(slog.DiscardHandler),
	})
}

func extracted(id, question, sql string) domain.ExtractedQuery {
	return domain.ExtractedQuery{
		MessageID:     id,
		Question:      question,
		SQL:           sql,
		NormalizedSQL: strings.ToUpper(sql),
	}
}

func TestClassify_OneResultPerInputInOrder(t *testing.T) {
	completions := &fakeCompletions{response: func(prompt string) (string, error) {
		if strings.Contains(prompt, "JOIN") {
			return "COMPLEXITY: COMPLEX\nNAME: orders_joined", nil
		}
		return "COMPLEXITY: SIMPLE\nNAME: plain_select", nil
	}}

	queries := []domain.ExtractedQuery{
		extracted("m1", "how many orders", "SELECT count(*) FROM orders"),
		extracted("m2", "orders with customers", "SELECT * FROM orders JOIN customers USING (id)"),
	}

	results, err := newTestClassifier(completions).Classify(context.Background(), queries)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "m1", results[0].MessageID)
	assert.Equal(t, domain.TierSimple, results[0].Tier)
	assert.Equal(t, "m2", results[1].MessageID)
	assert.Equal(t, domain.TierComplex, results[1].Tier)
}

func TestClassify_FailureDegradesToUnclassifiable(t *testing.T) {
	completions := &fakeCompletions{response: func(string) (string, error) {
		return "", fmt.Errorf("endpoint exploded")
	}}

	results, err := newTestClassifier(completions).Classify(context.Background(),
		[]domain.ExtractedQuery{extracted("m1", "q", "SELECT 1")})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, domain.TierUnclassifiable, results[0].Tier)
	assert.Contains(t, results[0].Rationale, "classification failed")
}

func TestClassify_UnparseableNotRetried(t *testing.T) {
	completions := &fakeCompletions{response: func(string) (string, error) {
		return "no tier here", nil
	}}

	results, err := newTestClassifier(completions).Classify(context.Background(),
		[]domain.ExtractedQuery{extracted("m1", "q", "SELECT 1")})
	require.NoError(t, err)
	assert.Equal(t, domain.TierUnclassifiable, results[0].Tier)
	assert.Equal(t, 1, completions.calls)
}

func TestClassify_TransientRetriedThenSucceeds(t *testing.T) {
	var calls int
	var mu sync.Mutex
	completions := &fakeCompletions{response: func(string) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 1 {
			return "", domain.ErrTransient("429")
		}
		return "COMPLEXITY: MODERATE", nil
	}}

	results, err := newTestClassifier(completions).Classify(context.Background(),
		[]domain.ExtractedQuery{extracted("m1", "weekly active users", "SELECT 1")})
	require.NoError(t, err)
	assert.Equal(t, domain.TierModerate, results[0].Tier)
}

func TestClassify_NameDerivedFromQuestion(t *testing.T) {
	completions := &fakeCompletions{response: func(string) (string, error) {
		return "COMPLEXITY: COMPLEX", nil
	}}

	results, err := newTestClassifier(completions).Classify(context.Background(),
		[]domain.ExtractedQuery{extracted("m1", "Orders per region", "SELECT 1")})
	require.NoError(t, err)
	assert.Equal(t, "genie_orders_per_region", results[0].SuggestedName)
}

func TestClassify_ModelNameNeverChangesIdentity(t *testing.T) {
	// The same query must resolve to the same target name on every run,
	// even when the model suggests a different NAME between runs.
	query := extracted("m1", "orders per region", "SELECT 1")

	var names []string
	for _, modelName := range []string{"revenue_rollup", "regional_order_totals", ""} {
		completions := &fakeCompletions{response: func(string) (string, error) {
			if modelName == "" {
				return "COMPLEXITY: COMPLEX", nil
			}
			return "COMPLEXITY: COMPLEX\nNAME: " + modelName, nil
		}}
		results, err := newTestClassifier(completions).Classify(context.Background(),
			[]domain.ExtractedQuery{query})
		require.NoError(t, err)
		names = append(names, results[0].SuggestedName)
	}

	assert.Equal(t, "genie_orders_per_region", names[0])
	assert.Equal(t, names[0], names[1])
	assert.Equal(t, names[0], names[2])
}

func TestClassify_NameCollisionsDisambiguated(t *testing.T) {
	completions := &fakeCompletions{response: func(string) (string, error) {
		return "COMPLEXITY: COMPLEX", nil
	}}

	results, err := newTestClassifier(completions).Classify(context.Background(),
		[]domain.ExtractedQuery{
			extracted("m1", "same question", "SELECT 1"),
			extracted("m2", "same question", "SELECT 2"),
			extracted("m3", "same question", "SELECT 3"),
		})
	require.NoError(t, err)

	names := map[string]bool{}
	for _, r := range results {
		assert.False(t, names[r.SuggestedName], "duplicate name %s", r.SuggestedName)
		names[r.SuggestedName] = true
	}
	assert.Equal(t, "genie_same_question", results[0].SuggestedName)
}

func TestResolveNameCollisions_SuffixedNamesStayUnique(t *testing.T) {
	// Identical base name and identical normalized SQL exhausts the digest
	// widths; the resolver must still end with every name unused.
	classified := func(sql string) domain.ClassifiedQuery {
		return domain.ClassifiedQuery{
			ExtractedQuery: domain.ExtractedQuery{NormalizedSQL: sql},
			SuggestedName:  "genie_same",
		}
	}
	results := []domain.ClassifiedQuery{
		classified("SELECT 1"), classified("SELECT 1"), classified("SELECT 1"),
	}

	resolveNameCollisions(results)

	names := map[string]bool{}
	for _, r := range results {
		assert.False(t, names[r.SuggestedName], "duplicate name %s", r.SuggestedName)
		names[r.SuggestedName] = true
	}
	assert.Equal(t, "genie_same", results[0].SuggestedName)
}

func TestClassify_CancelledContextAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	completions := &fakeCompletions{response: func(string) (string, error) {
		return "COMPLEXITY: SIMPLE", nil
	}}

	_, err := newTestClassifier(completions).Classify(ctx,
		[]domain.ExtractedQuery{extracted("m1", "q", "SELECT 1")})
	require.ErrorIs(t, err, context.Canceled)
}

func TestBuildPrompt_IncludesQuestionAndSQL(t *testing.T) {
	prompt := BuildPrompt("top customers", "SELECT * FROM customers")
	assert.Contains(t, prompt, "top customers")
	assert.Contains(t, prompt, "SELECT * FROM customers")
	assert.Contains(t, prompt, "COMPLEXITY:")
}
