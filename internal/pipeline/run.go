package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"genie-copilot/internal/classify"
	"genie-copilot/internal/domain"
	"genie-copilot/internal/extract"
	"genie-copilot/internal/materialize"
	"genie-copilot/internal/plan"
)

// Deps holds the external services the pipeline drives.
type Deps struct {
	Source       domain.ConversationSource
	Completions  domain.CompletionClient
	Instructions domain.InstructionStore
	Registry     domain.FunctionRegistry
	Logger       *slog.Logger
}

// Options parameterize one end-to-end run.
type Options struct {
	SpaceID          string
	Catalog          string
	Schema           string
	WarehouseID      string
	Model            string
	Threshold        domain.ComplexityTier
	MaxConversations int
	IncludeAllUsers  bool
	DryRun           bool
	Force            bool
	Toggles          materialize.Toggles

	ClassifyConcurrency int
	ClassifyRPS         float64
	Retry               classify.RetryPolicy
}

// Result carries the run summary plus the plan that produced it, so the
// caller can render the plan on a dry run.
type Result struct {
	Summary *domain.RunSummary
	Plan    []domain.AssetPlanItem
}

// Runner wires the four stages together. Each stage consumes the complete
// output of the previous one; nothing is materialized until extraction,
// classification and planning have all finished.
type Runner struct {
	deps   Deps
	logger *slog.Logger
}

func New(deps Deps) *Runner {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{deps: deps, logger: logger}
}

// Run executes extract, classify, plan and materialize in order. On a
// fatal mid-run error the partial Result is returned alongside the error
// so the summary can still be reported.
func (r *Runner) Run(ctx context.Context, opts Options) (*Result, error) {
	summary := &domain.RunSummary{SpaceID: opts.SpaceID, DryRun: opts.DryRun}
	res := &Result{Summary: summary}

	queries, stats, err := extract.New(r.deps.Source, r.logger).Extract(ctx, extract.Options{
		SpaceID:          opts.SpaceID,
		IncludeAllUsers:  opts.IncludeAllUsers,
		MaxConversations: opts.MaxConversations,
	})
	summary.ConversationsProcessed = stats.ConversationsProcessed
	summary.ConversationsSkipped = stats.ConversationsSkipped
	summary.MessagesSeen = stats.MessagesSeen
	summary.MessagesSkipped = stats.MessagesSkipped
	summary.QueriesExtracted = stats.QueriesExtracted
	summary.UniqueQueries = len(queries)
	if err != nil {
		return res, fmt.Errorf("extract queries: %w", err)
	}
	if len(queries) == 0 {
		r.logger.Info("no executed queries found in space", "space_id", opts.SpaceID)
		return res, nil
	}

	classified, err := classify.New(classify.Deps{
		Completions: r.deps.Completions,
		Model:       opts.Model,
		Policy:      opts.Retry,
		Concurrency: opts.ClassifyConcurrency,
		RPS:         opts.ClassifyRPS,
		Logger:      r.logger,
	}).Classify(ctx, queries)
	if err != nil {
		return res, fmt.Errorf("classify queries: %w", err)
	}
	for _, q := range classified {
		if q.Tier == domain.TierUnclassifiable {
			summary.Unclassifiable++
		} else {
			summary.Classified++
		}
	}

	snap, err := r.snapshot(ctx, opts)
	if err != nil {
		return res, fmt.Errorf("snapshot existing assets: %w", err)
	}

	items := plan.Build(classified, snap, plan.Options{
		Catalog:   opts.Catalog,
		Schema:    opts.Schema,
		Threshold: opts.Threshold,
		Force:     opts.Force,
	})
	res.Plan = items
	summary.AboveThreshold = len(items)

	if opts.DryRun {
		r.logger.Info("dry run, skipping materialization", "planned_items", len(items))
		project(summary, items, opts)
		return res, nil
	}

	results, err := materialize.New(materialize.Deps{
		Instructions: r.deps.Instructions,
		Registry:     r.deps.Registry,
		WarehouseID:  opts.WarehouseID,
		Toggles:      opts.Toggles,
		Logger:       r.logger,
	}).Apply(ctx, opts.SpaceID, items)
	for _, result := range results {
		summary.Record(result)
	}
	if err != nil {
		return res, fmt.Errorf("materialize plan: %w", err)
	}
	return res, nil
}

// snapshot reads the current space instructions and catalog functions the
// plan is diffed against. On a dry run without a warehouse the function
// listing still runs; it is a read-only call.
func (r *Runner) snapshot(ctx context.Context, opts Options) (plan.Snapshot, error) {
	snap := plan.Snapshot{
		FunctionNames:   map[string]bool{},
		InstructionKeys: map[string]bool{},
	}

	names, err := r.deps.Registry.ListFunctions(ctx, opts.Catalog, opts.Schema)
	if err != nil {
		return snap, fmt.Errorf("list functions: %w", err)
	}
	for _, name := range names {
		snap.FunctionNames[name] = true
	}

	entries, err := r.deps.Instructions.ListInstructions(ctx, opts.SpaceID)
	if err != nil {
		return snap, fmt.Errorf("list instructions: %w", err)
	}
	for _, entry := range entries {
		snap.InstructionKeys[entry.Key] = true
	}

	r.logger.Debug("asset snapshot loaded",
		"functions", len(snap.FunctionNames),
		"instructions", len(snap.InstructionKeys))
	return snap, nil
}

// project fills the summary with the outcomes the plan would produce.
// Each sub-operation applies the same gates in the same order as the
// materializer, so the preview matches what a real run would report.
func project(summary *domain.RunSummary, items []domain.AssetPlanItem, opts Options) {
	for _, item := range items {
		res := domain.MaterializationResult{
			Identity: item.Identity,
			Action:   item.Action,
		}
		res.Instruction = projectOutcome(item, opts.Toggles.SQLInstructions, "sql instructions disabled", false, opts)
		res.Function = projectOutcome(item, opts.Toggles.UCFunctions, "uc functions disabled", true, opts)
		res.Registration = projectRegistration(item, res.Function, opts)
		summary.Record(res)
	}
}

func projectOutcome(item domain.AssetPlanItem, enabled bool, disabledReason string, needsWarehouse bool, opts Options) domain.Outcome {
	if !enabled {
		return domain.Outcome{Kind: domain.OutcomeNotAttempted, Reason: disabledReason}
	}
	if needsWarehouse && opts.WarehouseID == "" {
		return domain.Outcome{Kind: domain.OutcomeNotAttempted, Reason: "no warehouse configured"}
	}
	switch item.Action {
	case domain.ActionSkipExists:
		return domain.Outcome{Kind: domain.OutcomeSkipped}
	case domain.ActionReplace:
		return domain.Outcome{Kind: domain.OutcomeReplaced}
	default:
		return domain.Outcome{Kind: domain.OutcomeCreated}
	}
}

func projectRegistration(item domain.AssetPlanItem, function domain.Outcome, opts Options) domain.Outcome {
	if !opts.Toggles.RegisterFunctions {
		return domain.Outcome{Kind: domain.OutcomeNotAttempted, Reason: "function registration disabled"}
	}
	if opts.WarehouseID == "" {
		return domain.Outcome{Kind: domain.OutcomeNotAttempted, Reason: "no warehouse configured"}
	}
	if item.Action == domain.ActionSkipExists {
		return domain.Outcome{Kind: domain.OutcomeSkipped}
	}
	switch function.Kind {
	case domain.OutcomeCreated, domain.OutcomeReplaced:
		return domain.Outcome{Kind: function.Kind}
	default:
		return domain.Outcome{Kind: domain.OutcomeNotAttempted, Reason: "function creation not attempted"}
	}
}
