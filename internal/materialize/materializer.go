package materialize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"genie-copilot/internal/domain"
)

// Toggles gates the three sub-operations independently.
type Toggles struct {
	SQLInstructions   bool
	UCFunctions       bool
	RegisterFunctions bool
}

// Materializer applies plan items one at a time, in plan order. Items
// target disjoint identities, so one item's failure never blocks the next;
// only authorization failures abort the remaining plan.
type Materializer struct {
	instructions domain.InstructionStore
	registry     domain.FunctionRegistry
	warehouseID  string
	toggles      Toggles
	logger       *slog.Logger
}

// Deps holds dependencies for the Materializer.
type Deps struct {
	Instructions domain.InstructionStore
	Registry     domain.FunctionRegistry
	WarehouseID  string // empty means function creation/registration is not attempted
	Toggles      Toggles
	Logger       *slog.Logger
}

// New creates a Materializer.
func New(deps Deps) *Materializer {
	return &Materializer{
		instructions: deps.Instructions,
		registry:     deps.Registry,
		warehouseID:  deps.WarehouseID,
		toggles:      deps.Toggles,
		logger:       deps.Logger,
	}
}

// Apply executes the plan. It returns the outcome of every item that was
// started; on a fatal error (authorization) the partial results are still
// returned so the caller can fold them into the summary before exiting.
// Cancellation is honored at item boundaries only, keeping each item's
// recorded outcome whole.
func (m *Materializer) Apply(ctx context.Context, spaceID string, items []domain.AssetPlanItem) ([]domain.MaterializationResult, error) {
	results := make([]domain.MaterializationResult, 0, len(items))

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		res, fatal := m.applyItem(ctx, spaceID, item)
		results = append(results, res)
		if fatal != nil {
			return results, fatal
		}
	}

	return results, nil
}

// applyItem runs the three sub-operations for one item. A non-nil fatal
// error means the remaining plan must be abandoned; the item's partial
// outcomes are still recorded.
func (m *Materializer) applyItem(ctx context.Context, spaceID string, item domain.AssetPlanItem) (domain.MaterializationResult, error) {
	logger := m.logger.With("identity", item.Identity.FullName(), "action", string(item.Action))
	res := domain.MaterializationResult{Identity: item.Identity, Action: item.Action}

	var fatal error
	res.Instruction, fatal = m.upsertInstruction(ctx, spaceID, item, logger)
	if fatal != nil {
		res.Function = domain.Outcome{Kind: domain.OutcomeNotAttempted, Reason: "run aborted"}
		res.Registration = domain.Outcome{Kind: domain.OutcomeNotAttempted, Reason: "run aborted"}
		return res, fatal
	}
	res.Function, fatal = m.createFunction(ctx, item, logger)
	if fatal != nil {
		res.Registration = domain.Outcome{Kind: domain.OutcomeNotAttempted, Reason: "run aborted"}
		return res, fatal
	}
	res.Registration, fatal = m.registerFunction(ctx, spaceID, item, res.Function, logger)
	return res, fatal
}

func (m *Materializer) upsertInstruction(ctx context.Context, spaceID string, item domain.AssetPlanItem, logger *slog.Logger) (domain.Outcome, error) {
	if !m.toggles.SQLInstructions {
		return domain.Outcome{Kind: domain.OutcomeNotAttempted, Reason: "sql instructions disabled"}, nil
	}
	if item.Action == domain.ActionSkipExists {
		return domain.Outcome{Kind: domain.OutcomeSkipped}, nil
	}

	entry := domain.InstructionEntry{
		Key:         item.Identity.Name,
		Question:    item.Query.Question,
		SQL:         item.Query.SQL,
		Description: instructionDescription(item.Query),
	}
	if err := m.instructions.UpsertInstruction(ctx, spaceID, entry); err != nil {
		logger.Warn("instruction upsert failed", "error", err)
		return failedOutcome(fmt.Errorf("upsert instruction: %w", err))
	}

	logger.Info("instruction upserted", "key", entry.Key)
	return appliedOutcome(item.Action), nil
}

func (m *Materializer) createFunction(ctx context.Context, item domain.AssetPlanItem, logger *slog.Logger) (domain.Outcome, error) {
	if !m.toggles.UCFunctions {
		return domain.Outcome{Kind: domain.OutcomeNotAttempted, Reason: "uc functions disabled"}, nil
	}
	if m.warehouseID == "" {
		return domain.Outcome{Kind: domain.OutcomeNotAttempted, Reason: "no warehouse configured"}, nil
	}
	if item.Action == domain.ActionSkipExists {
		return domain.Outcome{Kind: domain.OutcomeSkipped}, nil
	}

	req := domain.CreateFunctionRequest{
		Identity:    item.Identity,
		Statement:   BuildFunctionStatement(item.Identity, item.Query),
		WarehouseID: m.warehouseID,
	}
	if err := m.registry.CreateOrReplaceFunction(ctx, req); err != nil {
		logger.Warn("function creation failed", "error", err)
		return failedOutcome(fmt.Errorf("create function: %w", err))
	}
	logger.Info("function created")

	// Tagging and the smoke test are informational: the function exists
	// either way, so failures only warn.
	if err := m.registry.ExecuteStatement(ctx, m.warehouseID, BuildTagStatement(item.Identity)); err != nil {
		logger.Warn("function tagging failed", "error", err)
	}
	if err := m.registry.ExecuteStatement(ctx, m.warehouseID, BuildSmokeTestStatement(item.Identity)); err != nil {
		logger.Warn("smoke test failed", "error", err)
	} else {
		logger.Debug("smoke test passed")
	}

	return appliedOutcome(item.Action), nil
}

func (m *Materializer) registerFunction(ctx context.Context, spaceID string, item domain.AssetPlanItem, function domain.Outcome, logger *slog.Logger) (domain.Outcome, error) {
	if !m.toggles.RegisterFunctions {
		return domain.Outcome{Kind: domain.OutcomeNotAttempted, Reason: "function registration disabled"}, nil
	}
	if m.warehouseID == "" {
		return domain.Outcome{Kind: domain.OutcomeNotAttempted, Reason: "no warehouse configured"}, nil
	}
	if item.Action == domain.ActionSkipExists {
		return domain.Outcome{Kind: domain.OutcomeSkipped}, nil
	}

	// A function must exist before it can be registered.
	switch function.Kind {
	case domain.OutcomeCreated, domain.OutcomeReplaced:
	case domain.OutcomeNotAttempted:
		return domain.Outcome{Kind: domain.OutcomeNotAttempted, Reason: "function creation not attempted"}, nil
	default:
		err := domain.ErrDependency("function %s was not created in this run", item.Identity.FullName())
		return domain.Outcome{Kind: domain.OutcomeFailed, Reason: err.Error()}, nil
	}

	if err := m.registry.RegisterFunctionWithSpace(ctx, spaceID, item.Identity.FullName()); err != nil {
		logger.Warn("function registration failed", "error", err)
		return failedOutcome(fmt.Errorf("register function: %w", err))
	}

	logger.Info("function registered")
	return appliedOutcome(item.Action), nil
}

func appliedOutcome(action domain.PlanAction) domain.Outcome {
	if action == domain.ActionReplace {
		return domain.Outcome{Kind: domain.OutcomeReplaced}
	}
	return domain.Outcome{Kind: domain.OutcomeCreated}
}

// failedOutcome records the failure on the item. Authorization failures
// additionally surface as a fatal error since they will repeat for every
// remaining item.
func failedOutcome(err error) (domain.Outcome, error) {
	outcome := domain.Outcome{Kind: domain.OutcomeFailed, Reason: err.Error()}
	var authErr *domain.AuthorizationError
	if errors.As(err, &authErr) {
		return outcome, domain.ErrAuthorization("aborting remaining plan: %s", authErr.Message)
	}
	return outcome, nil
}
