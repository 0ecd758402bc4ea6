// Package plan diffs classified queries against the current state of the
// external targets and decides create / skip / replace per candidate.
package plan

import (
	"fmt"

	"genie-copilot/internal/domain"
)

// Snapshot is the externally visible state the plan is diffed against.
// It is read once before planning; the planner itself performs no I/O.
type Snapshot struct {
	FunctionNames   map[string]bool // bare function names in the target catalog.schema
	InstructionKeys map[string]bool // instruction identities on the space
}

// Options parameterize one planning pass.
type Options struct {
	Catalog   string
	Schema    string
	Threshold domain.ComplexityTier
	Force     bool
}

// Build is a pure function of its inputs: it returns one AssetPlanItem per
// classified query at or above the threshold, in input order. Unclassifiable
// queries never qualify regardless of threshold.
func Build(queries []domain.ClassifiedQuery, snap Snapshot, opts Options) []domain.AssetPlanItem {
	var items []domain.AssetPlanItem

	for _, q := range queries {
		if q.Tier == domain.TierUnclassifiable || q.Tier < opts.Threshold {
			continue
		}

		identity := domain.TargetIdentity{
			Catalog: opts.Catalog,
			Schema:  opts.Schema,
			Name:    q.SuggestedName,
		}

		item := domain.AssetPlanItem{
			Query:    q,
			Identity: identity,
			Reasons: []string{
				fmt.Sprintf("tier %s >= threshold %s", q.Tier, opts.Threshold),
			},
		}

		exists := snap.FunctionNames[identity.Name] || snap.InstructionKeys[identity.Name]
		switch {
		case !exists:
			item.Action = domain.ActionCreate
			item.Reasons = append(item.Reasons, "no existing artifact under "+identity.FullName())
		case opts.Force:
			item.Action = domain.ActionReplace
			item.Reasons = append(item.Reasons, "exists and force is set")
		default:
			item.Action = domain.ActionSkipExists
			item.Reasons = append(item.Reasons, "exists and force is not set")
		}

		items = append(items, item)
	}

	return items
}
