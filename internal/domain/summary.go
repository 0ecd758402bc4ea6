package domain

// OutcomeCounts tallies one sub-operation kind across all plan items.
type OutcomeCounts struct {
	Created      int `json:"created"`
	Replaced     int `json:"replaced"`
	Skipped      int `json:"skipped"`
	Failed       int `json:"failed"`
	NotAttempted int `json:"not_attempted"`
}

func (c *OutcomeCounts) add(o Outcome) {
	switch o.Kind {
	case OutcomeCreated:
		c.Created++
	case OutcomeReplaced:
		c.Replaced++
	case OutcomeSkipped:
		c.Skipped++
	case OutcomeFailed:
		c.Failed++
	case OutcomeNotAttempted:
		c.NotAttempted++
	}
}

// RunSummary is the aggregate report of one pipeline run. It is the sole
// externally visible deliverable alongside the mutations themselves.
type RunSummary struct {
	SpaceID                string        `json:"space_id"`
	DryRun                 bool          `json:"dry_run"`
	ConversationsProcessed int           `json:"conversations_processed"`
	ConversationsSkipped   int           `json:"conversations_skipped"`
	MessagesSeen           int           `json:"messages_seen"`
	MessagesSkipped        int           `json:"messages_skipped"`
	QueriesExtracted       int           `json:"queries_extracted"`
	UniqueQueries          int           `json:"unique_queries"`
	Classified             int           `json:"classified"`
	Unclassifiable         int           `json:"unclassifiable"`
	AboveThreshold         int           `json:"above_threshold"`
	Instructions           OutcomeCounts `json:"instructions"`
	Functions              OutcomeCounts `json:"functions"`
	Registrations          OutcomeCounts `json:"registrations"`
	Errors                 []string      `json:"errors,omitempty"`
}

// Record folds one materialization result into the summary.
func (s *RunSummary) Record(res MaterializationResult) {
	s.Instructions.add(res.Instruction)
	s.Functions.add(res.Function)
	s.Registrations.add(res.Registration)
	for _, o := range []Outcome{res.Instruction, res.Function, res.Registration} {
		if o.Kind == OutcomeFailed && o.Reason != "" {
			s.Errors = append(s.Errors, res.Identity.FullName()+": "+o.Reason)
		}
	}
}

// Succeeded reports whether the run completed without failed sub-operations.
func (s *RunSummary) Succeeded() bool {
	return s.Instructions.Failed == 0 &&
		s.Functions.Failed == 0 &&
		s.Registrations.Failed == 0 &&
		len(s.Errors) == 0
}
