package reconciler

import (
	"fmt"
	"time"

	"github.com/agentstation/legisync/pkg/catalogs"
	"github.com/agentstation/legisync/pkg/differ"
	"github.com/agentstation/legisync/pkg/errors"
)

// Outcome classifies what reconciling one record did to the catalog.
type Outcome string

const (
	// OutcomeCreated means a new Bill row was created.
	OutcomeCreated Outcome = "created"
	// OutcomeMerged means the record was attached to a bill from the
	// previous session.
	OutcomeMerged Outcome = "merged"
	// OutcomeUpdated means an existing bill or its session link changed.
	OutcomeUpdated Outcome = "updated"
	// OutcomeUnchanged means nothing was written.
	OutcomeUnchanged Outcome = "unchanged"
	// OutcomeNeedsManualMerge means a duplicate was detected that is not
	// safe to merge automatically. The record was still imported.
	OutcomeNeedsManualMerge Outcome = "needs-manual-merge"
)

// Outcomes lists every outcome in reporting order.
var Outcomes = []Outcome{
	OutcomeCreated,
	OutcomeMerged,
	OutcomeUpdated,
	OutcomeUnchanged,
	OutcomeNeedsManualMerge,
}

// Result is the outcome of reconciling one feed record.
type Result struct {
	Bill    *catalogs.Bill
	Link    *catalogs.BillInSession
	Outcome Outcome

	// Field-level changes written for each entity
	BillChanges *differ.Changeset
	LinkChanges *differ.Changeset

	// NewBill is set when the record had no status and matched nothing in
	// the previous session, i.e. this is the bill's first import.
	NewBill bool

	// Merged is set when the record was attached to the bill it
	// re-introduces from the previous session.
	Merged bool

	// Activity is the sponsor activity recorded for a new bill, if any.
	Activity *catalogs.Activity

	// MergeIssue describes the duplicate when Outcome is OutcomeNeedsManualMerge.
	MergeIssue *errors.MergeError
}

// Wrote reports whether reconciling wrote anything.
func (r *Result) Wrote() bool {
	return r.BillChanges.HasChanges() || r.LinkChanges.HasChanges() || r.Activity != nil
}

// Summary aggregates the results of an import.
type Summary struct {
	Session    string
	RunID      string
	Records    int
	Counts     map[Outcome]int
	Activities []*catalogs.Activity
	Issues     []*errors.MergeError
	StartTime  time.Time
	Duration   time.Duration
}

// NewSummary creates an empty summary for a session import.
func NewSummary(session string) *Summary {
	return &Summary{
		Session:   session,
		Counts:    make(map[Outcome]int, len(Outcomes)),
		StartTime: time.Now(),
	}
}

// Add folds one result into the summary.
func (s *Summary) Add(r *Result) {
	s.Records++
	s.Counts[r.Outcome]++
	if r.Activity != nil {
		s.Activities = append(s.Activities, r.Activity)
	}
	if r.MergeIssue != nil {
		s.Issues = append(s.Issues, r.MergeIssue)
	}
}

// Finish stamps the summary's duration.
func (s *Summary) Finish() {
	s.Duration = time.Since(s.StartTime)
}

// Written returns the number of records that changed the catalog.
func (s *Summary) Written() int {
	return s.Records - s.Counts[OutcomeUnchanged]
}

// String returns a one-line description of the import.
func (s *Summary) String() string {
	return fmt.Sprintf("session %s: %d records, %d created, %d merged, %d updated, %d unchanged, %d need manual merge",
		s.Session, s.Records,
		s.Counts[OutcomeCreated], s.Counts[OutcomeMerged], s.Counts[OutcomeUpdated],
		s.Counts[OutcomeUnchanged], s.Counts[OutcomeNeedsManualMerge])
}
