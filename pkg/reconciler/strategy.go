package reconciler

import (
	"context"

	"golang.org/x/text/cases"

	"github.com/agentstation/legisync/pkg/catalogs"
	"github.com/agentstation/legisync/pkg/errors"
)

// StrategyType names a deduplication strategy.
type StrategyType string

// String returns the string representation of a strategy type.
func (s StrategyType) String() string {
	return string(s)
}

const (
	// StrategyTypeTitleMatch matches bills with the same number and the
	// same English title, ignoring case.
	StrategyTypeTitleMatch StrategyType = "title-match"
	// StrategyTypeNever disables re-introduction merging.
	StrategyTypeNever StrategyType = "never"
)

// DedupStrategy decides whether a bill seen for the first time in a session
// is a re-introduction of a bill from the previous session.
type DedupStrategy interface {
	// Type returns the strategy type
	Type() StrategyType

	// Match returns the bill in previous that bill re-introduces, or nil
	// when there is none. When more than one candidate qualifies the
	// result is a *errors.MergeError and no bill is returned.
	Match(ctx context.Context, tx catalogs.BillReader, bill *catalogs.Bill, previous *catalogs.Session) (*catalogs.Bill, error)
}

// Predicate compares a bill with a candidate sharing its key.
type Predicate func(bill, candidate *catalogs.Bill) bool

// SameTitle reports whether both bills carry the same English title,
// compared with full Unicode case folding.
func SameTitle(bill, candidate *catalogs.Bill) bool {
	fold := cases.Fold()
	return fold.String(bill.NameEN) == fold.String(candidate.NameEN)
}

// keyedStrategy looks up candidates by (number, previous session) and keeps
// those that satisfy its predicate.
type keyedStrategy struct {
	typ       StrategyType
	predicate Predicate
}

// NewTitleMatchStrategy returns the default strategy: same number in the
// previous session and same English title.
func NewTitleMatchStrategy() DedupStrategy {
	return NewPredicateStrategy(StrategyTypeTitleMatch, SameTitle)
}

// NewPredicateStrategy builds a strategy from a custom comparison.
func NewPredicateStrategy(typ StrategyType, predicate Predicate) DedupStrategy {
	return &keyedStrategy{typ: typ, predicate: predicate}
}

// Type returns the strategy type.
func (s *keyedStrategy) Type() StrategyType {
	return s.typ
}

// Match implements DedupStrategy.
func (s *keyedStrategy) Match(ctx context.Context, tx catalogs.BillReader, bill *catalogs.Bill, previous *catalogs.Session) (*catalogs.Bill, error) {
	if previous == nil {
		return nil, nil
	}
	candidates, err := tx.BillsInSession(ctx, bill.Number, previous.ID)
	if err != nil {
		return nil, err
	}

	var match *catalogs.Bill
	for _, candidate := range candidates {
		if candidate.ID == bill.ID || !s.predicate(bill, candidate) {
			continue
		}
		if match != nil {
			return nil, errors.NewMergeError(bill.Number, previous.ID, match.ID, candidate.ID)
		}
		match = candidate
	}
	return match, nil
}

// neverStrategy never merges.
type neverStrategy struct{}

// NewNeverStrategy returns a strategy that treats every bill as new.
func NewNeverStrategy() DedupStrategy {
	return neverStrategy{}
}

// Type returns the strategy type.
func (neverStrategy) Type() StrategyType {
	return StrategyTypeNever
}

// Match implements DedupStrategy.
func (neverStrategy) Match(context.Context, catalogs.BillReader, *catalogs.Bill, *catalogs.Session) (*catalogs.Bill, error) {
	return nil, nil
}
