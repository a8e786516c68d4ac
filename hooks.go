package legisync

import (
	"sync"

	"github.com/agentstation/legisync/pkg/catalogs"
	"github.com/agentstation/legisync/pkg/errors"
	"github.com/agentstation/legisync/pkg/reconciler"
)

// Hook function types for import events. Hooks run after the import's
// transaction committed, on the importing goroutine.
type (
	// BillHook is called for a record that created, merged or updated a bill.
	BillHook func(res *reconciler.Result)

	// ManualMergeHook is called for a duplicate left for a human to merge.
	ManualMergeHook func(issue *errors.MergeError)

	// ActivityHook is called for each sponsor activity recorded.
	ActivityHook func(activity *catalogs.Activity)

	// ImportHook is called once a session import committed.
	ImportHook func(summary *reconciler.Summary)
)

// Hooks provides event callback registration.
type Hooks interface {
	OnBillCreated(BillHook)
	OnBillMerged(BillHook)
	OnBillUpdated(BillHook)
	OnManualMerge(ManualMergeHook)
	OnSponsorActivity(ActivityHook)
	OnImportComplete(ImportHook)
}

var _ Hooks = (*hooks)(nil)

// hooks manages event callbacks for import results.
type hooks struct {
	mu               sync.RWMutex
	onBillCreated    []BillHook
	onBillMerged     []BillHook
	onBillUpdated    []BillHook
	onManualMerge    []ManualMergeHook
	onActivity       []ActivityHook
	onImportComplete []ImportHook
}

func newHooks() *hooks {
	return &hooks{}
}

// OnBillCreated registers a callback for newly created bills.
func (h *hooks) OnBillCreated(fn BillHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onBillCreated = append(h.onBillCreated, fn)
}

// OnBillMerged registers a callback for re-introduced bills merged into
// their previous-session bill.
func (h *hooks) OnBillMerged(fn BillHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onBillMerged = append(h.onBillMerged, fn)
}

// OnBillUpdated registers a callback for bills whose fields changed.
func (h *hooks) OnBillUpdated(fn BillHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onBillUpdated = append(h.onBillUpdated, fn)
}

// OnManualMerge registers a callback for duplicates needing a manual merge.
func (h *hooks) OnManualMerge(fn ManualMergeHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onManualMerge = append(h.onManualMerge, fn)
}

// OnSponsorActivity registers a callback for recorded sponsor activity.
func (h *hooks) OnSponsorActivity(fn ActivityHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onActivity = append(h.onActivity, fn)
}

// OnImportComplete registers a callback for committed session imports.
func (h *hooks) OnImportComplete(fn ImportHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onImportComplete = append(h.onImportComplete, fn)
}

// triggerResults fans committed results out to the registered hooks.
func (h *hooks) triggerResults(results []*reconciler.Result) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, res := range results {
		var fns []BillHook
		switch res.Outcome {
		case reconciler.OutcomeCreated:
			fns = h.onBillCreated
		case reconciler.OutcomeMerged:
			fns = h.onBillMerged
		case reconciler.OutcomeUpdated:
			fns = h.onBillUpdated
		case reconciler.OutcomeNeedsManualMerge:
			for _, fn := range h.onManualMerge {
				fn(res.MergeIssue)
			}
		}
		for _, fn := range fns {
			fn(res)
		}
		if res.Activity != nil {
			for _, fn := range h.onActivity {
				fn(res.Activity)
			}
		}
	}
}

func (h *hooks) triggerImportComplete(summary *reconciler.Summary) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, fn := range h.onImportComplete {
		fn(summary)
	}
}
