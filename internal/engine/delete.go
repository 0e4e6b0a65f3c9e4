package engine

import (
	"context"

	"github.com/sylvanix/converge/internal/audit"
	"github.com/sylvanix/converge/internal/diff"
	"github.com/sylvanix/converge/internal/schema"
	"github.com/sylvanix/converge/internal/store"
)

// deleteEverywhere removes the record from every store. A store that
// never had the row is tolerated and reported apart from real failures;
// the success count reflects only actual deletions.
func (e *Engine) deleteEverywhere(ctx context.Context, tab *schema.Table, report *diff.Report) audit.Result {
	res := audit.Result{Action: audit.ActionDeletedAll, Reason: "delete_all_strategy"}

	for _, s := range e.fleet.All() {
		name := s.Name()
		err := s.Delete(ctx, tab, report.ID)
		switch {
		case err == nil:
			res.DeletedStores = append(res.DeletedStores, name)
		case store.IsNotFound(err):
			res.MissingStores = append(res.MissingStores, name)
		default:
			res.FailedStores = append(res.FailedStores, name)
			res.Err = err.Error()
		}
	}

	res.SuccessCount = len(res.DeletedStores)
	if len(res.FailedStores) > 0 {
		res.Action = audit.ActionFailed
	}
	return res
}
