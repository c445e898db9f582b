package service

import (
	"reader-sync/internal/domain"
)

// ReconciliationEngine merges the locally cached position with the server-known one.
// It performs no I/O: the caller applies the returned action.
type ReconciliationEngine struct {
	comparators map[domain.DocumentFormat]domain.PositionComparator
}

// ComparatorOverride replaces the ordering used for one document format.
type ComparatorOverride struct {
	Format     domain.DocumentFormat
	Comparator domain.PositionComparator
}

// NewReconciliationEngine installs page ordering for paginated documents and
// percentage ordering for reflowable ones, then applies overrides.
func NewReconciliationEngine(overrides ...ComparatorOverride) *ReconciliationEngine {
	e := &ReconciliationEngine{
		comparators: map[domain.DocumentFormat]domain.PositionComparator{
			domain.FormatPaginated:  domain.PageComparator,
			domain.FormatReflowable: domain.PercentageComparator,
		},
	}
	for _, o := range overrides {
		e.comparators[o.Format] = o.Comparator
	}
	return e
}

// Reconcile picks the authoritative starting position and the store that must be updated.
// The further-advanced position always wins.
func (e *ReconciliationEngine) Reconcile(doc *domain.Document, local, remote *domain.Position) (domain.Position, domain.SyncAction, error) {
	cmp, ok := e.comparators[doc.Format]
	if !ok {
		return domain.StartOf(doc), domain.SyncActionNone, &domain.ValidationError{
			Field:   "format",
			Message: "no position ordering registered for format " + string(doc.Format),
		}
	}

	switch {
	case local == nil && remote == nil:
		return domain.StartOf(doc), domain.SyncActionNone, nil
	case local == nil:
		return *remote, domain.SyncActionPullRemoteToLocal, nil
	case remote == nil:
		return *local, domain.SyncActionPushLocalToRemote, nil
	}

	switch c := cmp.Compare(*local, *remote); {
	case c < 0:
		return *remote, domain.SyncActionPullRemoteToLocal, nil
	case c > 0:
		return *local, domain.SyncActionPushLocalToRemote, nil
	default:
		return *local, domain.SyncActionNone, nil
	}
}
