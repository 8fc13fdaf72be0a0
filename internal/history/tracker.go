package history

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/mogura/novelpress/internal/content"
	nperrors "github.com/mogura/novelpress/internal/errors"
)

const (
	// LedgerFileName is the CSV ledger inside the data directory.
	LedgerFileName = "update_history.csv"
	// StateFileName is the fingerprint snapshot database inside the data
	// directory.
	StateFileName = "state.db"
)

// Diff is the outcome of comparing the current manifest against prior state.
type Diff struct {
	// Records to append, ordered by work slug then path, all sharing one run
	// timestamp.
	Records []Record
	// Dates maps every current page to its last-updated time: the run
	// timestamp for changed pages, the prior snapshot time for unchanged
	// ones. The renderer shows these on listing pages.
	Dates map[content.PageRef]time.Time
	// SiteTime is the newest date across all current pages.
	SiteTime time.Time
}

// ComputeDiff classifies every page key present in either state: added (new
// key only), removed (old key only), modified (both, fingerprint differs).
// Unchanged pages emit no record. A nil or empty prior state is the expected
// bootstrap case: every current page classifies as added.
func ComputeDiff(current []content.Page, prior map[content.PageRef]PageState, now time.Time) Diff {
	now = now.UTC().Truncate(time.Second)
	diff := Diff{Dates: make(map[content.PageRef]time.Time, len(current))}

	currentByRef := make(map[content.PageRef]content.Page, len(current))
	for _, p := range current {
		currentByRef[p.Ref] = p
	}

	for _, p := range current {
		old, existed := prior[p.Ref]
		switch {
		case !existed:
			diff.Records = append(diff.Records, Record{Timestamp: now, Work: p.Ref.Work, Path: p.Ref.Path, Kind: KindAdded})
			diff.Dates[p.Ref] = now
		case old.Fingerprint != p.Fingerprint:
			diff.Records = append(diff.Records, Record{Timestamp: now, Work: p.Ref.Work, Path: p.Ref.Path, Kind: KindModified})
			diff.Dates[p.Ref] = now
		default:
			diff.Dates[p.Ref] = old.UpdatedAt
		}
	}

	for ref := range prior {
		if _, exists := currentByRef[ref]; !exists {
			diff.Records = append(diff.Records, Record{Timestamp: now, Work: ref.Work, Path: ref.Path, Kind: KindRemoved})
		}
	}

	sort.Slice(diff.Records, func(i, j int) bool {
		a, b := diff.Records[i], diff.Records[j]
		if a.Work != b.Work {
			return a.Work < b.Work
		}
		return a.Path < b.Path
	})

	for _, t := range diff.Dates {
		if t.After(diff.SiteTime) {
			diff.SiteTime = t
		}
	}
	if diff.SiteTime.IsZero() {
		diff.SiteTime = now
	}

	return diff
}

// Tracker owns the ledger and the prior-state snapshot for one data
// directory.
type Tracker struct {
	state  *StateStore
	ledger *Ledger
}

// NewTracker opens the tracker's backing files under dataDir, creating the
// directory on first run.
func NewTracker(dataDir string) (*Tracker, error) {
	state, err := OpenState(filepath.Join(dataDir, StateFileName))
	if err != nil {
		return nil, nperrors.HistoryError(err, "failed to open prior-state snapshot")
	}
	return &Tracker{
		state:  state,
		ledger: NewLedger(filepath.Join(dataDir, LedgerFileName)),
	}, nil
}

// Ledger exposes the underlying change ledger.
func (t *Tracker) Ledger() *Ledger { return t.ledger }

// Prior loads the previous run's fingerprint snapshot.
func (t *Tracker) Prior(ctx context.Context) (map[content.PageRef]PageState, error) {
	snapshot, err := t.state.Snapshot(ctx)
	if err != nil {
		return nil, nperrors.HistoryError(err, "failed to read prior-state snapshot")
	}
	return snapshot, nil
}

// Commit appends the diff's records to the ledger and replaces the snapshot
// with the current state. Called only after the output tree was assembled, so
// the ledger never records a publish that did not happen.
func (t *Tracker) Commit(ctx context.Context, current []content.Page, diff Diff) error {
	if err := t.ledger.Append(diff.Records); err != nil {
		return nperrors.HistoryError(err, "failed to append to change ledger")
	}
	if err := t.state.Replace(ctx, current, diff.Dates); err != nil {
		return nperrors.HistoryError(err, fmt.Sprintf("failed to replace prior-state snapshot (%d pages)", len(current)))
	}
	return nil
}

// Close releases the snapshot database.
func (t *Tracker) Close() error {
	return t.state.Close()
}
