package host

import (
	"errors"
	"fmt"
	"slices"
)

// Restore puts back state captured by a scoped acquisition.
type Restore func() error

// MaintainedSelection captures the current selection. The returned Restore
// reselects it.
func MaintainedSelection(a Adapter) Restore {
	previous := slices.Clone(a.Selection())
	return func() error {
		if err := a.Select(previous...); err != nil {
			return fmt.Errorf("restore selection: %w", err)
		}
		return nil
	}
}

// SuspendedRefresh suspends viewport refresh. The returned Restore sets the
// flag back to what it was, so nested suspensions leave an outer one intact.
func SuspendedRefresh(a Adapter) Restore {
	previous := a.RefreshSuspended()
	a.SetRefreshSuspended(true)
	return func() error {
		a.SetRefreshSuspended(previous)
		return nil
	}
}

// WithMaintainedSelection runs fn and restores the selection afterwards.
func WithMaintainedSelection(a Adapter, fn func() error) error {
	return within(MaintainedSelection(a), fn)
}

// WithSuspendedRefresh runs fn with refresh suspended.
func WithSuspendedRefresh(a Adapter, fn func() error) error {
	return within(SuspendedRefresh(a), fn)
}

func within(restore Restore, fn func() error) (err error) {
	defer func() {
		if restoreErr := restore(); restoreErr != nil {
			err = errors.Join(err, restoreErr)
		}
	}()
	return fn()
}

// State is a comparable snapshot of the global host state.
type State struct {
	Selection        []Node
	RefreshSuspended bool
}

// Snapshot records the current global state.
func Snapshot(a Adapter) State {
	return State{Selection: slices.Clone(a.Selection()), RefreshSuspended: a.RefreshSuspended()}
}

// Equal reports whether two snapshots match. Selection order is significant.
func (s State) Equal(other State) bool {
	return s.RefreshSuspended == other.RefreshSuspended && slices.Equal(s.Selection, other.Selection)
}

// Apply forces the host back to s.
func (s State) Apply(a Adapter) error {
	a.SetRefreshSuspended(s.RefreshSuspended)
	return a.Select(s.Selection...)
}
