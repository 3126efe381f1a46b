package hostctx

import (
	"context"
	"errors"
	"fmt"

	"dccpub/internal/instance"
	"dccpub/internal/services"
)

// ErrSubsetExists rejects a second instance with the same subset name for
// the same asset and task.
var ErrSubsetExists = errors.New("subset already registered")

// ErrInstanceExists rejects adding an instance id that is already registered.
var ErrInstanceExists = errors.New("instance already registered")

// Store is the host context contract.
type Store interface {
	Add(ctx context.Context, inst *instance.Instance) error
	Update(ctx context.Context, id string, inst *instance.Instance) error
	Remove(ctx context.Context, id string) error
	List(ctx context.Context) ([]*instance.Instance, error)
	Get(ctx context.Context, id string) (*instance.Instance, error)
	// Clear removes every instance and reports how many were removed.
	Clear(ctx context.Context) (int64, error)
}

func subsetConflict(inst *instance.Instance) error {
	return services.Wrap(services.ErrValidation, "hostctx", "add",
		fmt.Sprintf("subset %q already exists for %s/%s", inst.SubsetName, inst.Asset, inst.TaskName), ErrSubsetExists)
}

func instanceConflict(inst *instance.Instance) error {
	return services.Wrap(services.ErrValidation, "hostctx", "add",
		fmt.Sprintf("instance %s is already registered", inst.ID), ErrInstanceExists)
}

func notFound(op, id string) error {
	return services.Wrap(services.ErrNotFound, "hostctx", op, fmt.Sprintf("instance %s", id), nil)
}

func checkUpdate(id string, inst *instance.Instance) error {
	if inst == nil {
		return errors.New("instance is nil")
	}
	if inst.ID != id {
		return services.Wrap(services.ErrValidation, "hostctx", "update",
			fmt.Sprintf("instance id %s does not match %s", inst.ID, id), nil)
	}
	return nil
}

func familyChanged(storedFamily string, next *instance.Instance) error {
	if storedFamily == next.Family() {
		return nil
	}
	return services.Wrap(services.ErrValidation, "hostctx", "update",
		fmt.Sprintf("family of %s cannot change from %s to %s", next.ID, storedFamily, next.Family()), nil)
}

type scope struct {
	asset  string
	task   string
	subset string
}

func scopeOf(inst *instance.Instance) scope {
	return scope{asset: inst.Asset, task: inst.TaskName, subset: inst.SubsetName}
}
