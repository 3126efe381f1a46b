package hostctx

import (
	"context"
	"errors"
	"slices"
	"sync"

	"dccpub/internal/instance"
)

// Memory is an in-process Store. Instances are kept serialized so callers
// never share mutable state with the store.
type Memory struct {
	mu       sync.Mutex
	order    []string
	payloads map[string][]byte
	scopes   map[string]scope
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		payloads: make(map[string][]byte),
		scopes:   make(map[string]scope),
	}
}

func (m *Memory) Add(_ context.Context, inst *instance.Instance) error {
	if inst == nil {
		return errors.New("instance is nil")
	}
	payload, err := inst.ToStore()
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.payloads[inst.ID]; exists {
		return instanceConflict(inst)
	}
	if m.scopeTaken(scopeOf(inst), "") {
		return subsetConflict(inst)
	}
	m.order = append(m.order, inst.ID)
	m.payloads[inst.ID] = payload
	m.scopes[inst.ID] = scopeOf(inst)
	return nil
}

func (m *Memory) Update(_ context.Context, id string, inst *instance.Instance) error {
	if err := checkUpdate(id, inst); err != nil {
		return err
	}
	payload, err := inst.ToStore()
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.payloads[id]
	if !ok {
		return notFound("update", id)
	}
	stored, err := instance.FromStore(existing)
	if err != nil {
		return err
	}
	if err := familyChanged(stored.Family(), inst); err != nil {
		return err
	}
	if m.scopeTaken(scopeOf(inst), id) {
		return subsetConflict(inst)
	}
	m.payloads[id] = payload
	m.scopes[id] = scopeOf(inst)
	return nil
}

func (m *Memory) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.payloads[id]; !ok {
		return notFound("remove", id)
	}
	delete(m.payloads, id)
	delete(m.scopes, id)
	m.order = slices.DeleteFunc(m.order, func(v string) bool { return v == id })
	return nil
}

func (m *Memory) List(_ context.Context) ([]*instance.Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*instance.Instance, 0, len(m.order))
	for _, id := range m.order {
		inst, err := instance.FromStore(m.payloads[id])
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, nil
}

func (m *Memory) Get(_ context.Context, id string) (*instance.Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	payload, ok := m.payloads[id]
	if !ok {
		return nil, notFound("get", id)
	}
	return instance.FromStore(payload)
}

// Clear removes every instance and returns how many were deleted.
func (m *Memory) Clear(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := int64(len(m.order))
	m.order = nil
	m.payloads = make(map[string][]byte)
	m.scopes = make(map[string]scope)
	return removed, nil
}

func (m *Memory) scopeTaken(s scope, except string) bool {
	for id, other := range m.scopes {
		if id != except && other == s {
			return true
		}
	}
	return false
}
