package instance

import (
	"encoding/json"
	"fmt"
	"maps"
)

// stored is the payload persisted in the host context.
type stored struct {
	ID                string                    `json:"instance_id"`
	Family            string                    `json:"family"`
	Subset            string                    `json:"subset"`
	Asset             string                    `json:"asset"`
	Task              string                    `json:"task"`
	Variant           string                    `json:"variant,omitempty"`
	CreatorIdentifier string                    `json:"creator_identifier"`
	InstanceNode      string                    `json:"instance_node,omitempty"`
	Active            bool                      `json:"active"`
	CreatorAttributes map[string]any            `json:"creator_attributes"`
	PublishAttributes map[string]map[string]any `json:"publish_attributes,omitempty"`
	Data              map[string]any            `json:"data"`
	Representations   []Representation          `json:"representations"`
}

// ToStore serializes the instance for the host context.
func (i *Instance) ToStore() ([]byte, error) {
	payload := stored{
		ID:                i.ID,
		Family:            i.family,
		Subset:            i.SubsetName,
		Asset:             i.Asset,
		Task:              i.TaskName,
		Variant:           i.Variant,
		CreatorIdentifier: i.CreatorIdentifier,
		InstanceNode:      i.InstanceNode,
		Active:            i.Active,
		CreatorAttributes: i.CreatorAttributes,
		PublishAttributes: i.PublishAttributes,
		Data:              i.Data,
		Representations:   i.representations,
	}
	if payload.Representations == nil {
		payload.Representations = []Representation{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode instance %s: %w", i.ID, err)
	}
	return data, nil
}

// FromStore rebuilds an instance persisted with ToStore. Representations are
// restored as recorded; they are not re-validated against disk because
// staging directories may have been cleaned since.
func FromStore(data []byte) (*Instance, error) {
	var payload stored
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode instance: %w", err)
	}
	if payload.ID == "" || payload.Family == "" || payload.Subset == "" {
		return nil, fmt.Errorf("decode instance: id, family, and subset are required")
	}
	inst := &Instance{
		ID:                payload.ID,
		SubsetName:        payload.Subset,
		Asset:             payload.Asset,
		TaskName:          payload.Task,
		Variant:           payload.Variant,
		CreatorIdentifier: payload.CreatorIdentifier,
		InstanceNode:      payload.InstanceNode,
		Active:            payload.Active,
		CreatorAttributes: maps.Clone(payload.CreatorAttributes),
		PublishAttributes: payload.PublishAttributes,
		Data:              maps.Clone(payload.Data),
		family:            payload.Family,
		representations:   payload.Representations,
	}
	if inst.CreatorAttributes == nil {
		inst.CreatorAttributes = map[string]any{}
	}
	if inst.Data == nil {
		inst.Data = map[string]any{}
	}
	if inst.PublishAttributes == nil {
		inst.PublishAttributes = map[string]map[string]any{}
	}
	return inst, nil
}
