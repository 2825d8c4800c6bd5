// Package domain – queue entities
//
// This file defines the mutation intents carried by the write queue. An
// entity is tagged by its operation; only set carries a value.
package domain

import (
	"errors"
	"fmt"
)

// Op is the mutation carried by a QueueEntity.
type Op string

const (
	OpSet    Op = "set"
	OpDelete Op = "delete"
)

// ErrInvalidEntity is returned when a QueueEntity violates its invariants.
var ErrInvalidEntity = errors.New("invalid queue entity")

// QueueEntity is a mutation intent placed on the write queue. Value is
// present iff Op == OpSet.
type QueueEntity struct {
	Table string        `json:"tableName"`
	Op    Op            `json:"messageType"`
	Key   int64         `json:"key"`
	Value *RelaySession `json:"value,omitempty"`
}

// NewSetEntity builds a set intent for table/key.
func NewSetEntity(table string, key int64, v RelaySession) QueueEntity {
	return QueueEntity{Table: table, Op: OpSet, Key: key, Value: &v}
}

// NewDeleteEntity builds a delete intent for table/key.
func NewDeleteEntity(table string, key int64) QueueEntity {
	return QueueEntity{Table: table, Op: OpDelete, Key: key}
}

// Validate enforces the set/value pairing. Unknown ops are not rejected here:
// the consumer logs and drops them so a bad entry cannot wedge the queue.
func (e QueueEntity) Validate() error {
	if e.Table == "" {
		return fmt.Errorf("%w: empty table", ErrInvalidEntity)
	}
	switch e.Op {
	case OpSet:
		if e.Value == nil {
			return fmt.Errorf("%w: set without value", ErrInvalidEntity)
		}
		return e.Value.Validate()
	case OpDelete:
		if e.Value != nil {
			return fmt.Errorf("%w: delete with value", ErrInvalidEntity)
		}
	}
	return nil
}
