// Package differ applies "update if different" semantics to entity fields
// and records what changed. A non-empty Changeset is the only signal that an
// entity needs to be written.
package differ

import (
	"fmt"
	"strings"
)

// ChangeType represents the type of change.
type ChangeType string

const (
	// ChangeTypeAdd indicates a previously empty field was set.
	ChangeTypeAdd ChangeType = "add"
	// ChangeTypeUpdate indicates a field value was replaced.
	ChangeTypeUpdate ChangeType = "update"
	// ChangeTypeCreate indicates the entity itself is new.
	ChangeTypeCreate ChangeType = "create"
	// ChangeTypeAttempt marks a field whose value could not be resolved but
	// whose resolution was attempted. It still makes the entity dirty.
	ChangeTypeAttempt ChangeType = "attempt"
)

// FieldChange represents a change to a specific field.
type FieldChange struct {
	Path     string     // Field path (e.g., "name_en")
	OldValue string     // Previous value (string representation)
	NewValue string     // New value (string representation)
	Type     ChangeType // Type of change
}

// Changeset collects the field changes made to one entity during a
// reconciliation pass.
type Changeset struct {
	Entity  string        // Entity kind (e.g., "bill")
	Changes []FieldChange // Field changes in the order they were applied
}

// New creates an empty changeset for the named entity.
func New(entity string) *Changeset {
	return &Changeset{Entity: entity}
}

// HasChanges returns true if the changeset contains any changes.
func (c *Changeset) HasChanges() bool {
	return c != nil && len(c.Changes) > 0
}

// Len returns the number of recorded changes.
func (c *Changeset) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Changes)
}

// MarkCreated records that the entity did not exist before this pass.
func (c *Changeset) MarkCreated() {
	c.Changes = append(c.Changes, FieldChange{Path: "*", Type: ChangeTypeCreate})
}

// Created reports whether MarkCreated was called.
func (c *Changeset) Created() bool {
	if c == nil {
		return false
	}
	for _, ch := range c.Changes {
		if ch.Type == ChangeTypeCreate {
			return true
		}
	}
	return false
}

// Attempt records that resolving path was tried without producing a value.
func (c *Changeset) Attempt(path string) {
	c.Changes = append(c.Changes, FieldChange{Path: path, Type: ChangeTypeAttempt})
}

// Record appends a field change.
func (c *Changeset) Record(path, oldValue, newValue string) {
	typ := ChangeTypeUpdate
	if oldValue == "" {
		typ = ChangeTypeAdd
	}
	c.Changes = append(c.Changes, FieldChange{
		Path:     path,
		OldValue: oldValue,
		NewValue: newValue,
		Type:     typ,
	})
}

// Field returns the change recorded for path, if any.
func (c *Changeset) Field(path string) (FieldChange, bool) {
	if c == nil {
		return FieldChange{}, false
	}
	for _, ch := range c.Changes {
		if ch.Path == path {
			return ch, true
		}
	}
	return FieldChange{}, false
}

// Paths returns the changed field paths in order.
func (c *Changeset) Paths() []string {
	if c == nil {
		return nil
	}
	paths := make([]string, 0, len(c.Changes))
	for _, ch := range c.Changes {
		if ch.Type != ChangeTypeCreate {
			paths = append(paths, ch.Path)
		}
	}
	return paths
}

// String summarizes the changeset for logs.
func (c *Changeset) String() string {
	if !c.HasChanges() {
		return fmt.Sprintf("%s: no changes", c.entityName())
	}
	var b strings.Builder
	b.WriteString(c.entityName())
	b.WriteString(":")
	for _, ch := range c.Changes {
		switch ch.Type {
		case ChangeTypeCreate:
			b.WriteString(" +created")
			continue
		case ChangeTypeAttempt:
			fmt.Fprintf(&b, " %s(unresolved)", ch.Path)
			continue
		}
		fmt.Fprintf(&b, " %s(%q -> %q)", ch.Path, ch.OldValue, ch.NewValue)
	}
	return b.String()
}

func (c *Changeset) entityName() string {
	if c == nil || c.Entity == "" {
		return "entity"
	}
	return c.Entity
}
