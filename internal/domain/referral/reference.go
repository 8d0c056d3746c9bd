package referral

import "strings"

// Party is a directory record (agent or lender) linked to a login identity.
type Party struct {
	ID     string
	UserID string
	Name   string
	Email  string
	Phone  string
}

// LinkedIdentity is the login identity that owns the directory record.
func (p Party) LinkedIdentity() string {
	return strings.TrimSpace(p.UserID)
}

// DisplayName falls back to the record id when no name is stored.
func (p Party) DisplayName() string {
	if name := strings.TrimSpace(p.Name); name != "" {
		return name
	}
	return strings.TrimSpace(p.ID)
}

// Linked is implemented by entities that can be referenced from a referral.
type Linked interface {
	LinkedIdentity() string
}

// Reference is either a raw id or an expanded entity. The zero value is
// the empty reference.
type Reference[T Linked] struct {
	id       string
	expanded *T
}

// RefID builds a reference that only carries an id.
func RefID[T Linked](id string) Reference[T] {
	return Reference[T]{id: strings.TrimSpace(id)}
}

// RefExpanded builds a reference carrying the loaded entity.
func RefExpanded[T Linked](id string, entity T) Reference[T] {
	return Reference[T]{id: strings.TrimSpace(id), expanded: &entity}
}

func (r Reference[T]) ID() string {
	return r.id
}

func (r Reference[T]) IsEmpty() bool {
	return r.id == "" && r.expanded == nil
}

func (r Reference[T]) IsExpanded() bool {
	return r.expanded != nil
}

// Expanded returns the loaded entity when present.
func (r Reference[T]) Expanded() (T, bool) {
	if r.expanded == nil {
		var zero T
		return zero, false
	}
	return *r.expanded, true
}

// LinkedIdentity is the single extraction point used by access checks.
// An expanded reference yields the entity's linked identity; a raw
// reference is taken to already name that identity.
func (r Reference[T]) LinkedIdentity() string {
	if r.expanded != nil {
		return (*r.expanded).LinkedIdentity()
	}
	return r.id
}

// Collapse drops the expanded entity and keeps the id.
func (r Reference[T]) Collapse() Reference[T] {
	return Reference[T]{id: r.id}
}
