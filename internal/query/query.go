// Package query composes the WHERE clause used to list todos.  A Predicate is
// a flat list of conjunctive terms whose first term always restricts rows to
// a single owner.
package query

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/weather-todo/internal/model"
)

// ErrUnscoped is returned for a Predicate that was not built with Owner.
var ErrUnscoped = errors.New("query: predicate has no owner scope")

// Field names a filterable todo column.
type Field string

const (
	FieldOwner      Field = "user_id"
	FieldWeather    Field = "weather"
	FieldModifiedAt Field = "modified_at"
)

// Op is a comparison operator.
type Op int

const (
	OpEq Op = iota
	OpGte
	OpLte
)

func (o Op) sql() string {
	switch o {
	case OpGte:
		return ">="
	case OpLte:
		return "<="
	default:
		return "="
	}
}

// Term is a single comparison.
type Term struct {
	Field Field
	Op    Op
	Value any
}

// Filter holds the optional search criteria.  An empty Weather or a nil
// bound means "no constraint", not "match nothing".
type Filter struct {
	Weather string
	Start   *time.Time // inclusive lower bound on modified_at
	End     *time.Time // inclusive upper bound on modified_at
}

// Predicate is a conjunction of terms.  The zero value is unscoped and is
// rejected by SQL and Match.
type Predicate struct {
	terms []Term
}

// Owner returns the predicate that limits rows to ownerID.
func Owner(ownerID int64) Predicate {
	return Predicate{terms: []Term{{Field: FieldOwner, Op: OpEq, Value: ownerID}}}
}

// Compose adds the present filters of f to owner.  owner is not modified.
func Compose(owner Predicate, f Filter) Predicate {
	terms := make([]Term, len(owner.terms), len(owner.terms)+3)
	copy(terms, owner.terms)

	if w := strings.TrimSpace(f.Weather); w != "" {
		terms = append(terms, Term{Field: FieldWeather, Op: OpEq, Value: w})
	}
	if f.Start != nil {
		terms = append(terms, Term{Field: FieldModifiedAt, Op: OpGte, Value: f.Start.UTC()})
	}
	if f.End != nil {
		terms = append(terms, Term{Field: FieldModifiedAt, Op: OpLte, Value: f.End.UTC()})
	}
	return Predicate{terms: terms}
}

// Scoped reports whether the first term is an ownership term.
func (p Predicate) Scoped() bool {
	if len(p.terms) == 0 {
		return false
	}
	t := p.terms[0]
	id, ok := t.Value.(int64)
	return t.Field == FieldOwner && t.Op == OpEq && ok && id > 0
}

// OwnerID returns the owner the predicate is scoped to, or 0.
func (p Predicate) OwnerID() int64 {
	if !p.Scoped() {
		return 0
	}
	return p.terms[0].Value.(int64)
}

// Terms returns a copy of the terms, ownership first.
func (p Predicate) Terms() []Term {
	out := make([]Term, len(p.terms))
	copy(out, p.terms)
	return out
}

// SQL renders the predicate as a parameterised condition, column names
// qualified with alias when it is non-empty.
func (p Predicate) SQL(alias string) (string, []any, error) {
	if !p.Scoped() {
		return "", nil, ErrUnscoped
	}
	prefix := ""
	if alias != "" {
		prefix = alias + "."
	}
	where := make([]string, 0, len(p.terms))
	args := make([]any, 0, len(p.terms))
	for _, t := range p.terms {
		where = append(where, fmt.Sprintf("%s%s %s ?", prefix, t.Field, t.Op.sql()))
		args = append(args, t.Value)
	}
	return strings.Join(where, " AND "), args, nil
}

// Match evaluates the predicate against an in-memory todo.  An unscoped
// predicate matches nothing.
func (p Predicate) Match(td model.Todo) bool {
	if !p.Scoped() {
		return false
	}
	for _, t := range p.terms {
		if !t.match(td) {
			return false
		}
	}
	return true
}

func (t Term) match(td model.Todo) bool {
	switch t.Field {
	case FieldOwner:
		id, _ := t.Value.(int64)
		return td.OwnerID == id
	case FieldWeather:
		w, _ := t.Value.(string)
		return td.Weather == w
	case FieldModifiedAt:
		ts, ok := t.Value.(time.Time)
		if !ok {
			return false
		}
		switch t.Op {
		case OpGte:
			return !td.ModifiedAt.Before(ts)
		case OpLte:
			return !td.ModifiedAt.After(ts)
		default:
			return td.ModifiedAt.Equal(ts)
		}
	}
	return false
}
