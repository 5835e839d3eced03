// Package guard enforces that callers only reach their own todos.
package guard

import (
	"fmt"

	"github.com/iliyamo/weather-todo/internal/auth"
	"github.com/iliyamo/weather-todo/internal/model"
	"github.com/iliyamo/weather-todo/internal/query"
	apperrors "github.com/iliyamo/weather-todo/pkg/errors"
)

// AssertOwnership fails with ErrRecordNotFound when id does not own td.  A
// non-owner gets exactly the error a missing id produces, so the response does
// not reveal that the todo exists.
func AssertOwnership(id auth.Identity, td model.Todo) error {
	if id.SubjectID <= 0 || td.OwnerID != id.SubjectID {
		return fmt.Errorf("todo %d: %w", td.ID, apperrors.ErrRecordNotFound)
	}
	return nil
}

// ScopeToOwner returns the mandatory ownership predicate for subjectID.
func ScopeToOwner(subjectID int64) query.Predicate {
	return query.Owner(subjectID)
}
