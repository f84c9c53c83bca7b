// Package authz holds the ownership predicate applied before any task read by id
// or mutation.
package authz

import (
	"errors"
	"fmt"

	"todoapp/internal/model"
)

// ErrAnonymous is returned when no authenticated requester was supplied.
var ErrAnonymous = errors.New("requester not authenticated")

// AuthorizationError means the requester does not own the task.
type AuthorizationError struct {
	TaskID      int
	OwnerID     int
	RequesterID int
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("user %d is not the owner of todo %d", e.RequesterID, e.TaskID)
}

// RequireRequester rejects the zero identity. User ids come from the store and start at 1.
func RequireRequester(requesterID int) error {
	if requesterID <= 0 {
		return ErrAnonymous
	}
	return nil
}

// RequireOwner succeeds only when requesterID is the recorded owner of t.
func RequireOwner(t *model.Task, requesterID int) error {
	if err := RequireRequester(requesterID); err != nil {
		return err
	}
	if t == nil {
		return model.ErrNotFound
	}
	if t.UserID != requesterID {
		return &AuthorizationError{
			TaskID:      t.ID,
			OwnerID:     t.UserID,
			RequesterID: requesterID,
		}
	}
	return nil
}

// IsForbidden reports whether err came from a failed ownership check.
func IsForbidden(err error) bool {
	var ae *AuthorizationError
	return errors.As(err, &ae) || errors.Is(err, ErrAnonymous)
}
