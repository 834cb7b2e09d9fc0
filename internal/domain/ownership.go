package domain

import "fmt"

// Owned is implemented by resources that belong to exactly one user.
type Owned interface {
	OwnerID() string
}

// RequireOwner returns ErrForbidden unless userID owns res.
// action reads as "not allowed to <action>".
func RequireOwner(res Owned, userID, action string) error {
	if userID == "" || res.OwnerID() != userID {
		return fmt.Errorf("not allowed to %s: %w", action, ErrForbidden)
	}
	return nil
}
