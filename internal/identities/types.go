package identities

import (
	"errors"
	"time"
)

// Errors returned by identity operations.
var (
	ErrIdentityNotFound = errors.New("identity not found")
)

// Identity is one chat identity and its GitHub linkage state.
type Identity struct {
	ID                 string    `json:"id"`
	IdentityKey        string    `json:"identity_key"`
	Linked             bool      `json:"linked"`
	NotificationsMuted bool      `json:"notifications_muted"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
