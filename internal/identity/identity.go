// Package identity keeps the non-authoritative copy of the signed-in user.
// The cached blob only lets a restored workspace render before the provider answers.
package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/noah-isme/edumeet/internal/models"
)

// ErrNotFound is returned when no blob is stored for a key.
var ErrNotFound = errors.New("identity: not cached")

// Cache stores one identity blob per workspace slot.
type Cache interface {
	Save(ctx context.Context, slot string, id models.CachedIdentity) error
	Load(ctx context.Context, slot string) (*models.CachedIdentity, error)
	Clear(ctx context.Context, slot string) error
}

// SlotForToken derives a storage slot from an access token without storing the token itself.
func SlotForToken(accessToken string) string {
	sum := sha256.Sum256([]byte(accessToken))
	return hex.EncodeToString(sum[:16])
}

// Nop discards everything; used when IDENTITY_CACHE=none.
type Nop struct{}

func (Nop) Save(context.Context, string, models.CachedIdentity) error { return nil }

func (Nop) Load(context.Context, string) (*models.CachedIdentity, error) { return nil, ErrNotFound }

func (Nop) Clear(context.Context, string) error { return nil }
