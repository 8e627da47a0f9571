package backend

import (
	"context"

	"github.com/noah-isme/edumeet/internal/models"
)

// Unavailable stands in when the configured provider could not be built.
// Data calls fail with ErrUnavailable, sessions are always empty and sign-in fails explicitly.
type Unavailable struct {
	Reason error
}

var _ Client = (*Unavailable)(nil)

func (u *Unavailable) Select(ctx context.Context, table string, q Query, dest interface{}) error {
	return ErrUnavailable
}

func (u *Unavailable) Insert(ctx context.Context, table string, values map[string]interface{}, dest interface{}) error {
	return ErrUnavailable
}

func (u *Unavailable) Update(ctx context.Context, table string, filters []Filter, patch map[string]interface{}, dest interface{}) error {
	return ErrUnavailable
}

func (u *Unavailable) Auth() AuthClient {
	return unavailableAuth{}
}

type unavailableAuth struct{}

func (unavailableAuth) GetSession(ctx context.Context) (*models.Session, error) { return nil, nil }

func (unavailableAuth) SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error) {
	return nil, ErrUnavailable
}

func (unavailableAuth) SignOut(ctx context.Context) error { return nil }

func (unavailableAuth) SetSession(string) {}

func (unavailableAuth) UpdateUser(ctx context.Context, metadata models.UserMetadata) (*models.User, error) {
	return nil, ErrUnavailable
}

func (unavailableAuth) OnAuthStateChange(AuthStateHandler) func() { return func() {} }
