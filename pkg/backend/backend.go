// Package backend wraps the hosted backend-as-a-service that owns persistence and authentication.
//
// Every operation is a direct pass-through: the call blocks until the provider answers and
// provider errors are returned unchanged. Nothing here retries.
package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/noah-isme/edumeet/internal/models"
)

var (
	// ErrNoRows is returned by single-row selects that match nothing.
	ErrNoRows = errors.New("backend: no rows in result set")
	// ErrUnavailable is returned by every data call of the fallback client.
	ErrUnavailable = errors.New("backend: client unavailable")
	// ErrNoSession is returned by auth calls that need a signed-in user.
	ErrNoSession = errors.New("backend: no active session")
)

// ProviderError carries the provider's own failure text.
type ProviderError struct {
	Status  int
	Code    string
	Message string
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Code)
	}
	return e.Message
}

// Client is the data + auth surface the application consumes.
type Client interface {
	Select(ctx context.Context, table string, q Query, dest interface{}) error
	Insert(ctx context.Context, table string, values map[string]interface{}, dest interface{}) error
	Update(ctx context.Context, table string, filters []Filter, patch map[string]interface{}, dest interface{}) error
	Auth() AuthClient
}

// AuthStateHandler receives auth-state change events.
type AuthStateHandler func(models.AuthEvent)

// AuthClient is the provider's session API.
type AuthClient interface {
	// GetSession returns (nil, nil) when nobody is signed in.
	GetSession(ctx context.Context) (*models.Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error)
	SignOut(ctx context.Context) error
	// SetSession restores a previously issued access token without contacting the provider.
	SetSession(accessToken string)
	UpdateUser(ctx context.Context, metadata models.UserMetadata) (*models.User, error)
	OnAuthStateChange(handler AuthStateHandler) (unsubscribe func())
}

// Observer is notified about every data call; metrics hook in here.
type Observer interface {
	ObserveBackendCall(operation, table string, duration time.Duration, err error)
}

func observe(o Observer, operation, table string, start time.Time, err error) {
	if o == nil {
		return
	}
	o.ObserveBackendCall(operation, table, time.Since(start), err)
}
