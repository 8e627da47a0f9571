package repository

import (
	"errors"

	"github.com/noah-isme/edumeet/pkg/backend"
	appErrors "github.com/noah-isme/edumeet/pkg/errors"
)

// translate maps backend failures onto the application error taxonomy.
// Provider text is kept verbatim because it is shown to the user.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, backend.ErrUnavailable) {
		return appErrors.Wrap(err, appErrors.ErrBackendUnavailable.Code, appErrors.ErrBackendUnavailable.Status, appErrors.ErrBackendUnavailable.Message)
	}
	if errors.Is(err, backend.ErrNoSession) {
		return appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "session expired, please sign in again")
	}
	var providerErr *backend.ProviderError
	if errors.As(err, &providerErr) {
		return appErrors.Wrap(err, appErrors.ErrBackend.Code, appErrors.ErrBackend.Status, providerErr.Message)
	}
	return appErrors.Backend(err)
}

// Translate is exported for callers that talk to the backend auth API directly.
func Translate(err error) error {
	return translate(err)
}
