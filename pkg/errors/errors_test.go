package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneKeepsIdentity(t *testing.T) {
	cloned := Clone(ErrForbidden, "Only teachers can create assignments")

	assert.Equal(t, "Only teachers can create assignments", cloned.Message)
	assert.True(t, errors.Is(cloned, ErrForbidden))
	assert.False(t, errors.Is(cloned, ErrValidation))
	assert.Equal(t, "forbidden", ErrForbidden.Message)
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	appErr := FromError(fmt.Errorf("boom"))

	require.NotNil(t, appErr)
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Nil(t, FromError(nil))
}

func TestBackendSurfacesProviderText(t *testing.T) {
	appErr := Backend(fmt.Errorf(`null value in column "title" violates not-null constraint`))

	assert.Equal(t, ErrBackend.Code, appErr.Code)
	assert.Equal(t, `null value in column "title" violates not-null constraint`, appErr.Message)

	typed := Clone(ErrUnauthorized, "")
	assert.Same(t, typed, Backend(typed))
}
