package errors

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneMatchesSentinel(t *testing.T) {
	err := Clone(ErrForbidden, "only club members can post")

	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, fmt.Errorf("create post: %w", err), ErrForbidden)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "forbidden", ErrForbidden.Message)
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	wrapped := FromError(sql.ErrConnDone)

	assert.Equal(t, ErrInternal.Code, wrapped.Code)
	assert.True(t, errors.Is(wrapped, sql.ErrConnDone))
	assert.Equal(t, http.StatusInternalServerError, wrapped.Status)
	assert.Equal(t, http.StatusConflict, FromError(fmt.Errorf("vote: %w", ErrAlreadyVoted)).Status)
	assert.Nil(t, FromError(nil))
}
