package errx

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusAndMessageOf(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"plain error", errors.New("boom"), http.StatusInternalServerError, SystemErrorMessage},
		{"validation", Validation("question is %s", "empty"), http.StatusBadRequest, "question is empty"},
		{"not found", NotFound("t1"), http.StatusNotFound, ThreadNotFoundMessage},
		{"serialization", Serialization(errors.New("bad json")), http.StatusInternalServerError, SerializationErrorMessage},
		{"wrapped app error", fmt.Errorf("run: %w", NotFound("t1")), http.StatusNotFound, ThreadNotFoundMessage},
		{"postgres", WrapPostgres(errors.New("conn refused")), http.StatusBadGateway, PostgresErrorMessage},
		{"zero status", &AppError{Message: "x"}, http.StatusInternalServerError, "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, StatusOf(tt.err))
			assert.Equal(t, tt.message, MessageOf(tt.err))
		})
	}
}

func TestAppError_IsAndAs(t *testing.T) {
	err := fmt.Errorf("load: %w", NotFound("t1"))
	assert.ErrorIs(t, err, ErrThreadNotFound)
	assert.NotErrorIs(t, err, ErrThreadBusy)

	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusNotFound, appErr.Status)
	assert.Contains(t, appErr.Error(), "t1")
}

func TestAppError_ErrorWithoutCause(t *testing.T) {
	assert.Equal(t, "only message", New(nil, http.StatusTeapot, "only message").Error())
}

func TestWrapRedis(t *testing.T) {
	assert.NoError(t, WrapRedis(nil))
	assert.NoError(t, WrapPostgres(nil))

	nf := WrapRedis(redis.Nil)
	assert.Equal(t, http.StatusNotFound, StatusOf(nf))
	assert.Equal(t, RedisNotFoundMessage, MessageOf(nf))
	assert.ErrorIs(t, nf, redis.Nil)

	other := WrapRedis(errors.New("i/o timeout"))
	assert.Equal(t, http.StatusBadGateway, StatusOf(other))
	assert.Equal(t, RedisErrorMessage, MessageOf(other))
}
