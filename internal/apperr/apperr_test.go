package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindValidation, http.StatusBadRequest},
		{KindInvalidAccountID, http.StatusBadRequest},
		{KindInvalidCredentials, http.StatusUnauthorized},
		{KindRoleMismatch, http.StatusForbidden},
		{KindRoleForbidden, http.StatusForbidden},
		{KindSubscriptionRequired, http.StatusForbidden},
		{KindCreatorPending, http.StatusForbidden},
		{KindDuplicateEmail, http.StatusConflict},
		{KindNotFound, http.StatusNotFound},
		{KindProviderUnavailable, http.StatusBadGateway},
		{KindPartialFailure, http.StatusInternalServerError},
		{KindLedgerWriteFailed, http.StatusInternalServerError},
		{KindInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.kind, "msg").HTTPStatus())
		})
	}
}

func TestRetryable(t *testing.T) {
	assert.True(t, New(KindProviderUnavailable, "msg").Retryable())
	assert.True(t, PartialFailure("uid", errors.New("boom")).Retryable())
	assert.False(t, New(KindValidation, "msg").Retryable())
	assert.False(t, New(KindInternal, "msg").Retryable())
}

func TestPartialFailureCarriesAccountUID(t *testing.T) {
	cause := errors.New("write failed")
	err := PartialFailure("acc-123", cause)

	assert.Equal(t, KindPartialFailure, err.Kind)
	assert.Equal(t, "acc-123", err.AccountUID)
	assert.ErrorIs(t, err, cause)
}

func TestFrom(t *testing.T) {
	orig := New(KindDuplicateEmail, "email already registered")
	wrapped := fmt.Errorf("outer: %w", orig)

	got := From(wrapped)
	assert.Equal(t, KindDuplicateEmail, got.Kind)

	plain := From(errors.New("boom"))
	assert.Equal(t, KindInternal, plain.Kind)
}

func TestIsKind(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(KindLedgerWriteFailed, "ledger"))
	assert.True(t, IsKind(err, KindLedgerWriteFailed))
	assert.False(t, IsKind(err, KindValidation))
	assert.False(t, IsKind(errors.New("boom"), KindInternal))
}

func TestInvalidCredentialsMessageIsUniform(t *testing.T) {
	// Неизвестный email и неверный пароль должны быть неотличимы.
	a := InvalidCredentials()
	b := InvalidCredentials()
	assert.Equal(t, a.Message, b.Message)
	assert.Equal(t, "invalid email or password", a.Message)
}
