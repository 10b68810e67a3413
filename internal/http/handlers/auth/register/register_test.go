package register

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/cinexnema-cyber/projeto-xnema/internal/apperr"
	"github.com/cinexnema-cyber/projeto-xnema/internal/models"
)

type AuthServiceMock struct {
	mock.Mock
}

func (m *AuthServiceMock) Register(ctx context.Context, email, password, username, displayName, bio, role string) (*models.SessionUser, error) {
	args := m.Called(ctx, email, password, username, displayName, bio, role)
	user, _ := args.Get(0).(*models.SessionUser)
	return user, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func validRequest() Request {
	return Request{
		Email:       "user@example.com",
		Password:    "password123",
		Username:    "username",
		DisplayName: "Display Name",
	}
}

func TestRegisterHandler_ServeHTTP(t *testing.T) {
	const uid = "11111111-2222-3333-4444-555555555555"

	tests := []struct {
		name           string
		requestBody    any
		mockUser       *models.SessionUser
		mockErr        error
		wantStatusCode int
		wantStatus     string
		checkBody      func(t *testing.T, got map[string]any)
	}{
		{
			name:           "successful registration",
			requestBody:    validRequest(),
			mockUser:       &models.SessionUser{UID: uid, Email: "user@example.com", Role: models.RoleUser},
			wantStatusCode: http.StatusCreated,
			wantStatus:     "OK",
			checkBody: func(t *testing.T, got map[string]any) {
				data, ok := got["data"].(map[string]any)
				assert.True(t, ok)
				assert.Equal(t, uid, data["uid"])
				assert.Equal(t, models.RoleUser, data["role"])
			},
		},
		{
			name: "creator registration",
			requestBody: Request{
				Email:       "creator@example.com",
				Password:    "password123",
				Username:    "creator",
				DisplayName: "Creator Name",
				Role:        models.RoleCreator,
			},
			mockUser:       &models.SessionUser{UID: uid, Email: "creator@example.com", Role: models.RoleCreator},
			wantStatusCode: http.StatusCreated,
			wantStatus:     "OK",
			checkBody: func(t *testing.T, got map[string]any) {
				data, ok := got["data"].(map[string]any)
				assert.True(t, ok)
				assert.Equal(t, models.RoleCreator, data["role"])
			},
		},
		{
			name: "validation error - unknown role",
			requestBody: Request{
				Email:       "user@example.com",
				Password:    "password123",
				Username:    "username",
				DisplayName: "Display Name",
				Role:        "owner",
			},
			wantStatusCode: http.StatusUnprocessableEntity,
			wantStatus:     "Error",
		},
		{
			name:           "invalid json body",
			requestBody:    "not a json",
			wantStatusCode: http.StatusBadRequest,
			wantStatus:     "Error",
		},
		{
			name: "validation error - short password",
			requestBody: Request{
				Email:       "user@example.com",
				Password:    "short",
				Username:    "username",
				DisplayName: "Display Name",
			},
			wantStatusCode: http.StatusUnprocessableEntity,
			wantStatus:     "Error",
		},
		{
			name:           "duplicate email",
			requestBody:    validRequest(),
			mockErr:        apperr.New(apperr.KindDuplicateEmail, "email already registered"),
			wantStatusCode: http.StatusConflict,
			wantStatus:     "Error",
		},
		{
			name:           "partial failure carries account uid",
			requestBody:    validRequest(),
			mockErr:        apperr.PartialFailure(uid, errors.New("db down")),
			wantStatusCode: http.StatusInternalServerError,
			wantStatus:     "Error",
			checkBody: func(t *testing.T, got map[string]any) {
				assert.Equal(t, string(apperr.KindPartialFailure), got["code"])
				data, ok := got["data"].(map[string]any)
				assert.True(t, ok)
				assert.Equal(t, uid, data["account_uid"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authMock := new(AuthServiceMock)
			handler := New(newNoopLogger(), authMock)

			if tt.mockUser != nil || tt.mockErr != nil {
				reqBody := tt.requestBody.(Request)
				authMock.On("Register", mock.Anything, reqBody.Email, reqBody.Password,
					reqBody.Username, reqBody.DisplayName, reqBody.Bio, reqBody.Role).
					Return(tt.mockUser, tt.mockErr).Once()
			}

			var bodyBytes []byte
			switch v := tt.requestBody.(type) {
			case string:
				bodyBytes = []byte(v)
			default:
				var err error
				bodyBytes, err = json.Marshal(tt.requestBody)
				if err != nil {
					t.Fatal(err)
				}
			}

			req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader(bodyBytes))
			req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "reqid123"))
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)

			var got map[string]any
			assert.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
			assert.Equal(t, tt.wantStatus, got["status"])
			if tt.checkBody != nil {
				tt.checkBody(t, got)
			}

			authMock.AssertExpectations(t)
		})
	}
}
