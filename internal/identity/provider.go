package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cinexnema-cyber/projeto-xnema/internal/models"
)

// ProviderStore — реализация Store поверх управляемого провайдера
// идентификации с HTTP API в стиле GoTrue.
type ProviderStore struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewProviderStore создаёт клиент удалённого провайдера идентификации.
func NewProviderStore(baseURL, apiKey string, timeout time.Duration) *ProviderStore {
	return &ProviderStore{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type providerUser struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	CreatedAt    time.Time `json:"created_at"`
	UserMetadata struct {
		Username    string `json:"username"`
		DisplayName string `json:"display_name"`
		Bio         string `json:"bio"`
	} `json:"user_metadata"`
}

func (u *providerUser) toAccount() *models.Account {
	return &models.Account{
		UID:         u.ID,
		Email:       strings.ToLower(u.Email),
		Username:    u.UserMetadata.Username,
		DisplayName: u.UserMetadata.DisplayName,
		Bio:         u.UserMetadata.Bio,
		CreatedAt:   u.CreatedAt,
	}
}

func (s *ProviderStore) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// Register создаёт учётную запись у провайдера.
func (s *ProviderStore) Register(ctx context.Context, email, password, username, displayName, bio string) (*models.Account, error) {
	const op = "identity.provider.Register"

	req, err := s.newRequest(ctx, http.MethodPost, "/signup", map[string]any{
		"email":    strings.ToLower(email),
		"password": password,
		"data": map[string]string{
			"username":     username,
			"display_name": displayName,
			"bio":          bio,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
	case http.StatusConflict, http.StatusUnprocessableEntity:
		return nil, ErrDuplicateEmail
	default:
		return nil, fmt.Errorf("%s: unexpected status %s", op, resp.Status)
	}

	var user providerUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user.toAccount(), nil
}

// Authenticate обменивает email и пароль на сессию провайдера.
func (s *ProviderStore) Authenticate(ctx context.Context, email, password string) (*models.Account, error) {
	const op = "identity.provider.Authenticate"

	req, err := s.newRequest(ctx, http.MethodPost, "/token?grant_type=password", map[string]string{
		"email":    strings.ToLower(email),
		"password": password,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusBadRequest, http.StatusUnauthorized:
		// Провайдер не различает неизвестный email и неверный пароль.
		return nil, ErrInvalidCredentials
	default:
		return nil, fmt.Errorf("%s: unexpected status %s", op, resp.Status)
	}

	var tokenResp struct {
		User providerUser `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return tokenResp.User.toAccount(), nil
}

// GetAccount возвращает учётную запись по UID.
func (s *ProviderStore) GetAccount(ctx context.Context, uid string) (*models.Account, error) {
	const op = "identity.provider.GetAccount"

	req, err := s.newRequest(ctx, http.MethodGet, "/admin/users/"+uid, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("%s: unexpected status %s", op, resp.Status)
	}

	var user providerUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user.toAccount(), nil
}

// FindByEmail возвращает учётную запись по email.
func (s *ProviderStore) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	const op = "identity.provider.FindByEmail"

	req, err := s.newRequest(ctx, http.MethodGet, "/admin/users?email="+strings.ToLower(email), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: unexpected status %s", op, resp.Status)
	}

	var listResp struct {
		Users []providerUser `json:"users"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listResp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(listResp.Users) == 0 {
		return nil, ErrNotFound
	}
	return listResp.Users[0].toAccount(), nil
}

// UpdatePassword заменяет пароль учётной записи у провайдера.
func (s *ProviderStore) UpdatePassword(ctx context.Context, uid, newPassword string) error {
	const op = "identity.provider.UpdatePassword"

	req, err := s.newRequest(ctx, http.MethodPut, "/admin/users/"+uid, map[string]string{
		"password": newPassword,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return fmt.Errorf("%s: unexpected status %s", op, resp.Status)
	}
}

// SendPasswordReset просит провайдера отправить письмо сброса пароля.
func (s *ProviderStore) SendPasswordReset(ctx context.Context, email string) error {
	const op = "identity.provider.SendPasswordReset"

	req, err := s.newRequest(ctx, http.MethodPost, "/recover", map[string]string{
		"email": strings.ToLower(email),
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status %s", op, resp.Status)
	}
	return nil
}

// SignOut аннулирует сессии учётной записи у провайдера.
func (s *ProviderStore) SignOut(ctx context.Context, uid string) error {
	const op = "identity.provider.SignOut"

	req, err := s.newRequest(ctx, http.MethodPost, "/admin/users/"+uid+"/logout", nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("%s: unexpected status %s", op, resp.Status)
	}
	return nil
}
