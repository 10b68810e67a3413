package identity

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cinexnema-cyber/projeto-xnema/internal/lib/password"
	"github.com/cinexnema-cyber/projeto-xnema/internal/models"
)

// ResetPublisher публикует событие сброса пароля в очередь уведомлений.
type ResetPublisher interface {
	Publish(routingKey string, message json.RawMessage) error
}

// PostgresStore — локальная реализация Store поверх таблицы accounts.
type PostgresStore struct {
	DB        *sql.DB
	publisher ResetPublisher
}

// NewPostgresStore создаёт локальное хранилище идентификации.
// publisher может быть nil — тогда письма сброса пароля не отправляются.
func NewPostgresStore(db *sql.DB, publisher ResetPublisher) *PostgresStore {
	return &PostgresStore{DB: db, publisher: publisher}
}

// Register создаёт учётную запись с bcrypt-хэшем пароля.
func (s *PostgresStore) Register(ctx context.Context, email, rawPassword, username, displayName, bio string) (*models.Account, error) {
	const op = "identity.Register"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	hash, err := password.GetHash(rawPassword)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	acc := &models.Account{
		Email:        strings.ToLower(email),
		Username:     username,
		DisplayName:  displayName,
		Bio:          bio,
		PasswordHash: hash,
	}
	query := `INSERT INTO accounts (email, username, display_name, bio, password_hash)
			  VALUES ($1, $2, $3, $4, $5)
			  RETURNING uid, created_at;`
	if err := s.DB.QueryRowContext(ctx, query,
		acc.Email, acc.Username, acc.DisplayName, acc.Bio, acc.PasswordHash,
	).Scan(&acc.UID, &acc.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return acc, nil
}

// Authenticate проверяет email и пароль. Неизвестный email и неверный
// пароль дают одинаковый ErrInvalidCredentials.
func (s *PostgresStore) Authenticate(ctx context.Context, email, rawPassword string) (*models.Account, error) {
	const op = "identity.Authenticate"

	acc, err := s.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := password.CompareHash(acc.PasswordHash, rawPassword); err != nil {
		return nil, ErrInvalidCredentials
	}
	return acc, nil
}

// GetAccount возвращает учётную запись по UID.
func (s *PostgresStore) GetAccount(ctx context.Context, uid string) (*models.Account, error) {
	const op = "identity.GetAccount"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, email, username, display_name, bio, password_hash, created_at
			  FROM accounts
			  WHERE uid = $1`
	return s.scanAccount(s.DB.QueryRowContext(ctx, query, uid), op)
}

// FindByEmail возвращает учётную запись по email (без учёта регистра).
func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	const op = "identity.FindByEmail"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, email, username, display_name, bio, password_hash, created_at
			  FROM accounts
			  WHERE email = $1`
	return s.scanAccount(s.DB.QueryRowContext(ctx, query, strings.ToLower(email)), op)
}

// UpdatePassword заменяет хэш пароля учётной записи.
func (s *PostgresStore) UpdatePassword(ctx context.Context, uid, newPassword string) error {
	const op = "identity.UpdatePassword"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	hash, err := password.GetHash(newPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	query := `UPDATE accounts SET password_hash = $1 WHERE uid = $2`
	res, err := s.DB.ExecContext(ctx, query, hash, uid)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SendPasswordReset публикует событие для письма сброса пароля.
// Вызывается только для существующих учётных записей — проверку
// существования делает вызывающая сторона.
func (s *PostgresStore) SendPasswordReset(_ context.Context, email string) error {
	const op = "identity.SendPasswordReset"
	if s.publisher == nil {
		return nil
	}
	msg, err := json.Marshal(map[string]string{"email": strings.ToLower(email)})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.publisher.Publish("password.reset", msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SignOut для локального хранилища ничего не делает: сессии живут
// в сессионном хранилище приложения и очищаются сервисом аутентификации.
func (s *PostgresStore) SignOut(_ context.Context, _ string) error {
	return nil
}

func (s *PostgresStore) scanAccount(row *sql.Row, op string) (*models.Account, error) {
	acc := &models.Account{}
	if err := row.Scan(&acc.UID, &acc.Email, &acc.Username, &acc.DisplayName,
		&acc.Bio, &acc.PasswordHash, &acc.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return acc, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
