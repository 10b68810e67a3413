package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cinexnema-cyber/projeto-xnema/internal/models"
)

// ErrAppUserNotFound — прикладная запись пользователя не найдена.
var ErrAppUserNotFound = errors.New("app user not found")

// UpsertAppUser создаёт прикладную запись пользователя или обновляет
// существующую. Ключ — UID учётной записи, поэтому повтор после
// частичного сбоя регистрации идемпотентен.
func (s *Storage) UpsertAppUser(ctx context.Context, user models.AppUser) error {
	const op = "storage.UpsertAppUser"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO app_users (account_uid, role, subscription_status, subscription_start,
			      subscription_end, subscription_plan, creator_status)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  ON CONFLICT (account_uid) DO UPDATE
			  SET role = EXCLUDED.role,
			      subscription_status = EXCLUDED.subscription_status,
			      subscription_start = EXCLUDED.subscription_start,
			      subscription_end = EXCLUDED.subscription_end,
			      subscription_plan = EXCLUDED.subscription_plan,
			      creator_status = EXCLUDED.creator_status,
			      updated_at = now();`
	_, err := s.DB.ExecContext(ctx, query,
		user.AccountUID, user.Role, user.SubscriptionStatus, user.SubscriptionStart,
		user.SubscriptionEnd, user.SubscriptionPlan, user.CreatorStatus)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetAppUser возвращает прикладную запись пользователя по UID учётной записи.
func (s *Storage) GetAppUser(ctx context.Context, accountUID string) (*models.AppUser, error) {
	const op = "storage.GetAppUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT account_uid, role, subscription_status, subscription_start,
			      subscription_end, subscription_plan, creator_status, updated_at
			  FROM app_users
			  WHERE account_uid = $1`
	u := &models.AppUser{}
	row := s.DB.QueryRowContext(ctx, query, accountUID)

	var start, end sql.NullTime
	var plan sql.NullString
	if err := row.Scan(&u.AccountUID, &u.Role, &u.SubscriptionStatus, &start,
		&end, &plan, &u.CreatorStatus, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAppUserNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if start.Valid {
		u.SubscriptionStart = &start.Time
	}
	if end.Valid {
		u.SubscriptionEnd = &end.Time
	}
	if plan.Valid {
		u.SubscriptionPlan = &plan.String
	}
	return u, nil
}

// UpdateSubscriptionProjection обновляет проекцию подписки и роль
// пользователя одним запросом.
func (s *Storage) UpdateSubscriptionProjection(ctx context.Context, user models.AppUser) error {
	const op = "storage.UpdateSubscriptionProjection"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE app_users
			  SET role = $1,
			      subscription_status = $2,
			      subscription_start = $3,
			      subscription_end = $4,
			      subscription_plan = $5,
			      updated_at = now()
			  WHERE account_uid = $6`
	res, err := s.DB.ExecContext(ctx, query,
		user.Role, user.SubscriptionStatus, user.SubscriptionStart,
		user.SubscriptionEnd, user.SubscriptionPlan, user.AccountUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return ErrAppUserNotFound
	}
	return nil
}

// SetCreatorStatus обновляет статус заявки создателя контента.
func (s *Storage) SetCreatorStatus(ctx context.Context, accountUID, status string) error {
	const op = "storage.SetCreatorStatus"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE app_users SET creator_status = $1, updated_at = now() WHERE account_uid = $2`
	_, err := s.DB.ExecContext(ctx, query, status, accountUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListAppUsers возвращает прикладные записи пользователей с пагинацией.
func (s *Storage) ListAppUsers(ctx context.Context, limit, offset int) ([]*models.AppUser, error) {
	const op = "storage.ListAppUsers"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT account_uid, role, subscription_status, subscription_start,
			      subscription_end, subscription_plan, creator_status, updated_at
			  FROM app_users
			  ORDER BY account_uid
			  LIMIT $1 OFFSET $2`
	rows, err := s.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.AppUser
	for rows.Next() {
		var u models.AppUser
		var start, end sql.NullTime
		var plan sql.NullString
		if err = rows.Scan(&u.AccountUID, &u.Role, &u.SubscriptionStatus, &start,
			&end, &plan, &u.CreatorStatus, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if start.Valid {
			u.SubscriptionStart = &start.Time
		}
		if end.Valid {
			u.SubscriptionEnd = &end.Time
		}
		if plan.Valid {
			u.SubscriptionPlan = &plan.String
		}
		result = append(result, &u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
