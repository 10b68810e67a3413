package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cinexnema-cyber/projeto-xnema/internal/models"
)

// AppendSubscriptionRecord добавляет запись в журнал подписок и возвращает её ID.
// Журнал append-only: записи никогда не обновляются и не удаляются.
func (s *Storage) AppendSubscriptionRecord(ctx context.Context, rec models.SubscriptionRecord) (string, error) {
	const op = "storage.AppendSubscriptionRecord"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO subscription_records (account_uid, status, plan_type, start_date,
			      end_date, payment_method)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING id`
	var newID string
	err := s.DB.QueryRowContext(ctx, query,
		rec.AccountUID, rec.Status, rec.PlanType, rec.StartDate,
		rec.EndDate, rec.PaymentMethod).Scan(&newID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// ListSubscriptionRecords возвращает журнал подписок пользователя,
// новые записи первыми.
func (s *Storage) ListSubscriptionRecords(ctx context.Context, accountUID string) ([]*models.SubscriptionRecord, error) {
	const op = "storage.ListSubscriptionRecords"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, account_uid, status, plan_type, start_date, end_date,
			      payment_method, created_at
			  FROM subscription_records
			  WHERE account_uid = $1
			  ORDER BY created_at DESC`
	rows, err := s.DB.QueryContext(ctx, query, accountUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.SubscriptionRecord
	for rows.Next() {
		var rec models.SubscriptionRecord
		var endDate sql.NullTime
		var method sql.NullString
		if err = rows.Scan(&rec.ID, &rec.AccountUID, &rec.Status, &rec.PlanType,
			&rec.StartDate, &endDate, &method, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if endDate.Valid {
			rec.EndDate = &endDate.Time
		}
		if method.Valid {
			rec.PaymentMethod = &method.String
		}
		result = append(result, &rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// InsertPaymentEvent фиксирует событие оплаты по идентификатору транзакции.
// Возвращает false, если транзакция уже обрабатывалась: повторная доставка
// webhook не создаёт второй активной подписки.
func (s *Storage) InsertPaymentEvent(ctx context.Context, event models.PaymentEvent) (bool, error) {
	const op = "storage.InsertPaymentEvent"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO payment_events (transaction_id, account_uid, plan_type, status)
			  VALUES ($1, $2, $3, $4)
			  ON CONFLICT (transaction_id) DO NOTHING`
	res, err := s.DB.ExecContext(ctx, query,
		event.TransactionID, event.AccountUID, event.PlanType, event.Status)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return affected > 0, nil
}

// DeletePaymentEvent убирает фиксацию события оплаты. Вызывается при
// откате: если активация после фиксации не удалась, повторная доставка
// webhook должна пройти проверку идемпотентности заново.
func (s *Storage) DeletePaymentEvent(ctx context.Context, transactionID string) error {
	const op = "storage.DeletePaymentEvent"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM payment_events WHERE transaction_id = $1`
	if _, err := s.DB.ExecContext(ctx, query, transactionID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
