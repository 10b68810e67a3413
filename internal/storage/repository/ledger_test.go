package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinexnema-cyber/projeto-xnema/internal/models"
)

func TestAppendSubscriptionRecord(t *testing.T) {
	storage, mock := newMockStorage(t)

	start := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)
	method := "card"
	rec := models.SubscriptionRecord{
		AccountUID:    testUID,
		Status:        models.RecordActive,
		PlanType:      models.PlanMonthly,
		StartDate:     start,
		EndDate:       &end,
		PaymentMethod: &method,
	}

	mock.ExpectQuery("INSERT INTO subscription_records").
		WithArgs(rec.AccountUID, rec.Status, rec.PlanType, rec.StartDate, rec.EndDate, rec.PaymentMethod).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("rec-1"))

	id, err := storage.AppendSubscriptionRecord(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, "rec-1", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListSubscriptionRecords(t *testing.T) {
	storage, mock := newMockStorage(t)

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "account_uid", "status", "plan_type", "start_date",
		"end_date", "payment_method", "created_at",
	}).
		AddRow("rec-2", testUID, models.RecordCancelled, models.PlanMonthly, start, nil, nil, created).
		AddRow("rec-1", testUID, models.RecordActive, models.PlanMonthly, start, start.AddDate(0, 1, 0), "card", created.Add(-time.Hour))

	mock.ExpectQuery("SELECT (.+) FROM subscription_records").
		WithArgs(testUID).
		WillReturnRows(rows)

	got, err := storage.ListSubscriptionRecords(context.Background(), testUID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, models.RecordCancelled, got[0].Status)
	assert.Nil(t, got[0].EndDate)
	require.NotNil(t, got[1].PaymentMethod)
	assert.Equal(t, "card", *got[1].PaymentMethod)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertPaymentEvent(t *testing.T) {
	storage, mock := newMockStorage(t)

	event := models.PaymentEvent{
		TransactionID: "txn-1",
		AccountUID:    testUID,
		PlanType:      models.PlanMonthly,
		Status:        "payment.succeeded",
	}

	mock.ExpectExec("INSERT INTO payment_events").
		WithArgs(event.TransactionID, event.AccountUID, event.PlanType, event.Status).
		WillReturnResult(sqlmock.NewResult(0, 1))

	inserted, err := storage.InsertPaymentEvent(context.Background(), event)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertPaymentEventDuplicate(t *testing.T) {
	storage, mock := newMockStorage(t)

	event := models.PaymentEvent{
		TransactionID: "txn-1",
		AccountUID:    testUID,
		PlanType:      models.PlanMonthly,
		Status:        "payment.succeeded",
	}

	// ON CONFLICT DO NOTHING: повторная доставка не затрагивает строк.
	mock.ExpectExec("INSERT INTO payment_events").
		WithArgs(event.TransactionID, event.AccountUID, event.PlanType, event.Status).
		WillReturnResult(sqlmock.NewResult(0, 0))

	inserted, err := storage.InsertPaymentEvent(context.Background(), event)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeletePaymentEvent(t *testing.T) {
	storage, mock := newMockStorage(t)

	mock.ExpectExec("DELETE FROM payment_events").
		WithArgs("txn-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, storage.DeletePaymentEvent(context.Background(), "txn-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
