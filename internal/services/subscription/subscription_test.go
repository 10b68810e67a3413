package subscription_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cinexnema-cyber/projeto-xnema/internal/apperr"
	"github.com/cinexnema-cyber/projeto-xnema/internal/models"
	"github.com/cinexnema-cyber/projeto-xnema/internal/paymentprovider"
	"github.com/cinexnema-cyber/projeto-xnema/internal/services/subscription"
	"github.com/cinexnema-cyber/projeto-xnema/internal/storage/repository"
)

const testUID = "11111111-2222-3333-4444-555555555555"

// Мок для Repository
type RepoMock struct {
	mock.Mock
}

func (m *RepoMock) GetAppUser(ctx context.Context, accountUID string) (*models.AppUser, error) {
	args := m.Called(ctx, accountUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AppUser), args.Error(1)
}

func (m *RepoMock) UpdateSubscriptionProjection(ctx context.Context, user models.AppUser) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *RepoMock) AppendSubscriptionRecord(ctx context.Context, rec models.SubscriptionRecord) (string, error) {
	args := m.Called(ctx, rec)
	return args.String(0), args.Error(1)
}

func (m *RepoMock) ListSubscriptionRecords(ctx context.Context, accountUID string) ([]*models.SubscriptionRecord, error) {
	args := m.Called(ctx, accountUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.SubscriptionRecord), args.Error(1)
}

func (m *RepoMock) InsertPaymentEvent(ctx context.Context, event models.PaymentEvent) (bool, error) {
	args := m.Called(ctx, event)
	return args.Bool(0), args.Error(1)
}

func (m *RepoMock) DeletePaymentEvent(ctx context.Context, transactionID string) error {
	args := m.Called(ctx, transactionID)
	return args.Error(0)
}

// Мок для CheckoutProvider
type ProviderMock struct {
	mock.Mock
}

func (m *ProviderMock) CreateCheckout(ctx context.Context, accountUID, planType string) (*paymentprovider.Checkout, error) {
	args := m.Called(ctx, accountUID, planType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentprovider.Checkout), args.Error(1)
}

// Публикации событий собираются в память.
type PublisherFake struct {
	published []models.SubscriptionEvent
	err       error
}

func (f *PublisherFake) Publish(_ string, message json.RawMessage) error {
	if f.err != nil {
		return f.err
	}
	var event models.SubscriptionEvent
	if err := json.Unmarshal(message, &event); err != nil {
		return err
	}
	f.published = append(f.published, event)
	return nil
}

type SessionFake struct {
	cleared []string
}

func (f *SessionFake) Clear(_ context.Context, uid string) error {
	f.cleared = append(f.cleared, uid)
	return nil
}

func newTestService(repo *RepoMock, provider *ProviderMock,
	events *PublisherFake, sessions *SessionFake) *subscription.Service {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	var ev subscription.EventPublisher
	if events != nil {
		ev = events
	}
	var sess subscription.SessionInvalidator
	if sessions != nil {
		sess = sessions
	}
	return subscription.New(log, repo, provider, nil, ev, sess)
}

func appUser(role, status string) *models.AppUser {
	return &models.AppUser{
		AccountUID:         testUID,
		Role:               role,
		SubscriptionStatus: status,
		CreatorStatus:      models.CreatorNone,
		UpdatedAt:          time.Now(),
	}
}

func TestCheckout(t *testing.T) {
	repo := new(RepoMock)
	provider := new(ProviderMock)
	svc := newTestService(repo, provider, nil, nil)

	provider.On("CreateCheckout", mock.Anything, testUID, models.PlanMonthly).
		Return(&paymentprovider.Checkout{
			TransactionID:   "txn-1",
			ConfirmationURL: "https://pay.example.com/txn-1",
		}, nil).Once()

	checkout, err := svc.Checkout(context.Background(), testUID, models.PlanMonthly)
	require.NoError(t, err)
	assert.Equal(t, "txn-1", checkout.TransactionID)
	provider.AssertExpectations(t)
}

func TestCheckoutValidation(t *testing.T) {
	svc := newTestService(new(RepoMock), new(ProviderMock), nil, nil)

	_, err := svc.Checkout(context.Background(), "not-a-uuid", models.PlanMonthly)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidAccountID))

	_, err = svc.Checkout(context.Background(), testUID, "weekly")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestCheckoutProviderUnavailable(t *testing.T) {
	provider := new(ProviderMock)
	svc := newTestService(new(RepoMock), provider, nil, nil)

	provider.On("CreateCheckout", mock.Anything, testUID, models.PlanMonthly).
		Return(nil, errors.New("gateway timeout")).Once()

	_, err := svc.Checkout(context.Background(), testUID, models.PlanMonthly)
	assert.True(t, apperr.IsKind(err, apperr.KindProviderUnavailable))
	assert.True(t, apperr.From(err).Retryable())
}

func TestCreate(t *testing.T) {
	repo := new(RepoMock)
	events := &PublisherFake{}
	sessions := &SessionFake{}
	svc := newTestService(repo, new(ProviderMock), events, sessions)

	start := time.Date(2026, 1, 31, 10, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2026, 2, 28, 10, 0, 0, 0, time.UTC)

	repo.On("GetAppUser", mock.Anything, testUID).
		Return(appUser(models.RoleUser, models.SubscriptionInactive), nil).Once()
	repo.On("UpdateSubscriptionProjection", mock.Anything, mock.MatchedBy(func(u models.AppUser) bool {
		return u.Role == models.RoleSubscriber &&
			u.SubscriptionStatus == models.SubscriptionActive &&
			u.SubscriptionEnd != nil && u.SubscriptionEnd.Equal(wantEnd)
	})).Return(nil).Once()
	repo.On("AppendSubscriptionRecord", mock.Anything, mock.MatchedBy(func(rec models.SubscriptionRecord) bool {
		return rec.Status == models.RecordActive && rec.PlanType == models.PlanMonthly
	})).Return("rec-1", nil).Once()

	rec, err := svc.Create(context.Background(), testUID, models.PlanMonthly, start)
	require.NoError(t, err)
	assert.Equal(t, "rec-1", rec.ID)
	// Конец месяца выравнивается: 31 января + месяц = 28 февраля.
	assert.True(t, rec.EndDate.Equal(wantEnd))

	require.Len(t, events.published, 1)
	assert.Equal(t, "subscription.created", events.published[0].Event)
	assert.Contains(t, sessions.cleared, testUID)
	repo.AssertExpectations(t)
}

func TestCreateKeepsCreatorRole(t *testing.T) {
	repo := new(RepoMock)
	svc := newTestService(repo, new(ProviderMock), nil, nil)

	creator := appUser(models.RoleCreator, models.SubscriptionInactive)
	creator.CreatorStatus = models.CreatorApproved

	repo.On("GetAppUser", mock.Anything, testUID).Return(creator, nil).Once()
	repo.On("UpdateSubscriptionProjection", mock.Anything, mock.MatchedBy(func(u models.AppUser) bool {
		return u.Role == models.RoleCreator && u.SubscriptionStatus == models.SubscriptionActive
	})).Return(nil).Once()
	repo.On("AppendSubscriptionRecord", mock.Anything, mock.Anything).Return("rec-1", nil).Once()

	_, err := svc.Create(context.Background(), testUID, models.PlanYearly, time.Now())
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestCreateUnknownUser(t *testing.T) {
	repo := new(RepoMock)
	svc := newTestService(repo, new(ProviderMock), nil, nil)

	repo.On("GetAppUser", mock.Anything, testUID).
		Return(nil, repository.ErrAppUserNotFound).Once()

	_, err := svc.Create(context.Background(), testUID, models.PlanMonthly, time.Now())
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestCreateLedgerWriteFailed(t *testing.T) {
	repo := new(RepoMock)
	svc := newTestService(repo, new(ProviderMock), nil, nil)

	repo.On("GetAppUser", mock.Anything, testUID).
		Return(appUser(models.RoleUser, models.SubscriptionInactive), nil).Once()
	repo.On("UpdateSubscriptionProjection", mock.Anything, mock.Anything).Return(nil).Once()
	repo.On("AppendSubscriptionRecord", mock.Anything, mock.Anything).
		Return("", errors.New("insert failed")).Once()

	_, err := svc.Create(context.Background(), testUID, models.PlanMonthly, time.Now())
	assert.True(t, apperr.IsKind(err, apperr.KindLedgerWriteFailed))
	// Проекция обновлена до сбоя журнала: доступ у пользователя остаётся.
	repo.AssertExpectations(t)
}

func TestCreateProjectionFailureSkipsLedger(t *testing.T) {
	repo := new(RepoMock)
	svc := newTestService(repo, new(ProviderMock), nil, nil)

	repo.On("GetAppUser", mock.Anything, testUID).
		Return(appUser(models.RoleUser, models.SubscriptionInactive), nil).Once()
	repo.On("UpdateSubscriptionProjection", mock.Anything, mock.Anything).
		Return(errors.New("update failed")).Once()

	_, err := svc.Create(context.Background(), testUID, models.PlanMonthly, time.Now())
	assert.True(t, apperr.IsKind(err, apperr.KindInternal))
	repo.AssertNotCalled(t, "AppendSubscriptionRecord", mock.Anything, mock.Anything)
}

func TestCreatePublishFailureIsNotFatal(t *testing.T) {
	repo := new(RepoMock)
	events := &PublisherFake{err: errors.New("broker down")}
	svc := newTestService(repo, new(ProviderMock), events, nil)

	repo.On("GetAppUser", mock.Anything, testUID).
		Return(appUser(models.RoleUser, models.SubscriptionInactive), nil).Once()
	repo.On("UpdateSubscriptionProjection", mock.Anything, mock.Anything).Return(nil).Once()
	repo.On("AppendSubscriptionRecord", mock.Anything, mock.Anything).Return("rec-1", nil).Once()

	_, err := svc.Create(context.Background(), testUID, models.PlanMonthly, time.Now())
	assert.NoError(t, err)
}

func TestCancel(t *testing.T) {
	repo := new(RepoMock)
	events := &PublisherFake{}
	sessions := &SessionFake{}
	svc := newTestService(repo, new(ProviderMock), events, sessions)

	plan := models.PlanMonthly
	active := appUser(models.RoleSubscriber, models.SubscriptionActive)
	active.SubscriptionPlan = &plan

	repo.On("GetAppUser", mock.Anything, testUID).Return(active, nil).Once()
	repo.On("UpdateSubscriptionProjection", mock.Anything, mock.MatchedBy(func(u models.AppUser) bool {
		return u.Role == models.RoleUser && u.SubscriptionStatus == models.SubscriptionInactive
	})).Return(nil).Once()
	repo.On("AppendSubscriptionRecord", mock.Anything, mock.MatchedBy(func(rec models.SubscriptionRecord) bool {
		return rec.Status == models.RecordCancelled
	})).Return("rec-2", nil).Once()

	require.NoError(t, svc.Cancel(context.Background(), testUID))
	require.Len(t, events.published, 1)
	assert.Equal(t, "subscription.cancelled", events.published[0].Event)
	assert.Contains(t, sessions.cleared, testUID)
	repo.AssertExpectations(t)
}

func webhookNotification(event, transactionID string) *paymentprovider.WebhookNotification {
	n := &paymentprovider.WebhookNotification{
		Type:  "notification",
		Event: event,
	}
	n.Object.ID = transactionID
	n.Object.Status = "succeeded"
	n.Object.Metadata.AccountUID = testUID
	n.Object.Metadata.PlanType = models.PlanMonthly
	return n
}

func TestProcessPaymentEvent(t *testing.T) {
	repo := new(RepoMock)
	svc := newTestService(repo, new(ProviderMock), nil, nil)

	repo.On("InsertPaymentEvent", mock.Anything, mock.MatchedBy(func(e models.PaymentEvent) bool {
		return e.TransactionID == "txn-1" && e.AccountUID == testUID
	})).Return(true, nil).Once()
	repo.On("GetAppUser", mock.Anything, testUID).
		Return(appUser(models.RoleUser, models.SubscriptionInactive), nil).Once()
	repo.On("UpdateSubscriptionProjection", mock.Anything, mock.Anything).Return(nil).Once()
	repo.On("AppendSubscriptionRecord", mock.Anything, mock.Anything).Return("rec-1", nil).Once()

	err := svc.ProcessPaymentEvent(context.Background(),
		webhookNotification(paymentprovider.EventPaymentSucceeded, "txn-1"))
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestProcessPaymentEventRetryAfterFailedActivation(t *testing.T) {
	repo := new(RepoMock)
	svc := newTestService(repo, new(ProviderMock), nil, nil)

	// Первая доставка: событие зафиксировано, но активация сорвалась.
	// Фиксация снимается, чтобы повтор провайдера не был отброшен как дубликат.
	repo.On("InsertPaymentEvent", mock.Anything, mock.Anything).Return(true, nil).Once()
	repo.On("GetAppUser", mock.Anything, testUID).
		Return(appUser(models.RoleUser, models.SubscriptionInactive), nil).Once()
	repo.On("UpdateSubscriptionProjection", mock.Anything, mock.Anything).
		Return(errors.New("connection reset")).Once()
	repo.On("DeletePaymentEvent", mock.Anything, "txn-1").Return(nil).Once()

	err := svc.ProcessPaymentEvent(context.Background(),
		webhookNotification(paymentprovider.EventPaymentSucceeded, "txn-1"))
	assert.True(t, apperr.IsKind(err, apperr.KindInternal))

	// Повторная доставка той же транзакции доводит активацию до конца.
	repo.On("InsertPaymentEvent", mock.Anything, mock.Anything).Return(true, nil).Once()
	repo.On("GetAppUser", mock.Anything, testUID).
		Return(appUser(models.RoleUser, models.SubscriptionInactive), nil).Once()
	repo.On("UpdateSubscriptionProjection", mock.Anything, mock.Anything).Return(nil).Once()
	repo.On("AppendSubscriptionRecord", mock.Anything, mock.Anything).Return("rec-1", nil).Once()

	err = svc.ProcessPaymentEvent(context.Background(),
		webhookNotification(paymentprovider.EventPaymentSucceeded, "txn-1"))
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestProcessPaymentEventDuplicate(t *testing.T) {
	repo := new(RepoMock)
	svc := newTestService(repo, new(ProviderMock), nil, nil)

	// Транзакция уже обработана: вторая активация не выполняется.
	repo.On("InsertPaymentEvent", mock.Anything, mock.Anything).Return(false, nil).Once()

	err := svc.ProcessPaymentEvent(context.Background(),
		webhookNotification(paymentprovider.EventPaymentSucceeded, "txn-1"))
	require.NoError(t, err)
	repo.AssertNotCalled(t, "UpdateSubscriptionProjection", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "AppendSubscriptionRecord", mock.Anything, mock.Anything)
}

func TestProcessPaymentEventCanceled(t *testing.T) {
	repo := new(RepoMock)
	svc := newTestService(repo, new(ProviderMock), nil, nil)

	// Незавершённый платёж фиксируется, но подписку не активирует.
	repo.On("InsertPaymentEvent", mock.Anything, mock.Anything).Return(true, nil).Once()

	err := svc.ProcessPaymentEvent(context.Background(),
		webhookNotification(paymentprovider.EventPaymentCanceled, "txn-2"))
	require.NoError(t, err)
	repo.AssertNotCalled(t, "UpdateSubscriptionProjection", mock.Anything, mock.Anything)
}

func TestProcessPaymentEventBadMetadata(t *testing.T) {
	repo := new(RepoMock)
	svc := newTestService(repo, new(ProviderMock), nil, nil)

	n := webhookNotification(paymentprovider.EventPaymentSucceeded, "txn-3")
	n.Object.Metadata.AccountUID = "not-a-uuid"
	err := svc.ProcessPaymentEvent(context.Background(), n)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidAccountID))

	n = webhookNotification(paymentprovider.EventPaymentSucceeded, "txn-4")
	n.Object.Metadata.PlanType = "weekly"
	err = svc.ProcessPaymentEvent(context.Background(), n)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	repo.AssertNotCalled(t, "InsertPaymentEvent", mock.Anything, mock.Anything)
}

func TestHistory(t *testing.T) {
	repo := new(RepoMock)
	svc := newTestService(repo, new(ProviderMock), nil, nil)

	repo.On("ListSubscriptionRecords", mock.Anything, testUID).
		Return([]*models.SubscriptionRecord{
			{ID: "rec-2", Status: models.RecordCancelled},
			{ID: "rec-1", Status: models.RecordActive},
		}, nil).Once()

	list, err := svc.History(context.Background(), testUID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "rec-2", list[0].ID)
}

func TestHistoryInvalidAccountID(t *testing.T) {
	svc := newTestService(new(RepoMock), new(ProviderMock), nil, nil)

	_, err := svc.History(context.Background(), "not-a-uuid")
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidAccountID))
}
