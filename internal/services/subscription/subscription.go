// Package subscription реализует сервис подписок: оформление и отмену,
// обработку событий платёжного провайдера и журнал подписок.
//
// Состояние подписки живёт в двух местах: проекция в записи пользователя
// (быстрые проверки доступа) и append-only журнал (история). Порядок записи
// фиксирован — сначала проекция, затем журнал: пользователь никогда не
// остаётся без оплаченного доступа. Сбой журнала после обновлённой
// проекции возвращается как LEDGER_WRITE_FAILED.
package subscription

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cinexnema-cyber/projeto-xnema/internal/apperr"
	"github.com/cinexnema-cyber/projeto-xnema/internal/lib/month"
	"github.com/cinexnema-cyber/projeto-xnema/internal/lib/sl"
	"github.com/cinexnema-cyber/projeto-xnema/internal/metrics"
	"github.com/cinexnema-cyber/projeto-xnema/internal/models"
	"github.com/cinexnema-cyber/projeto-xnema/internal/paymentprovider"
	"github.com/cinexnema-cyber/projeto-xnema/internal/storage/repository"
)

// Repository описывает прикладное хранилище подписок.
type Repository interface {
	GetAppUser(ctx context.Context, accountUID string) (*models.AppUser, error)
	UpdateSubscriptionProjection(ctx context.Context, user models.AppUser) error
	AppendSubscriptionRecord(ctx context.Context, rec models.SubscriptionRecord) (string, error)
	ListSubscriptionRecords(ctx context.Context, accountUID string) ([]*models.SubscriptionRecord, error)
	InsertPaymentEvent(ctx context.Context, event models.PaymentEvent) (bool, error)
	DeletePaymentEvent(ctx context.Context, transactionID string) error
}

// CheckoutProvider создаёт платёж у платёжного провайдера.
type CheckoutProvider interface {
	CreateCheckout(ctx context.Context, accountUID, planType string) (*paymentprovider.Checkout, error)
}

// EventPublisher публикует события жизненного цикла подписки.
type EventPublisher interface {
	Publish(routingKey string, message json.RawMessage) error
}

// AccountReader возвращает учётную запись для обогащения событий
// email и отображаемым именем получателя.
type AccountReader interface {
	GetAccount(ctx context.Context, uid string) (*models.Account, error)
}

// SessionInvalidator сбрасывает кэшированную сессию пользователя,
// чтобы следующая проверка токена увидела свежую роль и подписку.
type SessionInvalidator interface {
	Clear(ctx context.Context, uid string) error
}

// Service реализует операции с подписками.
type Service struct {
	log      *slog.Logger
	repo     Repository
	provider CheckoutProvider
	accounts AccountReader
	events   EventPublisher
	sessions SessionInvalidator

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New создаёт сервис подписок. accounts, events и sessions могут быть nil:
// обогащение событий, уведомления и сброс сессий тогда не выполняются.
func New(log *slog.Logger, repo Repository, provider CheckoutProvider,
	accounts AccountReader, events EventPublisher, sessions SessionInvalidator) *Service {
	return &Service{
		log:      log,
		repo:     repo,
		provider: provider,
		accounts: accounts,
		events:   events,
		sessions: sessions,
		locks:    make(map[string]*sync.Mutex),
	}
}

// lockAccount сериализует операции над одной учётной записью:
// параллельные webhook и отмена не гоняются за проекцию.
func (s *Service) lockAccount(accountUID string) func() {
	s.mu.Lock()
	l, ok := s.locks[accountUID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[accountUID] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func validPlan(planType string) bool {
	return planType == models.PlanMonthly || planType == models.PlanYearly
}

// Checkout создаёт платёж за план подписки и возвращает ссылку
// на страницу оплаты провайдера. Подписка активируется позже,
// когда провайдер подтвердит оплату через webhook.
func (s *Service) Checkout(ctx context.Context, accountUID, planType string) (*paymentprovider.Checkout, error) {
	if _, err := uuid.Parse(accountUID); err != nil {
		return nil, apperr.New(apperr.KindInvalidAccountID, "account id must be a valid uuid")
	}
	if !validPlan(planType) {
		return nil, apperr.New(apperr.KindValidation, "plan type must be monthly or yearly")
	}

	checkout, err := s.provider.CreateCheckout(ctx, accountUID, planType)
	if err != nil {
		s.log.Error("checkout creation failed",
			slog.String("account_uid", accountUID), sl.Err(err))
		return nil, apperr.Wrap(apperr.KindProviderUnavailable, "payment provider unavailable", err)
	}

	s.log.Info("checkout created",
		slog.String("account_uid", accountUID),
		slog.String("transaction_id", checkout.TransactionID))
	return checkout, nil
}

// Create активирует подписку пользователя: обновляет проекцию,
// добавляет запись в журнал и публикует событие subscription.created.
//
// Роль становится subscriber, кроме admin и approved creator —
// их роль сохраняется. Срок действия считается от startDate
// с выравниванием конца месяца.
func (s *Service) Create(ctx context.Context, accountUID, planType string, startDate time.Time) (*models.SubscriptionRecord, error) {
	if _, err := uuid.Parse(accountUID); err != nil {
		return nil, apperr.New(apperr.KindInvalidAccountID, "account id must be a valid uuid")
	}
	if !validPlan(planType) {
		return nil, apperr.New(apperr.KindValidation, "plan type must be monthly or yearly")
	}

	unlock := s.lockAccount(accountUID)
	defer unlock()

	timer := time.Now()

	app, err := s.repo.GetAppUser(ctx, accountUID)
	if err != nil {
		if errors.Is(err, repository.ErrAppUserNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "user not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "app user lookup failed", err)
	}

	var endDate time.Time
	switch planType {
	case models.PlanMonthly:
		endDate = month.AddMonths(startDate, 1)
	case models.PlanYearly:
		endDate = month.AddYears(startDate, 1)
	}

	app.SubscriptionStatus = models.SubscriptionActive
	app.SubscriptionStart = &startDate
	app.SubscriptionEnd = &endDate
	app.SubscriptionPlan = &planType
	if app.Role == models.RoleUser || app.Role == models.RoleSubscriber {
		app.Role = models.RoleSubscriber
	}
	if err = s.repo.UpdateSubscriptionProjection(ctx, *app); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "subscription projection update failed", err)
	}

	rec := models.SubscriptionRecord{
		AccountUID: accountUID,
		Status:     models.RecordActive,
		PlanType:   planType,
		StartDate:  startDate,
		EndDate:    &endDate,
	}
	rec.ID, err = s.repo.AppendSubscriptionRecord(ctx, rec)
	if err != nil {
		// Проекция уже обновлена: доступ у пользователя есть,
		// журнал требует ручной сверки.
		s.log.Error("ledger write failed after projection update",
			slog.String("account_uid", accountUID), sl.Err(err))
		return nil, apperr.Wrap(apperr.KindLedgerWriteFailed, "subscription record write failed", err)
	}

	s.invalidateSession(ctx, accountUID)
	s.publishEvent(ctx, "subscription.created", accountUID, planType, &endDate)

	metrics.SubscriptionsCreated.Inc()
	metrics.SubscriptionCreateDuration.Observe(time.Since(timer).Seconds())
	s.log.Info("subscription created",
		slog.String("account_uid", accountUID),
		slog.String("plan_type", planType),
		slog.Time("end_date", endDate))
	return &rec, nil
}

// Cancel отменяет подписку пользователя: проекция переводится в inactive,
// в журнал добавляется запись cancelled, публикуется событие
// subscription.cancelled. Роль subscriber возвращается к user.
func (s *Service) Cancel(ctx context.Context, accountUID string) error {
	if _, err := uuid.Parse(accountUID); err != nil {
		return apperr.New(apperr.KindInvalidAccountID, "account id must be a valid uuid")
	}

	unlock := s.lockAccount(accountUID)
	defer unlock()

	app, err := s.repo.GetAppUser(ctx, accountUID)
	if err != nil {
		if errors.Is(err, repository.ErrAppUserNotFound) {
			return apperr.New(apperr.KindNotFound, "user not found")
		}
		return apperr.Wrap(apperr.KindInternal, "app user lookup failed", err)
	}

	now := time.Now()
	planType := models.PlanMonthly
	if app.SubscriptionPlan != nil {
		planType = *app.SubscriptionPlan
	}

	app.SubscriptionStatus = models.SubscriptionInactive
	app.SubscriptionEnd = &now
	if app.Role == models.RoleSubscriber {
		app.Role = models.RoleUser
	}
	if err = s.repo.UpdateSubscriptionProjection(ctx, *app); err != nil {
		return apperr.Wrap(apperr.KindInternal, "subscription projection update failed", err)
	}

	rec := models.SubscriptionRecord{
		AccountUID: accountUID,
		Status:     models.RecordCancelled,
		PlanType:   planType,
		StartDate:  now,
		EndDate:    &now,
	}
	if _, err = s.repo.AppendSubscriptionRecord(ctx, rec); err != nil {
		s.log.Error("ledger write failed after projection update",
			slog.String("account_uid", accountUID), sl.Err(err))
		return apperr.Wrap(apperr.KindLedgerWriteFailed, "subscription record write failed", err)
	}

	s.invalidateSession(ctx, accountUID)
	s.publishEvent(ctx, "subscription.cancelled", accountUID, planType, nil)

	s.log.Info("subscription cancelled", slog.String("account_uid", accountUID))
	return nil
}

// ProcessPaymentEvent обрабатывает уведомление платёжного провайдера.
//
// Событие фиксируется по идентификатору транзакции: повторная доставка
// того же webhook не активирует вторую подписку. Активация выполняется
// только для payment.succeeded. Если активация после фиксации не удалась,
// фиксация снимается: иначе повторная доставка была бы отброшена как
// дубликат и оплаченная подписка осталась бы неактивной.
func (s *Service) ProcessPaymentEvent(ctx context.Context, n *paymentprovider.WebhookNotification) error {
	metrics.WebhookEvents.WithLabelValues(n.Event).Inc()

	accountUID := n.Object.Metadata.AccountUID
	planType := n.Object.Metadata.PlanType
	if _, err := uuid.Parse(accountUID); err != nil {
		return apperr.New(apperr.KindInvalidAccountID, "webhook metadata has no valid account id")
	}
	if !validPlan(planType) {
		return apperr.New(apperr.KindValidation, "webhook metadata has no valid plan type")
	}

	inserted, err := s.repo.InsertPaymentEvent(ctx, models.PaymentEvent{
		TransactionID: n.Object.ID,
		AccountUID:    accountUID,
		PlanType:      planType,
		Status:        n.Event,
	})
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "payment event write failed", err)
	}
	if !inserted {
		s.log.Info("duplicate payment event ignored",
			slog.String("transaction_id", n.Object.ID))
		return nil
	}

	if n.Event != paymentprovider.EventPaymentSucceeded {
		s.log.Info("payment not completed, subscription unchanged",
			slog.String("transaction_id", n.Object.ID),
			slog.String("event", n.Event))
		return nil
	}

	if _, err = s.Create(ctx, accountUID, planType, time.Now()); err != nil {
		if delErr := s.repo.DeletePaymentEvent(ctx, n.Object.ID); delErr != nil {
			s.log.Error("payment event rollback failed, manual replay required",
				slog.String("transaction_id", n.Object.ID), sl.Err(delErr))
		}
		return err
	}
	return nil
}

// History возвращает журнал подписок пользователя, новые записи первыми.
func (s *Service) History(ctx context.Context, accountUID string) ([]*models.SubscriptionRecord, error) {
	if _, err := uuid.Parse(accountUID); err != nil {
		return nil, apperr.New(apperr.KindInvalidAccountID, "account id must be a valid uuid")
	}

	list, err := s.repo.ListSubscriptionRecords(ctx, accountUID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "subscription history lookup failed", err)
	}
	return list, nil
}

func (s *Service) invalidateSession(ctx context.Context, accountUID string) {
	if s.sessions == nil {
		return
	}
	if err := s.sessions.Clear(ctx, accountUID); err != nil {
		s.log.Warn("session invalidation failed",
			slog.String("account_uid", accountUID), sl.Err(err))
	}
}

// publishEvent отправляет событие жизненного цикла подписки в очередь
// уведомлений. Сбой публикации не отменяет операцию.
func (s *Service) publishEvent(ctx context.Context, routingKey, accountUID, planType string, endDate *time.Time) {
	if s.events == nil {
		return
	}
	event := models.SubscriptionEvent{
		Event:      routingKey,
		AccountUID: accountUID,
		PlanType:   planType,
		EndDate:    endDate,
	}
	if s.accounts != nil {
		if acc, err := s.accounts.GetAccount(ctx, accountUID); err == nil {
			event.Email = acc.Email
			event.DisplayName = acc.DisplayName
		} else {
			s.log.Warn("event enrichment failed",
				slog.String("account_uid", accountUID), sl.Err(err))
		}
	}
	body, err := json.Marshal(event)
	if err != nil {
		s.log.Error("event marshal failed", sl.Err(err))
		return
	}
	if err = s.events.Publish(routingKey, body); err != nil {
		s.log.Warn("event publish failed",
			slog.String("routing_key", routingKey), sl.Err(err))
	}
}
