// Package auth реализует сервис аутентификации: регистрацию, вход с проверкой
// роли, выход, сброс пароля и проверку токена сессии.
//
// Сервис объединяет хранилище идентификации (identity.Store) и прикладное
// хранилище пользователей: регистрация — запись в обе системы без общей
// транзакции, поэтому частичный сбой возвращается как PARTIAL_FAILURE
// с UID созданной учётной записи, а повтор завершает вторую запись
// идемпотентно.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cinexnema-cyber/projeto-xnema/internal/apperr"
	"github.com/cinexnema-cyber/projeto-xnema/internal/identity"
	jwtlib "github.com/cinexnema-cyber/projeto-xnema/internal/lib/jwt"
	"github.com/cinexnema-cyber/projeto-xnema/internal/lib/password"
	"github.com/cinexnema-cyber/projeto-xnema/internal/lib/sl"
	"github.com/cinexnema-cyber/projeto-xnema/internal/metrics"
	"github.com/cinexnema-cyber/projeto-xnema/internal/models"
	"github.com/cinexnema-cyber/projeto-xnema/internal/storage/repository"
)

// AppUserRepository описывает прикладное хранилище пользователей.
type AppUserRepository interface {
	UpsertAppUser(ctx context.Context, user models.AppUser) error
	GetAppUser(ctx context.Context, accountUID string) (*models.AppUser, error)
	SetCreatorStatus(ctx context.Context, accountUID, status string) error
	ListAppUsers(ctx context.Context, limit, offset int) ([]*models.AppUser, error)
}

// SessionStore описывает хранилище сессий.
type SessionStore interface {
	NextSeq() uint64
	Set(ctx context.Context, seq uint64, user *models.SessionUser, token string) (bool, error)
	Get(ctx context.Context, uid string) (*models.SessionUser, error)
	Clear(ctx context.Context, uid string) error
}

// Service реализует операции аутентификации.
type Service struct {
	log        *slog.Logger
	ids        identity.Store
	users      AppUserRepository
	sessions   SessionStore
	jwtMaker   jwtlib.Maker
	adminEmail string
	timeout    time.Duration
}

// New создаёт сервис аутентификации. adminEmail — единственный email,
// которому разрешён вход с ролью администратора. timeout ограничивает
// обращения к внешним системам.
func New(log *slog.Logger, ids identity.Store, users AppUserRepository,
	sessions SessionStore, jwtMaker jwtlib.Maker, adminEmail string,
	timeout time.Duration) *Service {
	return &Service{
		log:        log,
		ids:        ids,
		users:      users,
		sessions:   sessions,
		jwtMaker:   jwtMaker,
		adminEmail: strings.ToLower(adminEmail),
		timeout:    timeout,
	}
}

// Register создаёт учётную запись и прикладную запись пользователя.
//
// role выбирается при регистрации: user (по умолчанию) или creator.
// Создатель контента начинает со статусом заявки pending и не может
// войти с ролью creator до одобрения администратором.
//
// Если учётная запись создана, а прикладная запись не записалась,
// возвращается ошибка PARTIAL_FAILURE с UID учётной записи. Повторный
// вызов с тем же email и паролем обнаруживает существующую учётную
// запись и завершает вторую запись идемпотентно.
func (s *Service) Register(ctx context.Context, email, pass, username, displayName, bio, role string) (*models.SessionUser, error) {
	if role == "" {
		role = models.RoleUser
	}
	if role != models.RoleUser && role != models.RoleCreator {
		return nil, apperr.New(apperr.KindValidation, "registration role must be user or creator")
	}
	if err := password.ValidatePolicy(pass); err != nil {
		return nil, apperr.New(apperr.KindValidation,
			"password must be at least 8 characters and contain a letter and a digit")
	}
	email = strings.ToLower(strings.TrimSpace(email))

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	acc, err := s.ids.Register(ctx, email, pass, username, displayName, bio)
	if err != nil {
		if errors.Is(err, identity.ErrDuplicateEmail) {
			return s.resumeRegistration(ctx, email, pass, role)
		}
		s.log.Error("account registration failed", sl.Err(err))
		return nil, s.identityErr(err)
	}

	app := registrationAppUser(acc.UID, role)
	if err = s.users.UpsertAppUser(ctx, app); err != nil {
		s.log.Error("app user write failed after account creation",
			slog.String("account_uid", acc.UID), sl.Err(err))
		return nil, apperr.PartialFailure(acc.UID, err)
	}

	user := models.NewSessionUser(acc, &app)
	if _, err = s.sessions.Set(ctx, s.sessions.NextSeq(), user, ""); err != nil {
		s.log.Warn("session write failed", sl.Err(err))
	}

	s.log.Info("user registered", slog.String("account_uid", acc.UID))
	return user, nil
}

// resumeRegistration обрабатывает повторную регистрацию на занятый email.
// Пароль проверяется через Authenticate: завершить частичную регистрацию
// может только владелец учётной записи. Если прикладная запись уже есть,
// email действительно занят.
func (s *Service) resumeRegistration(ctx context.Context, email, pass, role string) (*models.SessionUser, error) {
	acc, err := s.ids.Authenticate(ctx, email, pass)
	if err != nil {
		return nil, apperr.New(apperr.KindDuplicateEmail, "email already registered")
	}

	if _, err = s.users.GetAppUser(ctx, acc.UID); err == nil {
		return nil, apperr.New(apperr.KindDuplicateEmail, "email already registered")
	} else if !errors.Is(err, repository.ErrAppUserNotFound) {
		return nil, apperr.Wrap(apperr.KindInternal, "app user lookup failed", err)
	}

	app := registrationAppUser(acc.UID, role)
	if err = s.users.UpsertAppUser(ctx, app); err != nil {
		return nil, apperr.PartialFailure(acc.UID, err)
	}

	s.log.Info("partial registration completed", slog.String("account_uid", acc.UID))
	return models.NewSessionUser(acc, &app), nil
}

// Login проверяет учётные данные и выдаёт токен сессии.
//
// Неизвестный email и неверный пароль возвращают одну и ту же ошибку
// INVALID_CREDENTIALS. requestedRole, если задана, сверяется с фактической
// ролью пользователя. Вход с ролью администратора разрешён только
// email из конфигурации.
func (s *Service) Login(ctx context.Context, email, pass, requestedRole string) (*models.SessionUser, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	acc, err := s.ids.Authenticate(ctx, email, pass)
	if err != nil {
		metrics.LoginAttempts.WithLabelValues("failure").Inc()
		if errors.Is(err, identity.ErrInvalidCredentials) {
			return nil, "", apperr.InvalidCredentials()
		}
		s.log.Error("authentication failed", sl.Err(err))
		return nil, "", s.identityErr(err)
	}

	app, err := s.loadAppUser(ctx, acc)
	if err != nil {
		metrics.LoginAttempts.WithLabelValues("failure").Inc()
		return nil, "", err
	}

	if app.Role == models.RoleAdmin && acc.Email != s.adminEmail {
		metrics.LoginAttempts.WithLabelValues("failure").Inc()
		return nil, "", apperr.New(apperr.KindRoleForbidden, "admin access is not allowed for this account")
	}
	if requestedRole != "" && requestedRole != app.Role {
		metrics.LoginAttempts.WithLabelValues("failure").Inc()
		return nil, "", apperr.New(apperr.KindRoleMismatch, "account role does not match the requested role")
	}
	if app.Role == models.RoleCreator && app.CreatorStatus != models.CreatorApproved {
		metrics.LoginAttempts.WithLabelValues("failure").Inc()
		return nil, "", apperr.New(apperr.KindCreatorPending, "creator account is awaiting approval")
	}

	token, err := s.jwtMaker.GenerateToken(acc.UID, acc.Email, app.Role)
	if err != nil {
		metrics.LoginAttempts.WithLabelValues("failure").Inc()
		return nil, "", apperr.Wrap(apperr.KindInternal, "token generation failed", err)
	}

	user := models.NewSessionUser(acc, app)
	if _, err = s.sessions.Set(ctx, s.sessions.NextSeq(), user, token); err != nil {
		s.log.Warn("session write failed", sl.Err(err))
	}

	metrics.LoginAttempts.WithLabelValues("success").Inc()
	s.log.Info("user logged in",
		slog.String("account_uid", acc.UID), slog.String("role", app.Role))
	return user, token, nil
}

// loadAppUser возвращает прикладную запись пользователя, приводя её
// к согласованному виду: отсутствующая запись создаётся с ролью user
// (восстановление после частичной регистрации), истёкшая подписка
// переводится в inactive, а email администратора получает роль admin.
func (s *Service) loadAppUser(ctx context.Context, acc *models.Account) (*models.AppUser, error) {
	app, err := s.users.GetAppUser(ctx, acc.UID)
	if errors.Is(err, repository.ErrAppUserNotFound) {
		restored := defaultAppUser(acc.UID)
		if err = s.users.UpsertAppUser(ctx, restored); err != nil {
			return nil, apperr.PartialFailure(acc.UID, err)
		}
		app = &restored
	} else if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "app user lookup failed", err)
	}

	changed := false
	if app.SubscriptionStatus == models.SubscriptionActive &&
		app.SubscriptionEnd != nil && app.SubscriptionEnd.Before(time.Now()) {
		app.SubscriptionStatus = models.SubscriptionInactive
		if app.Role == models.RoleSubscriber {
			app.Role = models.RoleUser
		}
		changed = true
	}
	if acc.Email == s.adminEmail && app.Role != models.RoleAdmin {
		app.Role = models.RoleAdmin
		changed = true
	}
	if changed {
		if err = s.users.UpsertAppUser(ctx, *app); err != nil {
			s.log.Warn("app user reconcile failed",
				slog.String("account_uid", acc.UID), sl.Err(err))
		}
	}
	return app, nil
}

// Logout завершает сессию пользователя. Локальная сессия очищается
// безусловно; сбой аннулирования удалённой сессии не мешает выходу.
func (s *Service) Logout(ctx context.Context, accountUID string) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if err := s.ids.SignOut(ctx, accountUID); err != nil {
		s.log.Warn("remote sign-out failed",
			slog.String("account_uid", accountUID), sl.Err(err))
	}
	if err := s.sessions.Clear(ctx, accountUID); err != nil {
		s.log.Warn("session clear failed",
			slog.String("account_uid", accountUID), sl.Err(err))
	}

	s.log.Info("user logged out", slog.String("account_uid", accountUID))
	return nil
}

// RequestPasswordReset инициирует сброс пароля. Ответ одинаков независимо
// от того, существует ли учётная запись: перебор email невозможен.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if _, err := s.ids.FindByEmail(ctx, email); err != nil {
		if !errors.Is(err, identity.ErrNotFound) {
			s.log.Error("account lookup failed", sl.Err(err))
		}
		return nil
	}
	if err := s.ids.SendPasswordReset(ctx, email); err != nil {
		s.log.Error("password reset dispatch failed", sl.Err(err))
	}
	return nil
}

// ResetPassword заменяет пароль учётной записи и завершает все её сессии.
func (s *Service) ResetPassword(ctx context.Context, accountUID, newPassword string) error {
	if err := password.ValidatePolicy(newPassword); err != nil {
		return apperr.New(apperr.KindValidation,
			"password must be at least 8 characters and contain a letter and a digit")
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if err := s.ids.UpdatePassword(ctx, accountUID, newPassword); err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return apperr.New(apperr.KindNotFound, "account not found")
		}
		s.log.Error("password update failed", sl.Err(err))
		return s.identityErr(err)
	}

	if err := s.sessions.Clear(ctx, accountUID); err != nil {
		s.log.Warn("session clear failed",
			slog.String("account_uid", accountUID), sl.Err(err))
	}

	s.log.Info("password reset", slog.String("account_uid", accountUID))
	return nil
}

// ValidateToken проверяет токен сессии и возвращает пользователя.
// Сессия берётся из хранилища сессий, а при его промахе восстанавливается
// из хранилища идентификации и прикладной записи.
func (s *Service) ValidateToken(ctx context.Context, token string) (*models.SessionUser, error) {
	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return nil, apperr.New(apperr.KindInvalidCredentials, "invalid or expired token")
	}

	user, err := s.sessions.Get(ctx, claims.UserUID)
	if err != nil {
		s.log.Warn("session lookup failed", sl.Err(err))
	}
	if user != nil {
		return user, nil
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	acc, err := s.ids.GetAccount(ctx, claims.UserUID)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return nil, apperr.New(apperr.KindInvalidCredentials, "invalid or expired token")
		}
		return nil, s.identityErr(err)
	}
	app, err := s.users.GetAppUser(ctx, acc.UID)
	if err != nil {
		if errors.Is(err, repository.ErrAppUserNotFound) {
			return nil, apperr.New(apperr.KindInvalidCredentials, "invalid or expired token")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "app user lookup failed", err)
	}

	user = models.NewSessionUser(acc, app)
	if _, err = s.sessions.Set(ctx, s.sessions.NextSeq(), user, token); err != nil {
		s.log.Warn("session write failed", sl.Err(err))
	}
	return user, nil
}

// HasActiveSubscription сообщает, есть ли у пользователя активная подписка:
// статус active с незавершённым сроком либо статус trial. Некорректный UID
// и неизвестный пользователь дают false.
func (s *Service) HasActiveSubscription(ctx context.Context, accountUID string) (bool, error) {
	if _, err := uuid.Parse(accountUID); err != nil {
		return false, nil
	}

	app, err := s.users.GetAppUser(ctx, accountUID)
	if err != nil {
		if errors.Is(err, repository.ErrAppUserNotFound) {
			return false, nil
		}
		return false, apperr.Wrap(apperr.KindInternal, "app user lookup failed", err)
	}

	switch app.SubscriptionStatus {
	case models.SubscriptionTrial:
		return true, nil
	case models.SubscriptionActive:
		return app.SubscriptionEnd == nil || app.SubscriptionEnd.After(time.Now()), nil
	default:
		return false, nil
	}
}

// ListUsers возвращает прикладные записи пользователей с пагинацией.
func (s *Service) ListUsers(ctx context.Context, limit, offset int) ([]*models.AppUser, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	list, err := s.users.ListAppUsers(ctx, limit, offset)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "user listing failed", err)
	}
	return list, nil
}

// ApproveCreator одобряет заявку создателя контента. До одобрения вход
// с ролью creator отклоняется. Повторное одобрение идемпотентно. Сессия
// пользователя сбрасывается, чтобы новый статус вступил в силу сразу.
func (s *Service) ApproveCreator(ctx context.Context, accountUID string) error {
	if _, err := uuid.Parse(accountUID); err != nil {
		return apperr.New(apperr.KindInvalidAccountID, "account id must be a valid uuid")
	}

	app, err := s.users.GetAppUser(ctx, accountUID)
	if err != nil {
		if errors.Is(err, repository.ErrAppUserNotFound) {
			return apperr.New(apperr.KindNotFound, "user not found")
		}
		return apperr.Wrap(apperr.KindInternal, "app user lookup failed", err)
	}
	if app.Role != models.RoleCreator {
		return apperr.New(apperr.KindValidation, "account is not a creator")
	}
	if app.CreatorStatus == models.CreatorApproved {
		return nil
	}

	if err = s.users.SetCreatorStatus(ctx, accountUID, models.CreatorApproved); err != nil {
		return apperr.Wrap(apperr.KindInternal, "creator status update failed", err)
	}
	if err = s.sessions.Clear(ctx, accountUID); err != nil {
		s.log.Warn("session clear failed",
			slog.String("account_uid", accountUID), sl.Err(err))
	}

	s.log.Info("creator approved", slog.String("account_uid", accountUID))
	return nil
}

// BootstrapAdmin гарантирует существование учётной записи администратора
// из конфигурации. Вызывается при старте приложения.
func (s *Service) BootstrapAdmin(ctx context.Context, pass string) error {
	if s.adminEmail == "" || pass == "" {
		return nil
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	acc, err := s.ids.FindByEmail(ctx, s.adminEmail)
	if errors.Is(err, identity.ErrNotFound) {
		acc, err = s.ids.Register(ctx, s.adminEmail, pass, "admin", "Administrator", "")
	}
	if err != nil {
		return s.identityErr(err)
	}

	// Существующая запись не перезаписывается: повторный старт не должен
	// сбрасывать подписку администратора.
	app, err := s.users.GetAppUser(ctx, acc.UID)
	if errors.Is(err, repository.ErrAppUserNotFound) {
		restored := defaultAppUser(acc.UID)
		restored.Role = models.RoleAdmin
		app = &restored
	} else if err != nil {
		return apperr.Wrap(apperr.KindInternal, "admin app user lookup failed", err)
	} else if app.Role == models.RoleAdmin {
		s.log.Info("admin account ready", slog.String("account_uid", acc.UID))
		return nil
	}

	app.Role = models.RoleAdmin
	if err = s.users.UpsertAppUser(ctx, *app); err != nil {
		return apperr.Wrap(apperr.KindInternal, "admin app user write failed", err)
	}

	s.log.Info("admin account ready", slog.String("account_uid", acc.UID))
	return nil
}

// opCtx ограничивает операцию таймаутом сервиса. Нулевой таймаут
// оставляет контекст без изменений.
func (s *Service) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func defaultAppUser(accountUID string) models.AppUser {
	return models.AppUser{
		AccountUID:         accountUID,
		Role:               models.RoleUser,
		SubscriptionStatus: models.SubscriptionInactive,
		CreatorStatus:      models.CreatorNone,
		UpdatedAt:          time.Now(),
	}
}

// registrationAppUser собирает прикладную запись для выбранной при
// регистрации роли: creator получает статус заявки pending.
func registrationAppUser(accountUID, role string) models.AppUser {
	app := defaultAppUser(accountUID)
	if role == models.RoleCreator {
		app.Role = models.RoleCreator
		app.CreatorStatus = models.CreatorPending
	}
	return app
}

// identityErr переводит ошибку хранилища идентификации в ошибку сервиса.
// Таймаут внешней системы ретраибелен, прочие ошибки внутренние.
func (s *Service) identityErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.Wrap(apperr.KindProviderUnavailable, "identity provider timed out", err)
	}
	return apperr.Wrap(apperr.KindInternal, "identity provider error", err)
}
