// Package history реализует HTTP-обработчик чтения журнала подписок пользователя.
package history

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/cinexnema-cyber/projeto-xnema/internal/apperr"
	"github.com/cinexnema-cyber/projeto-xnema/internal/http/middlewarectx"
	"github.com/cinexnema-cyber/projeto-xnema/internal/http/response"
	"github.com/cinexnema-cyber/projeto-xnema/internal/lib/sl"
	"github.com/cinexnema-cyber/projeto-xnema/internal/models"
)

// Service описывает интерфейс бизнес-логики журнала подписок.
type Service interface {
	History(ctx context.Context, accountUID string) ([]*models.SubscriptionRecord, error)
}

// Handler обрабатывает HTTP-запросы журнала подписок.
type Handler struct {
	log           *slog.Logger
	subscriptions Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, subscriptions Service) *Handler {
	return &Handler{log: log, subscriptions: subscriptions}
}

// ServeHTTP godoc
// @Summary Журнал подписок
// @Description Возвращает журнал подписок пользователя, новые записи первыми.
// @Tags Subscription
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response "Журнал подписок"
// @Failure 401 {object} response.ErrorResponse "Пользователь не аутентифицирован"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /subscriptions/history [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.history"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user identification missing")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("user identification missing"))
		return
	}

	records, err := h.subscriptions.History(r.Context(), userUID)
	if err != nil {
		log.Error("history lookup failed", sl.Err(err))
		w.WriteHeader(apperr.From(err).HTTPStatus())
		render.JSON(w, r, response.AppError(err))
		return
	}

	render.JSON(w, r, response.OKWithData(records))
}
