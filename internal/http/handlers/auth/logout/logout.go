// Package logout реализует HTTP-обработчик завершения сессии пользователя.
package logout

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/cinexnema-cyber/projeto-xnema/internal/http/middlewarectx"
	"github.com/cinexnema-cyber/projeto-xnema/internal/http/response"
	"github.com/cinexnema-cyber/projeto-xnema/internal/lib/sl"
)

// Service описывает интерфейс бизнес-логики выхода.
type Service interface {
	Logout(ctx context.Context, accountUID string) error
}

// Handler обрабатывает HTTP-запросы выхода.
type Handler struct {
	log  *slog.Logger
	auth Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, auth Service) *Handler {
	return &Handler{log: log, auth: auth}
}

// ServeHTTP godoc
// @Summary Выход пользователя
// @Description Завершает сессию пользователя. Локальная сессия очищается всегда.
// @Tags Auth
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response "Сессия завершена"
// @Failure 401 {object} response.ErrorResponse "Пользователь не аутентифицирован"
// @Router /auth/logout [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.logout"

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

	if err := h.auth.Logout(r.Context(), userUID); err != nil {
		log.Warn("logout finished with errors", sl.Err(err))
	}

	log.Info("logout success", slog.String("account_uid", userUID))
	render.JSON(w, r, response.OK())
}
