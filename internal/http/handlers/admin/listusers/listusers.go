// Package listusers реализует HTTP-обработчик списка пользователей
// для административного раздела.
package listusers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/cinexnema-cyber/projeto-xnema/internal/apperr"
	"github.com/cinexnema-cyber/projeto-xnema/internal/http/response"
	"github.com/cinexnema-cyber/projeto-xnema/internal/lib/sl"
	"github.com/cinexnema-cyber/projeto-xnema/internal/models"
)

// Service описывает интерфейс бизнес-логики списка пользователей.
type Service interface {
	ListUsers(ctx context.Context, limit, offset int) ([]*models.AppUser, error)
}

// Handler обрабатывает HTTP-запросы списка пользователей.
type Handler struct {
	log  *slog.Logger
	auth Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, auth Service) *Handler {
	return &Handler{log: log, auth: auth}
}

// ServeHTTP godoc
// @Summary Список пользователей
// @Description Возвращает прикладные записи пользователей с пагинацией. Доступно только администратору.
// @Tags Admin
// @Produce  json
// @Security BearerAuth
// @Param limit query int false "Размер страницы (по умолчанию 100)"
// @Param offset query int false "Смещение"
// @Success 200 {object} response.Response "Список пользователей"
// @Failure 401 {object} response.ErrorResponse "Пользователь не аутентифицирован"
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /admin/users [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.listusers"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	users, err := h.auth.ListUsers(r.Context(), limit, offset)
	if err != nil {
		log.Error("user listing failed", sl.Err(err))
		w.WriteHeader(apperr.From(err).HTTPStatus())
		render.JSON(w, r, response.AppError(err))
		return
	}

	render.JSON(w, r, response.OKWithData(users))
}
