// Package approvecreator реализует HTTP-обработчик одобрения заявки
// создателя контента администратором.
package approvecreator

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/cinexnema-cyber/projeto-xnema/internal/apperr"
	"github.com/cinexnema-cyber/projeto-xnema/internal/http/response"
	"github.com/cinexnema-cyber/projeto-xnema/internal/lib/sl"
)

// Request — структура входных данных для одобрения заявки.
type Request struct {
	AccountUID string `json:"account_uid" validate:"required,uuid"`
}

// Service описывает интерфейс бизнес-логики одобрения создателя.
type Service interface {
	ApproveCreator(ctx context.Context, accountUID string) error
}

// Handler обрабатывает HTTP-запросы одобрения создателей.
type Handler struct {
	log      *slog.Logger
	auth     Service
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, auth Service) *Handler {
	return &Handler{
		log:      log,
		auth:     auth,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Одобрение создателя контента
// @Description Переводит заявку создателя в статус approved. Доступно только администратору.
// @Tags Admin
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body Request true "UID учётной записи создателя"
// @Success 200 {object} response.Response "Заявка одобрена"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или UID"
// @Failure 401 {object} response.ErrorResponse "Пользователь не аутентифицирован"
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /admin/creators/approve [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.approvecreator"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	if err := h.auth.ApproveCreator(r.Context(), req.AccountUID); err != nil {
		log.Error("creator approval failed", sl.Err(err))
		w.WriteHeader(apperr.From(err).HTTPStatus())
		render.JSON(w, r, response.AppError(err))
		return
	}

	log.Info("creator approved", slog.String("account_uid", req.AccountUID))
	render.JSON(w, r, response.OK())
}
