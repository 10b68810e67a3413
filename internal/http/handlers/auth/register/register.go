// Package register реализует HTTP-обработчик регистрации пользователей.
//
// В нём определяется структура Request для входных данных, выполняется
// декодирование JSON, проверка и валидация полей, а также делегирование
// операции регистрации сервису аутентификации. Частичный сбой регистрации
// возвращается с кодом PARTIAL_FAILURE и UID учётной записи: повтор
// запроса с теми же данными завершает регистрацию.
package register

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
	"github.com/cinexnema-cyber/projeto-xnema/internal/models"
)

// Request — структура входных данных для регистрации.
// role по умолчанию user; регистрация с ролью creator создаёт заявку
// создателя контента, ожидающую одобрения администратором.
type Request struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	Username    string `json:"username" validate:"required,min=3,max=50"`
	DisplayName string `json:"display_name" validate:"required,min=1,max=100"`
	Bio         string `json:"bio" validate:"max=500"`
	Role        string `json:"role" validate:"omitempty,oneof=user creator"`
}

// Service описывает интерфейс бизнес-логики регистрации.
type Service interface {
	Register(ctx context.Context, email, password, username, displayName, bio, role string) (*models.SessionUser, error)
}

// Handler обрабатывает HTTP-запросы регистрации.
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
// @Summary Регистрация пользователя
// @Description Создаёт учётную запись и прикладную запись пользователя. Роль creator ожидает одобрения администратором.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body Request true "Данные нового пользователя"
// @Success 201 {object} response.Response "Пользователь зарегистрирован"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 409 {object} response.ErrorResponse "Email уже занят"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /auth/register [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.register"

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

	user, err := h.auth.Register(r.Context(), req.Email, req.Password, req.Username, req.DisplayName, req.Bio, req.Role)
	if err != nil {
		log.Error("registration failed", sl.Err(err))
		appErr := apperr.From(err)
		w.WriteHeader(appErr.HTTPStatus())
		resp := response.AppError(err)
		if appErr.Kind == apperr.KindPartialFailure {
			resp.Data = map[string]string{"account_uid": appErr.AccountUID}
		}
		render.JSON(w, r, resp)
		return
	}

	log.Info("user registered", slog.String("account_uid", user.UID))
	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, response.OKWithData(user))
}
