// Package premium реализует HTTP-обработчик раздела платного контента.
//
// Доступ закрыт AccessMiddleware с требованием активной подписки:
// сюда попадают только подписчики, создатели с подпиской и администратор.
package premium

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/cinexnema-cyber/projeto-xnema/internal/http/middlewarectx"
	"github.com/cinexnema-cyber/projeto-xnema/internal/http/response"
)

// Handler обрабатывает HTTP-запросы раздела платного контента.
type Handler struct {
	log *slog.Logger
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger) *Handler {
	return &Handler{log: log}
}

// ServeHTTP godoc
// @Summary Раздел платного контента
// @Description Подтверждает доступ пользователя к платному контенту.
// @Tags Content
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response "Доступ разрешён"
// @Failure 401 {object} response.ErrorResponse "Пользователь не аутентифицирован"
// @Failure 403 {object} response.ErrorResponse "Требуется активная подписка"
// @Router /content/premium [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.content.premium"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	user := middlewarectx.SessionFromContext(r.Context())
	if user == nil {
		log.Error("user identification missing")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("user identification missing"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"access": "granted",
		"role":   user.Role,
	}))
}
