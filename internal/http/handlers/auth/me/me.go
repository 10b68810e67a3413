// Package me реализует HTTP-обработчик чтения текущего пользователя сессии.
package me

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/cinexnema-cyber/projeto-xnema/internal/http/middlewarectx"
	"github.com/cinexnema-cyber/projeto-xnema/internal/http/response"
)

// Handler обрабатывает HTTP-запросы текущего пользователя.
type Handler struct {
	log *slog.Logger
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger) *Handler {
	return &Handler{log: log}
}

// ServeHTTP godoc
// @Summary Текущий пользователь
// @Description Возвращает пользователя активной сессии.
// @Tags Auth
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response "Пользователь сессии"
// @Failure 401 {object} response.ErrorResponse "Пользователь не аутентифицирован"
// @Router /auth/me [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.me"

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

	render.JSON(w, r, response.OKWithData(user))
}
