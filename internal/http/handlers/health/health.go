// Package health реализует HTTP-обработчик проверки готовности сервиса.
package health

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/cinexnema-cyber/projeto-xnema/internal/http/response"
	"github.com/cinexnema-cyber/projeto-xnema/internal/lib/sl"
)

// Checker проверяет готовность зависимости сервиса.
type Checker func() error

// Handler обрабатывает запросы проверки готовности.
type Handler struct {
	log      *slog.Logger
	checkers map[string]Checker
}

// New создает новый экземпляр Handler с именованными проверками.
func New(log *slog.Logger, checkers map[string]Checker) *Handler {
	return &Handler{log: log, checkers: checkers}
}

// ServeHTTP godoc
// @Summary Проверка готовности
// @Description Проверяет готовность сервиса и его зависимостей.
// @Tags Health
// @Produce  json
// @Success 200 {object} response.Response "Сервис готов"
// @Failure 503 {object} response.ErrorResponse "Зависимость недоступна"
// @Router /health [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	statuses := make(map[string]string, len(h.checkers))
	healthy := true
	for name, check := range h.checkers {
		if err := check(); err != nil {
			h.log.Error("health check failed", slog.String("dependency", name), sl.Err(err))
			statuses[name] = "unavailable"
			healthy = false
			continue
		}
		statuses[name] = "ok"
	}

	if !healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
		render.JSON(w, r, response.Response{
			Status: response.StatusError,
			Error:  "service unavailable",
			Data:   statuses,
		})
		return
	}
	render.JSON(w, r, response.OKWithData(statuses))
}
