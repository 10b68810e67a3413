package middlewarectx

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/cinexnema-cyber/projeto-xnema/internal/access"
	"github.com/cinexnema-cyber/projeto-xnema/internal/http/response"
)

// AccessMiddleware применяет требование доступа к пользователю из контекста.
//
// Отказ без сессии возвращает 401 (клиент очищает сессию и ведёт на вход),
// отказ по роли или подписке — 403 (сессия действительна, доступ запрещён).
// Путь перенаправления отдаётся в данных ответа.
func AccessMiddleware(log *slog.Logger, req access.Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.AccessMiddleware"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			user := SessionFromContext(r.Context())
			decision := access.Evaluate(user, false, req)
			if decision.Verdict == access.Allow {
				next.ServeHTTP(w, r)
				return
			}

			log.Info("access denied", slog.String("reason", string(decision.Reason)))
			switch decision.Reason {
			case access.ReasonUnauthenticated:
				w.WriteHeader(http.StatusUnauthorized)
			default:
				w.WriteHeader(http.StatusForbidden)
			}
			render.JSON(w, r, response.Response{
				Status: response.StatusError,
				Code:   string(decision.Reason),
				Error:  "access denied",
				Data:   map[string]string{"redirect_to": decision.RedirectTo},
			})
		})
	}
}
