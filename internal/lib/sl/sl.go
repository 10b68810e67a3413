// Package sl содержит вспомогательные функции для работы с логгером slog.
// Основная цель — единообразное формирование структурированных полей лога.
package sl

import (
	"log/slog"

	"github.com/cinexnema-cyber/projeto-xnema/internal/apperr"
)

// Err возвращает slog.Attr с ключом "error" и значением текста ошибки.
//
// Пример:
//
//	log.Error("failed to do something", sl.Err(err))
func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

// Kind возвращает slog.Attr с видом ошибки сервиса для фильтрации в логах.
func Kind(err error) slog.Attr {
	return slog.Attr{
		Key:   "error_kind",
		Value: slog.StringValue(string(apperr.From(err).Kind)),
	}
}
