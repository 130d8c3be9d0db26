package e

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolationCode = "23505"

var (
	// Внутренние ошибки с транзакциями
	ErrTransactionNotFound = fmt.Errorf("transaction not found")

	// Хранилище
	ErrNotFound = fmt.Errorf("not found")

	// Конфигурация
	ErrIncorrectEnvVariable = fmt.Errorf("incorrect env variable")
	ErrMissingEnvVariable   = fmt.Errorf("missing required env variable")
	ErrUnknownRole          = fmt.Errorf("unknown worker role")

	// Очереди
	ErrMalformedMessage = fmt.Errorf("malformed message")
	ErrUnknownQueue     = fmt.Errorf("unknown queue")

	// Краулеры
	ErrUnknownSource       = fmt.Errorf("unknown source")
	ErrSiteUnavailable     = fmt.Errorf("site unavailable")
	ErrNodeNotFound        = fmt.Errorf("node not found")
	ErrAvailabilityUnknown = fmt.Errorf("availability markers not found")
	ErrUnexpectedStatus    = fmt.Errorf("unexpected http status")

	// Характеристики
	ErrUnknownCharacteristic = fmt.Errorf("unknown characteristic")
	ErrUnparsableValue       = fmt.Errorf("unparsable characteristic value")
	ErrUnknownEnumValue      = fmt.Errorf("unknown enum value")

	// Курсы валют
	ErrUnknownCurrency = fmt.Errorf("unknown currency")
	ErrEmptyRates      = fmt.Errorf("empty exchange rates")

	// Изображения
	ErrUnsupportedMediaType = fmt.Errorf("unsupported media type")
	ErrEmptyImage           = fmt.Errorf("empty image")
)

// Wrap оборачивает ошибку
func Wrap(msg string, err error) error {
	return fmt.Errorf("%s: %w", msg, err)
}

// IsUniqueViolation сообщает, что ошибка вызвана нарушением уникального ограничения PostgreSQL.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
