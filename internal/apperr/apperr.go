// Package apperr определяет таксономию ошибок ядра: ошибки валидации,
// отсутствующие сущности и конфликтные состояния всегда доходят до
// вызывающей стороны типизированными, операционные ошибки оборачиваются
// с контекстом шага через fmt.Errorf и %w.
package apperr

import (
	"errors"
	"fmt"
)

// ErrVersionConflict сигнализирует о проигрыше optimistic-concurrency
// гонки при обновлении строки инцидента. Вызывающая сторона перечитывает
// состояние и повторяет попытку.
var ErrVersionConflict = errors.New("incident row version conflict")

// ValidationError - некорректный ввод: пустые поля, координаты вне
// диапазона, неизвестное значение перечисления, повторный фидбек в
// пределах окна ограничения
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

// Validation создает ошибку валидации
func Validation(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// NotFoundError - ссылка на несуществующего пользователя, инцидент или отчет
type NotFoundError struct {
	Resource string
	ID       int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with id %d not found", e.Resource, e.ID)
}

// NotFound создает ошибку отсутствия сущности
func NotFound(resource string, id int64) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// ConflictError - сущность существует, но находится в состоянии, не
// допускающем запрошенную операцию
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return "conflict: " + e.Reason
}

// Conflict создает ошибку конфликтного состояния
func Conflict(format string, args ...any) error {
	return &ConflictError{Reason: fmt.Sprintf(format, args...)}
}

// IsValidation сообщает, является ли ошибка (или ее причина) ошибкой валидации
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound сообщает, является ли ошибка ошибкой отсутствия сущности
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsConflict сообщает, является ли ошибка конфликтом состояния
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
