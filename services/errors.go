package services

import (
	"errors"
	"fmt"
)

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден (универсальная)
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки бизнес-правил сезона
	ErrSeasonNotActive          = errors.New("season is not accepting this operation in its current status")
	ErrSeasonTransitionInvalid  = errors.New("invalid season status transition")
	ErrSeasonAlreadyHasFixtures = errors.New("season already has generated fixtures")
	ErrRegistrationNotOpen      = errors.New("season registration is not open")
	ErrSeasonFull               = errors.New("season registration is full")

	// Ошибки матчей
	ErrMatchNotReschedulable   = errors.New("match can no longer be rescheduled")
	ErrRescheduleDeadlinePast  = errors.New("reschedule deadline has passed")
	ErrMatchAlreadyProcessed   = errors.New("match result has already been processed")
	ErrConfirmationOutstanding = errors.New("match is awaiting confirmation from both sides")
)

// ValidationError — ошибка вызывающей стороны: некорректный ввод или
// нарушение бизнес-правила. Отклоняется сразу, повторять без исправления
// бессмысленно.
type ValidationError struct {
	Field string
	Msg   string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Msg)
	}
	return "validation failed: " + e.Msg
}

func (e *ValidationError) Unwrap() error { return e.Err }

func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Msg: msg}
}

func WrapValidation(err error, field string) *ValidationError {
	return &ValidationError{Field: field, Msg: err.Error(), Err: err}
}

// ConflictError — конкуренция за ресурс (занятый корт, повторная
// регистрация). Повтор осмыслен после устранения конфликта.
type ConflictError struct {
	Resource string
	Msg      string
	Err      error
}

func (e *ConflictError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("conflict on %s: %s", e.Resource, e.Msg)
	}
	return "conflict: " + e.Msg
}

func (e *ConflictError) Unwrap() error { return e.Err }

func NewConflictError(resource, msg string) *ConflictError {
	return &ConflictError{Resource: resource, Msg: msg}
}
