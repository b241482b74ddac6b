package domain

import (
	"errors"
	"fmt"
)

// ErrorCode — стабильный код ошибки импорта.
type ErrorCode string

const (
	CodeInvalidRequest      ErrorCode = "INVALID_REQUEST"
	CodeRetrieval           ErrorCode = "RETRIEVAL_FAILED"
	CodeMalformedPackage    ErrorCode = "MALFORMED_PACKAGE"
	CodeDuplicateName       ErrorCode = "DUPLICATE_NAME"
	CodeVersionFormat       ErrorCode = "VERSION_FORMAT"
	CodeContextAllocation   ErrorCode = "CONTEXT_ALLOCATION_FAILED"
	CodeIntegrationDispatch ErrorCode = "INTEGRATION_DISPATCH_FAILED"
	CodeTransaction         ErrorCode = "TRANSACTION_FAILED"
)

// LegacyCodeDuplicateName — числовой код "orchestration name already exists",
// который ожидают старые клиенты.
const LegacyCodeDuplicateName = 61002

// DuplicateNameMessage — сообщение, показываемое пользователю как есть.
const DuplicateNameMessage = "The same orchestration name already exists"

// Error — структурированная ошибка импорта с кодом.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error реализует интерфейс error.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap возвращает базовую ошибку.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is сравнивает ошибки по коду.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// LegacyCode возвращает числовой код для старых клиентов (0, если его нет).
func (e *Error) LegacyCode() int {
	if e.Code == CodeDuplicateName {
		return LegacyCodeDuplicateName
	}
	return 0
}

// NewError создаёт ошибку с кодом.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError создаёт ошибку с кодом поверх базовой.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Сентинелы для errors.Is — сравнение идёт по коду.
var (
	ErrInvalidRequest      = NewError(CodeInvalidRequest, "invalid import request")
	ErrRetrieval           = NewError(CodeRetrieval, "package retrieval failed")
	ErrMalformedPackage    = NewError(CodeMalformedPackage, "malformed package")
	ErrDuplicateName       = NewError(CodeDuplicateName, DuplicateNameMessage)
	ErrVersionFormat       = NewError(CodeVersionFormat, "unexpected version format")
	ErrContextAllocation   = NewError(CodeContextAllocation, "context id allocation failed")
	ErrIntegrationDispatch = NewError(CodeIntegrationDispatch, "integration dispatch failed")
	ErrTransaction         = NewError(CodeTransaction, "catalog transaction failed")
)

// AsError приводит произвольную ошибку к *Error.
// Ошибки без кода считаются ошибками транзакции.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return de
	}
	return WrapError(CodeTransaction, "catalog transaction failed", err)
}
