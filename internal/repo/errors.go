package repo

import (
	"errors"
	"fmt"
)

// Общие ошибки репозиториев.
var (
	// ErrNotFound — запись не найдена в БД.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists — запись уже существует (конфликт уникальности).
	ErrAlreadyExists = errors.New("already exists")

	// ErrNameTaken — в проекте уже есть не удалённый оркестратор с таким
	// именем. errors.Is(ErrNameTaken, ErrAlreadyExists) == true.
	ErrNameTaken = fmt.Errorf("orchestrator name taken: %w", ErrAlreadyExists)
)

// ErrTxDone — транзакция уже завершена.
var ErrTxDone = errors.New("transaction already finished")
