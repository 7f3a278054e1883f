package service

import "fmt"

// ErrBatchTooLarge — в пакете больше элементов, чем разрешено настройками.
type ErrBatchTooLarge struct {
	Size  int
	Limit int
}

func (e *ErrBatchTooLarge) Error() string {
	return fmt.Sprintf("batch of %d expressions exceeds the limit of %d", e.Size, e.Limit)
}

// ErrInvalidExpression — элемент пакета с номером Index не удалось обработать.
// Пакет обрабатывается целиком или не обрабатывается вовсе.
type ErrInvalidExpression struct {
	Index int
	Err   error
}

func (e *ErrInvalidExpression) Error() string {
	return fmt.Sprintf("expressions[%d]: %v", e.Index, e.Err)
}

func (e *ErrInvalidExpression) Unwrap() error {
	return e.Err
}
