package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrStorage              = errors.New("storage failure")
	ErrStorageUnavailable   = fmt.Errorf("%w: circuit open", ErrStorage)
	ErrUserNotFound         = errors.New("user not found")
	ErrInsufficientCoins    = errors.New("insufficient coins")
	ErrInsufficientPoints   = errors.New("insufficient points")
	ErrPermissionDenied     = errors.New("permission denied")
	ErrConfirmationRequired = errors.New("confirmation required")
)

// ValidationError 输入在任何写入之前被拒绝
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// StorageError 存储层失败；不重试，只作用于当前这一条消息或操作
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error { return []error{ErrStorage, e.Err} }

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
