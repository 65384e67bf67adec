// Package store is the key-value persistence substrate. The service treats
// it as an opaque get/put/list/delete store; groups and service config are
// JSON values under well-known key prefixes.
package store

import (
	"context"
	"fmt"

	"github.com/John-Robertt/submerge-go/internal/model"
)

type Store interface {
	// Get returns the value for key; ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Put(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	// List returns the keys with the given prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}

type StoreError struct {
	AppError model.AppError
	Cause    error
}

func (e *StoreError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *StoreError) Unwrap() error { return e.Cause }

func storeError(message string, cause error) error {
	return &StoreError{
		AppError: model.AppError{
			Code:    "STORE_ERROR",
			Message: message,
			Stage:   "store",
		},
		Cause: cause,
	}
}
