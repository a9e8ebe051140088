package service

import (
	"errors"
	"fmt"

	"github.com/alexanderramin/insurer/internal/domain"
	"github.com/alexanderramin/insurer/internal/repository"
)

// persistenceErr leaves domain errors untouched and wraps anything else as
// a retryable PersistenceError.
func persistenceErr(msg string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := domain.CodeOf(err); ok {
		return err
	}
	return domain.WrapError(domain.CodePersistence, msg, err)
}

// notFoundOr maps repository.ErrNotFound to a NotFound domain error and
// anything else to PersistenceError.
func notFoundOr(what string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return domain.WrapError(domain.CodeNotFound, fmt.Sprintf("%s not found", what), err)
	}
	return persistenceErr("reading "+what, err)
}
