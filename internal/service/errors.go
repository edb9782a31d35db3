package service

import (
	"errors"
	"net/http"

	"github.com/spec-kit/civic-service/internal/repository"
	apperrors "github.com/spec-kit/civic-service/pkg/util"
)

// storeError translates repository failures into domain errors using the
// caller's context. Domain errors pass through untouched.
func storeError(err error, resource string, details map[string]any) error {
	if err == nil {
		return nil
	}
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(resource, details)
	case errors.Is(err, repository.ErrStaleState):
		return apperrors.NewIllegalTransition(resource+" changed concurrently", details)
	case errors.Is(err, repository.ErrConflict):
		conflict := apperrors.NewDomainError(apperrors.CodeConflict, resource+" already exists", http.StatusConflict, details)
		conflict.Err = err
		return conflict
	default:
		return apperrors.NewStoreFailure(err)
	}
}
