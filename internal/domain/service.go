package domain

import (
	"arriendos/internal/core/apperror"
)

// NormalizeValidationErr keeps structured errors and wraps plain ones as VALIDATION_ERROR.
func NormalizeValidationErr(err error) error {
	if err == nil {
		return nil
	}
	if apperror.IsAppError(err) {
		return err
	}
	return apperror.NewValidation(err.Error())
}

// NormalizeGetErr maps a repository lookup failure onto the entity name and id the
// caller asked for.
func NormalizeGetErr(err error, entityName string, key any) error {
	if err == nil {
		return nil
	}
	if apperror.IsNotFound(err) {
		return apperror.NewNotFound(entityName, key)
	}
	if apperror.IsAppError(err) {
		return err
	}
	return apperror.NewInternal(err).WithDetail("entity", entityName).WithDetail("id", key)
}
