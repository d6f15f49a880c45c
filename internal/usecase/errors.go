package usecase

import (
	"errors"

	"github.com/google/uuid"

	"github.com/civicweb/cms/internal/asset"
)

type ErrNotFound struct {
	ID      uuid.UUID
	Code    string
	Message string
}

func (e ErrNotFound) Error() string {
	return e.Message
}

func IsNotFound(err error) bool {
	var nf ErrNotFound
	return errors.As(err, &nf)
}

func invalid(code, msg string) error {
	return asset.ValidationError{Code: code, Message: msg}
}
