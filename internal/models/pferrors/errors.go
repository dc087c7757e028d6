package pferrors

import (
	"errors"
	"fmt"
)

// ValidationError signale une entrée corrigeable par l'utilisateur (HTTP 400)
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validation construit une ValidationError
func Validation(format string, a ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, a...)}
}

// StorageError encapsule une erreur de la base de données (HTTP 500)
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Storage retourne nil si err est nil
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	var serr *StorageError
	if errors.As(err, &serr) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
