package service

import (
	"errors"
	"fmt"

	"github.com/niklvrr/em-metrics/internal/infrastructure/repository"
)

type DomainError struct {
	Code    string
	Message string
	Err     error
}

func WrapError(domainError *DomainError, err error) error {
	return &DomainError{
		Code:    domainError.Code,
		Message: domainError.Message,
		Err:     err,
	}
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is сравнивает доменные ошибки по коду и сообщению
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

const (
	CodeNotFound            = "NOT_FOUND"
	CodeAlreadyExists       = "ALREADY_EXISTS"
	CodeConstraintViolation = "CONSTRAINT_VIOLATION"
	CodeInvalidInput        = "INVALID_INPUT"
	CodeInvalidSignature    = "INVALID_SIGNATURE"
)

var (
	// NOT_FOUND
	ErrPrNotFound = &DomainError{
		Code:    CodeNotFound,
		Message: "pull request not found",
	}
	ErrDeploymentNotFound = &DomainError{
		Code:    CodeNotFound,
		Message: "deployment not found",
	}
	ErrIncidentNotFound = &DomainError{
		Code:    CodeNotFound,
		Message: "incident not found",
	}
	ErrTicketNotFound = &DomainError{
		Code:    CodeNotFound,
		Message: "ticket not found",
	}

	// ALREADY_EXISTS
	ErrPrExists = &DomainError{
		Code:    CodeAlreadyExists,
		Message: "pull request already exists",
	}
	ErrDeploymentExists = &DomainError{
		Code:    CodeAlreadyExists,
		Message: "deployment already exists",
	}
	ErrIncidentExists = &DomainError{
		Code:    CodeAlreadyExists,
		Message: "incident already exists",
	}

	// CONSTRAINT_VIOLATION
	ErrConstraintViolation = &DomainError{
		Code:    CodeConstraintViolation,
		Message: "referenced entity does not exist or constraint violated",
	}

	// INVALID_INPUT
	ErrInvalidInput = &DomainError{
		Code:    CodeInvalidInput,
		Message: "invalid input",
	}

	// INVALID_SIGNATURE
	ErrInvalidSignature = &DomainError{
		Code:    CodeInvalidSignature,
		Message: "invalid signature",
	}
)

// mapRepoError переводит ошибки репозитория в доменные, неизвестные оборачивает opErr
func mapRepoError(err error, notFound, exists *DomainError, opErr error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound) && notFound != nil:
		return WrapError(notFound, err)
	case errors.Is(err, repository.ErrAlreadyExists) && exists != nil:
		return WrapError(exists, err)
	case errors.Is(err, repository.ErrConstraintViolation):
		return WrapError(ErrConstraintViolation, err)
	}
	return fmt.Errorf("%w: %w", opErr, err)
}
