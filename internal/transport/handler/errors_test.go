package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/niklvrr/em-metrics/internal/usecase/service"
	"github.com/stretchr/testify/assert"
)

func TestHandleError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "not found", err: service.ErrPrNotFound, status: http.StatusNotFound, code: service.CodeNotFound},
		{name: "already exists", err: service.WrapError(service.ErrDeploymentExists, errors.New("dup")), status: http.StatusConflict, code: service.CodeAlreadyExists},
		{name: "constraint violation", err: service.ErrConstraintViolation, status: http.StatusBadRequest, code: service.CodeConstraintViolation},
		{name: "invalid input", err: service.ErrInvalidInput, status: http.StatusBadRequest, code: service.CodeInvalidInput},
		{name: "invalid signature", err: service.ErrInvalidSignature, status: http.StatusNotFound, code: service.CodeInvalidSignature},
		{name: "wrapped domain error", err: fmt.Errorf("handle: %w", service.ErrIncidentNotFound), status: http.StatusNotFound, code: service.CodeNotFound},
		{name: "unknown error", err: errors.New("boom"), status: http.StatusInternalServerError, code: "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := HandleError(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestHandleError_Nil(t *testing.T) {
	status, resp := HandleError(nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Empty(t, resp.Error.Code)
}
