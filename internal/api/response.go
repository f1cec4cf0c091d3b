package api

import (
	"net/http"

	"investsight/pkg/investsight"
)

// Response is the unified envelope for successful responses.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// ErrorResponse carries the structured error code alongside the message.
type ErrorResponse struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	ErrorCode string `json:"error_code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func writeSuccess(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Response{Code: 0, Data: data})
}

func writeSuccessWithMessage(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusOK, Response{Code: 0, Message: message, Data: data})
}

// writeErrorResponse maps engine errors to HTTP statuses. The fallback
// status applies to plain errors with no classification.
func writeErrorResponse(w http.ResponseWriter, httpStatus int, err error) {
	response := ErrorResponse{
		Code:    httpStatus,
		Message: err.Error(),
	}

	if engineErr, ok := err.(*investsight.Error); ok {
		response.ErrorCode = string(engineErr.Code)
		httpStatus = mapErrorCodeToHTTPStatus(engineErr.Code)
		response.Code = httpStatus
	}

	if setter, ok := w.(interface{ SetErrorMessage(string) }); ok {
		setter.SetErrorMessage(response.Message)
	}
	writeJSON(w, httpStatus, response)
}

func mapErrorCodeToHTTPStatus(code investsight.ErrorCode) int {
	switch code {
	case investsight.ErrCodeInvalidInput, investsight.ErrCodeValidation:
		return http.StatusBadRequest
	case investsight.ErrCodeNotFound:
		return http.StatusNotFound
	case investsight.ErrCodeDuplicate:
		return http.StatusConflict
	case investsight.ErrCodeUpstream:
		return http.StatusBadGateway
	case investsight.ErrCodeDatabase, investsight.ErrCodeInternal:
		return http.StatusInternalServerError
	case investsight.ErrCodeUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
