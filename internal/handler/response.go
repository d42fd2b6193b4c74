package handler

import (
	"net/http"

	"github.com/Anandtech09/reception-prime-queue/pkg/errors"
)

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// StatusOf maps engine errors to HTTP status codes.
func StatusOf(err error) int {
	switch errors.CodeOf(err) {
	case errors.ErrNotFound:
		return http.StatusNotFound
	case errors.ErrBadRequest:
		return http.StatusBadRequest
	case errors.ErrInvalidTransition:
		return http.StatusConflict
	case errors.ErrEmptyCandidates:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
