package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"go-user-auth/internal/model"
	"go-user-auth/pkg/apierror"
)

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := &model.APIError{
		Code:    "INTERNAL_ERROR",
		Message: "unexpected server error",
	}

	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		status = apiErr.HTTPStatus
		body.Code = apiErr.Code
		body.Message = apiErr.Message
		body.Details = apiErr.Details
	} else if errors.Is(err, model.ErrUserNotFound) {
		status = http.StatusNotFound
		body.Code = "NOT_FOUND"
		body.Message = "user not found"
	} else if errors.Is(err, model.ErrUserAlreadyExists) {
		status = http.StatusConflict
		body.Code = "ALREADY_EXISTS"
		body.Message = "user with email or username already exists"
	} else if errors.Is(err, model.ErrRefreshTokenMismatch) {
		status = http.StatusUnauthorized
		body.Code = "UNAUTHORIZED"
		body.Message = "refresh token is expired or used"
	}

	if status == 0 {
		status = http.StatusInternalServerError
	}

	// Causes stay in the log; the client only sees the classified message.
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "code", body.Code, "error", err)
	} else {
		slog.Debug("request rejected", "code", body.Code, "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Message: body.Message,
		Error:   body,
	})
}
