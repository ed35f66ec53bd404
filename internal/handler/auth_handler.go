package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"go-user-auth/internal/cookie"
	"go-user-auth/internal/middleware"
	"go-user-auth/internal/model"
	"go-user-auth/internal/service"
	"go-user-auth/internal/storage"
	"go-user-auth/pkg/apierror"
)

// multipartMemory is how much of a registration form is held in memory
// before multipart spills file parts to disk.
const multipartMemory = 8 << 20

type AuthHandler struct {
	service       *service.AuthService
	cookies       *cookie.Manager
	staging       *storage.Staging
	maxUploadSize int64
}

func NewAuthHandler(service *service.AuthService, cookies *cookie.Manager, staging *storage.Staging, maxUploadSize int64) *AuthHandler {
	return &AuthHandler{
		service:       service,
		cookies:       cookies,
		staging:       staging,
		maxUploadSize: maxUploadSize,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	// Both image parts plus the text fields share one limit.
	r.Body = http.MaxBytesReader(w, r.Body, 2*h.maxUploadSize+(1<<20))
	defer r.Body.Close()

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, apierror.New("PAYLOAD_TOO_LARGE", "upload exceeds the allowed size", "", http.StatusRequestEntityTooLarge))
			return
		}
		writeError(w, apierror.Wrap(err, "BAD_REQUEST", "invalid multipart form", http.StatusBadRequest))
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	in := model.RegisterInput{
		FullName: r.FormValue("fullName"),
		Email:    r.FormValue("email"),
		Username: r.FormValue("username"),
		Password: r.FormValue("password"),
	}

	avatarPath, err := h.stageFile(r, "avatar")
	if err != nil {
		writeError(w, err)
		return
	}
	defer h.removeStaged(avatarPath)

	coverPath, err := h.stageFile(r, "coverImage")
	if err != nil {
		writeError(w, err)
		return
	}
	defer h.removeStaged(coverPath)

	in.AvatarPath = avatarPath
	in.CoverImagePath = coverPath

	user, err := h.service.Register(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, "user registered successfully", user)
}

// stageFile copies the named form file into the staging area. It returns ""
// when the form has no such file.
func (h *AuthHandler) stageFile(r *http.Request, field string) (string, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", apierror.Wrap(err, "BAD_REQUEST", "invalid "+field+" file", http.StatusBadRequest)
	}
	defer file.Close()

	if header.Size > h.maxUploadSize {
		return "", apierror.New("PAYLOAD_TOO_LARGE", field+" exceeds the allowed size", field, http.StatusRequestEntityTooLarge)
	}

	path, err := h.staging.Save(header.Filename, file)
	if err != nil {
		return "", apierror.Wrap(err, "INTERNAL_ERROR", "something went wrong while receiving "+field, http.StatusInternalServerError)
	}

	return path, nil
}

func (h *AuthHandler) removeStaged(path string) {
	if err := h.staging.Remove(path); err != nil {
		slog.Warn("failed to remove staged upload", "path", path, "error", err)
	}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	result, err := h.service.Login(r.Context(), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	h.cookies.SetTokens(w, result.TokenPair)
	writeSuccess(w, http.StatusOK, "user logged in successfully", result)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.New("UNAUTHORIZED", "unauthorized request", "", http.StatusUnauthorized))
		return
	}

	if err := h.service.Logout(r.Context(), claims.UserID); err != nil {
		writeError(w, err)
		return
	}

	h.cookies.ClearTokens(w)
	writeSuccess(w, http.StatusOK, "user logged out", map[string]any{})
}

// Refresh takes the refresh token from its cookie, or from the JSON body when
// the cookie is absent.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	presented := h.cookies.RefreshToken(r)
	if presented == "" {
		var payload model.RefreshRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
			return
		}
		presented = strings.TrimSpace(payload.RefreshToken)
	}

	pair, err := h.service.Refresh(r.Context(), presented)
	if err != nil {
		writeError(w, err)
		return
	}

	h.cookies.SetTokens(w, pair)
	writeSuccess(w, http.StatusOK, "access token refreshed", pair)
}
