package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"go-user-auth/internal/media"
	"go-user-auth/internal/model"
	"go-user-auth/internal/util"
	"go-user-auth/pkg/apierror"
)

// UserStore is the credential store the auth flows run against.
type UserStore interface {
	FindByID(ctx context.Context, id string) (model.User, error)
	FindByIdentifier(ctx context.Context, username string, email string) (model.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username string, email string) (bool, error)
	Create(ctx context.Context, u model.User) error
	SetRefreshToken(ctx context.Context, userID string, tokenHash string) error
	SwapRefreshToken(ctx context.Context, userID string, oldHash string, newHash string) (bool, error)
	ClearRefreshToken(ctx context.Context, userID string) error
}

type MediaUploader interface {
	Upload(ctx context.Context, localPath string) (media.Asset, error)
}

const registerFailedMessage = "something went wrong while registering the user"

type AuthService struct {
	users      UserStore
	tokens     *TokenService
	uploader   MediaUploader
	bcryptCost int
}

func NewAuthService(users UserStore, tokens *TokenService, uploader MediaUploader, bcryptCost int) *AuthService {
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}

	return &AuthService{
		users:      users,
		tokens:     tokens,
		uploader:   uploader,
		bcryptCost: bcryptCost,
	}
}

// Register creates a user from a form whose files are already staged on local disk.
// The caller owns the staged files and removes them afterwards.
func (s *AuthService) Register(ctx context.Context, in model.RegisterInput) (model.PublicUser, error) {
	if field := in.MissingField(); field != "" {
		return model.PublicUser{}, apierror.New("BAD_REQUEST", "all fields are required", field, http.StatusBadRequest)
	}

	username := strings.ToLower(strings.TrimSpace(in.Username))
	email := strings.TrimSpace(in.Email)

	exists, err := s.users.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return model.PublicUser{}, apierror.Wrap(err, "INTERNAL_ERROR", registerFailedMessage, http.StatusInternalServerError)
	}
	if exists {
		return model.PublicUser{}, apierror.New("ALREADY_EXISTS", "user with email or username already exists", "", http.StatusConflict)
	}

	if strings.TrimSpace(in.AvatarPath) == "" {
		return model.PublicUser{}, apierror.New("BAD_REQUEST", "avatar file is required", "avatar", http.StatusBadRequest)
	}

	if _, err := util.DetectImage(in.AvatarPath); err != nil {
		return model.PublicUser{}, apierror.Wrap(err, "BAD_REQUEST", "avatar must be an image", http.StatusBadRequest)
	}

	avatar, err := s.uploader.Upload(ctx, in.AvatarPath)
	if err != nil {
		return model.PublicUser{}, apierror.Wrap(err, "BAD_REQUEST", "avatar file could not be uploaded", http.StatusBadRequest)
	}

	coverImageURL := s.uploadCoverImage(ctx, in.CoverImagePath)

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return model.PublicUser{}, apierror.New("BAD_REQUEST", "password is too long", "password", http.StatusBadRequest)
	}
	if err != nil {
		return model.PublicUser{}, apierror.Wrap(err, "INTERNAL_ERROR", registerFailedMessage, http.StatusInternalServerError)
	}

	now := time.Now().UTC()
	user := model.User{
		ID:            uuid.NewString(),
		Username:      username,
		Email:         email,
		FullName:      strings.TrimSpace(in.FullName),
		PasswordHash:  string(hash),
		AvatarURL:     avatar.URL,
		CoverImageURL: coverImageURL,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, model.ErrUserAlreadyExists) {
			return model.PublicUser{}, apierror.New("ALREADY_EXISTS", "user with email or username already exists", "", http.StatusConflict)
		}
		return model.PublicUser{}, apierror.Wrap(err, "INTERNAL_ERROR", registerFailedMessage, http.StatusInternalServerError)
	}

	created, err := s.users.FindByID(ctx, user.ID)
	if err != nil {
		return model.PublicUser{}, apierror.Wrap(err, "INTERNAL_ERROR", registerFailedMessage, http.StatusInternalServerError)
	}

	slog.Info("user registered", "user_id", created.ID, "username", created.Username)
	return created.Public(), nil
}

// uploadCoverImage returns the published URL, or "" when there is no cover
// image or it could not be published.
func (s *AuthService) uploadCoverImage(ctx context.Context, path string) string {
	if strings.TrimSpace(path) == "" {
		return ""
	}

	if _, err := util.DetectImage(path); err != nil {
		slog.Warn("cover image rejected, continuing without it", "error", err)
		return ""
	}

	asset, err := s.uploader.Upload(ctx, path)
	if err != nil {
		slog.Warn("cover image upload failed, continuing without it", "error", err)
		return ""
	}

	return asset.URL
}

func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (model.LoginResult, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)
	if username == "" && email == "" {
		return model.LoginResult{}, apierror.New("BAD_REQUEST", "username or email is required", "", http.StatusBadRequest)
	}

	user, err := s.users.FindByIdentifier(ctx, username, email)
	if errors.Is(err, model.ErrUserNotFound) {
		return model.LoginResult{}, invalidCredentials()
	}
	if err != nil {
		return model.LoginResult{}, apierror.Wrap(err, "INTERNAL_ERROR", "something went wrong while logging in", http.StatusInternalServerError)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return model.LoginResult{}, invalidCredentials()
	}

	pair, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		return model.LoginResult{}, err
	}

	// Issuing the pair wrote the user row; return it as stored now.
	current, err := s.users.FindByID(ctx, user.ID)
	if err != nil {
		return model.LoginResult{}, apierror.Wrap(err, "INTERNAL_ERROR", "something went wrong while logging in", http.StatusInternalServerError)
	}

	slog.Info("user logged in", "user_id", current.ID)
	return model.LoginResult{User: current.Public(), TokenPair: pair}, nil
}

// Logout forgets the stored refresh token. It succeeds when none is stored.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	if err := s.users.ClearRefreshToken(ctx, userID); err != nil {
		return apierror.Wrap(err, "INTERNAL_ERROR", "something went wrong while logging out", http.StatusInternalServerError)
	}

	slog.Info("user logged out", "user_id", userID)
	return nil
}

// Refresh exchanges a refresh token for a new pair. The presented token must be
// the one currently stored for its user and is invalidated by the exchange.
func (s *AuthService) Refresh(ctx context.Context, presented string) (model.TokenPair, error) {
	presented = strings.TrimSpace(presented)
	if presented == "" {
		return model.TokenPair{}, apierror.New("UNAUTHORIZED", "unauthorized request", "", http.StatusUnauthorized)
	}

	claims, err := s.tokens.ParseRefreshToken(presented)
	if err != nil {
		return model.TokenPair{}, apierror.Wrap(err, "UNAUTHORIZED", "invalid refresh token", http.StatusUnauthorized)
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		return model.TokenPair{}, apierror.Wrap(err, "UNAUTHORIZED", "invalid refresh token", http.StatusUnauthorized)
	}

	if user.RefreshTokenHash == nil || *user.RefreshTokenHash != HashToken(presented) {
		return model.TokenPair{}, refreshTokenUsed(nil)
	}

	pair, err := s.tokens.Rotate(ctx, user, presented)
	if errors.Is(err, model.ErrRefreshTokenMismatch) {
		return model.TokenPair{}, refreshTokenUsed(err)
	}
	if err != nil {
		return model.TokenPair{}, asUnauthorized(err)
	}

	slog.Debug("refresh token rotated", "user_id", user.ID)
	return pair, nil
}

func (s *AuthService) CurrentUser(ctx context.Context, userID string) (model.PublicUser, error) {
	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, model.ErrUserNotFound) {
		return model.PublicUser{}, apierror.New("NOT_FOUND", "user not found", userID, http.StatusNotFound)
	}
	if err != nil {
		return model.PublicUser{}, err
	}

	return user.Public(), nil
}

func (s *AuthService) ValidateAccessToken(tokenString string) (*model.AuthClaims, error) {
	return s.tokens.ParseAccessToken(tokenString)
}

func invalidCredentials() error {
	return apierror.New("BAD_REQUEST", "invalid user credentials", "", http.StatusBadRequest)
}

func refreshTokenUsed(cause error) error {
	return apierror.Wrap(cause, "UNAUTHORIZED", "refresh token is expired or used", http.StatusUnauthorized)
}

// asUnauthorized reclassifies err as 401, keeping its client-facing message when it has one.
func asUnauthorized(err error) error {
	message := "invalid refresh token"
	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		message = apiErr.Message
	}
	return apierror.Wrap(err, "UNAUTHORIZED", message, http.StatusUnauthorized)
}
