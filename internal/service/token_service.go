package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"go-user-auth/internal/model"
	"go-user-auth/pkg/apierror"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

const tokenIssueFailedMessage = "something went wrong while generating refresh and access token"

// TokenService signs and verifies the access/refresh pair and keeps the
// stored refresh token of each user in step with the last issued one.
type TokenService struct {
	users         UserStore
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewTokenService(users UserStore, accessSecret string, refreshSecret string, accessTTL time.Duration, refreshTTL time.Duration) (*TokenService, error) {
	if strings.TrimSpace(accessSecret) == "" || strings.TrimSpace(refreshSecret) == "" {
		return nil, errors.New("token secrets are required")
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, errors.New("token TTLs must be positive")
	}

	return &TokenService{
		users:         users,
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}, nil
}

func (s *TokenService) AccessTTL() time.Duration  { return s.accessTTL }
func (s *TokenService) RefreshTTL() time.Duration { return s.refreshTTL }

// Issue mints a new pair for userID and stores the refresh token on the user,
// replacing whatever was stored before.
func (s *TokenService) Issue(ctx context.Context, userID string) (model.TokenPair, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return model.TokenPair{}, issueFailed(err)
	}

	pair, err := s.sign(user)
	if err != nil {
		return model.TokenPair{}, issueFailed(err)
	}

	if err := s.users.SetRefreshToken(ctx, user.ID, HashToken(pair.RefreshToken)); err != nil {
		return model.TokenPair{}, issueFailed(err)
	}

	return pair, nil
}

// Rotate mints a new pair and swaps it in only if presented is still the
// stored refresh token. A lost race returns model.ErrRefreshTokenMismatch.
func (s *TokenService) Rotate(ctx context.Context, user model.User, presented string) (model.TokenPair, error) {
	pair, err := s.sign(user)
	if err != nil {
		return model.TokenPair{}, issueFailed(err)
	}

	swapped, err := s.users.SwapRefreshToken(ctx, user.ID, HashToken(presented), HashToken(pair.RefreshToken))
	if err != nil {
		return model.TokenPair{}, issueFailed(err)
	}
	if !swapped {
		return model.TokenPair{}, model.ErrRefreshTokenMismatch
	}

	return pair, nil
}

func (s *TokenService) ParseAccessToken(tokenString string) (*model.AuthClaims, error) {
	return s.parse(tokenString, s.accessSecret, tokenTypeAccess)
}

func (s *TokenService) ParseRefreshToken(tokenString string) (*model.AuthClaims, error) {
	return s.parse(tokenString, s.refreshSecret, tokenTypeRefresh)
}

func (s *TokenService) sign(user model.User) (model.TokenPair, error) {
	now := s.now().UTC()

	accessToken, err := signToken(s.accessSecret, jwt.MapClaims{
		"sub":      user.ID,
		"username": user.Username,
		"email":    user.Email,
		"fullName": user.FullName,
		"typ":      tokenTypeAccess,
		"jti":      uuid.NewString(),
		"iat":      now.Unix(),
		"exp":      now.Add(s.accessTTL).Unix(),
	})
	if err != nil {
		return model.TokenPair{}, err
	}

	refreshToken, err := signToken(s.refreshSecret, jwt.MapClaims{
		"sub": user.ID,
		"typ": tokenTypeRefresh,
		"jti": uuid.NewString(),
		"iat": now.Unix(),
		"exp": now.Add(s.refreshTTL).Unix(),
	})
	if err != nil {
		return model.TokenPair{}, err
	}

	return model.TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (s *TokenService) parse(tokenString string, secret []byte, expectedType string) (*model.AuthClaims, error) {
	parsed, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apierror.New("UNAUTHORIZED", "invalid token signing method", "", http.StatusUnauthorized)
		}
		return secret, nil
	}, jwt.WithExpirationRequired(), jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return nil, apierror.Wrap(err, "UNAUTHORIZED", "invalid "+expectedType+" token", http.StatusUnauthorized)
	}

	claimsMap, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apierror.New("UNAUTHORIZED", "invalid token claims", "", http.StatusUnauthorized)
	}

	typ, _ := claimsMap["typ"].(string)
	if typ != expectedType {
		return nil, apierror.New("UNAUTHORIZED", "invalid token type", "", http.StatusUnauthorized)
	}

	claims := &model.AuthClaims{Type: typ}
	claims.UserID, _ = claimsMap["sub"].(string)
	claims.Username, _ = claimsMap["username"].(string)
	claims.Email, _ = claimsMap["email"].(string)
	claims.FullName, _ = claimsMap["fullName"].(string)
	claims.TokenID, _ = claimsMap["jti"].(string)

	if claims.UserID == "" {
		return nil, apierror.New("UNAUTHORIZED", "invalid token subject", "", http.StatusUnauthorized)
	}

	return claims, nil
}

func signToken(secret []byte, claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// HashToken is the form in which refresh tokens are stored.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func issueFailed(cause error) error {
	return apierror.Wrap(cause, "INTERNAL_ERROR", tokenIssueFailedMessage, http.StatusInternalServerError)
}
