package services

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/studyforge/studyforge-backend/internal/pkg/apperr"
	"github.com/studyforge/studyforge-backend/internal/pkg/ctxutil"
	"github.com/studyforge/studyforge-backend/internal/pkg/logger"
)

// AuthService verifies bearer tokens and attaches the caller's identity to
// the request context. Tokens are HS256 with the user id in the subject
// claim.
type AuthService struct {
	log    *logger.Logger
	secret []byte
}

func NewAuthService(log *logger.Logger, secret string) (*AuthService, error) {
	if secret == "" {
		return nil, apperr.Configuration("JWT_SECRET is not set")
	}
	return &AuthService{
		log:    log.With("service", "AuthService"),
		secret: []byte(secret),
	}, nil
}

// TokenIdentity is the verified caller identity. EnabledModels comes from
// the optional "models" claim; absent or empty leaves the full catalogue
// selectable.
type TokenIdentity struct {
	UserID        uuid.UUID
	EnabledModels []string
}

func (s *AuthService) ParseToken(tokenString string) (*TokenIdentity, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	subject, err := claims.GetSubject()
	if err != nil {
		return nil, fmt.Errorf("token has no subject: %w", err)
	}
	userID, err := uuid.Parse(subject)
	if err != nil {
		return nil, fmt.Errorf("token subject is not a user id: %w", err)
	}
	return &TokenIdentity{
		UserID:        userID,
		EnabledModels: enabledModelsClaim(claims),
	}, nil
}

func enabledModelsClaim(claims jwt.MapClaims) []string {
	raw, ok := claims["models"].([]any)
	if !ok {
		return nil
	}
	models := make([]string, 0, len(raw))
	for _, entry := range raw {
		if alias, ok := entry.(string); ok && alias != "" {
			models = append(models, alias)
		}
	}
	return models
}

func (s *AuthService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	identity, err := s.ParseToken(tokenString)
	if err != nil {
		return ctx, err
	}
	return ctxutil.WithRequestData(ctx, &ctxutil.RequestData{
		UserID:        identity.UserID,
		EnabledModels: identity.EnabledModels,
	}), nil
}
