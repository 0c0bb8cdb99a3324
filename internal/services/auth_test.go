package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/studyforge/studyforge-backend/internal/pkg/ctxutil"
)

func signToken(t *testing.T, secret string, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

func TestAuthServiceRoundTrip(t *testing.T) {
	svc, err := NewAuthService(testLogger(t), "test-secret")
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}
	userID := uuid.New()

	ctx, err := svc.SetContextFromToken(context.Background(), signToken(t, "test-secret", userID.String()))
	if err != nil {
		t.Fatalf("SetContextFromToken: %v", err)
	}
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID != userID {
		t.Fatalf("request data not attached: %+v", rd)
	}
}

func TestAuthServiceCarriesModelAllowlist(t *testing.T) {
	svc, err := NewAuthService(testLogger(t), "test-secret")
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}
	userID := uuid.New()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":    userID.String(),
		"exp":    time.Now().Add(time.Hour).Unix(),
		"models": []string{"fast", "gemini-flash"},
	})
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}

	ctx, err := svc.SetContextFromToken(context.Background(), signed)
	if err != nil {
		t.Fatalf("SetContextFromToken: %v", err)
	}
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID != userID {
		t.Fatalf("request data not attached: %+v", rd)
	}
	if len(rd.EnabledModels) != 2 || rd.EnabledModels[0] != "fast" || rd.EnabledModels[1] != "gemini-flash" {
		t.Fatalf("expected models claim carried through, got %v", rd.EnabledModels)
	}

	identity, err := svc.ParseToken(signToken(t, "test-secret", userID.String()))
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if identity.EnabledModels != nil {
		t.Fatalf("token without a models claim must leave the allowlist empty, got %v", identity.EnabledModels)
	}
}

func TestAuthServiceRejectsWrongSecret(t *testing.T) {
	svc, err := NewAuthService(testLogger(t), "right-secret")
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}
	if _, err := svc.ParseToken(signToken(t, "wrong-secret", uuid.NewString())); err == nil {
		t.Fatalf("expected signature rejection")
	}
}

func TestAuthServiceRejectsNonUUIDSubject(t *testing.T) {
	svc, err := NewAuthService(testLogger(t), "test-secret")
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}
	if _, err := svc.ParseToken(signToken(t, "test-secret", "not-a-uuid")); err == nil {
		t.Fatalf("expected subject rejection")
	}
}

func TestAuthServiceRequiresSecret(t *testing.T) {
	if _, err := NewAuthService(testLogger(t), ""); err == nil {
		t.Fatalf("missing secret must fail construction")
	}
}
