package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/studyforge/studyforge-backend/internal/pkg/ctxutil"
	"github.com/studyforge/studyforge-backend/internal/services"
)

func authedContext(t *testing.T, enabled []string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	req := httptest.NewRequest(http.MethodPost, "/api/study-kits", nil)
	c.Request = req.WithContext(ctxutil.WithRequestData(req.Context(), &ctxutil.RequestData{
		UserID:        uuid.New(),
		EnabledModels: enabled,
	}))
	return c
}

func TestModelSelectionCarriesCallerAllowlist(t *testing.T) {
	c := authedContext(t, []string{"fast"})

	sel := modelSelection(c, "thorough")
	if sel.Alias != "thorough" {
		t.Fatalf("expected requested alias, got %q", sel.Alias)
	}
	if len(sel.Enabled) != 1 || sel.Enabled[0] != "fast" {
		t.Fatalf("expected allowlist from the token, got %v", sel.Enabled)
	}

	sel = modelSelection(c, "")
	if sel.Alias != services.AliasAuto {
		t.Fatalf("expected auto alias for empty request, got %q", sel.Alias)
	}
}

func TestModelSelectionWithoutAllowlist(t *testing.T) {
	c := authedContext(t, nil)
	sel := modelSelection(c, "balanced")
	if sel.Enabled != nil {
		t.Fatalf("expected open catalogue, got %v", sel.Enabled)
	}
}
