package server

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const testSecret = "test-secret"

func signedToken(t *testing.T, secret, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": subject})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func identityProbe(t *testing.T) (http.Handler, *uuid.UUID, *bool) {
	t.Helper()
	var gotID uuid.UUID
	var gotOK bool
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, gotOK = UserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	return identityMiddleware(testSecret, slog.Default())(inner), &gotID, &gotOK
}

func TestIdentityMiddleware_ValidToken(t *testing.T) {
	handler, gotID, gotOK := identityProbe(t)
	userID := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/api/chat/ask", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, testSecret, userID.String()))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !*gotOK {
		t.Fatal("expected user in context")
	}
	if *gotID != userID {
		t.Errorf("expected user %s, got %s", userID, *gotID)
	}
}

func TestIdentityMiddleware_NoHeaderPassesThrough(t *testing.T) {
	handler, _, gotOK := identityProbe(t)

	req := httptest.NewRequest(http.MethodPost, "/api/chat/ask", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if *gotOK {
		t.Error("expected no user in context without a token")
	}
}

func TestIdentityMiddleware_RejectsBadSignature(t *testing.T) {
	handler, _, _ := identityProbe(t)

	req := httptest.NewRequest(http.MethodPost, "/api/chat/ask", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "wrong-secret", uuid.NewString()))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad signature, got %d", rec.Code)
	}
}

func TestIdentityMiddleware_RejectsMalformedHeader(t *testing.T) {
	handler, _, _ := identityProbe(t)

	req := httptest.NewRequest(http.MethodPost, "/api/chat/ask", nil)
	req.Header.Set("Authorization", "Token abc123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for malformed header, got %d", rec.Code)
	}
}

func TestIdentityMiddleware_RejectsNonUUIDSubject(t *testing.T) {
	handler, _, _ := identityProbe(t)

	req := httptest.NewRequest(http.MethodPost, "/api/chat/ask", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, testSecret, "not-a-uuid"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for non-UUID subject, got %d", rec.Code)
	}
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	handler := corsMiddleware([]string{"https://portal.example.edu"})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("preflight request reached the inner handler")
		}))

	req := httptest.NewRequest(http.MethodOptions, "/api/chat/ask", nil)
	req.Header.Set("Origin", "https://portal.example.edu")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204 for preflight, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://portal.example.edu" {
		t.Errorf("expected allowed origin echoed, got %q", got)
	}
}

func TestCORSMiddleware_DisallowedOrigin(t *testing.T) {
	handler := corsMiddleware([]string{"https://portal.example.edu"})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no CORS headers for disallowed origin, got %q", got)
	}
}
