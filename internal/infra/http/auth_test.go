package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"eventscout/internal/domain"
)

func TestIssueAndParseToken(t *testing.T) {
	user := domain.User{
		ID:    7,
		Email: "user@example.com",
		Name:  "User",
		Tier:  domain.TierPro,
		Role:  domain.RolePerson,
	}
	token, err := IssueToken("secret", time.Hour, user)
	if err != nil {
		t.Fatalf("выпуск токена: %v", err)
	}

	var got Identity
	handler := AuthMiddleware("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = IdentityFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d", rec.Code)
	}
	if got.UserID != 7 || got.Email != "user@example.com" || got.Tier != domain.TierPro {
		t.Fatalf("identity = %+v", got)
	}
}

func TestAuthMiddlewareRejectsGarbage(t *testing.T) {
	handler := AuthMiddleware("secret")(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("обработчик не должен вызываться")
	}))

	for _, header := range []string{"", "Bearer garbage", "Basic abc"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("заголовок %q дал статус %d", header, rec.Code)
		}
	}
}

func TestAuthMiddlewareRejectsWrongSecret(t *testing.T) {
	token, err := IssueToken("secret-a", time.Hour, domain.User{ID: 1, Email: "a@b.c"})
	if err != nil {
		t.Fatalf("выпуск токена: %v", err)
	}
	handler := AuthMiddleware("secret-b")(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("обработчик не должен вызываться")
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("статус = %d", rec.Code)
	}
}
