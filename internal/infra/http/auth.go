package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"eventscout/internal/domain"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity — данные аутентифицированного пользователя из JWT.
type Identity struct {
	UserID int64
	Email  string
	Name   string
	Tier   domain.Tier
	Role   domain.UserRole
}

type apiClaims struct {
	UserID int64  `json:"uid"`
	Name   string `json:"name"`
	Tier   string `json:"tier"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken выписывает подписанный JWT для пользователя.
func IssueToken(secret string, ttl time.Duration, user domain.User) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("jwt: не задан секрет")
	}
	now := time.Now()
	claims := apiClaims{
		UserID: user.ID,
		Name:   user.Name,
		Tier:   string(user.Tier),
		Role:   string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// AuthMiddleware проверяет Bearer JWT и кладёт Identity в контекст запроса.
func AuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				WriteError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			raw := strings.TrimPrefix(header, "Bearer ")
			var claims apiClaims
			token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("jwt: неожиданный метод подписи %v", t.Header["alg"])
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				WriteError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			identity := Identity{
				UserID: claims.UserID,
				Email:  claims.Subject,
				Name:   claims.Name,
				Tier:   domain.Tier(claims.Tier),
				Role:   domain.UserRole(claims.Role),
			}
			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext возвращает Identity текущего запроса.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}

// RequireRole закрывает ветку роутера для всех, кроме указанной роли.
func RequireRole(role domain.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				WriteError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			if identity.Role != role {
				WriteError(w, http.StatusForbidden, "organizer access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
