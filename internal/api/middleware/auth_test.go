package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func runAuth(t *testing.T, header string) (*httptest.ResponseRecorder, string, bool) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var userID string
	called := false
	handler := Auth("secret")(func(c echo.Context) error {
		called = true
		userID, _ = c.Get(UserIDKey).(string)
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec, userID, called
}

func TestAuthMiddleware_SubjectClaim(t *testing.T) {
	token := sign(t, jwt.SigningMethodHS256, []byte("secret"), jwt.MapClaims{
		"sub": "user_1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	rec, userID, called := runAuth(t, "Bearer "+token)

	if !called {
		t.Fatalf("next not called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if userID != "user_1" {
		t.Fatalf("expected user_1, got %q", userID)
	}
}

func TestAuthMiddleware_UserIDClaimFallback(t *testing.T) {
	token := sign(t, jwt.SigningMethodHS256, []byte("secret"), jwt.MapClaims{"user_id": "user_2"})

	_, userID, called := runAuth(t, "bearer "+token)

	if !called || userID != "user_2" {
		t.Fatalf("expected user_2 to pass through, got %q (called=%v)", userID, called)
	}
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	noSubject := sign(t, jwt.SigningMethodHS256, []byte("secret"), jwt.MapClaims{"role": "admin"})
	wrongKey := sign(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"sub": "user_1"})
	expired := sign(t, jwt.SigningMethodHS256, []byte("secret"), jwt.MapClaims{
		"sub": "user_1",
		"exp": time.Now().Add(-time.Minute).Unix(),
	})
	wrongAlg := sign(t, jwt.SigningMethodHS512, []byte("secret"), jwt.MapClaims{"sub": "user_1"})

	cases := map[string]string{
		"missing header":  "",
		"wrong scheme":    "Token abc",
		"garbage token":   "Bearer not-a-token",
		"no subject":      "Bearer " + noSubject,
		"wrong key":       "Bearer " + wrongKey,
		"expired":         "Bearer " + expired,
		"wrong algorithm": "Bearer " + wrongAlg,
	}

	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			rec, _, called := runAuth(t, header)
			if called {
				t.Fatalf("should not reach next")
			}
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
		})
	}
}
