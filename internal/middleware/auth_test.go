package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin", RequireRole("admin"), func(c *gin.Context) {
		id, role := CurrentUser(c)
		c.String(http.StatusOK, id+":"+role)
	})
	return r
}

func TestRequireRole(t *testing.T) {
	SetJWTSecret("test-secret")
	r := newAuthRouter()
	exp := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name     string
		header   string
		cookie   string
		wantCode int
		wantBody string
	}{
		{name: "missing", wantCode: http.StatusUnauthorized},
		{name: "bad scheme", header: "Token abc", wantCode: http.StatusUnauthorized},
		{name: "wrong secret", header: "Bearer " + signToken(t, "other", jwt.MapClaims{"sub": "u1", "role": "admin", "exp": exp}), wantCode: http.StatusUnauthorized},
		{name: "expired", header: "Bearer " + signToken(t, "test-secret", jwt.MapClaims{"sub": "u1", "role": "admin", "exp": time.Now().Add(-time.Hour).Unix()}), wantCode: http.StatusUnauthorized},
		{name: "agent", header: "Bearer " + signToken(t, "test-secret", jwt.MapClaims{"sub": "u1", "role": "agent", "exp": exp}), wantCode: http.StatusForbidden},
		{name: "no subject", header: "Bearer " + signToken(t, "test-secret", jwt.MapClaims{"role": "admin", "exp": exp}), wantCode: http.StatusUnauthorized},
		{name: "admin header", header: "Bearer " + signToken(t, "test-secret", jwt.MapClaims{"sub": "u1", "role": "admin", "exp": exp}), wantCode: http.StatusOK, wantBody: "u1:admin"},
		{name: "admin cookie", cookie: signToken(t, "test-secret", jwt.MapClaims{"sub": "u2", "role": "admin", "exp": exp}), wantCode: http.StatusOK, wantBody: "u2:admin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "access_token", Value: tt.cookie})
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.wantCode, w.Body.String())
			}
			if tt.wantBody != "" && w.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := NewRateLimiter(0.001, 2)
	r := gin.New()
	r.POST("/withdrawals", limiter.Limit(), func(c *gin.Context) { c.Status(http.StatusCreated) })

	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/withdrawals", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	for i := 0; i < 2; i++ {
		if code := send("10.0.0.1"); code != http.StatusCreated {
			t.Fatalf("request %d = %d, want 201", i, code)
		}
	}
	if code := send("10.0.0.1"); code != http.StatusTooManyRequests {
		t.Errorf("over burst = %d, want 429", code)
	}
	if code := send("10.0.0.2"); code != http.StatusCreated {
		t.Errorf("other client = %d, want 201", code)
	}
}
