package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/msomdec/featurevote/internal/domain"
	"github.com/msomdec/featurevote/internal/handler"
	"github.com/msomdec/featurevote/internal/metrics"
	"github.com/msomdec/featurevote/internal/repository/sqlite"
	"github.com/msomdec/featurevote/internal/service"
)

const testJWTSecret = "test-secret-for-handler-tests-0123456789"

type testApp struct {
	db       *sqlite.DB
	auth     *service.AuthService
	tokens   *service.TokenService
	features *service.FeatureService
	votes    *service.VoteService
	metrics  *metrics.Metrics
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := sqlite.New(dbPath)
	if err != nil {
		t.Fatalf("New DB: %v", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	tokens := service.NewTokenService(testJWTSecret, time.Minute)
	return &testApp{
		db:       db,
		auth:     service.NewAuthService(db.Users(), service.BcryptHasher{Cost: 4}, tokens),
		tokens:   tokens,
		features: service.NewFeatureService(db.Features()),
		votes:    service.NewVoteService(db.Features(), db.Votes()),
		metrics:  metrics.New(),
	}
}

func (a *testApp) deps() handler.Deps {
	return handler.Deps{
		Auth:        a.auth,
		Features:    a.features,
		Votes:       a.votes,
		DB:          a.db,
		Metrics:     a.metrics,
		CORSOrigins: []string{"http://localhost:3000"},
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func (a *testApp) server(t *testing.T) *httptest.Server {
	t.Helper()
	return newServer(t, a.deps())
}

func newServer(t *testing.T, d handler.Deps) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler.New(d))
	t.Cleanup(srv.Close)
	return srv
}

// registerAndLogin creates a user directly through the service and returns
// the user with a valid token.
func (a *testApp) registerAndLogin(t *testing.T, name string) (*domain.User, string) {
	t.Helper()
	ctx := context.Background()
	email := name + "@example.com"
	user, err := a.auth.Register(ctx, name, email, "password123")
	if err != nil {
		t.Fatalf("Register %s: %v", name, err)
	}
	token, err := a.auth.Login(ctx, email, "password123")
	if err != nil {
		t.Fatalf("Login %s: %v", name, err)
	}
	return user, token
}

func decodeBody(t *testing.T, body io.Reader) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(body).Decode(&out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return out
}

func TestRequireAuth_ValidToken(t *testing.T) {
	app := newTestApp(t)
	_, token := app.registerAndLogin(t, "valid")

	var gotUser string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user := handler.UserFromContext(r.Context()); user != nil {
			gotUser = user.Name
		}
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	handler.RequireAuth(app.auth, inner).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if gotUser != "valid" {
		t.Fatalf("expected user 'valid', got %q", gotUser)
	}
}

func TestRequireAuth_Rejects(t *testing.T) {
	app := newTestApp(t)
	_, token := app.registerAndLogin(t, "tamper")
	parts := strings.Split(token, ".")
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	tests := []struct {
		name   string
		header string
		detail string
	}{
		{"missing header", "", "Not authenticated"},
		{"wrong scheme", "Basic " + token, "Not authenticated"},
		{"invalid token", "Bearer invalid.jwt.token", "Could not validate credentials"},
		{"tampered token", "Bearer " + tampered, "Could not validate credentials"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("inner handler should not be called")
			})

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()

			handler.RequireAuth(app.auth, inner).ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", w.Code)
			}
			if got := w.Header().Get("WWW-Authenticate"); got != "Bearer" {
				t.Fatalf("expected WWW-Authenticate Bearer, got %q", got)
			}
			if body := decodeBody(t, w.Body); body["detail"] != tc.detail {
				t.Fatalf("expected detail %q, got %v", tc.detail, body["detail"])
			}
		})
	}
}

func TestRequireAuth_DeletedUser(t *testing.T) {
	app := newTestApp(t)
	user, token := app.registerAndLogin(t, "gone")

	if _, err := app.db.SqlDB.Exec("DELETE FROM users WHERE id = ?", user.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("inner handler should not be called")
	})
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	handler.RequireAuth(app.auth, inner).ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestOptionalAuth(t *testing.T) {
	app := newTestApp(t)
	_, token := app.registerAndLogin(t, "optional")

	tests := []struct {
		name     string
		header   string
		wantUser bool
	}{
		{"no token", "", false},
		{"valid token", "Bearer " + token, true},
		{"invalid token", "Bearer nope", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var called, gotUser bool
			inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				gotUser = handler.UserFromContext(r.Context()) != nil
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			handler.OptionalAuth(app.auth, inner).ServeHTTP(httptest.NewRecorder(), req)

			if !called {
				t.Fatal("inner handler should always be called")
			}
			if gotUser != tc.wantUser {
				t.Fatalf("expected user present = %v, got %v", tc.wantUser, gotUser)
			}
		})
	}
}

func TestRecover(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	handler.Recover(inner).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if body := decodeBody(t, w.Body); body["detail"] != "Internal server error" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = handler.RequestIDFromContext(r.Context())
	})
	h := handler.RequestID(inner)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if len(seen) != 26 {
		t.Fatalf("expected generated ULID, got %q", seen)
	}
	if got := w.Header().Get("X-Request-ID"); got != seen {
		t.Fatalf("expected response header %q, got %q", seen, got)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "abc-123" {
		t.Fatalf("expected incoming id to be kept, got %q", seen)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "bad id\nwith newline")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen == "bad id\nwith newline" || len(seen) != 26 {
		t.Fatalf("expected malformed id to be replaced, got %q", seen)
	}
}

func TestSecurityHeaders(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	w := httptest.NewRecorder()
	handler.SecurityHeaders(inner).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
	} {
		if got := w.Header().Get(header); got != want {
			t.Fatalf("%s: expected %q, got %q", header, want, got)
		}
	}
}

func TestCORS(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := handler.CORS([]string{"http://localhost:3000"}, inner)

	t.Run("preflight from allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/features/", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", "POST")
		req.Header.Set("Access-Control-Request-Headers", "authorization, content-type")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		if w.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", w.Code)
		}
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
			t.Fatalf("unexpected allow origin %q", got)
		}
		if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
			t.Fatalf("unexpected allow credentials %q", got)
		}
		if got := w.Header().Get("Access-Control-Allow-Headers"); got != "authorization, content-type" {
			t.Fatalf("unexpected allow headers %q", got)
		}
	})

	t.Run("simple request from allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/features/", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
			t.Fatalf("unexpected allow origin %q", got)
		}
	})

	t.Run("other origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/features/", nil)
		req.Header.Set("Origin", "http://evil.example")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Fatalf("expected no allow origin, got %q", got)
		}
	})
}

func TestRateLimit(t *testing.T) {
	limited := 0
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := handler.RateLimit(service.NewTokenBucket(0, 2), func() { limited++ }, inner)

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(""))
		req.RemoteAddr = "192.0.2.1:1234"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status codes %v", codes)
	}
	if limited != 1 {
		t.Fatalf("expected onLimited to run once, ran %d times", limited)
	}

	// A different client has its own bucket.
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "192.0.2.2:1234"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected other client to pass, got %d", w.Code)
	}
}
