package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/msomdec/featurevote/internal/domain"
	"github.com/msomdec/featurevote/internal/metrics"
	"github.com/msomdec/featurevote/internal/service"
)

// AuthHandler handles authentication-related HTTP requests.
type AuthHandler struct {
	auth    *service.AuthService
	metrics *metrics.Metrics
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth *service.AuthService, m *metrics.Metrics) *AuthHandler {
	return &AuthHandler{auth: auth, metrics: m}
}

// HandleRegister processes a JSON registration request.
// POST /auth/register
// Request:  {"name":"...","email":"...","password":"..."}
// Response: {"id":1,"name":"...","email":"...","created_at":"..."}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}

	user, err := h.auth.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err, "Not found")
		return
	}

	slog.Info("user registered", "user_id", user.ID)
	writeJSON(w, http.StatusOK, toUserDTO(user))
}

// HandleLogin processes an OAuth2 password-style form login. The email
// travels in the username field.
// POST /auth/login
// Request:  username=...&password=...
// Response: {"access_token":"...","token_type":"bearer"}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Invalid form body")
		return
	}
	email := r.PostForm.Get("username")
	password := r.PostForm.Get("password")
	if email == "" {
		writeValidationError(w, "username", "username is required")
		return
	}
	if password == "" {
		writeValidationError(w, "password", "password is required")
		return
	}

	token, err := h.auth.Login(r.Context(), email, password)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			h.metrics.LoginResult(metrics.LoginFailure)
			writeError(w, http.StatusUnauthorized, "Incorrect email or password")
			return
		}
		writeServiceError(w, r, err, "Not found")
		return
	}

	h.metrics.LoginResult(metrics.LoginSuccess)
	writeJSON(w, http.StatusOK, TokenDTO{AccessToken: token, TokenType: "bearer"})
}

// HandleMe returns the currently authenticated user.
// GET /auth/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(user))
}
