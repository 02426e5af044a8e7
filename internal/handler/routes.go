package handler

import (
	"log/slog"
	"net/http"

	"github.com/msomdec/featurevote/internal/metrics"
	"github.com/msomdec/featurevote/internal/service"
)

// Deps are the collaborators the HTTP surface needs.
type Deps struct {
	Auth         *service.AuthService
	Features     *service.FeatureService
	Votes        *service.VoteService
	DB           Pinger
	Metrics      *metrics.Metrics
	LoginLimiter *service.TokenBucket
	CORSOrigins  []string
	Logger       *slog.Logger
}

// RegisterRoutes sets up all HTTP routes on the given mux.
func RegisterRoutes(mux *http.ServeMux, d Deps) {
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}
	authHandler := NewAuthHandler(d.Auth, d.Metrics)
	featureHandler := NewFeatureHandler(d.Features, d.Votes)
	voteHandler := NewVoteHandler(d.Votes, d.Metrics)
	homeHandler := NewHomeHandler(d.Features)

	requireAuth := func(h http.HandlerFunc) http.Handler { return RequireAuth(d.Auth, h) }

	mux.HandleFunc("GET /{$}", homeHandler.HandleHome)
	mux.HandleFunc("GET /health", HandleHealth)
	mux.HandleFunc("GET /healthz", HandleHealthz)
	mux.Handle("GET /readyz", HandleReadyz(d.DB))
	mux.Handle("GET /metrics", d.Metrics.Handler())

	// Auth
	mux.HandleFunc("POST /auth/register", authHandler.HandleRegister)
	login := http.Handler(http.HandlerFunc(authHandler.HandleLogin))
	if d.LoginLimiter != nil {
		login = RateLimit(d.LoginLimiter, func() { d.Metrics.LoginResult(metrics.LoginRateLimited) }, login)
	}
	mux.Handle("POST /auth/login", login)
	mux.Handle("GET /auth/me", requireAuth(authHandler.HandleMe))

	// Features; collection routes answer with and without the trailing slash.
	for _, p := range []string{"/features", "/features/{$}"} {
		mux.Handle("POST "+p, requireAuth(featureHandler.HandleCreate))
		mux.HandleFunc("GET "+p, featureHandler.HandleList)
	}
	mux.Handle("GET /features/{id}", OptionalAuth(d.Auth, http.HandlerFunc(featureHandler.HandleGet)))

	// Votes
	for _, p := range []string{"/votes", "/votes/{$}"} {
		mux.Handle("POST "+p, requireAuth(voteHandler.HandleCast))
	}
	mux.Handle("DELETE /votes/{feature_id}", requireAuth(voteHandler.HandleRetract))
}

// New builds the complete HTTP handler: routes wrapped in the middleware
// chain, outermost first: Recover, RequestID, LogRequests, Instrument,
// SecurityHeaders, CORS.
func New(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}

	mux := http.NewServeMux()
	RegisterRoutes(mux, d)

	var h http.Handler = mux
	h = CORS(d.CORSOrigins, h)
	h = SecurityHeaders(h)
	h = Instrument(d.Metrics, h)
	h = LogRequests(d.Logger, h)
	h = RequestID(h)
	h = Recover(h)
	return h
}
