package adapthttp

import (
	"net/http"

	"microblog/internal/app"
)

// Server is the driving HTTP adapter that routes requests to application
// services.
type Server struct {
	authSvc    *app.AuthService
	feed       *app.FeedService
	stats      *app.StatsService
	oidcConfig OIDCConfig
	webDir     string
}

// New creates a Server wired to the given application services.
func New(as *app.AuthService, fs *app.FeedService, ss *app.StatsService, oc OIDCConfig, webDir string) *Server {
	return &Server{authSvc: as, feed: fs, stats: ss, oidcConfig: oc, webDir: webDir}
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	api.HandleFunc("/config", s.handleConfig)
	api.HandleFunc("/register", s.handleRegister)
	api.HandleFunc("/login", s.handleLogin)
	api.HandleFunc("/logout", s.handleLogout)
	api.HandleFunc("/sso/login", s.handleSSOLogin)
	api.HandleFunc("/sso/callback", s.handleSSOCallback)
	api.HandleFunc("GET /posts", s.handleListPosts)

	authed := http.NewServeMux()
	authed.HandleFunc("GET /me", s.handleMe)
	authed.HandleFunc("GET /feed", s.handleFeed)
	authed.HandleFunc("POST /posts", s.handleCreatePost)
	authed.HandleFunc("POST /posts/{id}/like", s.handleToggleLike)
	authed.HandleFunc("GET /charts/daily", s.handleChartsDaily)
	api.Handle("/", s.authMiddleware(authed))

	root := http.NewServeMux()
	root.Handle("/api/", http.StripPrefix("/api", api))
	root.Handle("/", spaFromDisk(s.webDir))

	return s.loggingMiddleware(withNoCache(root))
}
