package handlers

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/hugh/staff-manager/internal/guard"
)

// PageHandler serves the single-page app shell for browser routes. Without a build
// directory it answers with a small JSON description of the page instead.
type PageHandler struct {
	staticDir string
}

func NewPageHandler(staticDir string) *PageHandler {
	return &PageHandler{staticDir: staticDir}
}

type pageInfo struct {
	Page   string `json:"page"`
	UserID uint   `json:"userId,omitempty"`
	Role   string `json:"role,omitempty"`
}

// Serve renders a guarded page.
func (h *PageHandler) Serve(w http.ResponseWriter, r *http.Request) {
	if h.serveIndex(w, r) {
		return
	}

	info := pageInfo{Page: r.URL.Path}
	if claims := guard.ClaimsFromRequest(r); claims != nil {
		info.UserID = claims.UserID
		info.Role = claims.Role
	}
	writeJSON(w, http.StatusOK, info)
}

// Login renders the public sign-in page.
func (h *PageHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h.serveIndex(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, pageInfo{Page: r.URL.Path})
}

// Assets serves the app's static files when a build directory is configured.
func (h *PageHandler) Assets() http.Handler {
	if h.staticDir == "" {
		return http.NotFoundHandler()
	}
	return http.FileServer(http.Dir(h.staticDir))
}

func (h *PageHandler) serveIndex(w http.ResponseWriter, r *http.Request) bool {
	if h.staticDir == "" {
		return false
	}
	index := filepath.Join(h.staticDir, "index.html")
	if _, err := os.Stat(index); err != nil {
		return false
	}
	w.Header().Set("Cache-Control", "no-store")
	http.ServeFile(w, r, index)
	return true
}
