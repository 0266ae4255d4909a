package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/Cheertaboi/storefront-checkout/internal/session"
	"github.com/Cheertaboi/storefront-checkout/internal/shopper"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionView is what the browser learns about its session. The token
// itself never leaves the server.
type SessionView struct {
	Authenticated bool         `json:"authenticated"`
	Username      string       `json:"username,omitempty"`
	Role          session.Role `json:"role,omitempty"`
	Admin         bool         `json:"admin"`
	Message       string       `json:"message,omitempty"`
}

func viewOf(s *session.Session) SessionView {
	if s == nil {
		return SessionView{}
	}
	return SessionView{Authenticated: true, Username: s.Username, Role: s.Role, Admin: s.IsAdmin()}
}

type AuthHandler struct {
	base
}

func NewAuthHandler(reg *shopper.Registry, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{base{reg: reg, log: log}}
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err, "")
		return
	}
	s, ok := h.shopper(w, r)
	if !ok {
		return
	}
	sess, err := s.Session.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.fail(w, r, err, "login failed")
		return
	}
	writeJSON(w, http.StatusOK, viewOf(sess))
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err, "")
		return
	}
	s, ok := h.shopper(w, r)
	if !ok {
		return
	}
	sess, err := s.Session.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.fail(w, r, err, "registration failed")
		return
	}
	view := viewOf(sess)
	if sess == nil {
		view.Message = "registration successful, please log in"
	}
	writeJSON(w, http.StatusCreated, view)
}

// Logout handles POST /api/auth/logout
// drops the session and the cart that went with it
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	s, ok := h.shopper(w, r)
	if !ok {
		return
	}
	if err := h.reg.Logout(r.Context(), s.ID); err != nil {
		h.fail(w, r, err, "logout failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Session handles GET /api/auth/session
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	s, ok := h.shopper(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, viewOf(s.Session.Current()))
}

// RequireAdmin guards admin-only routes. The backend still authorizes the
// call; this only keeps non-admins from reaching it.
func (h *AuthHandler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := h.shopper(w, r)
		if !ok {
			return
		}
		sess := s.Session.Current()
		switch {
		case sess == nil:
			writeMessage(w, http.StatusUnauthorized, "please log in")
		case !sess.IsAdmin():
			writeMessage(w, http.StatusForbidden, "admin access required")
		default:
			next.ServeHTTP(w, r)
		}
	})
}
