package web

import (
	"encoding/base64"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/wod-scheduler/internal/config"
)

const sessionCookie = "wodsched_session"

// sessionManager gates the dashboard behind a single shared password.
// Cookie keys come from the config; when absent, fresh random keys are
// generated and sessions do not survive restarts.
type sessionManager struct {
	sc           *securecookie.SecureCookie
	passwordHash string
}

func newSessionManager(cfg config.Dashboard) *sessionManager {
	hashKey := keyOrRandom(cfg.CookieHashKey, 32)
	blockKey := keyOrRandom(cfg.CookieBlockKey, 32)
	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(int((14 * 24 * time.Hour).Seconds()))
	return &sessionManager{sc: sc, passwordHash: cfg.PasswordHash}
}

func keyOrRandom(encoded string, n int) []byte {
	if encoded != "" {
		if b, err := base64.StdEncoding.DecodeString(encoded); err == nil && len(b) > 0 {
			return b
		}
	}
	return securecookie.GenerateRandomKey(n)
}

func (m *sessionManager) checkPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(m.passwordHash), []byte(password)) == nil
}

func (m *sessionManager) set(w http.ResponseWriter) error {
	encoded, err := m.sc.Encode(sessionCookie, map[string]string{"v": "1"})
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int((14 * 24 * time.Hour).Seconds()),
	})
	return nil
}

func (m *sessionManager) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

func (m *sessionManager) valid(r *http.Request) bool {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return false
	}
	value := map[string]string{}
	if err := m.sc.Decode(sessionCookie, c.Value, &value); err != nil {
		return false
	}
	return value["v"] == "1"
}

func (m *sessionManager) require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.valid(r) {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.render(w, "templates/login.html", pageData{Title: "wodsched login"})
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		if !s.sessions.checkPassword(r.PostFormValue("password")) {
			s.Logger.Warn().Str("remote", r.RemoteAddr).Msg("dashboard login rejected")
			s.render(w, "templates/login.html", pageData{Title: "wodsched login", Flash: "wrong password"})
			return
		}
		if err := s.sessions.set(w); err != nil {
			http.Error(w, "session error", http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, "/", http.StatusFound)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.sessions.clear(w)
	http.Redirect(w, r, "/login", http.StatusFound)
}
