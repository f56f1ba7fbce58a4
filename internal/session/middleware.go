package session

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ctxKey string

const sessionKey ctxKey = "session"

const DefaultCookieName = "shop_session"

// Manager resolves a Session for every request and writes it back after
// the handler when something changed.
type Manager struct {
	Store      Store
	Tokens     *TokenMaker
	CookieName string
	TTL        time.Duration
	Log        *zap.Logger
}

func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey).(*Session)
	return s, ok
}

func (m *Manager) cookieName() string {
	if m.CookieName != "" {
		return m.CookieName
	}
	return DefaultCookieName
}

func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid, fresh := m.resolveID(r)

		values, _, err := m.Store.Load(r.Context(), sid)
		if err != nil {
			// The session is a convenience cache, not a system of record;
			// serve the request with an empty one rather than fail it.
			if m.Log != nil {
				m.Log.Warn("session load failed", zap.Error(err), zap.String("sid", sid))
			}
			values = nil
		}

		sess := New(sid, values)

		if fresh {
			if err := m.setCookie(w, sid); err != nil {
				if m.Log != nil {
					m.Log.Error("session cookie issue failed", zap.Error(err))
				}
				next.ServeHTTP(w, r)
				return
			}
		}

		ctx := context.WithValue(r.Context(), sessionKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))

		if !sess.Modified() {
			return
		}
		if err := m.Store.Save(r.Context(), sid, sess.Snapshot()); err != nil && m.Log != nil {
			m.Log.Error("session save failed", zap.Error(err), zap.String("sid", sid))
		}
	})
}

// resolveID returns the session id from the request cookie, or mints a new
// one when the cookie is missing or fails verification.
func (m *Manager) resolveID(r *http.Request) (sid string, fresh bool) {
	if c, err := r.Cookie(m.cookieName()); err == nil {
		if sid, err := m.Tokens.Parse(c.Value); err == nil {
			return sid, false
		}
	}
	return "s_" + uuid.NewString(), true
}

func (m *Manager) setCookie(w http.ResponseWriter, sid string) error {
	tok, err := m.Tokens.New(sid, m.TTL)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName(),
		Value:    tok,
		Path:     "/",
		MaxAge:   int(m.TTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
