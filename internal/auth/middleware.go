package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/sessions"
)

const (
	cookieSessionName = "watermark_session"
	cookieTokenKey    = "session_token"
)

type contextKey string

const (
	userIDKey contextKey = "userID"
	tokenKey  contextKey = "sessionToken"
)

// NewCookieStore builds the gorilla cookie store shared by the session
// middleware and the gothic OAuth flow.
func NewCookieStore(secret string, maxAge int, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.MaxAge(maxAge)
	store.Options.Path = "/"
	store.Options.HttpOnly = true
	store.Options.Secure = secure
	return store
}

// SaveCookieToken stores token in the browser's cookie session.
func SaveCookieToken(store sessions.Store, w http.ResponseWriter, r *http.Request, token string) error {
	session, err := store.Get(r, cookieSessionName)
	if err != nil && session == nil {
		return err
	}
	session.Values[cookieTokenKey] = token
	return session.Save(r, w)
}

// ClearCookieToken expires the cookie session.
func ClearCookieToken(store sessions.Store, w http.ResponseWriter, r *http.Request) error {
	session, err := store.Get(r, cookieSessionName)
	if err != nil && session == nil {
		return err
	}
	delete(session.Values, cookieTokenKey)
	session.Options.MaxAge = -1
	return session.Save(r, w)
}

// UserMiddleware resolves the caller from a bearer token or the cookie session.
func UserMiddleware(s *Sessions, store sessions.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r, store)
			if token == "" {
				unauthorized(w)
				return
			}
			userID, err := s.Verify(r.Context(), token)
			if err != nil {
				unauthorized(w)
				return
			}
			ctx := context.WithValue(r.Context(), userIDKey, userID)
			ctx = context.WithValue(ctx, tokenKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TokenFromRequest prefers the Authorization header over the cookie session.
func TokenFromRequest(r *http.Request, store sessions.Store) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if store == nil {
		return ""
	}
	session, err := store.Get(r, cookieSessionName)
	if err != nil || session == nil {
		return ""
	}
	token, _ := session.Values[cookieTokenKey].(string)
	return token
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)
	return token
}

// WithUserID is used by tests and callers that authenticate out of band.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "Not Authorized"})
}
