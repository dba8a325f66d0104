package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"go.uber.org/zap"

	"github.com/petermazzocco/go-pdf-watermark/internal/auth"
	"github.com/petermazzocco/go-pdf-watermark/internal/services"
)

func RegisterHandler(w http.ResponseWriter, r *http.Request, svc *services.UserService, log *zap.Logger) {
	var req services.RegisterInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log, err)
		return
	}
	res, err := svc.Register(r.Context(), req)
	if err != nil {
		writeError(w, r, log, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginHandler returns the session token and also stores it in the cookie session.
func LoginHandler(w http.ResponseWriter, r *http.Request, svc *services.UserService, store sessions.Store, log *zap.Logger) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log, err)
		return
	}
	res, err := svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, log, err)
		return
	}
	if err := auth.SaveCookieToken(store, w, r, res.SessionToken); err != nil {
		log.Warn("failed to save cookie session", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, res)
}

type logoutRequest struct {
	SessionToken string `json:"session_token"`
}

func LogoutHandler(w http.ResponseWriter, r *http.Request, svc *services.UserService, store sessions.Store, log *zap.Logger) {
	var req logoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log, err)
		return
	}
	token := req.SessionToken
	if token == "" {
		token = auth.TokenFromRequest(r, store)
	}
	if err := svc.Logout(r.Context(), token); err != nil {
		writeError(w, r, log, err)
		return
	}
	if err := auth.ClearCookieToken(store, w, r); err != nil {
		log.Warn("failed to clear cookie session", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Session successfully terminated."})
}

func GetProfileHandler(w http.ResponseWriter, r *http.Request, svc *services.UserService, log *zap.Logger) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	profile, err := svc.Profile(r.Context(), id)
	if err != nil {
		writeError(w, r, log, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func UpdateProfileHandler(w http.ResponseWriter, r *http.Request, svc *services.UserService, log *zap.Logger) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	var req services.UpdateProfileInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log, err)
		return
	}
	res, err := svc.UpdateProfile(r.Context(), id, req)
	if err != nil {
		writeError(w, r, log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// OAuthBeginHandler starts the provider flow unless the gothic session is already complete.
func OAuthBeginHandler(w http.ResponseWriter, r *http.Request, svc *services.UserService, store sessions.Store, log *zap.Logger) {
	r = withProvider(r)
	if gothUser, err := gothic.CompleteUserAuth(w, r); err == nil {
		finishOAuth(w, r, svc, store, log, gothUser)
		return
	}
	gothic.BeginAuthHandler(w, r)
}

// OAuthCallbackHandler completes the provider flow, then finds or creates the user.
func OAuthCallbackHandler(w http.ResponseWriter, r *http.Request, svc *services.UserService, store sessions.Store, log *zap.Logger) {
	r = withProvider(r)
	gothUser, err := gothic.CompleteUserAuth(w, r)
	if err != nil {
		log.Info("oauth callback rejected", zap.Error(err))
		writeError(w, r, log, errors.Join(services.ErrUnauthorized, err))
		return
	}
	finishOAuth(w, r, svc, store, log, gothUser)
}

func OAuthLogoutHandler(w http.ResponseWriter, r *http.Request, store sessions.Store, log *zap.Logger) {
	r = withProvider(r)
	if err := gothic.Logout(w, r); err != nil {
		log.Warn("failed to end provider session", zap.Error(err))
	}
	if err := auth.ClearCookieToken(store, w, r); err != nil {
		log.Warn("failed to clear cookie session", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Session successfully terminated."})
}

func finishOAuth(w http.ResponseWriter, r *http.Request, svc *services.UserService, store sessions.Store, log *zap.Logger, gothUser goth.User) {
	res, err := svc.OAuthLogin(r.Context(), gothUser)
	if err != nil {
		writeError(w, r, log, err)
		return
	}
	if err := auth.SaveCookieToken(store, w, r, res.SessionToken); err != nil {
		log.Warn("failed to save cookie session", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, res)
}

func withProvider(r *http.Request) *http.Request {
	return gothic.GetContextWithProvider(r, chi.URLParam(r, "provider"))
}
