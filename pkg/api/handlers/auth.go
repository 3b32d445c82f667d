package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"chathub/pkg/auth"
	"chathub/pkg/logger"
	"chathub/pkg/models"
	"chathub/pkg/utils"
	"chathub/pkg/validation"
)

type registerRequest struct {
	Username          string `json:"username"`
	Password          string `json:"password"`
	DisplayName       string `json:"displayName"`
	PreferredLanguage string `json:"preferredLanguage"`
}

type authResponse struct {
	User   *models.User    `json:"user"`
	Tokens *auth.TokenPair `json:"tokens"`
}

// register handles POST /v1/auth/register.
func (a *API) register(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := validation.Username(req.Username); err != nil {
		utils.JSONErrorFrom(w, err)
		return
	}
	if err := validation.Language(req.PreferredLanguage); err != nil {
		utils.JSONErrorFrom(w, err)
		return
	}
	if err := validation.DisplayName(req.DisplayName); err != nil {
		utils.JSONErrorFrom(w, err)
		return
	}
	hash, err := auth.HashPassword(req.Password, a.Cfg.Auth.BcryptCost)
	if err != nil {
		utils.JSONErrorFrom(w, err)
		return
	}
	u, err := a.Store.CreateUser(req.Username, req.DisplayName, req.PreferredLanguage, hash)
	if err != nil {
		utils.JSONErrorFrom(w, err)
		return
	}
	pair, err := a.Tokens.Issue(u.ID, u.Username)
	if err != nil {
		utils.JSONErrorFrom(w, err)
		return
	}
	logger.Info("user_registered", "user", u.ID, "username", u.Username)
	_ = utils.JSONWrite(w, http.StatusCreated, authResponse{User: u, Tokens: pair})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// login handles POST /v1/auth/login.
func (a *API) login(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	u, err := a.Store.GetUserByUsername(req.Username)
	if err != nil {
		// do not reveal whether the account exists
		utils.JSONError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err := auth.VerifyPassword(u.PasswordHash, req.Password); err != nil {
		logger.Warn("login_failed", "username", req.Username, "remote", r.RemoteAddr)
		utils.JSONError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	pair, err := a.Tokens.Issue(u.ID, u.Username)
	if err != nil {
		utils.JSONErrorFrom(w, err)
		return
	}
	logger.Info("login_ok", "user", u.ID)
	_ = utils.JSONWrite(w, http.StatusOK, authResponse{User: u, Tokens: pair})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// refresh handles POST /v1/auth/refresh.
func (a *API) refresh(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	pair, claims, err := a.Tokens.Refresh(req.RefreshToken)
	if err != nil {
		utils.JSONErrorFrom(w, err)
		return
	}
	// the account may have been removed since the token was issued
	if _, err := a.Store.GetUser(claims.UserID); err != nil {
		utils.JSONError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	logger.Info("token_refreshed", "user", claims.UserID, "at", time.Now().UTC().Format(time.RFC3339))
	_ = utils.JSONWrite(w, http.StatusOK, map[string]*auth.TokenPair{"tokens": pair})
}
