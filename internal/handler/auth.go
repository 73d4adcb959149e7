package handler

import (
	"fmt"
	"mime"
	"net/http"

	"coffeeshop-be/internal/user"
	"coffeeshop-be/internal/utils"
)

type AuthHandler struct {
	users user.Service
}

func NewAuthHandler(users user.Service) *AuthHandler {
	return &AuthHandler{users: users}
}

func isJSON(r *http.Request) bool {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return mt == "application/json"
}

// Token is the password grant: form fields username and password.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var username, password string
	if isJSON(r) {
		var body struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := utils.DecodeJSON(w, r, &body); err != nil {
			WriteError(w, r, fmt.Errorf("%w: %v", ErrBadRequest, err))
			return
		}
		username, password = body.Username, body.Password
	} else {
		if err := r.ParseForm(); err != nil {
			WriteError(w, r, fmt.Errorf("%w: %v", ErrBadRequest, err))
			return
		}
		username, password = r.PostFormValue("username"), r.PostFormValue("password")
	}

	if username == "" || password == "" {
		WriteError(w, r, fmt.Errorf("%w: username and password are required", ErrBadRequest))
		return
	}

	pair, err := h.users.Login(r.Context(), username, password)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, pair)
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in user.RegisterInput
	if err := utils.DecodeJSON(w, r, &in); err != nil {
		WriteError(w, r, fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}

	u, err := h.users.Register(r.Context(), in)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, u)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var token string
	if isJSON(r) {
		var body struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := utils.DecodeJSON(w, r, &body); err != nil {
			WriteError(w, r, fmt.Errorf("%w: %v", ErrBadRequest, err))
			return
		}
		token = body.RefreshToken
	} else {
		if err := r.ParseForm(); err != nil {
			WriteError(w, r, fmt.Errorf("%w: %v", ErrBadRequest, err))
			return
		}
		token = r.PostFormValue("refresh_token")
	}

	pair, err := h.users.Refresh(r.Context(), token)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, pair)
}
