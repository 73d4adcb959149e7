package handler

import (
	"context"
	"net/http"

	"coffeeshop-be/internal/auth"
	"coffeeshop-be/internal/user"
	"coffeeshop-be/internal/utils"
)

type AdminHandler struct {
	users user.Service
}

func NewAdminHandler(users user.Service) *AdminHandler {
	return &AdminHandler{users: users}
}

func (h *AdminHandler) ToggleAdmin(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.users.ToggleAdmin)
}

func (h *AdminHandler) ToggleActive(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.users.ToggleActive)
}

type toggleFunc func(ctx context.Context, actor auth.Principal, id int64) (*user.User, error)

func (h *AdminHandler) toggle(w http.ResponseWriter, r *http.Request, fn toggleFunc) {
	p, err := principal(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	id, err := utils.ParseID(r.PathValue("id"))
	if err != nil {
		WriteError(w, r, err)
		return
	}

	u, err := fn(r.Context(), p, id)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, u)
}
