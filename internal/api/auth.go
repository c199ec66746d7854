package api

import (
	"net/http"

	"amcdesk/internal/auth"
	"amcdesk/internal/models"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, r, invalid("email and password are required"))
		return
	}
	tok, u, err := h.d.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, loginResponse{Token: tok, User: u})
}

// Me: текущий администратор по токену.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	c, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, r, auth.ErrUnauthorized)
		return
	}
	u, err := h.d.Stores.Users.Get(r.Context(), c.UserID())
	if err != nil {
		writeError(w, r, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, u)
}

// Logout: токены не хранятся на сервере, клиент просто забывает свой.
func (h *Handler) Logout(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	s, err := h.d.Dashboard.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, s)
}
