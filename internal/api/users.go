package api

import (
	"net/http"

	"amcdesk/internal/models"
)

// UsersList: учётные записи для выбора участников организации; ?search= по email, имени и телефону.
func (h *Handler) UsersList(w http.ResponseWriter, r *http.Request) {
	p, err := pageFrom(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	env, err := h.d.Stores.Users.List(r.Context(), r.URL.Query().Get("search"), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, env)
}
