package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"amcdesk/internal/controller"
	"amcdesk/internal/models"
)

// EngineersList; ?expertise=repair оставляет только тех, кого можно назначить на такой вид работ.
func (h *Handler) EngineersList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	expertise := models.ServiceType(q.Get("expertise"))
	if expertise != "" && !expertise.Valid() {
		writeError(w, r, invalid("unknown service type %q", expertise))
		return
	}
	rows, err := h.d.Stores.Engineers.List(r.Context(), q.Get("search"), expertise)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rows == nil {
		rows = []models.ServiceEngineer{}
	}
	models.WriteJSON(w, http.StatusOK, rows)
}

func (h *Handler) EngineerGet(w http.ResponseWriter, r *http.Request) {
	e, err := h.d.Stores.Engineers.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, e)
}

func decodeEngineer(r *http.Request) (*models.ServiceEngineer, error) {
	var e models.ServiceEngineer
	if err := decode(r, &e); err != nil {
		return nil, err
	}
	e.ID = ""
	if err := controller.Validate(e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (h *Handler) EngineerCreate(w http.ResponseWriter, r *http.Request) {
	e, err := decodeEngineer(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.d.Stores.Engineers.Create(r.Context(), e); err != nil {
		writeError(w, r, err)
		return
	}
	models.WriteJSON(w, http.StatusCreated, e)
}

func (h *Handler) EngineerUpdate(w http.ResponseWriter, r *http.Request) {
	e, err := decodeEngineer(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	got, err := h.d.Stores.Engineers.Update(r.Context(), mux.Vars(r)["id"], e)
	if err != nil {
		writeError(w, r, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, got)
}

func (h *Handler) EngineerDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.d.Stores.Engineers.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
