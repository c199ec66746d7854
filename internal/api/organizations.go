package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"amcdesk/internal/controller"
	"amcdesk/internal/models"
	"amcdesk/internal/repo"
)

func organizationFilter(r *http.Request) (repo.OrganizationFilter, error) {
	q := r.URL.Query()
	vis, err := visibilityFrom(q)
	if err != nil {
		return repo.OrganizationFilter{}, err
	}
	return repo.OrganizationFilter{
		Search:     q.Get("search"),
		Name:       q.Get("name"),
		Email:      q.Get("email"),
		City:       q.Get("city"),
		State:      q.Get("state"),
		Visibility: vis,
	}, nil
}

func (h *Handler) OrganizationsList(w http.ResponseWriter, r *http.Request) {
	f, err := organizationFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := pageFrom(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	env, err := h.d.Stores.Organizations.List(r.Context(), f, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, env)
}

func (h *Handler) OrganizationsExport(w http.ResponseWriter, r *http.Request) {
	f, err := organizationFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rows, err := h.d.Stores.Organizations.Export(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, newExport(rows, h.d.ExportLimit))
}

// OrganizationsLookup: короткий список для поиска по мере ввода.
func (h *Handler) OrganizationsLookup(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	rows, err := h.d.Stores.Organizations.Search(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rows == nil {
		rows = []models.Organization{}
	}
	models.WriteJSON(w, http.StatusOK, rows)
}

func (h *Handler) OrganizationGet(w http.ResponseWriter, r *http.Request) {
	o, err := h.d.Stores.Organizations.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, o)
}

func decodeOrganization(r *http.Request) (*models.Organization, error) {
	var o models.Organization
	if err := decode(r, &o); err != nil {
		return nil, err
	}
	// id и флаг архива через это тело не меняются
	o.ID, o.Archived = "", false
	if err := controller.Validate(o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (h *Handler) OrganizationCreate(w http.ResponseWriter, r *http.Request) {
	o, err := decodeOrganization(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.d.Stores.Organizations.Create(r.Context(), o); err != nil {
		writeError(w, r, err)
		return
	}
	models.WriteJSON(w, http.StatusCreated, o)
}

func (h *Handler) OrganizationUpdate(w http.ResponseWriter, r *http.Request) {
	o, err := decodeOrganization(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	got, err := h.d.Stores.Organizations.Update(r.Context(), mux.Vars(r)["id"], o)
	if err != nil {
		writeError(w, r, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, got)
}

func (h *Handler) OrganizationArchive(w http.ResponseWriter, r *http.Request) {
	var req archiveRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	archived, err := req.value()
	if err != nil {
		writeError(w, r, err)
		return
	}
	id := mux.Vars(r)["id"]
	if err := h.d.Stores.Organizations.SetArchived(r.Context(), id, archived); err != nil {
		writeError(w, r, err)
		return
	}
	h.OrganizationGet(w, r)
}

func (h *Handler) OrganizationDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.d.Stores.Organizations.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------- members ----------

type memberRequest struct {
	Email        string              `json:"email"`
	Role         models.MemberRole   `json:"role"`
	DeviceAccess models.DeviceAccess `json:"device_access"`
	DeviceIDs    []string            `json:"device_ids"`
}

func (m memberRequest) input() repo.MemberInput {
	return repo.MemberInput{Email: m.Email, Role: m.Role, DeviceAccess: m.DeviceAccess, DeviceIDs: m.DeviceIDs}
}

func (h *Handler) MembersList(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := h.d.Stores.Organizations.Get(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	rows, err := h.d.Stores.Users.Members(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rows == nil {
		rows = []models.OrganizationUser{}
	}
	models.WriteJSON(w, http.StatusOK, rows)
}

func (h *Handler) MemberAdd(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	m, err := h.d.Stores.Users.AddMember(r.Context(), mux.Vars(r)["id"], req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	models.WriteJSON(w, http.StatusCreated, m)
}

func (h *Handler) MemberUpdate(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	v := mux.Vars(r)
	m, err := h.d.Stores.Users.UpdateMember(r.Context(), v["id"], v["memberID"], req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, m)
}

func (h *Handler) MemberRemove(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	if err := h.d.Stores.Users.RemoveMember(r.Context(), v["id"], v["memberID"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
