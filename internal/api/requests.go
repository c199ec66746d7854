package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"amcdesk/internal/controller"
	"amcdesk/internal/models"
	"amcdesk/internal/repo"
	"amcdesk/internal/storage"
)

func requestFilter(r *http.Request) repo.ServiceRequestFilter {
	q := r.URL.Query()
	return repo.ServiceRequestFilter{
		Search:            q.Get("search"),
		OrganizationID:    q.Get("organization_id"),
		DeviceID:          q.Get("device_id"),
		ServiceEngineerID: q.Get("service_engineer_id"),
		UserID:            q.Get("user_id"),
		Status:            models.RequestStatus(q.Get("status")),
		ServiceType:       models.ServiceType(q.Get("service_type")),
	}
}

func (h *Handler) RequestsList(w http.ResponseWriter, r *http.Request) {
	p, err := pageFrom(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	env, err := h.d.Stores.Requests.List(r.Context(), requestFilter(r), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, env)
}

func (h *Handler) RequestsExport(w http.ResponseWriter, r *http.Request) {
	rows, err := h.d.Stores.Requests.Export(r.Context(), requestFilter(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, newExport(rows, h.d.ExportLimit))
}

func (h *Handler) RequestGet(w http.ResponseWriter, r *http.Request) {
	sr, err := h.d.Stores.Requests.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, sr)
}

type createRequestBody struct {
	OrganizationID    string             `json:"organization_id"`
	DeviceID          string             `json:"device_id"`
	ServiceType       models.ServiceType `json:"service_type"`
	Description       string             `json:"description"`
	UserID            *string            `json:"user_id"`
	ServiceEngineerID *string            `json:"service_engineer_id"`
	ScheduledDate     *string            `json:"scheduled_date"`
}

func (h *Handler) RequestCreate(w http.ResponseWriter, r *http.Request) {
	var body createRequestBody
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	scheduled, err := parseDate("scheduled_date", body.ScheduledDate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sr, err := h.d.Requests.Create(r.Context(), controller.CreateRequest{
		OrganizationID:    body.OrganizationID,
		DeviceID:          body.DeviceID,
		ServiceType:       body.ServiceType,
		Description:       body.Description,
		UserID:            body.UserID,
		ServiceEngineerID: body.ServiceEngineerID,
		ScheduledDate:     scheduled,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	models.WriteJSON(w, http.StatusCreated, sr)
}

type updateRequestBody struct {
	ServiceType   models.ServiceType `json:"service_type"`
	Description   string             `json:"description"`
	ScheduledDate *string            `json:"scheduled_date"`
}

func (h *Handler) RequestUpdate(w http.ResponseWriter, r *http.Request) {
	var body updateRequestBody
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	scheduled, err := parseDate("scheduled_date", body.ScheduledDate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sr, err := h.d.Requests.Update(r.Context(), mux.Vars(r)["id"], controller.UpdateRequest{
		ServiceType:   body.ServiceType,
		Description:   body.Description,
		ScheduledDate: scheduled,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, sr)
}

func (h *Handler) RequestDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.d.Stores.Requests.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RequestStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status models.RequestStatus `json:"status"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	sr, err := h.d.Requests.Transition(r.Context(), mux.Vars(r)["id"], body.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, sr)
}

func (h *Handler) RequestAssign(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ServiceEngineerID *string `json:"service_engineer_id"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	sr, err := h.d.Requests.Assign(r.Context(), mux.Vars(r)["id"], body.ServiceEngineerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, sr)
}

// RequestAttach принимает multipart с полем file.
func (h *Handler) RequestAttach(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxAttachmentSize+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, r, invalid("%v", storage.ErrTooLarge))
			return
		}
		writeError(w, r, invalid("malformed multipart form: %v", err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()
	file, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, invalid("file is required"))
		return
	}
	defer file.Close()

	sr, err := h.d.Requests.Attach(r.Context(), mux.Vars(r)["id"], hdr.Filename, hdr.Header.Get("Content-Type"), hdr.Size, file)
	if err != nil {
		writeError(w, r, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, sr)
}
