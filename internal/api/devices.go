package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"amcdesk/internal/amc"
	"amcdesk/internal/controller"
	"amcdesk/internal/models"
	"amcdesk/internal/repo"
)

func deviceFilter(r *http.Request) (repo.DeviceFilter, error) {
	q := r.URL.Query()
	vis, err := visibilityFrom(q)
	if err != nil {
		return repo.DeviceFilter{}, err
	}
	f := repo.DeviceFilter{
		Search:         q.Get("search"),
		OrganizationID: q.Get("organization_id"),
		DeviceName:     q.Get("device_name"),
		Model:          q.Get("model"),
		MACAddress:     q.Get("mac_address"),
		SerialNumber:   q.Get("serial_number"),
		AMCID:          q.Get("amc_id"),
		Visibility:     vis,
	}
	if s := q.Get("amc_status"); s != "" {
		if f.AMCStatus, err = amc.ParseStatus(s); err != nil {
			return f, invalid("%v", err)
		}
	}
	return f, nil
}

func (h *Handler) DevicesList(w http.ResponseWriter, r *http.Request) {
	f, err := deviceFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := pageFrom(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	env, err := h.d.Stores.Devices.List(r.Context(), f, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, env)
}

// DevicesAMC: вкладки AMC (?status=expired|expiring_soon|active|no_amc), ближайшее окончание первым.
func (h *Handler) DevicesAMC(w http.ResponseWriter, r *http.Request) {
	f, err := deviceFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if s := r.URL.Query().Get("status"); s != "" {
		if f.AMCStatus, err = amc.ParseStatus(s); err != nil {
			writeError(w, r, invalid("%v", err))
			return
		}
	}
	p, err := pageFrom(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	env, err := h.d.Stores.Devices.ListAMC(r.Context(), f, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, env)
}

func (h *Handler) DevicesExport(w http.ResponseWriter, r *http.Request) {
	f, err := deviceFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rows, err := h.d.Stores.Devices.Export(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, newExport(rows, h.d.ExportLimit))
}

func (h *Handler) DeviceGet(w http.ResponseWriter, r *http.Request) {
	d, err := h.d.Stores.Devices.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, d)
}

// deviceRequest: тело создания/изменения; даты приходят строками YYYY-MM-DD.
type deviceRequest struct {
	OrganizationID  string  `json:"organization_id"`
	DeviceName      string  `json:"device_name"`
	Model           string  `json:"model"`
	SerialNumber    string  `json:"serial_number"`
	MACAddress      string  `json:"mac_address"`
	AMCID           string  `json:"amc_id"`
	Location        string  `json:"location"`
	PurchaseDate    *string `json:"purchase_date"`
	WarrantyEndDate *string `json:"warranty_end_date"`
	AMCStartDate    *string `json:"amc_start_date"`
	AMCEndDate      *string `json:"amc_end_date"`
}

func (in deviceRequest) device() (*models.Device, error) {
	d := &models.Device{
		OrganizationID: in.OrganizationID,
		DeviceName:     in.DeviceName,
		Model:          in.Model,
		SerialNumber:   in.SerialNumber,
		MACAddress:     in.MACAddress,
		AMCID:          in.AMCID,
		Location:       in.Location,
	}
	var err error
	if d.PurchaseDate, err = parseDate("purchase_date", in.PurchaseDate); err != nil {
		return nil, err
	}
	if d.WarrantyEndDate, err = parseDate("warranty_end_date", in.WarrantyEndDate); err != nil {
		return nil, err
	}
	if d.AMCStartDate, err = parseDate("amc_start_date", in.AMCStartDate); err != nil {
		return nil, err
	}
	if d.AMCEndDate, err = parseDate("amc_end_date", in.AMCEndDate); err != nil {
		return nil, err
	}
	if err := controller.Validate(d); err != nil {
		return nil, err
	}
	return d, nil
}

func decodeDevice(r *http.Request) (*models.Device, error) {
	var in deviceRequest
	if err := decode(r, &in); err != nil {
		return nil, err
	}
	return in.device()
}

func (h *Handler) DeviceCreate(w http.ResponseWriter, r *http.Request) {
	d, err := decodeDevice(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	got, err := h.d.Stores.Devices.Create(r.Context(), d)
	if err != nil {
		writeError(w, r, err)
		return
	}
	models.WriteJSON(w, http.StatusCreated, got)
}

func (h *Handler) DeviceUpdate(w http.ResponseWriter, r *http.Request) {
	d, err := decodeDevice(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	got, err := h.d.Stores.Devices.Update(r.Context(), mux.Vars(r)["id"], d)
	if err != nil {
		writeError(w, r, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, got)
}

func (h *Handler) DeviceArchive(w http.ResponseWriter, r *http.Request) {
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
	if err := h.d.Stores.Devices.SetArchived(r.Context(), mux.Vars(r)["id"], archived); err != nil {
		writeError(w, r, err)
		return
	}
	h.DeviceGet(w, r)
}

func (h *Handler) DeviceDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.d.Stores.Devices.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
