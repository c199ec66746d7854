// Package api реализует JSON API административной панели поверх gorilla/mux.
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"amcdesk/internal/auth"
	"amcdesk/internal/controller"
	"amcdesk/internal/repo"
)

type Dependencies struct {
	Stores    *repo.Stores
	Requests  *controller.Requests
	Dashboard *controller.Dashboard
	Auth      *auth.Service

	ExportLimit int
}

type Handler struct {
	d Dependencies
}

// Attach регистрирует /api/v1; всё, кроме входа, требует токен администратора.
func Attach(r *mux.Router, d Dependencies) {
	h := &Handler{d: d}
	v1 := r.PathPrefix("/api/v1").Subrouter()

	v1.HandleFunc("/auth/login", h.Login).Methods(http.MethodPost)

	sec := v1.NewRoute().Subrouter()
	sec.Use(d.Auth.Require())

	sec.HandleFunc("/auth/me", h.Me).Methods(http.MethodGet)
	sec.HandleFunc("/auth/logout", h.Logout).Methods(http.MethodPost)
	sec.HandleFunc("/dashboard", h.DashboardStats).Methods(http.MethodGet)

	// organizations
	sec.HandleFunc("/organizations", h.OrganizationsList).Methods(http.MethodGet)
	sec.HandleFunc("/organizations", h.OrganizationCreate).Methods(http.MethodPost)
	sec.HandleFunc("/organizations/export", h.OrganizationsExport).Methods(http.MethodGet)
	sec.HandleFunc("/organizations/lookup", h.OrganizationsLookup).Methods(http.MethodGet)
	sec.HandleFunc("/organizations/{id}", h.OrganizationGet).Methods(http.MethodGet)
	sec.HandleFunc("/organizations/{id}", h.OrganizationUpdate).Methods(http.MethodPut)
	sec.HandleFunc("/organizations/{id}", h.OrganizationDelete).Methods(http.MethodDelete)
	sec.HandleFunc("/organizations/{id}/archive", h.OrganizationArchive).Methods(http.MethodPost)
	sec.HandleFunc("/organizations/{id}/members", h.MembersList).Methods(http.MethodGet)
	sec.HandleFunc("/organizations/{id}/members", h.MemberAdd).Methods(http.MethodPost)
	sec.HandleFunc("/organizations/{id}/members/{memberID}", h.MemberUpdate).Methods(http.MethodPut)
	sec.HandleFunc("/organizations/{id}/members/{memberID}", h.MemberRemove).Methods(http.MethodDelete)

	// devices
	sec.HandleFunc("/devices", h.DevicesList).Methods(http.MethodGet)
	sec.HandleFunc("/devices", h.DeviceCreate).Methods(http.MethodPost)
	sec.HandleFunc("/devices/export", h.DevicesExport).Methods(http.MethodGet)
	sec.HandleFunc("/devices/amc", h.DevicesAMC).Methods(http.MethodGet)
	sec.HandleFunc("/devices/{id}", h.DeviceGet).Methods(http.MethodGet)
	sec.HandleFunc("/devices/{id}", h.DeviceUpdate).Methods(http.MethodPut)
	sec.HandleFunc("/devices/{id}", h.DeviceDelete).Methods(http.MethodDelete)
	sec.HandleFunc("/devices/{id}/archive", h.DeviceArchive).Methods(http.MethodPost)

	// service requests
	sec.HandleFunc("/service-requests", h.RequestsList).Methods(http.MethodGet)
	sec.HandleFunc("/service-requests", h.RequestCreate).Methods(http.MethodPost)
	sec.HandleFunc("/service-requests/export", h.RequestsExport).Methods(http.MethodGet)
	sec.HandleFunc("/service-requests/{id}", h.RequestGet).Methods(http.MethodGet)
	sec.HandleFunc("/service-requests/{id}", h.RequestUpdate).Methods(http.MethodPut)
	sec.HandleFunc("/service-requests/{id}", h.RequestDelete).Methods(http.MethodDelete)
	sec.HandleFunc("/service-requests/{id}/status", h.RequestStatus).Methods(http.MethodPost)
	sec.HandleFunc("/service-requests/{id}/assign", h.RequestAssign).Methods(http.MethodPost)
	sec.HandleFunc("/service-requests/{id}/attachment", h.RequestAttach).Methods(http.MethodPost)

	// users
	sec.HandleFunc("/users", h.UsersList).Methods(http.MethodGet)

	// engineers
	sec.HandleFunc("/engineers", h.EngineersList).Methods(http.MethodGet)
	sec.HandleFunc("/engineers", h.EngineerCreate).Methods(http.MethodPost)
	sec.HandleFunc("/engineers/{id}", h.EngineerGet).Methods(http.MethodGet)
	sec.HandleFunc("/engineers/{id}", h.EngineerUpdate).Methods(http.MethodPut)
	sec.HandleFunc("/engineers/{id}", h.EngineerDelete).Methods(http.MethodDelete)
}
