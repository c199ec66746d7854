package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"amcdesk/internal/auth"
	"amcdesk/internal/listing"
	"amcdesk/internal/logs"
	"amcdesk/internal/middleware"
	"amcdesk/internal/models"
	"amcdesk/internal/repo"
	"amcdesk/internal/storage"
)

// writeError переводит ошибку домена в problem+json; detail клиент показывает пользователю как есть.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, title := http.StatusInternalServerError, "Internal Server Error"
	detail := err.Error()
	switch {
	case errors.Is(err, repo.ErrNotFound):
		status, title = http.StatusNotFound, "Not Found"
	case errors.Is(err, repo.ErrInvalid):
		status, title = http.StatusBadRequest, "Bad Request"
		detail = strings.TrimPrefix(detail, repo.ErrInvalid.Error()+": ")
	case errors.Is(err, repo.ErrConflict):
		status, title = http.StatusConflict, "Conflict"
	case errors.Is(err, auth.ErrAdminOnly):
		status, title = http.StatusForbidden, "Forbidden"
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrUnauthorized):
		status, title = http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, storage.ErrDisabled):
		status, title = http.StatusServiceUnavailable, "Service Unavailable"
	default:
		logs.Logger.WithFields(logrus.Fields{
			"reqid":  middleware.GetRequestID(r),
			"method": r.Method,
			"uri":    r.RequestURI,
		}).WithError(err).Error("request failed")
		detail = "unexpected server error (see logs by reqid)"
	}
	models.WriteProblem(w, status, title, detail, nil)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", repo.ErrInvalid, fmt.Sprintf(format, args...))
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return invalid("malformed JSON body: %v", err)
	}
	return nil
}

func pageFrom(q url.Values) (listing.Page, error) {
	var p listing.Page
	for key, dst := range map[string]*int{"page": &p.Page, "page_size": &p.PageSize} {
		s := strings.TrimSpace(q.Get(key))
		if s == "" {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return p, invalid("%s must be a positive integer", key)
		}
		*dst = n
	}
	return p, nil
}

func visibilityFrom(q url.Values) (listing.Visibility, error) {
	v, err := listing.ParseVisibility(q.Get("archived"))
	if err != nil {
		return "", fmt.Errorf("%w: %v", repo.ErrInvalid, err)
	}
	return v, nil
}

// parseDate принимает YYYY-MM-DD или RFC 3339; пустая строка: отсутствие даты.
func parseDate(field string, s *string) (*time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	v := strings.TrimSpace(*s)
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return &t, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	return nil, invalid("%s must be a date in YYYY-MM-DD format", field)
}

// exportResponse: материализованные строки для выгрузки в таблицу на клиенте.
type exportResponse[T any] struct {
	Data  []T `json:"data"`
	Count int `json:"count"`
	Limit int `json:"limit"`
}

func newExport[T any](rows []T, limit int) exportResponse[T] {
	if rows == nil {
		rows = []T{}
	}
	return exportResponse[T]{Data: rows, Count: len(rows), Limit: limit}
}

type archiveRequest struct {
	Archived *bool `json:"archived"`
}

func (a archiveRequest) value() (bool, error) {
	if a.Archived == nil {
		return false, invalid("archived is required")
	}
	return *a.Archived, nil
}
