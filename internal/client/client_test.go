package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"amcdesk/internal/amc"
	"amcdesk/internal/listing"
	"amcdesk/internal/models"
)

func TestClientAgainstFakeServer(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "pw" {
			models.WriteProblem(w, http.StatusUnauthorized, "Unauthorized", "invalid email or password", nil)
			return
		}
		models.WriteJSON(w, http.StatusOK, map[string]any{"token": "tok", "user": models.User{Email: body["email"]}})
	})
	mux.HandleFunc("/api/v1/devices/amc", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			models.WriteProblem(w, http.StatusUnauthorized, "Unauthorized", "authentication required", nil)
			return
		}
		assert.Equal(t, "expired", r.URL.Query().Get("status"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		models.WriteJSON(w, http.StatusOK, listing.NewEnvelope([]models.Device{{DeviceName: "x"}}, 21, listing.Page{Page: 2, PageSize: 20}))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.URL)
	ctx := context.Background()

	_, err := c.Login(ctx, "a@example.com", "bad")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "invalid email or password", apiErr.Message)

	u, err := c.Login(ctx, "a@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", u.Email)
	assert.Equal(t, "tok", c.Token)

	env, err := c.AMC(ctx, amc.Expired, listing.Page{Page: 2, PageSize: 20})
	require.NoError(t, err)
	assert.Equal(t, 2, env.TotalPages)
	assert.Len(t, env.Data, 1)
}
