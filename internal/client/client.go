// Package client содержит типизированный HTTP-клиент API панели и загрузчик с отменой
// устаревших запросов для экранов списков.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"amcdesk/internal/amc"
	"amcdesk/internal/controller"
	"amcdesk/internal/listing"
	"amcdesk/internal/models"
)

// APIError описывает ответ сервера в формате problem+json; Message показывается пользователю.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string { return e.Message }

type Client struct {
	BaseURL string
	HTTP    *http.Client
	Token   string
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.BaseURL + "/api/v1" + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var p models.Problem
		if err := json.NewDecoder(resp.Body).Decode(&p); err != nil || p.Error() == "" {
			return &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return &APIError{Status: resp.StatusCode, Message: p.Error()}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// Login сохраняет токен в клиенте.
func (c *Client) Login(ctx context.Context, email, password string) (*models.User, error) {
	var out struct {
		Token string       `json:"token"`
		User  *models.User `json:"user"`
	}
	err := c.do(ctx, http.MethodPost, "/auth/login", nil, map[string]string{"email": email, "password": password}, &out)
	if err != nil {
		return nil, err
	}
	c.Token = out.Token
	return out.User, nil
}

// Logout забывает токен; на сервере сессий нет.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, nil)
	c.Token = ""
	return err
}

func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var u models.User
	return &u, c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &u)
}

func pageQuery(q url.Values, p listing.Page) url.Values {
	if q == nil {
		q = url.Values{}
	}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(p.PageSize))
	}
	return q
}

// Organizations возвращает страницу организаций; в filters идут search, city, archived=all|active|archived и т.д.
func (c *Client) Organizations(ctx context.Context, filters url.Values, p listing.Page) (listing.Envelope[models.Organization], error) {
	var env listing.Envelope[models.Organization]
	return env, c.do(ctx, http.MethodGet, "/organizations", pageQuery(filters, p), nil, &env)
}

func (c *Client) LookupOrganizations(ctx context.Context, term string, limit int) ([]models.Organization, error) {
	q := url.Values{"q": {term}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var rows []models.Organization
	return rows, c.do(ctx, http.MethodGet, "/organizations/lookup", q, nil, &rows)
}

func (c *Client) Devices(ctx context.Context, filters url.Values, p listing.Page) (listing.Envelope[models.Device], error) {
	var env listing.Envelope[models.Device]
	return env, c.do(ctx, http.MethodGet, "/devices", pageQuery(filters, p), nil, &env)
}

// AMC возвращает вкладку AMC; пустой статус означает все устройства, ближайшее окончание первым.
func (c *Client) AMC(ctx context.Context, status amc.Status, p listing.Page) (listing.Envelope[models.Device], error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", string(status))
	}
	var env listing.Envelope[models.Device]
	return env, c.do(ctx, http.MethodGet, "/devices/amc", pageQuery(q, p), nil, &env)
}

func (c *Client) ServiceRequests(ctx context.Context, filters url.Values, p listing.Page) (listing.Envelope[models.ServiceRequest], error) {
	var env listing.Envelope[models.ServiceRequest]
	return env, c.do(ctx, http.MethodGet, "/service-requests", pageQuery(filters, p), nil, &env)
}

func (c *Client) Dashboard(ctx context.Context) (*controller.Stats, error) {
	var s controller.Stats
	return &s, c.do(ctx, http.MethodGet, "/dashboard", nil, nil, &s)
}
