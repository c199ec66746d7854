// Package listing описывает общий контракт постраничных списков: страницу, диапазон строк,
// конверт ответа и фильтры видимости архивных записей.
package listing

import (
	"fmt"
	"strings"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page: номер страницы с 1 и размер страницы.
type Page struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// Normalize приводит запрос к допустимому виду.
func (p Page) Normalize(defaultSize, maxSize int) Page {
	if defaultSize <= 0 {
		defaultSize = DefaultPageSize
	}
	if maxSize < defaultSize {
		maxSize = defaultSize
	}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = defaultSize
	}
	if p.PageSize > maxSize {
		p.PageSize = maxSize
	}
	return p
}

// Range возвращает включительный диапазон строк: from=(page-1)*size, to=from+size-1.
func (p Page) Range() (from, to int) {
	from = (p.Page - 1) * p.PageSize
	return from, from + p.PageSize - 1
}

func (p Page) Offset() int { from, _ := p.Range(); return from }

func (p Page) Limit() int { return p.PageSize }

// Envelope: страница данных вместе с общим количеством.
type Envelope[T any] struct {
	Data       []T   `json:"data"`
	TotalCount int64 `json:"totalCount"`
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalPages int   `json:"totalPages"`
}

func NewEnvelope[T any](data []T, total int64, p Page) Envelope[T] {
	if data == nil {
		data = []T{}
	}
	return Envelope[T]{
		Data:       data,
		TotalCount: total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: TotalPages(total, p.PageSize),
	}
}

// TotalPages = ceil(total/size).
func TotalPages(total int64, size int) int {
	if size <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}

// Visibility: какие строки показывать относительно флага archived.
type Visibility string

const (
	VisibleActive   Visibility = "active"
	VisibleArchived Visibility = "archived"
	VisibleAll      Visibility = "all"
)

// ParseVisibility: пусто → active.
func ParseVisibility(s string) (Visibility, error) {
	switch v := Visibility(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return VisibleActive, nil
	case VisibleActive, VisibleArchived, VisibleAll:
		return v, nil
	}
	return "", fmt.Errorf("archived must be one of active, archived, all (got %q)", s)
}
