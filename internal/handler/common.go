// Package handler holds the HTTP handlers of the box office API. Handlers
// bind and validate the request, call repositories or services and turn
// their errors into apperror values rendered by ErrorHandler.
package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/theatre-box-office/internal/apperror"
	"github.com/iliyamo/theatre-box-office/internal/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	requestTimeout  = 5 * time.Second
)

// Page is the envelope of every list response.
type Page[T any] struct {
	Count    int64 `json:"count"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Results  []T   `json:"results"`
}

// pagination reads ?page (1-based) and ?page_size. A malformed page number
// is a 404 like any other page that does not exist.
type pagination struct {
	page, size int
}

func pageParams(c echo.Context) (pagination, error) {
	p := pagination{page: 1, size: defaultPageSize}
	if raw := c.QueryParam("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return p, apperror.NotFound("invalid page")
		}
		p.page = n
	}
	if raw := c.QueryParam("page_size"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			p.size = min(n, maxPageSize)
		}
	}
	return p, nil
}

func (p pagination) repo() repository.Page { return repository.NewPage(p.page, p.size) }

func newPage[T any](p pagination, total int64, results []T) Page[T] {
	if results == nil {
		results = []T{}
	}
	return Page[T]{Count: total, Page: p.page, PageSize: p.size, Results: results}
}

// parseID reads the :id path parameter. Anything that is not a positive
// integer cannot name a row, so it is reported as not found.
func parseID(c echo.Context, entity string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, notFound(entity)
	}
	return id, nil
}

func notFound(entity string) error { return apperror.NotFound(entity + " not found") }

// parseIDList parses a comma-separated id list such as "1,2,3".
func parseIDList(raw, field string) ([]uint64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]uint64, 0, len(parts))
	for _, s := range parts {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, apperror.Field(field, fmt.Sprintf("%q is not a valid id", s))
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// bind decodes the JSON body into dst and validates it. An empty body
// leaves dst untouched, which PATCH handlers rely on.
func bind(c echo.Context, dst any) error {
	if err := (&echo.DefaultBinder{}).BindBody(c, dst); err != nil {
		return apperror.Wrap(apperror.TypeBadRequest, "invalid request body", err)
	}
	return c.Validate(dst)
}

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// repoErr maps repository sentinels onto API errors for entity. unique
// names the field whose unique key a duplicate violates.
func repoErr(err error, entity, unique string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return notFound(entity)
	case errors.Is(err, repository.ErrDuplicate):
		return apperror.Wrap(apperror.TypeConflict,
			fmt.Sprintf("%s with this %s already exists", entity, unique), err)
	case errors.Is(err, repository.ErrInvalidReference):
		return apperror.Wrap(apperror.TypeBadRequest, "referenced object does not exist", err)
	default:
		return apperror.Internal(entity+" query failed", err)
	}
}

func noContent(c echo.Context) error { return c.NoContent(http.StatusNoContent) }
