package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"healthathome/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteServiceErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{service.ErrValidation, http.StatusBadRequest},
		{fmt.Errorf("%w: empty rejection reason", service.ErrValidation), http.StatusBadRequest},
		{service.ErrNotFound, http.StatusNotFound},
		{service.ErrInvalidCredentials, http.StatusUnauthorized},
		{service.ErrInvalidState, http.StatusConflict},
		{service.ErrConflict, http.StatusConflict},
		{service.ErrEmailTaken, http.StatusConflict},
		{fmt.Errorf("pq: connection refused"), http.StatusInternalServerError},
	}

	e := echo.New()
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		require.NoError(t, writeServiceError(c, tc.err))
		assert.Equal(t, tc.status, rec.Code, "error %v", tc.err)
	}
}

func TestWriteServiceErrorNeverEchoesInternalDetail(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, writeServiceError(c, fmt.Errorf("dial tcp 10.0.0.3:5432: connect: connection refused")))
	assert.NotContains(t, rec.Body.String(), "10.0.0.3")
	assert.Contains(t, rec.Body.String(), "internal server error")
}

func TestNotFoundBodyIsGeneric(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, writeServiceError(c, fmt.Errorf("%w: no patient for email", service.ErrNotFound)))
	assert.NotContains(t, rec.Body.String(), "email")
}
