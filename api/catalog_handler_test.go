package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/hanksha/laundry-booking-backend/api"
	rsv "github.com/hanksha/laundry-booking-backend/reservation"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

type stubCatalog struct {
	machineCalls int
	status       rsv.Status
}

func (s *stubCatalog) Machines() rsv.Catalog {
	s.machineCalls++
	return rsv.DefaultCatalog()
}

func (s *stubCatalog) Status(context.Context) rsv.Status {
	return s.status
}

func setupCatalogRouter(service api.CatalogService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.Default()
	api.NewCatalogHandler(service).Register(router.Group("/api/v1"))
	return router
}

func TestListMachines(t *testing.T) {
	service := &stubCatalog{}
	router := setupCatalogRouter(service)

	for range 3 {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/machines", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, 200, w.Code)
		assert.Contains(t, w.Body.String(), `"id": "machine1"`)
		assert.Contains(t, w.Body.String(), `"durationMinutes": 120`)
	}

	assert.Equal(t, 1, service.machineCalls, "responses are cached")
}

func TestGetStatus(t *testing.T) {
	service := &stubCatalog{status: rsv.Status{
		Mode:          rsv.ModeOnline,
		RemoteEnabled: true,
		Connection:    rsv.ConnectionStatus{Success: true, Count: 4},
	}}
	router := setupCatalogRouter(service)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1/status", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	assert.JSONEq(t, `{"mode":"online","remoteEnabled":true,"connection":{"success":true,"docCount":4}}`, w.Body.String())
}

func TestRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(api.RateLimit(rate.Limit(1), 2))
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	codes := []int{}
	for range 3 {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/ping", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{200, 200, 429}, codes)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/ping", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
}
