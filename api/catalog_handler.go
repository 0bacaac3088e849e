package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	rsv "github.com/hanksha/laundry-booking-backend/reservation"
	"github.com/patrickmn/go-cache"
)

type CatalogService interface {
	Machines() rsv.Catalog
	Status(ctx context.Context) rsv.Status
}

type CatalogHandler struct {
	service CatalogService
	cache   *cache.Cache
}

func NewCatalogHandler(service CatalogService) *CatalogHandler {
	return &CatalogHandler{
		service: service,
		cache:   cache.New(5*time.Minute, 10*time.Minute),
	}
}

func (h *CatalogHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/machines", CacheResponses(h.cache, 5*time.Minute), h.ListMachines)
	rg.GET("/status", h.GetStatus)
}

func (h *CatalogHandler) ListMachines(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, h.service.Machines())
}

func (h *CatalogHandler) GetStatus(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, h.service.Status(c.Request.Context()))
}
