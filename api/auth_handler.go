package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hanksha/laundry-booking-backend/identity"
)

type AuthHandler struct {
	provider identity.Provider
}

func NewAuthHandler(provider identity.Provider) *AuthHandler {
	return &AuthHandler{provider: provider}
}

func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/user/info", Authenticate(h.provider), h.GetUserInfo)
}

func (h *AuthHandler) GetUserInfo(c *gin.Context) {
	user := c.MustGet("user").(identity.User)

	c.IndentedJSON(http.StatusOK, gin.H{
		"id":          user.ID,
		"email":       user.Email,
		"name":        user.Name,
		"displayName": user.DisplayName(),
		"picture":     user.Picture,
		"admin":       user.Admin,
	})
}
