package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hanksha/laundry-booking-backend/identity"
)

// Authenticate resolves the caller from a bearer token. Browsers opening an
// event stream cannot set headers, so the access_token query parameter is
// accepted as well.
func Authenticate(provider identity.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		credential := bearerToken(c.GetHeader("Authorization"))

		if len(credential) == 0 {
			credential = c.Query("access_token")
		}

		if len(credential) == 0 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authentication"})
			c.Abort()
			return
		}

		user, err := provider.Authenticate(c.Request.Context(), credential)

		if err != nil {
			c.Error(err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authentication"})
			c.Abort()
			return
		}

		c.Set("user", *user)
	}
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")

	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}

	return strings.TrimSpace(token)
}
