package api_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/hanksha/laundry-booking-backend/api"
	"github.com/hanksha/laundry-booking-backend/identity"
	mock_identity "github.com/hanksha/laundry-booking-backend/identity/mocks"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func setupAuthRouter(t *testing.T) (*gin.Engine, *gomock.Controller, *mock_identity.MockProvider) {
	t.Helper()
	ctrl := gomock.NewController(t)

	gin.SetMode(gin.TestMode)
	router := gin.Default()
	provider := mock_identity.NewMockProvider(ctrl)

	api.NewAuthHandler(provider).Register(router.Group("/api/auth"))

	return router, ctrl, provider
}

func TestAuthenticate(t *testing.T) {
	t.Run("bearer header", func(t *testing.T) {
		router, ctrl, provider := setupAuthRouter(t)
		defer ctrl.Finish()

		provider.EXPECT().Authenticate(gomock.Any(), "good-token").
			Return(&identity.User{ID: "42", Name: "Ana Lopez", Email: "ana@example.com", Admin: true}, nil).Times(1)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/auth/user/info", nil)
		req.Header.Set("Authorization", "Bearer good-token")
		router.ServeHTTP(w, req)

		assert.Equal(t, 200, w.Code)
		assert.JSONEq(t, `{
			"id": "42",
			"email": "ana@example.com",
			"name": "Ana Lopez",
			"displayName": "Ana",
			"picture": "",
			"admin": true
		}`, w.Body.String())
	})

	t.Run("query parameter", func(t *testing.T) {
		router, ctrl, provider := setupAuthRouter(t)
		defer ctrl.Finish()

		provider.EXPECT().Authenticate(gomock.Any(), "query-token").Return(&identity.User{ID: "42"}, nil).Times(1)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/auth/user/info?access_token=query-token", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, 200, w.Code)
	})

	t.Run("missing", func(t *testing.T) {
		router, ctrl, provider := setupAuthRouter(t)
		defer ctrl.Finish()

		provider.EXPECT().Authenticate(gomock.Any(), gomock.Any()).Times(0)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/auth/user/info", nil)
		req.Header.Set("Authorization", "Basic abc")
		router.ServeHTTP(w, req)

		assert.Equal(t, 401, w.Code)
		assert.JSONEq(t, `{"error":"missing authentication"}`, w.Body.String())
	})

	t.Run("invalid", func(t *testing.T) {
		router, ctrl, provider := setupAuthRouter(t)
		defer ctrl.Finish()

		provider.EXPECT().Authenticate(gomock.Any(), "bad").Return(nil, identity.ErrInvalidCredential).Times(1)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/auth/user/info", nil)
		req.Header.Set("Authorization", "bearer bad")
		router.ServeHTTP(w, req)

		assert.Equal(t, 401, w.Code)
		assert.JSONEq(t, `{"error":"invalid authentication"}`, w.Body.String())
	})
}

func TestAccessLogRedactsQueryToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	gin.SetMode(gin.TestMode)

	var logged bytes.Buffer
	router := gin.New()
	router.Use(api.AccessLog(&logged))

	provider := mock_identity.NewMockProvider(ctrl)
	provider.EXPECT().Authenticate(gomock.Any(), "SECRET-ID-TOKEN").Return(&identity.User{ID: "42"}, nil).Times(1)

	router.GET("/stream", api.Authenticate(provider), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/stream?access_token=SECRET-ID-TOKEN&machine=dryer", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, logged.String(), "SECRET-ID-TOKEN")
	assert.Contains(t, logged.String(), "access_token=redacted")
	assert.Contains(t, logged.String(), "machine=dryer")
}
