package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func cronRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/api/cron/ping", CronAuthMiddleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
	return router
}

func TestCronAuthMiddleware(t *testing.T) {
	t.Run("missing secret configuration", func(t *testing.T) {
		t.Setenv("CRON_SECRET", "")
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/cron/ping", nil)
		cronRouter().ServeHTTP(w, req)
		if w.Code != http.StatusInternalServerError {
			t.Errorf("expected 500 when CRON_SECRET is unset, got %d", w.Code)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		t.Setenv("CRON_SECRET", "topsecret")
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/cron/ping", nil)
		req.Header.Set("X-Cron-Secret", "wrong")
		cronRouter().ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", w.Code)
		}
	})

	t.Run("valid secret in X-Cron-Secret", func(t *testing.T) {
		t.Setenv("CRON_SECRET", "topsecret")
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/cron/ping", nil)
		req.Header.Set("X-Cron-Secret", "topsecret")
		cronRouter().ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", w.Code)
		}
	})

	t.Run("valid secret in Authorization", func(t *testing.T) {
		t.Setenv("CRON_SECRET", "topsecret")
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/cron/ping", nil)
		req.Header.Set("Authorization", "topsecret")
		cronRouter().ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", w.Code)
		}
	})
}
