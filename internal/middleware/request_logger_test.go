package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestLogger_Levels(t *testing.T) {
	logger, hook := test.NewNullLogger()
	router := setupTestRouter()
	router.Use(RequestLogger(logger))
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	router.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	router.GET("/errs", func(c *gin.Context) {
		_ = c.Error(errors.New("storage offline"))
		c.Status(http.StatusBadGateway)
	})

	tests := []struct {
		path    string
		level   logrus.Level
		message string
	}{
		{"/ok?page=2", logrus.InfoLevel, "Request completed successfully"},
		{"/missing", logrus.WarnLevel, "Request completed with client error"},
		{"/boom", logrus.ErrorLevel, "Request completed with server error"},
		{"/errs", logrus.ErrorLevel, "Request failed with errors"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			hook.Reset()
			router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", tt.path, nil))

			entry := hook.LastEntry()
			require.NotNil(t, entry)
			assert.Equal(t, tt.level, entry.Level)
			assert.Equal(t, tt.message, entry.Message)
		})
	}

	hook.Reset()
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/ok?page=2", nil))
	assert.Equal(t, "page=2", hook.LastEntry().Data["query"])
	assert.Equal(t, false, hook.LastEntry().Data["has_auth"])

	hook.Reset()
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/errs", nil))
	assert.Equal(t, "storage offline", hook.LastEntry().Data["error_0"])
}
