package reminder

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"appointly/internal/domain"
	"appointly/internal/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestHandler_Scan(t *testing.T) {
	f := setupService(t)
	f.insert(t, domain.AppointmentCompleted, f.demo.OpensAt(11, 0))
	f.insert(t, domain.AppointmentCompleted, f.demo.OpensAt(12, 0))

	router := gin.New()
	NewHandler(f.svc, logger.Discard()).RegisterRoutes(router.Group(""))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/reminders/rating?limit=1", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"processed":1,"reminder_hours":1}`, w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/reminders/rating?limit=nope", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"processed":1,"reminder_hours":1}`, w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/reminders/rating", nil))
	assert.JSONEq(t, `{"processed":0,"reminder_hours":1}`, w.Body.String())
}
