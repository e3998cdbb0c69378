package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/student-clubs-api/pkg/errors"
)

func newContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func TestErrorUsesStatusOfWrappedAppError(t *testing.T) {
	c, w := newContext()
	Error(c, fmt.Errorf("vote: %w", appErrors.ErrAlreadyVoted))

	require.Equal(t, http.StatusConflict, w.Code)
	var body map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ALREADY_VOTED", body["error"]["code"])
	assert.NotContains(t, body, "data")
}

func TestErrorHidesPlainErrors(t *testing.T) {
	c, w := newContext()
	Error(c, fmt.Errorf("pq: connection reset"))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection reset")
}

func TestAcceptedSetsLocation(t *testing.T) {
	c, w := newContext()
	Accepted(c, gin.H{"id": "job-1"}, "/api/v1/reports/job-1/status")

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "/api/v1/reports/job-1/status", w.Header().Get("Location"))
}

func TestAttachment(t *testing.T) {
	c, w := newContext()
	Attachment(c, "student_clubs.csv", "text/csv", []byte("a,b\n"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="student_clubs.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Equal(t, "a,b\n", w.Body.String())
}
