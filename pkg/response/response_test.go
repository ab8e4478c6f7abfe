package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brickvault-api/pkg/apierror"
)

func TestError_APIError(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, apierror.OnboardingRequired("/sets"))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	errBody := body["error"].(map[string]interface{})
	assert.Equal(t, "ONBOARDING_REQUIRED", errBody["code"])
	assert.Equal(t, "/sets", errBody["meta"].(map[string]interface{})["intended"])
}

func TestError_WrappedAPIError(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, fmt.Errorf("lookup: %w", apierror.NotFound("")))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestError_PlainError(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, errors.New("boom"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestWithNotifications(t *testing.T) {
	rec := httptest.NewRecorder()
	WithNotifications(rec, http.StatusBadGateway, false, map[string]bool{"ok": false}, []string{"Failed"})

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	var body Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.NotNil(t, body.Notifications)
}
