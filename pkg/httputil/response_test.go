package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"message": "success"}

	err := WriteJSON(w, http.StatusOK, data)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "success")
}

func TestWriteSuccess(t *testing.T) {
	w := httptest.NewRecorder()

	err := WriteSuccess(w, http.StatusOK, map[string]string{"username": "alice"})

	require.NoError(t, err)
	body := decodeEnvelope(t, w)
	assert.Equal(t, "success", body["status"])
	assert.NotContains(t, body, "message")
	assert.Equal(t, map[string]interface{}{"username": "alice"}, body["result"])
}

func TestWriteSuccessMessage(t *testing.T) {
	w := httptest.NewRecorder()

	require.NoError(t, WriteSuccessMessage(w, "sent", nil))

	body := decodeEnvelope(t, w)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "sent", body["message"])
	assert.NotContains(t, body, "result")
}

func TestWriteCreated(t *testing.T) {
	w := httptest.NewRecorder()

	require.NoError(t, WriteCreated(w, "id"))

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "id", decodeEnvelope(t, w)["result"])
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()

	WriteError(w, http.StatusBadRequest, errors.New("test error"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeEnvelope(t, w)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "test error", body["message"])
}

func TestWriteInternalError_HidesDetail(t *testing.T) {
	w := httptest.NewRecorder()

	WriteInternalError(w)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal Server Error", decodeEnvelope(t, w)["message"])
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name   string
		write  func(http.ResponseWriter, string)
		status int
	}{
		{"bad request", WriteBadRequest, http.StatusBadRequest},
		{"unauthorized", WriteUnauthorized, http.StatusUnauthorized},
		{"not found", WriteNotFound, http.StatusNotFound},
		{"conflict", WriteConflict, http.StatusConflict},
		{"too many requests", WriteTooManyRequests, http.StatusTooManyRequests},
		{"bad gateway", WriteBadGateway, http.StatusBadGateway},
		{"unavailable", WriteServiceUnavailable, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w, "msg")
			assert.Equal(t, tt.status, w.Code)
			body := decodeEnvelope(t, w)
			assert.Equal(t, "error", body["status"])
			assert.Equal(t, "msg", body["message"])
		})
	}
}

func BenchmarkWriteJSON(b *testing.B) {
	data := Response{Status: StatusSuccess, Result: map[string]string{"username": "alice"}}
	for i := 0; i < b.N; i++ {
		w := httptest.NewRecorder()
		_ = WriteJSON(w, http.StatusOK, data)
	}
}
