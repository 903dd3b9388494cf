package storybrand

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewClient(server.URL+"/", time.Second, logger)
}

func TestCreateAccount(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/storybrand-account", r.URL.Path)

		var req CreateAccountRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "client-1", req.ClientReference)

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"user":{"_id":"sb-1","email":"ana@example.com"}}`))
	})

	account, err := client.CreateAccount(context.Background(), CreateAccountRequest{
		Email:           "ana@example.com",
		Password:        "secret1",
		ClientReference: "client-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "sb-1", ExternalUserID(account))
}

func TestChangePassword(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/storybrand-account/password", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "sb-1", body["userId"])
		assert.Equal(t, "newpass", body["newPassword"])

		w.Write([]byte(`{"user":{"_id":"sb-1","passwordChangedAt":"2026-01-01"}}`))
	})

	user, err := client.ChangePassword(context.Background(), "sb-1", "newpass")
	require.NoError(t, err)
	assert.Equal(t, "2026-01-01", user["passwordChangedAt"])
}

func TestDeleteAccountError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/storybrand-account/sb-1", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"User not found"}`))
	})

	err := client.DeleteAccount(context.Background(), "sb-1")
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "User not found", apiErr.Message)
}

func TestExternalUserID(t *testing.T) {
	tests := []struct {
		name string
		data map[string]interface{}
		want string
	}{
		{"Nested User", map[string]interface{}{"user": map[string]interface{}{"_id": "a"}}, "a"},
		{"Top Level Id", map[string]interface{}{"id": "b"}, "b"},
		{"Mongo Id", map[string]interface{}{"_id": "c"}, "c"},
		{"Missing", map[string]interface{}{"user": map[string]interface{}{}}, ""},
		{"Nil", nil, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExternalUserID(tc.data))
		})
	}
}
