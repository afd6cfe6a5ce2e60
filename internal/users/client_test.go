package users

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barberpos/internal/sales"
)

func newUserServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/7":
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"id": 7, "first_name": "Graciela", "last_name": "Caceres"}`))
		case "/users/500":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClientFindUser(t *testing.T) {
	srv := newUserServer(t)
	client := NewClient(srv.URL)
	defer client.Close()

	user, err := client.FindUser(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
	assert.Equal(t, "Graciela Caceres", user.FullName())
}

func TestClientFindUserNotFound(t *testing.T) {
	srv := newUserServer(t)
	client := NewClient(srv.URL)
	defer client.Close()

	user, err := client.FindUser(context.Background(), 99)
	assert.ErrorIs(t, err, sales.ErrUserNotFound)
	assert.Nil(t, user)
}

func TestClientFindUserServerError(t *testing.T) {
	srv := newUserServer(t)
	client := NewClient(srv.URL)
	defer client.Close()

	_, err := client.FindUser(context.Background(), 500)
	require.Error(t, err)
	assert.NotErrorIs(t, err, sales.ErrUserNotFound)
}
