package events

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"photonix/photo-portal/internal/auth"
	"photonix/photo-portal/internal/library"
)

type stubLibraries map[string][]library.Library

func (s stubLibraries) Libraries(_ context.Context, userID string) ([]library.Library, error) {
	return s[userID], nil
}

type testServer struct {
	hub    *Hub
	server *httptest.Server
	dialer *websocket.Dialer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	hub := NewHub(stubLibraries{"u1": {{ID: "lib1", Name: "Family"}}}, logger)
	t.Cleanup(hub.Stop)

	sessions := auth.NewSessionManager("test-secret", "session", time.Hour, false, logger)
	router := gin.New()
	router.Use(sessions.Middleware())
	router.GET("/login", func(c *gin.Context) {
		assert.NoError(t, sessions.Login(c, "u1", "admin"))
		c.Status(http.StatusNoContent)
	})
	router.GET("/events", hub.Serve)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	resp, err := (&http.Client{Jar: jar}).Get(server.URL + "/login")
	require.NoError(t, err)
	resp.Body.Close()

	return &testServer{hub: hub, server: server, dialer: &websocket.Dialer{Jar: jar}}
}

func (ts *testServer) wsURL(query string) string {
	return "ws" + strings.TrimPrefix(ts.server.URL, "http") + "/events" + query
}

func TestHubDeliversLibraryEvents(t *testing.T) {
	ts := newTestServer(t)

	conn, _, err := ts.dialer.Dial(ts.wsURL("?library=lib1"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return ts.hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	ts.hub.ImportStarted("lib2")
	ts.hub.ImportFinished("lib1", library.Summary{Imported: 3, Skipped: 1})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var e Event
	require.NoError(t, conn.ReadJSON(&e))
	assert.Equal(t, TypeImportFinished, e.Type)
	assert.Equal(t, "lib1", e.LibraryID)
	assert.Equal(t, 3, e.Imported)
	assert.Equal(t, 1, e.Skipped)
	assert.False(t, e.Timestamp.IsZero())
}

func TestHubRejectsForeignLibrary(t *testing.T) {
	ts := newTestServer(t)

	_, resp, err := ts.dialer.Dial(ts.wsURL("?library=lib2"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, resp, err = ts.dialer.Dial(ts.wsURL(""), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(ts.wsURL("?library=lib1"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHubStopDisconnectsClients(t *testing.T) {
	ts := newTestServer(t)

	conn, _, err := ts.dialer.Dial(ts.wsURL("?library=lib1"), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return ts.hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	ts.hub.Stop()
	ts.hub.Stop()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}
