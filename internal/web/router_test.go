package web

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"photonix/photo-portal/internal/account"
	"photonix/photo-portal/internal/auth"
	"photonix/photo-portal/internal/browse"
	"photonix/photo-portal/internal/config"
	"photonix/photo-portal/internal/events"
	"photonix/photo-portal/internal/library"
	"photonix/photo-portal/internal/onboarding"
)

type portal struct {
	server   *httptest.Server
	client   *http.Client
	repo     library.Repository
	importer *library.Importer
}

func newPortal(t *testing.T) *portal {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	logger := zap.NewNop()

	db, err := library.Open(ctx, config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "photonix.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := library.NewRepository(db)
	libraries := library.NewService(repo, library.OpenBackend, logger)
	importer := library.NewImporter(repo, library.OpenBackend, 1, logger)
	setup := library.NewSetup(repo, nil, logger)

	store := onboarding.NewStateStore(time.Hour)
	t.Cleanup(store.Stop)
	wizard := onboarding.NewWizard(onboarding.NewStorageProber(), setup, logger, onboarding.WithBcryptCost(bcrypt.MinCost))

	sessions := auth.NewSessionManager("test-secret", "photonix_session", time.Hour, false, logger)
	accounts := account.NewService(libraries)
	hub := events.NewHub(libraries, logger)
	t.Cleanup(hub.Stop)
	importer.Subscribe(hub)

	router, err := NewRouter(Handlers{
		Auth:       auth.NewHandler(auth.NewService(libraries), sessions, logger),
		Onboarding: onboarding.NewHandler(wizard, store, logger),
		Browse:     browse.NewHandler(browse.NewService(libraries, accounts, importer, logger), libraries, logger),
		Account:    account.NewHandler(accounts, logger),
		Events:     hub,
	}, sessions, libraries, logger)
	require.NoError(t, err)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &portal{server: server, client: client, repo: repo, importer: importer}
}

func (p *portal) get(t *testing.T, path string) (int, string, string) {
	t.Helper()
	resp, err := p.client.Get(p.server.URL + path)
	require.NoError(t, err)
	return read(t, resp)
}

func (p *portal) post(t *testing.T, path string, form url.Values) (int, string, string) {
	t.Helper()
	resp, err := p.client.PostForm(p.server.URL+path, form)
	require.NoError(t, err)
	return read(t, resp)
}

func read(t *testing.T, resp *http.Response) (int, string, string) {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, resp.Header.Get("Location"), string(body)
}

func TestTemplates(t *testing.T) {
	tmpl, err := Templates()
	require.NoError(t, err)

	names := []string{"header", "footer", "usermenu", "error", "login", "account", "settings", "browse"}
	for _, s := range onboarding.Steps() {
		names = append(names, s.Template())
	}
	names = append(names, "onboarding_step3_fields", "onboarding_step4_fields")

	for _, name := range names {
		assert.NotNil(t, tmpl.Lookup(name), name)
	}
}

func TestPortalFlow(t *testing.T) {
	p := newPortal(t)
	ctx := context.Background()

	basePath := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(basePath, "beach.jpg"), []byte("not decodable"), 0o644))
	incoming := filepath.Join(t.TempDir(), "incoming")

	status, loc, _ := p.get(t, "/")
	assert.Equal(t, http.StatusSeeOther, status)
	assert.Equal(t, "/onboarding", loc)

	status, loc, _ = p.get(t, "/onboarding")
	assert.Equal(t, http.StatusSeeOther, status)
	assert.Equal(t, "/onboarding/step1", loc)

	status, loc, _ = p.get(t, "/onboarding/step3")
	assert.Equal(t, http.StatusSeeOther, status)
	assert.Equal(t, "/onboarding/step1", loc)

	status, _, _ = p.get(t, "/onboarding/step42")
	assert.Equal(t, http.StatusNotFound, status)

	status, _, body := p.get(t, "/onboarding/step1")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `name="passwordConfirm"`)

	status, _, body = p.post(t, "/onboarding/step1", url.Values{
		"username": {"admin"}, "password": {"password1"}, "passwordConfirm": {"password2"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body, "Passwords do not match.")

	status, loc, _ = p.post(t, "/onboarding/step1", url.Values{
		"username": {"admin"}, "password": {"password1"}, "passwordConfirm": {"password1"},
	})
	assert.Equal(t, http.StatusSeeOther, status)
	assert.Equal(t, "/onboarding/step2", loc)

	status, loc, _ = p.post(t, "/onboarding/step2", url.Values{})
	assert.Equal(t, http.StatusSeeOther, status)
	assert.Equal(t, "/onboarding/step3", loc)

	status, _, body = p.post(t, "/onboarding/step3/fields", url.Values{"storageBackend": {"S3"}})
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `name="s3Bucket"`)
	assert.NotContains(t, body, `name="basePath"`)

	status, loc, _ = p.post(t, "/onboarding/step3", url.Values{"storageBackend": {"Lo"}, "basePath": {basePath}})
	assert.Equal(t, http.StatusSeeOther, status)
	assert.Equal(t, "/onboarding/step4", loc)

	status, _, body = p.get(t, "/onboarding/step4")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "We see there are photos already in the location you selected")
	assert.NotContains(t, body, "S3-compatible storage")
	assert.NotContains(t, body, `name="importPath"`)

	status, _, body = p.post(t, "/onboarding/step4/fields", url.Values{"importFromAnotherPath": {"true"}})
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `name="importPath"`)
	assert.Contains(t, body, `name="deleteAfterImport"`)

	status, _, body = p.post(t, "/onboarding/step4/fields", url.Values{})
	assert.Equal(t, http.StatusOK, status)
	assert.NotContains(t, body, `name="importPath"`)

	status, _, body = p.post(t, "/onboarding/step4", url.Values{"importFromAnotherPath": {"true"}})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body, "This field is required.")

	status, loc, _ = p.post(t, "/onboarding/step4", url.Values{
		"watchForChanges": {"true"}, "importFromAnotherPath": {"true"}, "importPath": {incoming},
	})
	assert.Equal(t, http.StatusSeeOther, status)
	assert.Equal(t, "/onboarding/step5", loc)

	status, loc, _ = p.get(t, "/onboarding/step5/back")
	assert.Equal(t, http.StatusSeeOther, status)
	assert.Equal(t, "/onboarding/step4", loc)

	status, _, body = p.get(t, "/onboarding/step4")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, incoming)

	status, loc, _ = p.post(t, "/onboarding/step4", url.Values{
		"watchForChanges": {"true"}, "importFromAnotherPath": {"true"}, "importPath": {incoming},
	})
	assert.Equal(t, http.StatusSeeOther, status)
	assert.Equal(t, "/onboarding/step5", loc)

	status, loc, _ = p.post(t, "/onboarding/step5", url.Values{"classificationColor": {"true"}})
	assert.Equal(t, http.StatusSeeOther, status)
	assert.Equal(t, "/onboarding/step6", loc)

	status, loc, _ = p.post(t, "/onboarding/step6", url.Values{"libraryName": {"Family"}})
	assert.Equal(t, http.StatusSeeOther, status)
	assert.Equal(t, "/login", loc)

	// the wizard is closed once a user exists
	status, loc, _ = p.get(t, "/onboarding/step1")
	assert.Equal(t, http.StatusSeeOther, status)
	assert.Equal(t, "/", loc)

	status, loc, _ = p.get(t, "/")
	assert.Equal(t, http.StatusSeeOther, status)
	assert.Equal(t, "/login", loc)

	status, _, body = p.post(t, "/login", url.Values{"username": {"admin"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Contains(t, body, "Incorrect username or password.")

	status, loc, _ = p.post(t, "/login", url.Values{"username": {"admin"}, "password": {"password1"}})
	assert.Equal(t, http.StatusSeeOther, status)
	assert.Equal(t, "/", loc)

	status, _, body = p.get(t, "/")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "No photos yet.")
	assert.Contains(t, body, `href="/account"`)
	assert.Contains(t, body, ">Family<")
	assert.Contains(t, body, `href="/settings"`)
	assert.Contains(t, body, `href="/logout"`)

	status, _, body = p.get(t, "/?mode=map")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "There are no photos to show on the map yet.")

	user, err := p.repo.GetUserByUsername(ctx, "admin")
	require.NoError(t, err)
	libs, err := p.repo.ListLibraries(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, libs, 1)

	paths, err := p.repo.ListPaths(ctx, libs[0].ID)
	require.NoError(t, err)
	require.Len(t, paths, 2)

	sum, err := p.importer.ImportLibrary(ctx, libs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Imported)

	photos, err := p.repo.ListPhotos(ctx, library.PhotoFilter{LibraryID: libs[0].ID})
	require.NoError(t, err)
	require.Len(t, photos, 1)

	status, _, body = p.get(t, "/")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, browse.PhotoURL(photos[0].ID))

	status, _, body = p.get(t, "/?mode=map")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `id="map"`)
	assert.Contains(t, body, browse.PhotoURL(photos[0].ID))

	status, _, body = p.get(t, browse.PhotoURL(photos[0].ID))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "not decodable", body)

	status, _, _ = p.get(t, browse.PhotoURL("missing"))
	assert.Equal(t, http.StatusNotFound, status)

	status, loc, _ = p.post(t, "/filters/toggle", url.Values{"mode": {"map"}, "toggle": {"Red"}})
	assert.Equal(t, http.StatusSeeOther, status)
	assert.Equal(t, "/?filter=Red&mode=map", loc)

	status, loc, _ = p.post(t, "/filters/clear", url.Values{"filter": {"Red"}, "q": {"sea"}})
	assert.Equal(t, http.StatusSeeOther, status)
	assert.Equal(t, "/?q=sea", loc)

	status, loc, _ = p.post(t, "/search/expand", url.Values{})
	assert.Equal(t, http.StatusSeeOther, status)
	assert.Equal(t, "/?expanded=true", loc)

	status, _, body = p.get(t, "/account")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "admin")

	status, _, body = p.get(t, "/settings")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Family")
	assert.Contains(t, body, incoming)

	// plain requests are refused by the WebSocket upgrade
	status, _, _ = p.get(t, "/events?library="+libs[0].ID)
	assert.Equal(t, http.StatusBadRequest, status)
	status, _, _ = p.get(t, "/events?library=other")
	assert.Equal(t, http.StatusNotFound, status)

	status, loc, _ = p.get(t, "/logout")
	assert.Equal(t, http.StatusSeeOther, status)
	assert.Equal(t, "/", loc)

	status, loc, _ = p.get(t, "/")
	assert.Equal(t, http.StatusSeeOther, status)
	assert.Equal(t, "/login", loc)
}

func TestHealth(t *testing.T) {
	p := newPortal(t)
	status, _, body := p.get(t, "/health")
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, strings.Contains(body, "healthy"))

	status, _, body = p.get(t, "/static/photonix.css")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "body")
}
