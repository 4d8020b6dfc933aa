package credstore

import (
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_LoadMissingFile(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)

	state, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, &SessionState{}, state)
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	require.NoError(t, err)

	expiry := time.Date(2026, 4, 1, 19, 5, 0, 0, time.UTC)
	want := &SessionState{
		APIKey:            "api",
		ClientAPIKey:      "client",
		OktaClientID:      "okta",
		SessionToken:      "sess",
		AccessToken:       "tok",
		AccessTokenExpiry: &expiry,
	}
	require.NoError(t, store.Save(want))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, want.APIKey, got.APIKey)
	assert.Equal(t, want.AccessToken, got.AccessToken)
	require.NotNil(t, got.AccessTokenExpiry)
	assert.True(t, expiry.Equal(*got.AccessTokenExpiry))

	// no temp files are left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{SessionFile, CookieFile}, names)
}

func TestStore_SaveRejectsTokenWithoutExpiry(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	require.NoError(t, err)

	err = store.Save(&SessionState{AccessToken: "tok"})
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(dir, SessionFile))
	assert.True(t, os.IsNotExist(statErr))
}

func TestStore_LoadCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, SessionFile), []byte("{not json"), 0o600))

	store, err := Open(dir)
	require.NoError(t, err)

	_, err = store.Load()
	assert.Error(t, err)
}

func TestStore_DestroyIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, store.Save(&SessionState{APIKey: "api"}))

	require.NoError(t, store.Destroy())
	require.NoError(t, store.Destroy())

	for _, name := range []string{SessionFile, CookieFile} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.True(t, os.IsNotExist(err), name)
	}
}

func TestDestroy_RemovesCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{SessionFile, CookieFile} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{not json"), 0o600))
	}

	_, err := Open(dir)
	require.Error(t, err, "the jar cannot be decoded")

	require.NoError(t, Destroy(dir))
	for _, name := range []string{SessionFile, CookieFile} {
		assert.NoFileExists(t, filepath.Join(dir, name))
	}
	assert.NoError(t, Destroy(dir))
}

func TestStore_CookiesPersistAcrossOpen(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	require.NoError(t, err)

	u, _ := url.Parse("https://ids.mlb.com/api/v1/authn")
	store.Jar().SetCookies(u, []*http.Cookie{
		{Name: "sid", Value: "abc", Path: "/", Domain: "mlb.com"},
		{Name: "gone", Value: "x", Path: "/", MaxAge: -1},
		{Name: "host", Value: "only"},
	})
	require.NoError(t, store.Save(&SessionState{}))

	reopened, err := Open(dir)
	require.NoError(t, err)

	www, _ := url.Parse("https://www.mlb.com/tv")
	cookies := reopened.Jar().Cookies(www)
	require.Len(t, cookies, 1)
	assert.Equal(t, "sid", cookies[0].Name)
	assert.Equal(t, "abc", cookies[0].Value)

	ids, _ := url.Parse("https://ids.mlb.com/api/v1/other")
	assert.Equal(t, "host=only; sid=abc", reopened.Jar().Header(ids))
}

func TestJar_ImportDropsExpired(t *testing.T) {
	jar := NewJar()
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	jar.Import([]CookieState{
		{Domain: "mlb.com", Path: "/", Name: "old", Value: "1", Expires: &past},
		{Domain: "mlb.com", Path: "/", Name: "new", Value: "2", Expires: &future},
	})

	exported := jar.Export()
	require.Len(t, exported, 1)
	assert.Equal(t, "new", exported[0].Name)
}
