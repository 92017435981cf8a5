package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "shipper.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSaveServer_GeneratesIDAndCreatedAt(t *testing.T) {
	db := testDB(t)

	srv, err := db.SaveServer(Server{Name: "prod", URL: "https://deploy.example.com", Paths: []string{"web"}})
	require.NoError(t, err)
	require.NotEmpty(t, srv.ID)
	require.NotEmpty(t, srv.CreatedAt)

	got, err := db.Server(srv.ID)
	require.NoError(t, err)
	require.Equal(t, "prod", got.Name)
	require.Equal(t, []string{"web"}, got.Paths)
	require.False(t, got.IsDefault)
}

func TestSaveServer_UpdatePreservesCreatedAt(t *testing.T) {
	db := testDB(t)

	srv, err := db.SaveServer(Server{Name: "prod", URL: "https://a.example.com"})
	require.NoError(t, err)

	srv.Name = "prod-renamed"
	srv.URL = "https://b.example.com"
	updated, err := db.SaveServer(srv)
	require.NoError(t, err)
	require.Equal(t, srv.ID, updated.ID)

	got, err := db.Server(srv.ID)
	require.NoError(t, err)
	require.Equal(t, "prod-renamed", got.Name)
	require.Equal(t, srv.CreatedAt, got.CreatedAt)
}

func TestSetDefaultServer_AtMostOneDefault(t *testing.T) {
	db := testDB(t)

	a, err := db.SaveServer(Server{Name: "a", URL: "https://a"})
	require.NoError(t, err)
	b, err := db.SaveServer(Server{Name: "b", URL: "https://b"})
	require.NoError(t, err)

	require.NoError(t, db.SetDefaultServer(a.ID))
	require.NoError(t, db.SetDefaultServer(b.ID))

	servers, err := db.Servers()
	require.NoError(t, err)

	defaults := 0
	for _, s := range servers {
		if s.IsDefault {
			defaults++
			require.Equal(t, b.ID, s.ID)
		}
	}
	require.Equal(t, 1, defaults)
}

func TestSaveServer_CannotMintDefault(t *testing.T) {
	db := testDB(t)

	_, err := db.SaveServer(Server{Name: "a", URL: "https://a", IsDefault: true})
	require.NoError(t, err)
	_, err = db.SaveServer(Server{Name: "b", URL: "https://b", IsDefault: true})
	require.NoError(t, err)

	servers, err := db.Servers()
	require.NoError(t, err)
	for _, s := range servers {
		require.False(t, s.IsDefault, "only SetDefaultServer may flip the default flag")
	}
	_, err = db.DefaultServer()
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSaveServer_UpdateKeepsDefaultFlag(t *testing.T) {
	db := testDB(t)

	srv, err := db.SaveServer(Server{Name: "prod", URL: "https://a"})
	require.NoError(t, err)
	require.NoError(t, db.SetDefaultServer(srv.ID))

	srv.Name = "prod-renamed"
	_, err = db.SaveServer(srv)
	require.NoError(t, err)

	got, err := db.DefaultServer()
	require.NoError(t, err)
	require.Equal(t, srv.ID, got.ID)
	require.Equal(t, "prod-renamed", got.Name)
}

func TestSetDefaultServer_NotFound(t *testing.T) {
	db := testDB(t)
	require.ErrorIs(t, db.SetDefaultServer("missing"), ErrNotFound)
}

func TestDeleteServer_DefaultNotReassigned(t *testing.T) {
	db := testDB(t)

	a, err := db.SaveServer(Server{Name: "a", URL: "https://a"})
	require.NoError(t, err)
	_, err = db.SaveServer(Server{Name: "b", URL: "https://b"})
	require.NoError(t, err)

	require.NoError(t, db.SetDefaultServer(a.ID))
	require.NoError(t, db.DeleteServer(a.ID))

	_, err = db.DefaultServer()
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteServer_NotFound(t *testing.T) {
	db := testDB(t)
	require.ErrorIs(t, db.DeleteServer("missing"), ErrNotFound)
}

func TestIdentity_AbsentThenOverwritten(t *testing.T) {
	db := testDB(t)

	id, err := db.Identity()
	require.NoError(t, err)
	require.Nil(t, id)

	require.NoError(t, db.SaveIdentity("priv1", "pub1"))
	require.NoError(t, db.SaveIdentity("priv2", "pub2"))

	id, err = db.Identity()
	require.NoError(t, err)
	require.Equal(t, "priv2", id.PrivateKey)
	require.Equal(t, "pub2", id.PublicKey)
	require.NotEmpty(t, id.UpdatedAt)
}

func TestHistory_OrderAndClear(t *testing.T) {
	db := testDB(t)

	for _, name := range []string{"first.zip", "second.zip", "third.zip"} {
		require.NoError(t, db.AddHistory(HistoryEntry{Filename: name, Status: HistorySuccess}))
	}

	entries, err := db.History(2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "third.zip", entries[0].Filename)
	require.Equal(t, "second.zip", entries[1].Filename)

	require.NoError(t, db.ClearHistory())
	entries, err = db.History(100)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestSchedules_CRUD(t *testing.T) {
	db := testDB(t)

	sc, err := db.SaveSchedule(Schedule{Name: "nightly", CronExpr: "0 3 * * *", SourcePath: "/tmp/x", PathKey: "web", Enabled: true})
	require.NoError(t, err)
	require.NotEmpty(t, sc.ID)

	sc.Enabled = false
	_, err = db.SaveSchedule(sc)
	require.NoError(t, err)

	got, err := db.Schedule(sc.ID)
	require.NoError(t, err)
	require.False(t, got.Enabled)

	require.NoError(t, db.DeleteSchedule(sc.ID))
	require.ErrorIs(t, db.DeleteSchedule(sc.ID), ErrNotFound)
}

func TestSaveSchedule_RejectsMalformedCron(t *testing.T) {
	db := testDB(t)

	for _, expr := range []string{"garbage", "61 * * * *", "* * * *"} {
		_, err := db.SaveSchedule(Schedule{Name: "bad", CronExpr: expr, SourcePath: "/tmp/x", PathKey: "web"})
		require.ErrorIs(t, err, ErrInvalidCronExpression, expr)
	}

	schedules, err := db.Schedules()
	require.NoError(t, err)
	require.Empty(t, schedules)
}

func TestWatches_CRUDAndDebounceDefault(t *testing.T) {
	db := testDB(t)

	w, err := db.SaveWatch(WatchConfig{FolderPath: "/tmp/build", PathKey: "web", Patterns: []string{"*.zip"}, Enabled: true})
	require.NoError(t, err)
	require.NotEmpty(t, w.ID)
	require.Equal(t, 1000, w.DebounceMs)

	got, err := db.Watch(w.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"*.zip"}, got.Patterns)

	require.NoError(t, db.DeleteWatch(w.ID))
	require.ErrorIs(t, db.DeleteWatch(w.ID), ErrNotFound)
}
