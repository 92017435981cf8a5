package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/portside/shipper/internal/queue"
	"github.com/portside/shipper/internal/sigkey"
	"github.com/portside/shipper/internal/store"
	"github.com/portside/shipper/internal/transport"
)

type fakeTransport struct {
	mu      sync.Mutex
	uploads []string
}

func (f *fakeTransport) Upload(ctx context.Context, serverURL, pathKey, filename, filePath string,
	extract bool, hdr *sigkey.Headers, onProgress func(sent, total int64)) (*transport.Result, error) {
	f.mu.Lock()
	f.uploads = append(f.uploads, filename)
	f.mu.Unlock()
	return &transport.Result{Success: true, Status: "ok"}, nil
}

func (f *fakeTransport) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploads)
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate("0 8 * * *"))
	require.NoError(t, Validate("*/5 * * * 1-5"))

	require.ErrorIs(t, Validate("not a cron"), ErrInvalidCronExpression)
	require.ErrorIs(t, Validate("61 * * * *"), ErrInvalidCronExpression)
	require.ErrorIs(t, Validate("* * * *"), ErrInvalidCronExpression)
}

func TestMatchesMinute(t *testing.T) {
	sched, err := Parse("0 8 * * *")
	require.NoError(t, err)

	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	require.False(t, matchesMinute(sched, day.Add(7*time.Hour+59*time.Minute)))
	require.True(t, matchesMinute(sched, day.Add(8*time.Hour)))
	require.False(t, matchesMinute(sched, day.Add(8*time.Hour+time.Minute)))

	// Sub-minute timestamps match their containing minute exactly once.
	require.True(t, matchesMinute(sched, day.Add(8*time.Hour+30*time.Second)))
}

type fixture struct {
	db    *store.DB
	tr    *fakeTransport
	sched *Scheduler
	srv   store.Server
	src   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := store.Open(filepath.Join(t.TempDir(), "shipper.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	srv, err := db.SaveServer(store.Server{Name: "prod", URL: "https://deploy.example.com", Paths: []string{"web"}})
	require.NoError(t, err)

	priv, pub, err := sigkey.Generate()
	require.NoError(t, err)
	require.NoError(t, db.SaveIdentity(priv, pub))

	src := filepath.Join(t.TempDir(), "app.bin")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0644))

	tr := &fakeTransport{}
	orch := queue.New(db, tr, nil, 0)
	return &fixture{db: db, tr: tr, sched: New(db, orch), srv: srv, src: src}
}

func (f *fixture) addSchedule(t *testing.T, expr string, enabled bool) store.Schedule {
	t.Helper()
	sc, err := f.db.SaveSchedule(store.Schedule{
		Name: "daily", CronExpr: expr, SourcePath: f.src,
		ServerID: f.srv.ID, PathKey: "web", Enabled: enabled,
	})
	require.NoError(t, err)
	return sc
}

func TestTick_FiresOnlyOnMatchingMinute(t *testing.T) {
	f := newFixture(t)
	f.addSchedule(t, "0 8 * * *", true)

	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	f.sched.tick(context.Background(), day.Add(7*time.Hour+59*time.Minute))
	f.sched.tick(context.Background(), day.Add(8*time.Hour+time.Minute))
	time.Sleep(50 * time.Millisecond)
	require.Zero(t, f.tr.count())

	f.sched.tick(context.Background(), day.Add(8*time.Hour))
	require.Eventually(t, func() bool { return f.tr.count() == 1 },
		2*time.Second, 10*time.Millisecond)
}

func TestTick_DisabledScheduleDoesNotFire(t *testing.T) {
	f := newFixture(t)
	sc := f.addSchedule(t, "0 8 * * *", true)

	sc.Enabled = false
	_, err := f.db.SaveSchedule(sc)
	require.NoError(t, err)

	f.sched.tick(context.Background(), time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC))
	time.Sleep(100 * time.Millisecond)
	require.Zero(t, f.tr.count())
}

func TestTick_SameMinuteSchedulesBothFire(t *testing.T) {
	f := newFixture(t)

	srcB := filepath.Join(t.TempDir(), "b.bin")
	require.NoError(t, os.WriteFile(srcB, []byte("y"), 0644))

	_, err := f.db.SaveSchedule(store.Schedule{Name: "a", CronExpr: "30 12 * * *",
		SourcePath: f.src, ServerID: f.srv.ID, PathKey: "web", Enabled: true})
	require.NoError(t, err)
	_, err = f.db.SaveSchedule(store.Schedule{Name: "b", CronExpr: "30 12 * * *",
		SourcePath: srcB, ServerID: f.srv.ID, PathKey: "web", Enabled: true})
	require.NoError(t, err)

	f.sched.tick(context.Background(), time.Date(2026, 3, 14, 12, 30, 0, 0, time.UTC))
	require.Eventually(t, func() bool { return f.tr.count() == 2 },
		2*time.Second, 10*time.Millisecond)
}

func TestTick_MalformedExpressionIsSkipped(t *testing.T) {
	f := newFixture(t)

	// SaveSchedule rejects bad expressions, so write the row directly to
	// simulate a database from before validation existed.
	_, err := f.db.Exec(`
		INSERT INTO schedules (id, name, cron_expr, source_path, server_id, path_key, extract, enabled)
		VALUES ('legacy', 'broken', 'garbage', ?, ?, 'web', 0, 1)
	`, f.src, f.srv.ID)
	require.NoError(t, err)
	f.addSchedule(t, "15 9 * * *", true)

	f.sched.tick(context.Background(), time.Date(2026, 3, 14, 9, 15, 0, 0, time.UTC))
	require.Eventually(t, func() bool { return f.tr.count() == 1 },
		2*time.Second, 10*time.Millisecond)
}
