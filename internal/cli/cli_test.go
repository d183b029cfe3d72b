package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickwise/timetrack/internal/api/handler"
	"github.com/tickwise/timetrack/internal/core/domain"
	"github.com/tickwise/timetrack/internal/infrastructure/config"
	"github.com/tickwise/timetrack/internal/infrastructure/db/memory"
	"github.com/tickwise/timetrack/internal/infrastructure/db/sqlite"
	"github.com/tickwise/timetrack/pkg/logger"
)

const directoryFile = "../infrastructure/directory/testdata/directory.yaml"

// seedSQLite writes entries for two users into a fresh database and points
// the environment at it.
func seedSQLite(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "timetrack.db")
	st, err := sqlite.Open(path)
	require.NoError(t, err)

	at := func(day, hour int) time.Time { return time.Date(2024, 3, day, hour, 0, 0, 0, time.UTC) }
	seed := []*domain.TimeEntry{
		{ID: "e1", UserID: "alice", ProjectID: "acme-web", StartTime: at(4, 9), EndTime: at(4, 10), DurationSeconds: 3600, Billable: domain.Bool(true)},
		{ID: "e2", UserID: "alice", ProjectID: "internal", StartTime: at(5, 9), EndTime: at(5, 10), DurationSeconds: 3600, Billable: domain.Bool(false)},
		{ID: "e3", UserID: "alice", ProjectID: "acme-web", StartTime: at(9, 9), EndTime: at(9, 10), DurationSeconds: 3600},
		{ID: "e4", UserID: "bob", ProjectID: "acme-web", StartTime: at(4, 9), EndTime: at(4, 11), DurationSeconds: 7200},
	}
	for _, e := range seed {
		require.NoError(t, st.Entries().Insert(context.Background(), e))
	}
	require.NoError(t, st.Close())

	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", path)
	t.Setenv("DIRECTORY_FILE", directoryFile)
	t.Setenv("ENV", "test")
	t.Cleanup(logger.Reset)
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestReportCommand_CSV(t *testing.T) {
	seedSQLite(t)

	out, err := execute(t, "report", "--user", "alice", "--from", "2024-03-05", "--to", "2024-03-04", "--log-level", "error")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3, out)
	assert.Equal(t, "date,project,description,duration_hours,billable", lines[0])
	assert.Equal(t, "2024-03-04,Acme Website,,1.00,Yes", lines[1])
	assert.Equal(t, "2024-03-05,Internal,,1.00,No", lines[2])
}

func TestReportCommand_BillableOnly(t *testing.T) {
	seedSQLite(t)

	out, err := execute(t, "report", "--user", "alice", "--billable-only", "--log-level", "error")
	require.NoError(t, err)

	assert.NotContains(t, out, "Internal")
	assert.Equal(t, 3, strings.Count(strings.TrimSpace(out), "\n")+1)
}

func TestReportCommand_PDFToFile(t *testing.T) {
	seedSQLite(t)
	target := filepath.Join(t.TempDir(), "report.pdf")

	_, err := execute(t, "report", "--user", "bob", "--format", "pdf", "--out", target, "--log-level", "error")
	require.NoError(t, err)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestReportCommand_Rejections(t *testing.T) {
	seedSQLite(t)

	_, err := execute(t, "report", "--from", "2024-03-04")
	assert.Error(t, err, "--user is required")

	_, err = execute(t, "report", "--user", "alice", "--format", "xlsx")
	assert.ErrorContains(t, err, "invalid format")

	_, err = execute(t, "report", "--user", "alice", "--from", "March 4")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestServeCommand_RequiresSecret(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "")

	_, err := execute(t, "serve")

	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestOpenBackend_Memory(t *testing.T) {
	cfg := &config.Config{StoreDriver: config.DriverMemory}

	b, err := openBackend(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer b.Close(context.Background())

	assert.IsType(t, &memory.TimerRepository{}, b.timers)
	projects, err := b.directory.Projects(context.Background())
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, domain.UnassignedProjectID, projects[0].ID)
}

func TestOpenBackend_SQLiteWithDirectory(t *testing.T) {
	cfg := &config.Config{
		StoreDriver:   config.DriverSQLite,
		DirectoryFile: directoryFile,
		SQLite:        config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "t.db")},
	}

	b, err := openBackend(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer b.Close(context.Background())

	require.Contains(t, b.health, "sqlite")
	assert.NoError(t, b.health["sqlite"](context.Background()))
	p, err := b.directory.Project(context.Background(), "globex-app")
	require.NoError(t, err)
	assert.Equal(t, "Globex", p.ClientName)
}

func TestOpenBackend_UnknownDriver(t *testing.T) {
	_, err := openBackend(context.Background(), &config.Config{StoreDriver: "csv"}, zerolog.Nop())

	assert.ErrorContains(t, err, "unknown store driver")
}

func TestChangeFeed_FallsBackToLocalFeed(t *testing.T) {
	b := &backend{health: map[string]handler.Pinger{}}
	feed, pub, dedup := changeFeed(context.Background(), &config.Config{}, b, zerolog.Nop())

	assert.Nil(t, dedup)
	assert.Same(t, feed, pub)
	assert.NotContains(t, b.health, "redis")
	require.NoError(t, b.Close(context.Background()))
}
