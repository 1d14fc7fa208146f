package cli

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dmitrijs2005/timekeeper/internal/client/models"
	"github.com/dmitrijs2005/timekeeper/internal/client/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCLI_TwoDevicesConverge(t *testing.T) {
	srv, ts := newSyncServer(t)
	laptop := newInstall(t, "laptop", ts.URL)
	phone := newInstall(t, "phone", ts.URL)

	out := laptop.login()
	assert.Contains(t, out, "Logged in as me@example.com")
	assert.Contains(t, out, "full sync:")

	out = laptop.mustRun("", "task", "add", "write", "report", "--project", "docs", "--tag", "work")
	uid := addedUID(t, out)
	assert.Contains(t, out, "sent 1")
	assert.Equal(t, 1, srv.count(models.KindTask))

	phone.login()
	out = phone.mustRun("", "task", "list")
	assert.Contains(t, out, "write report")
	assert.Contains(t, out, uid)

	phone.mustRun("", "task", "delete", uid[:8])
	out = phone.mustRun("", "task", "list")
	assert.NotContains(t, out, uid)

	laptop.mustRun("", "sync")
	out = laptop.mustRun("", "task", "list")
	assert.NotContains(t, out, uid, "tombstone must reach the other device")
}

func TestCLI_OfflineEditsStayLocal(t *testing.T) {
	srv, ts := newSyncServer(t)
	d := newInstall(t, "laptop", ts.URL)

	out := d.mustRun("", "todo", "add", "buy", "milk", "--date", "2026-03-01")
	uid := addedUID(t, out)
	assert.NotContains(t, out, "sync")

	out = d.mustRun("", "todo", "list")
	assert.Contains(t, out, "buy milk")
	assert.Contains(t, out, "2026-03-01")

	d.mustRun("", "todo", "done", uid)
	out = d.mustRun("", "todo", "list")
	assert.Regexp(t, `buy milk\s+2026-03-01\s+x`, out)

	assert.Zero(t, srv.count(models.KindTodo))

	d.login()
	assert.Equal(t, 1, srv.count(models.KindTodo), "login sends offline edits")
}

func TestCLI_Status(t *testing.T) {
	_, ts := newSyncServer(t)
	d := newInstall(t, "laptop", ts.URL)

	out := d.mustRun("", "status")
	assert.Contains(t, out, "logged out")
	assert.Contains(t, out, "never")

	d.login()
	out = d.mustRun("", "status")
	assert.Contains(t, out, "logged in")
	assert.Contains(t, out, "me@example.com")
	assert.Contains(t, out, ts.URL)
	assert.NotContains(t, out, "never")

	d.mustRun("", "logout")
	out = d.mustRun("", "status")
	assert.Contains(t, out, "logged out")
}

func TestCLI_SyncRequiresLogin(t *testing.T) {
	_, ts := newSyncServer(t)
	d := newInstall(t, "laptop", ts.URL)

	_, err := d.run("", "sync")
	assert.ErrorIs(t, err, session.ErrNotLoggedIn)
}

func TestCLI_LoginServerDown(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	d := newInstall(t, "laptop", url)
	_, err := d.run("secret\n", "login", "--email", "me@example.com")
	require.Error(t, err)

	out := d.mustRun("", "status")
	assert.Contains(t, out, "logged out")
}

func TestCLI_LoginPromptsForEmail(t *testing.T) {
	_, ts := newSyncServer(t)
	d := newInstall(t, "laptop", ts.URL)

	out := d.mustRun("prompted@example.com\nsecret\n", "login")
	assert.Contains(t, out, "Enter email")
	assert.Contains(t, out, "Logged in as prompted@example.com")
}

func TestCLI_TaskStop(t *testing.T) {
	_, ts := newSyncServer(t)
	d := newInstall(t, "laptop", ts.URL)

	uid := addedUID(t, d.mustRun("", "task", "add", "focus"))
	out := d.mustRun("", "task", "list")
	assert.Contains(t, out, "running")

	out = d.mustRun("", "task", "stop", uid)
	assert.Contains(t, out, "stopped")

	_, err := d.run("", "task", "stop", uid)
	assert.Error(t, err, "a stopped task cannot be stopped again")
}

func TestCLI_TaskAddRejectsStopBeforeStart(t *testing.T) {
	_, ts := newSyncServer(t)
	d := newInstall(t, "laptop", ts.URL)

	_, err := d.run("", "task", "add", "x", "--start", "2026-01-02 10:00", "--stop", "2026-01-02 09:00")
	assert.Error(t, err)
}

func TestCLI_ImportForcesFullSync(t *testing.T) {
	srv, ts := newSyncServer(t)
	d := newInstall(t, "laptop", ts.URL)
	d.login()

	recs := []models.Shortcut{
		{SyncMeta: models.SyncMeta{UID: "sc-1", LastUpdated: 10}, Name: "standup", Project: "team"},
		{SyncMeta: models.SyncMeta{UID: "sc-2", LastUpdated: 11}, Name: "review", Rate: 90, Currency: "EUR"},
	}
	b, err := json.Marshal(recs)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "shortcuts.json")
	require.NoError(t, os.WriteFile(path, b, 0o600))

	out := d.mustRun("", "shortcut", "import", path)
	assert.Contains(t, out, "imported 2 records")
	assert.Contains(t, out, "full sync:")
	assert.Equal(t, 2, srv.count(models.KindShortcut))

	out = d.mustRun("", "shortcut", "list")
	assert.Contains(t, out, "standup")
	assert.Contains(t, out, "90 EUR")
}

func TestCLI_ImportRejectsBadJSON(t *testing.T) {
	_, ts := newSyncServer(t)
	d := newInstall(t, "laptop", ts.URL)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))

	_, err := d.run("", "task", "import", path)
	assert.Error(t, err)
}

func TestCLI_DeleteUnknown(t *testing.T) {
	_, ts := newSyncServer(t)
	d := newInstall(t, "laptop", ts.URL)

	_, err := d.run("", "todo", "delete", "nope")
	assert.Error(t, err)
}

func TestCLI_MetricsFile(t *testing.T) {
	_, ts := newSyncServer(t)
	d := newInstall(t, "laptop", ts.URL)
	d.login()

	path := filepath.Join(t.TempDir(), "timekeeper.prom")
	d.mustRun("", "--metrics-file", path, "sync")

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `timekeeper_sync_runs_total{result="ok"} 1`)
}

func TestCLI_Shell(t *testing.T) {
	srv, ts := newSyncServer(t)
	d := newInstall(t, "laptop", ts.URL)
	d.login()

	script := strings.Join([]string{
		"task add from the shell",
		"task list",
		"bogus",
		"shell",
		"exit",
	}, "\n") + "\n"

	out := d.mustRun(script, "shell")
	assert.Contains(t, out, "Welcome to timekeeper")
	assert.Contains(t, out, "from the shell")
	assert.Contains(t, out, "Error:")
	assert.Contains(t, out, "Already in the shell")
	assert.Contains(t, out, "Bye!")

	assert.Equal(t, 1, srv.count(models.KindTask), "edits made in the shell are synced on exit")
}

func TestCLI_VersionDoesNotOpenStore(t *testing.T) {
	d := newInstall(t, "laptop", "http://127.0.0.1:1")

	out := d.mustRun("", "version")
	assert.Contains(t, out, "Build version:")

	_, err := os.Stat(filepath.Join(d.dir, "timekeeper.db"))
	assert.True(t, os.IsNotExist(err))
}
