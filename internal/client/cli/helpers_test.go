package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/client/models"
	"github.com/dmitrijs2005/timekeeper/internal/client/session"
	"github.com/stretchr/testify/require"
)

type fixedDevice string

func (d fixedDevice) DeviceID(context.Context) (string, error) { return string(d), nil }

// syncServer is an in-memory stand-in for the remote service: it keeps the
// newest envelope per kind and uid and returns everything newer than the
// client's cursor.
type syncServer struct {
	mu     sync.Mutex
	recs   map[models.Kind]map[string]models.EncryptedRecord
	clock  int64
	syncs  int
	logins int
}

func newSyncServer(t *testing.T) (*syncServer, *httptest.Server) {
	t.Helper()
	s := &syncServer{recs: make(map[models.Kind]map[string]models.EncryptedRecord)}
	for _, k := range models.Kinds {
		s.recs[k] = make(map[string]models.EncryptedRecord)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/login", func(w http.ResponseWriter, r *http.Request) {
		var req models.LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.EncryptionKey == "" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		s.logins++
		s.mu.Unlock()
		writeJSON(w, models.LoginResponse{AccessToken: "access", RefreshToken: "refresh"})
	})
	mux.HandleFunc("/api/logout", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, struct{}{})
	})
	mux.HandleFunc("/api/sync", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req models.SyncRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		writeJSON(w, s.apply(&req))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return s, srv
}

func (s *syncServer) apply(req *models.SyncRequest) models.SyncResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncs++

	for _, k := range models.Kinds {
		for _, rec := range req.Records(k) {
			if cur, ok := s.recs[k][rec.UID]; !ok || rec.LastUpdated > cur.LastUpdated {
				s.recs[k][rec.UID] = rec
			}
		}
	}

	s.clock = max(s.clock+1, time.Now().Unix())
	resp := models.SyncResponse{ServerTimestamp: s.clock}
	for _, k := range models.Kinds {
		for _, rec := range s.recs[k] {
			if rec.LastUpdated <= req.LastSync {
				continue
			}
			switch k {
			case models.KindTask:
				resp.Tasks = append(resp.Tasks, rec)
			case models.KindShortcut:
				resp.Shortcuts = append(resp.Shortcuts, rec)
			case models.KindTodo:
				resp.Todos = append(resp.Todos, rec)
			}
		}
	}
	return resp
}

func (s *syncServer) count(k models.Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.recs[k])
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// install is one client installation: its own data dir and device id.
type install struct {
	t      *testing.T
	id     string
	dir    string
	server string
}

func newInstall(t *testing.T, id, server string) *install {
	t.Helper()
	return &install{t: t, id: id, dir: t.TempDir(), server: server}
}

// run executes one command line with stdin as input and returns stdout.
func (d *install) run(stdin string, args ...string) (string, error) {
	d.t.Helper()

	origDevice, origIsTerm := newDeviceIdentity, stdinIsTerminal
	newDeviceIdentity = func() session.DeviceIdentity { return fixedDevice(d.id) }
	stdinIsTerminal = func() bool { return false }
	defer func() { newDeviceIdentity, stdinIsTerminal = origDevice, origIsTerm }()

	base := []string{
		"--data-dir", d.dir,
		"--server", d.server,
		"--env-file", "",
		"--log-level", "error",
		"--debounce", "1h",
	}

	var out bytes.Buffer
	err := Execute(context.Background(), append(base, args...), strings.NewReader(stdin), &out, io.Discard)
	return out.String(), err
}

func (d *install) mustRun(stdin string, args ...string) string {
	d.t.Helper()
	out, err := d.run(stdin, args...)
	require.NoError(d.t, err, out)
	return out
}

func (d *install) login() string {
	d.t.Helper()
	return d.mustRun("correct horse battery staple\n", "login", "--email", "me@example.com")
}

var addedRe = regexp.MustCompile(`(?m)^\w+ ([0-9a-f-]+) added$`)

func addedUID(t *testing.T, out string) string {
	t.Helper()
	m := addedRe.FindStringSubmatch(out)
	require.Len(t, m, 2, out)
	return m[1]
}
