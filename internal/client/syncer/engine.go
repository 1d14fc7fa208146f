package syncer

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/timekeeper/internal/client/client"
	"github.com/dmitrijs2005/timekeeper/internal/client/models"
	"github.com/dmitrijs2005/timekeeper/internal/client/session"
	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/dmitrijs2005/timekeeper/internal/logging"
)

// maxRounds bounds a run to the initial exchange plus one orphan repair.
const maxRounds = 2

type Engine struct {
	session     *session.Session
	api         client.Client
	collections []collection
	log         logging.Logger
}

func NewEngine(
	sess *session.Session,
	api client.Client,
	tasks Store[models.Task],
	shortcuts Store[models.Shortcut],
	todos Store[models.Todo],
	log logging.Logger,
) *Engine {
	log = log.With("component", "syncer")
	return &Engine{
		session: sess,
		api:     api,
		collections: []collection{
			newCollection(models.KindTask, tasks, log),
			newCollection(models.KindShortcut, shortcuts, log),
			newCollection(models.KindTodo, todos, log),
		},
		log: log,
	}
}

// Sync performs one run and returns the advanced state.
//
// The returned state is meaningful even when err is non-nil: a failed
// refresh yields a LoggedOut session, and a failure in the repair round
// still carries the cursor advanced by the first round.
func (e *Engine) Sync(ctx context.Context, st State) (State, Outcome, error) {
	out := Outcome{FullSync: st.Cursor.NeedsFullSync}

	if !st.Session.IsLoggedIn() {
		return st, out, session.ErrNotLoggedIn
	}

	key, err := e.session.UserKey(ctx, st.Session)
	if err != nil {
		return st, out, err
	}
	defer common.WipeByteArray(key)

	deviceID, err := e.session.DeviceID(ctx)
	if err != nil {
		return st, out, err
	}

	req := newRequest(st.Cursor.LastSync, deviceID)
	for _, c := range e.collections {
		recs, err := c.gather(ctx, key, st.Cursor, &out)
		if err != nil {
			return st, out, fmt.Errorf("gather %ss: %w", c.kind(), err)
		}
		for _, r := range recs {
			req.Add(c.kind(), r)
		}
	}

	sent := make(map[string]struct{})
	startedAt := st.Cursor.LastSync

	for round := 1; round <= maxRounds; round++ {
		e.log.Debug(ctx, "sending sync request", "round", round, "records", req.Len(), "full", out.FullSync)

		var resp *models.SyncResponse
		server := st.Session.Credential.ServerURL
		st.Session, err = e.session.Authorized(ctx, st.Session, func(ctx context.Context, token string) error {
			var err error
			resp, err = e.api.Sync(ctx, server, token, req)
			return err
		})
		if err != nil {
			out.Sent = len(sent)
			return st, out, err
		}
		out.Rounds = round

		for _, c := range e.collections {
			for _, r := range req.Records(c.kind()) {
				sent[string(c.kind())+"/"+r.UID] = struct{}{}
			}
			c.merge(ctx, key, resp.Records(c.kind()), &out)
		}

		// A record the store could not write must come back in the next
		// delta, so the cursor stays where this run started.
		if out.Failed > 0 {
			st.Cursor = models.SyncCursor{LastSync: startedAt}
			e.log.Warn(ctx, "inbound records not stored, holding sync cursor",
				"failed", out.Failed, "cursor", startedAt)
		} else {
			st.Cursor = models.SyncCursor{LastSync: resp.ServerTimestamp}
		}
		out.ServerTimestamp = resp.ServerTimestamp

		if !resp.HasOrphans() {
			break
		}
		if round == maxRounds {
			e.log.Warn(ctx, "server still reports orphans after repair round, leaving them for the next sync",
				"tasks", len(resp.OrphanedTasks), "shortcuts", len(resp.OrphanedShortcuts), "todos", len(resp.OrphanedTodos))
			break
		}

		req = newRequest(st.Cursor.LastSync, deviceID)
		for _, c := range e.collections {
			ids := resp.Orphans(c.kind())
			out.Orphans += len(ids)
			for _, r := range c.lookup(ctx, key, ids, &out) {
				req.Add(c.kind(), r)
			}
		}
		out.Repaired = req.Len()
		if req.Len() == 0 {
			break
		}
		e.log.Info(ctx, "re-sending orphaned records", "count", out.Repaired)
	}

	out.Sent = len(sent)
	return st, out, nil
}

// newRequest starts a request whose lists encode as [] rather than null.
func newRequest(lastSync int64, deviceID string) *models.SyncRequest {
	return &models.SyncRequest{
		LastSync:  lastSync,
		DeviceID:  deviceID,
		Tasks:     []models.EncryptedRecord{},
		Shortcuts: []models.EncryptedRecord{},
		Todos:     []models.EncryptedRecord{},
	}
}
