package syncengine

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/example/lawstudy/internal/database"
	"github.com/example/lawstudy/internal/events"
	"github.com/example/lawstudy/internal/localstore"
	"github.com/example/lawstudy/pkg/models"
)

// Status returns the connectivity state
func (e *Engine) Status() Status {
	e.connMu.Lock()
	defer e.connMu.Unlock()
	s := Status{State: e.state, LocalOnly: e.remote == nil}
	if e.lastSyncAt != nil {
		t := *e.lastSyncAt
		s.LastSyncAt = &t
	}
	if e.lastErr != nil {
		s.LastError = e.lastErr.Error()
	}
	return s
}

func (e *Engine) setState(state State, err error) {
	e.connMu.Lock()
	defer e.connMu.Unlock()
	e.state = state
	e.lastErr = err
}

func (e *Engine) remoteExecutor() (database.Executor, State) {
	e.connMu.Lock()
	defer e.connMu.Unlock()
	return e.remote, e.state
}

// Configure replaces the remote executor. A nil executor switches to
// local-only mode. The engine is Disconnected until the next Connect or Tick.
func (e *Engine) Configure(exec database.Executor) {
	e.connMu.Lock()
	defer e.connMu.Unlock()
	e.remote = exec
	e.state = Disconnected
	e.lastErr = nil
}

// Connect checks the remote and creates its schema. The error is for
// diagnostics; the engine keeps working locally when it fails.
func (e *Engine) Connect(ctx context.Context) error {
	exec, _ := e.remoteExecutor()
	if exec == nil {
		return ErrLocalOnly
	}
	e.setState(Connecting, nil)

	err := exec.Ping(ctx)
	if err == nil {
		err = database.InitializeSchema(ctx, exec)
	}
	if err != nil {
		e.setState(Disconnected, err)
		e.log.WithError(err).Warn("remote store unreachable, working locally")
		return fmt.Errorf("failed to connect to remote store: %w", err)
	}
	e.setState(Connected, nil)
	e.log.Info("connected to remote store")
	return nil
}

// Tick is the periodic entry point: sync while connected, otherwise make one
// reconnect attempt when a remote is configured
func (e *Engine) Tick(ctx context.Context) {
	exec, state := e.remoteExecutor()
	if exec == nil {
		return
	}
	switch state {
	case Connected:
		_ = e.SyncData(ctx)
	case Disconnected:
		if e.Connect(ctx) == nil {
			_ = e.SyncData(ctx)
		}
	}
}

// Start runs the background push worker until ctx is done or Stop is called
func (e *Engine) Start(ctx context.Context) {
	e.stopMu.Lock()
	defer e.stopMu.Unlock()
	if e.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	e.workers.Add(1)
	go func() {
		defer e.workers.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-e.pushCh:
				if _, state := e.remoteExecutor(); state == Connected {
					_ = e.SyncData(ctx)
				}
			}
		}
	}()
}

// Stop ends the push worker and waits for it
func (e *Engine) Stop() {
	e.stopMu.Lock()
	cancel := e.cancel
	e.cancel = nil
	e.stopMu.Unlock()
	if cancel != nil {
		cancel()
	}
	e.workers.Wait()
}

// schedulePush requests an asynchronous sync. Requests made while one is
// pending collapse into it.
func (e *Engine) schedulePush() {
	select {
	case e.pushCh <- struct{}{}:
	default:
	}
}

// SyncData pushes local records the remote lacks or holds older versions of,
// then pulls every remote row and merges it with last-write-wins on UpdatedAt.
// A failure moves the engine to Disconnected; local state is never rolled back.
func (e *Engine) SyncData(ctx context.Context) error {
	exec, _ := e.remoteExecutor()
	if exec == nil {
		return ErrLocalOnly
	}
	e.syncMu.Lock()
	defer e.syncMu.Unlock()

	e.mu.Lock()
	snapshot := e.doc.Clone()
	ties := e.ties
	e.ties = make(map[string]struct{})
	e.mu.Unlock()

	pushed, err := e.push(ctx, exec, snapshot, ties)
	if err != nil {
		return e.syncFailed(err)
	}
	remote, err := e.pull(ctx, exec)
	if err != nil {
		return e.syncFailed(err)
	}
	pulled, err := e.merge(remote)
	if err != nil {
		return e.syncFailed(err)
	}

	now := e.clock()
	e.connMu.Lock()
	e.state = Connected
	e.lastErr = nil
	e.lastSyncAt = &now
	e.connMu.Unlock()

	e.log.WithFields(logrus.Fields{"pushed": pushed, "pulled": pulled}).Debug("sync complete")
	e.bus.Publish(events.Event{Name: events.SyncComplete, Payload: events.SyncPayload{Pushed: pushed, Pulled: pulled}})
	return nil
}

func (e *Engine) syncFailed(err error) error {
	e.setState(Disconnected, err)
	e.log.WithError(err).Warn("sync failed, will retry")
	return fmt.Errorf("sync failed: %w", err)
}

func remoteVersions(ctx context.Context, exec database.Executor, table database.Table) (map[string]time.Time, error) {
	rows, err := exec.Execute(ctx, table.VersionsStatement())
	if err != nil {
		return nil, fmt.Errorf("failed to read %s versions: %w", table.Name, err)
	}
	versions := make(map[string]time.Time, len(rows))
	for _, row := range rows {
		id, updated, err := database.RowVersion(row)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", table.Name, err)
		}
		versions[id] = updated
	}
	return versions, nil
}

// needsPush reports whether a local version should overwrite the remote one.
// tied is set for records whose content won a timestamp tie in the last merge.
func needsPush(versions map[string]time.Time, id string, local time.Time, tied bool) bool {
	remote, ok := versions[id]
	return !ok || local.After(remote) || (tied && local.Equal(remote))
}

// fingerprint orders two encodings of one record that carry the same UpdatedAt
func fingerprint(params []interface{}) string {
	return fmt.Sprintf("%#v", params)
}

func tieKey(table database.Table, id string) string {
	return table.Name + "/" + id
}

// newerOrTieWinner reports whether the remote copy replaces the local one.
// Equal timestamps with different content are settled by the greater
// fingerprint; when the local copy wins it is queued in ties for the next push.
func newerOrTieWinner(remote, local time.Time, remoteParams, localParams []interface{}, ties map[string]struct{}, key string) bool {
	if remote.After(local) {
		return true
	}
	if !remote.Equal(local) {
		return false
	}
	rf, lf := fingerprint(remoteParams), fingerprint(localParams)
	switch {
	case rf > lf:
		return true
	case rf < lf:
		ties[key] = struct{}{}
	}
	return false
}

type pushItem struct {
	id      string
	version time.Time
	params  []interface{}
}

func (e *Engine) pushTable(ctx context.Context, exec database.Executor, table database.Table, items []pushItem, ties map[string]struct{}) (int, error) {
	versions, err := remoteVersions(ctx, exec, table)
	if err != nil {
		return 0, err
	}
	pushed := 0
	for _, item := range items {
		_, tied := ties[tieKey(table, item.id)]
		if !needsPush(versions, item.id, item.version, tied) {
			continue
		}
		if _, err := exec.Execute(ctx, table.UpsertStatement(), item.params...); err != nil {
			return pushed, fmt.Errorf("failed to push %s %s: %w", table.Name, item.id, err)
		}
		pushed++
	}
	return pushed, nil
}

func (e *Engine) push(ctx context.Context, exec database.Executor, doc *localstore.Document, ties map[string]struct{}) (int, error) {
	var users, progress, achievements, challenges []pushItem
	for _, u := range doc.Users {
		users = append(users, pushItem{u.ID, u.UpdatedAt, database.EncodeUser(u)})
	}
	for _, p := range doc.Progress {
		progress = append(progress, pushItem{p.Key(), p.UpdatedAt, database.EncodeProgress(p)})
	}
	for _, list := range doc.Achievements {
		for _, a := range list {
			achievements = append(achievements, pushItem{a.ID, a.EarnedAt, database.EncodeAchievement(a)})
		}
	}
	for _, c := range doc.Challenges {
		challenges = append(challenges, pushItem{c.ID, c.UpdatedAt, database.EncodeChallenge(c)})
	}

	total := 0
	for _, step := range []struct {
		table database.Table
		items []pushItem
	}{
		{database.UsersTable, users},
		{database.ProgressTable, progress},
		{database.AchievementsTable, achievements},
		{database.ChallengesTable, challenges},
	} {
		n, err := e.pushTable(ctx, exec, step.table, step.items, ties)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

type remoteState struct {
	users        []models.UserProfile
	progress     []models.ProgressRecord
	achievements []models.Achievement
	challenges   []models.Challenge
}

func (e *Engine) pull(ctx context.Context, exec database.Executor) (*remoteState, error) {
	selectRows := func(table database.Table) ([]database.Row, error) {
		rows, err := exec.Execute(ctx, table.SelectStatement())
		if err != nil {
			return nil, fmt.Errorf("failed to pull %s: %w", table.Name, err)
		}
		return rows, nil
	}

	state := &remoteState{}
	rows, err := selectRows(database.UsersTable)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		u, err := database.DecodeUser(row)
		if err != nil {
			return nil, err
		}
		state.users = append(state.users, u)
	}

	if rows, err = selectRows(database.ProgressTable); err != nil {
		return nil, err
	}
	for _, row := range rows {
		p, err := database.DecodeProgress(row)
		if err != nil {
			return nil, err
		}
		state.progress = append(state.progress, p)
	}

	if rows, err = selectRows(database.AchievementsTable); err != nil {
		return nil, err
	}
	for _, row := range rows {
		a, err := database.DecodeAchievement(row)
		if err != nil {
			return nil, err
		}
		state.achievements = append(state.achievements, a)
	}

	if rows, err = selectRows(database.ChallengesTable); err != nil {
		return nil, err
	}
	for _, row := range rows {
		c, err := database.DecodeChallenge(row)
		if err != nil {
			return nil, err
		}
		state.challenges = append(state.challenges, c)
	}
	return state, nil
}

// merge applies remote rows that are newer than the local copy, or that win a
// timestamp tie by fingerprint. It works on
// the live document so that local writes made during the network round trip
// are compared by timestamp rather than overwritten.
func (e *Engine) merge(remote *remoteState) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	doc := e.doc.Clone()
	pulled := 0

	for _, u := range remote.users {
		local, ok := doc.Users[u.ID]
		if ok && !newerOrTieWinner(u.UpdatedAt, local.UpdatedAt, database.EncodeUser(u), database.EncodeUser(local), e.ties, tieKey(database.UsersTable, u.ID)) {
			continue
		}
		doc.Users[u.ID] = u
		if _, ok := doc.Achievements[u.ID]; !ok {
			doc.Achievements[u.ID] = make([]models.Achievement, 0)
		}
		pulled++
	}

	for _, p := range remote.progress {
		local, ok := doc.Progress[p.Key()]
		if ok && !newerOrTieWinner(p.UpdatedAt, local.UpdatedAt, database.EncodeProgress(p), database.EncodeProgress(local), e.ties, tieKey(database.ProgressTable, p.Key())) {
			continue
		}
		doc.Progress[p.Key()] = p
		pulled++
	}

	for _, a := range remote.achievements {
		exists := false
		for _, mine := range doc.Achievements[a.UserID] {
			if mine.ID == a.ID || mine.AchievementRef == a.AchievementRef {
				exists = true
				break
			}
		}
		if !exists {
			doc.Achievements[a.UserID] = append(doc.Achievements[a.UserID], a)
			pulled++
		}
	}

	index := make(map[string]int, len(doc.Challenges))
	for i, c := range doc.Challenges {
		index[c.ID] = i
	}
	for _, c := range remote.challenges {
		i, ok := index[c.ID]
		switch {
		case !ok:
			doc.Challenges = append(doc.Challenges, c)
			index[c.ID] = len(doc.Challenges) - 1
		case newerOrTieWinner(c.UpdatedAt, doc.Challenges[i].UpdatedAt, database.EncodeChallenge(c), database.EncodeChallenge(doc.Challenges[i]), e.ties, tieKey(database.ChallengesTable, c.ID)):
			doc.Challenges[i] = c
		default:
			continue
		}
		pulled++
	}

	if pulled == 0 {
		return 0, nil
	}
	if err := e.store.Save(doc); err != nil {
		return 0, fmt.Errorf("failed to persist merged state: %w", err)
	}
	e.doc = doc
	return pulled, nil
}
