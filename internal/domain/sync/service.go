package sync

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"golang.org/x/exp/slog"
	"golang.org/x/sync/errgroup"

	"notekeeper/internal/domain/queue"
	"notekeeper/internal/domain/record"
)

// Servicer is the sync surface exposed to the CLI and the local API.
type Servicer interface {
	SyncAll(ctx context.Context) (*Result, error)
	Status(ctx context.Context) (*Status, error)
	Conflicts(ctx context.Context) ([]*Conflict, error)
	ResolveConflict(ctx context.Context, id string, res Resolution) (*record.Record, error)
	DismissConflict(ctx context.Context, id string) error
	DiscardFailed(ctx context.Context, seq int64) error
	Reset(ctx context.Context) error
}

// Service orchestrates bidirectional synchronization between the local store
// and the remote. At most one pass runs at a time.
type Service struct {
	store  Store
	remote Remote
	log    *slog.Logger
	config Config
	now    func() time.Time

	mu         gosync.Mutex
	running    bool
	resolving  bool
	reported   []reportedConflict
	state      State
	lastSync   time.Time
	lastResult *Result
}

// reportedConflict is an out of band conflict held back until the running pass ends.
type reportedConflict struct {
	table    record.Table
	recordID string
	remote   RemoteRecord
	reason   string
}

func NewService(store Store, remote Remote, log *slog.Logger, config *Config) *Service {
	cfg := DefaultConfig()
	if config != nil {
		cfg = *config
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultConfig().MaxRetries
	}
	if cfg.PingTimeout <= 0 {
		cfg.PingTimeout = DefaultConfig().PingTimeout
	}

	return &Service{
		store:  store,
		remote: remote,
		log:    log.With("component", "sync_service"),
		config: cfg,
		now:    time.Now,
		state:  StateIdle,
	}
}

// SyncAll runs one full pass over every table. A concurrent call fails with
// ErrSyncInProgress; an unreachable remote fails with ErrOffline and leaves
// the manager's state untouched.
func (s *Service) SyncAll(ctx context.Context) (*Result, error) {
	s.mu.Lock()
	if s.running || s.resolving {
		s.mu.Unlock()
		return nil, ErrSyncInProgress
	}
	s.running = true
	prev := s.state
	s.state = StateRunning
	s.mu.Unlock()

	if err := s.ping(ctx); err != nil {
		s.mu.Lock()
		s.running = false
		s.state = prev
		s.mu.Unlock()
		s.log.Warn("sync skipped, remote unreachable", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrOffline, err)
	}

	s.log.Info("sync pass started")
	result, err := s.runPass(ctx)

	s.mu.Lock()
	s.running = false
	s.lastResult = result
	if err != nil {
		s.state = StateFailed
	} else {
		s.state = StateCompleted
		s.lastSync = result.FinishedAt
	}
	s.mu.Unlock()

	if err != nil {
		s.log.Error("sync pass failed", "error", err)
		return result, err
	}

	s.log.Info("sync pass finished",
		"success", result.Success,
		"synced", result.Synced,
		"failed", result.Failed,
		"conflicts", result.Conflicts,
		"duration", result.Duration,
	)
	return result, nil
}

func (s *Service) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.PingTimeout)
	defer cancel()
	return s.remote.Ping(ctx)
}

func (s *Service) runPass(ctx context.Context) (*Result, error) {
	t := newTally(s.now())

	var g errgroup.Group
	for _, table := range record.Tables {
		table := table
		g.Go(func() error {
			if err := s.syncTable(ctx, table, t); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrStorage, table, err)
			}
			return nil
		})
	}
	err := g.Wait()

	if err == nil {
		err = s.flushReported(ctx, t)
	}

	if err == nil && s.config.ConflictTTL > 0 {
		pruned, perr := s.store.PruneResolvedConflicts(ctx, s.now().Add(-s.config.ConflictTTL))
		if perr != nil {
			s.log.Warn("failed to prune resolved conflicts", "error", perr)
		} else if pruned > 0 {
			s.log.Debug("pruned resolved conflicts", "count", pruned)
		}
	}

	return t.result(s.now()), err
}

// flushReported records the conflicts reported while the pass was running.
func (s *Service) flushReported(ctx context.Context, t *tally) error {
	s.mu.Lock()
	reported := s.reported
	s.reported = nil
	s.mu.Unlock()

	for _, rc := range reported {
		if err := s.reportConflict(ctx, rc, t); err != nil {
			return fmt.Errorf("%w: %v", ErrStorage, err)
		}
	}
	return nil
}

// syncTable runs pull, push, queue drain and metadata update for one table.
// Only storage errors are returned; everything else lands in the tally.
func (s *Service) syncTable(ctx context.Context, table record.Table, t *tally) error {
	meta, err := s.store.GetSyncMetadata(ctx, table)
	if errors.Is(err, ErrMetadataNotFound) {
		meta = &Metadata{Table: table}
	} else if err != nil {
		return fmt.Errorf("get metadata: %w", err)
	}

	token, pulled, err := s.pull(ctx, table, meta.SyncToken, t)
	if err != nil {
		return err
	}
	if err := s.push(ctx, table, t); err != nil {
		return err
	}
	if err := s.drain(ctx, table, t); err != nil {
		return err
	}

	if pulled {
		meta.SyncToken = token
		meta.LastSync = s.now()
	}
	if meta.TotalRecords, err = s.store.CountRecords(ctx, table); err != nil {
		return fmt.Errorf("count records: %w", err)
	}
	pending, err := s.store.CountPending(ctx, table)
	if err != nil {
		return fmt.Errorf("count pending: %w", err)
	}
	queued, err := s.store.CountQueue(ctx, table)
	if err != nil {
		return fmt.Errorf("count queue: %w", err)
	}
	meta.PendingChanges = pending + queued

	if err := s.store.SetSyncMetadata(ctx, meta); err != nil {
		return fmt.Errorf("set metadata: %w", err)
	}
	return nil
}

// pull applies remote changes since token. It reports whether the pull
// succeeded so the caller only advances the token on success.
func (s *Service) pull(ctx context.Context, table record.Table, token string, t *tally) (string, bool, error) {
	res, err := s.remote.Pull(ctx, table, token)
	if err != nil {
		t.stepFailed(table, "pull", err)
		return token, false, nil
	}
	if res == nil {
		return token, true, nil
	}

	deleting, err := s.queuedDeletes(ctx, table)
	if err != nil {
		return token, false, err
	}

	for _, remote := range res.Records {
		remote.Table = table
		if remote.ID == "" {
			s.log.Warn("skipping remote record without id", "table", table)
			continue
		}
		if deleting[remote.ID] || deleting[remote.LocalID()] {
			continue
		}
		if err := s.applyRemote(ctx, table, remote, t); err != nil {
			return token, false, err
		}
	}

	if res.SyncToken != "" {
		token = res.SyncToken
	}
	return token, true, nil
}

// queuedDeletes collects record and server ids with a delete waiting in the queue,
// so a pull does not resurrect them.
func (s *Service) queuedDeletes(ctx context.Context, table record.Table) (map[string]bool, error) {
	items, err := s.store.ListQueue(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("list queue: %w", err)
	}
	ids := make(map[string]bool)
	for _, item := range items {
		if item.Operation != queue.OpDelete {
			continue
		}
		ids[item.RecordID] = true
		if p, err := item.Delete(); err == nil && p.ServerID != "" {
			ids[p.ServerID] = true
		}
	}
	return ids, nil
}

func (s *Service) applyRemote(ctx context.Context, table record.Table, remote RemoteRecord, t *tally) error {
	remote.Table = table

	local, err := s.findLocal(ctx, table, remote)
	if errors.Is(err, record.ErrNotFound) {
		if remote.Deleted {
			return nil
		}
		if err := record.ValidatePayload(table, remote.Payload); err != nil {
			s.log.Warn("skipping malformed remote record", "table", table, "id", remote.ID, "error", err)
			return nil
		}
		rec := &record.Record{
			ID:                  remote.LocalID(),
			Table:               table,
			Payload:             remote.Payload,
			LastModifiedLocally: remote.UpdatedAt,
		}
		rec.MarkSynced(remote.ID, remote.Version)
		if err := s.store.SaveRecord(ctx, rec); err != nil {
			return fmt.Errorf("insert %s: %w", rec.ID, err)
		}
		t.addSynced()
		return nil
	}
	if err != nil {
		return fmt.Errorf("find local copy of %s: %w", remote.ID, err)
	}

	switch local.Status {
	case record.StatusPending:
		if remote.Deleted {
			return s.recordConflict(ctx, local, remote, "deleted on the server while edited locally", t)
		}
		if !supersedes(remote, local) {
			return nil
		}
		return s.recordConflict(ctx, local, remote, "modified locally and on the server", t)

	case record.StatusConflict:
		c, err := s.store.GetConflict(ctx, local.ID)
		if errors.Is(err, ErrConflictNotFound) {
			return s.recordConflict(ctx, local, remote, "modified locally and on the server", t)
		}
		if err != nil {
			return fmt.Errorf("get conflict %s: %w", local.ID, err)
		}
		c.Remote = remote
		if err := s.store.SaveConflict(ctx, c); err != nil {
			return fmt.Errorf("refresh conflict %s: %w", local.ID, err)
		}
		return nil
	}

	if remote.Deleted {
		if err := s.store.DeleteRecord(ctx, table, local.ID); err != nil {
			return fmt.Errorf("delete %s: %w", local.ID, err)
		}
		t.addSynced()
		return nil
	}
	if !supersedes(remote, local) {
		return nil
	}
	if err := record.ValidatePayload(table, remote.Payload); err != nil {
		s.log.Warn("skipping malformed remote record", "table", table, "id", remote.ID, "error", err)
		return nil
	}
	local.Payload = remote.Payload
	adopt(local, &remote)
	if err := s.store.SaveRecord(ctx, local); err != nil {
		return fmt.Errorf("overwrite %s: %w", local.ID, err)
	}
	t.addSynced()
	return nil
}

// supersedes reports whether remote is a newer copy than local. Differing
// versions decide; equal or missing versions fall back to the edit times.
func supersedes(remote RemoteRecord, local *record.Record) bool {
	if remote.Version != local.Version {
		return remote.Version > local.Version
	}
	return remote.UpdatedAt.After(local.LastModifiedLocally)
}

// adopt marks rec as matching the server copy rr.
func adopt(rec *record.Record, rr *RemoteRecord) {
	rec.MarkSynced(rr.ID, rr.Version)
	if rr.UpdatedAt.After(rec.LastModifiedLocally) {
		rec.LastModifiedLocally = rr.UpdatedAt
	}
}

func (s *Service) findLocal(ctx context.Context, table record.Table, remote RemoteRecord) (*record.Record, error) {
	rec, err := s.store.GetRecordByServerID(ctx, table, remote.ID)
	if !errors.Is(err, record.ErrNotFound) {
		return rec, err
	}
	if remote.ClientID != "" {
		rec, err = s.store.GetRecord(ctx, table, remote.ClientID)
		if !errors.Is(err, record.ErrNotFound) {
			return rec, err
		}
	}
	return s.store.GetRecord(ctx, table, remote.ID)
}

// recordConflict stores both snapshots and flags the local copy. The local
// payload is never touched, and queued edits of the record are dropped since
// the resolution decides what reaches the server.
func (s *Service) recordConflict(ctx context.Context, local *record.Record, remote RemoteRecord, reason string, t *tally) error {
	c := &Conflict{
		ID:         local.ID,
		Table:      local.Table,
		Local:      local.Clone(),
		Remote:     remote,
		Reason:     reason,
		DetectedAt: s.now(),
	}
	c.Local.Status = record.StatusPending
	if err := s.store.SaveConflict(ctx, c); err != nil {
		return fmt.Errorf("save conflict %s: %w", local.ID, err)
	}

	local.Status = record.StatusConflict
	if err := s.store.SaveRecord(ctx, local); err != nil {
		return fmt.Errorf("flag conflict %s: %w", local.ID, err)
	}
	if _, err := s.store.RemoveQueuedFor(ctx, local.Table, local.ID); err != nil {
		return fmt.Errorf("unqueue %s: %w", local.ID, err)
	}

	s.log.Info("conflict detected", "table", local.Table, "id", local.ID, "reason", reason)
	t.addConflict()
	return nil
}

// push sends pending records that no queue item covers.
func (s *Service) push(ctx context.Context, table record.Table, t *tally) error {
	status := record.StatusPending
	pending, err := s.store.ListRecords(ctx, table, &status)
	if err != nil {
		return fmt.Errorf("list pending: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	items, err := s.store.ListQueue(ctx, table)
	if err != nil {
		return fmt.Errorf("list queue: %w", err)
	}
	dropped, err := s.store.ListDropped(ctx)
	if err != nil {
		return fmt.Errorf("list failed operations: %w", err)
	}
	// Records whose queued edit failed for good wait for the user.
	covered := make(map[string]bool, len(items)+len(dropped))
	for _, item := range append(items, dropped...) {
		if item.Table == table {
			covered[item.RecordID] = true
		}
	}

	for _, rec := range pending {
		if covered[rec.ID] {
			continue
		}
		rr, err := s.send(ctx, rec, rec.Version)
		if err != nil {
			var ce *ConflictError
			if errors.As(err, &ce) && ce.Remote != nil {
				if err := s.recordConflict(ctx, rec, *ce.Remote, "rejected by the server as stale", t); err != nil {
					return err
				}
				continue
			}
			t.recordFailed(table, "push "+rec.ID, err)
			continue
		}

		adopt(rec, rr)
		if err := s.store.SaveRecord(ctx, rec); err != nil {
			return fmt.Errorf("mark %s synced: %w", rec.ID, err)
		}
		t.addSynced()
	}
	return nil
}

// send creates rec on the remote when it has no server id, otherwise updates it.
func (s *Service) send(ctx context.Context, rec *record.Record, baseVersion int64) (*RemoteRecord, error) {
	if rec.ServerID == nil {
		return s.remote.Create(ctx, rec.Table, rec.ID, rec.Payload)
	}
	return s.remote.Update(ctx, rec.Table, *rec.ServerID, rec.Payload, baseVersion)
}

// drain replays the table's queue oldest first. A retryable failure stops the
// drain so later edits never overtake the failed one.
func (s *Service) drain(ctx context.Context, table record.Table, t *tally) error {
	for {
		item, err := s.store.DequeueOldest(ctx, table)
		if errors.Is(err, queue.ErrEmpty) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("dequeue: %w", err)
		}

		stop, err := s.replay(ctx, item, t)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
}

func (s *Service) replay(ctx context.Context, item *queue.Item, t *tally) (bool, error) {
	rr, local, err := s.apply(ctx, item)
	if err == nil {
		return false, s.confirm(ctx, item, rr, local, t)
	}

	var ce *ConflictError
	if errors.As(err, &ce) && ce.Remote != nil && local != nil {
		if err := s.store.RemoveFromQueue(ctx, item.Seq); err != nil {
			return true, fmt.Errorf("remove item %d: %w", item.Seq, err)
		}
		return false, s.recordConflict(ctx, local, *ce.Remote, "rejected by the server as stale", t)
	}

	if errors.Is(err, ErrStorage) {
		return true, err
	}

	op := fmt.Sprintf("%s %s", item.Operation, item.RecordID)
	if !errors.Is(err, ErrNetwork) {
		// The server will never accept this item.
		if derr := s.store.DropFromQueue(ctx, item.Seq); derr != nil {
			return true, fmt.Errorf("drop item %d: %w", item.Seq, derr)
		}
		t.recordFailed(item.Table, op, err)
		return false, nil
	}

	retries, merr := s.store.MarkFailed(ctx, item.Seq, err.Error())
	if merr != nil {
		return true, fmt.Errorf("mark item %d failed: %w", item.Seq, merr)
	}
	if retries >= s.config.MaxRetries {
		if derr := s.store.DropFromQueue(ctx, item.Seq); derr != nil {
			return true, fmt.Errorf("drop item %d: %w", item.Seq, derr)
		}
		s.log.Warn("queue item dropped after max retries",
			"table", item.Table, "seq", item.Seq, "retries", retries)
		t.recordFailed(item.Table, fmt.Sprintf("%s (dropped after %d attempts)", op, retries), err)
		return false, nil
	}

	t.recordFailed(item.Table, op, err)
	return true, nil
}

// apply replays item against the remote. local is the current local copy of
// the target record, nil when it no longer exists.
func (s *Service) apply(ctx context.Context, item *queue.Item) (*RemoteRecord, *record.Record, error) {
	local, err := s.store.GetRecord(ctx, item.Table, item.RecordID)
	if errors.Is(err, record.ErrNotFound) {
		local = nil
	} else if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	switch item.Operation {
	case queue.OpCreate:
		rr, err := s.remote.Create(ctx, item.Table, item.RecordID, item.Payload)
		return rr, local, err

	case queue.OpUpdate:
		if local == nil {
			// Deleted locally since; the delete item that follows carries the server id.
			return nil, nil, nil
		}
		if local.ServerID == nil {
			rr, err := s.remote.Create(ctx, item.Table, item.RecordID, item.Payload)
			return rr, local, err
		}
		rr, err := s.remote.Update(ctx, item.Table, *local.ServerID, item.Payload, local.Version)
		return rr, local, err

	case queue.OpDelete:
		p, err := item.Delete()
		if err != nil {
			return nil, local, err
		}
		if p.ServerID == "" {
			return nil, local, nil
		}
		return nil, local, s.remote.Delete(ctx, item.Table, p.ServerID)
	}

	return nil, local, fmt.Errorf("%w: operation %q", queue.ErrInvalidItem, item.Operation)
}

// confirm removes a replayed item and records the server's acceptance locally.
func (s *Service) confirm(ctx context.Context, item *queue.Item, rr *RemoteRecord, local *record.Record, t *tally) error {
	if err := s.store.RemoveFromQueue(ctx, item.Seq); err != nil {
		return fmt.Errorf("remove item %d: %w", item.Seq, err)
	}
	t.addSynced()

	if rr == nil || local == nil || local.Status == record.StatusConflict {
		return nil
	}

	remaining, err := s.store.ListQueue(ctx, item.Table)
	if err != nil {
		return fmt.Errorf("list queue: %w", err)
	}
	adopt(local, rr)
	for _, other := range remaining {
		if other.RecordID == local.ID {
			local.Status = record.StatusPending
			break
		}
	}
	if err := s.store.SaveRecord(ctx, local); err != nil {
		return fmt.Errorf("confirm %s: %w", local.ID, err)
	}
	return nil
}

// Status reports the manager state together with everything the user still has to act on.
func (s *Service) Status(ctx context.Context) (*Status, error) {
	s.mu.Lock()
	st := &Status{
		State:      s.state,
		IsRunning:  s.running,
		LastSync:   s.lastSync,
		LastResult: s.lastResult,
	}
	s.mu.Unlock()

	var err error
	if st.Conflicts, err = s.store.ListConflicts(ctx); err != nil {
		return nil, fmt.Errorf("list conflicts: %w", err)
	}
	if st.FailedOperations, err = s.store.ListDropped(ctx); err != nil {
		return nil, fmt.Errorf("list failed operations: %w", err)
	}
	if st.Tables, err = s.store.ListSyncMetadata(ctx); err != nil {
		return nil, fmt.Errorf("list metadata: %w", err)
	}
	return st, nil
}

// Conflicts lists unresolved conflicts.
func (s *Service) Conflicts(ctx context.Context) ([]*Conflict, error) {
	return s.store.ListConflicts(ctx)
}

// ResolveConflict applies res to conflict id. Resolving an already resolved
// conflict succeeds without doing anything; a failed push leaves the conflict open.
// Edits made to the record after detection are what keep_local pushes.
// It fails with ErrSyncInProgress while a pass runs.
func (s *Service) ResolveConflict(ctx context.Context, id string, res Resolution) (*record.Record, error) {
	release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	c, err := s.store.GetConflict(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.ResolvedAt != nil {
		s.log.Debug("conflict already resolved", "id", id, "resolution", c.Resolution)
		return s.currentRecord(ctx, c)
	}

	live, err := s.currentRecord(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", id, err)
	}
	if live != nil {
		live.Status = record.StatusPending
		c.Local = live
	}

	plan, err := Resolve(c, res)
	if err != nil {
		return nil, err
	}

	rec := plan.Record
	if plan.Push {
		rr, err := s.send(ctx, rec, plan.BaseVersion)
		if err != nil {
			var ce *ConflictError
			if errors.As(err, &ce) && ce.Remote != nil {
				c.Remote = *ce.Remote
				if serr := s.store.SaveConflict(ctx, c); serr != nil {
					return nil, fmt.Errorf("refresh conflict %s: %w", id, serr)
				}
			}
			return nil, fmt.Errorf("resolve conflict %s: %w", id, err)
		}
		adopt(rec, rr)
	}

	if plan.Delete {
		if err := s.store.DeleteRecord(ctx, c.Table, c.ID); err != nil && !errors.Is(err, record.ErrNotFound) {
			return nil, fmt.Errorf("delete %s: %w", id, err)
		}
	} else if err := s.store.SaveRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("save resolved %s: %w", id, err)
	}

	if err := s.store.MarkConflictResolved(ctx, id, res.Strategy, s.now()); err != nil {
		return nil, fmt.Errorf("mark conflict %s resolved: %w", id, err)
	}

	s.log.Info("conflict resolved", "id", id, "table", c.Table, "strategy", res.Strategy)
	return rec, nil
}

func (s *Service) currentRecord(ctx context.Context, c *Conflict) (*record.Record, error) {
	rec, err := s.store.GetRecord(ctx, c.Table, c.ID)
	if errors.Is(err, record.ErrNotFound) {
		return nil, nil
	}
	return rec, err
}

// DismissConflict closes a conflict without contacting the server. The local
// edit is rebased on the remote copy and goes out with the next pass.
func (s *Service) DismissConflict(ctx context.Context, id string) error {
	release, err := s.acquire()
	if err != nil {
		return err
	}
	defer release()

	c, err := s.store.GetConflict(ctx, id)
	if err != nil {
		return err
	}
	if c.ResolvedAt != nil {
		return nil
	}

	rec, err := s.store.GetRecord(ctx, c.Table, c.ID)
	switch {
	case errors.Is(err, record.ErrNotFound):
	case err != nil:
		return fmt.Errorf("get %s: %w", id, err)
	default:
		rebase(rec, c.Remote)
		if err := s.store.SaveRecord(ctx, rec); err != nil {
			return fmt.Errorf("save %s: %w", id, err)
		}
	}

	if err := s.store.MarkConflictResolved(ctx, id, dismissed, s.now()); err != nil {
		return fmt.Errorf("dismiss conflict %s: %w", id, err)
	}
	s.log.Info("conflict dismissed", "id", id)
	return nil
}

// ReportConflict records a conflict announced out of band, e.g. by the
// collaboration channel. Records without a local copy have nothing to reconcile.
// While a pass or a resolution runs the report is held and recorded at the
// end of the next pass.
func (s *Service) ReportConflict(ctx context.Context, table record.Table, recordID string, remote RemoteRecord, reason string) error {
	if reason == "" {
		reason = "reported by collaborator"
	}
	rc := reportedConflict{table: table, recordID: recordID, remote: remote, reason: reason}

	release, err := s.acquire()
	if errors.Is(err, ErrSyncInProgress) {
		s.mu.Lock()
		s.reported = append(s.reported, rc)
		s.mu.Unlock()
		s.log.Debug("holding reported conflict until the pass ends", "table", table, "id", recordID)
		return nil
	}
	defer release()

	return s.reportConflict(ctx, rc, newTally(s.now()))
}

func (s *Service) reportConflict(ctx context.Context, rc reportedConflict, t *tally) error {
	remote := rc.remote
	remote.Table = rc.table
	local, err := s.store.GetRecord(ctx, rc.table, rc.recordID)
	if errors.Is(err, record.ErrNotFound) {
		local, err = s.store.GetRecordByServerID(ctx, rc.table, rc.recordID)
	}
	if errors.Is(err, record.ErrNotFound) {
		s.log.Debug("ignoring conflict for unknown record", "table", rc.table, "id", rc.recordID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", rc.recordID, err)
	}
	return s.recordConflict(ctx, local, remote, rc.reason, t)
}

// acquire claims the store for a conflict operation until release is called.
func (s *Service) acquire() (release func(), err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running || s.resolving {
		return nil, ErrSyncInProgress
	}
	s.resolving = true
	return func() {
		s.mu.Lock()
		s.resolving = false
		s.mu.Unlock()
	}, nil
}

// DiscardFailed forgets a permanently failed queue item. A local record still
// pending behind it goes out with the next pass.
func (s *Service) DiscardFailed(ctx context.Context, seq int64) error {
	return s.store.DiscardDropped(ctx, seq)
}

// Reset wipes the local cache. It refuses to run during a pass.
func (s *Service) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running || s.resolving {
		return ErrSyncInProgress
	}
	if err := s.store.Reset(ctx); err != nil {
		return fmt.Errorf("reset cache: %w", err)
	}
	s.reported = nil
	s.state = StateIdle
	s.lastSync = time.Time{}
	s.lastResult = nil
	s.log.Info("local cache reset")
	return nil
}

// tally accumulates pass counters across concurrently synced tables.
type tally struct {
	mu        gosync.Mutex
	started   time.Time
	synced    int
	failed    int
	conflicts int
	transport int
	errors    []string
}

func newTally(started time.Time) *tally {
	return &tally{started: started, errors: []string{}}
}

func (t *tally) addSynced() {
	t.mu.Lock()
	t.synced++
	t.mu.Unlock()
}

func (t *tally) addConflict() {
	t.mu.Lock()
	t.conflicts++
	t.mu.Unlock()
}

// recordFailed counts a record or queue item whose operation failed.
func (t *tally) recordFailed(table record.Table, op string, err error) {
	t.mu.Lock()
	t.failed++
	t.mu.Unlock()
	t.stepFailed(table, op, err)
}

// stepFailed notes an error without a failed record, e.g. a failed pull.
func (t *tally) stepFailed(table record.Table, op string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if errors.Is(err, ErrNetwork) {
		t.transport++
	}
	t.errors = append(t.errors, fmt.Sprintf("%s: %s: %v", table, op, err))
}

func (t *tally) result(finished time.Time) *Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	return &Result{
		Success:    t.transport == 0,
		Synced:     t.synced,
		Failed:     t.failed,
		Conflicts:  t.conflicts,
		Errors:     append([]string{}, t.errors...),
		StartedAt:  t.started,
		FinishedAt: finished,
		Duration:   finished.Sub(t.started),
	}
}
