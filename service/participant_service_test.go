package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackmeet/api/audit"
	"github.com/trackmeet/api/cache"
	"github.com/trackmeet/api/dao"
	meet_errors "github.com/trackmeet/api/errors"
	logger "github.com/trackmeet/api/logging"
	"github.com/trackmeet/api/model"
	"github.com/trackmeet/api/service"
	"github.com/trackmeet/api/util"
)

func TestMain(m *testing.M) {
	logger.InitNop()
	m.Run()
}

// opRecorder captures the order of store, cache and bus operations so the
// mutate -> invalidate -> publish contract can be asserted.
type opRecorder struct {
	mu  sync.Mutex
	ops []string
}

func (r *opRecorder) record(op string) {
	r.mu.Lock()
	r.ops = append(r.ops, op)
	r.mu.Unlock()
}

func (r *opRecorder) indexOf(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, o := range r.ops {
		if o == op {
			return i
		}
	}
	return -1
}

type recordingDAO struct {
	dao.ParticipantDAO
	rec      *opRecorder
	getCalls int
}

func (d *recordingDAO) GetParticipant(ctx context.Context, id string) (*model.Participant, error) {
	d.rec.record("store.get")
	d.getCalls++
	return d.ParticipantDAO.GetParticipant(ctx, id)
}

func (d *recordingDAO) CreateParticipant(ctx context.Context, input model.NewParticipant) (*model.Participant, error) {
	d.rec.record("store.create")
	return d.ParticipantDAO.CreateParticipant(ctx, input)
}

func (d *recordingDAO) UpdateParticipant(ctx context.Context, id string, patch model.ParticipantPatch) (*model.Participant, error) {
	d.rec.record("store.update")
	return d.ParticipantDAO.UpdateParticipant(ctx, id, patch)
}

func (d *recordingDAO) DeleteParticipant(ctx context.Context, id string) (bool, error) {
	d.rec.record("store.delete")
	return d.ParticipantDAO.DeleteParticipant(ctx, id)
}

type recordingCache struct {
	cache.Cache
	rec *opRecorder
}

func (c *recordingCache) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	c.rec.record("cache.set:" + key)
	c.Cache.Set(ctx, key, value, ttl)
}

func (c *recordingCache) Delete(ctx context.Context, keys ...string) {
	for _, key := range keys {
		c.rec.record("cache.delete:" + key)
	}
	c.Cache.Delete(ctx, keys...)
}

func (c *recordingCache) DeleteByPattern(ctx context.Context, pattern string) {
	c.rec.record("cache.delpattern:" + pattern)
	c.Cache.DeleteByPattern(ctx, pattern)
}

type publishedEvent struct {
	Channel   string
	EventType string
	Payload   any
}

type fakeBroadcaster struct {
	rec    *opRecorder
	err    error
	mu     sync.Mutex
	events []publishedEvent
}

func (b *fakeBroadcaster) Publish(_ context.Context, channel, eventType string, payload any) error {
	b.rec.record("publish:" + eventType)
	if b.err != nil {
		return b.err
	}
	b.mu.Lock()
	b.events = append(b.events, publishedEvent{Channel: channel, EventType: eventType, Payload: payload})
	b.mu.Unlock()
	return nil
}

type fixture struct {
	svc         *service.ParticipantService
	dao         *recordingDAO
	cache       *recordingCache
	broadcaster *fakeBroadcaster
	rec         *opRecorder
}

func newFixture() *fixture {
	rec := &opRecorder{}
	d := &recordingDAO{ParticipantDAO: dao.NewMemoryParticipantDAO(), rec: rec}
	c := &recordingCache{Cache: cache.NewMemoryCache(), rec: rec}
	b := &fakeBroadcaster{rec: rec}
	svc := service.NewParticipantService(d, c, b, util.NewValidationUtil(), nil, service.DefaultCacheTTLs())
	return &fixture{svc: svc, dao: d, cache: c, broadcaster: b, rec: rec}
}

func TestCreateParticipantFlow(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	created, err := f.svc.CreateParticipant(ctx, model.NewParticipant{Name: "Ana", Email: "ana@x.com"}, "admin")
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, model.DefaultParticipantStatus, created.Status)

	// Event published with the full new record as payload.
	require.Len(t, f.broadcaster.events, 1)
	event := f.broadcaster.events[0]
	assert.Equal(t, model.ChannelParticipants, event.Channel)
	assert.Equal(t, model.EventParticipantCreated, event.EventType)
	assert.Equal(t, created, event.Payload)

	// Ordering: store mutation, then invalidation, then publish.
	createIdx := f.rec.indexOf("store.create")
	invalidateIdx := f.rec.indexOf("cache.delpattern:participants:*")
	publishIdx := f.rec.indexOf("publish:" + model.EventParticipantCreated)
	require.GreaterOrEqual(t, createIdx, 0)
	require.GreaterOrEqual(t, invalidateIdx, 0)
	require.GreaterOrEqual(t, publishIdx, 0)
	assert.Less(t, createIdx, invalidateIdx)
	assert.Less(t, invalidateIdx, publishIdx)
}

func TestCreateThenGetServedFromCache(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	created, err := f.svc.CreateParticipant(ctx, model.NewParticipant{Name: "Ana", Email: "ana@x.com"}, "admin")
	require.NoError(t, err)

	// Write-through: the immediate read needs no store fetch.
	got, err := f.svc.GetParticipant(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Zero(t, f.dao.getCalls)
}

func TestGetParticipantCacheAside(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	created, err := f.svc.CreateParticipant(ctx, model.NewParticipant{Name: "Ana", Email: "ana@x.com"}, "admin")
	require.NoError(t, err)

	// Force a miss, then the read falls through and repopulates the cache.
	f.cache.Delete(ctx, "participant:"+created.ID)

	got, err := f.svc.GetParticipant(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, 1, f.dao.getCalls)

	_, err = f.svc.GetParticipant(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.dao.getCalls, "second read must be a cache hit")
}

func TestGetParticipantNotFound(t *testing.T) {
	f := newFixture()

	_, err := f.svc.GetParticipant(context.Background(), "missing")
	assert.ErrorIs(t, err, meet_errors.ErrParticipantNotFound)
}

func TestUpdateInvalidatesPointLookupImmediately(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	created, err := f.svc.CreateParticipant(ctx, model.NewParticipant{Name: "Ana", Email: "ana@x.com"}, "admin")
	require.NoError(t, err)

	name := "Ana Silva"
	_, err = f.svc.UpdateParticipant(ctx, created.ID, model.ParticipantPatch{Name: &name}, "admin")
	require.NoError(t, err)

	// No read between the update and the next mutation may see the old name.
	got, err := f.svc.GetParticipant(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana Silva", got.Name)
	assert.Equal(t, "ana@x.com", got.Email)
}

func TestRapidUpdatesLastWriteWins(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	created, err := f.svc.CreateParticipant(ctx, model.NewParticipant{Name: "Ana", Email: "ana@x.com"}, "admin")
	require.NoError(t, err)

	first, second := "First", "Second"
	teamA, teamB := "Alpha", "Beta"
	_, err = f.svc.UpdateParticipant(ctx, created.ID, model.ParticipantPatch{Name: &first, Team: &teamA}, "admin")
	require.NoError(t, err)
	_, err = f.svc.UpdateParticipant(ctx, created.ID, model.ParticipantPatch{Name: &second, Team: &teamB}, "admin")
	require.NoError(t, err)

	// Cache and store both hold exactly the second payload, no interleave.
	fromCache, err := f.svc.GetParticipant(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Second", fromCache.Name)
	assert.Equal(t, "Beta", fromCache.Team)

	fromStore, err := f.dao.ParticipantDAO.GetParticipant(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Second", fromStore.Name)
	assert.Equal(t, "Beta", fromStore.Team)
}

func TestUpdateNotFound(t *testing.T) {
	f := newFixture()

	name := "x"
	_, err := f.svc.UpdateParticipant(context.Background(), "missing", model.ParticipantPatch{Name: &name}, "admin")
	assert.ErrorIs(t, err, meet_errors.ErrParticipantNotFound)
	assert.Empty(t, f.broadcaster.events)
}

func TestListParticipantsCachesPage(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.CreateParticipant(ctx, model.NewParticipant{Name: "Ana", Email: "ana@x.com"}, "admin")
	require.NoError(t, err)

	page, err := f.svc.ListParticipants(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Pagination.Total)
	assert.True(t, f.cache.Exists(ctx, "participants:1:10"))

	// A later create invalidates every cached list page.
	_, err = f.svc.CreateParticipant(ctx, model.NewParticipant{Name: "Bo", Email: "bo@x.com"}, "admin")
	require.NoError(t, err)
	assert.False(t, f.cache.Exists(ctx, "participants:1:10"))

	page, err = f.svc.ListParticipants(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Pagination.Total)
}

func TestDeleteParticipantPublishesAndIsIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	created, err := f.svc.CreateParticipant(ctx, model.NewParticipant{Name: "Ana", Email: "ana@x.com"}, "admin")
	require.NoError(t, err)

	deleted, err := f.svc.DeleteParticipant(ctx, created.ID, "admin")
	require.NoError(t, err)
	assert.True(t, deleted)

	last := f.broadcaster.events[len(f.broadcaster.events)-1]
	assert.Equal(t, model.EventParticipantDeleted, last.EventType)

	// Unknown id: false, no error, no event.
	before := len(f.broadcaster.events)
	deleted, err = f.svc.DeleteParticipant(ctx, created.ID, "admin")
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Len(t, f.broadcaster.events, before)
}

func TestBroadcastFailureSurfacedAfterCommit(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.broadcaster.err = fmt.Errorf("transport unreachable")

	created, err := f.svc.CreateParticipant(ctx, model.NewParticipant{Name: "Ana", Email: "ana@x.com"}, "admin")

	// The mutation committed and the record comes back with the error.
	require.Error(t, err)
	require.NotNil(t, created)
	assert.ErrorIs(t, err, meet_errors.ErrBroadcastFailure)

	var broadcastErr *meet_errors.BroadcastError
	require.True(t, errors.As(err, &broadcastErr))
	assert.Equal(t, model.ChannelParticipants, broadcastErr.Channel)

	// The record is durably in the store despite the failed notify.
	stored, err := f.dao.ParticipantDAO.GetParticipant(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, stored.ID)
}

// stubAuditService hands entries over an unbuffered channel, so LogChange
// blocks until the test drains it.
type stubAuditService struct {
	entries chan audit.AuditLog
}

func (a *stubAuditService) LogChange(_ context.Context, entry audit.AuditLog) error {
	a.entries <- entry
	return nil
}

func (a *stubAuditService) QueryLogs(context.Context, time.Time, time.Time, string, string) ([]audit.AuditLog, error) {
	return nil, nil
}

func TestAuditRecordedOffTheWritePath(t *testing.T) {
	rec := &opRecorder{}
	d := &recordingDAO{ParticipantDAO: dao.NewMemoryParticipantDAO(), rec: rec}
	c := &recordingCache{Cache: cache.NewMemoryCache(), rec: rec}
	b := &fakeBroadcaster{rec: rec}
	auditSvc := &stubAuditService{entries: make(chan audit.AuditLog)}
	svc := service.NewParticipantService(d, c, b, util.NewValidationUtil(), auditSvc, service.DefaultCacheTTLs())

	// Nobody is draining the stub yet: the write must return anyway.
	created, err := svc.CreateParticipant(context.Background(), model.NewParticipant{Name: "Ana", Email: "ana@x.com"}, "admin")
	require.NoError(t, err)
	require.NotNil(t, created)

	select {
	case entry := <-auditSvc.entries:
		assert.Equal(t, "CREATE_PARTICIPANT", entry.Action)
		assert.Equal(t, "admin", entry.Actor)
		assert.Equal(t, created.ID, entry.ResourceID)
	case <-time.After(time.Second):
		t.Fatal("audit entry was never written")
	}
}

func TestCreateParticipantValidation(t *testing.T) {
	f := newFixture()

	_, err := f.svc.CreateParticipant(context.Background(), model.NewParticipant{Name: "", Email: "bad"}, "admin")
	assert.ErrorIs(t, err, meet_errors.ErrInvalidParticipantData)
	assert.Empty(t, f.broadcaster.events)
	assert.Equal(t, -1, f.rec.indexOf("store.create"))
}
