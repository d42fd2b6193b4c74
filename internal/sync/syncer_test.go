package sync

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Anandtech09/reception-prime-queue/internal/engine"
	"github.com/Anandtech09/reception-prime-queue/internal/model"
	redisbroker "github.com/Anandtech09/reception-prime-queue/pkg/messaging/redis"
)

func syncTestRoster() []model.Doctor {
	return []model.Doctor{
		{ID: "gp1", Name: "Dr. Sarah Smith", CabinNumber: "101", ServiceType: model.ServiceTypeGP, Status: model.DoctorStatusActive},
	}
}

func newTestSyncer(t *testing.T, store Store) (*Syncer, *engine.Engine) {
	t.Helper()
	eng := engine.New(syncTestRoster())
	s := New(store, nil, eng, Config{Channel: "clinic_sync", PollInterval: 20 * time.Millisecond}, zerolog.Nop(), nil)
	return s, eng
}

func TestRestoreSeedsEngine(t *testing.T) {
	store := NewMemoryStore("clinic_state")
	require.NoError(t, store.Save(context.Background(), sampleSnapshot()))

	s, eng := newTestSyncer(t, store)
	require.NoError(t, s.Restore(context.Background()))

	tokens := eng.Tokens()
	require.Len(t, tokens, 1)
	assert.Equal(t, "GP-001", tokens[0].TokenNumber)

	// Restored counters continue the sequence.
	res, err := eng.GenerateToken(model.CreateTokenRequest{
		PatientName: "Bob", PatientID: "P2", ServiceType: model.ServiceTypeGP,
	})
	require.NoError(t, err)
	assert.Equal(t, "GP-002", res.Token.TokenNumber)
}

func TestRestoreEmptySlot(t *testing.T) {
	s, eng := newTestSyncer(t, NewMemoryStore("clinic_state"))
	require.NoError(t, s.Restore(context.Background()))
	assert.Empty(t, eng.Tokens())
}

func TestMutationsEventuallyPersisted(t *testing.T) {
	store := NewMemoryStore("clinic_state")
	s, eng := newTestSyncer(t, store)
	eng.SetOnChange(s.Enqueue)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	res, err := eng.GenerateToken(model.CreateTokenRequest{
		PatientName: "Alice", PatientID: "P1", ServiceType: model.ServiceTypeGP,
	})
	require.NoError(t, err)
	_, err = eng.CallNextPatient("gp1")
	require.NoError(t, err)
	_, err = eng.MarkPatientVisited(res.Token.ID)
	require.NoError(t, err)

	// Intermediate snapshots may coalesce; the slot converges on the final
	// state.
	assert.Eventually(t, func() bool {
		snap, err := store.Load(context.Background())
		if err != nil || len(snap.Tokens) != 1 {
			return false
		}
		return snap.Tokens[0].Status == model.TokenStatusVisited
	}, 2*time.Second, 10*time.Millisecond)

	snap, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, snap.TokenCounters[model.ServiceTypeGP])
}

// stalledStore hangs every Save until its context gives up, the shape of a
// Redis outage.
type stalledStore struct{}

func (stalledStore) Save(ctx context.Context, _ *model.Snapshot) error {
	<-ctx.Done()
	return ctx.Err()
}

func (stalledStore) Load(context.Context) (*model.Snapshot, error) {
	return nil, ErrNoSnapshot
}

func TestStalledStoreNeverBlocksOperations(t *testing.T) {
	s, eng := newTestSyncer(t, stalledStore{})
	eng.SetOnChange(s.Enqueue)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	// Mutations are pure in-memory work; a hanging store must not slow them.
	start := time.Now()
	for i := 0; i < 5; i++ {
		_, err := eng.GenerateToken(model.CreateTokenRequest{
			PatientName: "Alice", PatientID: "P1", ServiceType: model.ServiceTypeGP,
		})
		require.NoError(t, err)
	}
	assert.Less(t, time.Since(start), time.Second)
	assert.Len(t, eng.Tokens(), 5)
}

func TestPollFallbackAppliesRemoteWrites(t *testing.T) {
	store := NewMemoryStore("clinic_state")
	s, eng := newTestSyncer(t, store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	// Another station writes the slot behind our back.
	require.NoError(t, store.Save(context.Background(), sampleSnapshot()))

	assert.Eventually(t, func() bool {
		return len(eng.Tokens()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "GP-001", eng.Tokens()[0].TokenNumber)
}

func TestApplySkipsOwnWrites(t *testing.T) {
	store := NewMemoryStore("clinic_state")
	s, _ := newTestSyncer(t, store)

	var notified int
	s.SetNotify(func(*model.Snapshot) { notified++ })

	s.publish(context.Background(), sampleSnapshot())
	require.Equal(t, 1, notified)

	// The poll loop reading back our own write must not count as a remote
	// apply or re-notify the display.
	snap, err := store.Load(context.Background())
	require.NoError(t, err)
	s.apply(snap)
	assert.Equal(t, 1, notified)

	// A genuinely different snapshot does get applied.
	snap.TokenCounters[model.ServiceTypeGP] = 9
	s.apply(snap)
	assert.Equal(t, 2, notified)
}

// orderBroker checks that the syncer records its own snapshot before the
// broadcast leaves, so the echoed pub/sub message cannot race the dedup.
type orderBroker struct {
	s          *Syncer
	remembered bool
}

func (b *orderBroker) Publish(context.Context, string, interface{}) error {
	b.s.mu.Lock()
	b.remembered = b.s.last != nil
	b.s.mu.Unlock()
	return nil
}

func (b *orderBroker) Subscribe(context.Context, string) (<-chan []byte, error) {
	ch := make(chan []byte)
	close(ch)
	return ch, nil
}

func (b *orderBroker) Close() error { return nil }

func TestPublishRemembersBeforeBroadcast(t *testing.T) {
	store := NewMemoryStore("clinic_state")
	eng := engine.New(syncTestRoster())
	s := New(store, nil, eng, Config{Channel: "clinic_sync"}, zerolog.Nop(), nil)
	broker := &orderBroker{s: s}
	s.broker = broker

	s.publish(context.Background(), sampleSnapshot())
	assert.True(t, broker.remembered)
}

func TestBrokerPropagatesBetweenStations(t *testing.T) {
	mr := miniredis.RunT(t)
	clientA := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	clientB := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		clientA.Close()
		clientB.Close()
	})

	storeA := NewRedisStoreFromClient(clientA, "clinic_state")
	storeB := NewRedisStoreFromClient(clientB, "clinic_state")
	brokerA := redisbroker.NewRedisBrokerFromClient(clientA, zerolog.Nop())
	brokerB := redisbroker.NewRedisBrokerFromClient(clientB, zerolog.Nop())

	engA := engine.New(syncTestRoster())
	engB := engine.New(syncTestRoster())
	cfg := Config{Channel: "clinic_sync", PollInterval: time.Second}
	stationA := New(storeA, brokerA, engA, cfg, zerolog.Nop(), nil)
	stationB := New(storeB, brokerB, engB, cfg, zerolog.Nop(), nil)
	engA.SetOnChange(stationA.Enqueue)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go stationA.Run(ctx)
	go stationB.Run(ctx)

	// Give station B's subscription a moment to attach.
	time.Sleep(50 * time.Millisecond)

	_, err := engA.GenerateToken(model.CreateTokenRequest{
		PatientName: "Alice", PatientID: "P1", ServiceType: model.ServiceTypeGP,
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return len(engB.Tokens()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "GP-001", engB.Tokens()[0].TokenNumber)
}
