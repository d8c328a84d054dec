package game

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triviahome/internal/model"
	"triviahome/internal/trivia"
)

var testAvatar = model.Avatar{Head: "cap", Body: "hoodie", Accessory: "glasses"}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type sentEvent struct {
	Room    string
	Conn    string // set for unicasts
	Event   string
	Payload interface{}
}

type fakeBroadcaster struct {
	mu           sync.Mutex
	events       []sentEvent
	subscribed   map[string]string // connID -> roomID
	disconnected []string
}

func newFakeBroadcaster() *fakeBroadcaster {
	return &fakeBroadcaster{subscribed: make(map[string]string)}
}

func (b *fakeBroadcaster) Subscribe(connID, roomID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribed[connID] = roomID
}

func (b *fakeBroadcaster) Unsubscribe(connID, roomID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subscribed, connID)
}

func (b *fakeBroadcaster) ToRoom(roomID, event string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, sentEvent{Room: roomID, Event: event, Payload: payload})
}

func (b *fakeBroadcaster) ToClient(connID, event string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, sentEvent{Conn: connID, Event: event, Payload: payload})
}

func (b *fakeBroadcaster) DisconnectRoom(roomID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disconnected = append(b.disconnected, roomID)
}

func (b *fakeBroadcaster) named(event string) []sentEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []sentEvent
	for _, e := range b.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

func (b *fakeBroadcaster) last(event string) (sentEvent, bool) {
	all := b.named(event)
	if len(all) == 0 {
		return sentEvent{}, false
	}
	return all[len(all)-1], true
}

func (b *fakeBroadcaster) disconnectedRooms() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.disconnected...)
}

type fakeRoomRepo struct {
	mu        sync.Mutex
	docs      map[string]*model.Room
	updated   map[string]model.RoomSettings
	updateErr error
	deleted   []string
}

func newFakeRoomRepo() *fakeRoomRepo {
	return &fakeRoomRepo{
		docs:    make(map[string]*model.Room),
		updated: make(map[string]model.RoomSettings),
	}
}

func (r *fakeRoomRepo) put(room *model.Room) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[room.RoomID] = room
}

func (r *fakeRoomRepo) Create(ctx context.Context, room *model.Room) error {
	r.put(room)
	return nil
}

func (r *fakeRoomRepo) GetByID(ctx context.Context, roomID string) (*model.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[roomID]
	if !ok {
		return nil, nil
	}
	cp := *doc
	return &cp, nil
}

func (r *fakeRoomRepo) UpdateSettings(ctx context.Context, roomID string, settings model.RoomSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	r.updated[roomID] = settings
	return nil
}

func (r *fakeRoomRepo) Delete(ctx context.Context, roomID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.docs, roomID)
	r.deleted = append(r.deleted, roomID)
	return nil
}

func (r *fakeRoomRepo) deletedRooms() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.deleted...)
}

type coinCredit struct {
	Username string
	Delta    int
}

type fakeUserRepo struct {
	mu      sync.Mutex
	credits []coinCredit
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	return nil, nil
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return nil, nil
}

func (r *fakeUserRepo) Create(ctx context.Context, user *model.User) error { return nil }

func (r *fakeUserRepo) IncrementCoins(ctx context.Context, username string, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.credits = append(r.credits, coinCredit{Username: username, Delta: delta})
	return nil
}

func (r *fakeUserRepo) creditFor(username string) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.credits {
		if c.Username == username {
			return c.Delta, true
		}
	}
	return 0, false
}

type fakeStatsRepo struct {
	mu          sync.Mutex
	byUser      map[string]*model.UserStats
	incremented []string
}

func newFakeStatsRepo() *fakeStatsRepo {
	return &fakeStatsRepo{byUser: make(map[string]*model.UserStats)}
}

func (r *fakeStatsRepo) GetByUserID(ctx context.Context, userID string) (*model.UserStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats, ok := r.byUser[userID]
	if !ok {
		return nil, nil
	}
	cp := *stats
	return &cp, nil
}

func (r *fakeStatsRepo) Save(ctx context.Context, stats *model.UserStats) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *stats
	r.byUser[stats.UserID] = &cp
	return nil
}

func (r *fakeStatsRepo) IncrementGames(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.incremented = append(r.incremented, userID)
	if stats, ok := r.byUser[userID]; ok {
		stats.TotalGames++
	}
	return nil
}

func (r *fakeStatsRepo) TopByWins(ctx context.Context, limit int) ([]*model.UserStats, error) {
	return nil, nil
}

func (r *fakeStatsRepo) get(userID string) *model.UserStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats, ok := r.byUser[userID]
	if !ok {
		return nil
	}
	cp := *stats
	return &cp
}

type fakeGameRepo struct {
	mu      sync.Mutex
	created []*model.Game
}

func (r *fakeGameRepo) Create(ctx context.Context, game *model.Game) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, game)
	return nil
}

func (r *fakeGameRepo) ListByRoom(ctx context.Context, roomID string, limit int) ([]*model.Game, error) {
	return nil, nil
}

func (r *fakeGameRepo) createdGames() []*model.Game {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*model.Game(nil), r.created...)
}

type fakeProvider struct {
	mu        sync.Mutex
	questions []model.Question
	err       error
}

func (p *fakeProvider) FetchQuestions(ctx context.Context, opts trivia.FetchOptions) ([]model.Question, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	return append([]model.Question(nil), p.questions...), nil
}

type testEnv struct {
	coord    *Coordinator
	bc       *fakeBroadcaster
	rooms    *fakeRoomRepo
	users    *fakeUserRepo
	stats    *fakeStatsRepo
	games    *fakeGameRepo
	provider *fakeProvider
	clock    *fakeClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		bc:       newFakeBroadcaster(),
		rooms:    newFakeRoomRepo(),
		users:    &fakeUserRepo{},
		stats:    newFakeStatsRepo(),
		games:    &fakeGameRepo{},
		provider: &fakeProvider{},
		clock:    &fakeClock{t: time.Now()},
	}
	env.coord = NewCoordinator(env.rooms, env.users, env.stats, env.games, nil, env.provider, env.bc)
	env.coord.now = env.clock.Now
	env.coord.startDelay = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go env.coord.Run(ctx)
	return env
}

func (e *testEnv) seedRoom(roomID, host string, maxPlayers int) {
	settings := model.DefaultRoomSettings()
	settings.MaxPlayers = maxPlayers
	e.rooms.put(&model.Room{
		RoomID:       roomID,
		HostUsername: host,
		Settings:     settings,
		Status:       model.RoomWaiting,
	})
}

func (e *testEnv) join(t *testing.T, roomID, username, connID string) {
	t.Helper()
	err := e.coord.Join(context.Background(), JoinRequest{
		RoomID:   roomID,
		Username: username,
		Avatar:   testAvatar,
		ConnID:   connID,
	})
	require.NoError(t, err)
}

// inspect runs fn on the event loop with the room's live state (nil if
// the room is gone).
func (e *testEnv) inspect(roomID string, fn func(rs *RoomState)) {
	e.coord.do(func() { fn(e.coord.registry.Get(roomID)) })
}

func TestJoinBroadcastsLobbySnapshot(t *testing.T) {
	env := newTestEnv(t)
	env.seedRoom("QUIZ1", "alice", 8)

	env.join(t, "QUIZ1", "alice", "c1")
	env.join(t, "QUIZ1", "bob", "c2")

	ev, ok := env.bc.last(EventUpdateLobby)
	require.True(t, ok)
	lobby := ev.Payload.(LobbyUpdate)
	assert.Equal(t, "QUIZ1", lobby.RoomID)
	assert.Equal(t, "alice", lobby.HostUsername)
	require.Len(t, lobby.Participants, 2)
	assert.True(t, lobby.Participants[0].IsHost)
	assert.Equal(t, "bob", lobby.Participants[1].Username)
	assert.False(t, lobby.Participants[1].IsHost)
	assert.Equal(t, testAvatar, lobby.Participants[1].Avatar)
}

func TestJoinRejectsMissingFieldsAndUnknownRoom(t *testing.T) {
	env := newTestEnv(t)
	env.seedRoom("QUIZ1", "alice", 8)

	err := env.coord.Join(context.Background(), JoinRequest{RoomID: "QUIZ1", ConnID: "c1"})
	assert.ErrorIs(t, err, ErrMissingFields)

	err = env.coord.Join(context.Background(), JoinRequest{
		RoomID: "NOPE", Username: "alice", Avatar: testAvatar, ConnID: "c1",
	})
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestJoinUppercasesRoomID(t *testing.T) {
	env := newTestEnv(t)
	env.seedRoom("QUIZ1", "alice", 8)

	err := env.coord.Join(context.Background(), JoinRequest{
		RoomID: "quiz1", Username: "alice", Avatar: testAvatar, ConnID: "c1",
	})
	require.NoError(t, err)

	env.inspect("QUIZ1", func(rs *RoomState) {
		require.NotNil(t, rs)
		assert.Equal(t, 1, rs.playerCount())
	})
}

func TestJoinRoomFull(t *testing.T) {
	env := newTestEnv(t)
	env.seedRoom("QUIZ1", "alice", 2)

	env.join(t, "QUIZ1", "alice", "c1")
	env.join(t, "QUIZ1", "bob", "c2")

	err := env.coord.Join(context.Background(), JoinRequest{
		RoomID: "QUIZ1", Username: "carol", Avatar: testAvatar, ConnID: "c3",
	})
	assert.ErrorIs(t, err, ErrRoomFull)
}

func TestJoinDuplicateUsername(t *testing.T) {
	env := newTestEnv(t)
	env.seedRoom("QUIZ1", "alice", 8)

	env.join(t, "QUIZ1", "alice", "c1")

	err := env.coord.Join(context.Background(), JoinRequest{
		RoomID: "QUIZ1", Username: "ALICE", Avatar: testAvatar, ConnID: "c2",
	})
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestReconnectWithinGracePeriod(t *testing.T) {
	env := newTestEnv(t)
	env.seedRoom("QUIZ1", "alice", 8)

	env.join(t, "QUIZ1", "alice", "c1")
	env.join(t, "QUIZ1", "bob", "c2")
	env.coord.Disconnect("c2")

	env.clock.Advance(1 * time.Second)
	env.join(t, "QUIZ1", "bob", "c3")

	// The reclaimed slot is now occupied; a second identical join must
	// be rejected regardless of the grace record.
	env.clock.Advance(4 * time.Second)
	err := env.coord.Join(context.Background(), JoinRequest{
		RoomID: "QUIZ1", Username: "bob", Avatar: testAvatar, ConnID: "c4",
	})
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestGraceSlotReclaimedOnlyOnce(t *testing.T) {
	env := newTestEnv(t)
	env.seedRoom("QUIZ1", "alice", 8)

	env.join(t, "QUIZ1", "alice", "c1")
	env.join(t, "QUIZ1", "bob", "c2")
	env.coord.Disconnect("c2")

	env.clock.Advance(500 * time.Millisecond)
	env.join(t, "QUIZ1", "bob", "c3")

	err := env.coord.Join(context.Background(), JoinRequest{
		RoomID: "QUIZ1", Username: "bob", Avatar: testAvatar, ConnID: "c4",
	})
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestSweepExpiresUnclaimedGraceRecords(t *testing.T) {
	env := newTestEnv(t)
	env.seedRoom("QUIZ1", "alice", 8)

	env.join(t, "QUIZ1", "alice", "c1")
	env.join(t, "QUIZ1", "bob", "c2")
	env.coord.Disconnect("c2")

	var present bool
	env.coord.do(func() { _, present = env.coord.recentDisconnects["bob"] })
	require.True(t, present)

	// An unclaimed record survives the sweep inside the expiry window...
	env.clock.Advance(5 * time.Second)
	env.coord.do(func() { env.coord.sweepDisconnects() })
	env.coord.do(func() { _, present = env.coord.recentDisconnects["bob"] })
	assert.True(t, present)

	// ...and is dropped once the window has passed.
	env.clock.Advance(6 * time.Second)
	env.coord.do(func() { env.coord.sweepDisconnects() })
	env.coord.do(func() { _, present = env.coord.recentDisconnects["bob"] })
	assert.False(t, present)

	// The name is simply free again afterwards.
	env.join(t, "QUIZ1", "bob", "c3")
}

func TestHostSuccessionOnDisconnect(t *testing.T) {
	env := newTestEnv(t)
	env.seedRoom("QUIZ1", "alice", 8)

	env.join(t, "QUIZ1", "alice", "c1")
	env.join(t, "QUIZ1", "bob", "c2")
	env.join(t, "QUIZ1", "carol", "c3")

	env.coord.Disconnect("c1")

	ev, ok := env.bc.last(EventUpdateLobby)
	require.True(t, ok)
	lobby := ev.Payload.(LobbyUpdate)
	assert.Equal(t, "bob", lobby.HostUsername)
	require.Len(t, lobby.Participants, 2)
	assert.True(t, lobby.Participants[0].IsHost)
	assert.False(t, lobby.Participants[1].IsHost)

	env.inspect("QUIZ1", func(rs *RoomState) {
		require.NotNil(t, rs)
		assert.Equal(t, "c2", rs.CurrentHostConnID)
	})
}

func TestLastDisconnectTearsDownRoom(t *testing.T) {
	env := newTestEnv(t)
	env.seedRoom("QUIZ1", "alice", 8)

	env.join(t, "QUIZ1", "alice", "c1")
	env.coord.Disconnect("c1")

	env.inspect("QUIZ1", func(rs *RoomState) {
		assert.Nil(t, rs)
	})
	require.Eventually(t, func() bool {
		for _, id := range env.rooms.deletedRooms() {
			if id == "QUIZ1" {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}

func TestLeaveEmptyRoomBroadcastsTerminalNotice(t *testing.T) {
	env := newTestEnv(t)
	env.seedRoom("QUIZ1", "alice", 8)

	env.join(t, "QUIZ1", "alice", "c1")
	env.coord.Leave("QUIZ1", "c1")

	ev, ok := env.bc.last(EventGameError)
	require.True(t, ok)
	assert.Equal(t, "Room became empty, quiz ended.", ev.Payload.(ErrorMessage).Message)

	env.inspect("QUIZ1", func(rs *RoomState) {
		assert.Nil(t, rs)
	})
	require.Eventually(t, func() bool {
		return len(env.rooms.deletedRooms()) > 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestUpdateSettingsHostOnly(t *testing.T) {
	env := newTestEnv(t)
	env.seedRoom("QUIZ1", "alice", 8)

	env.join(t, "QUIZ1", "alice", "c1")
	env.join(t, "QUIZ1", "bob", "c2")

	qc := 5
	err := env.coord.UpdateSettings(context.Background(), "QUIZ1", "c2", model.SettingsPatch{QuestionCount: &qc})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestUpdateSettingsValidatesRanges(t *testing.T) {
	env := newTestEnv(t)
	env.seedRoom("QUIZ1", "alice", 8)
	env.join(t, "QUIZ1", "alice", "c1")

	bad := 0
	err := env.coord.UpdateSettings(context.Background(), "QUIZ1", "c1", model.SettingsPatch{QuestionCount: &bad})
	assert.ErrorIs(t, err, ErrInvalidSettings)

	badTime := 3
	err = env.coord.UpdateSettings(context.Background(), "QUIZ1", "c1", model.SettingsPatch{TimePerQuestion: &badTime})
	assert.ErrorIs(t, err, ErrInvalidSettings)
}

func TestUpdateSettingsMergesPersistsAndBroadcasts(t *testing.T) {
	env := newTestEnv(t)
	env.seedRoom("QUIZ1", "alice", 8)
	env.join(t, "QUIZ1", "alice", "c1")

	qc, tpq := 5, 30
	err := env.coord.UpdateSettings(context.Background(), "QUIZ1", "c1", model.SettingsPatch{
		QuestionCount:   &qc,
		TimePerQuestion: &tpq,
	})
	require.NoError(t, err)

	ev, ok := env.bc.last(EventSettingsUpdated)
	require.True(t, ok)
	updated := ev.Payload.(SettingsUpdated)
	assert.Equal(t, 5, updated.Settings.QuestionCount)
	assert.Equal(t, 30, updated.Settings.TimePerQuestion)
	// Untouched fields keep their previous values.
	assert.Equal(t, 8, updated.Settings.MaxPlayers)

	env.rooms.mu.Lock()
	persisted := env.rooms.updated["QUIZ1"]
	env.rooms.mu.Unlock()
	assert.Equal(t, 5, persisted.QuestionCount)
}

func TestUpdateSettingsPersistenceFailureKeepsMemory(t *testing.T) {
	env := newTestEnv(t)
	env.seedRoom("QUIZ1", "alice", 8)
	env.join(t, "QUIZ1", "alice", "c1")

	env.rooms.mu.Lock()
	env.rooms.updateErr = errors.New("mongo down")
	env.rooms.mu.Unlock()

	qc := 7
	err := env.coord.UpdateSettings(context.Background(), "QUIZ1", "c1", model.SettingsPatch{QuestionCount: &qc})
	assert.ErrorIs(t, err, ErrPersistence)

	env.inspect("QUIZ1", func(rs *RoomState) {
		require.NotNil(t, rs)
		assert.Equal(t, 7, rs.Settings.QuestionCount)
	})
}

func TestDeleteRoomHostOnly(t *testing.T) {
	env := newTestEnv(t)
	env.seedRoom("QUIZ1", "alice", 8)
	env.join(t, "QUIZ1", "alice", "c1")
	env.join(t, "QUIZ1", "bob", "c2")

	err := env.coord.DeleteRoom(context.Background(), "QUIZ1", "c2")
	assert.ErrorIs(t, err, ErrUnauthorized)

	err = env.coord.DeleteRoom(context.Background(), "QUIZ1", "c1")
	require.NoError(t, err)

	ev, ok := env.bc.last(EventRoomDeleted)
	require.True(t, ok)
	assert.Equal(t, "QUIZ1", ev.Payload.(RoomDeleted).RoomID)
	assert.Equal(t, []string{"QUIZ1"}, env.bc.disconnectedRooms())
	assert.Contains(t, env.rooms.deletedRooms(), "QUIZ1")

	env.inspect("QUIZ1", func(rs *RoomState) {
		assert.Nil(t, rs)
	})
}

func TestIsInRoom(t *testing.T) {
	env := newTestEnv(t)
	env.seedRoom("QUIZ1", "alice", 8)
	env.join(t, "QUIZ1", "alice", "c1")

	assert.True(t, env.coord.IsInRoom("quiz1", "c1"))
	assert.False(t, env.coord.IsInRoom("QUIZ1", "c2"))
}
