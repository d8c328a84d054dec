package game

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"triviahome/internal/cache"
	"triviahome/internal/model"
	"triviahome/internal/repository"
	"triviahome/internal/trivia"
)

// Broadcaster delivers events to connected clients. Implemented by the
// WebSocket hub; kept as an interface here to avoid an import cycle
// and to make the coordinator testable without a transport.
type Broadcaster interface {
	Subscribe(connID, roomID string)
	Unsubscribe(connID, roomID string)
	ToRoom(roomID, event string, payload interface{})
	ToClient(connID, event string, payload interface{})
	DisconnectRoom(roomID string)
}

const (
	// PointsForCorrectAnswer is the base award per correct answer.
	PointsForCorrectAnswer = 100
	// FastestBonusPercent is the extra award for the first correct
	// answer to a question, as a percentage of the base award.
	FastestBonusPercent = 20
	// MinPlayersToStart is the minimum room occupancy to start a game.
	MinPlayersToStart = 2

	startCountdown = 3 * time.Second

	// A username may reclaim its slot within graceWindow of its
	// disconnect without tripping the duplicate-username check.
	graceWindow       = 2 * time.Second
	graceClaimCleanup = 3 * time.Second
	graceExpiry       = 10 * time.Second
	graceSweepEvery   = 10 * time.Second
)

type disconnectRecord struct {
	at      time.Time
	claimed bool
}

// Coordinator owns all live room state and runs the lobby and game
// loops. Every mutation happens on a single goroutine (Run); public
// methods enqueue work onto that loop and wait for it. Asynchronous
// collaborator calls (question fetch, persistence) run off-loop and
// re-validate state in an enqueued continuation before mutating,
// because the room may have changed or vanished in the meantime.
type Coordinator struct {
	registry    *Registry
	rooms       repository.RoomRepo
	users       repository.UserRepo
	stats       repository.StatsRepo
	games       repository.GameRepo
	leaderboard cache.LeaderboardCache
	provider    trivia.Provider
	bc          Broadcaster

	tasks chan func()
	now   func() time.Time

	recentDisconnects map[string]*disconnectRecord

	// Test seams: startDelay replaces the pre-game countdown and
	// questionTime, when non-zero, replaces the settings-based
	// per-question duration.
	startDelay   time.Duration
	questionTime time.Duration
}

func NewCoordinator(
	rooms repository.RoomRepo,
	users repository.UserRepo,
	stats repository.StatsRepo,
	games repository.GameRepo,
	leaderboard cache.LeaderboardCache,
	provider trivia.Provider,
	bc Broadcaster,
) *Coordinator {
	return &Coordinator{
		registry:          NewRegistry(),
		rooms:             rooms,
		users:             users,
		stats:             stats,
		games:             games,
		leaderboard:       leaderboard,
		provider:          provider,
		bc:                bc,
		tasks:             make(chan func(), 256),
		now:               time.Now,
		recentDisconnects: make(map[string]*disconnectRecord),
		startDelay:        startCountdown,
	}
}

// Run processes queued events until ctx is cancelled. It must be
// running for any coordinator operation to make progress.
func (c *Coordinator) Run(ctx context.Context) {
	sweep := time.NewTicker(graceSweepEvery)
	defer sweep.Stop()

	for {
		select {
		case fn := <-c.tasks:
			fn()
		case <-sweep.C:
			c.sweepDisconnects()
		case <-ctx.Done():
			return
		}
	}
}

// do runs fn on the event loop and waits for it to finish.
func (c *Coordinator) do(fn func()) {
	done := make(chan struct{})
	c.tasks <- func() {
		defer close(done)
		fn()
	}
	<-done
}

// enqueue schedules fn on the event loop without waiting. Used by
// timer callbacks and async continuations.
func (c *Coordinator) enqueue(fn func()) {
	c.tasks <- fn
}

func (c *Coordinator) sweepDisconnects() {
	now := c.now()
	for username, rec := range c.recentDisconnects {
		if now.Sub(rec.at) > graceExpiry {
			delete(c.recentDisconnects, username)
		}
	}
}

// JoinRequest carries a join_room event.
type JoinRequest struct {
	RoomID   string
	Username string
	Avatar   model.Avatar
	ConnID   string
	UserID   string
}

// Join adds a connection to a room, materializing the live room state
// from the persisted document on first join.
func (c *Coordinator) Join(ctx context.Context, req JoinRequest) error {
	if req.RoomID == "" || req.Username == "" || req.Avatar == (model.Avatar{}) {
		return ErrMissingFields
	}
	req.RoomID = strings.ToUpper(req.RoomID)

	// Suspension point: the room may fill up or start playing while
	// this read is in flight, so all membership checks happen on the
	// loop afterwards.
	doc, err := c.rooms.GetByID(ctx, req.RoomID)
	if err != nil {
		return fmt.Errorf("%w: loading room %s: %v", ErrPersistence, req.RoomID, err)
	}
	if doc == nil {
		return ErrRoomNotFound
	}

	var opErr error
	c.do(func() { opErr = c.joinRoom(req, doc) })
	return opErr
}

func (c *Coordinator) joinRoom(req JoinRequest, doc *model.Room) error {
	rs := c.registry.GetOrCreate(req.RoomID, doc)

	if rs.playerCount() >= rs.Settings.MaxPlayers {
		return ErrRoomFull
	}
	if rs.Status == model.RoomPlaying {
		return ErrGameInProgress
	}

	usernameKey := strings.ToLower(req.Username)
	taken := rs.hasUsername(usernameKey)
	rec := c.recentDisconnects[usernameKey]
	inGrace := rec != nil && c.now().Sub(rec.at) < graceWindow

	if taken && !inGrace {
		return ErrUsernameTaken
	}
	if inGrace {
		// The slot may be reclaimed exactly once per grace window.
		if rec.claimed {
			return ErrUsernameTaken
		}
		rec.claimed = true
		time.AfterFunc(graceClaimCleanup, func() {
			c.enqueue(func() { delete(c.recentDisconnects, usernameKey) })
		})
	}

	isHost := false
	if strings.EqualFold(req.Username, rs.HostUsername) {
		if rs.CurrentHostConnID == "" {
			rs.CurrentHostConnID = req.ConnID
			isHost = true
		}
	} else if rs.CurrentHostConnID == "" && rs.playerCount() == 0 {
		// First joiner of a room whose host record never connected.
		rs.CurrentHostConnID = req.ConnID
		isHost = true
	}

	rs.addPlayer(&PlayerState{
		ConnID:   req.ConnID,
		Username: req.Username,
		Avatar:   req.Avatar,
		IsHost:   isHost || req.ConnID == rs.CurrentHostConnID,
		UserID:   req.UserID,
	})
	c.bc.Subscribe(req.ConnID, req.RoomID)
	c.broadcastLobby(rs)
	return nil
}

// Disconnect handles the transport-level disconnect signal. The
// connection belongs to at most one room.
func (c *Coordinator) Disconnect(connID string) {
	c.do(func() { c.disconnect(connID) })
}

func (c *Coordinator) disconnect(connID string) {
	for _, rs := range c.registry.snapshot() {
		p := rs.player(connID)
		if p == nil {
			continue
		}
		rs.removePlayer(connID)
		c.recentDisconnects[strings.ToLower(p.Username)] = &disconnectRecord{at: c.now()}

		c.handleHostDeparture(rs, connID)

		if rs.playerCount() == 0 {
			rs.cancelTimer()
			c.registry.Delete(rs.RoomID)
			go c.deleteRoomDoc(rs.RoomID)
		} else {
			rs.refreshHostFlags()
			c.broadcastLobby(rs)
		}
		return
	}
}

// Leave is the explicit client-initiated counterpart of Disconnect.
// Unlike disconnect, the leaving client is still addressable, so an
// emptied room broadcasts a terminal notice before teardown.
func (c *Coordinator) Leave(roomID, connID string) {
	roomID = strings.ToUpper(roomID)
	c.do(func() { c.leave(roomID, connID) })
}

func (c *Coordinator) leave(roomID, connID string) {
	rs := c.registry.Get(roomID)
	if rs == nil || rs.player(connID) == nil {
		log.Printf("leave_room for %s from a connection not in it", roomID)
		return
	}

	c.bc.Unsubscribe(connID, roomID)
	rs.removePlayer(connID)
	c.handleHostDeparture(rs, connID)

	if rs.playerCount() == 0 {
		rs.Status = model.RoomFinished
		rs.cancelTimer()
		c.bc.ToRoom(roomID, EventGameError, ErrorMessage{Message: "Room became empty, quiz ended."})
		c.registry.Delete(roomID)
		go c.deleteRoomDoc(roomID)
	} else {
		rs.refreshHostFlags()
		c.broadcastLobby(rs)
	}
}

// handleHostDeparture transfers host authority to the earliest-joined
// remaining player when the departing connection held it.
func (c *Coordinator) handleHostDeparture(rs *RoomState, connID string) {
	if connID != rs.CurrentHostConnID {
		return
	}
	if next := rs.earliestPlayer(); next != nil {
		next.IsHost = true
		rs.CurrentHostConnID = next.ConnID
	} else {
		rs.CurrentHostConnID = ""
	}
}

// UpdateSettings applies a host-initiated settings change. The merged
// settings take effect in memory immediately; a failed persistence
// write is reported to the requester only.
func (c *Coordinator) UpdateSettings(ctx context.Context, roomID, connID string, patch model.SettingsPatch) error {
	roomID = strings.ToUpper(roomID)

	var applied model.RoomSettings
	var opErr error
	c.do(func() { applied, opErr = c.applySettings(roomID, connID, patch) })
	if opErr != nil {
		return opErr
	}

	if err := c.rooms.UpdateSettings(ctx, roomID, applied); err != nil {
		log.Printf("saving settings for room %s: %v", roomID, err)
		return fmt.Errorf("%w: saving settings: %v", ErrPersistence, err)
	}

	c.bc.ToRoom(roomID, EventSettingsUpdated, SettingsUpdated{RoomID: roomID, Settings: applied})
	return nil
}

func (c *Coordinator) applySettings(roomID, connID string, patch model.SettingsPatch) (model.RoomSettings, error) {
	rs := c.registry.Get(roomID)
	if rs == nil || connID != rs.CurrentHostConnID {
		return model.RoomSettings{}, ErrUnauthorized
	}
	if rs.Status == model.RoomPlaying {
		return model.RoomSettings{}, ErrGameInProgress
	}

	if patch.QuestionCount != nil && (*patch.QuestionCount < 1 || *patch.QuestionCount > 50) {
		return model.RoomSettings{}, fmt.Errorf("%w: invalid question count", ErrInvalidSettings)
	}
	if patch.TimePerQuestion != nil && (*patch.TimePerQuestion < 5 || *patch.TimePerQuestion > 60) {
		return model.RoomSettings{}, fmt.Errorf("%w: invalid time per question", ErrInvalidSettings)
	}

	if patch.QuestionCount != nil {
		rs.Settings.QuestionCount = *patch.QuestionCount
	}
	if patch.TimePerQuestion != nil {
		rs.Settings.TimePerQuestion = *patch.TimePerQuestion
	}
	if patch.Categories != nil {
		rs.Settings.Categories = *patch.Categories
	}
	if patch.Difficulty != nil {
		rs.Settings.Difficulty = *patch.Difficulty
	}
	if patch.MaxPlayers != nil {
		rs.Settings.MaxPlayers = *patch.MaxPlayers
	}
	return rs.Settings, nil
}

// DeleteRoom tears a room down at the host's request: notifies the
// room, force-disconnects every member, and removes both the live
// state and the persisted document.
func (c *Coordinator) DeleteRoom(ctx context.Context, roomID, connID string) error {
	roomID = strings.ToUpper(roomID)

	var opErr error
	c.do(func() { opErr = c.deleteRoom(roomID, connID) })
	if opErr != nil {
		return opErr
	}

	c.bc.DisconnectRoom(roomID)

	if err := c.rooms.Delete(ctx, roomID); err != nil {
		log.Printf("deleting room document %s: %v", roomID, err)
		return fmt.Errorf("%w: deleting room: %v", ErrPersistence, err)
	}
	return nil
}

func (c *Coordinator) deleteRoom(roomID, connID string) error {
	rs := c.registry.Get(roomID)
	if rs == nil || rs.player(connID) == nil || connID != rs.CurrentHostConnID {
		return ErrUnauthorized
	}

	c.bc.ToRoom(roomID, EventRoomDeleted, RoomDeleted{
		RoomID:  roomID,
		Message: "The host has deleted the room.",
	})
	rs.cancelTimer()
	c.registry.Delete(roomID)
	return nil
}

// IsInRoom reports whether the connection currently occupies a slot in
// the room. Used by the chat relay.
func (c *Coordinator) IsInRoom(roomID, connID string) bool {
	roomID = strings.ToUpper(roomID)
	var in bool
	c.do(func() {
		rs := c.registry.Get(roomID)
		in = rs != nil && rs.player(connID) != nil
	})
	return in
}

func (c *Coordinator) deleteRoomDoc(roomID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.rooms.Delete(ctx, roomID); err != nil {
		log.Printf("deleting room document %s: %v", roomID, err)
	}
}

func (c *Coordinator) broadcastLobby(rs *RoomState) {
	c.bc.ToRoom(rs.RoomID, EventUpdateLobby, LobbyUpdate{
		RoomID:       rs.RoomID,
		Participants: rs.participants(),
		Settings:     rs.Settings,
		Status:       rs.Status,
		HostUsername: rs.resolvedHostUsername(),
	})
}
