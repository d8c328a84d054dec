package game

import (
	"strings"
	"time"

	"triviahome/internal/model"
)

// PlayerState is the live state of one connected player. A player is
// keyed by connection ID; the same username reconnecting gets a fresh
// PlayerState.
type PlayerState struct {
	ConnID            string       `json:"connectionId"`
	Username          string       `json:"username"`
	Avatar            model.Avatar `json:"avatar"`
	Score             int          `json:"score"`
	Coins             int          `json:"coins"`
	IsHost            bool         `json:"isHost"`
	Answered          bool         `json:"answered"`
	UserID            string       `json:"userId,omitempty"`
	QuestionStartTime time.Time    `json:"-"`
}

// questionState wraps a question with the per-round fastest-answer
// marker, reset every time the question is dispatched.
type questionState struct {
	model.Question
	firstCorrectConn string
}

// RoomState is the in-memory state of one active room. It is only ever
// touched from the coordinator's event loop.
type RoomState struct {
	RoomID            string
	HostUsername      string // original host recorded at room creation
	CurrentHostConnID string // connection currently holding host authority
	Settings          model.RoomSettings
	Status            model.RoomStatus

	players   map[string]*PlayerState
	order     []string // connection IDs in join order, for host succession
	usernames map[string]struct{}

	CurrentQuestionIndex int
	questions            []*questionState
	questionTimer        *time.Timer
	QuestionStartTime    time.Time
	gameStartTime        time.Time // first question dispatch of the running game
}

func newRoomState(roomID string, doc *model.Room) *RoomState {
	return &RoomState{
		RoomID:       roomID,
		HostUsername: doc.HostUsername,
		Settings:     doc.Settings,
		Status:       model.RoomWaiting,
		players:      make(map[string]*PlayerState),
		usernames:    make(map[string]struct{}),
	}
}

func (rs *RoomState) addPlayer(p *PlayerState) {
	rs.players[p.ConnID] = p
	rs.order = append(rs.order, p.ConnID)
	rs.usernames[strings.ToLower(p.Username)] = struct{}{}
}

func (rs *RoomState) removePlayer(connID string) *PlayerState {
	p, ok := rs.players[connID]
	if !ok {
		return nil
	}
	delete(rs.players, connID)
	delete(rs.usernames, strings.ToLower(p.Username))
	for i, id := range rs.order {
		if id == connID {
			rs.order = append(rs.order[:i], rs.order[i+1:]...)
			break
		}
	}
	return p
}

func (rs *RoomState) player(connID string) *PlayerState {
	return rs.players[connID]
}

func (rs *RoomState) playerCount() int {
	return len(rs.players)
}

func (rs *RoomState) hasUsername(lower string) bool {
	_, ok := rs.usernames[lower]
	return ok
}

// earliestPlayer returns the remaining player who joined first, used
// for host succession. Nil when the room is empty.
func (rs *RoomState) earliestPlayer() *PlayerState {
	if len(rs.order) == 0 {
		return nil
	}
	return rs.players[rs.order[0]]
}

// participants returns player snapshots in join order, safe to hand to
// the transport after the event loop has moved on.
func (rs *RoomState) participants() []PlayerState {
	out := make([]PlayerState, 0, len(rs.order))
	for _, id := range rs.order {
		if p, ok := rs.players[id]; ok {
			out = append(out, *p)
		}
	}
	return out
}

// refreshHostFlags realigns every player's IsHost flag with the
// current host connection.
func (rs *RoomState) refreshHostFlags() {
	for _, p := range rs.players {
		p.IsHost = p.ConnID == rs.CurrentHostConnID
	}
}

// resolvedHostUsername is the username shown as host in lobby updates:
// the current live host if one is connected, else the recorded creator.
func (rs *RoomState) resolvedHostUsername() string {
	if host, ok := rs.players[rs.CurrentHostConnID]; ok {
		return host.Username
	}
	return rs.HostUsername
}

func (rs *RoomState) setQuestions(questions []model.Question) {
	rs.questions = make([]*questionState, len(questions))
	for i := range questions {
		rs.questions[i] = &questionState{Question: questions[i]}
	}
}

// questionSnapshot strips transient per-round fields for persistence.
func (rs *RoomState) questionSnapshot() []model.Question {
	out := make([]model.Question, len(rs.questions))
	for i, q := range rs.questions {
		out[i] = q.Question
	}
	return out
}

func (rs *RoomState) cancelTimer() {
	if rs.questionTimer != nil {
		rs.questionTimer.Stop()
		rs.questionTimer = nil
	}
}

// Registry is the process-wide map of live rooms. It is not safe for
// concurrent use; all access happens on the coordinator's event loop.
type Registry struct {
	rooms map[string]*RoomState
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*RoomState)}
}

func (r *Registry) Get(roomID string) *RoomState {
	return r.rooms[roomID]
}

// GetOrCreate returns the live state for roomID, materializing it from
// the persisted room document on first join.
func (r *Registry) GetOrCreate(roomID string, doc *model.Room) *RoomState {
	if rs, ok := r.rooms[roomID]; ok {
		return rs
	}
	rs := newRoomState(roomID, doc)
	r.rooms[roomID] = rs
	return rs
}

func (r *Registry) Delete(roomID string) {
	delete(r.rooms, roomID)
}

func (r *Registry) Len() int {
	return len(r.rooms)
}

// snapshot returns the current rooms, safe to iterate while handlers
// delete entries.
func (r *Registry) snapshot() []*RoomState {
	out := make([]*RoomState, 0, len(r.rooms))
	for _, rs := range r.rooms {
		out = append(out, rs)
	}
	return out
}
