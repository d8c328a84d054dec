package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triviahome/internal/cache"
	"triviahome/internal/model"
)

type memStatsRepo struct {
	byUser map[string]*model.UserStats
	top    []*model.UserStats
}

func (r *memStatsRepo) GetByUserID(ctx context.Context, userID string) (*model.UserStats, error) {
	return r.byUser[userID], nil
}

func (r *memStatsRepo) Save(ctx context.Context, stats *model.UserStats) error { return nil }

func (r *memStatsRepo) IncrementGames(ctx context.Context, userID string) error { return nil }

func (r *memStatsRepo) TopByWins(ctx context.Context, limit int) ([]*model.UserStats, error) {
	return r.top, nil
}

type memLeaderboard struct {
	entries []cache.LeaderboardEntry
	ranks   map[string]int64
}

func (l *memLeaderboard) UpdateWins(ctx context.Context, userID string, totalWins int) error {
	return nil
}

func (l *memLeaderboard) GetTop(ctx context.Context, limit int) ([]cache.LeaderboardEntry, error) {
	return l.entries, nil
}

func (l *memLeaderboard) GetRank(ctx context.Context, userID string) (int64, error) {
	rank, ok := l.ranks[userID]
	if !ok {
		return -1, nil
	}
	return rank, nil
}

func getWithVars(h http.HandlerFunc, path string, vars map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req = mux.SetURLVars(req, vars)
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestStatsGetIncludesGlobalRank(t *testing.T) {
	stats := &memStatsRepo{byUser: map[string]*model.UserStats{
		"u1": {UserID: "u1", TotalWins: 7, TotalQuestions: 12},
	}}
	lb := &memLeaderboard{ranks: map[string]int64{"u1": 3}}
	h := NewStatsHandler(stats, lb)

	rec := getWithVars(h.Get, "/api/stats/u1", map[string]string{"userId": "u1"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		model.UserStats
		GlobalRank int64 `json:"globalRank"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 7, resp.TotalWins)
	assert.Equal(t, int64(3), resp.GlobalRank)
}

func TestStatsGetOmitsRankWhenUnranked(t *testing.T) {
	stats := &memStatsRepo{byUser: map[string]*model.UserStats{
		"u2": {UserID: "u2"},
	}}
	lb := &memLeaderboard{ranks: map[string]int64{}}
	h := NewStatsHandler(stats, lb)

	rec := getWithVars(h.Get, "/api/stats/u2", map[string]string{"userId": "u2"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "globalRank")
}

func TestStatsGetNotFound(t *testing.T) {
	h := NewStatsHandler(&memStatsRepo{byUser: map[string]*model.UserStats{}}, nil)

	rec := getWithVars(h.Get, "/api/stats/nope", map[string]string{"userId": "nope"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGlobalTopPrefersLeaderboardCache(t *testing.T) {
	stats := &memStatsRepo{top: []*model.UserStats{{UserID: "mongo", TotalWins: 1}}}
	lb := &memLeaderboard{entries: []cache.LeaderboardEntry{
		{UserID: "redis", TotalWins: 9, Rank: 1},
	}}
	h := NewStatsHandler(stats, lb)

	rec := getWithVars(h.GlobalTop, "/api/stats/global/top", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "redis")
	assert.NotContains(t, rec.Body.String(), "mongo")
}

func TestGlobalTopFallsBackToStatsRepo(t *testing.T) {
	stats := &memStatsRepo{top: []*model.UserStats{{UserID: "mongo", TotalWins: 1}}}
	h := NewStatsHandler(stats, &memLeaderboard{})

	rec := getWithVars(h.GlobalTop, "/api/stats/global/top", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "mongo")
}

func TestUserGetByUsername(t *testing.T) {
	users := newMemUserRepo()
	require.NoError(t, users.Create(context.Background(), &model.User{
		ID: "u1", Username: "alice", Coins: 42,
	}))
	h := NewUserHandler(users)

	rec := getWithVars(h.Get, "/api/users/Alice", map[string]string{"username": "Alice"})
	require.Equal(t, http.StatusOK, rec.Code)

	var user model.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, 42, user.Coins)

	rec = getWithVars(h.Get, "/api/users/ghost", map[string]string{"username": "ghost"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
