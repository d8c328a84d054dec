package game

import (
	"context"
	"log"
	"strings"
	"time"

	"triviahome/internal/model"
	"triviahome/internal/trivia"
)

// StartGame begins a new game in the room. Only the current host may
// start, and at least MinPlayersToStart players must be present. The
// question fetch runs off-loop; if it fails or yields nothing, the
// room reverts to waiting and the failure is broadcast.
func (c *Coordinator) StartGame(roomID, connID string) error {
	roomID = strings.ToUpper(roomID)

	var opts trivia.FetchOptions
	var opErr error
	c.do(func() { opts, opErr = c.beginGame(roomID, connID) })
	if opErr != nil {
		return opErr
	}

	go c.loadQuestions(roomID, opts)
	return nil
}

func (c *Coordinator) beginGame(roomID, connID string) (trivia.FetchOptions, error) {
	rs := c.registry.Get(roomID)
	if rs == nil || rs.player(connID) == nil || connID != rs.CurrentHostConnID {
		return trivia.FetchOptions{}, ErrUnauthorized
	}
	if rs.Status == model.RoomPlaying {
		return trivia.FetchOptions{}, ErrGameInProgress
	}
	if rs.playerCount() < MinPlayersToStart {
		return trivia.FetchOptions{}, ErrNotEnoughPlayers
	}

	rs.Status = model.RoomPlaying
	rs.CurrentQuestionIndex = 0
	rs.questions = nil
	for _, p := range rs.players {
		p.Score = 0
		p.Answered = false
	}

	return trivia.FetchOptions{
		Amount:     rs.Settings.QuestionCount,
		Categories: rs.Settings.Categories,
		Difficulty: rs.Settings.Difficulty,
		Type:       "multiple",
	}, nil
}

func (c *Coordinator) loadQuestions(roomID string, opts trivia.FetchOptions) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	questions, err := c.provider.FetchQuestions(ctx, opts)
	if err != nil {
		log.Printf("%v for room %s: %v", ErrUpstreamProvider, roomID, err)
	}

	c.enqueue(func() {
		// The room may have emptied or been deleted during the fetch.
		rs := c.registry.Get(roomID)
		if rs == nil || rs.Status != model.RoomPlaying {
			return
		}

		if err != nil || len(questions) == 0 {
			rs.Status = model.RoomWaiting
			c.bc.ToRoom(roomID, EventGameError, ErrorMessage{
				Message: "Could not fetch trivia questions. Please try again later.",
			})
			return
		}

		rs.setQuestions(questions)
		c.bc.ToRoom(roomID, EventGameStarting, GameStarting{
			RoomID:   roomID,
			Settings: rs.Settings,
			Players:  rs.participants(),
		})
		rs.questionTimer = time.AfterFunc(c.startDelay, func() {
			c.enqueue(func() { c.advanceQuestion(roomID) })
		})
	})
}

// advanceQuestion dispatches the question at the current index, or
// settles the game once the index runs past the question set. It is
// re-entrant: called after the start countdown and by every question
// timeout, always re-fetching the room by ID rather than closing over
// stale state.
func (c *Coordinator) advanceQuestion(roomID string) {
	rs := c.registry.Get(roomID)
	if rs == nil || rs.Status != model.RoomPlaying {
		return
	}

	rs.cancelTimer()
	now := c.now()
	for _, p := range rs.players {
		p.Answered = false
		p.QuestionStartTime = now
	}

	if rs.CurrentQuestionIndex >= len(rs.questions) {
		c.finishGame(rs)
		return
	}

	q := rs.questions[rs.CurrentQuestionIndex]
	q.firstCorrectConn = ""
	rs.QuestionStartTime = now
	if rs.CurrentQuestionIndex == 0 {
		rs.gameStartTime = now
	}

	c.bc.ToRoom(roomID, EventSendQuestion, QuestionPrompt{
		QuestionIndex:     rs.CurrentQuestionIndex,
		QuestionText:      q.QuestionText,
		Options:           q.Options,
		TimeLimit:         rs.Settings.TimePerQuestion,
		QuestionStartTime: now.UnixMilli(),
	})

	index := rs.CurrentQuestionIndex
	rs.questionTimer = time.AfterFunc(c.questionDuration(rs), func() {
		c.enqueue(func() { c.questionTimeUp(roomID, index) })
	})
}

func (c *Coordinator) questionDuration(rs *RoomState) time.Duration {
	if c.questionTime > 0 {
		return c.questionTime
	}
	return time.Duration(rs.Settings.TimePerQuestion) * time.Second
}

func (c *Coordinator) questionTimeUp(roomID string, index int) {
	rs := c.registry.Get(roomID)
	if rs == nil || rs.Status != model.RoomPlaying || rs.CurrentQuestionIndex != index {
		return
	}

	c.bc.ToRoom(roomID, EventTimeUp, TimeUp{
		QuestionIndex: index,
		CorrectAnswer: rs.questions[index].CorrectAnswer,
	})
	rs.CurrentQuestionIndex++
	c.advanceQuestion(roomID)
}

// SubmitAnswer scores one player's answer to the current question. At
// most one submission counts per player per question; the first
// correct answer processed earns the fastest bonus.
func (c *Coordinator) SubmitAnswer(roomID, connID, answer, userID string) error {
	roomID = strings.ToUpper(roomID)

	var opErr error
	c.do(func() { opErr = c.submitAnswer(roomID, connID, answer, userID) })
	return opErr
}

func (c *Coordinator) submitAnswer(roomID, connID, answer, userID string) error {
	rs := c.registry.Get(roomID)
	var p *PlayerState
	if rs != nil {
		p = rs.player(connID)
	}
	if rs == nil || rs.Status != model.RoomPlaying || p == nil {
		c.bc.ToClient(connID, EventAnswerFeedback, AnswerFeedback{
			Success: false, Message: "Invalid game state.",
		})
		return ErrInvalidState
	}
	if p.Answered {
		c.bc.ToClient(connID, EventAnswerFeedback, AnswerFeedback{
			Success: false, Message: "You have already answered this question.",
		})
		return ErrAlreadyAnswered
	}
	if rs.CurrentQuestionIndex < 0 || rs.CurrentQuestionIndex >= len(rs.questions) {
		c.bc.ToClient(connID, EventAnswerFeedback, AnswerFeedback{
			Success: false, Message: "No active question.",
		})
		return ErrNoActiveQuestion
	}

	q := rs.questions[rs.CurrentQuestionIndex]
	p.Answered = true

	isCorrect := normalizeAnswer(answer) == normalizeAnswer(q.CorrectAnswer)
	pointsEarned := 0
	isFastest := false

	if isCorrect {
		pointsEarned = PointsForCorrectAnswer
		if q.firstCorrectConn == "" {
			pointsEarned += PointsForCorrectAnswer * FastestBonusPercent / 100
			q.firstCorrectConn = connID
			isFastest = true
		}
		p.Score += pointsEarned
		p.Coins += pointsEarned

		c.bc.ToClient(connID, EventAnswerFeedback, AnswerFeedback{
			Success:       true,
			Message:       "Correct answer!",
			CorrectAnswer: q.CorrectAnswer,
		})
	} else {
		c.bc.ToClient(connID, EventAnswerFeedback, AnswerFeedback{
			Success:       false,
			Message:       "Incorrect answer.",
			CorrectAnswer: q.CorrectAnswer,
		})
	}

	c.bc.ToRoom(roomID, EventScoreUpdate, ScoreUpdate{
		Username:     p.Username,
		Score:        p.Score,
		PointsEarned: pointsEarned,
		IsCorrect:    isCorrect,
		IsFastest:    isFastest,
		Coins:        p.Coins,
	})

	if userID == "" {
		userID = p.UserID
	}
	if userID != "" {
		elapsed := c.now().Sub(p.QuestionStartTime).Seconds()
		go c.recordAnswerStats(userID, isCorrect, elapsed)
	}
	return nil
}

func normalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// recordAnswerStats is best-effort: gameplay never blocks on or fails
// because of a stats write.
func (c *Coordinator) recordAnswerStats(userID string, isCorrect bool, elapsedSeconds float64) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stats, err := c.stats.GetByUserID(ctx, userID)
	if err != nil {
		log.Printf("loading stats for user %s: %v", userID, err)
		return
	}
	if stats == nil {
		stats = &model.UserStats{UserID: userID}
	}

	stats.TotalQuestions++
	if isCorrect {
		stats.TotalWins++
	} else {
		stats.TotalLosses++
	}
	if stats.FastestAnswerTime == 0 || elapsedSeconds < stats.FastestAnswerTime {
		stats.FastestAnswerTime = elapsedSeconds
	}

	if err := c.stats.Save(ctx, stats); err != nil {
		log.Printf("saving stats for user %s: %v", userID, err)
		return
	}
	if c.leaderboard != nil {
		if err := c.leaderboard.UpdateWins(ctx, userID, stats.TotalWins); err != nil {
			log.Printf("updating leaderboard for user %s: %v", userID, err)
		}
	}
}

// finishGame settles a completed question loop: winners, coin awards,
// persisted history, and the game_end broadcast. The room is then
// reset to waiting so the same lobby can play again.
func (c *Coordinator) finishGame(rs *RoomState) {
	rs.Status = model.RoomFinished

	results := make([]model.PlayerResult, 0, rs.playerCount())
	maxScore := 0
	for _, p := range rs.participants() {
		results = append(results, model.PlayerResult{Username: p.Username, Score: p.Score})
		if p.Score > maxScore {
			maxScore = p.Score
		}
	}

	coinsEarned := make(map[string]int, len(results))
	for i := range results {
		if results[i].Score == maxScore && maxScore > 0 {
			results[i].IsWinner = true
			coinsEarned[results[i].Username] = 100 + results[i].Score/20
		} else {
			coinsEarned[results[i].Username] = results[i].Score/10 + 10
		}
	}

	var userIDs []string
	for _, p := range rs.players {
		if p.UserID != "" {
			userIDs = append(userIDs, p.UserID)
		}
	}

	startTime := rs.gameStartTime
	if startTime.IsZero() {
		startTime = rs.QuestionStartTime
	}

	record := &model.Game{
		RoomID:    rs.RoomID,
		Questions: rs.questionSnapshot(),
		Results:   results,
		StartTime: startTime,
		EndTime:   c.now(),
	}
	go c.settle(record, coinsEarned, userIDs)

	c.bc.ToRoom(rs.RoomID, EventGameEnd, GameEnd{
		RoomID:      rs.RoomID,
		Results:     results,
		CoinsEarned: coinsEarned,
	})

	rs.Status = model.RoomWaiting
	rs.CurrentQuestionIndex = 0
	rs.questions = nil
	for _, p := range rs.players {
		p.Score = 0
		p.Answered = false
	}
}

// settle persists the outcome of a finished game. Each write is
// best-effort and failures are logged, never surfaced to the room.
func (c *Coordinator) settle(record *model.Game, coinsEarned map[string]int, userIDs []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for username, coins := range coinsEarned {
		if err := c.users.IncrementCoins(ctx, username, coins); err != nil {
			log.Printf("crediting %d coins to %s: %v", coins, username, err)
		}
	}

	for _, userID := range userIDs {
		if err := c.stats.IncrementGames(ctx, userID); err != nil {
			log.Printf("incrementing totalGames for user %s: %v", userID, err)
		}
	}

	if err := c.games.Create(ctx, record); err != nil {
		log.Printf("saving game history for room %s: %v", record.RoomID, err)
		return
	}
	log.Printf("Game results saved for room %s", record.RoomID)
}
