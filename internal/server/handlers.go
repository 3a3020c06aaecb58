package server

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/lifegame/life-server-go/internal/game"
	"github.com/lifegame/life-server-go/internal/session"
	"go.uber.org/zap"
)

const repoTimeout = 5 * time.Second

// handle dispatches one request frame. Every op replies exactly once.
func (s *Server) handle(c *client, req Request) {
	switch req.Op {
	case "register":
		s.handleRegister(c, req)
	case "login":
		s.handleLogin(c, req)
	case "request_password_reset":
		s.handleRequestPasswordReset(c, req)
	case "reset_password":
		s.handleResetPassword(c, req)
	case "ping":
		s.replyResult(c, req, s.sessions.Ping(req.Token), nil)
	case "create_game":
		s.handleCreateGame(c, req)
	case "state":
		s.handleState(c, req)
	case "draw_cards":
		s.handleDrawCards(c, req)
	case "start_challenge":
		s.handleStartChallenge(c, req)
	case "select_cards":
		s.handleSelectCards(c, req)
	case "toggle_card":
		s.handleToggleCard(c, req)
	case "resolve_challenge":
		s.handleResolveChallenge(c, req)
	case "choose_reward":
		s.handleChooseReward(c, req)
	case "discard_card":
		s.handleDiscardCard(c, req)
	case "next_turn":
		s.replyGameOp(c, req, func() error { return s.engine.NextTurn(req.GameID) })
	case "save_game":
		s.handleSaveGame(c, req)
	case "list_games":
		s.handleListGames(c, req)
	case "leaderboard":
		s.handleLeaderboard(c, req)
	case "daily_challenges":
		s.handleDailyChallenges(c, req)
	default:
		c.reply(Response{Op: req.Op, RequestID: req.RequestID, OK: false, Error: "unknown op"})
	}
}

// authenticate resolves the session a request belongs to.
func (s *Server) authenticate(req Request) (*session.Session, error) {
	sess, err := s.sessions.Get(req.Token)
	if err != nil {
		return nil, err
	}
	s.sessions.Ping(req.Token)
	return sess, nil
}

func (s *Server) replyResult(c *client, req Request, err error, data any) {
	resp := Response{Op: req.Op, RequestID: req.RequestID, OK: err == nil, Data: data}
	if err != nil {
		resp.Error = err.Error()
		resp.Data = nil
	}
	c.reply(resp)
}

// replyGameOp runs an engine mutation and replies with the fresh snapshot.
func (s *Server) replyGameOp(c *client, req Request, fn func() error) {
	if _, err := s.authenticate(req); err != nil {
		s.replyResult(c, req, err, nil)
		return
	}
	if err := fn(); err != nil {
		s.replyResult(c, req, err, nil)
		return
	}
	snap, err := s.engine.Snapshot(req.GameID)
	s.replyResult(c, req, err, snap)
}

func (s *Server) handleRegister(c *client, req Request) {
	var p registerPayload
	if err := json.Unmarshal(req.Data, &p); err != nil {
		s.replyResult(c, req, errors.New("malformed payload"), nil)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), repoTimeout)
	defer cancel()
	userID, err := s.users.Register(ctx, p.Username, p.Email, p.Password)
	s.replyResult(c, req, err, map[string]string{"user_id": userID})
}

func (s *Server) handleLogin(c *client, req Request) {
	var p loginPayload
	if err := json.Unmarshal(req.Data, &p); err != nil {
		s.replyResult(c, req, errors.New("malformed payload"), nil)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), repoTimeout)
	defer cancel()
	u, err := s.users.Authenticate(ctx, p.Username, p.Password)
	if err != nil {
		s.replyResult(c, req, err, nil)
		return
	}

	sess, err := s.sessions.Create(u.ID, u.Username)
	if err != nil {
		s.replyResult(c, req, err, nil)
		return
	}
	c.bind(sess.ID, "")

	s.logger.Info("user logged in",
		zap.String("user_id", u.ID),
		zap.String("session_id", sess.ID),
	)
	s.replyResult(c, req, nil, map[string]string{
		"token":   sess.ID,
		"user_id": u.ID,
	})
}

// handleRequestPasswordReset issues a single-use reset token. There is no
// mail transport, so the token is returned in the response; a deployment
// fronting this with a mail flow would deliver it out of band instead.
func (s *Server) handleRequestPasswordReset(c *client, req Request) {
	if s.resetTokens == nil {
		s.replyResult(c, req, errors.New("password reset is disabled"), nil)
		return
	}

	var p resetRequestPayload
	if err := json.Unmarshal(req.Data, &p); err != nil {
		s.replyResult(c, req, errors.New("malformed payload"), nil)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), repoTimeout)
	defer cancel()
	u, err := s.users.Lookup(ctx, p.Username)
	if err != nil {
		s.replyResult(c, req, err, nil)
		return
	}

	token := s.resetTokens.Issue(u.ID)
	s.logger.Info("password reset requested",
		zap.String("user_id", u.ID),
		zap.String("username", p.Username),
	)
	s.replyResult(c, req, nil, map[string]string{"reset_token": token})
}

func (s *Server) handleResetPassword(c *client, req Request) {
	if s.resetTokens == nil {
		s.replyResult(c, req, errors.New("password reset is disabled"), nil)
		return
	}

	var p resetPayload
	if err := json.Unmarshal(req.Data, &p); err != nil {
		s.replyResult(c, req, errors.New("malformed payload"), nil)
		return
	}

	userID, err := s.resetTokens.Consume(p.Token)
	if err != nil {
		s.replyResult(c, req, err, nil)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), repoTimeout)
	defer cancel()
	s.replyResult(c, req, s.users.ResetPassword(ctx, userID, p.Password), nil)
}

func (s *Server) handleCreateGame(c *client, req Request) {
	sess, err := s.authenticate(req)
	if err != nil {
		s.replyResult(c, req, err, nil)
		return
	}

	var p createGamePayload
	if len(req.Data) > 0 {
		if err := json.Unmarshal(req.Data, &p); err != nil {
			s.replyResult(c, req, errors.New("malformed payload"), nil)
			return
		}
	}
	difficulty := p.Difficulty
	if difficulty == "" {
		difficulty = s.gameCfg.DefaultDifficulty
	}

	gameID, err := s.engine.CreateGame(game.Config{
		Difficulty:       difficulty,
		StartingVitality: s.gameCfg.StartingVitality,
		StartingHandSize: s.gameCfg.StartingHandSize,
		MaxHandSize:      s.gameCfg.MaxHandSize,
		DreamCardCount:   s.gameCfg.DreamCardCount,
		VictoryThreshold: s.gameCfg.VictoryThreshold,
	})
	if err != nil {
		s.replyResult(c, req, err, nil)
		return
	}

	s.setOwner(gameID, sess.UserID)
	s.sessions.BindGame(sess.ID, gameID)
	c.bind("", gameID)

	snap, err := s.engine.Snapshot(gameID)
	s.replyResult(c, req, err, snap)
}

func (s *Server) handleState(c *client, req Request) {
	if _, err := s.authenticate(req); err != nil {
		s.replyResult(c, req, err, nil)
		return
	}
	c.bind("", req.GameID)
	snap, err := s.engine.Snapshot(req.GameID)
	s.replyResult(c, req, err, snap)
}

func (s *Server) handleDrawCards(c *client, req Request) {
	var p drawPayload
	if len(req.Data) > 0 {
		if err := json.Unmarshal(req.Data, &p); err != nil {
			s.replyResult(c, req, errors.New("malformed payload"), nil)
			return
		}
	}
	if p.Count <= 0 {
		p.Count = 1
	}
	s.replyGameOp(c, req, func() error {
		_, err := s.engine.DrawCards(req.GameID, p.Count)
		return err
	})
}

func (s *Server) handleStartChallenge(c *client, req Request) {
	s.replyGameOp(c, req, func() error {
		_, err := s.engine.StartNextChallenge(req.GameID)
		return err
	})
}

func (s *Server) handleSelectCards(c *client, req Request) {
	var p selectCardsPayload
	if err := json.Unmarshal(req.Data, &p); err != nil {
		s.replyResult(c, req, errors.New("malformed payload"), nil)
		return
	}
	s.replyGameOp(c, req, func() error {
		return s.engine.SetSelectedCards(req.GameID, p.CardIDs...)
	})
}

func (s *Server) handleToggleCard(c *client, req Request) {
	var p cardPayload
	if err := json.Unmarshal(req.Data, &p); err != nil {
		s.replyResult(c, req, errors.New("malformed payload"), nil)
		return
	}
	s.replyGameOp(c, req, func() error {
		return s.engine.ToggleSelectCard(req.GameID, p.CardID)
	})
}

func (s *Server) handleResolveChallenge(c *client, req Request) {
	if _, err := s.authenticate(req); err != nil {
		s.replyResult(c, req, err, nil)
		return
	}
	result, err := s.engine.ResolveChallenge(req.GameID)
	s.replyResult(c, req, err, result)
}

func (s *Server) handleChooseReward(c *client, req Request) {
	var p cardPayload
	if err := json.Unmarshal(req.Data, &p); err != nil {
		s.replyResult(c, req, errors.New("malformed payload"), nil)
		return
	}
	s.replyGameOp(c, req, func() error {
		return s.engine.SelectCard(req.GameID, p.CardID)
	})
}

func (s *Server) handleDiscardCard(c *client, req Request) {
	var p cardPayload
	if err := json.Unmarshal(req.Data, &p); err != nil {
		s.replyResult(c, req, errors.New("malformed payload"), nil)
		return
	}
	s.replyGameOp(c, req, func() error {
		return s.engine.DiscardCard(req.GameID, p.CardID)
	})
}

func (s *Server) handleSaveGame(c *client, req Request) {
	sess, err := s.authenticate(req)
	if err != nil {
		s.replyResult(c, req, err, nil)
		return
	}
	if s.games == nil {
		s.replyResult(c, req, errors.New("saving is disabled"), nil)
		return
	}

	snap, err := s.engine.Snapshot(req.GameID)
	if err != nil {
		s.replyResult(c, req, err, nil)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), repoTimeout)
	defer cancel()
	err = s.games.SaveSnapshot(ctx, sess.UserID, snap)
	s.replyResult(c, req, err, map[string]string{"checksum": snap.Checksum()})
}

func (s *Server) handleListGames(c *client, req Request) {
	sess, err := s.authenticate(req)
	if err != nil {
		s.replyResult(c, req, err, nil)
		return
	}
	if s.games == nil {
		s.replyResult(c, req, errors.New("saving is disabled"), nil)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), repoTimeout)
	defer cancel()
	saved, err := s.games.ListGames(ctx, sess.UserID)
	s.replyResult(c, req, err, saved)
}

func (s *Server) handleLeaderboard(c *client, req Request) {
	if _, err := s.authenticate(req); err != nil {
		s.replyResult(c, req, err, nil)
		return
	}
	if s.stats == nil {
		s.replyResult(c, req, errors.New("stats are disabled"), nil)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), repoTimeout)
	defer cancel()
	top, err := s.stats.Leaderboard(ctx, 20)
	s.replyResult(c, req, err, top)
}

// handleDailyChallenges returns today's shared challenge lineup. Every client
// asking on the same UTC date sees the same cards.
func (s *Server) handleDailyChallenges(c *client, req Request) {
	s.mu.RLock()
	lib := s.catalog
	s.mu.RUnlock()
	if lib == nil {
		s.replyResult(c, req, errors.New("daily challenges are disabled"), nil)
		return
	}

	lineup := lib.DailyChallenges(time.Now(), 3)
	data := make(map[string]any, len(lineup))
	for stage, cards := range lineup {
		data[stage.String()] = cards
	}
	s.replyResult(c, req, nil, data)
}
