// state/phases.go
package state

import (
	"github.com/wfunc/battleship/game"
	"github.com/wfunc/battleship/logger"
)

const (
	msgYourTurn        = "Opponent joined. Your turn."
	msgOpponentsTurn   = "Opponent joined. Waiting for opponent's move."
	msgOpponentLeftWin = "Opponent left. You win!"
)

// WaitingState holds the match until both slots are connected.
type WaitingState struct {
	MatchStateBase
}

func NewWaitingState(match MatchContext) *WaitingState {
	return &WaitingState{
		MatchStateBase: MatchStateBase{ID: AwaitingPlayers.String(), Match: match},
	}
}

func (s *WaitingState) Phase() Phase { return AwaitingPlayers }

func (s *WaitingState) OnEnter() {
	logger.Log.Infof("Match %s waiting for players", s.Match.GetID())
}

func (s *WaitingState) OnUpdate() {
	// 房间已满，立即开始游戏
	if s.Match.Session().ConnectedPlayers() >= game.Players {
		if err := s.Match.ChangeState(NewPlayingState(s.Match)); err != nil {
			logger.Log.Errorf("Match %s failed to start: %v", s.Match.GetID(), err)
		}
	}
}

func (s *WaitingState) HandleFire(shooter, x, y int) game.Reply {
	return game.Reject(game.ErrAwaitingPlayers)
}

// PlayingState admits fires from the player whose turn it is.
type PlayingState struct {
	MatchStateBase
}

func NewPlayingState(match MatchContext) *PlayingState {
	return &PlayingState{
		MatchStateBase: MatchStateBase{ID: InProgress.String(), Match: match},
	}
}

func (s *PlayingState) Phase() Phase { return InProgress }

func (s *PlayingState) OnEnter() {
	sess := s.Match.Session()
	turn := sess.CurrentTurn()
	logger.Log.Infof("Match %s started, player %d fires first", s.Match.GetID(), turn)
	s.Match.Announce(turn, msgYourTurn)
	s.Match.Announce(game.Opponent(turn), msgOpponentsTurn)
}

func (s *PlayingState) OnUpdate() {
	if !s.Match.Session().GameOver() {
		return
	}
	if err := s.Match.ChangeState(NewFinishedState(s.Match)); err != nil {
		logger.Log.Errorf("Match %s failed to finish: %v", s.Match.GetID(), err)
	}
}

func (s *PlayingState) HandleFire(shooter, x, y int) game.Reply {
	return s.Match.Session().Fire(shooter, x, y)
}

// HandleLeave turns a departure mid-match into a forfeit.
func (s *PlayingState) HandleLeave(ordinal int) {
	logger.Log.Infof("Player %d left match %s, forfeiting", ordinal, s.Match.GetID())
	s.Match.Session().Forfeit(ordinal)
}

// FinishedState rejects every fire.
type FinishedState struct {
	MatchStateBase
}

func NewFinishedState(match MatchContext) *FinishedState {
	return &FinishedState{
		MatchStateBase: MatchStateBase{ID: Finished.String(), Match: match},
	}
}

func (s *FinishedState) Phase() Phase { return Finished }

func (s *FinishedState) OnEnter() {
	sess := s.Match.Session()
	logger.Log.Infof("Match %s finished: winner=%d reason=%s", s.Match.GetID(), sess.Winner(), sess.EndReason())
	if sess.EndReason() == game.Forfeit {
		s.Match.Announce(sess.Winner(), msgOpponentLeftWin)
	}
	s.Match.MatchFinished()
}

func (s *FinishedState) HandleFire(shooter, x, y int) game.Reply {
	return game.Reject(game.ErrGameOver)
}
