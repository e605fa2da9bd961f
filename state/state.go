package state

import (
	"errors"
	"sync"

	"github.com/wfunc/battleship/game"
)

// Phase of a match.
type Phase int

const (
	AwaitingPlayers Phase = iota
	InProgress
	Finished
)

func (p Phase) String() string {
	switch p {
	case AwaitingPlayers:
		return "awaiting_players"
	case InProgress:
		return "in_progress"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// 状态机接口
type StateMachine interface {
	ChangeState(state State) error
	GetCurrentState() State
	AddTransition(from State, to State, condition func() bool) error
}

// State is one phase of a match. Every method runs on the room loop.
type State interface {
	OnEnter()
	OnExit()
	// OnUpdate runs after every request the room handles.
	OnUpdate()
	GetID() string
	Phase() Phase
	HandleFire(shooter, x, y int) game.Reply
	HandleLeave(ordinal int)
}

// ErrTransitionNotAllowed is returned when a state transition is not allowed.
var ErrTransitionNotAllowed = errors.New("state transition not allowed")

// 基础状态机实现
type BaseStateMachine struct {
	currentState State
	transitions  map[string]map[string]func() bool // fromState -> toState -> condition
	mutex        sync.RWMutex
}

func NewBaseStateMachine(initialState State) *BaseStateMachine {
	machine := &BaseStateMachine{
		currentState: initialState,
		transitions:  make(map[string]map[string]func() bool),
	}
	initialState.OnEnter()
	return machine
}

// NewMatchMachine starts a match in AwaitingPlayers and installs the guards
// that keep phases moving forward only.
func NewMatchMachine(match MatchContext) *BaseStateMachine {
	waiting := NewWaitingState(match)
	playing := NewPlayingState(match)
	finished := NewFinishedState(match)
	sm := NewBaseStateMachine(waiting)

	sm.AddTransition(waiting, playing, func() bool {
		return match.Session().ConnectedPlayers() == game.Players
	})
	sm.AddTransition(playing, finished, func() bool {
		return match.Session().GameOver()
	})
	never := func() bool { return false }
	sm.AddTransition(finished, waiting, never)
	sm.AddTransition(finished, playing, never)
	sm.AddTransition(playing, waiting, never)
	return sm
}

func (sm *BaseStateMachine) ChangeState(newState State) error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	currentID := sm.currentState.GetID()
	newID := newState.GetID()

	// 检查是否有转换条件
	if conditions, exists := sm.transitions[currentID]; exists {
		if condition, exists := conditions[newID]; exists {
			if condition != nil && !condition() {
				return ErrTransitionNotAllowed
			}
		}
	}

	sm.currentState.OnExit()
	sm.currentState = newState
	sm.currentState.OnEnter()

	return nil
}

func (sm *BaseStateMachine) GetCurrentState() State {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return sm.currentState
}

func (sm *BaseStateMachine) AddTransition(from State, to State, condition func() bool) error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	fromID := from.GetID()
	toID := to.GetID()

	if _, exists := sm.transitions[fromID]; !exists {
		sm.transitions[fromID] = make(map[string]func() bool)
	}

	sm.transitions[fromID][toID] = condition
	return nil
}

// 房间状态基础结构
type MatchStateBase struct {
	ID    string
	Match MatchContext
}

func (s *MatchStateBase) GetID() string {
	return s.ID
}

func (s *MatchStateBase) OnEnter() {}

func (s *MatchStateBase) OnExit() {}

func (s *MatchStateBase) OnUpdate() {}

func (s *MatchStateBase) HandleLeave(ordinal int) {}
