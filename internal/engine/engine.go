package engine

import (
	"errors"
)

var ErrUnauthorized = errors.New("not authorized")
var ErrRoomFull = errors.New("room is full")
var ErrGameInProgress = errors.New("game already in progress")
var ErrNameTaken = errors.New("name already taken")
var ErrEmptyName = errors.New("name must not be empty")
var ErrNotEnoughPlayers = errors.New("need at least 2 players to start")
var ErrNoActiveBattle = errors.New("no active battle")
var ErrNotBattling = errors.New("you are not battling in this round")
var ErrSubmissionClosed = errors.New("submissions are closed")
var ErrVotingNotActive = errors.New("voting not active")
var ErrBattlerCannotVote = errors.New("battlers cannot vote")
var ErrInvalidVoteTarget = errors.New("vote must be for one of the battlers")
var ErrUnsupportedCommand = errors.New("unsupported command")

type RoomPhase string

const (
	RoomLobby    RoomPhase = "lobby"
	RoomBattle   RoomPhase = "battle"
	RoomFinished RoomPhase = "finished"
)

type BattlePhase string

const (
	PhaseSubmission BattlePhase = "submission"
	PhaseVoting     BattlePhase = "voting"
	PhaseResults    BattlePhase = "results"
)

// Slot identifies one of the two battler positions in a battle. The
// string values double as the wire keys of the submissions object.
type Slot string

const (
	SlotPlayer1 Slot = "player1"
	SlotPlayer2 Slot = "player2"
)

type CommandType string

const (
	CmdUpdateSettings CommandType = "UpdateSettings"
	CmdStartGame      CommandType = "StartGame"
	CmdSubmitSong     CommandType = "SubmitSong"
	CmdSubmitVote     CommandType = "SubmitVote"
	CmdNextBattle     CommandType = "NextBattle"
)

type Command struct {
	Type     CommandType
	ActorID  string
	Title    string
	Artist   string
	VotedFor string
	Settings SettingsPatch
}

// SettingsPatch is a partial settings update; nil fields are left as-is.
type SettingsPatch struct {
	Genre       *string
	PointsToWin *int
	MaxPlayers  *int
}

type EventType string

const (
	EvtBattleStarted      EventType = "BattleStarted"
	EvtSubmissionRecorded EventType = "SubmissionRecorded"
	EvtVotingStarted      EventType = "VotingStarted"
	EvtVoteRecorded       EventType = "VoteRecorded"
	EvtBattleFinished     EventType = "BattleFinished"
	EvtGameFinished       EventType = "GameFinished"
)

type Event struct {
	Type        EventType
	BattleID    string
	Slot        Slot
	Title       string
	Artist      string
	SubmittedAt int64 // unix nanos of the submission the event refers to
	WinnerID    string
}

// Apply runs one command against the room. It mutates r on success and
// returns the events the command produced; on error r is unchanged.
// Callers are expected to serialize all Apply calls for a given room.
func Apply(r *Room, cmd Command) ([]Event, error) {
	switch cmd.Type {
	case CmdUpdateSettings:
		if cmd.ActorID != r.Host.ID {
			return nil, ErrUnauthorized
		}
		r.Settings.merge(cmd.Settings)
		return nil, nil

	case CmdStartGame:
		if cmd.ActorID != r.Host.ID {
			return nil, ErrUnauthorized
		}
		if len(r.Participants) < 2 {
			return nil, ErrNotEnoughPlayers
		}
		return r.startBattle(), nil

	case CmdNextBattle:
		// Host may force-advance at any phase; the prior battle is
		// discarded without awarding a point. This is also the escape
		// hatch when a battler disconnects mid-battle.
		if cmd.ActorID != r.Host.ID {
			return nil, ErrUnauthorized
		}
		return r.startBattle(), nil

	case CmdSubmitSong:
		return r.submitSong(cmd.ActorID, cmd.Title, cmd.Artist)

	case CmdSubmitVote:
		return r.submitVote(cmd.ActorID, cmd.VotedFor)

	default:
		return nil, ErrUnsupportedCommand
	}
}

func (s *Settings) merge(p SettingsPatch) {
	if p.Genre != nil {
		s.Genre = *p.Genre
	}
	if p.PointsToWin != nil {
		s.PointsToWin = *p.PointsToWin
	}
	if p.MaxPlayers != nil {
		s.MaxPlayers = *p.MaxPlayers
	}
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}
