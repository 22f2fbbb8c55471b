package types

import (
	"time"

	"github.com/songwars/backend/internal/engine"
)

// ClientMessage is the single inbound envelope; Type selects which of
// the optional fields are meaningful.
type ClientMessage struct {
	Type          string         `json:"type"`
	HostName      string         `json:"hostName,omitempty"`
	RoomCode      string         `json:"roomCode,omitempty"`
	PlayerName    string         `json:"playerName,omitempty"`
	Title         string         `json:"title,omitempty"`
	Artist        string         `json:"artist,omitempty"`
	VotedPlayerID string         `json:"votedPlayerId,omitempty"`
	Settings      *SettingsPatch `json:"settings,omitempty"`
}

type SettingsPatch struct {
	Genre       *string `json:"genre,omitempty"`
	PointsToWin *int    `json:"pointsToWin,omitempty"`
	MaxPlayers  *int    `json:"maxPlayers,omitempty"`
}

// ServerMessage covers every outbound event type:
// "room_created" | "room_joined" | "join_failed" | "room_updated" |
// "room_closed" | "room_state" | "error"
type ServerMessage struct {
	Type     string    `json:"type"`
	Success  bool      `json:"success,omitempty"`
	RoomCode string    `json:"roomCode,omitempty"`
	Role     string    `json:"role,omitempty"`
	Room     *RoomView `json:"room,omitempty"`
	YourRole string    `json:"yourRole,omitempty"`
	YourName string    `json:"yourName,omitempty"`
	Message  string    `json:"message,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// RoomView is the wire-safe snapshot of a room. Field names follow the
// original client protocol (gameState, currentBattle, ...).
type RoomView struct {
	Code          string               `json:"code"`
	Host          engine.Participant   `json:"host"`
	Players       []engine.Participant `json:"players"`
	GameState     string               `json:"gameState"`
	Settings      engine.Settings      `json:"settings"`
	Scores        map[string]int       `json:"scores"`
	CurrentBattle *BattleView          `json:"currentBattle"`
}

type BattleView struct {
	ID              string                        `json:"id"`
	Player1         engine.Participant            `json:"player1"`
	Player2         engine.Participant            `json:"player2"`
	Category        engine.Category               `json:"category"`
	Phase           string                        `json:"phase"`
	Submissions     map[string]*engine.Submission `json:"submissions"`
	VotesCast       int                           `json:"votesCast"`
	TotalJudges     int                           `json:"totalJudges"`
	StartedAt       time.Time                     `json:"startTime"`
	VotingStartedAt *time.Time                    `json:"votingStartTime,omitempty"`
	Winner          string                        `json:"winner,omitempty"`
	FinalVotes      *engine.VoteTally             `json:"finalVotes,omitempty"`
	GameWinner      *engine.Participant           `json:"gameWinner,omitempty"`
}

// NewRoomView renders an immutable snapshot: every slice, map and
// submission is copied so the actor may keep mutating its state after
// the snapshot leaves the loop.
func NewRoomView(r *engine.Room) *RoomView {
	view := &RoomView{
		Code:      r.Code,
		Host:      r.Host,
		Players:   make([]engine.Participant, 0, len(r.Participants)),
		GameState: string(r.Phase),
		Settings:  r.Settings,
		Scores:    make(map[string]int, len(r.Scores)),
	}
	for _, p := range r.Participants {
		view.Players = append(view.Players, *p)
	}
	for id, score := range r.Scores {
		view.Scores[id] = score
	}
	if b := r.Battle; b != nil {
		view.CurrentBattle = newBattleView(b)
	}
	return view
}

func newBattleView(b *engine.Battle) *BattleView {
	bv := &BattleView{
		ID:          b.ID,
		Player1:     b.Player1,
		Player2:     b.Player2,
		Category:    b.Category,
		Phase:       string(b.Phase),
		Submissions: make(map[string]*engine.Submission, len(b.Submissions)),
		VotesCast:   len(b.Votes),
		TotalJudges: b.Quorum,
		StartedAt:   b.StartedAt,
		Winner:      b.Winner,
	}
	for slot, sub := range b.Submissions {
		s := *sub
		bv.Submissions[string(slot)] = &s
	}
	if !b.VotingStartedAt.IsZero() {
		t := b.VotingStartedAt
		bv.VotingStartedAt = &t
	}
	if b.FinalVotes != nil {
		fv := *b.FinalVotes
		bv.FinalVotes = &fv
	}
	if b.GameWinner != nil {
		gw := *b.GameWinner
		bv.GameWinner = &gw
	}
	return bv
}
