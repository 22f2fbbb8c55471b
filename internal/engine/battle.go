package engine

import (
	"time"

	"github.com/google/uuid"
)

type Battle struct {
	ID              string
	Player1         Participant
	Player2         Participant
	Category        Category
	Phase           BattlePhase
	Submissions     map[Slot]*Submission
	Votes           map[string]string // voter id -> battler id, overwritable
	Quorum          int               // frozen when voting starts, may shrink on leave
	StartedAt       time.Time
	VotingStartedAt time.Time
	Winner          string
	FinalVotes      *VoteTally
	GameWinner      *Participant
}

type Submission struct {
	Title       string    `json:"title"`
	Artist      string    `json:"artist"`
	SubmittedAt time.Time `json:"submittedAt"`
	Media       *MediaRef `json:"youtube,omitempty"`
}

// MediaRef is the advisory enrichment attached to a submission by the
// song lookup collaborator. Battles progress fine without it.
type MediaRef struct {
	VideoID      string `json:"videoId"`
	Title        string `json:"title"`
	Thumbnail    string `json:"thumbnail"`
	ChannelTitle string `json:"channelTitle"`
}

type VoteTally struct {
	Player1 int `json:"player1"`
	Player2 int `json:"player2"`
}

// startBattle replaces any current battle with a fresh one in the
// submission phase. A no-op when fewer than two participants remain.
func (r *Room) startBattle() []Event {
	p1, p2, ok := r.selectBattlers()
	if !ok {
		return nil
	}
	r.Battle = &Battle{
		ID:          uuid.NewString(),
		Player1:     p1,
		Player2:     p2,
		Category:    randomCategory(r.rng, r.Settings.Genre),
		Phase:       PhaseSubmission,
		Submissions: make(map[Slot]*Submission),
		Votes:       make(map[string]string),
		StartedAt:   time.Now(),
	}
	r.Phase = RoomBattle
	return []Event{{Type: EvtBattleStarted, BattleID: r.Battle.ID}}
}

func (r *Room) submitSong(actorID, title, artist string) ([]Event, error) {
	b := r.Battle
	if b == nil {
		return nil, ErrNoActiveBattle
	}
	var slot Slot
	switch actorID {
	case b.Player1.ID:
		slot = SlotPlayer1
	case b.Player2.ID:
		slot = SlotPlayer2
	default:
		return nil, ErrNotBattling
	}
	if b.Phase != PhaseSubmission {
		return nil, ErrSubmissionClosed
	}

	now := time.Now()
	b.Submissions[slot] = &Submission{Title: title, Artist: artist, SubmittedAt: now}
	events := []Event{{
		Type:        EvtSubmissionRecorded,
		BattleID:    b.ID,
		Slot:        slot,
		Title:       title,
		Artist:      artist,
		SubmittedAt: now.UnixNano(),
	}}

	if b.Submissions[SlotPlayer1] != nil && b.Submissions[SlotPlayer2] != nil {
		b.Phase = PhaseVoting
		b.VotingStartedAt = now
		b.Quorum = r.judgeCount()
		events = append(events, Event{Type: EvtVotingStarted, BattleID: b.ID})
	}
	return events, nil
}

func (r *Room) submitVote(actorID, votedFor string) ([]Event, error) {
	b := r.Battle
	if b == nil {
		return nil, ErrNoActiveBattle
	}
	if b.Phase != PhaseVoting {
		return nil, ErrVotingNotActive
	}
	if actorID == b.Player1.ID || actorID == b.Player2.ID {
		return nil, ErrBattlerCannotVote
	}
	if votedFor != b.Player1.ID && votedFor != b.Player2.ID {
		return nil, ErrInvalidVoteTarget
	}

	b.Votes[actorID] = votedFor
	events := []Event{{Type: EvtVoteRecorded, BattleID: b.ID}}
	if len(b.Votes) >= b.Quorum {
		events = append(events, r.finishBattle()...)
	}
	return events, nil
}

// finishBattle tallies the votes, awards the round and checks for game
// completion. A strict majority wins; an exact tie is broken uniformly
// by the injected rand source, never by slot order.
func (r *Room) finishBattle() []Event {
	b := r.Battle
	var p1Votes, p2Votes int
	for _, votedFor := range b.Votes {
		switch votedFor {
		case b.Player1.ID:
			p1Votes++
		case b.Player2.ID:
			p2Votes++
		}
	}

	winner := b.Player1
	switch {
	case p2Votes > p1Votes:
		winner = b.Player2
	case p1Votes == p2Votes:
		if r.rng.Intn(2) == 1 {
			winner = b.Player2
		}
	}

	r.Scores[winner.ID]++
	b.Phase = PhaseResults
	b.Winner = winner.ID
	b.FinalVotes = &VoteTally{Player1: p1Votes, Player2: p2Votes}

	events := []Event{{Type: EvtBattleFinished, BattleID: b.ID, WinnerID: winner.ID}}
	if r.Scores[winner.ID] >= r.Settings.PointsToWin {
		r.Phase = RoomFinished
		w := winner
		b.GameWinner = &w
		events = append(events, Event{Type: EvtGameFinished, BattleID: b.ID, WinnerID: winner.ID})
	}
	return events
}

// ApplyLookup attaches a late enrichment result to the submission it
// was issued for. The battle id and submission timestamp must still
// match the live state; a result for a replaced battle or an
// overwritten submission is discarded.
func (r *Room) ApplyLookup(battleID string, slot Slot, submittedAt int64, media *MediaRef) bool {
	b := r.Battle
	if b == nil || b.ID != battleID || media == nil {
		return false
	}
	sub := b.Submissions[slot]
	if sub == nil || sub.SubmittedAt.UnixNano() != submittedAt {
		return false
	}
	sub.Media = media
	return true
}
