package engine

import (
	"math/rand"
	"time"
)

type Participant struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joinedAt"`
}

type Settings struct {
	Genre       string `json:"genre"`
	PointsToWin int    `json:"pointsToWin"`
	MaxPlayers  int    `json:"maxPlayers"`
}

// Room is the full mutable state of one game room. It is owned by a
// single room actor; nothing in this package is safe for concurrent use.
type Room struct {
	Code         string
	Host         Participant
	Participants []*Participant // insertion order, for display
	Phase        RoomPhase
	Settings     Settings
	Scores       map[string]int // participant id -> battles won
	Battle       *Battle
	CreatedAt    time.Time

	rng *rand.Rand
}

// NewRoom creates a room in the lobby phase with default settings. The
// rand source drives battler selection, category choice and tie-breaks;
// tests inject a seeded one for determinism.
func NewRoom(code string, host Participant, rng *rand.Rand) *Room {
	return &Room{
		Code: code,
		Host: host,
		Settings: Settings{
			Genre:       DefaultGenre,
			PointsToWin: 5,
			MaxPlayers:  8,
		},
		Phase:     RoomLobby,
		Scores:    make(map[string]int),
		CreatedAt: time.Now(),
		rng:       rng,
	}
}

func (r *Room) AddParticipant(id, name string) error {
	if name == "" {
		return ErrEmptyName
	}
	if len(r.Participants) >= r.Settings.MaxPlayers {
		return ErrRoomFull
	}
	if r.Phase != RoomLobby {
		return ErrGameInProgress
	}
	if r.nameTaken(name) {
		return ErrNameTaken
	}
	r.Participants = append(r.Participants, &Participant{
		ID:       id,
		Name:     name,
		JoinedAt: time.Now(),
	})
	r.Scores[id] = 0
	return nil
}

// RemoveParticipant drops a participant and their score. If the current
// battle is in its voting phase, the frozen quorum is lowered to the
// remaining judge count so resolution never waits on departed judges;
// if the recorded votes already satisfy the lowered quorum, the battle
// concludes immediately and the returned events include the result.
func (r *Room) RemoveParticipant(id string) ([]Event, bool) {
	idx := -1
	for i, p := range r.Participants {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, false
	}
	r.Participants = append(r.Participants[:idx], r.Participants[idx+1:]...)
	delete(r.Scores, id)

	b := r.Battle
	if b == nil || b.Phase != PhaseVoting {
		return nil, true
	}
	if j := r.judgeCount(); j < b.Quorum {
		b.Quorum = j
	}
	if b.Quorum > 0 && len(b.Votes) >= b.Quorum {
		return r.finishBattle(), true
	}
	return nil, true
}

func (r *Room) nameTaken(name string) bool {
	if r.Host.Name == name {
		return true
	}
	for _, p := range r.Participants {
		if p.Name == name {
			return true
		}
	}
	return false
}

func (r *Room) participant(id string) (*Participant, bool) {
	for _, p := range r.Participants {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// judgeCount is the number of room members eligible to vote in the
// current battle: every participant except the two battlers, plus the
// host when the host is not battling. Counted over the live roster, so
// a battler who already left does not shrink the judge pool. Requires
// an active battle.
func (r *Room) judgeCount() int {
	b := r.Battle
	n := 0
	for _, p := range r.Participants {
		if p.ID != b.Player1.ID && p.ID != b.Player2.ID {
			n++
		}
	}
	if r.Host.ID != b.Player1.ID && r.Host.ID != b.Player2.ID {
		n++
	}
	return n
}

// selectBattlers picks two distinct participants. No fairness policy:
// two independent draws from the current roster, never the same player
// against themselves.
func (r *Room) selectBattlers() (Participant, Participant, bool) {
	n := len(r.Participants)
	if n < 2 {
		return Participant{}, Participant{}, false
	}
	i := r.rng.Intn(n)
	j := r.rng.Intn(n - 1)
	if j >= i {
		j++
	}
	return *r.Participants[i], *r.Participants[j], true
}
