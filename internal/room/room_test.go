package room

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/songwars/backend/internal/engine"
	"github.com/songwars/backend/internal/monitor"
	"github.com/songwars/backend/internal/types"
)

func newTestState(seed int64) *engine.Room {
	host := engine.Participant{ID: "host", Name: "Hank", JoinedAt: time.Now()}
	return engine.NewRoom("ROOM01", host, rand.New(rand.NewSource(seed)))
}

func newTestRoom(t *testing.T, st *engine.Room, lookup LookupFunc) *Room {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	m := monitor.New("test", prometheus.NewRegistry())
	return New(ctx, st, lookup, zap.NewNop().Sugar(), m)
}

// helper: receive one message with a timeout so tests never hang
func recvMsg(t *testing.T, ch <-chan types.ServerMessage, within time.Duration) types.ServerMessage {
	t.Helper()
	select {
	case msg, ok := <-ch:
		if !ok {
			t.Fatalf("client outbox closed unexpectedly")
		}
		return msg
	case <-time.After(within):
		t.Fatalf("timed out waiting for message")
		return types.ServerMessage{} // unreachable
	}
}

func recvNoMsg(t *testing.T, ch <-chan types.ServerMessage, within time.Duration) {
	t.Helper()
	select {
	case msg, ok := <-ch:
		if !ok {
			return
		}
		t.Fatalf("expected no message within %v, but got: %+v", within, msg)
	case <-time.After(within):
	}
}

// waitForUpdate skips messages until a room_updated satisfies pred.
func waitForUpdate(t *testing.T, ch <-chan types.ServerMessage, within time.Duration, pred func(*types.RoomView) bool) *types.RoomView {
	t.Helper()
	deadline := time.After(within)
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				t.Fatalf("outbox closed while waiting for update")
			}
			if msg.Type == "room_updated" && msg.Room != nil && pred(msg.Room) {
				return msg.Room
			}
		case <-deadline:
			t.Fatalf("timed out waiting for matching room_updated")
			return nil // unreachable
		}
	}
}

func join(t *testing.T, r *Room, id, name string, buf int) chan types.ServerMessage {
	t.Helper()
	out := make(chan types.ServerMessage, buf)
	reply := make(chan error, 1)
	r.Inbox() <- Join{ClientID: id, Name: name, Outbox: out, Reply: reply}
	select {
	case err := <-reply:
		if err != nil {
			t.Fatalf("join %s: %v", name, err)
		}
	case <-time.After(time.Second):
		t.Fatalf("join %s: no reply", name)
	}
	return out
}

func probe(t *testing.T, r *Room) view {
	t.Helper()
	reply := make(chan view, 1)
	r.Inbox() <- getView{reply: reply}
	select {
	case v := <-reply:
		return v
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for view")
		return view{} // unreachable
	}
}

func TestRoom_JoinBroadcastsUpdate(t *testing.T) {
	r := newTestRoom(t, newTestState(1), nil)

	hostOut := make(chan types.ServerMessage, 8)
	r.Inbox() <- Attach{ClientID: "host", Outbox: hostOut}

	playerOut := join(t, r, "p1", "Ada", 8)

	for _, ch := range []chan types.ServerMessage{hostOut, playerOut} {
		msg := recvMsg(t, ch, time.Second)
		if msg.Type != "room_updated" {
			t.Fatalf("want room_updated, got %s", msg.Type)
		}
		if len(msg.Room.Players) != 1 || msg.Room.Players[0].Name != "Ada" {
			t.Fatalf("snapshot players wrong: %+v", msg.Room.Players)
		}
		if msg.Room.Scores["p1"] != 0 {
			t.Fatalf("joiner score not rendered")
		}
	}
}

func TestRoom_JoinDuplicateNameRejected(t *testing.T) {
	r := newTestRoom(t, newTestState(1), nil)
	_ = join(t, r, "p1", "Ada", 8)

	out := make(chan types.ServerMessage, 8)
	reply := make(chan error, 1)
	r.Inbox() <- Join{ClientID: "p2", Name: "Ada", Outbox: out, Reply: reply}
	if err := <-reply; err != engine.ErrNameTaken {
		t.Fatalf("want ErrNameTaken, got %v", err)
	}
	v := probe(t, r)
	if v.numClients != 1 {
		t.Fatalf("rejected joiner must not be registered, clients=%d", v.numClients)
	}
}

func TestRoom_ErrorGoesOnlyToActingClient(t *testing.T) {
	r := newTestRoom(t, newTestState(1), nil)
	hostOut := make(chan types.ServerMessage, 8)
	r.Inbox() <- Attach{ClientID: "host", Outbox: hostOut}
	playerOut := join(t, r, "p1", "Ada", 8)
	_ = recvMsg(t, hostOut, time.Second)   // join broadcast
	_ = recvMsg(t, playerOut, time.Second) // join broadcast

	r.Inbox() <- FromClient{ClientID: "p1", Cmd: engine.Command{Type: engine.CmdStartGame, ActorID: "p1"}}

	msg := recvMsg(t, playerOut, time.Second)
	if msg.Type != "error" || msg.Message != engine.ErrUnauthorized.Error() {
		t.Fatalf("want unauthorized error to actor, got %+v", msg)
	}
	recvNoMsg(t, hostOut, 100*time.Millisecond)
}

func TestRoom_FullBattleFlow(t *testing.T) {
	st := newTestState(9)
	st.Settings.PointsToWin = 1
	r := newTestRoom(t, st, nil)

	hostOut := make(chan types.ServerMessage, 16)
	r.Inbox() <- Attach{ClientID: "host", Outbox: hostOut}
	_ = join(t, r, "a", "Ada", 16)
	_ = join(t, r, "b", "Bo", 16)
	_ = join(t, r, "c", "Cy", 16)

	r.Inbox() <- FromClient{ClientID: "host", Cmd: engine.Command{Type: engine.CmdStartGame, ActorID: "host"}}
	battleView := waitForUpdate(t, hostOut, time.Second, func(v *types.RoomView) bool {
		return v.GameState == "battle" && v.CurrentBattle != nil
	})

	p1 := battleView.CurrentBattle.Player1.ID
	p2 := battleView.CurrentBattle.Player2.ID
	var judge string
	for _, id := range []string{"a", "b", "c"} {
		if id != p1 && id != p2 {
			judge = id
		}
	}

	r.Inbox() <- FromClient{ClientID: p1, Cmd: engine.Command{Type: engine.CmdSubmitSong, ActorID: p1, Title: "One", Artist: "X"}}
	r.Inbox() <- FromClient{ClientID: p2, Cmd: engine.Command{Type: engine.CmdSubmitSong, ActorID: p2, Title: "Two", Artist: "Y"}}
	voting := waitForUpdate(t, hostOut, time.Second, func(v *types.RoomView) bool {
		return v.CurrentBattle != nil && v.CurrentBattle.Phase == "voting"
	})
	if voting.CurrentBattle.TotalJudges != 2 {
		t.Fatalf("3 participants + judging host: want quorum 2, got %d", voting.CurrentBattle.TotalJudges)
	}

	r.Inbox() <- FromClient{ClientID: judge, Cmd: engine.Command{Type: engine.CmdSubmitVote, ActorID: judge, VotedFor: p1}}
	r.Inbox() <- FromClient{ClientID: "host", Cmd: engine.Command{Type: engine.CmdSubmitVote, ActorID: "host", VotedFor: p1}}

	final := waitForUpdate(t, hostOut, time.Second, func(v *types.RoomView) bool {
		return v.GameState == "finished"
	})
	b := final.CurrentBattle
	if b.Winner != p1 {
		t.Fatalf("want winner %s, got %s", p1, b.Winner)
	}
	if b.FinalVotes == nil || b.FinalVotes.Player1+b.FinalVotes.Player2 != 2 {
		t.Fatalf("finalVotes must sum to votes cast: %+v", b.FinalVotes)
	}
	if final.Scores[p1] != 1 {
		t.Fatalf("winner score: want 1, got %d", final.Scores[p1])
	}
	if b.GameWinner == nil || b.GameWinner.ID != p1 {
		t.Fatalf("game winner missing from snapshot")
	}
}

func TestRoom_LookupAppliedAndRebroadcast(t *testing.T) {
	lookup := func(ctx context.Context, title, artist string) *engine.MediaRef {
		return &engine.MediaRef{VideoID: "vid-" + title, Title: title}
	}
	st := newTestState(3)
	r := newTestRoom(t, st, lookup)

	hostOut := make(chan types.ServerMessage, 16)
	r.Inbox() <- Attach{ClientID: "host", Outbox: hostOut}
	_ = join(t, r, "a", "Ada", 16)
	_ = join(t, r, "b", "Bo", 16)

	r.Inbox() <- FromClient{ClientID: "host", Cmd: engine.Command{Type: engine.CmdStartGame, ActorID: "host"}}
	bv := waitForUpdate(t, hostOut, time.Second, func(v *types.RoomView) bool {
		return v.CurrentBattle != nil
	})
	p1 := bv.CurrentBattle.Player1.ID

	r.Inbox() <- FromClient{ClientID: p1, Cmd: engine.Command{Type: engine.CmdSubmitSong, ActorID: p1, Title: "Song", Artist: "X"}}
	enriched := waitForUpdate(t, hostOut, time.Second, func(v *types.RoomView) bool {
		sub := v.CurrentBattle.Submissions["player1"]
		return sub != nil && sub.Media != nil
	})
	if got := enriched.CurrentBattle.Submissions["player1"].Media.VideoID; got != "vid-Song" {
		t.Fatalf("want enrichment vid-Song, got %s", got)
	}
}

func TestRoom_StaleLookupDiscarded(t *testing.T) {
	release := make(chan struct{})
	var mu sync.Mutex
	calls := 0
	lookup := func(ctx context.Context, title, artist string) *engine.MediaRef {
		mu.Lock()
		calls++
		mu.Unlock()
		<-release
		return &engine.MediaRef{VideoID: "vid-" + title}
	}
	st := newTestState(3)
	r := newTestRoom(t, st, lookup)

	hostOut := make(chan types.ServerMessage, 16)
	r.Inbox() <- Attach{ClientID: "host", Outbox: hostOut}
	_ = join(t, r, "a", "Ada", 16)
	_ = join(t, r, "b", "Bo", 16)

	r.Inbox() <- FromClient{ClientID: "host", Cmd: engine.Command{Type: engine.CmdStartGame, ActorID: "host"}}
	bv := waitForUpdate(t, hostOut, time.Second, func(v *types.RoomView) bool {
		return v.CurrentBattle != nil
	})
	p1 := bv.CurrentBattle.Player1.ID

	// Two submissions to the same slot while both lookups hang: the
	// result for the overwritten one must never land.
	r.Inbox() <- FromClient{ClientID: p1, Cmd: engine.Command{Type: engine.CmdSubmitSong, ActorID: p1, Title: "Old", Artist: "X"}}
	r.Inbox() <- FromClient{ClientID: p1, Cmd: engine.Command{Type: engine.CmdSubmitSong, ActorID: p1, Title: "New", Artist: "X"}}
	waitForUpdate(t, hostOut, time.Second, func(v *types.RoomView) bool {
		sub := v.CurrentBattle.Submissions["player1"]
		return sub != nil && sub.Title == "New"
	})
	close(release)

	waitForUpdate(t, hostOut, time.Second, func(v *types.RoomView) bool {
		sub := v.CurrentBattle.Submissions["player1"]
		return sub.Media != nil
	})
	v := probe(t, r)
	sub := v.state.Battle.Submissions[engine.SlotPlayer1]
	if sub.Media.VideoID != "vid-New" {
		t.Fatalf("stale lookup applied: %s", sub.Media.VideoID)
	}
	mu.Lock()
	defer mu.Unlock()
	if calls != 2 {
		t.Fatalf("expected a lookup per submission, got %d", calls)
	}
}

func TestRoom_CloseBroadcastsRoomClosed(t *testing.T) {
	r := newTestRoom(t, newTestState(1), nil)
	hostOut := make(chan types.ServerMessage, 8)
	r.Inbox() <- Attach{ClientID: "host", Outbox: hostOut}
	playerOut := join(t, r, "p1", "Ada", 8)
	_ = recvMsg(t, hostOut, time.Second)
	_ = recvMsg(t, playerOut, time.Second)

	r.Inbox() <- Close{Message: "Host left the room"}

	for _, ch := range []chan types.ServerMessage{hostOut, playerOut} {
		msg := recvMsg(t, ch, time.Second)
		if msg.Type != "room_closed" || msg.Message != "Host left the room" {
			t.Fatalf("want room_closed, got %+v", msg)
		}
		if _, ok := <-ch; ok {
			t.Fatalf("outbox must be closed after room_closed")
		}
	}
}

func TestRoom_DropSlowClient(t *testing.T) {
	r := newTestRoom(t, newTestState(1), nil)

	slow := join(t, r, "p1", "Ada", 1) // buffer holds only the join broadcast
	_ = slow
	_ = join(t, r, "p2", "Bo", 8)

	v := probe(t, r)
	if v.numClients != 1 {
		t.Fatalf("expected slow client to be dropped; clients=%d", v.numClients)
	}
}

func TestRoom_LeaveClosesOutbox(t *testing.T) {
	r := newTestRoom(t, newTestState(1), nil)

	out := join(t, r, "p1", "Ada", 8)
	_ = recvMsg(t, out, time.Second) // join broadcast

	r.Inbox() <- Leave{ClientID: "p1"}

	// Drain any in-flight broadcast; the channel itself must close so
	// the connection's writer can terminate.
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-out:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatalf("outbox still open after leave")
		}
	}
}
