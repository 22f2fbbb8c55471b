package room

import (
	"context"

	"go.uber.org/zap"

	"github.com/songwars/backend/internal/engine"
	"github.com/songwars/backend/internal/monitor"
	"github.com/songwars/backend/internal/types"
)

// LookupFunc is the song-lookup collaborator boundary. It must bound
// its own latency and return nil on any failure.
type LookupFunc func(ctx context.Context, title, artist string) *engine.MediaRef

type Msg interface{ isRoomMsg() }

// Attach registers a connection's outbox without adding a participant;
// used for the host right after room creation.
type Attach struct {
	ClientID string
	Outbox   chan types.ServerMessage
}

func (Attach) isRoomMsg() {}

type Join struct {
	ClientID string
	Name     string
	Outbox   chan types.ServerMessage
	Reply    chan error
}

func (Join) isRoomMsg() {}

type Leave struct{ ClientID string }

func (Leave) isRoomMsg() {}

type FromClient struct {
	ClientID string
	Cmd      engine.Command
}

func (FromClient) isRoomMsg() {}

type GetState struct {
	ClientID string
	Role     string
	Name     string
	Reply    chan types.ServerMessage
}

func (GetState) isRoomMsg() {}

// Close broadcasts room_closed to everyone and stops the actor; sent
// when the host disconnects.
type Close struct{ Message string }

func (Close) isRoomMsg() {}

type Shutdown struct{}

func (Shutdown) isRoomMsg() {}

// lookupResult re-enters an async enrichment result into the loop, so
// it is applied under the same serialization as every other mutation.
type lookupResult struct {
	battleID    string
	slot        engine.Slot
	submittedAt int64
	media       *engine.MediaRef
}

func (lookupResult) isRoomMsg() {}

// getView is a test-only probe of actor internals.
type getView struct {
	reply chan view
}

func (getView) isRoomMsg() {}

type view struct {
	numClients int
	state      engine.Room
}

// Room is the single processing context for one game room: every
// mutation of its engine state happens inside loop, so actions on the
// same room never interleave.
type Room struct {
	inbox   chan Msg
	state   *engine.Room
	clients map[string]chan types.ServerMessage
	lookup  LookupFunc
	log     *zap.SugaredLogger
	metrics *monitor.Metrics
	ctx     context.Context
	cancel  context.CancelFunc
}

func New(parent context.Context, state *engine.Room, lookup LookupFunc, log *zap.SugaredLogger, m *monitor.Metrics) *Room {
	ctx, cancel := context.WithCancel(parent)

	r := &Room{
		inbox:   make(chan Msg, 64),
		state:   state,
		clients: make(map[string]chan types.ServerMessage),
		lookup:  lookup,
		log:     log.With("room", state.Code),
		metrics: m,
		ctx:     ctx,
		cancel:  cancel,
	}

	go r.loop()
	return r
}

func (r *Room) Inbox() chan<- Msg { return r.inbox }

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Attach:
				r.clients[msg.ClientID] = msg.Outbox

			case Join:
				err := r.state.AddParticipant(msg.ClientID, msg.Name)
				msg.Reply <- err
				if err != nil {
					break
				}
				r.clients[msg.ClientID] = msg.Outbox
				r.log.Infow("player joined", "name", msg.Name)
				r.broadcast()

			case Leave:
				// Close the outbox so the connection's writer
				// goroutine terminates with the session.
				if ch, ok := r.clients[msg.ClientID]; ok {
					close(ch)
					delete(r.clients, msg.ClientID)
				}
				events, removed := r.state.RemoveParticipant(msg.ClientID)
				if !removed {
					break
				}
				r.handleEvents(events)
				r.broadcast()

			case FromClient:
				events, err := engine.Apply(r.state, msg.Cmd)
				if err != nil {
					r.sendTo(msg.ClientID, types.ServerMessage{Type: "error", Message: err.Error()})
					break
				}
				r.handleEvents(events)
				r.broadcast()

			case GetState:
				msg.Reply <- types.ServerMessage{
					Type:     "room_state",
					Room:     types.NewRoomView(r.state),
					YourRole: msg.Role,
					YourName: msg.Name,
				}

			case lookupResult:
				if r.state.ApplyLookup(msg.battleID, msg.slot, msg.submittedAt, msg.media) {
					r.broadcast()
				}

			case Close:
				r.broadcastMsg(types.ServerMessage{Type: "room_closed", Message: msg.Message})
				r.shutdown()
				return

			case Shutdown:
				r.shutdown()
				return

			case getView:
				msg.reply <- view{numClients: len(r.clients), state: *r.state}
			}
		}
	}
}

func (r *Room) handleEvents(events []engine.Event) {
	for _, e := range events {
		switch e.Type {
		case engine.EvtBattleStarted:
			r.metrics.BattlesStarted.Inc()
			r.log.Infow("battle started", "battle", e.BattleID)
		case engine.EvtSubmissionRecorded:
			r.spawnLookup(e)
		case engine.EvtVoteRecorded:
			r.metrics.VotesCast.Inc()
		case engine.EvtBattleFinished:
			r.metrics.BattlesFinished.Inc()
			r.log.Infow("battle finished", "battle", e.BattleID, "winner", e.WinnerID)
		case engine.EvtGameFinished:
			r.log.Infow("game finished", "winner", e.WinnerID)
		}
	}
}

// spawnLookup runs the collaborator call off the loop so lookup latency
// never stalls this room or any other; the result comes back through
// the inbox tagged with the exact submission it was issued for.
func (r *Room) spawnLookup(e engine.Event) {
	if r.lookup == nil {
		return
	}
	go func() {
		media := r.lookup(r.ctx, e.Title, e.Artist)
		if media == nil {
			return
		}
		select {
		case r.inbox <- lookupResult{battleID: e.BattleID, slot: e.Slot, submittedAt: e.SubmittedAt, media: media}:
		case <-r.ctx.Done():
		}
	}()
}

func (r *Room) broadcast() {
	r.broadcastMsg(types.ServerMessage{Type: "room_updated", Room: types.NewRoomView(r.state)})
}

func (r *Room) broadcastMsg(msg types.ServerMessage) {
	for id, ch := range r.clients {
		select {
		case ch <- msg:
		default:
			// Client is slow/full - drop them.
			close(ch)
			delete(r.clients, id)
		}
	}
}

func (r *Room) sendTo(clientID string, msg types.ServerMessage) {
	ch, ok := r.clients[clientID]
	if !ok {
		return
	}
	select {
	case ch <- msg:
	default:
		close(ch)
		delete(r.clients, clientID)
	}
}

func (r *Room) shutdown() {
	for id, ch := range r.clients {
		close(ch)
		delete(r.clients, id)
	}
	r.cancel()
}
