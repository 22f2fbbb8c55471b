package hub

import (
	"context"
	"crypto/rand"
	"math/big"
	mrand "math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/songwars/backend/internal/engine"
	"github.com/songwars/backend/internal/monitor"
	"github.com/songwars/backend/internal/room"
)

type HubMsg interface{ isHubMsg() }

type CreateRoom struct {
	HostID   string
	HostName string
	Reply    chan Created
}

// Created carries the result of CreateRoom; Room is nil on failure.
type Created struct {
	Code string
	Room *room.Room
}

type GetRoom struct {
	Code  string
	Reply chan *room.Room
}

type RemoveRoom struct {
	Code string
}

type ShutdownHub struct{}

func (CreateRoom) isHubMsg()  {}
func (GetRoom) isHubMsg()     {}
func (RemoveRoom) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

// Hub is the process-wide room registry. Code generation and the
// collision check run inside the loop, under the same serialization as
// room creation and removal.
type Hub struct {
	inbox   chan HubMsg
	rooms   map[string]*room.Room
	lookup  room.LookupFunc
	log     *zap.SugaredLogger
	metrics *monitor.Metrics
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewHub(parent context.Context, lookup room.LookupFunc, log *zap.SugaredLogger, m *monitor.Metrics) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		rooms:   make(map[string]*room.Room),
		lookup:  lookup,
		log:     log,
		metrics: m,
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateRoom:
				code, err := h.newCode()
				if err != nil {
					h.log.Errorw("room code generation failed", "err", err)
					msg.Reply <- Created{}
					break
				}
				host := engine.Participant{ID: msg.HostID, Name: msg.HostName, JoinedAt: time.Now()}
				rng := mrand.New(mrand.NewSource(time.Now().UnixNano()))
				rm := room.New(h.ctx, engine.NewRoom(code, host, rng), h.lookup, h.log, h.metrics)
				h.rooms[code] = rm
				h.metrics.ActiveRooms.Inc()
				h.log.Infow("room created", "room", code, "host", msg.HostName)
				msg.Reply <- Created{Code: code, Room: rm}

			case GetRoom:
				msg.Reply <- h.rooms[msg.Code] // May be nil

			case RemoveRoom:
				if _, ok := h.rooms[msg.Code]; ok {
					delete(h.rooms, msg.Code)
					h.metrics.ActiveRooms.Dec()
					h.log.Infow("room removed", "room", msg.Code)
				}

			case ShutdownHub:
				for _, rm := range h.rooms {
					rm.Inbox() <- room.Shutdown{}
				}
				clear(h.rooms)
				h.cancel()
			}
		}
	}
}

const codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const codeLength = 6

// newCode samples codes until one misses the live-room set.
func (h *Hub) newCode() (string, error) {
	for {
		code := make([]byte, codeLength)
		for i := range code {
			num, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeCharset))))
			if err != nil {
				return "", err
			}
			code[i] = codeCharset[num.Int64()]
		}
		if _, taken := h.rooms[string(code)]; !taken {
			return string(code), nil
		}
	}
}
