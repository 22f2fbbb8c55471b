package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/songwars/backend/internal/directory"
	"github.com/songwars/backend/internal/engine"
	"github.com/songwars/backend/internal/hub"
	"github.com/songwars/backend/internal/monitor"
	"github.com/songwars/backend/internal/room"
	"github.com/songwars/backend/internal/types"
)

// replyWait bounds waits on actor reply channels, so a handler never
// hangs on a room that shut down between lookup and send.
const replyWait = 2 * time.Second

type session struct {
	id   string
	conn *websocket.Conn
	hub  *hub.Hub
	dir  *directory.Directory
	log  *zap.SugaredLogger
	out  chan types.ServerMessage
	ctx  context.Context
}

func Handler(h *hub.Hub, dir *directory.Directory, log *zap.SugaredLogger, m *monitor.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		m.ConnectedPlayers.Inc()
		defer m.ConnectedPlayers.Dec()

		s := &session{
			id:   uuid.NewString(),
			conn: conn,
			hub:  h,
			dir:  dir,
			log:  log,
			out:  make(chan types.ServerMessage, 8),
			ctx:  r.Context(),
		}
		defer s.disconnect()

		// Writer goroutine: room snapshots flow through the outbox.
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for {
				select {
				case msg, ok := <-s.out:
					if !ok {
						// Outbox closed: the room shut down or
						// dropped this connection as a slow
						// reader. End the session.
						conn.Close(websocket.StatusNormalClosure, "room closed")
						return
					}
					payload, _ := json.Marshal(msg)
					ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
					_ = conn.Write(ctx, websocket.MessageText, payload)
					cancel()
				case <-writeCtx.Done():
					// Session over; covers outboxes that were
					// never handed to a room and so are never
					// closed by one.
					return
				}
			}
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				s.write(types.ServerMessage{Type: "error", Message: "bad json"})
				continue
			}
			s.dispatch(cm)
		}
	}
}

func (s *session) dispatch(cm types.ClientMessage) {
	switch cm.Type {
	case "create_room":
		s.createRoom(cm)
	case "join_room":
		s.joinRoom(cm)
	case "get_room_state":
		s.roomState()
	default:
		cmd, ok := toCommand(cm)
		if !ok {
			s.write(types.ServerMessage{Type: "error", Message: "unknown type"})
			return
		}
		cmd.ActorID = s.id
		s.forward(cmd)
	}
}

func (s *session) createRoom(cm types.ClientMessage) {
	reply := make(chan hub.Created, 1)
	s.hub.Inbox() <- hub.CreateRoom{HostID: s.id, HostName: cm.HostName, Reply: reply}
	var created hub.Created
	select {
	case created = <-reply:
	case <-time.After(replyWait):
	}
	if created.Room == nil {
		s.write(types.ServerMessage{Type: "error", Message: "failed to create room"})
		return
	}

	created.Room.Inbox() <- room.Attach{ClientID: s.id, Outbox: s.out}
	s.dir.Bind(s.id, cm.HostName, created.Code, directory.RoleHost)
	s.write(types.ServerMessage{
		Type:     "room_created",
		Success:  true,
		RoomCode: created.Code,
		Role:     string(directory.RoleHost),
	})
}

func (s *session) joinRoom(cm types.ClientMessage) {
	rm := s.getRoom(cm.RoomCode)
	if rm == nil {
		s.write(types.ServerMessage{Type: "join_failed", Error: "Room not found"})
		return
	}

	reply := make(chan error, 1)
	rm.Inbox() <- room.Join{ClientID: s.id, Name: cm.PlayerName, Outbox: s.out, Reply: reply}
	select {
	case err := <-reply:
		if err != nil {
			s.write(types.ServerMessage{Type: "join_failed", Error: err.Error()})
			return
		}
	case <-time.After(replyWait):
		s.write(types.ServerMessage{Type: "join_failed", Error: "Room not found"})
		return
	}

	s.dir.Bind(s.id, cm.PlayerName, cm.RoomCode, directory.RolePlayer)
	s.write(types.ServerMessage{
		Type:     "room_joined",
		Success:  true,
		RoomCode: cm.RoomCode,
		Role:     string(directory.RolePlayer),
	})
}

func (s *session) roomState() {
	b, ok := s.dir.Resolve(s.id)
	if !ok {
		s.write(types.ServerMessage{Type: "room_state", Error: "Not in any room"})
		return
	}
	rm := s.getRoom(b.RoomCode)
	if rm == nil {
		s.write(types.ServerMessage{Type: "room_state", Error: "Not in any room"})
		return
	}

	reply := make(chan types.ServerMessage, 1)
	rm.Inbox() <- room.GetState{ClientID: s.id, Role: string(b.Role), Name: b.Name, Reply: reply}
	select {
	case msg := <-reply:
		s.write(msg)
	case <-time.After(replyWait):
		s.write(types.ServerMessage{Type: "room_state", Error: "Not in any room"})
	}
}

func (s *session) forward(cmd engine.Command) {
	b, ok := s.dir.Resolve(s.id)
	if !ok {
		s.write(types.ServerMessage{Type: "error", Message: "not in a room"})
		return
	}
	rm := s.getRoom(b.RoomCode)
	if rm == nil {
		s.write(types.ServerMessage{Type: "error", Message: "not in a room"})
		return
	}
	rm.Inbox() <- room.FromClient{ClientID: s.id, Cmd: cmd}
}

// disconnect mirrors the room-side teardown: a departing host closes
// the room for everyone, a departing player is just removed.
func (s *session) disconnect() {
	b, ok := s.dir.Resolve(s.id)
	if !ok {
		return
	}
	rm := s.getRoom(b.RoomCode)
	if rm == nil {
		s.dir.Unbind(s.id)
		return
	}

	if b.Role == directory.RoleHost {
		rm.Inbox() <- room.Close{Message: "Host left the room"}
		s.hub.Inbox() <- hub.RemoveRoom{Code: b.RoomCode}
		s.dir.DropRoom(b.RoomCode)
		s.log.Infow("room closed, host left", "room", b.RoomCode)
	} else {
		rm.Inbox() <- room.Leave{ClientID: s.id}
		s.dir.Unbind(s.id)
	}
}

func (s *session) getRoom(code string) *room.Room {
	reply := make(chan *room.Room, 1)
	s.hub.Inbox() <- hub.GetRoom{Code: code, Reply: reply}
	select {
	case rm := <-reply:
		return rm
	case <-time.After(replyWait):
		return nil
	}
}

// write sends a session-scoped message (acks, errors) straight to the
// connection; broadcasts go through the outbox instead.
func (s *session) write(msg types.ServerMessage) {
	payload, _ := json.Marshal(msg)
	ctx, cancel := context.WithTimeout(s.ctx, 3*time.Second)
	defer cancel()
	_ = s.conn.Write(ctx, websocket.MessageText, payload)
}

func toCommand(m types.ClientMessage) (engine.Command, bool) {
	switch m.Type {
	case "update_settings":
		cmd := engine.Command{Type: engine.CmdUpdateSettings}
		if m.Settings != nil {
			cmd.Settings = engine.SettingsPatch{
				Genre:       m.Settings.Genre,
				PointsToWin: m.Settings.PointsToWin,
				MaxPlayers:  m.Settings.MaxPlayers,
			}
		}
		return cmd, true
	case "start_game":
		return engine.Command{Type: engine.CmdStartGame}, true
	case "submit_song":
		return engine.Command{Type: engine.CmdSubmitSong, Title: m.Title, Artist: m.Artist}, true
	case "submit_vote":
		return engine.Command{Type: engine.CmdSubmitVote, VotedFor: m.VotedPlayerID}, true
	case "next_battle":
		return engine.Command{Type: engine.CmdNextBattle}, true
	default:
		return engine.Command{}, false
	}
}
