package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"gimp-server/domain"
	"gimp-server/domain/event"
	"gimp-server/errors"
	"gimp-server/sink"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// socketFrame is a client-to-server message on the persistent channel.
type socketFrame struct {
	Type  string          `json:"type"`
	Group string          `json:"group,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// socketReply is everything the server pushes or answers.
type socketReply struct {
	Type    string                       `json:"type"`
	Group   string                       `json:"group,omitempty"`
	Member  *domain.MemberView           `json:"member,omitempty"`
	Members map[string]domain.MemberView `json:"members,omitempty"`
	Name    string                       `json:"name,omitempty"`
	Err     string                       `json:"err,omitempty"`
}

// handleSocket serves the long-lived bidirectional channel. A
// connection declares its group exactly once with a join frame, then
// may broadcast updates and request pings, and receives its
// groupmates' updates and evictions as they happen.
// All writes happen on this goroutine; the read pump only reads.
func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sessionID := uuid.NewString()
	connSink := sink.NewSocketSink(s.connectionBufferSize)

	frames := make(chan socketFrame)
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(frames)
		for {
			var frame socketFrame
			if err := conn.ReadJSON(&frame); err != nil {
				return
			}
			select {
			case frames <- frame:
			case <-done:
				return
			}
		}
	}()

	joined := ""
	defer func() {
		if joined != "" {
			s.groups.Leave(sessionID, joined)
		}
	}()

	for {
		select {
		case evt := <-connSink.Events:
			if err := conn.WriteJSON(toSocketReply(evt)); err != nil {
				s.log.Error("Failed to push event to socket",
					"session_id", sessionID, "group", joined, "error", err)
				return
			}
		case frame, ok := <-frames:
			if !ok {
				s.log.Warn(fmt.Sprintf("Client %s disconnected from %q", sessionID, joined))
				return
			}
			reply := s.handleFrame(sessionID, &joined, connSink, frame)
			if reply == nil {
				continue
			}
			if err := conn.WriteJSON(reply); err != nil {
				return
			}
		}
	}
}

// handleFrame applies one channel request. A nil reply means the
// frame was accepted silently (the submitter never gets its own
// update echoed back).
func (s *Server) handleFrame(sessionID string, joined *string, connSink *sink.SocketSink, frame socketFrame) *socketReply {
	switch frame.Type {
	case "join":
		if *joined != "" {
			return errorReply(errors.ErrAlreadyJoined)
		}
		if frame.Group == "" {
			return errorReply(errors.ErrMissingGroupName)
		}
		*joined = frame.Group
		s.groups.Join(sessionID, frame.Group, connSink)
		return &socketReply{Type: "joined", Group: frame.Group}

	case "broadcast":
		if *joined == "" {
			return errorReply(errors.ErrNoGroupJoined)
		}
		payload, err := decodePayload(frame.Data)
		if err != nil {
			return errorReply(err)
		}
		if _, err := s.groups.SubmitUpdate(*joined, sessionID, payload); err != nil {
			return errorReply(err)
		}
		return nil

	case "ping":
		if *joined == "" {
			return errorReply(errors.ErrNoGroupJoined)
		}
		views, err := s.groups.GetGroup(*joined)
		if err != nil {
			return errorReply(err)
		}
		return &socketReply{Type: "pong", Group: *joined, Members: views}
	}
	return errorReply(fmt.Errorf("unknown frame type %q", frame.Type))
}

func toSocketReply(evt event.DomainEvent) socketReply {
	switch e := evt.(type) {
	case event.MemberUpdated:
		return socketReply{Type: "update", Group: e.Group, Member: &e.Member}
	case event.MemberEvicted:
		return socketReply{Type: "eviction", Group: e.Group, Name: e.Member}
	}
	return socketReply{Type: "event", Group: evt.GroupName()}
}

func errorReply(err error) *socketReply {
	return &socketReply{Type: "error", Err: err.Error()}
}
