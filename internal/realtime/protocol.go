package realtime

import (
	"encoding/json"
	"time"
)

// Client-to-server events with fixed names.
const (
	EventSubscribeRoom   = "subscribe:room"
	EventUnsubscribeRoom = "unsubscribe:room"
)

// Envelope is the wire frame for every realtime message in both
// directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Handshake identifies the actor a channel is opened for.
type Handshake struct {
	Role       string
	IdentityID string
}

// RoomRequest is the payload of subscribe:room and unsubscribe:room.
type RoomRequest struct {
	Room string `json:"room"`
}

// Server-to-client events.
const (
	// EventRoomJoined acknowledges a subscribe:room request.
	EventRoomJoined = "room:joined"
	// EventNotice carries a Notice.
	EventNotice = "notice"
)

// PlatformRoom carries platform-wide events for super administrators.
const PlatformRoom = "platform"

// SocietyRoom names the room for one society's events.
func SocietyRoom(societyID string) string {
	return "society:" + societyID
}

// Notice is a human-readable event pushed to a room.
type Notice struct {
	Room  string    `json:"room"`
	Title string    `json:"title"`
	Body  string    `json:"body,omitempty"`
	At    time.Time `json:"at"`
}
