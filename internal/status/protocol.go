package status

import (
	"github.com/danneforslund/zappagateway/internal/session"
)

type MessageType string

const (
	MsgSnapshot MessageType = "snapshot"
	MsgDelta    MessageType = "delta"
)

type Message struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload"`
}

// SnapshotPayload carries the full session pool plus the gateway's own
// process stats.
type SnapshotPayload struct {
	Sessions []session.View `json:"sessions"`
	Gateway  GatewayStats   `json:"gateway"`
}

// DeltaPayload carries only the sessions that changed since the last flush.
// There is no removal list: sessions are never destroyed.
type DeltaPayload struct {
	Updates []session.View `json:"updates"`
}
