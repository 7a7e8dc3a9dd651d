package events

import (
	"encoding/json"
	"reflect"
)

// Channel is a redis pub/sub channel name.
type Channel string

// ProfileChannel carries profile lifecycle events between gateway replicas.
const ProfileChannel Channel = "sentinelgate_events"

type Event interface {
	Type() string
}

var ProfileSwitchedEventType = "ProfileSwitchedEvent"

var Registry = map[string]reflect.Type{
	ProfileSwitchedEventType: reflect.TypeOf(ProfileSwitchedEvent{}),
}

// ProfileSwitchedEvent announces that a replica activated a different
// guardrail profile. Receivers load the named profile from their own
// profiles directory rather than trusting serialized rule content.
type ProfileSwitchedEvent struct {
	ProfileName string `json:"profile_name"`
}

func (e ProfileSwitchedEvent) Type() string {
	return ProfileSwitchedEventType
}

// RedisMessage is the wire envelope: the concrete event travels as raw JSON
// next to its registry type name.
type RedisMessage struct {
	Type  string          `json:"type"`
	Event json.RawMessage `json:"event"`
}
