package model

import "time"

// Kind discriminates the channel events that end up in a transcript.
type Kind int

const (
	Chat Kind = iota
	Action
	Notice
	Join
	Part
	Kick
	NickChange
	ModeChange
	TopicChange
	Quit
)

var kindNames = [...]string{
	Chat:        "chat",
	Action:      "action",
	Notice:      "notice",
	Join:        "join",
	Part:        "part",
	Kick:        "kick",
	NickChange:  "nickchange",
	ModeChange:  "modechange",
	TopicChange: "topicchange",
	Quit:        "quit",
}

// String returns the lower-case kind name.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Event is a classified protocol event. Only the fields relevant to Kind are set.
type Event struct {
	Kind    Kind
	Time    time.Time // UTC
	Nick    string    // sender nick
	Address string    // sender prefix (nick!user@host)

	// Targets are the channel or nick targets named by the event in wire order.
	// Quit and NickChange carry none; the engine resolves their channels.
	Targets []string

	Text      string // chat/action/notice payload
	Reason    string // part, kick and quit reason
	HasReason bool
	Victim    string // kicked nick
	NewNick   string
	Modes     string
	ModeArgs  []string
	Topic     string
	Outgoing  bool // sent by this process rather than received
}
