package irc

import (
	"sort"
	"strings"
)

const defaultChanTypes = "#&"

// namesPrefixes are the membership sigils a server may put in front of a
// nick in a NAMES reply.
const namesPrefixes = "~&@%+!"

// State tracks the channels a session is in and who is visible in each.
// It is a plain value: Copy produces a fully independent snapshot, and Apply
// is the single replay function used for both live and snapshot rosters.
type State struct {
	Nick      string
	ChanTypes string
	Channels  map[string]*Channel // keyed by folded channel name
}

// Channel is the roster of one channel.
type Channel struct {
	Name  string            // name as first seen
	Users map[string]string // folded nick -> nick as last seen
}

// NewState returns an empty state for a session registering as nick.
func NewState(nick string) *State {
	return &State{
		Nick:      nick,
		ChanTypes: defaultChanTypes,
		Channels:  make(map[string]*Channel),
	}
}

// Copy returns a deep copy of s.
func (s *State) Copy() *State {
	cp := &State{
		Nick:      s.Nick,
		ChanTypes: s.ChanTypes,
		Channels:  make(map[string]*Channel, len(s.Channels)),
	}
	for key, ch := range s.Channels {
		users := make(map[string]string, len(ch.Users))
		for k, v := range ch.Users {
			users[k] = v
		}
		cp.Channels[key] = &Channel{Name: ch.Name, Users: users}
	}
	return cp
}

// IsChannel reports whether name is a channel rather than a nick.
func (s *State) IsChannel(name string) bool {
	types := defaultChanTypes
	if s != nil && s.ChanTypes != "" {
		types = s.ChanTypes
	}
	return name != "" && strings.IndexByte(types, name[0]) >= 0
}

// Channel returns the roster for name, or nil.
func (s *State) Channel(name string) *Channel {
	return s.Channels[Fold(name)]
}

// ChannelsWith returns the folded names of every channel listing nick,
// sorted for stable output.
func (s *State) ChannelsWith(nick string) []string {
	key := Fold(nick)
	var out []string
	for name, ch := range s.Channels {
		if _, ok := ch.Users[key]; ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Has reports whether nick is in the channel.
func (c *Channel) Has(nick string) bool {
	_, ok := c.Users[Fold(nick)]
	return ok
}

// Apply updates the state with the effect of m.
func (s *State) Apply(m *Message) {
	switch m.Command {
	case "001":
		if nick := m.Param(0); nick != "" {
			s.Nick = nick
		}
	case "005":
		for _, tok := range m.Params {
			if v, ok := strings.CutPrefix(tok, "CHANTYPES="); ok && v != "" {
				s.ChanTypes = v
			}
		}
	case "JOIN":
		for _, name := range strings.Split(m.Param(0), ",") {
			if name == "" {
				continue
			}
			s.ensure(name).add(m.Nick())
		}
	case "PART":
		for _, name := range strings.Split(m.Param(0), ",") {
			s.leave(name, m.Nick())
		}
	case "KICK":
		s.leave(m.Param(0), m.Param(1))
	case "QUIT":
		key := Fold(m.Nick())
		for _, ch := range s.Channels {
			delete(ch.Users, key)
		}
	case "NICK":
		s.rename(m.Nick(), m.Param(0))
	case "353":
		// RPL_NAMREPLY: <me> <symbol> <channel> :<names>
		ch := s.ensure(m.Param(2))
		for _, name := range strings.Fields(m.Param(3)) {
			ch.add(strings.TrimLeft(name, namesPrefixes))
		}
	}
}

func (s *State) ensure(name string) *Channel {
	key := Fold(name)
	ch, ok := s.Channels[key]
	if !ok {
		ch = &Channel{Name: name, Users: make(map[string]string)}
		s.Channels[key] = ch
	}
	return ch
}

func (s *State) leave(channel, nick string) {
	if channel == "" || nick == "" {
		return
	}
	key := Fold(channel)
	if EqualFold(nick, s.Nick) {
		delete(s.Channels, key)
		return
	}
	if ch, ok := s.Channels[key]; ok {
		delete(ch.Users, Fold(nick))
	}
}

func (s *State) rename(oldNick, newNick string) {
	if newNick == "" {
		return
	}
	if EqualFold(oldNick, s.Nick) {
		s.Nick = newNick
	}
	oldKey, newKey := Fold(oldNick), Fold(newNick)
	for _, ch := range s.Channels {
		if _, ok := ch.Users[oldKey]; ok {
			delete(ch.Users, oldKey)
			ch.Users[newKey] = newNick
		}
	}
}

func (c *Channel) add(nick string) {
	if nick == "" {
		return
	}
	c.Users[Fold(nick)] = nick
}
