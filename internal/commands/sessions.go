package commands

import "sync"

type sessionKey struct {
	channelID string
	userID    string
}

// Sessions maps a player's channel to their open round, one per
// (channel, user).
type Sessions struct {
	mu       sync.Mutex
	byKey    map[sessionKey]string
	channels map[string]sessionKey
}

func NewSessions() *Sessions {
	return &Sessions{
		byKey:    make(map[sessionKey]string),
		channels: make(map[string]sessionKey),
	}
}

// Bind replaces whatever round the user had open in the channel.
func (s *Sessions) Bind(channelID, userID, roundID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := sessionKey{channelID, userID}
	if old, ok := s.byKey[k]; ok {
		delete(s.channels, old)
	}
	s.byKey[k] = roundID
	s.channels[roundID] = k
}

func (s *Sessions) Lookup(channelID, userID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byKey[sessionKey{channelID, userID}]
	return id, ok
}

// Release forgets the round and reports where it was played.
func (s *Sessions) Release(roundID string) (channelID, userID string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.channels[roundID]
	if !ok {
		return "", "", false
	}
	delete(s.channels, roundID)
	delete(s.byKey, k)
	return k.channelID, k.userID, true
}
