package classroom

import "sync"

// PeerConnection stands in for the outgoing side of a WebRTC connection. There is no remote end;
// it only tracks which local track each sender carries.
type PeerConnection struct {
	mu      sync.Mutex
	senders map[TrackKind]*Track
}

// NewPeerConnection returns a connection with no senders.
func NewPeerConnection() *PeerConnection {
	return &PeerConnection{senders: make(map[TrackKind]*Track)}
}

// AddTrack creates a sender for the track's kind.
func (p *PeerConnection) AddTrack(t *Track) {
	if p == nil || t == nil {
		return
	}
	p.mu.Lock()
	p.senders[t.Kind] = t
	p.mu.Unlock()
}

// ReplaceTrack swaps the track on an existing sender. It reports false when there is no such sender.
func (p *PeerConnection) ReplaceTrack(kind TrackKind, t *Track) bool {
	if p == nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.senders[kind]; !ok {
		return false
	}
	p.senders[kind] = t
	return true
}

// Sender returns the track currently sent for kind.
func (p *PeerConnection) Sender(kind TrackKind) *Track {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.senders[kind]
}

// Close drops every sender.
func (p *PeerConnection) Close() {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.senders = make(map[TrackKind]*Track)
	p.mu.Unlock()
}
