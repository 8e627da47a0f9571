package classroom

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrPermissionDenied is returned when the browser refused capture.
var ErrPermissionDenied = errors.New("classroom: media permission denied")

// TrackKind is the media type of a track.
type TrackKind string

const (
	KindVideo TrackKind = "video"
	KindAudio TrackKind = "audio"
)

// Track mirrors one browser media track. Only the enabled and stopped flags matter server-side.
type Track struct {
	ID      string    `json:"id"`
	Kind    TrackKind `json:"kind"`
	Label   string    `json:"label"`
	Enabled bool      `json:"enabled"`
	Stopped bool      `json:"stopped"`
}

// Stop ends the track for good.
func (t *Track) Stop() {
	if t == nil {
		return
	}
	t.Stopped = true
	t.Enabled = false
}

// Stream is a set of tracks captured together.
type Stream struct {
	Tracks []*Track
}

func (s *Stream) track(kind TrackKind) *Track {
	if s == nil {
		return nil
	}
	for _, t := range s.Tracks {
		if t.Kind == kind {
			return t
		}
	}
	return nil
}

// VideoTrack returns the first video track, or nil.
func (s *Stream) VideoTrack() *Track { return s.track(KindVideo) }

// AudioTrack returns the first audio track, or nil.
func (s *Stream) AudioTrack() *Track { return s.track(KindAudio) }

// Stop stops every track.
func (s *Stream) Stop() {
	if s == nil {
		return
	}
	for _, t := range s.Tracks {
		t.Stop()
	}
}

// MediaGrant is what the browser reported after its permission prompt.
type MediaGrant struct {
	Camera     bool `json:"camera"`
	Microphone bool `json:"microphone"`
	Display    bool `json:"display"`
}

// MediaDevices captures local media.
type MediaDevices interface {
	GetUserMedia(ctx context.Context, grant MediaGrant) (*Stream, error)
	GetDisplayMedia(ctx context.Context, grant MediaGrant) (*Stream, error)
}

// BrowserDevices builds track mirrors from the grants the browser reports.
type BrowserDevices struct{}

// GetUserMedia needs at least one of camera or microphone.
func (BrowserDevices) GetUserMedia(ctx context.Context, grant MediaGrant) (*Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !grant.Camera && !grant.Microphone {
		return nil, ErrPermissionDenied
	}
	stream := &Stream{}
	if grant.Camera {
		stream.Tracks = append(stream.Tracks, &Track{ID: uuid.NewString(), Kind: KindVideo, Label: "camera", Enabled: true})
	}
	if grant.Microphone {
		stream.Tracks = append(stream.Tracks, &Track{ID: uuid.NewString(), Kind: KindAudio, Label: "microphone", Enabled: true})
	}
	return stream, nil
}

// GetDisplayMedia returns a single screen video track.
func (BrowserDevices) GetDisplayMedia(ctx context.Context, grant MediaGrant) (*Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !grant.Display {
		return nil, ErrPermissionDenied
	}
	return &Stream{Tracks: []*Track{{ID: uuid.NewString(), Kind: KindVideo, Label: "screen", Enabled: true}}}, nil
}
