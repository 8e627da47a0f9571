package models

import "time"

// Participant is a (simulated) remote attendee of the live class.
type Participant struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Initials string `json:"initials"`
	Muted    bool   `json:"muted"`
}

// ChatMessage is one line in the classroom chat pane.
type ChatMessage struct {
	ID     string    `json:"id"`
	Author string    `json:"author"`
	Text   string    `json:"text"`
	Own    bool      `json:"own"`
	SentAt time.Time `json:"sent_at"`
}

// JoinClassRequest carries the optional class id and what the browser was allowed to capture.
type JoinClassRequest struct {
	ClassID    string `json:"class_id"`
	Camera     bool   `json:"camera"`
	Microphone bool   `json:"microphone"`
}

// ScreenShareRequest reports whether the browser granted display capture.
type ScreenShareRequest struct {
	Granted bool `json:"granted"`
}

// ChatMessageRequest is a chat line typed by the user.
type ChatMessageRequest struct {
	Text string `json:"text" validate:"max=2000"`
}
