package classroom

import (
	"time"

	"github.com/noah-isme/edumeet/internal/models"
)

// TeacherName is the author of the canned chat reply.
const TeacherName = "Teacher"

// CannedReply is sent after every chat message regardless of its content.
const CannedReply = "Thanks for your message! I'll address that shortly."

// SimulatedParticipants join a few seconds after the local user.
var SimulatedParticipants = []models.Participant{
	{ID: "sim-sarah", Name: "Sarah Johnson", Initials: "SJ"},
	{ID: "sim-mike", Name: "Mike Chen", Initials: "MC", Muted: true},
	{ID: "sim-emma", Name: "Emma Davis", Initials: "ED"},
}

// Simulator schedules the fake remote activity of a class. There is no signaling server behind it.
type Simulator interface {
	After(d time.Duration, fn func()) (stop func() bool)
}

// TimerSimulator runs callbacks on real timers.
type TimerSimulator struct{}

// After runs fn once d has elapsed.
func (TimerSimulator) After(d time.Duration, fn func()) func() bool {
	return time.AfterFunc(d, fn).Stop
}
