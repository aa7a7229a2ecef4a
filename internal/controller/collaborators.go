package controller

import (
	"github.com/sirupsen/logrus"

	"github.com/cardinal-lookup/internal/batch"
)

// Renderer displays the report and the saved batch list. Calls may arrive
// from the store subscription goroutine.
type Renderer interface {
	RenderReport(records []batch.Record, strikes []bool)
	RenderBatches(batches []batch.Batch)
}

// Notification levels.
const (
	LevelSuccess = "success"
	LevelError   = "error"
)

// Notification is a short user-facing message.
type Notification struct {
	Level   string `json:"level"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Notifier shows notifications (toasts in a UI, lines in a terminal).
type Notifier interface {
	Notify(n Notification)
}

// Identity is the signed-in user. A zero Identity is a guest.
type Identity struct {
	UserID string `json:"user_id"`
	Name   string `json:"name,omitempty"`
}

// IsGuest reports whether no user is signed in.
func (i Identity) IsGuest() bool {
	return i.UserID == ""
}

type nopRenderer struct{}

func (nopRenderer) RenderReport([]batch.Record, []bool) {}
func (nopRenderer) RenderBatches([]batch.Batch)         {}

// LogNotifier writes notifications to a logger.
type LogNotifier struct {
	Log logrus.FieldLogger
}

func (n LogNotifier) Notify(note Notification) {
	entry := n.Log.WithField("notification", note.Level)
	if note.Err != nil {
		entry.WithError(note.Err).Warn(note.Message)
		return
	}
	entry.Info(note.Message)
}
