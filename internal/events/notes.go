// Package events defines the note and commit change payloads published by the notes app.
package events

import "time"

// Event types carried in the event_type header.
const (
	TypeNoteCreated   = "note.created"
	TypeNoteUpdated   = "note.updated"
	TypeNoteDeleted   = "note.deleted"
	TypeCommitCreated = "commit.created"
	TypeCommitDeleted = "commit.deleted"
)

// Topics the notes app publishes to by default.
const (
	TopicNotes   = "note_events"
	TopicCommits = "commit_events"
)

// Kind names the entity a topic carries. Each topic holds one kind only.
type Kind string

const (
	KindNote   Kind = "note"
	KindCommit Kind = "commit"
)

// DefaultRoutes maps the default topics to their kinds.
func DefaultRoutes() map[string]Kind {
	return map[string]Kind{TopicNotes: KindNote, TopicCommits: KindCommit}
}

// KindOf reports the entity an event type belongs to.
func KindOf(eventType string) (Kind, bool) {
	switch eventType {
	case TypeNoteCreated, TypeNoteUpdated, TypeNoteDeleted:
		return KindNote, true
	case TypeCommitCreated, TypeCommitDeleted:
		return KindCommit, true
	}
	return "", false
}

// NoteChanged is emitted whenever a note is created or edited.
type NoteChanged struct {
	NoteID    string    `json:"note_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NoteDeleted is emitted when a note and its commits are removed.
type NoteDeleted struct {
	NoteID string `json:"note_id"`
	UserID string `json:"user_id"`
}

// CommitCreated is emitted when a commit is pushed onto a note.
type CommitCreated struct {
	CommitID  string    `json:"commit_id"`
	NoteID    string    `json:"note_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// CommitDeleted is emitted when a single commit is removed.
type CommitDeleted struct {
	CommitID string `json:"commit_id"`
	UserID   string `json:"user_id"`
}

// Owned is implemented by every payload. Owner is the authoring user and IDs
// lists the other identifiers the payload references.
type Owned interface {
	Owner() string
	IDs() []string
}

func (e NoteChanged) Owner() string { return e.UserID }
func (e NoteChanged) IDs() []string { return []string{e.NoteID} }

func (e NoteDeleted) Owner() string { return e.UserID }
func (e NoteDeleted) IDs() []string { return []string{e.NoteID} }

func (e CommitCreated) Owner() string { return e.UserID }
func (e CommitCreated) IDs() []string { return []string{e.CommitID, e.NoteID} }

func (e CommitDeleted) Owner() string { return e.UserID }
func (e CommitDeleted) IDs() []string { return []string{e.CommitID} }
