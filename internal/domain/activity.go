package domain

import "time"

// EventKind classifies the activity a note or commit contributes to the heatmap.
type EventKind string

const (
	EventNoteCreated   EventKind = "note_created"
	EventNoteUpdated   EventKind = "note_updated"
	EventCommitCreated EventKind = "commit_created"
)

// NoteStamp is the timestamp projection of a note row. A zero time stands for a NULL column.
type NoteStamp struct {
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CommitStamp is the timestamp projection of a commit row. Commits are immutable once pushed.
type CommitStamp struct {
	CreatedAt time.Time
}

// Note is the projected note row maintained by the change-event consumer.
type Note struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Commit is the projected commit row maintained by the change-event consumer.
type Commit struct {
	ID        string
	NoteID    string
	UserID    string
	CreatedAt time.Time
}
