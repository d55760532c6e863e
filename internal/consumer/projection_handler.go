package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/2tpaud/commit-push/internal/domain"
	"github.com/2tpaud/commit-push/internal/events"
)

// Store is the projection write surface of the postgres repository.
type Store interface {
	UpsertNote(ctx context.Context, note domain.Note) error
	DeleteNote(ctx context.Context, userID, noteID string) error
	UpsertCommit(ctx context.Context, commit domain.Commit) error
	DeleteCommit(ctx context.Context, userID, commitID string) error
}

// ProjectionHandler keeps the notes and commits tables in step with the notes app.
// Events it cannot apply come back as *SkipError; storage errors are returned
// unwrapped so the offset is retried.
type ProjectionHandler struct {
	store Store
}

// NewProjectionHandler constructs a handler writing through store.
func NewProjectionHandler(store Store) *ProjectionHandler {
	return &ProjectionHandler{store: store}
}

// Handle applies one routed change event.
func (h *ProjectionHandler) Handle(ctx context.Context, msg Message) error {
	switch msg.Kind {
	case events.KindNote:
		return h.applyNote(ctx, msg)
	case events.KindCommit:
		return h.applyCommit(ctx, msg)
	}
	return Skip("unknown_type", fmt.Errorf("unrouted event type %q", msg.EventType))
}

func (h *ProjectionHandler) applyNote(ctx context.Context, msg Message) error {
	switch msg.EventType {
	case events.TypeNoteCreated, events.TypeNoteUpdated:
		var ev events.NoteChanged
		if err := decodePayload(msg, &ev); err != nil {
			return err
		}
		if ev.CreatedAt.IsZero() {
			return Skip("missing_timestamp", fmt.Errorf("note %s has no created_at", ev.NoteID))
		}
		updated := ev.UpdatedAt
		if updated.IsZero() {
			updated = ev.CreatedAt
		}
		return h.store.UpsertNote(ctx, domain.Note{
			ID:        ev.NoteID,
			UserID:    ev.UserID,
			CreatedAt: ev.CreatedAt.UTC(),
			UpdatedAt: updated.UTC(),
		})

	case events.TypeNoteDeleted:
		var ev events.NoteDeleted
		if err := decodePayload(msg, &ev); err != nil {
			return err
		}
		return h.store.DeleteNote(ctx, ev.UserID, ev.NoteID)
	}
	return Skip("unknown_type", fmt.Errorf("unhandled note event %q", msg.EventType))
}

func (h *ProjectionHandler) applyCommit(ctx context.Context, msg Message) error {
	switch msg.EventType {
	case events.TypeCommitCreated:
		var ev events.CommitCreated
		if err := decodePayload(msg, &ev); err != nil {
			return err
		}
		if ev.CreatedAt.IsZero() {
			return Skip("missing_timestamp", fmt.Errorf("commit %s has no created_at", ev.CommitID))
		}
		return h.store.UpsertCommit(ctx, domain.Commit{
			ID:        ev.CommitID,
			NoteID:    ev.NoteID,
			UserID:    ev.UserID,
			CreatedAt: ev.CreatedAt.UTC(),
		})

	case events.TypeCommitDeleted:
		var ev events.CommitDeleted
		if err := decodePayload(msg, &ev); err != nil {
			return err
		}
		return h.store.DeleteCommit(ctx, ev.UserID, ev.CommitID)
	}
	return Skip("unknown_type", fmt.Errorf("unhandled commit event %q", msg.EventType))
}

// decodePayload unmarshals msg into dst and checks its identifiers: every id
// must be a UUID and the owner must be the user named in the header.
func decodePayload(msg Message, dst events.Owned) error {
	if err := json.Unmarshal(msg.Payload, dst); err != nil {
		return Skip("invalid_payload", err)
	}
	owner, ids := dst.Owner(), dst.IDs()
	for _, id := range append([]string{owner}, ids...) {
		if _, err := uuid.Parse(id); err != nil {
			return Skip("invalid_id", fmt.Errorf("id %q: %w", id, err))
		}
	}
	if owner != msg.UserID {
		return Skip("user_mismatch", fmt.Errorf("payload user %s, header user %s", owner, msg.UserID))
	}
	return nil
}
