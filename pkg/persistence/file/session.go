package file

import (
	"context"
	"os"
	"sort"
	"time"

	"github.com/pinfeed/curator/pkg/models"
	"github.com/pinfeed/curator/pkg/persistence"
)

const sessionsDir = "sessions"

// SessionRepository handles phase session documents.
type SessionRepository struct {
	store *Persistence
}

func (r *SessionRepository) Create(_ context.Context, session *models.Session) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	return r.store.write(sessionsDir, session.ID, session)
}

func (r *SessionRepository) GetByID(_ context.Context, id string) (*models.Session, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	return r.getLocked(id)
}

func (r *SessionRepository) getLocked(id string) (*models.Session, error) {
	var session models.Session

	err := r.store.read(sessionsDir, id, &session)
	if os.IsNotExist(err) {
		return nil, persistence.NewStoreError("GetByID", "session", id, persistence.ErrSessionNotFound)
	}

	if err != nil {
		return nil, err
	}

	return &session, nil
}

func (r *SessionRepository) ListByPrompt(_ context.Context, promptID string) ([]*models.Session, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	ids, err := r.store.ids(sessionsDir)
	if err != nil {
		return nil, err
	}

	sessions := make([]*models.Session, 0)

	for _, id := range ids {
		session, err := r.getLocked(id)
		if err != nil {
			return nil, err
		}

		if session.PromptID == promptID {
			sessions = append(sessions, session)
		}
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})

	return sessions, nil
}

func (r *SessionRepository) AppendLog(_ context.Context, id, line string) error {
	return r.mutate(id, func(session *models.Session) {
		session.Log = append(session.Log, line)
	})
}

func (r *SessionRepository) SetStatus(_ context.Context, id string, status models.SessionStatus) error {
	return r.mutate(id, func(session *models.Session) {
		session.Status = status
	})
}

func (r *SessionRepository) SetStage(_ context.Context, id string, stage models.Stage) error {
	return r.mutate(id, func(session *models.Session) {
		session.Stage = stage
	})
}

func (r *SessionRepository) mutate(id string, apply func(*models.Session)) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	session, err := r.getLocked(id)
	if err != nil {
		return err
	}

	apply(session)
	session.UpdatedAt = time.Now().UTC()

	return r.store.write(sessionsDir, id, session)
}
