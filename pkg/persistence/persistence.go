// Package persistence provides the data storage abstraction for prompts,
// sessions, status records and pins.
package persistence

import (
	"context"

	"github.com/pinfeed/curator/pkg/models"
)

type Persistence interface {
	Prompts() PromptRepository
	Sessions() SessionRepository
	StatusRecords() StatusRepository
	Pins() PinRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

type PromptRepository interface {
	Create(ctx context.Context, prompt *models.Prompt) error
	GetByID(ctx context.Context, id string) (*models.Prompt, error)
	List(ctx context.Context) ([]*models.Prompt, error)
	UpdateStatus(ctx context.Context, id string, status models.PromptStatus) error
}

type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	GetByID(ctx context.Context, id string) (*models.Session, error)
	// ListByPrompt returns the prompt's sessions ordered by creation time.
	ListByPrompt(ctx context.Context, promptID string) ([]*models.Session, error)
	AppendLog(ctx context.Context, id, line string) error
	SetStatus(ctx context.Context, id string, status models.SessionStatus) error
	SetStage(ctx context.Context, id string, stage models.Stage) error
}

// StatusRepository stores progress records. Insert enforces uniqueness per
// prompt where the store can (ErrStatusAlreadyExists); stores that cannot
// may accumulate duplicates, which ListByPrompt exposes for reconciliation.
type StatusRepository interface {
	Insert(ctx context.Context, record *models.StatusRecord) error
	GetByPrompt(ctx context.Context, promptID string) (*models.StatusRecord, error)
	ListByPrompt(ctx context.Context, promptID string) ([]*models.StatusRecord, error)
	Save(ctx context.Context, record *models.StatusRecord) error
	Delete(ctx context.Context, id string) error
	PromptIDs(ctx context.Context) ([]string, error)
}

type PinRepository interface {
	CreateBatch(ctx context.Context, pins []*models.Pin) error
	GetByID(ctx context.Context, id string) (*models.Pin, error)
	ListByPrompt(ctx context.Context, promptID string) ([]*models.Pin, error)
	Save(ctx context.Context, pin *models.Pin) error
	CountByPrompt(ctx context.Context, promptID string) (int, error)
}
