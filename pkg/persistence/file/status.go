package file

import (
	"context"
	"os"

	"github.com/pinfeed/curator/pkg/models"
	"github.com/pinfeed/curator/pkg/persistence"
)

const statusDir = "status"

// StatusRepository handles progress record documents. The file store has
// no unique index, so concurrent inserts for the same prompt can leave
// duplicate records; reconciliation in the status tracker cleans them up.
type StatusRepository struct {
	store *Persistence
}

func (r *StatusRepository) Insert(_ context.Context, record *models.StatusRecord) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	return r.store.write(statusDir, record.ID, record)
}

func (r *StatusRepository) GetByPrompt(ctx context.Context, promptID string) (*models.StatusRecord, error) {
	records, err := r.ListByPrompt(ctx, promptID)
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return nil, persistence.NewStoreError("GetByPrompt", "status", promptID, persistence.ErrStatusNotFound)
	}

	return records[0], nil
}

func (r *StatusRepository) ListByPrompt(_ context.Context, promptID string) ([]*models.StatusRecord, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	ids, err := r.store.ids(statusDir)
	if err != nil {
		return nil, err
	}

	records := make([]*models.StatusRecord, 0, 1)

	for _, id := range ids {
		record, err := r.getLocked(id)
		if err != nil {
			return nil, err
		}

		if record.PromptID == promptID {
			records = append(records, record)
		}
	}

	return records, nil
}

func (r *StatusRepository) getLocked(id string) (*models.StatusRecord, error) {
	var record models.StatusRecord

	err := r.store.read(statusDir, id, &record)
	if os.IsNotExist(err) {
		return nil, persistence.NewStoreError("GetByID", "status", id, persistence.ErrStatusNotFound)
	}

	if err != nil {
		return nil, err
	}

	return &record, nil
}

func (r *StatusRepository) Save(_ context.Context, record *models.StatusRecord) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	return r.store.write(statusDir, record.ID, record)
}

func (r *StatusRepository) Delete(_ context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	return r.store.remove(statusDir, id)
}

func (r *StatusRepository) PromptIDs(_ context.Context) ([]string, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	ids, err := r.store.ids(statusDir)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	promptIDs := make([]string, 0, len(ids))

	for _, id := range ids {
		record, err := r.getLocked(id)
		if err != nil {
			return nil, err
		}

		if _, ok := seen[record.PromptID]; ok {
			continue
		}

		seen[record.PromptID] = struct{}{}
		promptIDs = append(promptIDs, record.PromptID)
	}

	return promptIDs, nil
}
