package file

import (
	"context"
	"os"
	"sort"

	"github.com/pinfeed/curator/pkg/models"
	"github.com/pinfeed/curator/pkg/persistence"
)

const pinsDir = "pins"

// PinRepository handles collected pin documents.
type PinRepository struct {
	store *Persistence
}

func (r *PinRepository) CreateBatch(_ context.Context, pins []*models.Pin) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, pin := range pins {
		err := r.store.write(pinsDir, pin.ID, pin)
		if err != nil {
			return err
		}
	}

	return nil
}

func (r *PinRepository) GetByID(_ context.Context, id string) (*models.Pin, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	return r.getLocked(id)
}

func (r *PinRepository) getLocked(id string) (*models.Pin, error) {
	var pin models.Pin

	err := r.store.read(pinsDir, id, &pin)
	if os.IsNotExist(err) {
		return nil, persistence.NewStoreError("GetByID", "pin", id, persistence.ErrPinNotFound)
	}

	if err != nil {
		return nil, err
	}

	return &pin, nil
}

func (r *PinRepository) ListByPrompt(_ context.Context, promptID string) ([]*models.Pin, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	ids, err := r.store.ids(pinsDir)
	if err != nil {
		return nil, err
	}

	pins := make([]*models.Pin, 0)

	for _, id := range ids {
		pin, err := r.getLocked(id)
		if err != nil {
			return nil, err
		}

		if pin.PromptID == promptID {
			pins = append(pins, pin)
		}
	}

	sort.Slice(pins, func(i, j int) bool {
		return pins[i].CollectedAt.Before(pins[j].CollectedAt)
	})

	return pins, nil
}

func (r *PinRepository) Save(_ context.Context, pin *models.Pin) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	return r.store.write(pinsDir, pin.ID, pin)
}

func (r *PinRepository) CountByPrompt(ctx context.Context, promptID string) (int, error) {
	pins, err := r.ListByPrompt(ctx, promptID)
	if err != nil {
		return 0, err
	}

	return len(pins), nil
}
