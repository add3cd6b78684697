package file

import (
	"context"
	"os"
	"sort"

	"github.com/pinfeed/curator/pkg/models"
	"github.com/pinfeed/curator/pkg/persistence"
)

const promptsDir = "prompts"

// PromptRepository handles prompt documents.
type PromptRepository struct {
	store *Persistence
}

func (r *PromptRepository) Create(_ context.Context, prompt *models.Prompt) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	return r.store.write(promptsDir, prompt.ID, prompt)
}

func (r *PromptRepository) GetByID(_ context.Context, id string) (*models.Prompt, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	return r.getLocked(id)
}

func (r *PromptRepository) getLocked(id string) (*models.Prompt, error) {
	var prompt models.Prompt

	err := r.store.read(promptsDir, id, &prompt)
	if os.IsNotExist(err) {
		return nil, persistence.NewStoreError("GetByID", "prompt", id, persistence.ErrPromptNotFound)
	}

	if err != nil {
		return nil, err
	}

	return &prompt, nil
}

func (r *PromptRepository) List(_ context.Context) ([]*models.Prompt, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	ids, err := r.store.ids(promptsDir)
	if err != nil {
		return nil, err
	}

	prompts := make([]*models.Prompt, 0, len(ids))

	for _, id := range ids {
		prompt, err := r.getLocked(id)
		if err != nil {
			return nil, err
		}

		prompts = append(prompts, prompt)
	}

	sort.Slice(prompts, func(i, j int) bool {
		return prompts[i].CreatedAt.Before(prompts[j].CreatedAt)
	})

	return prompts, nil
}

func (r *PromptRepository) UpdateStatus(_ context.Context, id string, status models.PromptStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	prompt, err := r.getLocked(id)
	if err != nil {
		return err
	}

	prompt.Status = status

	return r.store.write(promptsDir, id, prompt)
}
