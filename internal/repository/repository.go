package repository

import (
	"fmt"

	"github.com/yourusername/runbattle/internal/database"
)

// Repositories holds all repository implementations
type Repositories struct {
	Result         ResultRepository
	SessionArchive SessionArchiveRepository
}

// NewRepositories creates and returns all repository implementations
func NewRepositories(db *database.DB) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &Repositories{
		Result:         NewPostgresResultRepository(db),
		SessionArchive: NewPostgresSessionArchiveRepository(db),
	}, nil
}
