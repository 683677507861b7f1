package command

import (
	"fmt"
	"os"

	"github.com/pixil98/go-realm/internal/storage"
)

type StorageConfig struct {
	// RecordsPath is the directory entity record assets live in.
	RecordsPath string `json:"records_path"`
}

func (c *StorageConfig) validate() error {
	if c.RecordsPath == "" {
		return fmt.Errorf("records_path is required")
	}
	_, err := os.Stat(c.RecordsPath)
	if err != nil {
		return fmt.Errorf("invalid records_path %q: %w", c.RecordsPath, err)
	}

	return nil
}

func (c *StorageConfig) BuildStore() (storage.RecordStore, error) {
	return storage.NewFileStore(c.RecordsPath)
}
