package progress

import (
	"encoding/json"
	"fmt"
	"os"

	"subtrans/pkg/log"
)

// Suffix is appended to an input path to name its progress file.
const Suffix = ".progress.json"

// PathFor returns the progress file path for an input file.
func PathFor(sourcePath string) string {
	return sourcePath + Suffix
}

// FileStore persists Records as JSON files next to their inputs.
type FileStore struct{}

func NewFileStore() *FileStore {
	return &FileStore{}
}

// Load reads the record for sourcePath. A missing, unreadable or
// corrupt file yields nil: a stale checkpoint is never worth failing
// a run over, the run just starts from the beginning.
func (s *FileStore) Load(sourcePath string) *Record {
	path := PathFor(sourcePath)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("Ignoring unreadable progress file %s: %v", path, err)
		}
		return nil
	}
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		log.Warn("Ignoring corrupt progress file %s: %v", path, err)
		return nil
	}
	return &record
}

// Save writes the record atomically: marshal to a temp file in the
// same directory, then rename over the final path. A crash mid-write
// leaves either the previous record or none, never a truncated one.
func (s *FileStore) Save(record *Record) error {
	path := PathFor(record.SourcePath)
	content, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal progress record: %w", err)
	}
	content = append(content, '\n')

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, content, 0o644); err != nil {
		return fmt.Errorf("failed to write progress file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to commit progress file: %w", err)
	}
	return nil
}

// Clear removes the progress file for sourcePath. Clearing a path
// that has no progress file is not an error.
func (s *FileStore) Clear(sourcePath string) error {
	if err := os.Remove(PathFor(sourcePath)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove progress file: %w", err)
	}
	return nil
}
