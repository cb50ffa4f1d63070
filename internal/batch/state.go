package batch

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"

	"github.com/siddontang/go/ioutil2"
)

// fingerprint identifies one revision of an input archive. A changed
// size or mtime makes the archive eligible for processing again.
type fingerprint struct {
	Size    int64 `json:"size"`
	ModTime int64 `json:"mtime"`
}

func fingerprintOf(info os.FileInfo) fingerprint {
	return fingerprint{
		Size:    info.Size(),
		ModTime: info.ModTime().Unix(),
	}
}

// fileState remembers which archives a watch loop already processed,
// persisted as JSON so a restart does not reprocess the whole input dir.
type fileState struct {
	filepath string
	entries  map[string]fingerprint

	mu *sync.RWMutex
}

func newFileState(path string) (*fileState, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	return &fileState{
		filepath: path,
		entries:  make(map[string]fingerprint),
		mu:       &sync.RWMutex{},
	}, nil
}

func (s *fileState) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := ioutil.ReadFile(s.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	entries := make(map[string]fingerprint)
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	s.entries = entries

	return nil
}

func (s *fileState) seen(name string, info os.FileInfo) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fp, ok := s.entries[name]

	return ok && fp == fingerprintOf(info)
}

func (s *fileState) remember(name string, info os.FileInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[name] = fingerprintOf(info)
}

func (s *fileState) save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := json.Marshal(s.entries)
	if err != nil {
		return err
	}

	return ioutil2.WriteFileAtomic(s.filepath, data, 0644)
}
