package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store is the object-storage collaborator the scraping services read
// input artifacts from and write result tables to. Put overwrites on
// conflict.
type Store interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Put(ctx context.Context, name string, data []byte) error
}

// Dir is a Store backed by a directory on the local filesystem.
// Object names may contain slashes, they map to subdirectories.
type Dir struct {
	Root string
}

func NewDir(root string) Dir {
	return Dir{Root: root}
}

func (d Dir) Get(ctx context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(d.Root, filepath.FromSlash(name)))
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", name, err)
	}
	return data, nil
}

func (d Dir) Put(ctx context.Context, name string, data []byte) error {
	path := filepath.Join(d.Root, filepath.FromSlash(name))
	err := os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return fmt.Errorf("put %q: %w", name, err)
	}
	err = os.WriteFile(path, data, 0644)
	if err != nil {
		return fmt.Errorf("put %q: %w", name, err)
	}
	return nil
}

// Memory is an in-memory Store for tests.
type Memory struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{objects: map[string][]byte{}}
}

func (m *Memory) Get(ctx context.Context, name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[name]
	if !ok {
		return nil, fmt.Errorf("get %q: %w", name, os.ErrNotExist)
	}
	return data, nil
}

func (m *Memory) Put(ctx context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[name] = data
	return nil
}

// Names returns the stored object names, for test assertions.
func (m *Memory) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var names []string
	for name := range m.objects {
		names = append(names, name)
	}
	return names
}
