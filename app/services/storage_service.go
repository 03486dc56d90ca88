package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/kairan-app/kairan/config"
)

// ObjectStorageService stores rehosted media bytes and returns a public URL
type ObjectStorageService interface {
	Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) (publicURL string, err error)
}

// ObjectStorageServiceImpl implements ObjectStorageService against an HTTP object store
type ObjectStorageServiceImpl struct {
	config *config.StorageConfig
	client *http.Client
}

// NewObjectStorageService creates a new object storage service instance
func NewObjectStorageService(cfg *config.StorageConfig) ObjectStorageService {
	return &ObjectStorageServiceImpl{
		config: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Put uploads one object and returns the URL recipients can fetch it from
func (s *ObjectStorageServiceImpl) Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) (string, error) {
	url := fmt.Sprintf("%s/%s/%s", s.config.Endpoint, s.config.Bucket, key)
	req, err := http.NewRequestWithContext(ctx, "PUT", url, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create storage request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-api-key", s.config.APIKey)
	if len(metadata) > 0 {
		meta, err := json.Marshal(metadata)
		if err != nil {
			return "", fmt.Errorf("failed to marshal object metadata: %w", err)
		}
		req.Header.Set("x-object-meta", string(meta))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to upload object: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("object upload failed for %s: status %d", key, resp.StatusCode)
	}

	return fmt.Sprintf("%s/%s/%s", s.config.PublicBaseURL, s.config.Bucket, key), nil
}

// MockObjectStorage implements ObjectStorageService for testing
type MockObjectStorage struct {
	mu      sync.Mutex
	Objects map[string]MockStoredObject
	FailAll bool
}

// MockStoredObject represents a mock stored object
type MockStoredObject struct {
	Data        []byte
	ContentType string
	Metadata    map[string]string
}

// NewMockObjectStorage creates a new mock object storage
func NewMockObjectStorage() *MockObjectStorage {
	return &MockObjectStorage{Objects: make(map[string]MockStoredObject)}
}

// Put stores a mock object and returns a deterministic URL
func (m *MockObjectStorage) Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailAll {
		return "", fmt.Errorf("mock storage failure for %s", key)
	}
	m.Objects[key] = MockStoredObject{Data: data, ContentType: contentType, Metadata: metadata}
	return "https://media.test/" + key, nil
}
