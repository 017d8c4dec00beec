// Package share issues read-only links to a task's plan/review
// artifacts, so a reviewer without repo access can read what an
// OpenCode session produced without opening the project database.
package share

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/souky-byte/opencode-studio/internal/artifact"
)

// ArtifactKind names which of a task's artifacts a share resolves to.
type ArtifactKind string

const (
	ArtifactPlan   ArtifactKind = "plan"
	ArtifactReview ArtifactKind = "review"
)

// ShareInfo is the metadata for one issued share link.
type ShareInfo struct {
	Token     string       `json:"token"`
	TaskID    string       `json:"taskId"`
	Kind      ArtifactKind `json:"kind"`
	URL       string       `json:"url"`
	CreatedAt time.Time    `json:"createdAt"`
	ExpiresAt time.Time    `json:"expiresAt,omitempty"`
	Views     int          `json:"views"`
	MaxViews  int          `json:"maxViews,omitempty"` // 0 = unlimited
	Public    bool         `json:"public"`
}

// ShareOptions configures a share's lifetime and visibility.
type ShareOptions struct {
	ExpiresIn time.Duration
	MaxViews  int
	Public    bool
}

// key identifies a task's artifact, the unit a token is scoped to.
type key struct {
	taskID string
	kind   ArtifactKind
}

// Manager issues and resolves artifact share tokens for one project.
// Tokens live only in memory: a process restart revokes every
// outstanding link, which is fine for a read-only convenience feature
// rather than a durable access grant.
type Manager struct {
	mu      sync.RWMutex
	shares  map[string]*ShareInfo // token -> share info
	byKey   map[key]string        // (taskID, kind) -> token
	baseURL string

	artifacts *artifact.Store
}

// NewManager builds a Manager resolving tokens against artifacts.
func NewManager(baseURL string, artifacts *artifact.Store) *Manager {
	if baseURL == "" {
		baseURL = "https://studio.local/share"
	}
	return &Manager{
		shares:    make(map[string]*ShareInfo),
		byKey:     make(map[key]string),
		baseURL:   baseURL,
		artifacts: artifacts,
	}
}

// Share creates or updates a link for a task's plan or review artifact.
func (m *Manager) Share(taskID string, kind ArtifactKind, opts *ShareOptions) (*ShareInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key{taskID: taskID, kind: kind}
	if token, exists := m.byKey[k]; exists {
		if info, ok := m.shares[token]; ok {
			applyOptions(info, opts)
			return info, nil
		}
	}

	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("generate share token: %w", err)
	}

	info := &ShareInfo{
		Token:     token,
		TaskID:    taskID,
		Kind:      kind,
		URL:       fmt.Sprintf("%s/%s", m.baseURL, token),
		CreatedAt: time.Now(),
		Public:    true,
	}
	applyOptions(info, opts)

	m.shares[token] = info
	m.byKey[k] = token

	return info, nil
}

func applyOptions(info *ShareInfo, opts *ShareOptions) {
	if opts == nil {
		return
	}
	if opts.ExpiresIn > 0 {
		info.ExpiresAt = time.Now().Add(opts.ExpiresIn)
	}
	if opts.MaxViews > 0 {
		info.MaxViews = opts.MaxViews
	}
	info.Public = opts.Public
}

// Unshare revokes the link for a task's artifact, if one exists.
func (m *Manager) Unshare(taskID string, kind ArtifactKind) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key{taskID: taskID, kind: kind}
	token, exists := m.byKey[k]
	if !exists {
		return fmt.Errorf("artifact not shared")
	}

	delete(m.shares, token)
	delete(m.byKey, k)
	return nil
}

// GetByToken retrieves share info by token, without resolving content
// or recording a view.
func (m *Manager) GetByToken(token string) (*ShareInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lookupLocked(token)
}

func (m *Manager) lookupLocked(token string) (*ShareInfo, error) {
	info, ok := m.shares[token]
	if !ok {
		return nil, fmt.Errorf("share not found")
	}
	if !info.ExpiresAt.IsZero() && time.Now().After(info.ExpiresAt) {
		return nil, fmt.Errorf("share expired")
	}
	if info.MaxViews > 0 && info.Views >= info.MaxViews {
		return nil, fmt.Errorf("share view limit exceeded")
	}
	return info, nil
}

// Resolve reads the artifact content a token points to and records a
// view. Callers serving the public share page use this, not GetByToken.
func (m *Manager) Resolve(token string) (content string, info ShareInfo, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	share, err := m.lookupLocked(token)
	if err != nil {
		return "", ShareInfo{}, err
	}

	switch share.Kind {
	case ArtifactPlan:
		content, err = m.artifacts.ReadPlan(share.TaskID)
	case ArtifactReview:
		content, err = m.artifacts.ReadReview(share.TaskID)
	default:
		return "", ShareInfo{}, fmt.Errorf("unknown artifact kind %q", share.Kind)
	}
	if err != nil {
		return "", ShareInfo{}, fmt.Errorf("read %s artifact: %w", share.Kind, err)
	}

	share.Views++
	return content, *share, nil
}

// IsShared reports whether a task's artifact currently has an active link.
func (m *Manager) IsShared(taskID string, kind ArtifactKind) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.byKey[key{taskID: taskID, kind: kind}]
	return exists
}

// ListShares returns every currently issued share, unfiltered.
func (m *Manager) ListShares() []*ShareInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*ShareInfo, 0, len(m.shares))
	for _, info := range m.shares {
		out = append(out, info)
	}
	return out
}

// CleanExpired removes shares that are past their expiry or view limit,
// returning the count removed.
func (m *Manager) CleanExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	count := 0
	for token, info := range m.shares {
		expired := !info.ExpiresAt.IsZero() && now.After(info.ExpiresAt)
		viewLimitExceeded := info.MaxViews > 0 && info.Views >= info.MaxViews
		if expired || viewLimitExceeded {
			delete(m.shares, token)
			delete(m.byKey, key{taskID: info.TaskID, kind: info.Kind})
			count++
		}
	}
	return count
}

// generateToken generates a secure random token.
func generateToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b)[:22], nil
}
