package share

import (
	"sync"
	"testing"
	"time"

	"github.com/souky-byte/opencode-studio/internal/artifact"
)

func newTestManager(t *testing.T) (*Manager, *artifact.Store) {
	t.Helper()
	store := artifact.New(t.TempDir())
	return NewManager("", store), store
}

func TestNewManager(t *testing.T) {
	mgr, _ := newTestManager(t)
	if mgr == nil {
		t.Fatal("expected non-nil manager")
	}
	if mgr.baseURL != "https://studio.local/share" {
		t.Errorf("expected default base URL, got %s", mgr.baseURL)
	}
}

func TestNewManagerWithCustomURL(t *testing.T) {
	customURL := "https://custom.example.com/share"
	mgr := NewManager(customURL, artifact.New(t.TempDir()))
	if mgr.baseURL != customURL {
		t.Errorf("expected %s, got %s", customURL, mgr.baseURL)
	}
}

func TestShare(t *testing.T) {
	mgr, _ := newTestManager(t)

	info, err := mgr.Share("task-1", ArtifactPlan, nil)
	if err != nil {
		t.Fatalf("Share failed: %v", err)
	}
	if info.Token == "" {
		t.Error("expected non-empty token")
	}
	if info.TaskID != "task-1" {
		t.Errorf("expected task-1, got %s", info.TaskID)
	}
	if info.Kind != ArtifactPlan {
		t.Errorf("expected plan kind, got %s", info.Kind)
	}
	if !info.Public {
		t.Error("expected public to be true by default")
	}
	if info.Views != 0 {
		t.Errorf("expected 0 views, got %d", info.Views)
	}
}

func TestShareUpdate(t *testing.T) {
	mgr, _ := newTestManager(t)

	info1, err := mgr.Share("task-1", ArtifactPlan, nil)
	if err != nil {
		t.Fatalf("Share failed: %v", err)
	}

	info2, err := mgr.Share("task-1", ArtifactPlan, &ShareOptions{MaxViews: 50, Public: false})
	if err != nil {
		t.Fatalf("Share update failed: %v", err)
	}
	if info2.Token != info1.Token {
		t.Error("expected same token on update")
	}
	if info2.MaxViews != 50 {
		t.Errorf("expected max views 50, got %d", info2.MaxViews)
	}
	if info2.Public {
		t.Error("expected public to be false after update")
	}
}

func TestSharePlanAndReviewAreIndependent(t *testing.T) {
	mgr, _ := newTestManager(t)

	planInfo, err := mgr.Share("task-1", ArtifactPlan, nil)
	if err != nil {
		t.Fatalf("Share plan failed: %v", err)
	}
	reviewInfo, err := mgr.Share("task-1", ArtifactReview, nil)
	if err != nil {
		t.Fatalf("Share review failed: %v", err)
	}
	if planInfo.Token == reviewInfo.Token {
		t.Error("expected distinct tokens for plan and review shares of the same task")
	}
}

func TestUnshare(t *testing.T) {
	mgr, _ := newTestManager(t)

	if _, err := mgr.Share("task-1", ArtifactPlan, nil); err != nil {
		t.Fatalf("Share failed: %v", err)
	}
	if !mgr.IsShared("task-1", ArtifactPlan) {
		t.Error("expected task to be shared")
	}
	if err := mgr.Unshare("task-1", ArtifactPlan); err != nil {
		t.Fatalf("Unshare failed: %v", err)
	}
	if mgr.IsShared("task-1", ArtifactPlan) {
		t.Error("expected task to not be shared after unshare")
	}
}

func TestUnshareNotShared(t *testing.T) {
	mgr, _ := newTestManager(t)
	if err := mgr.Unshare("nonexistent", ArtifactPlan); err == nil {
		t.Error("expected error for unsharing non-shared artifact")
	}
}

func TestResolveReadsArtifactAndRecordsView(t *testing.T) {
	mgr, store := newTestManager(t)
	if err := store.WritePlan("task-1", "# The Plan\n"); err != nil {
		t.Fatalf("WritePlan failed: %v", err)
	}

	info, err := mgr.Share("task-1", ArtifactPlan, nil)
	if err != nil {
		t.Fatalf("Share failed: %v", err)
	}

	content, resolved, err := mgr.Resolve(info.Token)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if content != "# The Plan\n" {
		t.Errorf("unexpected content: %q", content)
	}
	if resolved.Views != 1 {
		t.Errorf("expected 1 view recorded, got %d", resolved.Views)
	}
}

func TestResolveNotFound(t *testing.T) {
	mgr, _ := newTestManager(t)
	if _, _, err := mgr.Resolve("nonexistent-token"); err == nil {
		t.Error("expected error for nonexistent token")
	}
}

func TestResolveExpired(t *testing.T) {
	mgr, store := newTestManager(t)
	if err := store.WritePlan("task-1", "content"); err != nil {
		t.Fatalf("WritePlan failed: %v", err)
	}

	info, err := mgr.Share("task-1", ArtifactPlan, &ShareOptions{ExpiresIn: time.Hour})
	if err != nil {
		t.Fatalf("Share failed: %v", err)
	}

	mgr.mu.Lock()
	mgr.shares[info.Token].ExpiresAt = time.Now().Add(-time.Hour)
	mgr.mu.Unlock()

	if _, _, err := mgr.Resolve(info.Token); err == nil {
		t.Error("expected error for expired share")
	}
}

func TestResolveViewLimitExceeded(t *testing.T) {
	mgr, store := newTestManager(t)
	if err := store.WritePlan("task-1", "content"); err != nil {
		t.Fatalf("WritePlan failed: %v", err)
	}

	info, err := mgr.Share("task-1", ArtifactPlan, &ShareOptions{MaxViews: 1})
	if err != nil {
		t.Fatalf("Share failed: %v", err)
	}

	if _, _, err := mgr.Resolve(info.Token); err != nil {
		t.Fatalf("first Resolve failed: %v", err)
	}
	if _, _, err := mgr.Resolve(info.Token); err == nil {
		t.Error("expected error after exceeding view limit")
	}
}

func TestCleanExpired(t *testing.T) {
	mgr, store := newTestManager(t)
	store.WritePlan("expired", "x")
	store.WritePlan("valid", "x")
	store.WritePlan("viewlimit", "x")

	expiredInfo, _ := mgr.Share("expired", ArtifactPlan, &ShareOptions{ExpiresIn: time.Hour})
	mgr.mu.Lock()
	mgr.shares[expiredInfo.Token].ExpiresAt = time.Now().Add(-time.Hour)
	mgr.mu.Unlock()

	mgr.Share("valid", ArtifactPlan, &ShareOptions{ExpiresIn: 24 * time.Hour})

	viewLimitInfo, _ := mgr.Share("viewlimit", ArtifactPlan, &ShareOptions{MaxViews: 1})
	mgr.Resolve(viewLimitInfo.Token)

	if len(mgr.ListShares()) != 3 {
		t.Fatalf("expected 3 shares before cleanup, got %d", len(mgr.ListShares()))
	}

	cleaned := mgr.CleanExpired()
	if cleaned != 2 {
		t.Errorf("expected 2 shares cleaned, got %d", cleaned)
	}
	if len(mgr.ListShares()) != 1 {
		t.Errorf("expected 1 share after cleanup, got %d", len(mgr.ListShares()))
	}
	if !mgr.IsShared("valid", ArtifactPlan) {
		t.Error("expected valid share to still exist")
	}
}

func TestTokenUniqueness(t *testing.T) {
	mgr, _ := newTestManager(t)

	tokens := make(map[string]bool)
	for i := 0; i < 100; i++ {
		info, err := mgr.Share(string(rune('a'+i%26))+string(rune(i)), ArtifactPlan, nil)
		if err != nil {
			t.Fatalf("Share failed: %v", err)
		}
		if tokens[info.Token] {
			t.Errorf("duplicate token: %s", info.Token)
		}
		tokens[info.Token] = true
	}
}

func TestConcurrentAccess(t *testing.T) {
	mgr, store := newTestManager(t)
	store.WritePlan("task-shared", "content")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			taskID := "task-shared"

			info, _ := mgr.Share(taskID, ArtifactPlan, nil)
			mgr.IsShared(taskID, ArtifactPlan)
			mgr.ListShares()
			if info != nil {
				mgr.GetByToken(info.Token)
				mgr.Resolve(info.Token)
			}
		}(i)
	}
	wg.Wait()
}
