package synccache

import (
	"path/filepath"
	"testing"
	"time"
)

func TestShouldCheckMissingKeyIsTrue(t *testing.T) {
	c := Open(filepath.Join(t.TempDir(), "sync_cache.json"))
	if !c.ShouldCheck("my-cs", StatusCheckInterval) {
		t.Error("ShouldCheck on an unseen key should be true")
	}
}

func TestUpdateLastCheckedThrottles(t *testing.T) {
	c := Open(filepath.Join(t.TempDir(), "sync_cache.json"))
	c.UpdateLastChecked("my-cs")
	if c.ShouldCheck("my-cs", time.Hour) {
		t.Error("ShouldCheck should be false right after UpdateLastChecked with a long interval")
	}
}

func TestUpdateLastCheckedPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync_cache.json")
	c := Open(path)
	c.UpdateLastChecked("my-cs")

	reopened := Open(path)
	if reopened.ShouldCheck("my-cs", time.Hour) {
		t.Error("reopened cache lost the last-checked timestamp")
	}
}

func TestClearRemovesEntry(t *testing.T) {
	c := Open(filepath.Join(t.TempDir(), "sync_cache.json"))
	c.UpdateLastChecked("my-cs")
	c.Clear("my-cs")
	if !c.ShouldCheck("my-cs", time.Hour) {
		t.Error("ShouldCheck should be true again after Clear")
	}
}

func TestOpenMissingFileIsEmpty(t *testing.T) {
	c := Open(filepath.Join(t.TempDir(), "does-not-exist.json"))
	if !c.ShouldCheck("anything", StatusCheckInterval) {
		t.Error("a missing cache file should behave as empty")
	}
}
