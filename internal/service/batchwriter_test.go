package service

import (
	"context"
	"fmt"
	"testing"

	domdocstore "github.com/rosterhub/rosterhub/internal/domain/docstore"
)

func deleteIntents(n int) []domdocstore.MutationIntent {
	intents := make([]domdocstore.MutationIntent, n)
	for i := range intents {
		intents[i] = domdocstore.MutationIntent{
			Op:  domdocstore.OpDelete,
			Ref: domdocstore.UserRecordRef("lwhs", fmt.Sprintf("user-%04d", i)),
		}
	}
	return intents
}

func TestNewBatchWriterCap(t *testing.T) {
	store := newMockStore()
	for _, groupCap := range []int{0, -1, 500, 750} {
		if _, err := NewBatchWriter(store, groupCap); err == nil {
			t.Errorf("NewBatchWriter(cap=%d) accepted, want error", groupCap)
		}
	}
	if _, err := NewBatchWriter(store, 400); err != nil {
		t.Errorf("NewBatchWriter(cap=400): %v", err)
	}
}

func TestCommitGroupsAtCap(t *testing.T) {
	store := newMockStore()
	writer, err := NewBatchWriter(store, 400)
	if err != nil {
		t.Fatal(err)
	}

	report, err := writer.Commit(context.Background(), deleteIntents(900))
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if report.Total != 900 || report.Applied != 900 || !report.Succeeded {
		t.Errorf("report = %+v, want {900 900 true}", report)
	}
	want := []int{400, 400, 100}
	if len(store.groupSizes) != len(want) {
		t.Fatalf("groups = %v, want %v", store.groupSizes, want)
	}
	for i, n := range want {
		if store.groupSizes[i] != n {
			t.Errorf("group %d size = %d, want %d", i, store.groupSizes[i], n)
		}
	}
}

func TestCommitExactMultipleOfCap(t *testing.T) {
	store := newMockStore()
	writer, _ := NewBatchWriter(store, 400)

	report, err := writer.Commit(context.Background(), deleteIntents(800))
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if report.Applied != 800 {
		t.Errorf("applied = %d, want 800", report.Applied)
	}
	// No trailing empty group.
	if len(store.groupSizes) != 2 {
		t.Errorf("groups = %v, want two groups of 400", store.groupSizes)
	}
}

func TestCommitEmpty(t *testing.T) {
	store := newMockStore()
	writer, _ := NewBatchWriter(store, 400)

	report, err := writer.Commit(context.Background(), nil)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if report.Total != 0 || !report.Succeeded {
		t.Errorf("report = %+v, want empty success", report)
	}
	if store.commits != 0 {
		t.Errorf("commits = %d, want 0", store.commits)
	}
}

func TestCommitPartialFailureKeepsCommittedGroups(t *testing.T) {
	store := newMockStore()
	store.failCommitAt = 2
	writer, _ := NewBatchWriter(store, 400)

	report, err := writer.Commit(context.Background(), deleteIntents(900))
	if err == nil {
		t.Fatal("Commit succeeded, want error")
	}
	if report.Succeeded {
		t.Error("report.Succeeded = true, want false")
	}
	// The first group stays applied; nothing after the failure runs.
	if report.Applied != 400 {
		t.Errorf("applied = %d, want 400", report.Applied)
	}
	if report.Total != 900 {
		t.Errorf("total = %d, want 900", report.Total)
	}
	if store.commits != 2 {
		t.Errorf("commit attempts = %d, want 2", store.commits)
	}
}
