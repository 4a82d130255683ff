package captcha

import (
	"strings"
	"testing"
	"time"
)

func TestIssueAndVerify(t *testing.T) {
	store := NewStore()

	challenge, err := store.Issue()
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if challenge.ID == "" {
		t.Fatal("expected a non-empty challenge id")
	}
	if !strings.HasPrefix(challenge.Image, "data:image/") {
		t.Fatalf("expected a data URI image, got %q", challenge.Image[:min(len(challenge.Image), 20)])
	}

	answer, ok := store.entries[challenge.ID]
	if !ok {
		t.Fatal("expected stored answer for issued challenge")
	}
	if !store.Verify(challenge.ID, strings.ToUpper(answer.answer)) {
		t.Fatal("expected case-insensitive answer to verify")
	}
}

func TestVerify_ConsumesEntry(t *testing.T) {
	store := NewStore()
	store.entries["c1"] = entry{answer: "ab3d", expiresAt: time.Now().Add(time.Minute)}

	if store.Verify("c1", "wrong") {
		t.Fatal("expected wrong answer to fail")
	}
	// The entry is gone even after a failed attempt.
	if store.Verify("c1", "ab3d") {
		t.Fatal("expected consumed challenge to fail")
	}
}

func TestVerify_Expired(t *testing.T) {
	store := NewStore()
	current := time.Now()
	store.now = func() time.Time { return current }
	store.entries["c1"] = entry{answer: "ab3d", expiresAt: current.Add(answerTTL)}

	current = current.Add(answerTTL + time.Second)
	if store.Verify("c1", "ab3d") {
		t.Fatal("expected expired challenge to fail")
	}
}

func TestVerify_UnknownID(t *testing.T) {
	store := NewStore()
	if store.Verify("", "ab3d") {
		t.Fatal("expected empty id to fail")
	}
	if store.Verify("nope", "ab3d") {
		t.Fatal("expected unknown id to fail")
	}
}

func TestIssue_SweepsExpired(t *testing.T) {
	store := NewStore()
	current := time.Now()
	store.now = func() time.Time { return current }
	store.entries["old"] = entry{answer: "ab3d", expiresAt: current.Add(-time.Second)}

	if _, err := store.Issue(); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, ok := store.entries["old"]; ok {
		t.Fatal("expected expired entry to be swept on issue")
	}
}
