// Package captcha issues image challenges and verifies their answers.
// Answers live only in an in-process store with a short TTL and are
// consumed on the first verification attempt, matched or not.
package captcha

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mojocn/base64Captcha"
)

// answerTTL bounds how long an issued challenge stays answerable.
const answerTTL = 5 * time.Minute

// challengeLength is the number of characters per challenge.
const challengeLength = 4

// charSource excludes characters that render ambiguously (0/o, 1/i/l).
const charSource = "23456789abcdefghjkmnpqrstuvwxyzABCDEFGHJKMNPQRSTUVWXYZ"

type entry struct {
	answer    string
	expiresAt time.Time
}

// Store issues captcha challenges and verifies answers case-insensitively.
type Store struct {
	driver base64Captcha.Driver

	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// NewStore constructs a Store with the default string driver.
func NewStore() *Store {
	driver := base64Captcha.NewDriverString(40, 120, 2, base64Captcha.OptionShowHollowLine, challengeLength, charSource, nil, nil, nil)
	return &Store{
		driver:  driver,
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Challenge is an issued captcha: the opaque id the client echoes back
// and the base64-encoded image to render.
type Challenge struct {
	ID    string
	Image string
}

// Issue generates a challenge and records its answer under a fresh id.
func (s *Store) Issue() (Challenge, error) {
	id, content, answer := s.driver.GenerateIdQuestionAnswer()
	item, errDraw := s.driver.DrawCaptcha(content)
	if errDraw != nil {
		return Challenge{}, fmt.Errorf("captcha: draw: %w", errDraw)
	}

	s.mu.Lock()
	s.sweepLocked()
	s.entries[id] = entry{
		answer:    strings.ToLower(answer),
		expiresAt: s.now().Add(answerTTL),
	}
	s.mu.Unlock()

	return Challenge{ID: id, Image: item.EncodeB64string()}, nil
}

// Verify consumes the stored answer for id and reports whether the
// given answer matches, ignoring case. The entry is removed whether or
// not the comparison succeeds, so a challenge is single-use.
func (s *Store) Verify(id, answer string) bool {
	id = strings.TrimSpace(id)
	if id == "" {
		return false
	}

	s.mu.Lock()
	stored, ok := s.entries[id]
	if ok {
		delete(s.entries, id)
	}
	s.mu.Unlock()

	if !ok || s.now().After(stored.expiresAt) {
		return false
	}
	return strings.ToLower(strings.TrimSpace(answer)) == stored.answer
}

// sweepLocked drops expired entries; callers hold s.mu.
func (s *Store) sweepLocked() {
	now := s.now()
	for id, item := range s.entries {
		if now.After(item.expiresAt) {
			delete(s.entries, id)
		}
	}
}
