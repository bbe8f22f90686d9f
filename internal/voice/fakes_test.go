package voice_test

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/notsogambhir/Instacom/internal/db"
)

func newTestLogger() *log.Logger {
	return log.New(io.Discard)
}

type fakeStorage struct {
	mu        sync.Mutex
	objects   map[string][]byte
	deleted   []string
	uploadErr error
	deleteErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string][]byte)}
}

func (f *fakeStorage) Upload(_ context.Context, messageID uuid.UUID, data []byte, scopeHint string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	name := fmt.Sprintf("voice-messages/%s/%s.pcm", scopeHint, messageID)
	f.objects[name] = data
	return name, nil
}

func (f *fakeStorage) Delete(_ context.Context, objectName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.objects, objectName)
	f.deleted = append(f.deleted, objectName)
	return nil
}

func (f *fakeStorage) object(name string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[name]
	return data, ok
}

type fakeMessageStore struct {
	mu        sync.Mutex
	messages  map[uuid.UUID]*db.VoiceMessage
	createErr error
	deleteErr error
}

func newFakeMessageStore() *fakeMessageStore {
	return &fakeMessageStore{messages: make(map[uuid.UUID]*db.VoiceMessage)}
}

func (f *fakeMessageStore) CreateMessage(_ context.Context, msg *db.VoiceMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return f.createErr
	}
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	clone := *msg
	f.messages[msg.ID] = &clone
	return nil
}

func (f *fakeMessageStore) GetMessageByID(_ context.Context, id uuid.UUID) (*db.VoiceMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	msg, ok := f.messages[id]
	if !ok {
		return nil, fmt.Errorf("message not found")
	}
	clone := *msg
	return &clone, nil
}

func (f *fakeMessageStore) ListGroupMessages(_ context.Context, groupID uuid.UUID, limit int) ([]*db.VoiceMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.listNewestFirst(limit, func(msg *db.VoiceMessage) bool {
		return msg.GroupID != nil && *msg.GroupID == groupID
	}), nil
}

func (f *fakeMessageStore) ListDirectMessages(_ context.Context, userA, userB uuid.UUID, limit int) ([]*db.VoiceMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.listNewestFirst(limit, func(msg *db.VoiceMessage) bool {
		if msg.RecipientID == nil {
			return false
		}
		return (msg.SenderID == userA && *msg.RecipientID == userB) ||
			(msg.SenderID == userB && *msg.RecipientID == userA)
	}), nil
}

func (f *fakeMessageStore) ListPendingMessages(_ context.Context, userID uuid.UUID, groupID *uuid.UUID) ([]*db.VoiceMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.listNewestFirst(0, func(msg *db.VoiceMessage) bool {
		if msg.IsPlayed {
			return false
		}
		if msg.RecipientID != nil && *msg.RecipientID == userID {
			return true
		}
		return groupID != nil && msg.GroupID != nil && *msg.GroupID == *groupID && msg.SenderID != userID
	}), nil
}

func (f *fakeMessageStore) MarkPlayed(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	msg, ok := f.messages[id]
	if !ok {
		return fmt.Errorf("message not found")
	}
	msg.IsPlayed = true
	return nil
}

func (f *fakeMessageStore) DeleteMessage(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.messages[id]; !ok {
		return fmt.Errorf("message not found")
	}
	delete(f.messages, id)
	return nil
}

func (f *fakeMessageStore) listNewestFirst(limit int, match func(*db.VoiceMessage) bool) []*db.VoiceMessage {
	out := []*db.VoiceMessage{}
	for _, msg := range f.messages {
		if match(msg) {
			clone := *msg
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (f *fakeMessageStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}
