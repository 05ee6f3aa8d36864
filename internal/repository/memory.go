package repository

import (
	"context"
	"encoding/json"
	"os"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/market-service/internal/domain"
)

// MemoryStore keeps all records in process and optionally snapshots
// them to a JSON file after every mutation, so state survives restarts
// when the service runs without Postgres. Access it through the
// repository views returned by Users, Posts, Appointments and Messages.
type MemoryStore struct {
	mu           sync.RWMutex
	snapshotPath string
	logger       *zap.Logger
	data         snapshot
}

type snapshot struct {
	Users        []domain.User        `json:"users"`
	Posts        []domain.Post        `json:"posts"`
	Appointments []domain.Appointment `json:"appointments"`
	Messages     []domain.Message     `json:"messages"`
}

// NewMemoryStore loads the snapshot file when present; an unreadable
// snapshot is logged and replaced by an empty state.
func NewMemoryStore(snapshotPath string, logger *zap.Logger) *MemoryStore {
	store := &MemoryStore{snapshotPath: snapshotPath, logger: logger}

	if snapshotPath == "" {
		return store
	}
	raw, err := os.ReadFile(snapshotPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("snapshot unreadable, starting empty", zap.String("path", snapshotPath), zap.Error(err))
		}
		return store
	}
	if err := json.Unmarshal(raw, &store.data); err != nil {
		logger.Warn("snapshot corrupt, starting empty", zap.String("path", snapshotPath), zap.Error(err))
		store.data = snapshot{}
	}
	return store
}

func (s *MemoryStore) saveLocked() {
	if s.snapshotPath == "" {
		return
	}
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		s.logger.Error("snapshot marshal failed", zap.Error(err))
		return
	}
	if err := os.WriteFile(s.snapshotPath, raw, 0o644); err != nil {
		s.logger.Error("snapshot write failed", zap.String("path", s.snapshotPath), zap.Error(err))
	}
}

// Users returns the user repository view.
func (s *MemoryStore) Users() UserRepository { return &memoryUsers{s} }

// Posts returns the post repository view.
func (s *MemoryStore) Posts() PostRepository { return &memoryPosts{s} }

// Appointments returns the appointment repository view.
func (s *MemoryStore) Appointments() AppointmentRepository { return &memoryAppointments{s} }

// Messages returns the message repository view.
func (s *MemoryStore) Messages() MessageRepository { return &memoryMessages{s} }

type memoryUsers struct{ s *MemoryStore }

func (r *memoryUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, user := range r.s.data.Users {
		if user.ID == id {
			u := user
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memoryUsers) List(_ context.Context) ([]domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.User, len(r.s.data.Users))
	copy(out, r.s.data.Users)
	return out, nil
}

func (r *memoryUsers) SeedIfEmpty(_ context.Context, users []domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if len(r.s.data.Users) > 0 {
		return nil
	}
	r.s.data.Users = append(r.s.data.Users, users...)
	r.s.saveLocked()
	return nil
}

type memoryPosts struct{ s *MemoryStore }

func (r *memoryPosts) Create(_ context.Context, post *domain.Post) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now()
	}
	r.s.data.Posts = append(r.s.data.Posts, *post)
	r.s.saveLocked()
	return nil
}

func (r *memoryPosts) GetByID(_ context.Context, id string) (*domain.Post, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, post := range r.s.data.Posts {
		if post.ID == id {
			p := post
			return &p, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memoryPosts) List(_ context.Context) ([]domain.Post, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.Post, len(r.s.data.Posts))
	copy(out, r.s.data.Posts)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *memoryPosts) UpdateStatus(_ context.Context, id string, status domain.PostStatus, appointmentID *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.data.Posts {
		if r.s.data.Posts[i].ID == id {
			r.s.data.Posts[i].Status = status
			r.s.data.Posts[i].AppointmentID = appointmentID
			r.s.saveLocked()
			return nil
		}
	}
	return ErrNotFound
}

func (r *memoryPosts) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	kept := r.s.data.Posts[:0]
	found := false
	for _, post := range r.s.data.Posts {
		if post.ID == id {
			found = true
			continue
		}
		kept = append(kept, post)
	}
	if !found {
		return ErrNotFound
	}
	r.s.data.Posts = kept

	// cascade the listing's appointment and chat log
	appts := r.s.data.Appointments[:0]
	for _, appt := range r.s.data.Appointments {
		if appt.PostID != id {
			appts = append(appts, appt)
		}
	}
	r.s.data.Appointments = appts

	msgs := r.s.data.Messages[:0]
	for _, msg := range r.s.data.Messages {
		if msg.PostID != id {
			msgs = append(msgs, msg)
		}
	}
	r.s.data.Messages = msgs

	r.s.saveLocked()
	return nil
}

type memoryAppointments struct{ s *MemoryStore }

func (r *memoryAppointments) Replace(_ context.Context, appt *domain.Appointment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	kept := r.s.data.Appointments[:0]
	for _, existing := range r.s.data.Appointments {
		if existing.PostID != appt.PostID {
			kept = append(kept, existing)
		}
	}
	appt.CancelRequestedBy = nil
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = time.Now()
	}
	r.s.data.Appointments = append(kept, *appt)
	r.s.saveLocked()
	return nil
}

func (r *memoryAppointments) GetByPost(_ context.Context, postID string) (*domain.Appointment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, appt := range r.s.data.Appointments {
		if appt.PostID == postID {
			a := appt
			return &a, nil
		}
	}
	return nil, nil
}

func (r *memoryAppointments) SetCancelRequestedBy(_ context.Context, postID string, userID *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.data.Appointments {
		if r.s.data.Appointments[i].PostID == postID {
			r.s.data.Appointments[i].CancelRequestedBy = userID
			r.s.saveLocked()
			return nil
		}
	}
	return ErrNotFound
}

func (r *memoryAppointments) DeleteByPost(_ context.Context, postID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := r.s.data.Appointments[:0]
	for _, appt := range r.s.data.Appointments {
		if appt.PostID != postID {
			kept = append(kept, appt)
		}
	}
	r.s.data.Appointments = kept
	r.s.saveLocked()
	return nil
}

func (r *memoryAppointments) ListAll(_ context.Context) ([]domain.Appointment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.Appointment, len(r.s.data.Appointments))
	copy(out, r.s.data.Appointments)
	return out, nil
}

type memoryMessages struct{ s *MemoryStore }

func (r *memoryMessages) Append(_ context.Context, msg *domain.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	r.s.data.Messages = append(r.s.data.Messages, *msg)
	r.s.saveLocked()
	return nil
}

func (r *memoryMessages) ListByPost(_ context.Context, postID string) ([]domain.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.Message
	for _, msg := range r.s.data.Messages {
		if msg.PostID == postID {
			out = append(out, msg)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
