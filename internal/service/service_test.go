package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/market-service/internal/domain"
	"github.com/spec-kit/market-service/internal/events"
	"github.com/spec-kit/market-service/internal/repository"
)

// recordingDispatcher captures published events for assertions.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) ofType(eventType events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []events.Event
	for _, event := range d.events {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}

// fakeArmer records Arm/Disarm calls.
type fakeArmer struct {
	mu       sync.Mutex
	armed    map[string]string
	disarmed []string
}

func newFakeArmer() *fakeArmer {
	return &fakeArmer{armed: make(map[string]string)}
}

func (f *fakeArmer) Arm(appt *domain.Appointment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.armed[appt.PostID] = appt.ID
}

func (f *fakeArmer) Disarm(postID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.armed, postID)
	f.disarmed = append(f.disarmed, postID)
}

func (f *fakeArmer) armedID(postID string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.armed[postID]
	return id, ok
}

type serviceEnv struct {
	userRepo        repository.UserRepository
	postRepo        repository.PostRepository
	appointmentRepo repository.AppointmentRepository
	messageRepo     repository.MessageRepository

	armer        *fakeArmer
	dispatcher   *recordingDispatcher
	appointments *AppointmentService
	chat         *ChatService
	catalog      *PostService
}

func newServiceEnv(t *testing.T) *serviceEnv {
	t.Helper()

	logger := zap.NewNop()
	store := repository.NewMemoryStore("", logger)

	env := &serviceEnv{
		userRepo:        store.Users(),
		postRepo:        store.Posts(),
		appointmentRepo: store.Appointments(),
		messageRepo:     store.Messages(),
		armer:           newFakeArmer(),
		dispatcher:      &recordingDispatcher{},
	}
	if err := env.userRepo.SeedIfEmpty(context.Background(), domain.SeedUsers()); err != nil {
		t.Fatalf("seed users: %v", err)
	}

	locks := NewListingLocks()
	env.chat = NewChatService(env.postRepo, env.messageRepo, env.userRepo, env.dispatcher, locks, logger)
	env.appointments = NewAppointmentService(AppointmentDependencies{
		PostRepo:        env.postRepo,
		AppointmentRepo: env.appointmentRepo,
		StatusCoord:     NewPostStatusCoordinator(env.postRepo),
		Reminders:       env.armer,
		Dispatcher:      env.dispatcher,
		Locks:           locks,
		Logger:          logger,
	})
	env.catalog = NewPostService(PostDependencies{
		PostRepo:        env.postRepo,
		AppointmentRepo: env.appointmentRepo,
		UserRepo:        env.userRepo,
		Chat:            env.chat,
		Reminders:       env.armer,
		Locks:           locks,
		Logger:          logger,
	})
	return env
}

func (e *serviceEnv) createPost(t *testing.T, sellerID string) *domain.Post {
	t.Helper()
	post, err := e.catalog.Create(context.Background(), PostCreateInput{
		SellerID: sellerID,
		Title:    "Used bicycle",
		Price:    50000,
	})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	return post
}

func tomorrow() (date, timeOfDay string) {
	at := time.Now().Add(24 * time.Hour)
	return at.Format("2006-01-02"), at.Format("15:04")
}
