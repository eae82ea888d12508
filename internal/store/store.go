package store

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"parrillas/internal/auth"
	"parrillas/internal/backend"
	"parrillas/internal/filestore"
	"parrillas/internal/logging"
	"parrillas/internal/metrics"
	"parrillas/internal/model"
)

var (
	ErrImageLimit    = errors.New("image limit reached")
	ErrUnknownStatus = errors.New("unknown status")
	ErrNoStorage     = errors.New("file storage not configured")
)

// Store owns the application state and mediates every backend call.
// It is safe for concurrent use; actions are applied one at a time.
type Store struct {
	be      backend.Backend
	files   filestore.Storage
	session auth.Session
	log     *logrus.Entry
	metrics *metrics.Metrics
	now     func() time.Time

	mu    sync.Mutex
	state State
	rev   uint64
	subs  map[chan struct{}]struct{}
}

type Option func(*Store)

func WithFiles(fs filestore.Storage) Option { return func(s *Store) { s.files = fs } }

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Store) { s.log = logging.Component(l, "store") }
}

func WithMetrics(m *metrics.Metrics) Option { return func(s *Store) { s.metrics = m } }

func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

func New(be backend.Backend, session auth.Session, opts ...Option) *Store {
	s := &Store{
		be:      be,
		session: session,
		now:     time.Now,
		state:   initialState(),
		subs:    map[chan struct{}]struct{}{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logging.Component(logging.Discard(), "store")
	}
	return s
}

func (s *Store) Backend() backend.Backend { return s.be }

func (s *Store) Session() auth.Session { return s.session }

// State returns the current snapshot.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Revision returns the newest local revision handed out so far.
func (s *Store) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rev
}

// Subscribe returns a channel that receives a value after state changes. Signals
// coalesce: a slow reader sees one pending wakeup, then reads State.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, ch)
			s.mu.Unlock()
		})
	}
}

// Dispatch applies a and notifies subscribers.
func (s *Store) Dispatch(a Action) State {
	s.mu.Lock()
	s.state = Reduce(s.state, a)
	st := s.state
	s.broadcastLocked()
	s.mu.Unlock()
	s.metrics.Action(a.Name())
	return st
}

// dispatchStamped hands out the next revision and applies the action built from it
// under the same lock, so revisions reach Reduce in issue order.
func (s *Store) dispatchStamped(build func(rev uint64) Action) (State, uint64) {
	s.mu.Lock()
	s.rev++
	rev := s.rev
	a := build(rev)
	s.state = Reduce(s.state, a)
	st := s.state
	s.broadcastLocked()
	s.mu.Unlock()
	s.metrics.Action(a.Name())
	return st, rev
}

func (s *Store) broadcastLocked() {
	for ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (s *Store) fail(op string, err error) error {
	s.metrics.Operation(op, err)
	if err == nil {
		return nil
	}
	s.log.WithError(err).WithField("op", op).Error("operation failed")
	s.Dispatch(ErrorSet{Err: err.Error()})
	return err
}

func (s *Store) actor() (auth.Actor, error) {
	a, err := auth.Require(s.session)
	if err != nil {
		s.metrics.Operation("session", err)
		return auth.Actor{}, err
	}
	return a, nil
}

func (s *Store) OpenDetail(id string) { s.Dispatch(DetailOpened{ID: id}) }
func (s *Store) CloseDetail() { s.Dispatch(DetailClosed{}) }

// OpenCreate opens the create form, preselecting statusID when given.
func (s *Store) OpenCreate(statusID string) { s.Dispatch(CreateOpened{StatusID: statusID}) }
func (s *Store) CloseCreate() { s.Dispatch(CreateClosed{}) }

func (s *Store) SetFilterClient(id string) { s.Dispatch(FilterSet{Field: FilterClient, Value: id}) }
func (s *Store) SetFilterDate(day string) { s.Dispatch(FilterSet{Field: FilterDate, Value: day}) }
func (s *Store) SetFilterRole(role string) { s.Dispatch(FilterSet{Field: FilterRole, Value: role}) }
func (s *Store) SetFilterUser(id string) { s.Dispatch(FilterSet{Field: FilterUser, Value: id}) }
func (s *Store) SetSearch(query string) { s.Dispatch(FilterSet{Field: FilterSearch, Value: query}) }
func (s *Store) ClearFilters() { s.Dispatch(FiltersCleared{}) }
func (s *Store) SetView(v View) { s.Dispatch(ViewSet{View: v}) }
func (s *Store) ClearError() { s.Dispatch(ErrorSet{}) }

func (s *Store) FilteredItems() []model.ContentItemWithRelations { return s.State().FilteredItems() }

func (s *Store) ItemsByStatus() map[string][]model.ContentItemWithRelations {
	return s.State().ItemsByStatus()
}
