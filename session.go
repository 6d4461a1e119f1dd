package tryon

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is the wizard's progress state. Only one step runs at a time.
type State int

const (
	StateIdle State = iota
	StateAnalyzing
	StateGeneratingModel
	StateCompositing
)

func (s State) String() string {
	switch s {
	case StateAnalyzing:
		return "analyzing"
	case StateGeneratingModel:
		return "generating_model"
	case StateCompositing:
		return "compositing"
	default:
		return "idle"
	}
}

// Step names the user-facing step, used in failure notifications.
func (s State) Step() string {
	switch s {
	case StateAnalyzing:
		return "analysis"
	case StateGeneratingModel:
		return "model generation"
	case StateCompositing:
		return "composite creation"
	default:
		return ""
	}
}

// Session tracks one user's wizard: the current state and what each finished
// step produced.
type Session struct {
	ID string

	mu    sync.Mutex
	state State

	clothing         InputImage
	analysis         *ClothingAnalysis
	modelDescription string
	model            *GenerationResult
	views            map[ViewAngle]*GenerationResult

	updatedAt time.Time
}

// SessionSnapshot is a read-only copy of a session's progress.
type SessionSnapshot struct {
	ID               string            `json:"id"`
	State            string            `json:"state"`
	Analysis         *ClothingAnalysis `json:"analysis,omitempty"`
	HasClothing      bool              `json:"hasClothing"`
	ModelDescription string            `json:"modelDescription,omitempty"`
	HasModel         bool              `json:"hasModel"`
	Views            []ViewAngle       `json:"views"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

func newSession() *Session {
	return &Session{
		ID:        uuid.NewString(),
		views:     make(map[ViewAngle]*GenerationResult),
		updatedAt: time.Now(),
	}
}

// Begin moves an idle session into next. It fails with ErrBusy while another step is outstanding.
func (s *Session) Begin(next State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return ErrBusy
	}
	s.state = next
	s.updatedAt = time.Now()
	return nil
}

// End returns the session to idle once a step has settled.
func (s *Session) End() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = StateIdle
	s.updatedAt = time.Now()
}

// Run wraps fn in Begin/End.
func (s *Session) Run(state State, fn func() error) error {
	if err := s.Begin(state); err != nil {
		return err
	}
	defer s.End()
	return fn()
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetAnalysis records the uploaded clothing and its analysis. Earlier
// composites no longer match and are dropped.
func (s *Session) SetAnalysis(clothing InputImage, analysis *ClothingAnalysis) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clothing = clothing
	s.analysis = analysis
	s.views = make(map[ViewAngle]*GenerationResult)
	s.updatedAt = time.Now()
}

// SetModel records the generated model image.
func (s *Session) SetModel(description string, result *GenerationResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.modelDescription = description
	s.model = result
	s.views = make(map[ViewAngle]*GenerationResult)
	s.updatedAt = time.Now()
}

// SetView records a composite.
func (s *Session) SetView(result *GenerationResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.views[result.Angle] = result
	s.updatedAt = time.Now()
}

// View returns the stored composite for an angle.
func (s *Session) View(angle ViewAngle) (*GenerationResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.views[angle]
	return r, ok
}

// Model returns the stored model image result.
func (s *Session) Model() *GenerationResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model
}

// Draft returns whatever the session holds for a composite at angle, without
// validating it. Parts not produced yet are left zero.
func (s *Session) Draft(angle ViewAngle) GenerationRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	req := GenerationRequest{
		Clothing:            s.clothing,
		ClothingDescription: s.analysis.Description(),
		ModelDescription:    s.modelDescription,
		Angle:               angle,
	}
	if s.model != nil && s.model.Image != nil {
		req.Model = InputImage{Data: s.model.Image.Data, MIMEType: s.model.Image.MIMEType}
	}
	return req
}

// CompositeRequest builds a request from the session's clothing and model.
// Missing pieces surface as caller-input errors from validation.
func (s *Session) CompositeRequest(angle ViewAngle) (GenerationRequest, error) {
	req := s.Draft(angle)
	if err := ValidateGenerationRequest(req); err != nil {
		return GenerationRequest{}, err
	}
	return req, nil
}

// Snapshot returns a copy of the session's progress.
func (s *Session) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := SessionSnapshot{
		ID:               s.ID,
		State:            s.state.String(),
		Analysis:         s.analysis,
		HasClothing:      !s.clothing.IsEmpty(),
		ModelDescription: s.modelDescription,
		HasModel:         !s.model.Empty(),
		Views:            []ViewAngle{},
		UpdatedAt:        s.updatedAt,
	}
	for _, a := range AllViewAngles() {
		if _, ok := s.views[a]; ok {
			snap.Views = append(snap.Views, a)
		}
	}
	return snap
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return 0
	}
	return now.Sub(s.updatedAt)
}

// SessionStore keeps sessions in memory and expires idle ones.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
}

// NewSessionStore creates a store; ttl <= 0 means one hour.
func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SessionStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
	}
}

// Create starts a new session.
func (st *SessionStore) Create() *Session {
	sess := newSession()

	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[sess.ID] = sess
	return sess
}

// Get returns a session by id.
func (st *SessionStore) Get(id string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	sess, ok := st.sessions[id]
	return sess, ok
}

// Sweep drops sessions idle for longer than the ttl and returns how many were removed.
// Sessions with a step in flight are kept.
func (st *SessionStore) Sweep(now time.Time) int {
	st.mu.Lock()
	defer st.mu.Unlock()

	removed := 0
	for id, sess := range st.sessions {
		if sess.idleSince(now) > st.ttl {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live sessions.
func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}
