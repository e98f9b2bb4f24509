// Package match runs live bouts: one engine and tick task per match,
// observer fan-out, result persistence and lifetime cleanup.
package match

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"

	"sumo-arena/internal/game"
	"sumo-arena/internal/store"
)

var (
	// ErrMatchNotFound is returned for unknown or finished match ids
	ErrMatchNotFound = eris.New("match not found")
	// ErrInvalidRequest is returned for malformed create requests
	ErrInvalidRequest = eris.New("invalid match request")
	// ErrControlRejected is returned when the engine refuses a start command
	ErrControlRejected = eris.New("match already started")
)

// CapacityPolicy bounds concurrent matches. New matches evict the oldest
// ones once the bound is reached. Zero or less means unbounded.
type CapacityPolicy struct {
	MaxConcurrentMatches int
}

// evictions returns how many sessions must go before one more can be added
func (p CapacityPolicy) evictions(active int) int {
	if p.MaxConcurrentMatches <= 0 {
		return 0
	}
	if n := active - p.MaxConcurrentMatches + 1; n > 0 {
		return n
	}
	return 0
}

// Config controls the tick loop and lifetimes
type Config struct {
	TickRate         int
	GracePeriod      time.Duration
	StaleTimeout     time.Duration
	WatchdogInterval time.Duration
	PersistTimeout   time.Duration
	Capacity         CapacityPolicy
	SimulationMode   bool // fall back to synthetic wrestlers on any store failure
	Tuning           game.Tuning
}

// DefaultConfig returns production defaults
func DefaultConfig() Config {
	return Config{
		TickRate:         60,
		GracePeriod:      5 * time.Second,
		StaleTimeout:     5 * time.Minute,
		WatchdogInterval: 30 * time.Second,
		PersistTimeout:   5 * time.Second,
		Capacity:         CapacityPolicy{MaxConcurrentMatches: 1},
		Tuning:           game.DefaultTuning(),
	}
}

// CreateRequest asks for a new bout
type CreateRequest struct {
	P1ID       string
	P2ID       string
	Simulation bool
	Countdown  float64 // seconds; > 0 auto-starts the bout
	P1Bot      string  // persona key, empty for a human player
	P2Bot      string
}

// Option customizes a Registry
type Option func(*Registry)

// WithRecorders adds result sinks called after the profile store
func WithRecorders(recorders ...store.ResultRecorder) Option {
	return func(r *Registry) {
		r.recorders = append(r.recorders, recorders...)
	}
}

// WithJournal streams every match log entry to an audit journal
func WithJournal(j *Journal) Option {
	return func(r *Registry) { r.journal = j }
}

// WithRandFactory controls the random source each engine gets
func WithRandFactory(f func() game.Rand) Option {
	return func(r *Registry) { r.newRand = f }
}

// Registry owns every live match
type Registry struct {
	cfg       Config
	profiles  store.ProfileStore
	recorders []store.ResultRecorder
	journal   *Journal
	newRand   func() game.Rand

	mu       sync.RWMutex
	sessions map[string]*Session

	ctx      context.Context
	cancel   context.CancelFunc
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewRegistry creates an empty registry
func NewRegistry(cfg Config, profiles store.ProfileStore, opts ...Option) *Registry {
	if cfg.TickRate <= 0 {
		cfg.TickRate = 60
	}
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = 5 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &Registry{
		cfg:      cfg,
		profiles: profiles,
		newRand:  func() game.Rand { return game.NewRand(0) },
		sessions: make(map[string]*Session),
		ctx:      ctx,
		cancel:   cancel,
		stopChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start runs the inactivity watchdog
func (r *Registry) Start() {
	r.mu.Lock()
	if r.running || r.cfg.StaleTimeout <= 0 {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.mu.Unlock()

	interval := r.cfg.WatchdogInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				r.reapStale(now)
			case <-r.stopChan:
				return
			}
		}
	}()
}

// Stop tears down every match and waits for all tasks
func (r *Registry) Stop() {
	r.mu.Lock()
	if r.running {
		close(r.stopChan)
		r.running = false
	}
	r.mu.Unlock()

	r.removeAll("shutdown")
	r.cancel()
	r.wg.Wait()
}

// Create validates both wrestlers, evicts per capacity policy and starts the tick task
func (r *Registry) Create(ctx context.Context, req CreateRequest) (*Session, error) {
	if req.P1ID == "" || req.P2ID == "" || req.P1ID == req.P2ID {
		return nil, eris.Wrapf(ErrInvalidRequest, "wrestlers %q and %q", req.P1ID, req.P2ID)
	}
	sim := req.Simulation || r.cfg.SimulationMode
	rng := r.newRand()

	p1, err := r.loadProfile(ctx, req.P1ID, sim, rng)
	if err != nil {
		return nil, err
	}
	p2, err := r.loadProfile(ctx, req.P2ID, sim, rng)
	if err != nil {
		return nil, err
	}

	engine := game.NewEngine(p1, p2, game.Options{Tuning: r.cfg.Tuning, Rand: rng})
	for id, key := range map[string]string{p1.ID: req.P1Bot, p2.ID: req.P2Bot} {
		if key == "" {
			continue
		}
		if persona, ok := game.Personas[key]; ok {
			engine.SetBot(id, &persona)
		}
	}
	if req.Countdown > 0 {
		engine.StartCountdown(req.Countdown)
	}

	s := newSession(uuid.NewString(), engine, sim)
	loopCtx, cancel := context.WithCancel(r.ctx)
	s.cancel = cancel

	for {
		r.mu.Lock()
		victims := r.evictLocked()
		if len(victims) == 0 {
			r.sessions[s.ID] = s
			activeMatches.Set(float64(len(r.sessions)))
			r.mu.Unlock()
			break
		}
		r.mu.Unlock()
		for _, v := range victims {
			log.Info().Str("match", v.ID).Str("replacement", s.ID).Msg("🧹 match evicted by capacity policy")
			v.stop()
			matchesEnded.WithLabelValues("evicted").Inc()
		}
	}

	r.wg.Add(1)
	go r.run(loopCtx, s)

	log.Info().Str("match", s.ID).Str("p1", p1.ID).Str("p2", p2.ID).Bool("simulation", sim).Msg("🏁 match created")
	return s, nil
}

// evictLocked unregisters the oldest sessions the policy says must go
func (r *Registry) evictLocked() []*Session {
	n := r.cfg.Capacity.evictions(len(r.sessions))
	if n == 0 {
		return nil
	}
	all := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })

	victims := all[:n]
	for _, v := range victims {
		delete(r.sessions, v.ID)
	}
	return victims
}

func (r *Registry) loadProfile(ctx context.Context, id string, sim bool, rng game.Rand) (game.Profile, error) {
	p, err := r.profiles.Get(ctx, id)
	if err == nil {
		return p, nil
	}
	if sim {
		log.Warn().Err(err).Str("wrestler", id).Msg("⚠️ profile unavailable, using synthetic stand-in")
		return game.SyntheticProfile(id, rng), nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return game.Profile{}, err
	}
	return game.Profile{}, eris.Wrapf(err, "load wrestler %q", id)
}

// run is the per-match tick task
func (r *Registry) run(ctx context.Context, s *Session) {
	defer r.wg.Done()
	defer close(s.done)
	defer s.release()
	defer r.unregister(s)

	dt := 1.0 / float64(r.cfg.TickRate)
	ticker := time.NewTicker(time.Second / time.Duration(r.cfg.TickRate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		start := time.Now()
		snap := s.engine.Tick(dt)
		s.touch()
		r.journalEntries(s)

		if msg, err := encodeSnapshot(EventState, s.ID, snap); err == nil {
			s.broadcast(msg)
		}
		recordTick(time.Since(start))

		if snap.GameOver {
			r.finish(ctx, s)
			return
		}
	}
}

// finish broadcasts the final snapshot, persists the result and holds the
// match for the grace period so late observers can see the outcome
func (r *Registry) finish(ctx context.Context, s *Session) {
	final := s.engine.Snapshot()
	if msg, err := encodeSnapshot(EventOver, s.ID, final); err == nil {
		s.broadcast(msg)
	}

	summary := s.engine.Summary(s.ID)
	r.persist(summary, s.Simulation)
	log.Info().Str("match", s.ID).Str("winner", summary.WinnerName).Float64("duration", summary.Duration).Msg("🏆 match over")

	grace := time.NewTimer(r.cfg.GracePeriod)
	defer grace.Stop()
	select {
	case <-grace.C:
		matchesEnded.WithLabelValues("game_over").Inc()
	case <-ctx.Done():
	}

	if msg, err := encode(Envelope{Event: EventEnded, MatchID: s.ID, Sent: time.Now().UnixMilli()}); err == nil {
		s.broadcast(msg)
	}
}

// persist hands the summary to the profile store and every extra recorder.
// Simulation bouts may involve synthetic stand-ins, so they skip the profile store.
// Failures are logged, never fatal to cleanup.
func (r *Registry) persist(summary game.Summary, simulation bool) {
	sinks := r.recorders
	if !simulation {
		sinks = append([]store.ResultRecorder{r.profiles}, r.recorders...)
	}
	for _, sink := range sinks {
		ctx, cancel := context.WithTimeout(context.Background(), r.cfg.PersistTimeout)
		err := sink.RecordMatchResult(ctx, summary)
		cancel()
		if err != nil {
			persistFailures.Inc()
			log.Error().Err(err).Str("match", summary.MatchID).Msg("❌ failed to persist match result")
		}
	}
}

func (r *Registry) journalEntries(s *Session) {
	if r.journal == nil {
		return
	}
	entries, n := s.engine.LogSince(s.logCursor)
	s.logCursor = n
	for _, ev := range entries {
		r.journal.Append(s.ID, ev)
	}
}

// unregister removes s if it is still the session registered under its id
func (r *Registry) unregister(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.sessions[s.ID]; ok && cur == s {
		delete(r.sessions, s.ID)
	}
	activeMatches.Set(float64(len(r.sessions)))
}

// remove unregisters and stops one match
func (r *Registry) remove(id, reason string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
		activeMatches.Set(float64(len(r.sessions)))
	}
	r.mu.Unlock()
	if !ok {
		return false
	}
	s.stop()
	matchesEnded.WithLabelValues(reason).Inc()
	return true
}

func (r *Registry) removeAll(reason string) int {
	r.mu.RLock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	n := 0
	for _, id := range ids {
		if r.remove(id, reason) {
			n++
		}
	}
	return n
}

// reapStale tears down matches with no tick or input since StaleTimeout before now
func (r *Registry) reapStale(now time.Time) int {
	r.mu.RLock()
	var stale []string
	for id, s := range r.sessions {
		if now.Sub(s.LastActivity()) > r.cfg.StaleTimeout {
			stale = append(stale, id)
		}
	}
	r.mu.RUnlock()

	n := 0
	for _, id := range stale {
		if r.remove(id, "stale") {
			log.Warn().Str("match", id).Msg("⏰ stale match removed")
			n++
		}
	}
	return n
}

// Get returns a live session
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

func (r *Registry) session(id string) (*Session, error) {
	s, ok := r.Get(id)
	if !ok {
		return nil, eris.Wrapf(ErrMatchNotFound, "match %q", id)
	}
	return s, nil
}

// Attach registers an observer and immediately sends it the current snapshot
func (r *Registry) Attach(matchID string, obs Observer) error {
	s, err := r.session(matchID)
	if err != nil {
		return err
	}
	return s.attach(obs)
}

// Detach removes an observer. Unknown matches or observers are fine.
func (r *Registry) Detach(matchID string, obs Observer) {
	if s, ok := r.Get(matchID); ok {
		s.detach(obs)
	}
}

// HandleInput forwards a player action to the named match
func (r *Registry) HandleInput(matchID, playerID, action string) error {
	s, err := r.session(matchID)
	if err != nil {
		return err
	}
	s.touch()
	s.engine.HandleInput(playerID, action)
	inputsTotal.Inc()
	return nil
}

// HandleWrestlerInput finds the live match a wrestler is fighting in and forwards the action
func (r *Registry) HandleWrestlerInput(wrestlerID, action string) (string, error) {
	r.mu.RLock()
	var target *Session
	for _, s := range r.sessions {
		if s.engine.Has(wrestlerID) && (target == nil || s.CreatedAt.After(target.CreatedAt)) {
			target = s
		}
	}
	r.mu.RUnlock()

	if target == nil {
		return "", eris.Wrapf(ErrMatchNotFound, "no match for wrestler %q", wrestlerID)
	}
	target.touch()
	target.engine.HandleInput(wrestlerID, action)
	inputsTotal.Inc()
	return target.ID, nil
}

// Control commands accepted from the privileged path only
const (
	ControlCountdown  = "COUNTDOWN"
	ControlForceStart = "FORCE_START"
)

// Control starts a match by countdown or immediately
func (r *Registry) Control(matchID, command string, seconds float64) error {
	s, err := r.session(matchID)
	if err != nil {
		return err
	}

	var ok bool
	switch command {
	case ControlCountdown:
		if seconds <= 0 {
			seconds = 3
		}
		ok = s.engine.StartCountdown(seconds)
	case ControlForceStart:
		ok = s.engine.ForceStart()
	default:
		return eris.Wrapf(ErrInvalidRequest, "unknown control %q", command)
	}
	if !ok {
		return eris.Wrapf(ErrControlRejected, "match %q", matchID)
	}
	s.touch()
	return nil
}

// Active lists live matches, newest first
func (r *Registry) Active() []Info {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	out := make([]Info, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Clear tears down every match
func (r *Registry) Clear() int {
	return r.removeAll("cleared")
}

// Count returns live matches
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Capacity returns the configured policy
func (r *Registry) Capacity() CapacityPolicy {
	return r.cfg.Capacity
}
