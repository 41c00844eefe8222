// Package operator holds the shared control-plane state between the
// tick loop and the operator HTTP API: pause/resume, stop requests,
// runtime-adjustable tick speed, injected events, and simulation bounds.
// Every mutable field is lock-free on the hot path so the tick loop never
// blocks behind an API handler.
package operator

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// EndReason classifies why a simulation run stopped.
type EndReason uint8

const (
	EndNone EndReason = iota
	EndMaxTicksReached
	EndMaxRealTimeReached
	EndOperatorStop
	EndExtinction
	EndOperatorRestart
)

func (r EndReason) String() string {
	switch r {
	case EndMaxTicksReached:
		return "max_ticks_reached"
	case EndMaxRealTimeReached:
		return "max_real_time_reached"
	case EndOperatorStop:
		return "operator_stop"
	case EndExtinction:
		return "extinction"
	case EndOperatorRestart:
		return "operator_restart"
	default:
		return "none"
	}
}

// InjectedEvent is an operator-supplied event queued for the next tick's
// World Wake phase.
type InjectedEvent struct {
	EventType    string
	TargetRegion string
	Severity     string
	Description  string
}

// Bounds caps how long a simulation may run before it self-stops.
// Zero means unlimited for either field.
type Bounds struct {
	MaxTicks           uint64
	MaxRealTimeSeconds uint64
}

// SpawnRequest is an operator-queued agent spawn, applied at the next
// tick's World Wake phase rather than mid-tick.
type SpawnRequest struct {
	LocationID uuid.UUID
	Count      int
}

// State is the shared control-plane state, safe for concurrent use by
// the tick loop and any number of API handler goroutines.
type State struct {
	paused           atomic.Bool
	stopRequested    atomic.Bool
	restartRequested atomic.Bool
	tickIntervalMs   atomic.Uint64
	startedAt     time.Time
	bounds        Bounds

	resumeCh chan struct{}

	mu             sync.Mutex
	injectedEvents []InjectedEvent
	queuedSpawns   []SpawnRequest
	endReason      EndReason
}

// New creates operator state for a run with the given starting tick
// interval and bounds.
func New(tickIntervalMs uint64, bounds Bounds) *State {
	s := &State{
		startedAt: time.Now().UTC(),
		bounds:    bounds,
		resumeCh:  make(chan struct{}, 1),
	}
	s.tickIntervalMs.Store(tickIntervalMs)
	return s
}

// IsPaused reports whether the simulation is currently paused.
func (s *State) IsPaused() bool { return s.paused.Load() }

// Pause stops the tick loop from advancing until Resume is called.
func (s *State) Pause() { s.paused.Store(true) }

// Resume clears the pause flag and wakes one blocked WaitIfPaused call.
func (s *State) Resume() {
	s.paused.Store(false)
	select {
	case s.resumeCh <- struct{}{}:
	default:
	}
}

// WaitIfPaused blocks until the simulation is resumed, or ctx-like done
// channel closes. Returns immediately if not paused.
func (s *State) WaitIfPaused(done <-chan struct{}) {
	for s.paused.Load() {
		select {
		case <-s.resumeCh:
		case <-done:
			return
		}
	}
}

// RequestStop asks the tick loop to end the run cleanly after the
// current tick.
func (s *State) RequestStop() { s.stopRequested.Store(true) }

// IsStopRequested reports whether RequestStop has been called.
func (s *State) IsStopRequested() bool { return s.stopRequested.Load() }

// RequestRestart asks the tick loop to end the current run (as RequestStop
// does) but marks the end as a restart rather than a stop, so the host
// process knows to regenerate the world and start a fresh run instead of
// exiting.
func (s *State) RequestRestart() {
	s.restartRequested.Store(true)
	s.stopRequested.Store(true)
}

// IsRestartRequested reports whether RequestRestart has been called.
func (s *State) IsRestartRequested() bool { return s.restartRequested.Load() }

// SetEndReason records why the run ended. Only the first call sticks.
func (s *State) SetEndReason(reason EndReason) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.endReason == EndNone {
		s.endReason = reason
	}
}

// EndReason returns the recorded end reason, or EndNone if still running.
func (s *State) EndReason() EndReason {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endReason
}

// TickIntervalMs returns the current tick interval in milliseconds.
func (s *State) TickIntervalMs() uint64 { return s.tickIntervalMs.Load() }

// SetTickIntervalMs sets a new tick interval, rejecting values below
// 100ms. Returns the previous interval on success.
func (s *State) SetTickIntervalMs(ms uint64) (previous uint64, ok bool) {
	if ms < 100 {
		return 0, false
	}
	return s.tickIntervalMs.Swap(ms), true
}

// TickLimitReached reports whether the configured tick bound has been hit.
func (s *State) TickLimitReached(currentTick uint64) bool {
	return s.bounds.MaxTicks > 0 && currentTick >= s.bounds.MaxTicks
}

// TimeLimitReached reports whether the configured wall-clock bound has
// been hit.
func (s *State) TimeLimitReached() bool {
	if s.bounds.MaxRealTimeSeconds == 0 {
		return false
	}
	return s.ElapsedSeconds() >= s.bounds.MaxRealTimeSeconds
}

// StartedAt returns the wall-clock time the run began.
func (s *State) StartedAt() time.Time { return s.startedAt }

// ElapsedSeconds returns whole seconds elapsed since the run began.
func (s *State) ElapsedSeconds() uint64 {
	elapsed := time.Since(s.startedAt)
	if elapsed < 0 {
		return 0
	}
	return uint64(elapsed.Seconds())
}

// Bounds returns the configured simulation bounds.
func (s *State) Bounds() Bounds { return s.bounds }

// InjectEvent queues an event for application at the start of the next
// World Wake phase.
func (s *State) InjectEvent(e InjectedEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.injectedEvents = append(s.injectedEvents, e)
}

// DrainInjectedEvents removes and returns every queued event.
func (s *State) DrainInjectedEvents() []InjectedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	drained := s.injectedEvents
	s.injectedEvents = nil
	return drained
}

// QueueAgentSpawn queues a spawn request for the next tick's World Wake
// phase.
func (s *State) QueueAgentSpawn(req SpawnRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queuedSpawns = append(s.queuedSpawns, req)
}

// DrainQueuedSpawns removes and returns every queued spawn request.
func (s *State) DrainQueuedSpawns() []SpawnRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	drained := s.queuedSpawns
	s.queuedSpawns = nil
	return drained
}

// Status is the JSON-serializable snapshot the operator API reports.
type Status struct {
	Tick               uint64    `json:"tick"`
	Paused             bool      `json:"paused"`
	StopRequested      bool      `json:"stop_requested"`
	TickIntervalMs     uint64    `json:"tick_interval_ms"`
	ElapsedSeconds     uint64    `json:"elapsed_seconds"`
	MaxTicks           uint64    `json:"max_ticks"`
	MaxRealTimeSeconds uint64    `json:"max_real_time_seconds"`
	AgentsAlive        int       `json:"agents_alive"`
	AgentsTotal        int       `json:"agents_total"`
	EndReason          string    `json:"end_reason,omitempty"`
	StartedAt          time.Time `json:"started_at"`
}

// Snapshot builds a Status for the operator API, given the current tick
// and agent counts supplied by the caller (the tick engine owns those).
func (s *State) Snapshot(tick uint64, agentsAlive, agentsTotal int) Status {
	end := s.EndReason()
	var endStr string
	if end != EndNone {
		endStr = end.String()
	}
	return Status{
		Tick:               tick,
		Paused:             s.IsPaused(),
		StopRequested:      s.IsStopRequested(),
		TickIntervalMs:     s.TickIntervalMs(),
		ElapsedSeconds:     s.ElapsedSeconds(),
		MaxTicks:           s.bounds.MaxTicks,
		MaxRealTimeSeconds: s.bounds.MaxRealTimeSeconds,
		AgentsAlive:        agentsAlive,
		AgentsTotal:        agentsTotal,
		EndReason:          endStr,
		StartedAt:          s.startedAt,
	}
}
