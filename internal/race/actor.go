package race

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	applogger "github.com/yourusername/runbattle/internal/logger"
	"github.com/yourusername/runbattle/internal/metrics"
	"github.com/yourusername/runbattle/internal/models"
)

// ActorConfig holds the per-session engine tunables
type ActorConfig struct {
	Countdown       time.Duration
	GraceTimeout    time.Duration
	MinParticipants int
	QueueSize       int
	PersistTimeout  time.Duration
	Filter          FilterConfig
}

// DefaultActorConfig returns production defaults
func DefaultActorConfig() ActorConfig {
	return ActorConfig{
		Countdown:       5 * time.Second,
		GraceTimeout:    60 * time.Second,
		MinParticipants: 2,
		QueueSize:       256,
		PersistTimeout:  10 * time.Second,
		Filter:          DefaultFilterConfig(),
	}
}

// Actor owns one race session. It is the single writer for the session's
// state machine, ledger and filter states: every mutation flows through its
// event queue and is processed one at a time, in arrival order. Timer
// expiries (countdown, grace) fire inside the same loop, so there is never
// a second thread of authority for a session.
type Actor struct {
	cfg         ActorConfig
	sm          *StateMachine
	ledger      *Ledger
	filter      *PositionFilter
	filterState map[uuid.UUID]*FilterState
	coordinator *Coordinator
	baseline    *models.GhostBaseline

	members map[uuid.UUID]bool
	ready   map[uuid.UUID]bool

	broadcaster Broadcaster
	sink        ResultSink
	clock       clockwork.Clock
	logger      *logrus.Logger
	audit       *applogger.AuditLogger

	events chan Event
	done   chan struct{}

	countdownTimer clockwork.Timer
	graceTimer     clockwork.Timer

	// onTerminal is the manager's teardown hook
	onTerminal func(sessionID uuid.UUID)

	// mu guards session/ledger state against external readers (Status,
	// Ranking); all writes happen on the actor goroutine.
	mu sync.RWMutex
}

// NewActor creates a session actor in LOBBY with the given membership
func NewActor(
	session *models.Session,
	members []uuid.UUID,
	baseline *models.GhostBaseline,
	cfg ActorConfig,
	broadcaster Broadcaster,
	sink ResultSink,
	clock clockwork.Clock,
	logger *logrus.Logger,
) *Actor {
	memberSet := make(map[uuid.UUID]bool, len(members))
	for _, id := range members {
		memberSet[id] = true
	}

	return &Actor{
		cfg:         cfg,
		sm:          NewStateMachine(session),
		filter:      NewPositionFilter(cfg.Filter),
		filterState: make(map[uuid.UUID]*FilterState, len(members)),
		coordinator: NewCoordinator(cfg.GraceTimeout),
		baseline:    baseline,
		members:     memberSet,
		ready:       make(map[uuid.UUID]bool, len(members)),
		broadcaster: broadcaster,
		sink:        sink,
		clock:       clock,
		logger:      logger,
		audit:       applogger.NewAuditLogger(logger),
		events:      make(chan Event, cfg.QueueSize),
		done:        make(chan struct{}),
	}
}

// Start launches the actor goroutine
func (a *Actor) Start(ctx context.Context) {
	go a.run(ctx)
}

// Done is closed once the actor has torn down
func (a *Actor) Done() <-chan struct{} {
	return a.done
}

// Status returns the current session status
func (a *Actor) Status() models.SessionStatus {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.sm.Status()
}

// Session returns a copy of the session record
func (a *Actor) Session() models.Session {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return *a.sm.Session()
}

// Ranking returns the current ranking, or nil before the race starts
func (a *Actor) Ranking() []RankedParticipant {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.ledger == nil {
		return nil
	}
	return Rank(a.ledger.Snapshot(), a.sm.Session().TargetDistanceM)
}

// Enqueue delivers an event to the actor. Events arriving after teardown
// are dropped silently: a terminal session never reopens.
func (a *Actor) Enqueue(ev Event) error {
	select {
	case <-a.done:
		metrics.EventsDroppedTotal.Inc()
		a.logger.WithFields(logrus.Fields{
			"session_id": a.sm.Session().ID,
			"event_type": ev.Type,
		}).Debug("Dropping event for terminal session")
		return nil
	default:
	}

	select {
	case a.events <- ev:
		return nil
	default:
		return models.ErrQueueFull
	}
}

func (a *Actor) run(ctx context.Context) {
	defer a.stopTimers()

	for {
		select {
		case <-ctx.Done():
			a.shutdown()
			return
		case ev := <-a.events:
			metrics.EventQueueDepth.Observe(float64(len(a.events)))
			a.process(ev)
		case <-timerChan(a.countdownTimer):
			a.processTimer(a.handleCountdownElapsed)
		case <-timerChan(a.graceTimer):
			a.processTimer(a.handleGraceExpired)
		}

		if a.Status() == models.StatusCompleted || a.Status() == models.StatusCancelled {
			a.teardown()
			return
		}
	}
}

// timerChan tolerates unset timers: selecting on a nil channel blocks forever
func timerChan(t clockwork.Timer) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.Chan()
}

// process runs one event with panic isolation. An unexpected panic while
// processing must not leave the session in an undefined state while clients
// believe the race continues, so the session is forced to CANCELLED.
func (a *Actor) process(ev Event) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			a.logger.WithFields(logrus.Fields{
				"session_id": a.sm.Session().ID,
				"event_type": ev.Type,
				"panic":      r,
			}).Error("Session actor panicked, forcing session cancellation")
			a.forceCancel()
		}
		metrics.EventProcessingDuration.Observe(time.Since(start).Seconds())
	}()

	a.mu.Lock()
	defer a.mu.Unlock()
	a.handleEvent(ev)
}

func (a *Actor) processTimer(handler func()) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.WithFields(logrus.Fields{
				"session_id": a.sm.Session().ID,
				"panic":      r,
			}).Error("Session actor panicked in timer handler, forcing session cancellation")
			a.forceCancel()
		}
	}()

	a.mu.Lock()
	defer a.mu.Unlock()
	handler()
}

func (a *Actor) handleEvent(ev Event) {
	if a.sm.Session().IsTerminal() {
		metrics.EventsDroppedTotal.Inc()
		return
	}

	switch ev.Type {
	case EventReady:
		a.handleReady(ev)
	case EventPosition:
		a.handlePosition(ev)
	case EventFinishClaim:
		a.handleFinishClaim(ev)
	case EventQuit:
		a.handleQuit(ev)
	case EventLobbyExpiry:
		a.handleLobbyExpiry()
	default:
		a.logger.WithField("event_type", ev.Type).Warn("Unknown session event type")
	}
}

func (a *Actor) handleReady(ev Event) {
	if a.sm.Status() != models.StatusLobby || !a.members[ev.ParticipantID] {
		return
	}
	a.ready[ev.ParticipantID] = true
	if len(a.ready) == len(a.members) {
		a.beginCountdown()
	}
}

// handleLobbyExpiry is the sweeper-injected lobby deadline decision: start
// the race if enough members remain, otherwise cancel.
func (a *Actor) handleLobbyExpiry() {
	if a.sm.Status() != models.StatusLobby {
		return
	}
	if len(a.members) >= a.cfg.MinParticipants {
		a.beginCountdown()
		return
	}
	a.cancel()
}

func (a *Actor) beginCountdown() {
	if err := a.sm.BeginCountdown(); err != nil {
		a.logger.WithError(err).Warn("Failed to begin countdown")
		return
	}
	a.countdownTimer = a.clock.NewTimer(a.cfg.Countdown)
	a.broadcastTransition(0)
}

func (a *Actor) handleCountdownElapsed() {
	if a.sm.Status() != models.StatusCountdown {
		return
	}
	now := a.clock.Now()
	if err := a.sm.Start(now); err != nil {
		a.logger.WithError(err).Warn("Failed to start session")
		return
	}

	memberIDs := make([]uuid.UUID, 0, len(a.members))
	for id := range a.members {
		memberIDs = append(memberIDs, id)
	}
	a.ledger = NewLedger(memberIDs, now)

	a.logger.WithFields(logrus.Fields{
		"session_id":   a.sm.Session().ID,
		"participants": len(memberIDs),
		"target_m":     a.sm.Session().TargetDistanceM,
	}).Info("Race started")

	a.broadcastTransition(0)
	a.broadcastRanking()
}

func (a *Actor) handlePosition(ev Event) {
	sess := a.sm.Session()
	if !sess.IsLive() {
		// Pre-start GPS drift never counts; late samples never reopen
		a.logger.WithFields(logrus.Fields{
			"session_id": sess.ID,
			"status":     sess.Status,
		}).Debug("Dropping position sample outside live window")
		return
	}

	p := a.ledger.Get(ev.ParticipantID)
	if p == nil {
		return
	}

	now := a.clock.Now()
	elapsedMs := sess.ElapsedMs(now)

	delta, verdict := a.filter.Apply(a.filterStateFor(ev.ParticipantID), ev.Sample)
	metrics.RecordSampleVerdict(string(verdict))

	// A finished participant's stream keeps flowing for liveness but must
	// not move its result.
	if p.IsTerminal() {
		a.ledger.Touch(ev.ParticipantID, now)
		return
	}

	changed := false
	if verdict == VerdictAccepted {
		changed = a.ledger.RecordDistance(ev.ParticipantID, delta, elapsedMs, now)
	} else {
		a.ledger.Touch(ev.ParticipantID, now)
	}

	newlyFinished := false
	if p.DistanceM >= sess.TargetDistanceM {
		newlyFinished = a.ledger.MarkFinished(ev.ParticipantID, elapsedMs, now)
		changed = changed || newlyFinished
	}

	a.afterMutation(changed, newlyFinished)
}

// handleFinishClaim reconciles a client-asserted completion against the
// server-computed distance. The ledger's own threshold check is
// authoritative: a fast or buggy client must not mis-rank itself.
func (a *Actor) handleFinishClaim(ev Event) {
	sess := a.sm.Session()
	if !sess.IsLive() || ev.Claim == nil {
		return
	}
	p := a.ledger.Get(ev.ParticipantID)
	if p == nil || p.IsTerminal() {
		return
	}

	now := a.clock.Now()
	elapsedMs := sess.ElapsedMs(now)

	if math.Abs(ev.Claim.TotalDistanceM-p.DistanceM) > 1 {
		metrics.FinishClaimMismatchTotal.Inc()
		a.audit.LogFinishClaimMismatch(sess.ID, ev.ParticipantID, ev.Claim.TotalDistanceM, p.DistanceM)
	}

	if p.DistanceM < sess.TargetDistanceM {
		// Claim rejected; the participant keeps running server-side
		return
	}

	newlyFinished := a.ledger.MarkFinished(ev.ParticipantID, elapsedMs, now)
	a.afterMutation(newlyFinished, newlyFinished)
}

func (a *Actor) handleQuit(ev Event) {
	status := a.sm.Status()

	if status == models.StatusLobby || status == models.StatusCountdown {
		if !a.members[ev.ParticipantID] {
			return
		}
		delete(a.members, ev.ParticipantID)
		delete(a.ready, ev.ParticipantID)
		if len(a.members) < a.cfg.MinParticipants {
			a.cancel()
		}
		return
	}

	if !a.sm.Session().IsLive() {
		return
	}
	changed := a.ledger.MarkQuit(ev.ParticipantID, a.clock.Now())
	a.afterMutation(changed, false)
}

func (a *Actor) handleGraceExpired() {
	if a.sm.Status() != models.StatusGraceTimeout {
		return
	}
	a.evaluateCompletion(false)
}

// afterMutation runs the completion coordinator and fan-out after a ledger
// change. Broadcasts only fire when the snapshot actually changed.
func (a *Actor) afterMutation(changed, newlyFinished bool) {
	if !changed {
		return
	}
	a.evaluateCompletion(newlyFinished)
	if !a.sm.Session().IsTerminal() {
		a.broadcastRanking()
		a.broadcastGhost()
	}
}

func (a *Actor) evaluateCompletion(newlyFinished bool) {
	now := a.clock.Now()
	sess := a.sm.Session()

	switch a.coordinator.Evaluate(sess, a.ledger.Snapshot(), newlyFinished, now) {
	case DecisionComplete:
		a.complete(now)
	case DecisionEnterGrace:
		if err := a.sm.EnterGrace(now, a.cfg.GraceTimeout); err != nil {
			a.logger.WithError(err).Warn("Failed to enter grace timeout")
			return
		}
		a.graceTimer = a.clock.NewTimer(a.cfg.GraceTimeout)
		a.logger.WithFields(logrus.Fields{
			"session_id":    sess.ID,
			"grace_timeout": a.cfg.GraceTimeout,
		}).Info("First finisher crossed the line, grace window opened")
		a.broadcastTransition(int(a.cfg.GraceTimeout.Seconds()))
	case DecisionExpireGrace:
		forced := a.ledger.ForceQuitActive(now)
		metrics.GraceTimeoutsTotal.Inc()
		a.audit.LogForcedQuit(sess.ID, forced)
		a.complete(now)
	}
}

func (a *Actor) complete(now time.Time) {
	if err := a.sm.Complete(now); err != nil {
		a.logger.WithError(err).Warn("Failed to complete session")
		return
	}
	metrics.SessionsCompletedTotal.Inc()

	a.broadcastRanking()
	a.broadcastTransition(0)
	a.persistResult(now)

	a.logger.WithField("session_id", a.sm.Session().ID).Info("Session completed")
}

// cancel ends a session that never reached RUNNING
func (a *Actor) cancel() {
	if err := a.sm.Cancel(a.clock.Now()); err != nil {
		a.logger.WithError(err).Warn("Failed to cancel session")
		return
	}
	metrics.SessionsCancelledTotal.Inc()
	a.broadcastTransition(0)
	a.archiveSession()
	a.logger.WithField("session_id", a.sm.Session().ID).Info("Session cancelled")
}

// forceCancel terminates the session after a structural failure. Clients
// must be told explicitly so they can navigate away rather than hang.
func (a *Actor) forceCancel() {
	a.mu.Lock()
	if a.sm.Session().IsTerminal() {
		a.mu.Unlock()
		return
	}
	a.sm.ForceCancel(a.clock.Now())
	a.mu.Unlock()

	metrics.SessionsCancelledTotal.Inc()
	a.broadcastTransition(0)
	a.archiveSession()
}

// shutdown handles process-level context cancellation
func (a *Actor) shutdown() {
	a.mu.Lock()
	terminal := a.sm.Session().IsTerminal()
	if !terminal {
		a.sm.ForceCancel(a.clock.Now())
	}
	a.mu.Unlock()

	if !terminal {
		metrics.SessionsCancelledTotal.Inc()
		a.broadcastTransition(0)
		a.archiveSession()
	}
	a.teardown()
}

// teardown closes the actor after a terminal state has been reached
func (a *Actor) teardown() {
	select {
	case <-a.done:
		return
	default:
	}
	close(a.done)

	sess := a.sm.Session()
	endedAt := a.clock.Now()
	if sess.EndedAt != nil {
		endedAt = *sess.EndedAt
	}
	size := 0
	if a.ledger != nil {
		size = a.ledger.Size()
	}
	a.audit.LogSessionOutcome(sess.ID, string(sess.Status), size, endedAt)

	if a.onTerminal != nil {
		a.onTerminal(a.sm.Session().ID)
	}
}

func (a *Actor) stopTimers() {
	if a.countdownTimer != nil {
		a.countdownTimer.Stop()
	}
	if a.graceTimer != nil {
		a.graceTimer.Stop()
	}
}

func (a *Actor) filterStateFor(userID uuid.UUID) *FilterState {
	fs, ok := a.filterState[userID]
	if !ok {
		fs = &FilterState{}
		a.filterState[userID] = fs
	}
	return fs
}

func (a *Actor) broadcastRanking() {
	if a.ledger == nil {
		return
	}
	sess := a.sm.Session()
	a.broadcaster.BroadcastRanking(sess.ID, Rank(a.ledger.Snapshot(), sess.TargetDistanceM))
	metrics.RecordBroadcast("ranking")
}

func (a *Actor) broadcastTransition(graceSeconds int) {
	sess := a.sm.Session()
	a.broadcaster.BroadcastTransition(sess.ID, sess.Status, graceSeconds)
	metrics.RecordBroadcast("transition")
}

func (a *Actor) broadcastGhost() {
	sess := a.sm.Session()
	if sess.Mode != models.ModeSoloGhost || a.baseline == nil || a.ledger == nil {
		return
	}
	for _, p := range a.ledger.Snapshot() {
		a.broadcaster.BroadcastGhost(sess.ID, CompareToBaseline(a.baseline, p.DistanceM, p.ElapsedMs))
		metrics.RecordBroadcast("ghost")
		break
	}
}

func (a *Actor) persistResult(completedAt time.Time) {
	result := a.buildResult(completedAt)

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.PersistTimeout)
	defer cancel()

	start := time.Now()
	if err := a.sink.SaveResult(ctx, result); err != nil {
		a.logger.WithError(err).WithField("session_id", result.SessionID).Error("Failed to persist race result")
	}
	metrics.ResultPersistLatency.Observe(time.Since(start).Seconds())

	if err := a.sink.ArchiveSession(ctx, a.sm.Session()); err != nil {
		a.logger.WithError(err).WithField("session_id", result.SessionID).Error("Failed to archive session")
	}
}

func (a *Actor) archiveSession() {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.PersistTimeout)
	defer cancel()
	if err := a.sink.ArchiveSession(ctx, a.sm.Session()); err != nil {
		a.logger.WithError(err).WithField("session_id", a.sm.Session().ID).Error("Failed to archive session")
	}
}

func (a *Actor) buildResult(completedAt time.Time) *models.RaceResult {
	sess := a.sm.Session()
	ranking := Rank(a.ledger.Snapshot(), sess.TargetDistanceM)

	var winner *RankedParticipant
	for i := range ranking {
		if ranking[i].Rank == 1 {
			winner = &ranking[i]
			break
		}
	}

	entries := make([]models.ResultEntry, 0, len(ranking))
	for _, r := range ranking {
		entry := models.ResultEntry{
			UserID:         r.UserID,
			FinalRank:      r.Rank,
			Status:         r.Status,
			TotalDistanceM: decimalFrom(r.DistanceM),
			TotalTimeMs:    r.ElapsedMs,
			AvgPaceMinKm:   decimalFrom(r.PaceMinPerKm),
		}
		if sess.Mode == models.ModeHeadToHead && winner != nil && r.UserID != winner.UserID {
			if r.IsFinished {
				entry.DeltaToWinnerMs = r.ElapsedMs - winner.ElapsedMs
			}
			entry.DeltaToWinnerM = decimalFrom(winner.DistanceM - r.DistanceM)
		}
		entries = append(entries, entry)
	}

	return &models.RaceResult{
		SessionID:       sess.ID,
		Mode:            sess.Mode,
		TargetDistanceM: sess.TargetDistanceM,
		CompletedAt:     completedAt,
		Entries:         entries,
	}
}

// decimalFrom rounds a display figure for exact persistence
func decimalFrom(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f).Round(2)
}
