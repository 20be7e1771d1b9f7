package session

import (
	"sort"
	"sync"
	"time"

	"github.com/hoosierprep/sessiond/internal/model"
	"github.com/hoosierprep/sessiond/internal/ordering"
)

// Store is the single mutable owner of the active attempt's state. At most
// one attempt is alive at a time; switching exams tears the state down and
// rebuilds it under a new epoch, so callbacks from a previous attempt can
// never write into the new one.
//
// The original design assumes a single-threaded event loop. Here a mutex
// serializes mutations instead, and the isSaving/isSubmitting flags remain
// the logical concurrency discipline exactly as specified: no overlapping
// saves, no duplicate submissions.
type Store struct {
	mu sync.Mutex

	// epoch increments on every Load and Reset. Async completions carry
	// the epoch they started under and are discarded when it no longer
	// matches (stale-response guard).
	epoch uint64

	examID    int64
	mode      model.Mode
	phase     model.Phase
	attemptID int64
	startedAt time.Time

	questions    []model.Question
	questionByID map[int64]model.Question

	displayOrder []int64
	answers      map[int64]model.AnswerValue
	bookmarks    map[int64]struct{}
	cursor       int
	completed    map[int64]struct{}

	// answerKey holds the correct answers for practice-mode instant
	// feedback. Never populated in exam mode.
	answerKey map[int64]model.AnswerValue

	// lastSaved is the canonical serialization of answers at the last
	// acknowledged save. dirty is recomputed against it on every mutation.
	lastSaved string
	dirty     bool

	terminal   bool
	saving     bool
	submitting bool

	// pendingAttemptID is set while phase is RESUME_PENDING.
	pendingAttemptID int64
}

// NewStore returns an empty store with no session loaded.
func NewStore() *Store {
	s := &Store{}
	s.clearLocked()
	return s
}

// clearLocked resets every field to the empty-session state. Callers hold mu.
func (s *Store) clearLocked() {
	s.examID = 0
	s.mode = ""
	s.phase = model.PhaseNoAttempt
	s.attemptID = 0
	s.startedAt = time.Time{}
	s.questions = nil
	s.questionByID = nil
	s.displayOrder = nil
	s.answers = make(map[int64]model.AnswerValue)
	s.bookmarks = make(map[int64]struct{})
	s.cursor = 0
	s.completed = make(map[int64]struct{})
	s.answerKey = nil
	s.lastSaved = model.EncodeAnswers(nil)
	s.dirty = false
	s.terminal = false
	s.saving = false
	s.submitting = false
	s.pendingAttemptID = 0
}

// Load resets the store for a freshly fetched question set and returns the
// new epoch. The display order stays natural until an attempt id is adopted.
func (s *Store) Load(examID int64, mode model.Mode, questions []model.Question) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearLocked()
	s.epoch++
	s.examID = examID
	s.mode = mode
	s.questions = append([]model.Question(nil), questions...)
	s.questionByID = make(map[int64]model.Question, len(questions))
	for _, q := range questions {
		s.questionByID[q.ID] = q
	}
	s.displayOrder = naturalOrder(questions)
	return s.epoch
}

// Reset tears the session down to empty. Safe to call from any teardown
// path, including while requests are in flight: the epoch bump makes their
// completions no-ops.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
	s.epoch++
}

// Epoch returns the current session epoch.
func (s *Store) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// ─── User mutations ─────────────────────────────────────────────────

// SetAnswer records an answer for a question. An empty value clears the
// answer (absence means unanswered).
func (s *Store) SetAnswer(questionID int64, value model.AnswerValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.mutableLocked(); err != nil {
		return err
	}
	if _, ok := s.questionByID[questionID]; !ok {
		return ErrUnknownQuestion
	}

	if value.IsEmpty() {
		delete(s.answers, questionID)
	} else {
		s.answers[questionID] = value
	}
	s.recomputeDirtyLocked()
	return nil
}

// ToggleBookmark flips the bookmark for a question and reports the new
// state.
func (s *Store) ToggleBookmark(questionID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.mutableLocked(); err != nil {
		return false, err
	}
	if _, ok := s.questionByID[questionID]; !ok {
		return false, ErrUnknownQuestion
	}

	if _, marked := s.bookmarks[questionID]; marked {
		delete(s.bookmarks, questionID)
		s.recomputeDirtyLocked()
		return false, nil
	}
	s.bookmarks[questionID] = struct{}{}
	s.recomputeDirtyLocked()
	return true, nil
}

// MoveCursor positions the cursor at an index into the display order.
func (s *Store) MoveCursor(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.mutableLocked(); err != nil {
		return err
	}
	if index < 0 || index >= len(s.displayOrder) {
		return ErrInvalidCursor
	}
	s.cursor = index
	s.recomputeDirtyLocked()
	return nil
}

// MarkCompleted checks a question in practice mode and reports whether
// every question in the set is now checked.
func (s *Store) MarkCompleted(questionID int64) (allDone bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.mutableLocked(); err != nil {
		return false, err
	}
	if s.mode != model.ModePractice {
		return false, ErrNotPractice
	}
	if _, ok := s.questionByID[questionID]; !ok {
		return false, ErrUnknownQuestion
	}

	s.completed[questionID] = struct{}{}
	s.recomputeDirtyLocked()
	return len(s.completed) == len(s.questions), nil
}

// mutableLocked gates user mutations: an attempt must be adopted, not
// terminal, and not mid-submission. Mutations during an in-flight save are
// fine — the save snapshot was captured at BeginSave.
func (s *Store) mutableLocked() error {
	if s.examID == 0 {
		return ErrNoSession
	}
	if s.terminal {
		return ErrTerminal
	}
	switch s.phase {
	case model.PhaseActive, model.PhaseSaving:
		return nil
	case model.PhaseSubmitting:
		return ErrSubmissionInFlight
	default:
		return ErrNotActive
	}
}

func (s *Store) recomputeDirtyLocked() {
	s.dirty = model.EncodeAnswers(s.answers) != s.lastSaved
}

// ─── Lifecycle transitions (coordinator/submitter only) ─────────────

// BeginStart transitions NO_ATTEMPT → STARTING.
func (s *Store) BeginStart(epoch uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch {
		return ErrStaleSession
	}
	if s.examID == 0 {
		return ErrNoSession
	}
	if s.phase != model.PhaseNoAttempt {
		return ErrNotActive
	}
	s.phase = model.PhaseStarting
	return nil
}

// FailStart rolls STARTING back to NO_ATTEMPT after an upstream failure.
func (s *Store) FailStart(epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch {
		return
	}
	if s.phase == model.PhaseStarting {
		s.phase = model.PhaseNoAttempt
	}
}

// AdoptAttempt binds the session to an attempt id and computes the
// deterministic display order from it. The attempt id never changes again
// for this session.
func (s *Store) AdoptAttempt(epoch uint64, attemptID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch {
		return ErrStaleSession
	}
	s.attemptID = attemptID
	s.displayOrder = ordering.QuestionOrder(attemptID, naturalOrder(s.questions))
	s.startedAt = time.Now()
	s.phase = model.PhaseActive
	s.pendingAttemptID = 0
	return nil
}

// SetResumePending parks the session awaiting the user's resume-or-restart
// decision.
func (s *Store) SetResumePending(epoch uint64, attemptID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch {
		return ErrStaleSession
	}
	s.phase = model.PhaseResumePending
	s.pendingAttemptID = attemptID
	return nil
}

// TakePendingAttempt consumes the parked attempt id, returning the session
// to NO_ATTEMPT so a fresh start or a resume can proceed.
func (s *Store) TakePendingAttempt(epoch uint64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch {
		return 0, ErrStaleSession
	}
	if s.phase != model.PhaseResumePending {
		return 0, ErrResumeNotPending
	}
	id := s.pendingAttemptID
	s.pendingAttemptID = 0
	s.phase = model.PhaseNoAttempt
	return id, nil
}

// RestoreProgress hydrates a resumed attempt. The saved-snapshot baseline
// is set to the restored answers, so a freshly resumed attempt is clean.
func (s *Store) RestoreProgress(epoch uint64, answers map[int64]model.AnswerValue, bookmarks []int64, cursor *int, completed []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch {
		return ErrStaleSession
	}

	s.answers = make(map[int64]model.AnswerValue, len(answers))
	for qid, v := range answers {
		if _, ok := s.questionByID[qid]; !ok {
			continue // Snapshot may reference questions removed upstream
		}
		if !v.IsEmpty() {
			s.answers[qid] = v
		}
	}

	s.bookmarks = make(map[int64]struct{}, len(bookmarks))
	for _, qid := range bookmarks {
		if _, ok := s.questionByID[qid]; ok {
			s.bookmarks[qid] = struct{}{}
		}
	}

	s.cursor = 0
	if cursor != nil && *cursor >= 0 && *cursor < len(s.displayOrder) {
		s.cursor = *cursor
	}

	s.completed = make(map[int64]struct{}, len(completed))
	if s.mode == model.ModePractice {
		for _, qid := range completed {
			if _, ok := s.questionByID[qid]; ok {
				s.completed[qid] = struct{}{}
			}
		}
	}

	s.lastSaved = model.EncodeAnswers(s.answers)
	s.dirty = false
	return nil
}

// SetAnswerKey installs the practice-mode answer key.
func (s *Store) SetAnswerKey(epoch uint64, key map[int64]model.AnswerValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch {
		return ErrStaleSession
	}
	s.answerKey = key
	return nil
}

// AnswerKeyEntry looks up the correct answer for a question, if the key is
// loaded.
func (s *Store) AnswerKeyEntry(questionID int64) (model.AnswerValue, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.answerKey == nil {
		return model.AnswerValue{}, false
	}
	v, ok := s.answerKey[questionID]
	return v, ok
}

// HasAnswerKey reports whether the practice answer key is loaded.
func (s *Store) HasAnswerKey() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.answerKey != nil
}

// ─── Save lifecycle ─────────────────────────────────────────────────

// SaveSnapshot is the state captured at BeginSave, consistent as of that
// instant even if the user keeps answering while the request is in flight.
type SaveSnapshot struct {
	Epoch      uint64
	AttemptID  int64
	Mode       model.Mode
	Answers    map[int64]model.AnswerValue
	Bookmarks  []int64
	Cursor     int
	Order      []int64
	Completed  []int64
	Elapsed    time.Duration
	Serialized string
}

// BeginSave transitions ACTIVE → SAVING and captures the snapshot to
// persist. Overlapping saves are rejected so the baseline cannot be
// corrupted.
func (s *Store) BeginSave() (*SaveSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.examID == 0 {
		return nil, ErrNoSession
	}
	if s.terminal {
		return nil, ErrTerminal
	}
	if s.saving {
		return nil, ErrSaveInFlight
	}
	if s.phase != model.PhaseActive {
		return nil, ErrNotActive
	}

	s.saving = true
	s.phase = model.PhaseSaving

	return &SaveSnapshot{
		Epoch:      s.epoch,
		AttemptID:  s.attemptID,
		Mode:       s.mode,
		Answers:    copyAnswers(s.answers),
		Bookmarks:  sortedIDs(s.bookmarks),
		Cursor:     s.cursor,
		Order:      append([]int64(nil), s.displayOrder...),
		Completed:  sortedIDs(s.completed),
		Elapsed:    time.Since(s.startedAt),
		Serialized: model.EncodeAnswers(s.answers),
	}, nil
}

// EndSave completes a save. On success the serialized snapshot becomes the
// new dirty baseline; on failure dirty stays set so the user can retry. A
// stale epoch means the session was torn down mid-flight and the result is
// discarded.
func (s *Store) EndSave(epoch uint64, serialized string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch {
		return
	}
	s.saving = false
	if s.phase == model.PhaseSaving {
		s.phase = model.PhaseActive
	}
	if ok {
		s.lastSaved = serialized
	}
	s.recomputeDirtyLocked()
}

// ─── Submission lifecycle ───────────────────────────────────────────

// BeginSubmit transitions to SUBMITTING and captures a consistent snapshot
// of the final state. The epoch pins the submission to the session it was
// requested for: a session swapped in after the request was issued must
// never be submitted in its place. A second call while one is outstanding
// fails the idempotency guard.
func (s *Store) BeginSubmit(epoch uint64) (model.AttemptState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch {
		return model.AttemptState{}, ErrStaleSession
	}
	if s.examID == 0 {
		return model.AttemptState{}, ErrNoSession
	}
	if s.submitting {
		return model.AttemptState{}, ErrSubmissionInFlight
	}
	if s.terminal {
		return model.AttemptState{}, ErrTerminal
	}
	if s.phase != model.PhaseActive && s.phase != model.PhaseSaving {
		return model.AttemptState{}, ErrNotActive
	}

	s.submitting = true
	s.phase = model.PhaseSubmitting
	return s.snapshotLocked(), nil
}

// FinishSubmit marks the attempt terminal after a successful authoritative
// grade. No further mutation is permitted.
func (s *Store) FinishSubmit(epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch {
		return
	}
	s.submitting = false
	s.terminal = true
	s.phase = model.PhaseFinished
	s.lastSaved = model.EncodeAnswers(s.answers)
	s.dirty = false
}

// AbortSubmit clears the submission flag after a failure, leaving the
// attempt active so the user may retry.
func (s *Store) AbortSubmit(epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch {
		return
	}
	s.submitting = false
	if s.phase == model.PhaseSubmitting {
		s.phase = model.PhaseActive
	}
}

// ─── Reads ──────────────────────────────────────────────────────────

// Snapshot returns a deep copy of the current attempt state.
func (s *Store) Snapshot() model.AttemptState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() model.AttemptState {
	state := model.AttemptState{
		AttemptID:    s.attemptID,
		ExamID:       s.examID,
		Mode:         s.mode,
		Phase:        s.phase,
		Questions:    append([]model.Question(nil), s.questions...),
		DisplayOrder: append([]int64(nil), s.displayOrder...),
		OptionOrders: s.optionOrdersLocked(),
		Answers:      copyAnswers(s.answers),
		Bookmarks:    sortedIDs(s.bookmarks),
		Cursor:       s.cursor,
		Dirty:        s.dirty,
		Terminal:     s.terminal,
		StartedAt:    s.startedAt,
	}
	if s.mode == model.ModePractice {
		state.Completed = sortedIDs(s.completed)
	}
	return state
}

// optionOrdersLocked derives the per-question option order for every
// question that carries one. Purely a function of the attempt id, so the
// rendering layer sees the same order on every snapshot and every resume.
func (s *Store) optionOrdersLocked() map[int64][]string {
	var orders map[int64][]string
	for _, q := range s.questions {
		if !q.HasOptions() {
			continue
		}
		if orders == nil {
			orders = make(map[int64][]string)
		}
		orders[q.ID] = ordering.OptionOrder(s.attemptID, q.ID, q.Options)
	}
	return orders
}

// Question returns a question from the active set.
func (s *Store) Question(questionID int64) (model.Question, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questionByID[questionID]
	return q, ok
}

// Answer returns the recorded answer for a question.
func (s *Store) Answer(questionID int64) (model.AnswerValue, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.answers[questionID]
	return v, ok
}

// GuardState exposes the navigation-guard predicate inputs.
func (s *Store) GuardState() (dirty, terminal, submitting bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty, s.terminal, s.submitting
}

// ReadyForAutoSubmit re-checks the practice auto-submission preconditions
// after the grace period: same session, still active, nothing submitted,
// and every question checked.
func (s *Store) ReadyForAutoSubmit(epoch uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return epoch == s.epoch &&
		s.mode == model.ModePractice &&
		!s.terminal &&
		!s.submitting &&
		(s.phase == model.PhaseActive || s.phase == model.PhaseSaving) &&
		len(s.questions) > 0 &&
		len(s.completed) == len(s.questions)
}

// ─── Helpers ────────────────────────────────────────────────────────

func naturalOrder(questions []model.Question) []int64 {
	ids := make([]int64, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}
	return ids
}

func copyAnswers(in map[int64]model.AnswerValue) map[int64]model.AnswerValue {
	out := make(map[int64]model.AnswerValue, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func sortedIDs(set map[int64]struct{}) []int64 {
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
