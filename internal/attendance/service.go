package attendance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"smartattend/internal/metrics"
	"smartattend/internal/model"
)

// SessionStore owns session rows.
type SessionStore interface {
	CreateSession(ctx context.Context, s *model.Session) error
	GetSession(ctx context.Context, id string) (*model.Session, error)
	MarkFinalized(ctx context.Context, id string, endTime time.Time) (bool, error)
}

// RecordStore owns per-student attendance records.
type RecordStore interface {
	EnsureRecord(ctx context.Context, sessionID, studentID string) error
	SessionRecords(ctx context.Context, sessionID string) ([]model.AttendanceRecord, error)
	GetRecord(ctx context.Context, sessionID, studentID string) (*model.AttendanceRecord, error)
	SetStatus(ctx context.Context, sessionID, studentID string, status model.Status, method model.Method, confidence *float64) error
	ResetAbsent(ctx context.Context, sessionID, studentID string) error
	StudentRecords(ctx context.Context, studentID, courseID string) ([]model.AttendanceRecord, error)
}

// RosterProvider yields the students eligible for a session.
type RosterProvider interface {
	List(ctx context.Context, departmentID, section string, activeOnly bool) ([]model.Student, error)
	GetCourse(ctx context.Context, id string) (*model.Course, error)
}

// AbsenceNotifier emits one message per absent record at finalization.
type AbsenceNotifier interface {
	NotifyAbsentees(ctx context.Context, session *model.Session, absent []model.AttendanceRecord) (int, error)
}

// Service owns the session lifecycle and reconciles record state as marks
// arrive from manual input or face matching. Every status transition runs
// under a per-session lock so a present record is never downgraded by a
// concurrent recognition pass.
type Service struct {
	sessions SessionStore
	records  RecordStore
	roster   RosterProvider
	notifier AbsenceNotifier
	log      zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService wires the engine.
func NewService(sessions SessionStore, records RecordStore, roster RosterProvider, notifier AbsenceNotifier, log zerolog.Logger) *Service {
	return &Service{
		sessions: sessions,
		records:  records,
		roster:   roster,
		notifier: notifier,
		log:      log.With().Str("component", "attendance").Logger(),
		locks:    make(map[string]*sync.Mutex),
	}
}

func (s *Service) sessionLock(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// OpenSession creates a new active session.
func (s *Service) OpenSession(ctx context.Context, courseID, facultyID, date, section string, startTime time.Time, mode model.Mode) (*model.Session, error) {
	switch mode {
	case model.ModeManual, model.ModeFace, model.ModeBoth:
	case "":
		mode = model.ModeManual
	default:
		return nil, fmt.Errorf("unknown session mode %q", mode)
	}
	if section == "" {
		section = "A"
	}
	if _, err := s.roster.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}

	sess := &model.Session{
		CourseID:  courseID,
		FacultyID: facultyID,
		Date:      date,
		StartTime: startTime,
		Section:   section,
		Mode:      mode,
	}
	if err := s.sessions.CreateSession(ctx, sess); err != nil {
		return nil, err
	}
	s.log.Info().Str("session", sess.ID).Str("course", courseID).Str("date", date).Msg("session opened")
	return sess, nil
}

// Session returns session metadata.
func (s *Service) Session(ctx context.Context, id string) (*model.Session, error) {
	return s.sessions.GetSession(ctx, id)
}

// EnsureRoster pre-creates an absent record for every eligible roster
// student. Safe to call repeatedly; both marking pages invoke it on open,
// possibly interleaved. Returns the roster size.
func (s *Service) EnsureRoster(ctx context.Context, sessionID string) (int, error) {
	sess, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	students, err := s.rosterFor(ctx, sess)
	if err != nil {
		return 0, err
	}
	for _, st := range students {
		if err := s.records.EnsureRecord(ctx, sessionID, st.ID); err != nil {
			return 0, fmt.Errorf("ensure record for %s: %w", st.RollNumber, err)
		}
	}
	return len(students), nil
}

func (s *Service) rosterFor(ctx context.Context, sess *model.Session) ([]model.Student, error) {
	course, err := s.roster.GetCourse(ctx, sess.CourseID)
	if err != nil {
		return nil, err
	}
	return s.roster.List(ctx, course.DepartmentID, sess.Section, true)
}

// ApplyManual overwrites the status of every roster student: present when
// listed in presentIDs, late when in lateIDs, absent otherwise. Unlike face
// matching this is a full overwrite, not a merge. Ids outside the roster
// are ignored.
func (s *Service) ApplyManual(ctx context.Context, sessionID string, presentIDs, lateIDs []string) error {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if !sess.Active {
		return ErrSessionFinalized
	}
	students, err := s.rosterFor(ctx, sess)
	if err != nil {
		return err
	}

	present := toSet(presentIDs)
	late := toSet(lateIDs)

	for _, st := range students {
		if err := s.records.EnsureRecord(ctx, sessionID, st.ID); err != nil {
			return err
		}
		switch {
		case present[st.ID]:
			err = s.records.SetStatus(ctx, sessionID, st.ID, model.StatusPresent, model.MethodManual, nil)
		case late[st.ID]:
			err = s.records.SetStatus(ctx, sessionID, st.ID, model.StatusLate, model.MethodManual, nil)
		default:
			err = s.records.ResetAbsent(ctx, sessionID, st.ID)
		}
		if err != nil {
			return fmt.Errorf("mark %s: %w", st.RollNumber, err)
		}
	}
	s.log.Info().Str("session", sessionID).Int("present", len(presentIDs)).Int("late", len(lateIDs)).Msg("manual marking applied")
	return nil
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// MarkFacePresent upgrades one record to present via face recognition.
// Returns false without touching the record when the student is already
// present, so repeated recognition passes accrete monotonically and a
// stored confidence is never overwritten by a later pass.
func (s *Service) MarkFacePresent(ctx context.Context, sessionID, studentID string, confidence float64) (bool, error) {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return false, err
	}
	if !sess.Active {
		return false, ErrSessionFinalized
	}

	rec, err := s.records.GetRecord(ctx, sessionID, studentID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			// Student outside the pre-created roster; skip rather than fail
			// the whole pass.
			return false, nil
		}
		return false, err
	}
	if rec.Status == model.StatusPresent {
		return false, nil
	}
	if err := s.records.SetStatus(ctx, sessionID, studentID, model.StatusPresent, model.MethodFace, &confidence); err != nil {
		return false, err
	}
	metrics.FaceMatches.Inc()
	return true, nil
}

// FinalizeResult summarizes a finalize transition.
type FinalizeResult struct {
	Session  *model.Session `json:"session"`
	Counts   Counts         `json:"counts"`
	Notified int            `json:"notified"`
}

// Finalize closes a session: end_time is set, active drops, and one absence
// notification goes out per record still absent. Finalizing an already
// finalized session is a no-op returning current counts.
func (s *Service) Finalize(ctx context.Context, sessionID string) (*FinalizeResult, error) {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	records, err := s.records.SessionRecords(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	counts := tally(records)

	if !sess.Active {
		return &FinalizeResult{Session: sess, Counts: counts}, nil
	}

	now := time.Now().UTC()
	closed, err := s.sessions.MarkFinalized(ctx, sessionID, now)
	if err != nil {
		return nil, err
	}
	if !closed {
		return &FinalizeResult{Session: sess, Counts: counts}, nil
	}
	sess.Active = false
	sess.EndTime = &now

	var absent []model.AttendanceRecord
	for _, rec := range records {
		if rec.Status == model.StatusAbsent {
			absent = append(absent, rec)
		}
	}
	notified, err := s.notifier.NotifyAbsentees(ctx, sess, absent)
	if err != nil {
		// The session is closed either way; notification delivery failures
		// must not reopen it.
		s.log.Error().Err(err).Str("session", sessionID).Msg("absence notification failed")
	}

	metrics.SessionsFinalized.Inc()
	s.log.Info().Str("session", sessionID).
		Int("present", counts.Present).Int("absent", counts.Absent).Int("late", counts.Late).
		Int("notified", notified).Msg("session finalized")

	return &FinalizeResult{Session: sess, Counts: counts, Notified: notified}, nil
}

// SessionRecords exposes a session's records for marking pages and face
// matching candidate filtering.
func (s *Service) SessionRecords(ctx context.Context, sessionID string) ([]model.AttendanceRecord, error) {
	return s.records.SessionRecords(ctx, sessionID)
}

// Roster returns the eligible students for a session.
func (s *Service) Roster(ctx context.Context, sessionID string) ([]model.Student, error) {
	sess, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.rosterFor(ctx, sess)
}
