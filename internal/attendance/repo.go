package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"smartattend/internal/model"
)

// Repository persists sessions and attendance records in Postgres.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{db: db, log: log.With().Str("component", "attendance").Logger()}
}

// CreateSession writes a new open session.
func (r *Repository) CreateSession(ctx context.Context, s *model.Session) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	s.Active = true
	s.EndTime = nil
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance_sessions (id, course_id, faculty_id, date, start_time, section, mode, active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,TRUE,$8)
	`, s.ID, s.CourseID, s.FacultyID, s.Date, s.StartTime, s.Section, s.Mode, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

const sessionCols = `s.id, s.course_id, s.faculty_id, s.date::text, s.start_time, s.end_time,
	s.section, s.mode, s.active, s.created_at, c.code, c.name`

func scanSession(row interface{ Scan(...any) error }) (model.Session, error) {
	var s model.Session
	err := row.Scan(&s.ID, &s.CourseID, &s.FacultyID, &s.Date, &s.StartTime, &s.EndTime,
		&s.Section, &s.Mode, &s.Active, &s.CreatedAt, &s.CourseCode, &s.CourseName)
	return s, err
}

// GetSession returns a session with its course code and name joined in.
func (r *Repository) GetSession(ctx context.Context, id string) (*model.Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+sessionCols+`
		FROM attendance_sessions s
		JOIN courses c ON c.id = s.course_id
		WHERE s.id = $1
	`, id)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &s, nil
}

// SessionFilter narrows session listings for reporting screens.
type SessionFilter struct {
	FacultyID    string
	DepartmentID string
	CourseID     string
	Date         string
}

// ListSessions returns sessions matching the filter, newest first.
func (r *Repository) ListSessions(ctx context.Context, f SessionFilter) ([]model.Session, error) {
	query := `SELECT ` + sessionCols + `
		FROM attendance_sessions s
		JOIN courses c ON c.id = s.course_id`
	var clauses []string
	var args []any
	add := func(clause string, val any) {
		args = append(args, val)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if f.FacultyID != "" {
		add("s.faculty_id = $%d", f.FacultyID)
	}
	if f.DepartmentID != "" {
		add("c.department_id = $%d", f.DepartmentID)
	}
	if f.CourseID != "" {
		add("s.course_id = $%d", f.CourseID)
	}
	if f.Date != "" {
		add("s.date = $%d", f.Date)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY s.date DESC, s.start_time DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// MarkFinalized closes an open session. Returns false when the session was
// already finalized, so repeated finalize calls stay no-ops.
func (r *Repository) MarkFinalized(ctx context.Context, id string, endTime time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE attendance_sessions
		SET active = FALSE, end_time = $2
		WHERE id = $1 AND active = TRUE
	`, id, endTime)
	if err != nil {
		return false, fmt.Errorf("finalize session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// EnsureRecord creates an absent record for (session, student) if none
// exists. The unique constraint absorbs duplicate creation as a no-op.
func (r *Repository) EnsureRecord(ctx context.Context, sessionID, studentID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance_records (id, session_id, student_id, status, method, marked_at)
		VALUES ($1, $2, $3, 'absent', 'manual', $4)
		ON CONFLICT (session_id, student_id) DO NOTHING
	`, uuid.NewString(), sessionID, studentID, time.Now().UTC())
	return err
}

const recordCols = `r.id, r.session_id, r.student_id, r.status, r.method,
	r.confidence, r.marked_at, r.remarks, st.name, st.roll_number`

func scanRecord(row interface{ Scan(...any) error }) (model.AttendanceRecord, error) {
	var rec model.AttendanceRecord
	err := row.Scan(&rec.ID, &rec.SessionID, &rec.StudentID, &rec.Status, &rec.Method,
		&rec.Confidence, &rec.MarkedAt, &rec.Remarks, &rec.StudentName, &rec.RollNumber)
	return rec, err
}

// SessionRecords returns every record of one session in roll-number order.
func (r *Repository) SessionRecords(ctx context.Context, sessionID string) ([]model.AttendanceRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+recordCols+`
		FROM attendance_records r
		JOIN students st ON st.id = r.student_id
		WHERE r.session_id = $1
		ORDER BY st.roll_number
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session records: %w", err)
	}
	defer rows.Close()

	var records []model.AttendanceRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetRecord returns the record of one student in one session.
func (r *Repository) GetRecord(ctx context.Context, sessionID, studentID string) (*model.AttendanceRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+recordCols+`
		FROM attendance_records r
		JOIN students st ON st.id = r.student_id
		WHERE r.session_id = $1 AND r.student_id = $2
	`, sessionID, studentID)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// SetStatus overwrites a record's status, method and confidence.
func (r *Repository) SetStatus(ctx context.Context, sessionID, studentID string, status model.Status, method model.Method, confidence *float64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE attendance_records
		SET status = $3, method = $4, confidence = $5, marked_at = $6
		WHERE session_id = $1 AND student_id = $2
	`, sessionID, studentID, status, method, confidence, time.Now().UTC())
	return err
}

// ResetAbsent puts a record back to absent, leaving method and confidence
// from any earlier marking untouched.
func (r *Repository) ResetAbsent(ctx context.Context, sessionID, studentID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE attendance_records
		SET status = 'absent', marked_at = $3
		WHERE session_id = $1 AND student_id = $2
	`, sessionID, studentID, time.Now().UTC())
	return err
}

// StudentRecords returns a student's records across sessions, optionally
// restricted to one course, with course and session context joined in.
func (r *Repository) StudentRecords(ctx context.Context, studentID, courseID string) ([]model.AttendanceRecord, error) {
	query := `
		SELECT r.id, r.session_id, r.student_id, r.status, r.method,
			r.confidence, r.marked_at, r.remarks,
			s.course_id, c.code, c.name, s.date::text, s.section
		FROM attendance_records r
		JOIN attendance_sessions s ON s.id = r.session_id
		JOIN courses c ON c.id = s.course_id
		WHERE r.student_id = $1`
	args := []any{studentID}
	if courseID != "" {
		query += ` AND s.course_id = $2`
		args = append(args, courseID)
	}
	query += ` ORDER BY s.date DESC, s.start_time DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("student records: %w", err)
	}
	defer rows.Close()

	var records []model.AttendanceRecord
	for rows.Next() {
		var rec model.AttendanceRecord
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.StudentID, &rec.Status, &rec.Method,
			&rec.Confidence, &rec.MarkedAt, &rec.Remarks,
			&rec.CourseID, &rec.CourseCode, &rec.CourseName, &rec.Date, &rec.Section); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Absentees returns absent records for a department's sessions on one date,
// optionally narrowed to a course.
func (r *Repository) Absentees(ctx context.Context, departmentID, date, courseID string) ([]model.AttendanceRecord, error) {
	query := `
		SELECT r.id, r.session_id, r.student_id, r.status, r.method,
			r.confidence, r.marked_at, r.remarks,
			st.name, st.roll_number, s.course_id, c.code, c.name, s.date::text, s.section
		FROM attendance_records r
		JOIN students st ON st.id = r.student_id
		JOIN attendance_sessions s ON s.id = r.session_id
		JOIN courses c ON c.id = s.course_id
		WHERE r.status = 'absent' AND c.department_id = $1 AND s.date = $2`
	args := []any{departmentID, date}
	if courseID != "" {
		query += ` AND s.course_id = $3`
		args = append(args, courseID)
	}
	query += ` ORDER BY st.roll_number`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("absentees: %w", err)
	}
	defer rows.Close()

	var records []model.AttendanceRecord
	for rows.Next() {
		var rec model.AttendanceRecord
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.StudentID, &rec.Status, &rec.Method,
			&rec.Confidence, &rec.MarkedAt, &rec.Remarks,
			&rec.StudentName, &rec.RollNumber, &rec.CourseID, &rec.CourseCode, &rec.CourseName,
			&rec.Date, &rec.Section); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
