package roster

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"smartattend/internal/model"
)

// ErrStudentNotFound is returned when a student id resolves to nothing.
var ErrStudentNotFound = errors.New("student not found")

// Repository reads and writes roster entities in Postgres.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a roster repo.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{db: db, log: log.With().Str("component", "roster").Logger()}
}

const studentCols = `id, name, roll_number, email, parent_email, department_id,
	section, semester, photo_path, photo_url, face_enrolled, active, created_at`

func scanStudent(row interface{ Scan(...any) error }) (model.Student, error) {
	var st model.Student
	err := row.Scan(&st.ID, &st.Name, &st.RollNumber, &st.Email, &st.ParentEmail,
		&st.DepartmentID, &st.Section, &st.Semester, &st.PhotoPath, &st.PhotoURL,
		&st.FaceEnrolled, &st.Active, &st.CreatedAt)
	return st, err
}

// List returns the students eligible for a session's department and section,
// ordered by roll number. Roll-number order is what makes face matching scan
// the candidate pool in a stable order.
func (r *Repository) List(ctx context.Context, departmentID, section string, activeOnly bool) ([]model.Student, error) {
	query := `SELECT ` + studentCols + ` FROM students WHERE department_id = $1 AND section = $2`
	if activeOnly {
		query += ` AND active = TRUE`
	}
	query += ` ORDER BY roll_number`

	rows, err := r.db.QueryContext(ctx, query, departmentID, section)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()

	var students []model.Student
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, st)
	}
	return students, rows.Err()
}

// GetStudent returns one student by id.
func (r *Repository) GetStudent(ctx context.Context, id string) (*model.Student, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+studentCols+` FROM students WHERE id = $1`, id)
	st, err := scanStudent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}
	return &st, nil
}

// UpsertStudent creates or updates a student keyed by roll number.
func (r *Repository) UpsertStudent(ctx context.Context, st *model.Student) error {
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	if st.Section == "" {
		st.Section = "A"
	}
	if st.CreatedAt.IsZero() {
		st.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO students (id, name, roll_number, email, parent_email, department_id,
			section, semester, photo_path, photo_url, face_enrolled, active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (roll_number) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			parent_email = EXCLUDED.parent_email,
			department_id = EXCLUDED.department_id,
			section = EXCLUDED.section,
			semester = EXCLUDED.semester,
			active = EXCLUDED.active
	`, st.ID, st.Name, st.RollNumber, st.Email, st.ParentEmail, st.DepartmentID,
		st.Section, st.Semester, st.PhotoPath, st.PhotoURL, st.FaceEnrolled, st.Active, st.CreatedAt)
	return err
}

// SetFaceEnrollment records a student's reference image. Enrolled must only
// be true when a usable image exists on disk.
func (r *Repository) SetFaceEnrollment(ctx context.Context, studentID, photoPath, photoURL string, enrolled bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE students
		SET photo_path = $2, photo_url = $3, face_enrolled = $4
		WHERE id = $1
	`, studentID, photoPath, photoURL, enrolled)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStudentNotFound
	}
	return nil
}

// GetCourse returns one course by id.
func (r *Repository) GetCourse(ctx context.Context, id string) (*model.Course, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, code, department_id, credits FROM courses WHERE id = $1
	`, id)
	var c model.Course
	if err := row.Scan(&c.ID, &c.Name, &c.Code, &c.DepartmentID, &c.Credits); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.New("course not found")
		}
		return nil, err
	}
	return &c, nil
}

// ListCourses returns the courses of one department.
func (r *Repository) ListCourses(ctx context.Context, departmentID string) ([]model.Course, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, code, department_id, credits
		FROM courses WHERE department_id = $1 ORDER BY code
	`, departmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courses []model.Course
	for rows.Next() {
		var c model.Course
		if err := rows.Scan(&c.ID, &c.Name, &c.Code, &c.DepartmentID, &c.Credits); err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}
