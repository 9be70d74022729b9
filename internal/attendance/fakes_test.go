package attendance

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"smartattend/internal/model"
)

// memStore is an in-memory SessionStore + RecordStore used across the
// package tests so the service can run without a database.
type memStore struct {
	mu       sync.Mutex
	sessions map[string]*model.Session
	records  map[string]*model.AttendanceRecord // key: sessionID+"/"+studentID
	nextID   int
}

func newMemStore() *memStore {
	return &memStore{
		sessions: make(map[string]*model.Session),
		records:  make(map[string]*model.AttendanceRecord),
	}
}

func recKey(sessionID, studentID string) string {
	return sessionID + "/" + studentID
}

func (m *memStore) CreateSession(_ context.Context, s *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	s.ID = fmt.Sprintf("sess-%d", m.nextID)
	s.Active = true
	s.CreatedAt = time.Now()
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *memStore) GetSession(_ context.Context, id string) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) MarkFinalized(_ context.Context, id string, endTime time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || !s.Active {
		return false, nil
	}
	s.Active = false
	s.EndTime = &endTime
	return true, nil
}

func (m *memStore) EnsureRecord(_ context.Context, sessionID, studentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := recKey(sessionID, studentID)
	if _, ok := m.records[key]; ok {
		return nil
	}
	m.nextID++
	m.records[key] = &model.AttendanceRecord{
		ID:        fmt.Sprintf("rec-%d", m.nextID),
		SessionID: sessionID,
		StudentID: studentID,
		Status:    model.StatusAbsent,
		MarkedAt:  time.Now(),
	}
	return nil
}

func (m *memStore) SessionRecords(_ context.Context, sessionID string) ([]model.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.AttendanceRecord
	for _, rec := range m.records {
		if rec.SessionID == sessionID {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })
	return out, nil
}

func (m *memStore) GetRecord(_ context.Context, sessionID, studentID string) (*model.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[recKey(sessionID, studentID)]
	if !ok {
		return nil, ErrRecordNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *memStore) SetStatus(_ context.Context, sessionID, studentID string, status model.Status, method model.Method, confidence *float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[recKey(sessionID, studentID)]
	if !ok {
		return ErrRecordNotFound
	}
	rec.Status = status
	rec.Method = method
	rec.Confidence = confidence
	rec.MarkedAt = time.Now()
	return nil
}

func (m *memStore) ResetAbsent(_ context.Context, sessionID, studentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[recKey(sessionID, studentID)]
	if !ok {
		return ErrRecordNotFound
	}
	rec.Status = model.StatusAbsent
	rec.MarkedAt = time.Now()
	return nil
}

func (m *memStore) StudentRecords(_ context.Context, studentID, courseID string) ([]model.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.AttendanceRecord
	for _, rec := range m.records {
		if rec.StudentID != studentID {
			continue
		}
		sess, ok := m.sessions[rec.SessionID]
		if !ok {
			continue
		}
		if courseID != "" && sess.CourseID != courseID {
			continue
		}
		cp := *rec
		cp.CourseID = sess.CourseID
		cp.CourseCode = sess.CourseCode
		cp.CourseName = sess.CourseName
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// memRoster serves a fixed student list for every section.
type memRoster struct {
	students []model.Student
	courses  map[string]*model.Course
}

func newMemRoster(students ...model.Student) *memRoster {
	return &memRoster{
		students: students,
		courses: map[string]*model.Course{
			"course-1": {ID: "course-1", Name: "Databases", Code: "CS301", DepartmentID: "dept-1"},
		},
	}
}

func (r *memRoster) List(_ context.Context, _, _ string, _ bool) ([]model.Student, error) {
	return r.students, nil
}

func (r *memRoster) GetCourse(_ context.Context, id string) (*model.Course, error) {
	c, ok := r.courses[id]
	if !ok {
		return nil, fmt.Errorf("course %s not found", id)
	}
	return c, nil
}

// memNotifier records every NotifyAbsentees call.
type memNotifier struct {
	mu     sync.Mutex
	calls  int
	absent []model.AttendanceRecord
}

func (n *memNotifier) NotifyAbsentees(_ context.Context, _ *model.Session, absent []model.AttendanceRecord) (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	n.absent = append([]model.AttendanceRecord(nil), absent...)
	return len(absent), nil
}

func testStudents(n int) []model.Student {
	out := make([]model.Student, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, model.Student{
			ID:         fmt.Sprintf("stu-%d", i),
			Name:       fmt.Sprintf("Student %d", i),
			RollNumber: fmt.Sprintf("R%03d", i),
			Section:    "A",
			Active:     true,
		})
	}
	return out
}
