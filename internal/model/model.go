package model

import "time"

// Status is a student's attendance state within one session.
type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusLate    Status = "late"
)

// Method records how a status was set.
type Method string

const (
	MethodManual Method = "manual"
	MethodFace   Method = "face"
	MethodWebcam Method = "webcam"
)

// Mode is how a session collects attendance.
type Mode string

const (
	ModeManual Mode = "manual"
	ModeFace   Mode = "face"
	ModeBoth   Mode = "both"
)

// Role identifies what kind of profile an authenticated user carries.
// Resolved once at login and carried in the token claims.
type Role string

const (
	RoleHOD     Role = "hod"
	RoleFaculty Role = "faculty"
	RoleStudent Role = "student"
)

// Department groups courses, faculty and students.
type Department struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
}

// Course is a teachable unit belonging to a department.
type Course struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Code         string `json:"code"`
	DepartmentID string `json:"department_id"`
	Credits      int    `json:"credits"`
}

// Faculty teaches sessions.
type Faculty struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	EmployeeID   string  `json:"employee_id"`
	Email        string  `json:"email"`
	DepartmentID *string `json:"department_id,omitempty"`
	Active       bool    `json:"active"`
}

// Student is a roster entity. PhotoPath is the enrolled reference face
// image relative to the media root; FaceEnrolled is true only when a
// usable reference image exists.
type Student struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	RollNumber   string    `json:"roll_number"`
	Email        string    `json:"email"`
	ParentEmail  string    `json:"parent_email,omitempty"`
	DepartmentID *string   `json:"department_id,omitempty"`
	Section      string    `json:"section"`
	Semester     int       `json:"semester"`
	PhotoPath    string    `json:"photo_path,omitempty"`
	PhotoURL     string    `json:"photo_url,omitempty"`
	FaceEnrolled bool      `json:"face_enrolled"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session is one scheduled occurrence of a course/section on a date.
// EndTime is nil while the session is active; finalize sets it exactly
// once and the session never reopens.
type Session struct {
	ID        string     `json:"id"`
	CourseID  string     `json:"course_id"`
	FacultyID string     `json:"faculty_id"`
	Date      string     `json:"date"` // YYYY-MM-DD
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Section   string     `json:"section"`
	Mode      Mode       `json:"mode"`
	Active    bool       `json:"active"`
	CreatedAt time.Time  `json:"created_at"`

	// joined from courses
	CourseCode string `json:"course_code,omitempty"`
	CourseName string `json:"course_name,omitempty"`
}

// AttendanceRecord is one student's state within one session. Exactly one
// record exists per (session, student) pair. Confidence is only meaningful
// when Method is face.
type AttendanceRecord struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	StudentID  string    `json:"student_id"`
	Status     Status    `json:"status"`
	Method     Method    `json:"method"`
	Confidence *float64  `json:"confidence,omitempty"`
	MarkedAt   time.Time `json:"marked_at"`
	Remarks    string    `json:"remarks,omitempty"`

	// joined for listings
	StudentName string `json:"student_name,omitempty"`
	RollNumber  string `json:"roll_number,omitempty"`
	CourseID    string `json:"course_id,omitempty"`
	CourseCode  string `json:"course_code,omitempty"`
	CourseName  string `json:"course_name,omitempty"`
	Date        string `json:"date,omitempty"`
	Section     string `json:"section,omitempty"`
}

// Notification is a one-way absence message to a student.
type Notification struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Read      bool      `json:"read"`
	SentAt    time.Time `json:"sent_at"`
}

// NotifTypeAbsence tags notifications created at session finalize.
const NotifTypeAbsence = "absence"

// User is a login identity bound to exactly one profile.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	ProfileID    string    `json:"profile_id"`
	CreatedAt    time.Time `json:"created_at"`
}
