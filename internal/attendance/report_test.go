package attendance

import (
	"context"
	"testing"
	"time"

	"smartattend/internal/model"
)

func TestPercentage(t *testing.T) {
	cases := []struct {
		name    string
		present int
		total   int
		want    float64
	}{
		{"empty", 0, 0, 0},
		{"three quarters", 3, 4, 75.0},
		{"rounds to one decimal", 2, 3, 66.7},
		{"full", 5, 5, 100.0},
		{"one of seven", 1, 7, 14.3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := percentage(tc.present, tc.total); got != tc.want {
				t.Errorf("percentage(%d, %d) = %v, want %v", tc.present, tc.total, got, tc.want)
			}
		})
	}
}

func TestTally(t *testing.T) {
	conf := 88.5
	records := []model.AttendanceRecord{
		{Status: model.StatusPresent, Method: model.MethodFace, Confidence: &conf},
		{Status: model.StatusPresent, Method: model.MethodManual},
		{Status: model.StatusLate, Method: model.MethodManual},
		{Status: model.StatusAbsent},
	}
	c := tally(records)
	if c.Present != 2 || c.Late != 1 || c.Absent != 1 || c.Total != 4 {
		t.Errorf("tally = %+v, want 2/1/1 of 4", c)
	}
	if c.Present+c.Absent+c.Late != c.Total {
		t.Error("status counts do not sum to total")
	}
	if c.FaceMarked != 1 || c.ManualMarked != 2 {
		t.Errorf("method counts = face %d / manual %d, want 1 / 2", c.FaceMarked, c.ManualMarked)
	}
	if c.Percentage != 50.0 {
		t.Errorf("percentage = %v, want 50.0", c.Percentage)
	}
}

func TestSessionCountsEmpty(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	sess := openTestSession(t, svc)

	c, err := svc.SessionCounts(ctx, sess.ID)
	if err != nil {
		t.Fatalf("SessionCounts: %v", err)
	}
	if c.Total != 0 || c.Percentage != 0 {
		t.Errorf("empty session counts = %+v, want zero", c)
	}
}

func seedStudentHistory(t *testing.T, svc *Service, presentSessions, absentSessions int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < presentSessions+absentSessions; i++ {
		sess := openTestSession(t, svc)
		if _, err := svc.EnsureRoster(ctx, sess.ID); err != nil {
			t.Fatalf("EnsureRoster: %v", err)
		}
		if i < presentSessions {
			if err := svc.ApplyManual(ctx, sess.ID, []string{"stu-1"}, nil); err != nil {
				t.Fatalf("ApplyManual: %v", err)
			}
		}
	}
}

func TestStudentPercentageAndAtRisk(t *testing.T) {
	ctx := context.Background()

	t.Run("exactly at threshold", func(t *testing.T) {
		svc, _, _ := newTestService(testStudents(1)...)
		seedStudentHistory(t, svc, 3, 1)

		pct, err := svc.StudentPercentage(ctx, "stu-1", "")
		if err != nil {
			t.Fatalf("StudentPercentage: %v", err)
		}
		if pct != 75.0 {
			t.Fatalf("percentage = %v, want 75.0", pct)
		}
		atRisk, err := svc.IsAtRisk(ctx, "stu-1")
		if err != nil {
			t.Fatalf("IsAtRisk: %v", err)
		}
		if atRisk {
			t.Error("exactly 75.0 must not be at risk")
		}
	})

	t.Run("below threshold", func(t *testing.T) {
		svc, _, _ := newTestService(testStudents(1)...)
		seedStudentHistory(t, svc, 2, 1)

		atRisk, err := svc.IsAtRisk(ctx, "stu-1")
		if err != nil {
			t.Fatalf("IsAtRisk: %v", err)
		}
		if !atRisk {
			t.Error("66.7 should be at risk")
		}
	})

	t.Run("no history", func(t *testing.T) {
		svc, _, _ := newTestService(testStudents(1)...)
		pct, err := svc.StudentPercentage(ctx, "stu-1", "")
		if err != nil {
			t.Fatalf("StudentPercentage: %v", err)
		}
		if pct != 0 {
			t.Errorf("percentage with no records = %v, want 0", pct)
		}
	})
}

func TestPerCourseBreakdown(t *testing.T) {
	svc, store, _ := newTestService(testStudents(1)...)
	ctx := context.Background()

	sessA := openTestSession(t, svc)
	if _, err := svc.EnsureRoster(ctx, sessA.ID); err != nil {
		t.Fatalf("EnsureRoster: %v", err)
	}
	if err := svc.ApplyManual(ctx, sessA.ID, []string{"stu-1"}, nil); err != nil {
		t.Fatalf("ApplyManual: %v", err)
	}

	// Second session on a different course, left absent.
	sessB := &model.Session{CourseID: "course-2", FacultyID: "fac-1", Date: "2026-03-03", StartTime: time.Now(), Section: "A", Mode: model.ModeManual, CourseCode: "CS402"}
	if err := store.CreateSession(ctx, sessB); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if err := store.EnsureRecord(ctx, sessB.ID, "stu-1"); err != nil {
		t.Fatalf("EnsureRecord: %v", err)
	}

	stats, err := svc.PerCourseBreakdown(ctx, "stu-1")
	if err != nil {
		t.Fatalf("PerCourseBreakdown: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("got %d courses, want 2", len(stats))
	}
	byID := make(map[string]CourseStat)
	for _, s := range stats {
		byID[s.CourseID] = s
	}
	if s := byID["course-1"]; s.Present != 1 || s.Total != 1 || s.Percentage != 100.0 {
		t.Errorf("course-1 stat = %+v, want 1/1 at 100.0", s)
	}
	if s := byID["course-2"]; s.Present != 0 || s.Total != 1 || s.Percentage != 0 {
		t.Errorf("course-2 stat = %+v, want 0/1 at 0", s)
	}
}
