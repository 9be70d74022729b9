package attendance

import (
	"context"
	"math"

	"smartattend/internal/model"
)

// AtRiskThreshold is the policy floor for overall attendance percentage.
const AtRiskThreshold = 75.0

// Counts summarizes one session's records.
type Counts struct {
	Present      int     `json:"present"`
	Absent       int     `json:"absent"`
	Late         int     `json:"late"`
	Total        int     `json:"total"`
	Percentage   float64 `json:"percentage"`
	FaceMarked   int     `json:"face_marked"`
	ManualMarked int     `json:"manual_marked"`
}

// CourseStat is one row of a student's per-course breakdown.
type CourseStat struct {
	CourseID   string  `json:"course_id"`
	CourseCode string  `json:"course_code"`
	CourseName string  `json:"course_name"`
	Present    int     `json:"present"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func percentage(present, total int) float64 {
	if total == 0 {
		return 0
	}
	return round1(float64(present) / float64(total) * 100)
}

func tally(records []model.AttendanceRecord) Counts {
	var c Counts
	for _, rec := range records {
		c.Total++
		switch rec.Status {
		case model.StatusPresent:
			c.Present++
		case model.StatusLate:
			c.Late++
		default:
			c.Absent++
		}
		switch rec.Method {
		case model.MethodFace, model.MethodWebcam:
			c.FaceMarked++
		case model.MethodManual:
			c.ManualMarked++
		}
	}
	c.Percentage = percentage(c.Present, c.Total)
	return c
}

// SessionCounts computes present/absent/late totals and the present
// percentage for one session. Percentage is 0 when no records exist.
func (s *Service) SessionCounts(ctx context.Context, sessionID string) (Counts, error) {
	if _, err := s.sessions.GetSession(ctx, sessionID); err != nil {
		return Counts{}, err
	}
	records, err := s.records.SessionRecords(ctx, sessionID)
	if err != nil {
		return Counts{}, err
	}
	return tally(records), nil
}

// StudentPercentage is present/total over a student's records, optionally
// restricted to one course. 0 when the student has no records.
func (s *Service) StudentPercentage(ctx context.Context, studentID, courseID string) (float64, error) {
	records, err := s.records.StudentRecords(ctx, studentID, courseID)
	if err != nil {
		return 0, err
	}
	present := 0
	for _, rec := range records {
		if rec.Status == model.StatusPresent {
			present++
		}
	}
	return percentage(present, len(records)), nil
}

// IsAtRisk reports whether a student's overall attendance sits below the
// policy threshold. Exactly 75.0 is not at risk.
func (s *Service) IsAtRisk(ctx context.Context, studentID string) (bool, error) {
	pct, err := s.StudentPercentage(ctx, studentID, "")
	if err != nil {
		return false, err
	}
	return pct < AtRiskThreshold, nil
}

// PerCourseBreakdown aggregates a student's records by course, for every
// course the student has at least one record in.
func (s *Service) PerCourseBreakdown(ctx context.Context, studentID string) ([]CourseStat, error) {
	records, err := s.records.StudentRecords(ctx, studentID, "")
	if err != nil {
		return nil, err
	}

	byCourse := make(map[string]*CourseStat)
	var order []string
	for _, rec := range records {
		stat, ok := byCourse[rec.CourseID]
		if !ok {
			stat = &CourseStat{CourseID: rec.CourseID, CourseCode: rec.CourseCode, CourseName: rec.CourseName}
			byCourse[rec.CourseID] = stat
			order = append(order, rec.CourseID)
		}
		stat.Total++
		if rec.Status == model.StatusPresent {
			stat.Present++
		}
	}

	stats := make([]CourseStat, 0, len(order))
	for _, id := range order {
		stat := byCourse[id]
		stat.Percentage = percentage(stat.Present, stat.Total)
		stats = append(stats, *stat)
	}
	return stats, nil
}
