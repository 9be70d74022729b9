package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"smartattend/internal/attendance"
	"smartattend/internal/auth"
	"smartattend/internal/model"
)

// Absentees reports absent records for a department's sessions on one
// date, optionally narrowed to a course.
func (h *Handler) Absentees(c *gin.Context) {
	departmentID := c.Query("department")
	if departmentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "department is required"})
		return
	}
	date := c.Query("date")
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}

	absentees, err := h.repo.Absentees(c.Request.Context(), departmentID, date, c.Query("course"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if absentees == nil {
		absentees = []model.AttendanceRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "absentees": absentees})
}

// StudentAttendance returns a student's overall percentage, at-risk flag
// and per-course breakdown. Students may only view their own summary.
func (h *Handler) StudentAttendance(c *gin.Context) {
	studentID := c.Param("id")
	id, _ := auth.FromContext(c)
	if id.Role == model.RoleStudent && id.ProfileID != studentID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your record"})
		return
	}

	ctx := c.Request.Context()
	courseID := c.Query("course")

	pct, err := h.att.StudentPercentage(ctx, studentID, courseID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	atRisk, err := h.att.IsAtRisk(ctx, studentID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	breakdown, err := h.att.PerCourseBreakdown(ctx, studentID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if breakdown == nil {
		breakdown = []attendance.CourseStat{}
	}
	unread, err := h.notifs.CountUnread(ctx, studentID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"student_id":           studentID,
		"percentage":           pct,
		"at_risk":              atRisk,
		"courses":              breakdown,
		"unread_notifications": unread,
	})
}

// Notifications returns the caller's notifications and marks them read,
// mirroring the notifications screen behavior.
func (h *Handler) Notifications(c *gin.Context) {
	id, _ := auth.FromContext(c)
	if id.Role != model.RoleStudent {
		c.JSON(http.StatusForbidden, gin.H{"error": "students only"})
		return
	}

	ctx := c.Request.Context()
	notifs, err := h.notifs.ListByStudent(ctx, id.ProfileID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.notifs.MarkAllRead(ctx, id.ProfileID); err != nil {
		h.respondError(c, err)
		return
	}
	if notifs == nil {
		notifs = []model.Notification{}
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifs})
}
