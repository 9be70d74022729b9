package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"smartattend/internal/attendance"
	"smartattend/internal/model"
)

// CreateSession opens a new attendance session.
func (h *Handler) CreateSession(c *gin.Context) {
	var req struct {
		CourseID  string `json:"course_id" binding:"required"`
		FacultyID string `json:"faculty_id" binding:"required"`
		Date      string `json:"date" binding:"required"`
		Section   string `json:"section"`
		StartTime string `json:"start_time"`
		Mode      string `json:"mode"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}

	start := time.Now().UTC()
	if req.StartTime != "" {
		parsed, err := time.Parse(time.RFC3339, req.StartTime)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "start_time must be RFC3339"})
			return
		}
		start = parsed
	}

	sess, err := h.att.OpenSession(c.Request.Context(), req.CourseID, req.FacultyID, req.Date, req.Section, start, model.Mode(req.Mode))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

// ListSessions returns sessions filtered by date, course, faculty or
// department for reporting screens.
func (h *Handler) ListSessions(c *gin.Context) {
	sessions, err := h.repo.ListSessions(c.Request.Context(), attendance.SessionFilter{
		FacultyID:    c.Query("faculty"),
		DepartmentID: c.Query("department"),
		CourseID:     c.Query("course"),
		Date:         c.Query("date"),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	if sessions == nil {
		sessions = []model.Session{}
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// GetSession returns one session.
func (h *Handler) GetSession(c *gin.Context) {
	sess, err := h.att.Session(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// EnsureRoster pre-creates absent records for every eligible student. Both
// marking pages call this when they open.
func (h *Handler) EnsureRoster(c *gin.Context) {
	size, err := h.att.EnsureRoster(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"roster_size": size})
}

// SessionRecords lists a session's records in roll-number order.
func (h *Handler) SessionRecords(c *gin.Context) {
	records, err := h.att.SessionRecords(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if records == nil {
		records = []model.AttendanceRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

// ApplyManual overwrites every roster record from the submitted present and
// late lists.
func (h *Handler) ApplyManual(c *gin.Context) {
	var req struct {
		PresentIDs []string `json:"present_ids"`
		LateIDs    []string `json:"late_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.att.ApplyManual(c.Request.Context(), c.Param("id"), req.PresentIDs, req.LateIDs); err != nil {
		h.respondError(c, err)
		return
	}

	counts, err := h.att.SessionCounts(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"counts": counts})
}

// SessionStats returns live counts for the marking pages.
func (h *Handler) SessionStats(c *gin.Context) {
	counts, err := h.att.SessionCounts(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}

// Finalize closes a session and fires absence notifications. Repeating the
// call on a finalized session returns current counts without side effects.
func (h *Handler) Finalize(c *gin.Context) {
	result, err := h.att.Finalize(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
