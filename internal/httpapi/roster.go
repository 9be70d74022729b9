package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"smartattend/internal/model"
)

// ListCourses returns a department's courses for the session-open form.
func (h *Handler) ListCourses(c *gin.Context) {
	departmentID := c.Query("department")
	if departmentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "department is required"})
		return
	}
	courses, err := h.roster.ListCourses(c.Request.Context(), departmentID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if courses == nil {
		courses = []model.Course{}
	}
	c.JSON(http.StatusOK, gin.H{"courses": courses})
}

// ListStudents returns the roster for a department and section.
func (h *Handler) ListStudents(c *gin.Context) {
	departmentID := c.Query("department")
	if departmentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "department is required"})
		return
	}
	section := c.Query("section")
	if section == "" {
		section = "A"
	}
	students, err := h.roster.List(c.Request.Context(), departmentID, section, c.Query("all") != "true")
	if err != nil {
		h.respondError(c, err)
		return
	}
	if students == nil {
		students = []model.Student{}
	}
	c.JSON(http.StatusOK, gin.H{"students": students})
}

// UpsertStudent registers or updates a roster entry keyed by roll number.
func (h *Handler) UpsertStudent(c *gin.Context) {
	var req struct {
		Name         string  `json:"name" binding:"required"`
		RollNumber   string  `json:"roll_number" binding:"required"`
		Email        string  `json:"email"`
		ParentEmail  string  `json:"parent_email"`
		DepartmentID *string `json:"department_id"`
		Section      string  `json:"section"`
		Semester     int     `json:"semester"`
		Active       *bool   `json:"active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	st := &model.Student{
		Name:         req.Name,
		RollNumber:   req.RollNumber,
		Email:        req.Email,
		ParentEmail:  req.ParentEmail,
		DepartmentID: req.DepartmentID,
		Section:      req.Section,
		Semester:     req.Semester,
		Active:       active,
	}
	if err := h.roster.UpsertStudent(c.Request.Context(), st); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}
