package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"smartattend/internal/attendance"
	"smartattend/internal/auth"
	"smartattend/internal/cloudinary"
	"smartattend/internal/config"
	"smartattend/internal/facematch"
	"smartattend/internal/model"
	"smartattend/internal/notify"
	"smartattend/internal/roster"
)

// Handler exposes the attendance engine over HTTP.
type Handler struct {
	att    *attendance.Service
	repo   *attendance.Repository
	roster *roster.Repository
	engine *facematch.Engine
	notifs *notify.Repository
	users  *auth.Repository
	cloud  *cloudinary.Client // nil when not configured
	cfg    config.App
	log    zerolog.Logger
}

// New wires the handler.
func New(att *attendance.Service, repo *attendance.Repository, rosterRepo *roster.Repository,
	engine *facematch.Engine, notifs *notify.Repository, users *auth.Repository,
	cloud *cloudinary.Client, cfg config.App, log zerolog.Logger) *Handler {
	return &Handler{
		att:    att,
		repo:   repo,
		roster: rosterRepo,
		engine: engine,
		notifs: notifs,
		users:  users,
		cloud:  cloud,
		cfg:    cfg,
		log:    log.With().Str("component", "httpapi").Logger(),
	}
}

// RegisterRoutes mounts all API routes on the router.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.POST("/v1/auth/login", h.Login)

	authed := r.Group("/v1", auth.Middleware(h.cfg.JWTSigningKey, h.cfg.JWTIssuer))

	staff := authed.Group("", auth.RequireRole(model.RoleFaculty, model.RoleHOD))
	staff.POST("/sessions", h.CreateSession)
	staff.GET("/sessions", h.ListSessions)
	staff.GET("/sessions/:id", h.GetSession)
	staff.POST("/sessions/:id/roster", h.EnsureRoster)
	staff.GET("/sessions/:id/records", h.SessionRecords)
	staff.POST("/sessions/:id/manual", h.ApplyManual)
	staff.POST("/sessions/:id/recognize", h.RecognizeFrame)
	staff.POST("/sessions/:id/photo", h.RecognizePhoto)
	staff.GET("/sessions/:id/stats", h.SessionStats)
	staff.POST("/sessions/:id/finalize", h.Finalize)
	staff.GET("/reports/absentees", h.Absentees)
	staff.GET("/courses", h.ListCourses)
	staff.GET("/students", h.ListStudents)
	staff.POST("/students/:id/enroll", h.EnrollFace)
	staff.POST("/students/:id/verify", h.VerifyStudent)

	hod := authed.Group("", auth.RequireRole(model.RoleHOD))
	hod.POST("/students", h.UpsertStudent)

	authed.GET("/students/:id/attendance", h.StudentAttendance)
	authed.GET("/notifications", h.Notifications)
}

// respondError maps engine errors onto HTTP statuses; unexpected storage
// failures stay a generic 500.
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, attendance.ErrSessionNotFound),
		errors.Is(err, attendance.ErrRecordNotFound),
		errors.Is(err, roster.ErrStudentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, attendance.ErrSessionFinalized):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("operation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "operation failed"})
	}
}

// Login authenticates a user and issues tokens carrying the typed role.
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := h.users.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		h.respondError(c, err)
		return
	}

	tokens, err := auth.Issue(id, h.cfg.JWTIssuer, h.cfg.JWTSigningKey, h.cfg.AccessTTL, h.cfg.RefreshTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_at":    tokens.AccessExp.Unix(),
		"role":          id.Role,
		"profile_id":    id.ProfileID,
	})
}
