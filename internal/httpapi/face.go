package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"smartattend/internal/facematch"
)

// RecognizeFrame matches one base64 webcam frame against the roster and
// marks recognized students present. A failed recognition pass shows zero
// new matches, never an error page.
func (h *Handler) RecognizeFrame(c *gin.Context) {
	var req struct {
		Image string `json:"image" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	data, err := facematch.DecodeDataURL(req.Image)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.runMatchGroup(c, data)
}

// RecognizePhoto matches an uploaded group photo against the roster.
func (h *Handler) RecognizePhoto(c *gin.Context) {
	data, _, ok := h.readPhoto(c)
	if !ok {
		return
	}
	h.runMatchGroup(c, data)
}

func (h *Handler) runMatchGroup(c *gin.Context, image []byte) {
	sess, err := h.att.Session(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	matches, err := h.engine.MatchGroupData(c.Request.Context(), sess, image)
	if err != nil {
		h.respondError(c, err)
		return
	}

	counts, err := h.att.SessionCounts(c.Request.Context(), sess.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if matches == nil {
		matches = []facematch.Match{}
	}
	c.JSON(http.StatusOK, gin.H{
		"recognized":    matches,
		"total_present": counts.Present,
	})
}

// VerifyStudent runs a 1:1 confirmation of a probe image against one
// student's reference photo. Degraded matching comes back as a non-match.
func (h *Handler) VerifyStudent(c *gin.Context) {
	student, err := h.roster.GetStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	data, _, ok := h.readPhoto(c)
	if !ok {
		return
	}

	matched, confidence := h.engine.MatchOneData(c.Request.Context(), data, student)
	c.JSON(http.StatusOK, gin.H{"matched": matched, "confidence": confidence})
}

// EnrollFace stores a student's reference image under the media root and
// flips the enrollment flag. The Cloudinary mirror is best effort.
func (h *Handler) EnrollFace(c *gin.Context) {
	studentID := c.Param("id")
	student, err := h.roster.GetStudent(c.Request.Context(), studentID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	data, filename, ok := h.readPhoto(c)
	if !ok {
		return
	}

	relPath := filepath.Join("students", studentID+filepath.Ext(filename))
	if filepath.Ext(filename) == "" {
		relPath += ".jpg"
	}
	absPath := filepath.Join(h.cfg.MediaRoot, relPath)
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		h.respondError(c, err)
		return
	}
	if err := os.WriteFile(absPath, data, 0o644); err != nil {
		h.respondError(c, err)
		return
	}

	var photoURL string
	if h.cloud != nil {
		result, err := h.cloud.UploadBytes(data, fmt.Sprintf("%s-%s", student.RollNumber, filename))
		if err != nil {
			h.log.Warn().Err(err).Str("student", student.RollNumber).Msg("cloudinary mirror failed")
		} else {
			photoURL = result.SecureURL
		}
	}

	if err := h.roster.SetFaceEnrollment(c.Request.Context(), studentID, relPath, photoURL, true); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"student_id":    studentID,
		"face_enrolled": true,
		"photo_path":    relPath,
		"photo_url":     photoURL,
	})
}

// readPhoto accepts either a multipart "photo" file or a JSON body with a
// base64 "image" field.
func (h *Handler) readPhoto(c *gin.Context) ([]byte, string, bool) {
	file, header, err := c.Request.FormFile("photo")
	if err == nil {
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "read photo failed"})
			return nil, "", false
		}
		return data, header.Filename, true
	}

	var req struct {
		Image string `json:"image" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "provide a photo file or base64 image"})
		return nil, "", false
	}
	data, err := facematch.DecodeDataURL(req.Image)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, "", false
	}
	return data, "capture.jpg", true
}
