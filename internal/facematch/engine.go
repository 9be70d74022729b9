package facematch

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"smartattend/internal/attendance"
	"smartattend/internal/faceclient"
	"smartattend/internal/metrics"
	"smartattend/internal/model"
)

// FaceService is the narrow matching capability the engine consumes. Any
// backend can sit behind it, including a deterministic test double.
type FaceService interface {
	Verify(ctx context.Context, probePath, galleryPath string) (faceclient.VerifyResult, error)
	DetectFaces(ctx context.Context, imagePath string) ([][]byte, error)
}

// Records is the slice of the attendance service the engine needs.
type Records interface {
	Roster(ctx context.Context, sessionID string) ([]model.Student, error)
	SessionRecords(ctx context.Context, sessionID string) ([]model.AttendanceRecord, error)
	MarkFacePresent(ctx context.Context, sessionID, studentID string, confidence float64) (bool, error)
}

// Match is one newly marked (student, confidence) pair.
type Match struct {
	Student    model.Student `json:"student"`
	Confidence float64       `json:"confidence"`
}

// Engine orchestrates many-probe-to-many-gallery matching against the
// roster and produces record updates. Recognizer failures degrade to empty
// results; only storage failures surface to the caller.
type Engine struct {
	faces   FaceService
	records Records
	media   string
	log     zerolog.Logger
}

// NewEngine wires the engine. media is the root directory of enrolled
// reference images.
func NewEngine(faces FaceService, records Records, media string, log zerolog.Logger) *Engine {
	return &Engine{
		faces:   faces,
		records: records,
		media:   media,
		log:     log.With().Str("component", "facematch").Logger(),
	}
}

// Confidence converts a metric distance into the stored percentage score,
// rounded to one decimal place.
func Confidence(distance float64) float64 {
	return math.Round((1-distance)*100*10) / 10
}

// MatchGroup detects every face in one image and greedily assigns each to
// the first roster student it verifies against, scanning candidates in
// roll-number order. Each student can be claimed by at most one face per
// call, and a student already present is never touched. Callers may invoke
// this repeatedly against successive frames, accreting presence marks.
//
// The assignment is first-match-wins, not an optimal bipartite matching.
func (e *Engine) MatchGroup(ctx context.Context, session *model.Session, imagePath string) ([]Match, error) {
	if !session.Active {
		return nil, attendance.ErrSessionFinalized
	}

	crops, err := e.faces.DetectFaces(ctx, imagePath)
	if err != nil {
		metrics.RecognitionFailures.Inc()
		e.log.Warn().Err(err).Str("session", session.ID).Msg("face detection failed, returning empty result")
		return nil, nil
	}
	if len(crops) == 0 {
		return nil, nil
	}

	candidates, err := e.candidates(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	var matches []Match
	claimed := make(map[string]bool)

	for _, crop := range crops {
		match, err := e.matchCrop(ctx, session.ID, crop, candidates, claimed)
		if err != nil {
			if errors.Is(err, attendance.ErrSessionFinalized) {
				// Finalized mid-pass; keep what was already marked.
				return matches, nil
			}
			return matches, err
		}
		if match != nil {
			matches = append(matches, *match)
		}
	}
	return matches, nil
}

// matchCrop scans the candidate pool for one detected face. The crop's temp
// file lives only for this call.
func (e *Engine) matchCrop(ctx context.Context, sessionID string, crop []byte, candidates []model.Student, claimed map[string]bool) (*Match, error) {
	cropPath, cleanup, err := writeTemp(crop)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	for _, st := range candidates {
		if claimed[st.ID] {
			continue
		}
		refPath := filepath.Join(e.media, st.PhotoPath)

		metrics.FaceVerifications.Inc()
		res, err := e.faces.Verify(ctx, cropPath, refPath)
		if err != nil {
			metrics.RecognitionFailures.Inc()
			e.log.Debug().Err(err).Str("student", st.RollNumber).Msg("verify failed, skipping candidate")
			continue
		}
		if !res.Verified {
			continue
		}

		claimed[st.ID] = true
		confidence := Confidence(res.Distance)
		marked, err := e.records.MarkFacePresent(ctx, sessionID, st.ID, confidence)
		if err != nil {
			return nil, err
		}
		if !marked {
			return nil, nil
		}
		e.log.Info().Str("session", sessionID).Str("student", st.RollNumber).
			Float64("confidence", confidence).Msg("student recognized")
		return &Match{Student: st, Confidence: confidence}, nil
	}
	return nil, nil
}

// candidates builds the pool: face-enrolled roster students with a
// resolvable reference image whose record is not already present.
func (e *Engine) candidates(ctx context.Context, sessionID string) ([]model.Student, error) {
	students, err := e.records.Roster(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	records, err := e.records.SessionRecords(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	present := make(map[string]bool)
	for _, rec := range records {
		if rec.Status == model.StatusPresent {
			present[rec.StudentID] = true
		}
	}

	var pool []model.Student
	for _, st := range students {
		if !st.FaceEnrolled || st.PhotoPath == "" || present[st.ID] {
			continue
		}
		if _, err := os.Stat(filepath.Join(e.media, st.PhotoPath)); err != nil {
			continue
		}
		pool = append(pool, st)
	}
	return pool, nil
}

// MatchGroupData runs MatchGroup on raw image bytes, holding the decoded
// payload in a temp file only for the duration of the call.
func (e *Engine) MatchGroupData(ctx context.Context, session *model.Session, data []byte) ([]Match, error) {
	path, cleanup, err := writeTemp(data)
	if err != nil {
		return nil, err
	}
	defer cleanup()
	return e.MatchGroup(ctx, session, path)
}

// MatchOne verifies one probe image against one student's reference image.
// Degraded states — never enrolled, missing reference file, recognizer
// errors — come back as (false, 0), never as hard errors, so a broken
// recognizer cannot block the manual fallback.
func (e *Engine) MatchOne(ctx context.Context, probePath string, student *model.Student) (bool, float64) {
	if student == nil || !student.FaceEnrolled || student.PhotoPath == "" {
		return false, 0
	}
	refPath := filepath.Join(e.media, student.PhotoPath)
	if _, err := os.Stat(refPath); err != nil {
		return false, 0
	}

	metrics.FaceVerifications.Inc()
	res, err := e.faces.Verify(ctx, probePath, refPath)
	if err != nil {
		metrics.RecognitionFailures.Inc()
		e.log.Warn().Err(err).Str("student", student.RollNumber).Msg("verify failed")
		return false, 0
	}
	return res.Verified, Confidence(res.Distance)
}

// MatchOneData runs MatchOne on raw probe bytes.
func (e *Engine) MatchOneData(ctx context.Context, data []byte, student *model.Student) (bool, float64) {
	path, cleanup, err := writeTemp(data)
	if err != nil {
		e.log.Warn().Err(err).Msg("probe temp write failed")
		return false, 0
	}
	defer cleanup()
	return e.MatchOne(ctx, path, student)
}
