package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FaceVerifications counts 1:1 verify calls against the recognizer.
	FaceVerifications = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smartattend_face_verifications_total",
		Help: "Number of face verification calls made to the recognizer.",
	})

	// FaceMatches counts students newly marked present by face matching.
	FaceMatches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smartattend_face_matches_total",
		Help: "Number of students marked present via face recognition.",
	})

	// RecognitionFailures counts recognizer errors that were degraded to
	// non-match results.
	RecognitionFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smartattend_recognition_failures_total",
		Help: "Number of recognizer failures absorbed as non-matches.",
	})

	// SessionsFinalized counts finalize transitions.
	SessionsFinalized = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smartattend_sessions_finalized_total",
		Help: "Number of attendance sessions finalized.",
	})

	// NotificationsCreated counts absence notifications written at finalize.
	NotificationsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smartattend_notifications_created_total",
		Help: "Number of absence notifications created.",
	})
)
