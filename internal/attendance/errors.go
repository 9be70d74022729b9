package attendance

import "errors"

var (
	// ErrSessionNotFound is returned for unknown session ids.
	ErrSessionNotFound = errors.New("session not found")

	// ErrRecordNotFound is returned when a (session, student) record does
	// not exist.
	ErrRecordNotFound = errors.New("attendance record not found")

	// ErrSessionFinalized rejects marking calls against a closed session.
	ErrSessionFinalized = errors.New("session already finalized")
)
