package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"smartattend/internal/metrics"
	"smartattend/internal/model"
	"smartattend/internal/queue"
)

// MsgAbsence is the queue message type for absence delivery work.
const MsgAbsence = "absence"

// AbsencePayload identifies one notification to deliver.
type AbsencePayload struct {
	NotificationID string `json:"notification_id"`
	StudentID      string `json:"student_id"`
}

// NotificationStore is what the notifier needs from persistence.
type NotificationStore interface {
	Create(ctx context.Context, n *model.Notification) error
}

// Notifier creates absence notifications at session finalize and hands
// delivery work to the queue. Creation is synchronous; only the outbound
// delivery (mail, push) is deferred to the worker.
type Notifier struct {
	store NotificationStore
	q     queue.Queue
	log   zerolog.Logger
}

// NewNotifier wires the notifier.
func NewNotifier(store NotificationStore, q queue.Queue, log zerolog.Logger) *Notifier {
	return &Notifier{store: store, q: q, log: log.With().Str("component", "notify").Logger()}
}

// AbsenceMessage formats the message body for one absence.
func AbsenceMessage(sess *model.Session) string {
	return fmt.Sprintf(
		"Absent alert: you were marked ABSENT in %s (%s) on %s. Section: %s. Please maintain 75%%+ attendance.",
		sess.CourseName, sess.CourseCode, sess.Date, sess.Section,
	)
}

// NotifyAbsentees creates one notification per record still absent at the
// moment of call. The caller decides when this fires; no deduplication
// happens here.
func (n *Notifier) NotifyAbsentees(ctx context.Context, sess *model.Session, absent []model.AttendanceRecord) (int, error) {
	message := AbsenceMessage(sess)
	created := 0
	for _, rec := range absent {
		notif := &model.Notification{
			StudentID: rec.StudentID,
			Message:   message,
			Type:      model.NotifTypeAbsence,
		}
		if err := n.store.Create(ctx, notif); err != nil {
			return created, fmt.Errorf("create notification for %s: %w", rec.StudentID, err)
		}
		created++
		metrics.NotificationsCreated.Inc()

		if n.q != nil {
			msg, err := queue.NewMessage(MsgAbsence, AbsencePayload{
				NotificationID: notif.ID,
				StudentID:      rec.StudentID,
			})
			if err == nil {
				err = n.q.Publish(ctx, msg)
			}
			if err != nil {
				// Delivery is best effort; the row already exists.
				n.log.Warn().Err(err).Str("notification", notif.ID).Msg("queue publish failed")
			}
		}
	}
	return created, nil
}

// StudentGetter resolves students for outbound delivery.
type StudentGetter interface {
	GetStudent(ctx context.Context, id string) (*model.Student, error)
}

// NotificationGetter loads notification rows for delivery.
type NotificationGetter interface {
	Get(ctx context.Context, id string) (*model.Notification, error)
}

// Dispatcher is the worker-side consumer: it resolves the student behind a
// queued absence and performs outbound delivery. Actual mail transport is a
// collaborator concern; delivery here is logged with the target address.
type Dispatcher struct {
	notifs   NotificationGetter
	students StudentGetter
	log      zerolog.Logger
}

// NewDispatcher wires the dispatcher.
func NewDispatcher(notifs NotificationGetter, students StudentGetter, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{notifs: notifs, students: students, log: log.With().Str("component", "dispatch").Logger()}
}

// Handle processes one queue message. Unknown types are skipped.
func (d *Dispatcher) Handle(ctx context.Context, msg queue.Message) error {
	if msg.Type != MsgAbsence {
		return nil
	}
	var payload AbsencePayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("decode absence payload: %w", err)
	}

	notif, err := d.notifs.Get(ctx, payload.NotificationID)
	if err != nil {
		return err
	}
	student, err := d.students.GetStudent(ctx, payload.StudentID)
	if err != nil {
		return err
	}

	target := student.Email
	if student.ParentEmail != "" {
		target = student.ParentEmail
	}
	d.log.Info().Str("student", student.RollNumber).Str("to", target).
		Str("notification", notif.ID).Msg("absence alert delivered")
	return nil
}
