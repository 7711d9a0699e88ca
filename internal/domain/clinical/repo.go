package clinical

import (
	"context"

	"github.com/google/uuid"
)

type VitalRepository interface {
	Create(ctx context.Context, v *Vital) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*Vital, error)
	ListByCycle(ctx context.Context, cycleID uuid.UUID) ([]*Vital, error)
}

type SymptomRepository interface {
	Create(ctx context.Context, e *SymptomEntry) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*SymptomEntry, error)
}

type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	List(ctx context.Context, f AppointmentFilter) ([]*Appointment, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]*Notification, error)
	// MarkRead returns ErrNotFound when the notification is not the user's.
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
}
