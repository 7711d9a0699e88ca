package identity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByPhone(ctx context.Context, phone string) (bool, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
	TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

type DoctorRepository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Doctor, error)
	List(ctx context.Context, limit, offset int) ([]*Doctor, int, error)
	// DaycareUserIDs lists the accounts of active doctors who sign off
	// daycare approvals.
	DaycareUserIDs(ctx context.Context) ([]uuid.UUID, error)
}

type NurseRepository interface {
	Create(ctx context.Context, n *Nurse) error
	GetByID(ctx context.Context, id uuid.UUID) (*Nurse, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Nurse, error)
	List(ctx context.Context, limit, offset int) ([]*Nurse, int, error)
}
