package treatment

import (
	"context"

	"github.com/google/uuid"
)

type ProtocolTemplateRepository interface {
	Create(ctx context.Context, p *ProtocolTemplate) error
	GetByID(ctx context.Context, id uuid.UUID) (*ProtocolTemplate, error)
	// List filters on is_active and, when cancerType is non-empty, on
	// cancer_types containing it.
	List(ctx context.Context, cancerType string, isActive bool) ([]*ProtocolTemplate, error)
}

type PlanRepository interface {
	Create(ctx context.Context, p *TreatmentPlan) error
	GetByID(ctx context.Context, id uuid.UUID) (*TreatmentPlan, error)
	// GetForUpdate reads the plan and locks its row until the surrounding
	// transaction ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*TreatmentPlan, error)
	Update(ctx context.Context, p *TreatmentPlan) error
}

type CycleRepository interface {
	Create(ctx context.Context, c *TreatmentCycle) error
	GetByID(ctx context.Context, id uuid.UUID) (*TreatmentCycle, error)
	// GetForUpdate reads the cycle and locks its row until the surrounding
	// transaction ends. Lock the cycle before its plan.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*TreatmentCycle, error)
	Update(ctx context.Context, c *TreatmentCycle) error
	ListByPlan(ctx context.Context, planID uuid.UUID) ([]*TreatmentCycle, error)
	// Administrations
	AddAdministration(ctx context.Context, a *DrugAdministration) error
	GetAdministration(ctx context.Context, id uuid.UUID) (*DrugAdministration, error)
	UpdateAdministration(ctx context.Context, a *DrugAdministration) error
	GetAdministrations(ctx context.Context, cycleID uuid.UUID) ([]*DrugAdministration, error)
}
