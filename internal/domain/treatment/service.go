package treatment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/moinmakda/ChemoCareAI/internal/domain/dosing"
	"github.com/moinmakda/ChemoCareAI/internal/domain/patient"
	"github.com/moinmakda/ChemoCareAI/internal/platform/auth"
	"github.com/moinmakda/ChemoCareAI/internal/platform/db"
	"github.com/moinmakda/ChemoCareAI/internal/platform/notification"
	"github.com/moinmakda/ChemoCareAI/pkg/apperr"
	"github.com/moinmakda/ChemoCareAI/pkg/civil"
)

var (
	errNotApproved      = apperr.New(apperr.ErrInvalidState, "Cycle must be approved before starting")
	errProtocolRequired = apperr.New(apperr.ErrValidation, "custom_protocol or protocol_template_id is required")
	errProtocolShape    = apperr.New(apperr.ErrValidation, "custom_protocol must be a JSON object")
	errScheduledDate    = apperr.New(apperr.ErrValidation, "scheduled_date is required")
)

// Notification kinds written for the patient's account.
const (
	kindApprovalRequest  = "approval_request"
	kindApprovalReceived = "approval_received"
	kindCycleCompleted   = "cycle_completed"
)

// PatientLookup resolves patients without applying caller ownership.
type PatientLookup interface {
	Lookup(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

// StaffLookup maps a user account to its doctor or nurse profile. A nil id
// means the user has no such profile.
type StaffLookup interface {
	DoctorIDForUser(ctx context.Context, userID uuid.UUID) (*uuid.UUID, error)
	NurseIDForUser(ctx context.Context, userID uuid.UUID) (*uuid.UUID, error)
	DaycareDoctorUserIDs(ctx context.Context) ([]uuid.UUID, error)
}

// Notifier records an in-app notification rendered from a template.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, kind, templateID string, data map[string]string) error
}

type Service struct {
	protocols ProtocolTemplateRepository
	plans     PlanRepository
	cycles    CycleRepository
	patients  PatientLookup
	staff     StaffLookup
	notifier  Notifier
	logger    zerolog.Logger

	inTx  func(ctx context.Context, fn func(ctx context.Context) error) error
	now   func() time.Time
	today func() civil.Date
}

func NewService(
	protocols ProtocolTemplateRepository,
	plans PlanRepository,
	cycles CycleRepository,
	patients PatientLookup,
	staff StaffLookup,
	notifier Notifier,
	pool *pgxpool.Pool,
	logger zerolog.Logger,
) *Service {
	return &Service{
		protocols: protocols,
		plans:     plans,
		cycles:    cycles,
		patients:  patients,
		staff:     staff,
		notifier:  notifier,
		logger:    logger.With().Str("component", "treatment").Logger(),
		inTx: func(ctx context.Context, fn func(ctx context.Context) error) error {
			return db.RunInTx(ctx, pool, fn)
		},
		now:   time.Now,
		today: civil.Today,
	}
}

// -- Protocol Templates --

func (s *Service) CreateProtocol(ctx context.Context, req *CreateProtocolRequest) (*ProtocolTemplate, error) {
	p := &ProtocolTemplate{
		Name:                  req.Name,
		FullName:              req.FullName,
		CancerTypes:           req.CancerTypes,
		CycleDays:             req.CycleDays,
		TotalCycles:           req.TotalCycles,
		Drugs:                 req.Drugs,
		PreMedications:        req.PreMedications,
		PostMedications:       req.PostMedications,
		RequiredLabs:          req.RequiredLabs,
		MonitoringParameters:  req.MonitoringParameters,
		DoseModificationRules: req.DoseModificationRules,
		CommonSideEffects:     req.CommonSideEffects,
		SeriousSideEffects:    req.SeriousSideEffects,
		ReferenceGuidelines:   req.ReferenceGuidelines,
		IsActive:              true,
	}
	if p.Name == "" {
		return nil, apperr.New(apperr.ErrValidation, "name is required")
	}
	if p.CycleDays <= 0 {
		return nil, apperr.New(apperr.ErrValidation, "cycle_days must be positive")
	}
	if err := s.protocols.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) GetProtocol(ctx context.Context, id uuid.UUID) (*ProtocolTemplate, error) {
	return s.protocols.GetByID(ctx, id)
}

func (s *Service) ListProtocols(ctx context.Context, cancerType string, isActive bool) ([]*ProtocolTemplate, error) {
	items, err := s.protocols.List(ctx, cancerType, isActive)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*ProtocolTemplate{}
	}
	return items, nil
}

// -- Treatment Plans --

// CreatePlan opens a draft plan. Without a custom protocol the referenced
// template is snapshotted with doses computed for the patient's current BSA.
func (s *Service) CreatePlan(ctx context.Context, req *CreatePlanRequest) (*TreatmentPlan, error) {
	pt, err := s.patients.Lookup(ctx, req.PatientID)
	if err != nil {
		return nil, err
	}

	custom := req.CustomProtocol
	if len(custom) > 0 && string(custom) != "null" {
		var obj map[string]interface{}
		if err := json.Unmarshal(custom, &obj); err != nil {
			return nil, errProtocolShape
		}
	} else {
		custom = nil
	}

	if req.ProtocolTemplateID != nil {
		tpl, err := s.protocols.GetByID(ctx, *req.ProtocolTemplateID)
		if err != nil {
			return nil, err
		}
		if custom == nil {
			if custom, err = json.Marshal(snapshotOf(tpl, pt)); err != nil {
				return nil, fmt.Errorf("snapshot protocol: %w", err)
			}
		}
	}
	if custom == nil {
		return nil, errProtocolRequired
	}

	p := &TreatmentPlan{
		PatientID:          req.PatientID,
		ProtocolTemplateID: req.ProtocolTemplateID,
		ProtocolName:       req.ProtocolName,
		CustomProtocol:     custom,
		PlannedCycles:      req.PlannedCycles,
		Status:             PlanDraft,
		OPDNotes:           req.OPDNotes,
	}
	if req.StartDate != nil && !req.StartDate.IsZero() {
		p.StartDate = *req.StartDate
	} else {
		p.StartDate = s.today()
	}
	if p.PlannedCycles <= 0 {
		return nil, apperr.New(apperr.ErrValidation, "planned_cycles must be positive")
	}
	if p.CreatedByDoctorID, err = s.staff.DoctorIDForUser(ctx, auth.UserIDFromContext(ctx)); err != nil {
		return nil, err
	}
	if err := s.plans.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func snapshotOf(tpl *ProtocolTemplate, pt *patient.Patient) Snapshot {
	snap := Snapshot{
		TemplateName:    tpl.Name,
		CycleDays:       tpl.CycleDays,
		PatientBSA:      pt.BSA,
		Drugs:           make([]dosing.ComputedDrug, 0, len(tpl.Drugs)),
		PreMedications:  tpl.PreMedications,
		PostMedications: tpl.PostMedications,
	}
	for _, d := range tpl.Drugs {
		snap.Drugs = append(snap.Drugs, dosing.ComputeDrug(d, pt.BSA, pt.Age))
	}
	if snap.PreMedications == nil {
		snap.PreMedications = []dosing.Medication{}
	}
	if snap.PostMedications == nil {
		snap.PostMedications = []dosing.Medication{}
	}
	return snap
}

// authorize rejects patient callers who do not own the plan's patient.
func (s *Service) authorize(ctx context.Context, patientID uuid.UUID) error {
	if auth.RoleFromContext(ctx) != auth.RolePatient {
		return nil
	}
	pt, err := s.patients.Lookup(ctx, patientID)
	if err != nil {
		return err
	}
	return patient.CheckOwner(ctx, pt)
}

// GetPlan returns the plan together with its cycles.
func (s *Service) GetPlan(ctx context.Context, id uuid.UUID) (*TreatmentPlan, error) {
	p, err := s.plans.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, p.PatientID); err != nil {
		return nil, err
	}
	if p.Cycles, err = s.cycles.ListByPlan(ctx, p.ID); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) UpdatePlan(ctx context.Context, id uuid.UUID, req *UpdatePlanRequest) (*TreatmentPlan, error) {
	p, err := s.plans.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.ProtocolName != nil {
		p.ProtocolName = *req.ProtocolName
	}
	if req.CustomProtocol != nil {
		p.CustomProtocol = *req.CustomProtocol
	}
	if req.StartDate != nil {
		p.StartDate = *req.StartDate
	}
	if req.PlannedCycles != nil {
		if *req.PlannedCycles < p.CompletedCycles {
			return nil, apperr.New(apperr.ErrValidation, "planned_cycles cannot be less than completed_cycles (%d)", p.CompletedCycles)
		}
		p.PlannedCycles = *req.PlannedCycles
	}
	if req.Status != nil {
		if !validPlanStatuses[*req.Status] {
			return nil, apperr.New(apperr.ErrValidation, "invalid plan status: %s", *req.Status)
		}
		p.Status = *req.Status
	}
	if req.OPDNotes != nil {
		p.OPDNotes = req.OPDNotes
	}
	if req.DaycareNotes != nil {
		p.DaycareNotes = req.DaycareNotes
	}
	if err := s.plans.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update treatment plan: %w", err)
	}
	return p, nil
}

func (s *Service) ApproveOPD(ctx context.Context, id uuid.UUID, notes *string) (*TreatmentPlan, error) {
	return s.approvePlan(ctx, id, EventApproveOPD, notes)
}

func (s *Service) ApproveDaycare(ctx context.Context, id uuid.UUID, notes *string) (*TreatmentPlan, error) {
	return s.approvePlan(ctx, id, EventApproveDaycare, notes)
}

func (s *Service) approvePlan(ctx context.Context, id uuid.UUID, ev Event, notes *string) (*TreatmentPlan, error) {
	p, err := s.plans.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	next, ok := planMachine.next(p.Status, ev)
	if !ok {
		return nil, apperr.New(apperr.ErrInvalidState, "cannot %s a %s plan", ev, p.Status)
	}
	doctorID, err := s.staff.DoctorIDForUser(ctx, auth.UserIDFromContext(ctx))
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	stage := "OPD"
	switch ev {
	case EventApproveOPD:
		p.OPDApprovedBy, p.OPDApprovedAt, p.OPDNotes = doctorID, &now, notes
	case EventApproveDaycare:
		stage = "daycare"
		p.DaycareApprovedBy, p.DaycareApprovedAt, p.DaycareNotes = doctorID, &now, notes
	}
	p.Status = next
	if err := s.plans.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("approve treatment plan: %w", err)
	}

	s.notifyPatient(ctx, p.PatientID, kindApprovalReceived, notification.TplPlanApproved, map[string]string{
		"protocol": p.ProtocolName,
		"stage":    stage,
	})
	if p.Status == PlanPendingDaycareApproval {
		s.requestDaycareApproval(ctx, p)
	}
	return p, nil
}

// requestDaycareApproval asks every daycare doctor to review the plan.
func (s *Service) requestDaycareApproval(ctx context.Context, p *TreatmentPlan) {
	if s.notifier == nil {
		return
	}
	reviewers, err := s.staff.DaycareDoctorUserIDs(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Str("plan_id", p.ID.String()).Msg("approval request skipped")
		return
	}
	data := map[string]string{"protocol": p.ProtocolName, "stage": "daycare", "patient_name": "the patient"}
	if pt, err := s.patients.Lookup(ctx, p.PatientID); err == nil {
		data["patient_name"] = pt.FirstName + " " + pt.LastName
	}
	for _, userID := range reviewers {
		if err := s.notifier.Notify(ctx, userID, kindApprovalRequest, notification.TplApprovalRequest, data); err != nil {
			s.logger.Warn().Err(err).Str("plan_id", p.ID.String()).Str("user_id", userID.String()).
				Msg("failed to record approval request")
		}
	}
}

// -- Treatment Cycles --

func (s *Service) ListCycles(ctx context.Context, planID uuid.UUID) ([]*TreatmentCycle, error) {
	p, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, p.PatientID); err != nil {
		return nil, err
	}
	items, err := s.cycles.ListByPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*TreatmentCycle{}
	}
	return items, nil
}

// CreateCycle schedules a cycle and fans out one pending administration per
// drug in the plan's protocol snapshot. Planned doses are copied from the
// snapshot as stored, never recomputed.
func (s *Service) CreateCycle(ctx context.Context, planID uuid.UUID, req *CreateCycleRequest) (*TreatmentCycle, error) {
	if req.ScheduledDate.IsZero() {
		return nil, errScheduledDate
	}
	if req.CycleNumber <= 0 {
		return nil, apperr.New(apperr.ErrValidation, "cycle_number must be positive")
	}

	var c *TreatmentCycle
	err := s.inTx(ctx, func(ctx context.Context) error {
		p, err := s.plans.GetByID(ctx, planID)
		if err != nil {
			return err
		}
		c = &TreatmentCycle{
			TreatmentPlanID: p.ID,
			CycleNumber:     req.CycleNumber,
			ScheduledDate:   req.ScheduledDate,
			Status:          CycleScheduled,
		}
		if pt, err := s.patients.Lookup(ctx, p.PatientID); err == nil {
			c.PatientWeightKg = pt.WeightKg
			if pt.BSA > 0 {
				bsa := pt.BSA
				c.CalculatedBSA = &bsa
			}
		} else if !errors.Is(err, apperr.ErrNotFound) {
			return err
		}
		if err := s.cycles.Create(ctx, c); err != nil {
			return err
		}

		for _, d := range snapshotDrugs(p.CustomProtocol) {
			a := administrationFor(c.ID, d)
			if err := s.cycles.AddAdministration(ctx, a); err != nil {
				return err
			}
			c.Administrations = append(c.Administrations, a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func snapshotDrugs(custom json.RawMessage) []snapshotDrug {
	if len(custom) == 0 {
		return nil
	}
	var body struct {
		Drugs []snapshotDrug `json:"drugs"`
	}
	if err := json.Unmarshal(custom, &body); err != nil {
		return nil
	}
	return body.Drugs
}

func administrationFor(cycleID uuid.UUID, d snapshotDrug) *DrugAdministration {
	a := &DrugAdministration{
		CycleID:             cycleID,
		DrugName:            d.DrugName,
		Unit:                d.Unit,
		Route:               d.Route,
		PlannedDurationMins: d.InfusionDurationMins,
		Status:              AdminPending,
		Reactions:           json.RawMessage("[]"),
	}
	switch {
	case d.CalculatedDose != nil:
		a.PlannedDose = *d.CalculatedDose
	case d.DosePerM2 != nil:
		a.PlannedDose = *d.DosePerM2
	}
	if a.Unit == "" {
		a.Unit = "mg"
	}
	if a.Route == "" {
		a.Route = "IV"
	}
	return a
}

func (s *Service) cycleFor(ctx context.Context, id uuid.UUID) (*TreatmentCycle, *TreatmentPlan, error) {
	c, err := s.cycles.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	p, err := s.plans.GetByID(ctx, c.TreatmentPlanID)
	if err != nil {
		return nil, nil, err
	}
	return c, p, nil
}

// GetCycle returns the cycle together with its drug administrations.
func (s *Service) GetCycle(ctx context.Context, id uuid.UUID) (*TreatmentCycle, error) {
	c, p, err := s.cycleFor(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, p.PatientID); err != nil {
		return nil, err
	}
	if c.Administrations, err = s.cycles.GetAdministrations(ctx, c.ID); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) UpdateCycle(ctx context.Context, id uuid.UUID, req *UpdateCycleRequest) (*TreatmentCycle, error) {
	c, err := s.cycles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != nil && !validCycleStatuses[*req.Status] {
		return nil, apperr.New(apperr.ErrValidation, "invalid cycle status: %s", *req.Status)
	}
	applyCycleUpdate(c, req)
	if err := s.cycles.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("update cycle: %w", err)
	}
	return c, nil
}

func applyCycleUpdate(c *TreatmentCycle, req *UpdateCycleRequest) {
	if req.ScheduledDate != nil {
		c.ScheduledDate = *req.ScheduledDate
	}
	if req.ActualDate != nil {
		c.ActualDate = req.ActualDate
	}
	if req.Status != nil {
		c.Status = *req.Status
	}
	if req.PreChemoLabs != nil {
		c.PreChemoLabs = *req.PreChemoLabs
	}
	if req.PreChemoVitals != nil {
		c.PreChemoVitals = *req.PreChemoVitals
	}
	if req.PatientWeightKg != nil {
		c.PatientWeightKg = req.PatientWeightKg
	}
	if req.CalculatedBSA != nil {
		c.CalculatedBSA = req.CalculatedBSA
	}
	if req.DoseModifications != nil {
		c.DoseModifications = *req.DoseModifications
	}
	if req.ModificationReason != nil {
		c.ModificationReason = req.ModificationReason
	}
	if req.ApprovalNotes != nil {
		c.ApprovalNotes = req.ApprovalNotes
	}
	if req.ImmediateReactions != nil {
		c.ImmediateReactions = *req.ImmediateReactions
	}
	if req.DischargeNotes != nil {
		c.DischargeNotes = req.DischargeNotes
	}
	if req.FollowUpInstructions != nil {
		c.FollowUpInstructions = req.FollowUpInstructions
	}
}

func (s *Service) ApproveCycle(ctx context.Context, id uuid.UUID, notes *string) (*TreatmentCycle, error) {
	c, p, err := s.cycleFor(ctx, id)
	if err != nil {
		return nil, err
	}
	next, ok := cycleMachine.next(c.Status, EventApprove)
	if !ok {
		return nil, apperr.New(apperr.ErrInvalidState, "cannot approve a %s cycle", c.Status)
	}
	if c.DaycareDoctorID, err = s.staff.DoctorIDForUser(ctx, auth.UserIDFromContext(ctx)); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	c.Status, c.ApprovedAt, c.ApprovalNotes = next, &now, notes
	if err := s.cycles.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("approve cycle: %w", err)
	}

	s.notifyPatient(ctx, p.PatientID, kindApprovalReceived, notification.TplCycleApproved, map[string]string{
		"cycle_number":   strconv.Itoa(c.CycleNumber),
		"protocol":       p.ProtocolName,
		"scheduled_date": c.ScheduledDate.String(),
	})
	return c, nil
}

// StartCycle moves an approved cycle into progress. The first cycle started
// on an approved plan also activates the plan.
func (s *Service) StartCycle(ctx context.Context, id uuid.UUID) (*TreatmentCycle, error) {
	var c *TreatmentCycle
	err := s.inTx(ctx, func(ctx context.Context) error {
		var err error
		if c, err = s.cycles.GetForUpdate(ctx, id); err != nil {
			return err
		}
		next, ok := cycleMachine.next(c.Status, EventStart)
		if !ok {
			return errNotApproved
		}
		now := s.now().UTC()
		started := *c
		started.Status, started.StartedAt = next, &now
		if started.ActualDate == nil {
			today := civil.Of(now)
			started.ActualDate = &today
		}
		if started.AdministeredBy, err = s.staff.NurseIDForUser(ctx, auth.UserIDFromContext(ctx)); err != nil {
			return err
		}
		if err := s.cycles.Update(ctx, &started); err != nil {
			return fmt.Errorf("start cycle: %w", err)
		}
		c = &started

		p, err := s.plans.GetForUpdate(ctx, c.TreatmentPlanID)
		if err != nil {
			return err
		}
		if active, ok := planMachine.next(p.Status, EventActivate); ok {
			p.Status = active
			return s.plans.Update(ctx, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// CompleteCycle closes a cycle and, in the same transaction, counts it
// against the plan. The cycle row and then the plan row are locked, so
// concurrent completions of one cycle see each other and count it once. The
// plan completes once every planned cycle is done.
func (s *Service) CompleteCycle(ctx context.Context, id uuid.UUID, dischargeNotes, followUp *string) (*TreatmentCycle, error) {
	var (
		c *TreatmentCycle
		p *TreatmentPlan
	)
	err := s.inTx(ctx, func(ctx context.Context) error {
		var err error
		if c, err = s.cycles.GetForUpdate(ctx, id); err != nil {
			return err
		}
		if p, err = s.plans.GetForUpdate(ctx, c.TreatmentPlanID); err != nil {
			return err
		}
		next, ok := cycleMachine.next(c.Status, EventComplete)
		if !ok {
			return apperr.New(apperr.ErrInvalidState, "cannot complete a %s cycle", c.Status)
		}
		alreadyCounted := c.Status == CycleCompleted

		now := s.now().UTC()
		c.Status, c.CompletedAt = next, &now
		c.DischargeNotes, c.FollowUpInstructions = dischargeNotes, followUp
		if err := s.cycles.Update(ctx, c); err != nil {
			return fmt.Errorf("complete cycle: %w", err)
		}

		if !alreadyCounted && p.CompletedCycles < p.PlannedCycles {
			p.CompletedCycles++
		}
		if p.CompletedCycles >= p.PlannedCycles {
			if done, ok := planMachine.next(p.Status, EventFinish); ok {
				p.Status = done
			}
		}
		return s.plans.Update(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	data := map[string]string{
		"cycle_number":   strconv.Itoa(c.CycleNumber),
		"planned_cycles": strconv.Itoa(p.PlannedCycles),
		"follow_up":      "",
	}
	if c.FollowUpInstructions != nil {
		data["follow_up"] = *c.FollowUpInstructions
	}
	s.notifyPatient(ctx, p.PatientID, kindCycleCompleted, notification.TplCycleCompleted, data)
	return c, nil
}

// -- Drug Administrations --

func (s *Service) ListAdministrations(ctx context.Context, cycleID uuid.UUID) ([]*DrugAdministration, error) {
	_, p, err := s.cycleFor(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, p.PatientID); err != nil {
		return nil, err
	}
	items, err := s.cycles.GetAdministrations(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*DrugAdministration{}
	}
	return items, nil
}

// UpdateAdministration applies a partial update. Moving to prepared,
// verified, started or completed stamps the acting nurse and the time.
func (s *Service) UpdateAdministration(ctx context.Context, id uuid.UUID, req *UpdateAdministrationRequest) (*DrugAdministration, error) {
	a, err := s.cycles.GetAdministration(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.ActualDose != nil {
		a.ActualDose = req.ActualDose
	}
	if req.ActualDurationMins != nil {
		a.ActualDurationMins = req.ActualDurationMins
	}
	if req.BatchNumber != nil {
		a.BatchNumber = req.BatchNumber
	}
	if req.ExpiryDate != nil {
		a.ExpiryDate = req.ExpiryDate
	}
	if req.IVSite != nil {
		a.IVSite = req.IVSite
	}
	if req.FlowRate != nil {
		a.FlowRate = req.FlowRate
	}
	if req.Reactions != nil {
		a.Reactions = *req.Reactions
	}
	if req.Notes != nil {
		a.Notes = req.Notes
	}
	if req.Status != nil && *req.Status != a.Status {
		if !validAdminStatuses[*req.Status] {
			return nil, apperr.New(apperr.ErrValidation, "invalid administration status: %s", *req.Status)
		}
		nurseID, err := s.staff.NurseIDForUser(ctx, auth.UserIDFromContext(ctx))
		if err != nil {
			return nil, err
		}
		now := s.now().UTC()
		a.Status = *req.Status
		switch a.Status {
		case AdminPrepared:
			a.PreparedBy, a.PreparedAt = nurseID, &now
		case AdminVerified:
			a.VerifiedBy, a.VerifiedAt = nurseID, &now
		case AdminStarted:
			a.StartedAt, a.AdministeredBy = &now, nurseID
		case AdminCompleted:
			a.CompletedAt = &now
			if a.AdministeredBy == nil {
				a.AdministeredBy = nurseID
			}
		}
	}
	if err := s.cycles.UpdateAdministration(ctx, a); err != nil {
		return nil, fmt.Errorf("update drug administration: %w", err)
	}
	return a, nil
}

// notifyPatient records an in-app notification for the patient's account.
// Failures are logged and never fail the workflow step.
func (s *Service) notifyPatient(ctx context.Context, patientID uuid.UUID, kind, templateID string, data map[string]string) {
	if s.notifier == nil {
		return
	}
	pt, err := s.patients.Lookup(ctx, patientID)
	if err != nil {
		s.logger.Warn().Err(err).Str("patient_id", patientID.String()).Msg("notification skipped")
		return
	}
	if pt.UserID == nil {
		return
	}
	if err := s.notifier.Notify(ctx, *pt.UserID, kind, templateID, data); err != nil {
		s.logger.Warn().Err(err).
			Str("patient_id", patientID.String()).
			Str("template", templateID).
			Msg("failed to record notification")
		return
	}
	s.logger.Debug().Str("patient_id", patientID.String()).Str("kind", kind).Msg("notification recorded")
}
