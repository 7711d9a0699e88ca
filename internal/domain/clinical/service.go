package clinical

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/moinmakda/ChemoCareAI/internal/domain/dosing"
	"github.com/moinmakda/ChemoCareAI/internal/domain/patient"
	"github.com/moinmakda/ChemoCareAI/internal/platform/auth"
	"github.com/moinmakda/ChemoCareAI/internal/platform/notification"
	"github.com/moinmakda/ChemoCareAI/pkg/apperr"
)

// DefaultAppointmentMins is used when a booking leaves duration_mins out.
const DefaultAppointmentMins = 30

var errScheduledDate = apperr.New(apperr.ErrValidation, "scheduled_date is required")

// PatientDirectory resolves patient records for clinical entries.
type PatientDirectory interface {
	Lookup(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
	Mine(ctx context.Context) (*patient.Patient, error)
}

// NurseLookup maps a user account to its nurse profile, nil when there is none.
type NurseLookup interface {
	NurseIDForUser(ctx context.Context, userID uuid.UUID) (*uuid.UUID, error)
}

type Options struct {
	// CareTeamEmail receives critical vitals and urgent symptom alerts.
	// Alerts are only logged when it is empty.
	CareTeamEmail string
}

type Service struct {
	vitals        VitalRepository
	symptoms      SymptomRepository
	appointments  AppointmentRepository
	notifications NotificationRepository
	patients      PatientDirectory
	nurses        NurseLookup
	templates     *notification.TemplateEngine
	mailer        *notification.Mailer
	logger        zerolog.Logger
	opts          Options
	now           func() time.Time
}

func NewService(vitals VitalRepository, symptoms SymptomRepository, appointments AppointmentRepository,
	notifications NotificationRepository, patients PatientDirectory, nurses NurseLookup,
	templates *notification.TemplateEngine, mailer *notification.Mailer,
	logger zerolog.Logger, opts Options) *Service {
	return &Service{
		vitals:        vitals,
		symptoms:      symptoms,
		appointments:  appointments,
		notifications: notifications,
		patients:      patients,
		nurses:        nurses,
		templates:     templates,
		mailer:        mailer,
		logger:        logger.With().Str("component", "clinical").Logger(),
		opts:          opts,
		now:           time.Now,
	}
}

// ownedPatient resolves id and applies the patient ownership rule.
func (s *Service) ownedPatient(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	p, err := s.patients.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := patient.CheckOwner(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// -- Vitals --

func (s *Service) RecordVitals(ctx context.Context, req *RecordVitalRequest) (*Vital, error) {
	p, err := s.patients.Lookup(ctx, req.PatientID)
	if err != nil {
		return nil, err
	}
	nurseID, err := s.nurses.NurseIDForUser(ctx, auth.UserIDFromContext(ctx))
	if err != nil {
		return nil, err
	}
	v := &Vital{
		PatientID:     p.ID,
		CycleID:       req.CycleID,
		RecordedAt:    s.now().UTC(),
		RecordedBy:    nurseID,
		VitalReadings: req.VitalReadings,
		Timing:        req.Timing,
		AIAlerts:      dosing.VitalAlerts(req.input(), false),
	}
	if err := s.vitals.Create(ctx, v); err != nil {
		return nil, err
	}
	s.raiseVitalAlerts(ctx, p, v)
	return v, nil
}

func (s *Service) RecordMyVitals(ctx context.Context, req *SelfVitalRequest) (*Vital, error) {
	p, err := s.patients.Mine(ctx)
	if err != nil {
		return nil, err
	}
	timing := TimingSelfReported
	v := &Vital{
		PatientID:     p.ID,
		CycleID:       req.CycleID,
		RecordedAt:    s.now().UTC(),
		VitalReadings: req.VitalReadings,
		Timing:        &timing,
		AIAlerts:      dosing.VitalAlerts(req.input(), true),
	}
	if err := s.vitals.Create(ctx, v); err != nil {
		return nil, err
	}
	s.raiseVitalAlerts(ctx, p, v)
	return v, nil
}

func (s *Service) MyVitals(ctx context.Context, limit int) ([]*Vital, error) {
	p, err := s.patients.Mine(ctx)
	if err != nil {
		return nil, err
	}
	return s.listVitals(ctx, p.ID, limit)
}

func (s *Service) PatientVitals(ctx context.Context, patientID uuid.UUID, limit int) ([]*Vital, error) {
	p, err := s.ownedPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	return s.listVitals(ctx, p.ID, limit)
}

func (s *Service) listVitals(ctx context.Context, patientID uuid.UUID, limit int) ([]*Vital, error) {
	items, err := s.vitals.ListByPatient(ctx, patientID, limit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*Vital{}
	}
	return items, nil
}

// CycleVitals lists a cycle's readings oldest first. Patients only get the
// readings recorded against their own record.
func (s *Service) CycleVitals(ctx context.Context, cycleID uuid.UUID) ([]*Vital, error) {
	items, err := s.vitals.ListByCycle(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	out := make([]*Vital, 0, len(items))
	if auth.RoleFromContext(ctx) != auth.RolePatient {
		return append(out, items...), nil
	}
	p, err := s.patients.Mine(ctx)
	if err != nil {
		return nil, err
	}
	for _, v := range items {
		if v.PatientID == p.ID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *Service) raiseVitalAlerts(ctx context.Context, p *patient.Patient, v *Vital) {
	if !dosing.HasCritical(v.AIAlerts) {
		return
	}
	msgs := make([]string, 0, len(v.AIAlerts))
	for _, a := range v.AIAlerts {
		msgs = append(msgs, a.Message)
	}
	data := map[string]string{
		"patient_name": p.FullName,
		"alerts":       strings.Join(msgs, "; "),
		"recorded_at":  v.RecordedAt.Format(time.RFC3339),
	}
	s.alertCareTeam(ctx, notification.TplVitalsAlert, p.ID, data)
	if p.UserID != nil {
		s.notifyQuietly(ctx, *p.UserID, KindVitalsAlert, notification.TplVitalsAlert, data)
	}
}

// -- Symptom diary --

func (s *Service) LogSymptoms(ctx context.Context, patientID uuid.UUID, req *CreateSymptomRequest) (*SymptomEntry, error) {
	p, err := s.ownedPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	return s.logSymptoms(ctx, p, req)
}

func (s *Service) LogMySymptoms(ctx context.Context, req *CreateSymptomRequest) (*SymptomEntry, error) {
	p, err := s.patients.Mine(ctx)
	if err != nil {
		return nil, err
	}
	return s.logSymptoms(ctx, p, req)
}

func (s *Service) logSymptoms(ctx context.Context, p *patient.Patient, req *CreateSymptomRequest) (*SymptomEntry, error) {
	res := dosing.TriageSymptoms(req.input())
	e := &SymptomEntry{
		PatientID:       p.ID,
		CycleID:         req.CycleID,
		RecordedAt:      s.now().UTC(),
		SymptomReport:   req.SymptomReport,
		AISeverityScore: &res.SeverityScore,
		AIAlertLevel:    &res.AlertLevel,
	}
	if len(res.Recommendations) > 0 {
		recs := strings.Join(res.Recommendations, "; ")
		e.AIRecommendations = &recs
	}
	if err := s.symptoms.Create(ctx, e); err != nil {
		return nil, err
	}

	if res.AlertLevel == dosing.AlertUrgent {
		msgs := make([]string, 0, len(res.Alerts))
		for _, a := range res.Alerts {
			msgs = append(msgs, a.Message)
		}
		s.alertCareTeam(ctx, notification.TplSymptomAlert, p.ID, map[string]string{
			"patient_name": p.FullName,
			"score":        strconv.FormatFloat(res.SeverityScore, 'f', 2, 64),
			"alerts":       strings.Join(msgs, "; "),
		})
	}
	return e, nil
}

func (s *Service) ListSymptoms(ctx context.Context, patientID uuid.UUID, limit int) ([]*SymptomEntry, error) {
	p, err := s.ownedPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	return s.listSymptoms(ctx, p.ID, limit)
}

func (s *Service) MySymptoms(ctx context.Context, limit int) ([]*SymptomEntry, error) {
	p, err := s.patients.Mine(ctx)
	if err != nil {
		return nil, err
	}
	return s.listSymptoms(ctx, p.ID, limit)
}

func (s *Service) listSymptoms(ctx context.Context, patientID uuid.UUID, limit int) ([]*SymptomEntry, error) {
	items, err := s.symptoms.ListByPatient(ctx, patientID, limit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*SymptomEntry{}
	}
	return items, nil
}

// alertCareTeam logs the alert and mails it when a care team address is set.
// Delivery failures never fail the write that raised the alert.
func (s *Service) alertCareTeam(ctx context.Context, templateID string, patientID uuid.UUID, data map[string]string) {
	s.logger.Warn().
		Str("alert", templateID).
		Str("patient_id", patientID.String()).
		Str("detail", data["alerts"]).
		Msg("clinical alert raised")
	if s.mailer == nil || s.opts.CareTeamEmail == "" {
		return
	}
	if err := s.mailer.Send(ctx, templateID, s.opts.CareTeamEmail, data); err != nil {
		s.logger.Error().Err(err).Str("alert", templateID).Msg("failed to email care team")
	}
}

// -- Appointments --

// ListAppointments applies f for staff. Patients always see their own
// appointments only, and none when no profile is linked.
func (s *Service) ListAppointments(ctx context.Context, f AppointmentFilter) ([]*Appointment, error) {
	if auth.RoleFromContext(ctx) == auth.RolePatient {
		p, err := s.patients.Mine(ctx)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return []*Appointment{}, nil
			}
			return nil, err
		}
		f.PatientID = &p.ID
	}
	items, err := s.appointments.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*Appointment{}
	}
	return items, nil
}

func (s *Service) CreateAppointment(ctx context.Context, req *CreateAppointmentRequest) (*Appointment, error) {
	p, err := s.ownedPatient(ctx, req.PatientID)
	if err != nil {
		return nil, err
	}
	if req.ScheduledDate.IsZero() {
		return nil, errScheduledDate
	}
	a := &Appointment{
		PatientID:       p.ID,
		AppointmentType: req.AppointmentType,
		ScheduledDate:   req.ScheduledDate,
		ScheduledTime:   req.ScheduledTime,
		DurationMins:    DefaultAppointmentMins,
		CycleID:         req.CycleID,
		ChairNumber:     req.ChairNumber,
		DoctorID:        req.DoctorID,
		NurseID:         req.NurseID,
		Status:          AppointmentScheduled,
		Notes:           req.Notes,
	}
	if req.DurationMins != nil {
		a.DurationMins = *req.DurationMins
	}
	if err := s.appointments.Create(ctx, a); err != nil {
		return nil, err
	}
	if p.UserID != nil {
		s.notifyQuietly(ctx, *p.UserID, KindAppointmentReminder, notification.TplAppointmentSaved, map[string]string{
			"date": a.ScheduledDate.String(),
			"type": strings.ReplaceAll(string(a.AppointmentType), "_", " "),
			"time": a.ScheduledTime,
		})
	}
	return a, nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if auth.RoleFromContext(ctx) == auth.RolePatient {
		if _, err := s.ownedPatient(ctx, a.PatientID); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (s *Service) UpdateAppointment(ctx context.Context, id uuid.UUID, req *UpdateAppointmentRequest) (*Appointment, error) {
	a, err := s.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.AppointmentType != nil {
		a.AppointmentType = *req.AppointmentType
	}
	if req.ScheduledDate != nil && !req.ScheduledDate.IsZero() {
		a.ScheduledDate = *req.ScheduledDate
	}
	if req.ScheduledTime != nil {
		a.ScheduledTime = *req.ScheduledTime
	}
	if req.DurationMins != nil {
		a.DurationMins = *req.DurationMins
	}
	if req.ChairNumber != nil {
		a.ChairNumber = req.ChairNumber
	}
	if req.DoctorID != nil {
		a.DoctorID = req.DoctorID
	}
	if req.NurseID != nil {
		a.NurseID = req.NurseID
	}
	if req.Status != nil {
		a.Status = *req.Status
	}
	if req.Notes != nil {
		a.Notes = req.Notes
	}
	if err := s.appointments.Update(ctx, a); err != nil {
		return nil, fmt.Errorf("update appointment: %w", err)
	}
	return a, nil
}

func (s *Service) CheckIn(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.setAppointmentStatus(ctx, id, func(a *Appointment, now time.Time) {
		a.Status = AppointmentCheckedIn
		a.CheckedInAt = &now
	})
}

func (s *Service) CheckOut(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.setAppointmentStatus(ctx, id, func(a *Appointment, now time.Time) {
		a.Status = AppointmentCompleted
		a.CheckedOutAt = &now
	})
}

func (s *Service) CancelAppointment(ctx context.Context, id uuid.UUID, reason *string) error {
	_, err := s.setAppointmentStatus(ctx, id, func(a *Appointment, _ time.Time) {
		a.Status = AppointmentCancelled
		a.CancellationReason = reason
	})
	return err
}

func (s *Service) setAppointmentStatus(ctx context.Context, id uuid.UUID, apply func(*Appointment, time.Time)) (*Appointment, error) {
	a, err := s.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	apply(a, s.now().UTC())
	if err := s.appointments.Update(ctx, a); err != nil {
		return nil, fmt.Errorf("update appointment: %w", err)
	}
	return a, nil
}

// -- Notifications --

// Notify renders templateID into an in-app notification for userID.
func (s *Service) Notify(ctx context.Context, userID uuid.UUID, kind, templateID string, data map[string]string) error {
	if !validKinds[kind] {
		return apperr.New(apperr.ErrValidation, "invalid notification type: %s", kind)
	}
	title, body, err := s.templates.Render(templateID, data)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode notification data: %w", err)
	}
	return s.notifications.Create(ctx, &Notification{
		UserID: userID,
		Type:   kind,
		Title:  title,
		Body:   body,
		Data:   raw,
	})
}

func (s *Service) notifyQuietly(ctx context.Context, userID uuid.UUID, kind, templateID string, data map[string]string) {
	if err := s.Notify(ctx, userID, kind, templateID, data); err != nil {
		s.logger.Error().Err(err).Str("kind", kind).Str("user_id", userID.String()).Msg("failed to create notification")
	}
}

func (s *Service) ListNotifications(ctx context.Context, unreadOnly bool, limit int) ([]*Notification, error) {
	items, err := s.notifications.ListByUser(ctx, auth.UserIDFromContext(ctx), unreadOnly, limit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*Notification{}
	}
	return items, nil
}

func (s *Service) MarkRead(ctx context.Context, id uuid.UUID) error {
	return s.notifications.MarkRead(ctx, id, auth.UserIDFromContext(ctx))
}

func (s *Service) MarkAllRead(ctx context.Context) (int64, error) {
	return s.notifications.MarkAllRead(ctx, auth.UserIDFromContext(ctx))
}
