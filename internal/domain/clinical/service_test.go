package clinical

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moinmakda/ChemoCareAI/internal/domain/dosing"
	"github.com/moinmakda/ChemoCareAI/internal/domain/patient"
	"github.com/moinmakda/ChemoCareAI/internal/platform/auth"
	"github.com/moinmakda/ChemoCareAI/internal/platform/notification"
	"github.com/moinmakda/ChemoCareAI/pkg/apperr"
	"github.com/moinmakda/ChemoCareAI/pkg/civil"
)

// -- Mock Repositories --

type mockVitalRepo struct {
	items []*Vital
}

func (m *mockVitalRepo) Create(_ context.Context, v *Vital) error {
	v.ID = uuid.New()
	m.items = append(m.items, v)
	return nil
}

func (m *mockVitalRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit int) ([]*Vital, error) {
	var r []*Vital
	for i := len(m.items) - 1; i >= 0 && len(r) < limit; i-- {
		if m.items[i].PatientID == patientID {
			r = append(r, m.items[i])
		}
	}
	return r, nil
}

func (m *mockVitalRepo) ListByCycle(_ context.Context, cycleID uuid.UUID) ([]*Vital, error) {
	var r []*Vital
	for _, v := range m.items {
		if v.CycleID != nil && *v.CycleID == cycleID {
			r = append(r, v)
		}
	}
	return r, nil
}

type mockSymptomRepo struct {
	items []*SymptomEntry
}

func (m *mockSymptomRepo) Create(_ context.Context, e *SymptomEntry) error {
	e.ID = uuid.New()
	m.items = append(m.items, e)
	return nil
}

func (m *mockSymptomRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit int) ([]*SymptomEntry, error) {
	var r []*SymptomEntry
	for i := len(m.items) - 1; i >= 0 && len(r) < limit; i-- {
		if m.items[i].PatientID == patientID {
			r = append(r, m.items[i])
		}
	}
	return r, nil
}

type mockAppointmentRepo struct {
	store map[uuid.UUID]*Appointment
}

func (m *mockAppointmentRepo) Create(_ context.Context, a *Appointment) error {
	a.ID = uuid.New()
	cp := *a
	m.store[a.ID] = &cp
	return nil
}

func (m *mockAppointmentRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := m.store[id]
	if !ok {
		return nil, apperr.NotFound("Appointment")
	}
	cp := *a
	return &cp, nil
}

func (m *mockAppointmentRepo) Update(_ context.Context, a *Appointment) error {
	if _, ok := m.store[a.ID]; !ok {
		return apperr.NotFound("Appointment")
	}
	cp := *a
	m.store[a.ID] = &cp
	return nil
}

func (m *mockAppointmentRepo) List(_ context.Context, f AppointmentFilter) ([]*Appointment, error) {
	var r []*Appointment
	for _, a := range m.store {
		if f.PatientID != nil && a.PatientID != *f.PatientID {
			continue
		}
		if f.ScheduledDate != nil && a.ScheduledDate != *f.ScheduledDate {
			continue
		}
		if f.Status != nil && a.Status != *f.Status {
			continue
		}
		r = append(r, a)
	}
	sort.Slice(r, func(i, j int) bool {
		if r[i].ScheduledDate != r[j].ScheduledDate {
			return r[i].ScheduledDate.Before(r[j].ScheduledDate)
		}
		return r[i].ScheduledTime < r[j].ScheduledTime
	})
	return r, nil
}

type mockNotificationRepo struct {
	items []*Notification
}

func (m *mockNotificationRepo) Create(_ context.Context, n *Notification) error {
	n.ID = uuid.New()
	m.items = append(m.items, n)
	return nil
}

func (m *mockNotificationRepo) ListByUser(_ context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]*Notification, error) {
	var r []*Notification
	for i := len(m.items) - 1; i >= 0 && len(r) < limit; i-- {
		n := m.items[i]
		if n.UserID != userID || (unreadOnly && n.IsRead) {
			continue
		}
		r = append(r, n)
	}
	return r, nil
}

func (m *mockNotificationRepo) MarkRead(_ context.Context, id, userID uuid.UUID) error {
	for _, n := range m.items {
		if n.ID == id && n.UserID == userID {
			n.IsRead = true
			return nil
		}
	}
	return apperr.NotFound("Notification")
}

func (m *mockNotificationRepo) MarkAllRead(_ context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	for _, n := range m.items {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			count++
		}
	}
	return count, nil
}

type mockPatients struct {
	store map[uuid.UUID]*patient.Patient
}

func (m *mockPatients) Lookup(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	p, ok := m.store[id]
	if !ok {
		return nil, apperr.NotFound("Patient")
	}
	return p, nil
}

func (m *mockPatients) Mine(ctx context.Context) (*patient.Patient, error) {
	if auth.RoleFromContext(ctx) != auth.RolePatient {
		return nil, apperr.New(apperr.ErrForbidden, "Only patients can use this endpoint")
	}
	uid := auth.UserIDFromContext(ctx)
	for _, p := range m.store {
		if p.UserID != nil && *p.UserID == uid {
			return p, nil
		}
	}
	return nil, apperr.New(apperr.ErrNotFound, "Patient profile not found")
}

type mockNurses struct {
	byUser map[uuid.UUID]uuid.UUID
}

func (m *mockNurses) NurseIDForUser(_ context.Context, userID uuid.UUID) (*uuid.UUID, error) {
	if id, ok := m.byUser[userID]; ok {
		return &id, nil
	}
	return nil, nil
}

// -- Test environment --

type testEnv struct {
	svc           *Service
	vitals        *mockVitalRepo
	symptoms      *mockSymptomRepo
	appointments  *mockAppointmentRepo
	notifications *mockNotificationRepo
	email         *notification.MockEmailSender

	patientID   uuid.UUID
	patientUser uuid.UUID
	nurseUser   uuid.UUID
	nurseID     uuid.UUID
	doctorUser  uuid.UUID
}

var fixedNow = time.Date(2024, 6, 14, 9, 30, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func newTestEnv() *testEnv {
	env := &testEnv{
		vitals:        &mockVitalRepo{},
		symptoms:      &mockSymptomRepo{},
		appointments:  &mockAppointmentRepo{store: map[uuid.UUID]*Appointment{}},
		notifications: &mockNotificationRepo{},
		email:         &notification.MockEmailSender{},
		patientID:     uuid.New(),
		patientUser:   uuid.New(),
		nurseUser:     uuid.New(),
		nurseID:       uuid.New(),
		doctorUser:    uuid.New(),
	}
	patients := &mockPatients{store: map[uuid.UUID]*patient.Patient{
		env.patientID: {
			ID:       env.patientID,
			UserID:   &env.patientUser,
			FullName: "Asha Rao",
		},
	}}
	nurses := &mockNurses{byUser: map[uuid.UUID]uuid.UUID{env.nurseUser: env.nurseID}}
	templates := notification.NewTemplateEngine()
	env.svc = NewService(env.vitals, env.symptoms, env.appointments, env.notifications,
		patients, nurses, templates, notification.NewMailer(env.email, templates),
		zerolog.Nop(), Options{CareTeamEmail: "oncology@hospital.test"})
	env.svc.now = func() time.Time { return fixedNow }
	return env
}

func (env *testEnv) asNurse() context.Context {
	return auth.WithUser(context.Background(), env.nurseUser, auth.RoleNurse)
}

func (env *testEnv) asDoctor() context.Context {
	return auth.WithUser(context.Background(), env.doctorUser, auth.RoleDoctorOPD)
}

func (env *testEnv) asPatient() context.Context {
	return auth.WithUser(context.Background(), env.patientUser, auth.RolePatient)
}

func asStranger() context.Context {
	return auth.WithUser(context.Background(), uuid.New(), auth.RolePatient)
}

// -- Vitals --

func TestService_RecordVitals_StampsNurseAndAlerts(t *testing.T) {
	env := newTestEnv()
	req := &RecordVitalRequest{
		PatientID: env.patientID,
		VitalReadings: VitalReadings{
			TemperatureF:     ptr(101.5),
			OxygenSaturation: ptr(93.0),
		},
	}

	v, err := env.svc.RecordVitals(env.asNurse(), req)
	require.NoError(t, err)
	require.NotNil(t, v.RecordedBy)
	assert.Equal(t, env.nurseID, *v.RecordedBy)
	assert.Equal(t, fixedNow, v.RecordedAt)

	types := make([]string, 0, len(v.AIAlerts))
	for _, a := range v.AIAlerts {
		types = append(types, a.Type)
	}
	assert.Equal(t, []string{"fever", "low_spo2", "high_fever"}, types)
	assert.Equal(t, "Low oxygen saturation", v.AIAlerts[1].Message)

	calls := env.email.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "oncology@hospital.test", calls[0].To)
	assert.Equal(t, "Vitals alert for Asha Rao", calls[0].Subject)

	require.Len(t, env.notifications.items, 1)
	assert.Equal(t, KindVitalsAlert, env.notifications.items[0].Type)
	assert.Equal(t, env.patientUser, env.notifications.items[0].UserID)
}

func TestService_RecordVitals_NoAlertsForNormalReadings(t *testing.T) {
	env := newTestEnv()
	v, err := env.svc.RecordVitals(env.asNurse(), &RecordVitalRequest{
		PatientID:     env.patientID,
		VitalReadings: VitalReadings{TemperatureF: ptr(98.6), PulseBPM: ptr(72)},
	})
	require.NoError(t, err)
	assert.Empty(t, v.AIAlerts)
	assert.Empty(t, env.email.Calls())
	assert.Empty(t, env.notifications.items)
}

func TestService_RecordVitals_WarningOnlyDoesNotAlert(t *testing.T) {
	env := newTestEnv()
	v, err := env.svc.RecordVitals(env.asNurse(), &RecordVitalRequest{
		PatientID:     env.patientID,
		VitalReadings: VitalReadings{BloodPressureSystolic: ptr(150)},
	})
	require.NoError(t, err)
	require.Len(t, v.AIAlerts, 1)
	assert.Equal(t, dosing.SeverityWarning, v.AIAlerts[0].Severity)
	assert.Empty(t, env.email.Calls())
}

func TestService_RecordVitals_PatientNotFound(t *testing.T) {
	env := newTestEnv()
	_, err := env.svc.RecordVitals(env.asNurse(), &RecordVitalRequest{PatientID: uuid.New()})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	assert.Equal(t, "Patient not found", err.Error())
}

func TestService_RecordMyVitals_SelfReported(t *testing.T) {
	env := newTestEnv()
	v, err := env.svc.RecordMyVitals(env.asPatient(), &SelfVitalRequest{
		VitalReadings: VitalReadings{TemperatureF: ptr(100.9)},
	})
	require.NoError(t, err)
	require.NotNil(t, v.Timing)
	assert.Equal(t, TimingSelfReported, *v.Timing)
	assert.Nil(t, v.RecordedBy)
	require.Len(t, v.AIAlerts, 1)
	assert.Equal(t, "Fever detected - please contact your care team", v.AIAlerts[0].Message)
}

func TestService_RecordMyVitals_NonPatient(t *testing.T) {
	env := newTestEnv()
	_, err := env.svc.RecordMyVitals(env.asNurse(), &SelfVitalRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))
}

func TestService_MyVitals_NoProfile(t *testing.T) {
	env := newTestEnv()
	_, err := env.svc.MyVitals(asStranger(), 20)
	require.Error(t, err)
	assert.Equal(t, "Patient profile not found", err.Error())
}

func TestService_PatientVitals_NewestFirstWithLimit(t *testing.T) {
	env := newTestEnv()
	for i := 0; i < 3; i++ {
		env.svc.now = func() time.Time { return fixedNow.Add(time.Duration(i) * time.Hour) }
		_, err := env.svc.RecordVitals(env.asNurse(), &RecordVitalRequest{
			PatientID:     env.patientID,
			VitalReadings: VitalReadings{PulseBPM: ptr(70 + i)},
		})
		require.NoError(t, err)
	}

	items, err := env.svc.PatientVitals(env.asDoctor(), env.patientID, 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 72, *items[0].PulseBPM)
	assert.Equal(t, 71, *items[1].PulseBPM)
}

func TestService_PatientVitals_Ownership(t *testing.T) {
	env := newTestEnv()
	_, err := env.svc.PatientVitals(asStranger(), env.patientID, 20)
	require.Error(t, err)
	assert.Equal(t, "Access denied", err.Error())

	items, err := env.svc.PatientVitals(env.asPatient(), env.patientID, 20)
	require.NoError(t, err)
	assert.NotNil(t, items)
}

func TestService_CycleVitals_PatientSeesOwnOnly(t *testing.T) {
	env := newTestEnv()
	cycleID := uuid.New()
	other := uuid.New()
	env.vitals.items = []*Vital{
		{ID: uuid.New(), PatientID: env.patientID, CycleID: &cycleID},
		{ID: uuid.New(), PatientID: other, CycleID: &cycleID},
	}

	staffView, err := env.svc.CycleVitals(env.asNurse(), cycleID)
	require.NoError(t, err)
	assert.Len(t, staffView, 2)

	own, err := env.svc.CycleVitals(env.asPatient(), cycleID)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, env.patientID, own[0].PatientID)
}

// -- Symptoms --

func TestService_LogSymptoms_UrgentTriage(t *testing.T) {
	env := newTestEnv()
	e, err := env.svc.LogSymptoms(env.asNurse(), env.patientID, &CreateSymptomRequest{
		SymptomReport: SymptomReport{HasFever: true, NauseaScore: ptr(8)},
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.7, *e.AISeverityScore, 1e-9)
	assert.Equal(t, dosing.AlertUrgent, *e.AIAlertLevel)
	require.NotNil(t, e.AIRecommendations)
	assert.Equal(t, "Check CBC immediately to rule out febrile neutropenia; Consider adding/adjusting antiemetic regimen",
		*e.AIRecommendations)

	calls := env.email.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "Urgent symptoms reported by Asha Rao", calls[0].Subject)
	assert.True(t, strings.HasPrefix(calls[0].Body, "Severity score 0.70:"))
}

func TestService_LogMySymptoms_NormalEntry(t *testing.T) {
	env := newTestEnv()
	e, err := env.svc.LogMySymptoms(env.asPatient(), &CreateSymptomRequest{
		SymptomReport: SymptomReport{FatigueScore: ptr(3), MoodNotes: ptr("tired but fine")},
	})
	require.NoError(t, err)
	assert.Equal(t, env.patientID, e.PatientID)
	assert.Equal(t, dosing.AlertNormal, *e.AIAlertLevel)
	assert.Nil(t, e.AIRecommendations)
	assert.Empty(t, env.email.Calls())
}

func TestService_LogSymptoms_Ownership(t *testing.T) {
	env := newTestEnv()
	_, err := env.svc.LogSymptoms(asStranger(), env.patientID, &CreateSymptomRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))
}

func TestService_ListSymptoms_Limit(t *testing.T) {
	env := newTestEnv()
	for i := 0; i < 5; i++ {
		_, err := env.svc.LogMySymptoms(env.asPatient(), &CreateSymptomRequest{})
		require.NoError(t, err)
	}
	items, err := env.svc.ListSymptoms(env.asDoctor(), env.patientID, 3)
	require.NoError(t, err)
	assert.Len(t, items, 3)

	mine, err := env.svc.MySymptoms(env.asPatient(), 30)
	require.NoError(t, err)
	assert.Len(t, mine, 5)
}

// -- Appointments --

func (env *testEnv) book(t *testing.T, date, at string) *Appointment {
	t.Helper()
	a, err := env.svc.CreateAppointment(env.asNurse(), &CreateAppointmentRequest{
		PatientID:       env.patientID,
		AppointmentType: AppointmentDaycareChemo,
		ScheduledDate:   civil.MustParse(date),
		ScheduledTime:   at,
		ChairNumber:     ptr(4),
	})
	require.NoError(t, err)
	return a
}

func TestService_CreateAppointment_Defaults(t *testing.T) {
	env := newTestEnv()
	a := env.book(t, "2024-06-20", "09:00")

	assert.Equal(t, AppointmentScheduled, a.Status)
	assert.Equal(t, DefaultAppointmentMins, a.DurationMins)
	assert.Equal(t, 4, *a.ChairNumber)

	require.Len(t, env.notifications.items, 1)
	n := env.notifications.items[0]
	assert.Equal(t, KindAppointmentReminder, n.Type)
	assert.Equal(t, "Appointment on 2024-06-20", n.Title)
	assert.Equal(t, "Your daycare chemo appointment is scheduled for 2024-06-20 at 09:00.", n.Body)
}

func TestService_CreateAppointment_Validation(t *testing.T) {
	env := newTestEnv()
	_, err := env.svc.CreateAppointment(env.asNurse(), &CreateAppointmentRequest{
		PatientID:       uuid.New(),
		AppointmentType: AppointmentFollowUp,
		ScheduledDate:   civil.MustParse("2024-06-20"),
		ScheduledTime:   "10:00",
	})
	require.Error(t, err)
	assert.Equal(t, "Patient not found", err.Error())

	_, err = env.svc.CreateAppointment(env.asNurse(), &CreateAppointmentRequest{
		PatientID:       env.patientID,
		AppointmentType: AppointmentFollowUp,
		ScheduledTime:   "10:00",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestService_ListAppointments_Filters(t *testing.T) {
	env := newTestEnv()
	env.book(t, "2024-06-21", "14:00")
	env.book(t, "2024-06-20", "11:00")
	env.book(t, "2024-06-20", "09:00")
	other := uuid.New()
	env.appointments.store[uuid.New()] = &Appointment{PatientID: other, ScheduledDate: civil.MustParse("2024-06-20"), Status: AppointmentScheduled}

	all, err := env.svc.ListAppointments(env.asNurse(), AppointmentFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	day := civil.MustParse("2024-06-20")
	items, err := env.svc.ListAppointments(env.asNurse(), AppointmentFilter{PatientID: &env.patientID, ScheduledDate: &day})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "09:00", items[0].ScheduledTime)
	assert.Equal(t, "11:00", items[1].ScheduledTime)

	// Patients are pinned to their own record whatever they ask for.
	own, err := env.svc.ListAppointments(env.asPatient(), AppointmentFilter{PatientID: &other})
	require.NoError(t, err)
	assert.Len(t, own, 3)

	none, err := env.svc.ListAppointments(asStranger(), AppointmentFilter{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestService_AppointmentLifecycle(t *testing.T) {
	env := newTestEnv()
	a := env.book(t, "2024-06-20", "09:00")

	in, err := env.svc.CheckIn(env.asNurse(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, AppointmentCheckedIn, in.Status)
	require.NotNil(t, in.CheckedInAt)
	assert.Equal(t, fixedNow, *in.CheckedInAt)

	out, err := env.svc.CheckOut(env.asNurse(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, AppointmentCompleted, out.Status)
	assert.NotNil(t, out.CheckedOutAt)
	assert.NotNil(t, out.CheckedInAt)
}

func TestService_CancelAppointment(t *testing.T) {
	env := newTestEnv()
	a := env.book(t, "2024-06-20", "09:00")

	require.NoError(t, env.svc.CancelAppointment(env.asPatient(), a.ID, ptr("travelling")))
	got, err := env.svc.GetAppointment(env.asNurse(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, AppointmentCancelled, got.Status)
	assert.Equal(t, "travelling", *got.CancellationReason)

	err = env.svc.CancelAppointment(env.asNurse(), uuid.New(), nil)
	require.Error(t, err)
	assert.Equal(t, "Appointment not found", err.Error())
}

func TestService_UpdateAppointment_Partial(t *testing.T) {
	env := newTestEnv()
	a := env.book(t, "2024-06-20", "09:00")

	got, err := env.svc.UpdateAppointment(env.asNurse(), a.ID, &UpdateAppointmentRequest{
		ScheduledTime: ptr("10:30"),
		Status:        ptr(AppointmentConfirmed),
	})
	require.NoError(t, err)
	assert.Equal(t, "10:30", got.ScheduledTime)
	assert.Equal(t, AppointmentConfirmed, got.Status)
	assert.Equal(t, civil.MustParse("2024-06-20"), got.ScheduledDate)
	assert.Equal(t, 4, *got.ChairNumber)
}

func TestService_GetAppointment_Ownership(t *testing.T) {
	env := newTestEnv()
	a := env.book(t, "2024-06-20", "09:00")

	_, err := env.svc.GetAppointment(asStranger(), a.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	_, err = env.svc.GetAppointment(env.asPatient(), a.ID)
	assert.NoError(t, err)
}

// -- Notifications --

func TestService_Notify_RendersTemplate(t *testing.T) {
	env := newTestEnv()
	err := env.svc.Notify(context.Background(), env.patientUser, KindCycleCompleted, notification.TplCycleCompleted,
		map[string]string{"cycle_number": "2", "planned_cycles": "6", "follow_up": ""})
	require.NoError(t, err)

	require.Len(t, env.notifications.items, 1)
	n := env.notifications.items[0]
	assert.Equal(t, "Cycle 2 completed", n.Title)
	assert.Equal(t, "You have completed cycle 2 of 6.", n.Body)

	var data map[string]string
	require.NoError(t, json.Unmarshal(n.Data, &data))
	assert.Equal(t, "6", data["planned_cycles"])
}

func TestService_Notify_RejectsUnknownKind(t *testing.T) {
	env := newTestEnv()
	err := env.svc.Notify(context.Background(), env.patientUser, "fax", notification.TplCycleCompleted, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	err = env.svc.Notify(context.Background(), env.patientUser, KindSystem, "no-such-template", nil)
	assert.Error(t, err)
	assert.Empty(t, env.notifications.items)
}

func TestService_Notifications_ReadFlow(t *testing.T) {
	env := newTestEnv()
	ctx := env.asPatient()
	for i := 0; i < 3; i++ {
		require.NoError(t, env.svc.Notify(ctx, env.patientUser, KindSystem, notification.TplPlanApproved,
			map[string]string{"protocol": "R-CHOP", "stage": "OPD"}))
	}
	require.NoError(t, env.svc.Notify(ctx, env.nurseUser, KindSystem, notification.TplPlanApproved, nil))

	items, err := env.svc.ListNotifications(ctx, false, 50)
	require.NoError(t, err)
	require.Len(t, items, 3)

	require.NoError(t, env.svc.MarkRead(ctx, items[0].ID))
	unread, err := env.svc.ListNotifications(ctx, true, 50)
	require.NoError(t, err)
	assert.Len(t, unread, 2)

	// Another user's notification is reported as missing.
	nurseNote := env.notifications.items[3]
	err = env.svc.MarkRead(ctx, nurseNote.ID)
	require.Error(t, err)
	assert.Equal(t, "Notification not found", err.Error())

	n, err := env.svc.MarkAllRead(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.False(t, nurseNote.IsRead)
}
