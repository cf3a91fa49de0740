package appointment

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hnms/hnms/internal/platform/db"
	"github.com/hnms/hnms/internal/platform/policy"
	"github.com/hnms/hnms/internal/platform/query"
	"github.com/hnms/hnms/pkg/pagination"
)

// slotConstraint is the partial unique index over scheduled
// (doctor_id, appointment_time) pairs.
const slotConstraint = "appointments_doctor_slot_key"

const patientFKey = "appointments_patient_id_fkey"

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const (
	appointmentFrom = `appointments a
		JOIN patients p ON p.id = a.patient_id
		LEFT JOIN users u ON u.id = a.doctor_id
		LEFT JOIN hospitals h ON h.id = p.hospital_id`
	appointmentCols = `a.id, a.patient_id, a.doctor_id, p.hospital_id, p.full_name, u.full_name, h.name,
		a.appointment_time, a.duration_minutes, a.status, a.reason, a.notes, a.created_at, a.updated_at`
)

// Appointments belong to the hospital of their patient.
var appointmentScope = query.ScopeColumns{Hospital: "p.hospital_id", Doctor: "a.doctor_id"}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.HospitalID, &a.PatientName, &a.DoctorName, &a.HospitalName,
		&a.AppointmentTime, &a.DurationMinutes, &a.Status, &a.Reason, &a.Notes, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	a.AppointmentTime = a.AppointmentTime.UTC()
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	return &a, nil
}

func getQuery(id int64, scope policy.Scope) *query.Builder {
	return query.New(appointmentFrom, appointmentCols).
		Where("a.id = ?", id).
		Scope(scope, appointmentScope)
}

func listQuery(scope policy.Scope, f ListFilter, p pagination.Params) *query.Builder {
	b := query.New(appointmentFrom, appointmentCols).
		Scope(scope, appointmentScope).
		WhereIf(f.Status != "", "a.status = ?", string(f.Status)).
		WhereIf(f.DoctorID != 0, "a.doctor_id = ?", f.DoctorID).
		WhereIf(f.PatientID != 0, "a.patient_id = ?", f.PatientID)
	if f.Date != nil {
		from, to := query.DayRange(*f.Date)
		b.Where("a.appointment_time >= ? AND a.appointment_time < ?", from, to)
	}
	return b.OrderBy("a.appointment_time DESC, a.id DESC").Paginate(p)
}

func scheduleQuery(doctorID int64, scope policy.Scope, w *Window) *query.Builder {
	b := query.New(appointmentFrom, appointmentCols).
		Where("a.doctor_id = ?", doctorID).
		Where("a.status = ?", string(StatusScheduled)).
		Scope(scope, appointmentScope)
	if w != nil {
		b.Where("a.appointment_time >= ? AND a.appointment_time < ?", w.From, w.To)
	}
	return b.OrderBy("a.appointment_time ASC, a.id ASC")
}

func forPatientQuery(patientID int64, scope policy.Scope, status Status) *query.Builder {
	return query.New(appointmentFrom, appointmentCols).
		Where("a.patient_id = ?", patientID).
		Scope(scope, appointmentScope).
		WhereIf(status != "", "a.status = ?", string(status)).
		OrderBy("a.appointment_time DESC, a.id DESC")
}

func (r *repoPG) PatientHospital(ctx context.Context, patientID int64, scope policy.Scope) (int64, error) {
	sql, args, err := query.New("patients p", "p.hospital_id").
		Where("p.id = ?", patientID).
		Scope(scope, query.ScopeColumns{Hospital: "p.hospital_id"}).
		SelectSQL()
	if err != nil {
		return 0, err
	}
	var hospitalID int64
	if err := db.Conn(ctx, r.pool).QueryRow(ctx, sql, args...).Scan(&hospitalID); err != nil {
		if db.IsNoRows(err) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return hospitalID, nil
}

func (r *repoPG) FindDoctor(ctx context.Context, id int64) (*Doctor, error) {
	var d Doctor
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT id, hospital_id, full_name, is_active
		FROM users
		WHERE id = $1 AND role = 'DOCTOR'`, id).Scan(&d.ID, &d.HospitalID, &d.Name, &d.IsActive)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// insertError translates constraint failures on insert. Users are never
// hard-deleted, so a foreign key failure means the patient went away.
func insertError(err error) error {
	switch {
	case db.IsUniqueViolation(err, slotConstraint):
		return ErrSlotTaken
	case db.IsForeignKeyViolation(err, patientFKey):
		return ErrPatientGone
	}
	return err
}

func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	var id int64
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO appointments (patient_id, doctor_id, appointment_time, duration_minutes, status, reason, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		a.PatientID, a.DoctorID, a.AppointmentTime, a.DurationMinutes, string(a.Status), a.Reason, a.Notes).Scan(&id)
	if err != nil {
		return insertError(err)
	}
	created, err := r.Get(ctx, id, policy.Scope{})
	if err != nil {
		return err
	}
	*a = *created
	return nil
}

func (r *repoPG) Get(ctx context.Context, id int64, scope policy.Scope) (*Appointment, error) {
	sql, args, err := getQuery(id, scope).SelectSQL()
	if err != nil {
		return nil, err
	}
	return scanAppointment(db.Conn(ctx, r.pool).QueryRow(ctx, sql, args...))
}

func (r *repoPG) List(ctx context.Context, scope policy.Scope, f ListFilter, p pagination.Params) ([]*Appointment, int, error) {
	conn := db.Conn(ctx, r.pool)
	b := listQuery(scope, f, p)

	countSQL, countArgs, err := b.CountSQL()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := conn.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	items, err := r.collect(ctx, b)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *repoPG) collect(ctx context.Context, b *query.Builder) ([]*Appointment, error) {
	sql, args, err := b.SelectSQL()
	if err != nil {
		return nil, err
	}
	rows, err := db.Conn(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []*Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, id int64, req UpdateRequest) (*Appointment, error) {
	var status *string
	if req.Status != nil {
		s := string(*req.Status)
		status = &s
	}
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE appointments SET
			appointment_time = COALESCE($1, appointment_time),
			duration_minutes = COALESCE($2, duration_minutes),
			status = COALESCE($3, status),
			reason = COALESCE($4, reason),
			notes = COALESCE($5, notes),
			updated_at = NOW()
		WHERE id = $6`,
		req.AppointmentTime, req.DurationMinutes, status, req.Reason, req.Notes, id)
	if err != nil {
		if db.IsUniqueViolation(err, slotConstraint) {
			return nil, ErrSlotTaken
		}
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return r.Get(ctx, id, policy.Scope{})
}

func (r *repoPG) SlotTaken(ctx context.Context, doctorID int64, t time.Time, excludeID int64) (bool, error) {
	var taken bool
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $1 AND status = 'SCHEDULED' AND appointment_time = $2 AND id <> $3
		)`, doctorID, t, excludeID).Scan(&taken)
	return taken, err
}

func (r *repoPG) Schedule(ctx context.Context, doctorID int64, scope policy.Scope, w *Window) ([]*Appointment, error) {
	return r.collect(ctx, scheduleQuery(doctorID, scope, w))
}

func (r *repoPG) ForPatient(ctx context.Context, patientID int64, scope policy.Scope, status Status) ([]*Appointment, error) {
	return r.collect(ctx, forPatientQuery(patientID, scope, status))
}
