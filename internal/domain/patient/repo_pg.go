package patient

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hnms/hnms/internal/platform/db"
	"github.com/hnms/hnms/internal/platform/policy"
	"github.com/hnms/hnms/internal/platform/query"
	"github.com/hnms/hnms/pkg/pagination"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const (
	patientFrom = `patients p LEFT JOIN hospitals h ON h.id = p.hospital_id`
	patientCols = `p.id, p.hospital_id, h.name, p.full_name, to_char(p.date_of_birth, 'YYYY-MM-DD'),
		p.gender, p.phone, p.email, p.address, p.emergency_contact, p.blood_type, p.allergies,
		p.created_at, p.updated_at`
)

var patientScope = query.ScopeColumns{Hospital: "p.hospital_id"}

func scanPatient(row pgx.Row) (*Patient, error) {
	var pt Patient
	err := row.Scan(&pt.ID, &pt.HospitalID, &pt.HospitalName, &pt.FullName, &pt.Dob,
		&pt.Gender, &pt.Phone, &pt.Email, &pt.Address, &pt.EmergencyContact, &pt.BloodType, &pt.Allergies,
		&pt.CreatedAt, &pt.UpdatedAt)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	pt.CreatedAt = pt.CreatedAt.UTC()
	pt.UpdatedAt = pt.UpdatedAt.UTC()
	return &pt, nil
}

func getQuery(id int64, scope policy.Scope) *query.Builder {
	return query.New(patientFrom, patientCols).
		Where("p.id = ?", id).
		Scope(scope, patientScope)
}

func listQuery(scope policy.Scope, search string, p pagination.Params) *query.Builder {
	pattern := query.Contains(search)
	return query.New(patientFrom, patientCols).
		Scope(scope, patientScope).
		WhereIf(search != "", "(p.full_name ILIKE ? OR p.email ILIKE ?)", pattern, pattern).
		OrderBy("p.created_at DESC, p.id DESC").
		Paginate(p)
}

func medicalRecordsQuery(patientID int64) *query.Builder {
	return query.New(
		`medical_records mr LEFT JOIN users u ON u.id = mr.doctor_id`,
		`mr.id, mr.patient_id, mr.doctor_id, u.full_name, mr.diagnosis, mr.treatment, mr.content, mr.created_at`,
	).
		Where("mr.patient_id = ?", patientID).
		OrderBy("mr.created_at DESC, mr.id DESC")
}

func (r *repoPG) Create(ctx context.Context, pt *Patient) error {
	var id int64
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO patients (hospital_id, full_name, date_of_birth, gender, phone, email,
			address, emergency_contact, blood_type, allergies)
		VALUES ($1, $2, $3::date, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		pt.HospitalID, pt.FullName, pt.Dob, pt.Gender, pt.Phone, pt.Email,
		pt.Address, pt.EmergencyContact, pt.BloodType, pt.Allergies).Scan(&id)
	if err != nil {
		return err
	}
	created, err := r.Get(ctx, id, policy.Scope{})
	if err != nil {
		return err
	}
	*pt = *created
	return nil
}

func (r *repoPG) Get(ctx context.Context, id int64, scope policy.Scope) (*Patient, error) {
	sql, args, err := getQuery(id, scope).SelectSQL()
	if err != nil {
		return nil, err
	}
	return scanPatient(db.Conn(ctx, r.pool).QueryRow(ctx, sql, args...))
}

func (r *repoPG) List(ctx context.Context, scope policy.Scope, search string, p pagination.Params) ([]*Patient, int, error) {
	conn := db.Conn(ctx, r.pool)
	b := listQuery(scope, search, p)

	countSQL, countArgs, err := b.CountSQL()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := conn.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sql, args, err := b.SelectSQL()
	if err != nil {
		return nil, 0, err
	}
	rows, err := conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Patient
	for rows.Next() {
		pt, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, pt)
	}
	return items, total, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, id int64, req UpdateRequest) (*Patient, error) {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE patients SET
			full_name = COALESCE($1, full_name),
			date_of_birth = COALESCE($2::date, date_of_birth),
			gender = COALESCE($3, gender),
			phone = COALESCE($4, phone),
			email = COALESCE($5, email),
			address = COALESCE($6, address),
			emergency_contact = COALESCE($7, emergency_contact),
			blood_type = COALESCE($8, blood_type),
			allergies = COALESCE($9, allergies),
			updated_at = NOW()
		WHERE id = $10`,
		req.FullName, req.Dob, req.Gender, req.Phone, req.Email,
		req.Address, req.EmergencyContact, req.BloodType, req.Allergies, id)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return r.Get(ctx, id, policy.Scope{})
}

func (r *repoPG) Delete(ctx context.Context, id int64) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) MedicalRecords(ctx context.Context, patientID int64) ([]*MedicalRecord, error) {
	sql, args, err := medicalRecordsQuery(patientID).SelectSQL()
	if err != nil {
		return nil, err
	}
	rows, err := db.Conn(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []*MedicalRecord{}
	for rows.Next() {
		var mr MedicalRecord
		if err := rows.Scan(&mr.ID, &mr.PatientID, &mr.DoctorID, &mr.DoctorName,
			&mr.Diagnosis, &mr.Treatment, &mr.Content, &mr.CreatedAt); err != nil {
			return nil, err
		}
		mr.CreatedAt = mr.CreatedAt.UTC()
		records = append(records, &mr)
	}
	return records, rows.Err()
}
