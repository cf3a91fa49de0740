package appointment

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hnms/hnms/internal/platform/policy"
	"github.com/hnms/hnms/pkg/pagination"
)

func TestListQuery_DoctorScopeAndFilters(t *testing.T) {
	hid, did := int64(1), int64(5)
	day := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	b := listQuery(policy.Scope{HospitalID: &hid, DoctorID: &did},
		ListFilter{Status: StatusScheduled, PatientID: 100, Date: &day}, pagination.New(3, 20))

	sql, args, err := b.SelectSQL()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "WHERE p.hospital_id = $1 AND a.doctor_id = $2 AND a.status = $3 AND a.patient_id = $4 " +
		"AND a.appointment_time >= $5 AND a.appointment_time < $6 ORDER BY a.appointment_time DESC, a.id DESC LIMIT $7 OFFSET $8"
	if !strings.HasSuffix(sql, want) {
		t.Errorf("unexpected sql:\n%s", sql)
	}
	if len(args) != 8 || args[4] != time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC) || args[7] != 40 {
		t.Errorf("unexpected args: %v", args)
	}

	countSQL, countArgs, _ := b.CountSQL()
	if !strings.HasPrefix(countSQL, "SELECT COUNT(*) FROM appointments a") || len(countArgs) != 6 {
		t.Errorf("count must share the predicates: %s %v", countSQL, countArgs)
	}
}

func TestListQuery_NoFilters(t *testing.T) {
	sql, args, err := listQuery(policy.Scope{}, ListFilter{}, pagination.New(1, 10)).SelectSQL()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(sql, "WHERE") || len(args) != 2 {
		t.Errorf("expected only pagination: %s %v", sql, args)
	}
}

func TestScheduleQuery(t *testing.T) {
	hid := int64(2)
	w := &Window{From: time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), To: time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)}
	sql, args, err := scheduleQuery(7, policy.Scope{HospitalID: &hid}, w).SelectSQL()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(sql, "WHERE a.doctor_id = $1 AND a.status = $2 AND p.hospital_id = $3 "+
		"AND a.appointment_time >= $4 AND a.appointment_time < $5 ORDER BY a.appointment_time ASC, a.id ASC") {
		t.Errorf("unexpected sql:\n%s", sql)
	}
	if args[1] != "SCHEDULED" || args[3] != w.From || args[4] != w.To {
		t.Errorf("unexpected args: %v", args)
	}
}

func TestForPatientQuery(t *testing.T) {
	did := int64(5)
	sql, args, err := forPatientQuery(100, policy.Scope{DoctorID: &did}, StatusCancelled).SelectSQL()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(sql, "WHERE a.patient_id = $1 AND a.doctor_id = $2 AND a.status = $3") {
		t.Errorf("unexpected sql:\n%s", sql)
	}
	if len(args) != 3 || args[2] != "CANCELLED" {
		t.Errorf("unexpected args: %v", args)
	}
}

func TestInsertError(t *testing.T) {
	other := errors.New("connection reset")
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"slot index", &pgconn.PgError{Code: "23505", ConstraintName: slotConstraint}, ErrSlotTaken},
		{"patient deleted", &pgconn.PgError{Code: "23503", ConstraintName: patientFKey}, ErrPatientGone},
		{"other unique index", &pgconn.PgError{Code: "23505", ConstraintName: "something_else"}, nil},
		{"unrelated error", other, other},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := insertError(tt.err)
			want := tt.want
			if want == nil {
				want = tt.err
			}
			if !errors.Is(got, want) {
				t.Errorf("insertError(%v) = %v, want %v", tt.err, got, want)
			}
		})
	}
}
