package patient

import (
	"errors"
	"strings"
	"testing"

	"github.com/hnms/hnms/internal/platform/policy"
	"github.com/hnms/hnms/internal/platform/query"
	"github.com/hnms/hnms/pkg/pagination"
)

func TestListQuery_ScopedSearch(t *testing.T) {
	hid := int64(3)
	b := listQuery(policy.Scope{HospitalID: &hid}, "o'brien%", pagination.New(2, 5))

	sql, args, err := b.SelectSQL()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(sql, "WHERE p.hospital_id = $1 AND (p.full_name ILIKE $2 OR p.email ILIKE $3)") {
		t.Errorf("unexpected where clause: %s", sql)
	}
	if !strings.HasSuffix(sql, "ORDER BY p.created_at DESC, p.id DESC LIMIT $4 OFFSET $5") {
		t.Errorf("unexpected tail: %s", sql)
	}
	if strings.Contains(sql, "o'brien") {
		t.Error("search term must be bound, not interpolated")
	}
	if len(args) != 5 || args[0] != int64(3) || args[1] != `%o'brien\%%` || args[3] != 5 || args[4] != 5 {
		t.Errorf("unexpected args: %v", args)
	}

	countSQL, countArgs, err := b.CountSQL()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(countSQL, "LIMIT") || strings.Contains(countSQL, "ORDER BY") {
		t.Errorf("count must not paginate: %s", countSQL)
	}
	if len(countArgs) != 3 {
		t.Errorf("count args should match select predicates: %v", countArgs)
	}
}

func TestListQuery_SuperAdminUnscoped(t *testing.T) {
	sql, args, err := listQuery(policy.Scope{}, "", pagination.New(1, 10)).SelectSQL()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(sql, "WHERE") {
		t.Errorf("expected no predicates: %s", sql)
	}
	if len(args) != 2 {
		t.Errorf("expected only limit and offset, got %v", args)
	}
}

func TestGetQuery_RefusesDoctorScope(t *testing.T) {
	hid, did := int64(1), int64(7)
	_, _, err := getQuery(5, policy.Scope{HospitalID: &hid, DoctorID: &did}).SelectSQL()
	if !errors.Is(err, query.ErrScopeColumn) {
		t.Fatalf("expected scope column error, got %v", err)
	}
}

func TestMedicalRecordsQuery(t *testing.T) {
	sql, args, err := medicalRecordsQuery(9).SelectSQL()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(sql, "WHERE mr.patient_id = $1 ORDER BY mr.created_at DESC") || args[0] != int64(9) {
		t.Errorf("unexpected query: %s %v", sql, args)
	}
}
