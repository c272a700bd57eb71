package memory

import (
	"casefile/pkg/domain"
	"testing"
)

func TestMigrateSnapshotBackfillsMapsAndDropsOrphans(t *testing.T) {
	snap := Snapshot{
		Users: map[string]User{
			"user-missing-role": {RoleID: "missing-role"},
		},
		FIRs: map[string]FIR{
			"fir-missing-case": {CaseID: "missing-case"},
		},
		Citations: map[string]Citation{
			"cit-missing-case": {CaseID: "missing-case", SectionID: "missing-section"},
		},
	}

	migrated := migrateSnapshot(snap)

	if migrated.Roles == nil || migrated.Cases == nil || migrated.Evidence == nil {
		t.Fatalf("expected migrateSnapshot to initialise nil maps")
	}
	if len(migrated.Users) != 0 {
		t.Fatalf("expected users with missing roles to be dropped, got %d", len(migrated.Users))
	}
	if len(migrated.FIRs) != 0 {
		t.Fatalf("expected firs with missing cases to be dropped, got %d", len(migrated.FIRs))
	}
	if len(migrated.Citations) != 0 {
		t.Fatalf("expected citations with missing cases to be dropped, got %d", len(migrated.Citations))
	}
}

func TestMigrateSnapshotCoercesEnums(t *testing.T) {
	caseRecord := Case{Status: "totally-unknown", Severity: "catastrophic"}
	caseRecord.ID = "case-1"
	evidenceRecord := Evidence{CaseID: "case-1", Status: "vanished"}
	evidenceRecord.ID = "ev-1"

	snapshot := Snapshot{
		Cases:    map[string]Case{"case-1": caseRecord},
		Evidence: map[string]Evidence{"ev-1": evidenceRecord},
	}

	migrated := migrateSnapshot(snapshot)

	got := migrated.Cases["case-1"]
	if got.Status != domain.StatusOpen {
		t.Fatalf("expected unknown status coerced to open, got %s", got.Status)
	}
	if got.Severity != domain.SeverityMedium {
		t.Fatalf("expected unknown severity coerced to medium, got %s", got.Severity)
	}
	if migrated.Evidence["ev-1"].Status != domain.EvidenceStored {
		t.Fatalf("expected unknown evidence status coerced to stored")
	}
}

func TestMigrateSnapshotClearsDanglingCaseRefs(t *testing.T) {
	officer := "gone"
	caseRecord := Case{Status: domain.StatusOpen, Severity: domain.SeverityLow, AssignedOfficerID: &officer, InformantUserID: &officer}
	caseRecord.ID = "case-1"

	migrated := migrateSnapshot(Snapshot{Cases: map[string]Case{"case-1": caseRecord}})

	got := migrated.Cases["case-1"]
	if got.AssignedOfficerID != nil || got.InformantUserID != nil {
		t.Fatalf("expected dangling user references to be cleared")
	}
}
