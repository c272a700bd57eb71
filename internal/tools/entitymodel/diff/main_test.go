package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func TestComputeFingerprintSortsDeterministically(t *testing.T) {
	doc := schemaDoc{
		Version: "0.2.0",
		Entities: map[string]entitySpec{
			"evidence": {
				Invariants: []string{"reference_integrity", "closed_case_append_only"},
				Fields: map[string]fieldSpec{
					"status":  {Enum: []string{"stored", "released"}},
					"id":      {Required: true},
					"case_id": {Required: true, References: "case"},
					"label":   {},
				},
			},
			"role": {
				Invariants: []string{"unique_identity"},
				Fields: map[string]fieldSpec{
					"id":   {Required: true},
					"name": {Required: true},
				},
			},
		},
	}

	fp := computeFingerprint(doc, "schema.json")
	if fp.Source != "schema.json" {
		t.Fatalf("expected source recorded, got %q", fp.Source)
	}

	evidence := fp.Entities["evidence"]
	if got, want := strings.Join(evidence.Fields, ","), "case_id,id,label,status"; got != want {
		t.Fatalf("expected sorted fields %s, got %s", want, got)
	}
	if got, want := strings.Join(evidence.Required, ","), "case_id,id"; got != want {
		t.Fatalf("expected sorted required %s, got %s", want, got)
	}
	if got, want := strings.Join(evidence.Invariants, ","), "closed_case_append_only,reference_integrity"; got != want {
		t.Fatalf("expected sorted invariants %s, got %s", want, got)
	}
	if evidence.References["case_id"] != "case" {
		t.Fatalf("expected case_id reference captured, got %v", evidence.References)
	}
	if got, want := strings.Join(evidence.Enums["status"], ","), "released,stored"; got != want {
		t.Fatalf("expected sorted enum values %s, got %s", want, got)
	}

	role := fp.Entities["role"]
	if role.References != nil || role.Enums != nil {
		t.Fatalf("expected empty reference and enum maps dropped, got %v / %v", role.References, role.Enums)
	}
}

func TestDiffFingerprintsDetectsRemovals(t *testing.T) {
	before := fingerprintDoc{Version: "1.0.0", Entities: map[string]entityFingerprint{
		"party": {
			Fields:     []string{"case_id", "id", "kind", "name"},
			Required:   []string{"case_id", "id", "kind", "name"},
			Invariants: []string{"closed_case_append_only", "reference_integrity"},
			References: map[string]string{"case_id": "case"},
			Enums:      map[string][]string{"kind": {"suspect", "victim", "witness"}},
		},
	}}
	after := fingerprintDoc{Version: "1.0.0", Entities: map[string]entityFingerprint{
		"party": {
			Fields:     []string{"case_id", "id", "kind"},
			Required:   []string{"case_id", "id", "kind"},
			Invariants: []string{"reference_integrity"},
			Enums:      map[string][]string{"kind": {"suspect", "witness"}},
		},
	}}

	issues := diffFingerprints(before, after)
	if len(issues) != 5 {
		t.Fatalf("expected 5 issues, got %d: %v", len(issues), issues)
	}
	joined := strings.Join(issues, "\n")
	for _, want := range []string{
		"entity party field removed: name",
		"entity party required field removed: name",
		"entity party invariant removed: closed_case_append_only",
		"entity party reference removed: case_id",
		"entity party enum kind value removed: victim",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected issue %q, got %v", want, issues)
		}
	}
}

func TestDiffFingerprintsEntityAndEnumRemoved(t *testing.T) {
	before := fingerprintDoc{Version: "1.0.0", Entities: map[string]entityFingerprint{
		"citation": {Fields: []string{"id"}, Required: []string{"id"}},
		"case": {
			Fields:   []string{"id", "severity"},
			Required: []string{"id"},
			Enums:    map[string][]string{"severity": {"high", "low", "medium"}},
		},
	}}
	after := fingerprintDoc{Version: "1.0.0", Entities: map[string]entityFingerprint{
		"case": {
			Fields:   []string{"id", "severity"},
			Required: []string{"id"},
		},
	}}

	issues := diffFingerprints(before, after)
	joined := strings.Join(issues, "\n")
	if !strings.Contains(joined, "entity removed: citation") {
		t.Fatalf("expected entity removal reported, got %v", issues)
	}
	if !strings.Contains(joined, "entity case enum removed: severity") {
		t.Fatalf("expected enum removal reported, got %v", issues)
	}
}

func TestDiffFingerprintsVersionAndRetarget(t *testing.T) {
	before := fingerprintDoc{Version: "1.0.0", Entities: map[string]entityFingerprint{
		"case_note": {
			Fields:     []string{"author_id", "id"},
			Required:   []string{"id"},
			References: map[string]string{"author_id": "user"},
		},
	}}
	after := fingerprintDoc{Version: "2.0.0", Entities: map[string]entityFingerprint{
		"case_note": {
			Fields:     []string{"author_id", "id"},
			Required:   []string{"id"},
			References: map[string]string{"author_id": "role"},
		},
	}}

	issues := diffFingerprints(before, after)
	joined := strings.Join(issues, "\n")
	if !strings.Contains(joined, "schema version changed from 1.0.0 to 2.0.0") {
		t.Fatalf("expected version change reported, got %v", issues)
	}
	if !strings.Contains(joined, "entity case_note reference retargeted: author_id (user -> role)") {
		t.Fatalf("expected reference retarget reported, got %v", issues)
	}
}

func TestDiffFingerprintsAdditionsAreCompatible(t *testing.T) {
	before := fingerprintDoc{Version: "1.0.0", Entities: map[string]entityFingerprint{
		"case": {
			Fields:     []string{"id", "title"},
			Required:   []string{"id"},
			Invariants: []string{"unique_identity"},
		},
	}}
	after := fingerprintDoc{Version: "1.0.0", Entities: map[string]entityFingerprint{
		"case": {
			Fields:     []string{"district", "id", "title"},
			Required:   []string{"id"},
			Invariants: []string{"reference_integrity", "unique_identity"},
			Enums:      map[string][]string{"district": {"central", "north"}},
		},
		"fir": {Fields: []string{"id"}, Required: []string{"id"}},
	}}

	if issues := diffFingerprints(before, after); len(issues) != 0 {
		t.Fatalf("expected additions accepted, got %v", issues)
	}
}

func TestRepositoryFingerprintCurrent(t *testing.T) {
	schemaPath := filepath.Join("..", "..", "..", "..", "docs", "schema", "entity-model.json")
	fingerprintPath := filepath.Join("..", "..", "..", "..", "docs", "schema", "entity-model.fingerprint.json")

	doc, err := loadSchema(schemaPath)
	if err != nil {
		t.Fatalf("load repository schema: %v", err)
	}
	computed := computeFingerprint(doc, "docs/schema/entity-model.json")

	stored, err := loadFingerprint(fingerprintPath)
	if err != nil {
		t.Fatalf("load repository fingerprint: %v", err)
	}

	if issues := diffFingerprints(stored, computed); len(issues) > 0 {
		t.Fatalf("schema dropped fingerprinted content: %v", issues)
	}
	if issues := diffFingerprints(computed, stored); len(issues) > 0 {
		t.Fatalf("fingerprint records content the schema lacks: %v", issues)
	}
}

func TestFingerprintFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fingerprint.json")
	input := fingerprintDoc{
		Version: "0.0.1",
		Source:  "schema.json",
		Entities: map[string]entityFingerprint{
			"legal_section": {
				Fields:     []string{"code", "id"},
				Required:   []string{"code", "id"},
				Invariants: []string{"unique_identity"},
			},
		},
	}
	if err := writeFingerprint(path, input); err != nil {
		t.Fatalf("write fingerprint: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fingerprint back: %v", err)
	}
	if !strings.HasSuffix(string(raw), "\n") {
		t.Fatalf("fingerprint file must end with a newline")
	}

	reread, err := loadFingerprint(path)
	if err != nil {
		t.Fatalf("loadFingerprint after write: %v", err)
	}
	if reread.Version != input.Version || reread.Source != input.Source {
		t.Fatalf("header not preserved: %+v", reread)
	}
	if got := reread.Entities["legal_section"].Required; !slices.Equal(got, input.Entities["legal_section"].Required) {
		t.Fatalf("required fields not preserved: %v", got)
	}
}

func TestLoadSchemaParsesDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entity-model.json")
	if err := os.WriteFile(path, []byte(`{"version":"0.0.1","entities":{}}`), 0o600); err != nil {
		t.Fatalf("write schema: %v", err)
	}
	doc, err := loadSchema(path)
	if err != nil {
		t.Fatalf("load schema: %v", err)
	}
	if doc.Version != "0.0.1" {
		t.Fatalf("doc = %+v", doc)
	}
}

func TestLoadFingerprintErrors(t *testing.T) {
	if _, err := loadFingerprint(filepath.Join(t.TempDir(), "absent.json")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("missing file must surface os.ErrNotExist, got %v", err)
	}

	path := filepath.Join(t.TempDir(), "fingerprint.json")
	if err := os.WriteFile(path, []byte("{"), 0o600); err != nil {
		t.Fatalf("write truncated fingerprint: %v", err)
	}
	if _, err := loadFingerprint(path); err == nil || !strings.Contains(err.Error(), "parse fingerprint") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestDiffListReportsRemovals(t *testing.T) {
	issues := diffList("entity case", "field", []string{"name", "id"}, []string{"id"})
	if len(issues) != 1 || !strings.Contains(issues[0], "name") {
		t.Fatalf("diffList = %v, want one removal naming %q", issues, "name")
	}
}

func TestExitErrReportsFailure(t *testing.T) {
	var out bytes.Buffer
	var code int
	errOut = &out
	exitFunc = func(c int) { code = c }
	t.Cleanup(func() {
		errOut = os.Stderr
		exitFunc = os.Exit
	})

	exitErr(errors.New("fingerprint mismatch"))

	if code != 1 || !strings.Contains(out.String(), "fingerprint mismatch") {
		t.Fatalf("exitErr wrote %q and exited with %d", out.String(), code)
	}
}
