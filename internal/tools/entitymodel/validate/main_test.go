package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidateCleanSchema(t *testing.T) {
	path := schemaFile(t, `{
  "entities": {
    "station": {
      "description": "Police station registry entry.",
      "invariants": ["unique_identity"],
      "fields": {
        "id": {"type": "string", "required": true},
        "code": {"type": "string", "required": true, "unique": true},
        "created_at": {"type": "timestamp", "required": true},
        "updated_at": {"type": "timestamp", "required": true}
      }
    },
    "posting": {
      "description": "Officer assignment to a station.",
      "invariants": [],
      "fields": {
        "id": {"type": "string", "required": true},
        "station_id": {"type": "string", "required": true, "references": "station"},
        "rank": {"type": "string", "enum": ["constable", "inspector"]},
        "shift_days": {"type": "array", "items": "string"},
        "ended_at": {"type": "timestamp", "nullable": true},
        "created_at": {"type": "timestamp", "required": true},
        "updated_at": {"type": "timestamp", "required": true}
      }
    }
  },
  "version": "0.0.1"
}`)

	if err := validate(path); err != nil {
		t.Fatalf("validate returned %v for a clean schema", err)
	}
}

func TestValidateRepositorySchema(t *testing.T) {
	path := filepath.Join("..", "..", "..", "..", "docs", "schema", "entity-model.json")
	if err := validate(path); err != nil {
		t.Fatalf("repository schema invalid: %v", err)
	}
}

func TestValidateRejectsBadFields(t *testing.T) {
	path := schemaFile(t, `{
  "entities": {
    "station": {
      "description": "",
      "invariants": ["", " "],
      "fields": {
        "id": {"type": "string", "required": true},
        "created_at": {"type": "timestamp", "required": true},
        "updated_at": {"type": "timestamp"},
        "kind": {"type": "mystery"},
        "tags": {"type": "array"},
        "closed_at": {"type": "timestamp", "required": true, "nullable": true},
        "zone": {"type": "string", "enum": ["north", " "]},
        "district_id": {"type": "string", "references": "district"}
      }
    }
  },
  "version": ""
}`)

	wantMessages(t, validate(path),
		"version must be set",
		"entity \"station\" must declare a description",
		"entity \"station\" base field \"updated_at\" must be required",
		"entity \"station\" field \"kind\" has unknown type \"mystery\"",
		"entity \"station\" field \"tags\" must declare array items",
		"entity \"station\" field \"closed_at\" cannot be both required and nullable",
		"entity \"station\" field \"zone\" enum[1] must not be empty",
		"entity \"station\" field \"district_id\" references unknown entity \"district\"",
		"entity \"station\" invariants[0] must not be empty",
		"entity \"station\" invariants[1] must not be empty",
	)
}

func TestValidateTopLevelMissing(t *testing.T) {
	path := schemaFile(t, `{
  "entities": {},
  "version": ""
}`)

	wantMessages(t, validate(path),
		"version must be set",
		"entities section must not be empty",
	)
}

func TestValidateMissingBaseFields(t *testing.T) {
	path := schemaFile(t, `{
  "entities": {
    "station": {
      "description": "Station registry.",
      "fields": {
        "code": {"type": "string", "required": true}
      }
    }
  },
  "version": "0.0.2"
}`)

	wantMessages(t, validate(path),
		"entity \"station\" must declare base field \"id\"",
		"entity \"station\" must declare base field \"created_at\"",
		"entity \"station\" must declare base field \"updated_at\"",
	)
}

func TestValidateUnreadableAndMalformed(t *testing.T) {
	if err := validate(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected read error")
	}
	path := schemaFile(t, `{not json`)
	if err := validate(path); err == nil || !strings.Contains(err.Error(), "parse schema JSON") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestMainValidSchema(t *testing.T) {
	savedArgs := os.Args
	t.Cleanup(func() { os.Args = savedArgs })

	path := schemaFile(t, `{
  "entities": {
    "station": {
      "description": "Station registry.",
      "fields": {
        "id": {"type": "string", "required": true},
        "created_at": {"type": "timestamp", "required": true},
        "updated_at": {"type": "timestamp", "required": true}
      }
    }
  },
  "version": "0.0.3"
}`)
	os.Args = []string{"validate", path}

	main()
}

func TestExitErrWritesAndExits(t *testing.T) {
	var out bytes.Buffer
	var code int
	errWriter = &out
	exitFn = func(c int) { code = c }
	t.Cleanup(func() {
		errWriter = os.Stderr
		exitFn = os.Exit
	})

	exitErr("boom")

	if code != 1 || !strings.Contains(out.String(), "boom") {
		t.Fatalf("exitErr wrote %q and exited with %d", out.String(), code)
	}
}

// wantMessages fails unless err mentions every wanted fragment.
func wantMessages(t *testing.T, err error, wants ...string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected validation to fail")
	}
	for _, want := range wants {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("validation error missing %q:\n%s", want, err.Error())
		}
	}
}

func schemaFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "entity-model.json")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write schema fixture: %v", err)
	}
	return path
}
