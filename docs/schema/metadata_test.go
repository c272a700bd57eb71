package schema

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestEntityModelVersionMatchesFingerprint(t *testing.T) {
	version, err := EntityModelVersion()
	if err != nil {
		t.Fatalf("EntityModelVersion: %v", err)
	}
	if len(strings.Split(version, ".")) != 3 {
		t.Fatalf("expected a semantic version, got %q", version)
	}

	var fp struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(fingerprintJSON, &fp); err != nil {
		t.Fatalf("unmarshal fingerprint: %v", err)
	}
	if version != fp.Version {
		t.Fatalf("version %q does not match fingerprint %q", version, fp.Version)
	}
}

func TestEntityModelMetadataIsStable(t *testing.T) {
	meta, err := EntityModelMetadata()
	if err != nil {
		t.Fatalf("EntityModelMetadata: %v", err)
	}
	if meta.Status != "stable" {
		t.Fatalf("expected stable schema status, got %q", meta.Status)
	}
	if meta.Source == "" {
		t.Fatal("expected schema source to be declared")
	}

	var doc struct {
		Metadata Metadata `json:"metadata"`
	}
	if err := json.Unmarshal(schemaJSON, &doc); err != nil {
		t.Fatalf("unmarshal schema: %v", err)
	}
	if meta != doc.Metadata {
		t.Fatalf("metadata %+v does not match schema %+v", meta, doc.Metadata)
	}
}
