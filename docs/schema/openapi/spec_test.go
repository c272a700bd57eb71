package openapi

import (
	"bytes"
	"os"
	"testing"
)

func TestSpecMatchesSourceFile(t *testing.T) {
	want, err := os.ReadFile("entity-model.yaml")
	if err != nil {
		t.Fatalf("read entity-model.yaml: %v", err)
	}
	got := Spec()
	if !bytes.Equal(got, want) {
		t.Fatalf("embedded spec does not match entity-model.yaml")
	}
	for _, marker := range []string{"openapi: 3.0.3", "Case Records Entity Model", "Evidence:", "LegalSection:"} {
		if !bytes.Contains(got, []byte(marker)) {
			t.Fatalf("expected spec to contain %q", marker)
		}
	}
}

func TestSpecReturnsDefensiveCopy(t *testing.T) {
	first := Spec()
	if len(first) == 0 {
		t.Fatal("Spec returned empty content")
	}
	first[0] ^= 0xFF
	if bytes.Equal(first, EntityModelSpec) {
		t.Fatal("mutation reached the embedded bytes")
	}
	if !bytes.Equal(Spec(), EntityModelSpec) {
		t.Fatal("a fresh Spec call no longer matches the embedded bytes")
	}
}
