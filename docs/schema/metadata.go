// Package schema exposes embedded case records entity-model metadata
// (version, status) for runtime use.
package schema

import (
	_ "embed"
	"encoding/json"
	"sync"
)

// Metadata is the metadata block lifted from the entity-model document.
type Metadata struct {
	Status string `json:"status"`
	Source string `json:"source"`
}

// Entity-model fingerprint embedded for runtime metadata exposure.
//
//go:embed entity-model.fingerprint.json
var fingerprintJSON []byte

// Canonical entity-model JSON embedded for accessing schema metadata.
//
//go:embed entity-model.json
var schemaJSON []byte

var (
	loadOnce sync.Once
	loaded   struct {
		version string
		meta    Metadata
		err     error
	}
)

// load parses both embedded artifacts once; the pair is published together.
func load() {
	loadOnce.Do(func() {
		var fp struct {
			Version string `json:"version"`
		}
		if err := json.Unmarshal(fingerprintJSON, &fp); err != nil {
			loaded.err = err
			return
		}
		var doc struct {
			Metadata Metadata `json:"metadata"`
		}
		if err := json.Unmarshal(schemaJSON, &doc); err != nil {
			loaded.err = err
			return
		}
		loaded.version = fp.Version
		loaded.meta = doc.Metadata
	})
}

// EntityModelVersion returns the canonical schema version declared in the
// fingerprint (source of truth: docs/schema/entity-model.json).
func EntityModelVersion() (string, error) {
	load()
	return loaded.version, loaded.err
}

// EntityModelMetadata returns the schema metadata (status, source) declared
// in the canonical entity-model JSON.
func EntityModelMetadata() (Metadata, error) {
	load()
	return loaded.meta, loaded.err
}
