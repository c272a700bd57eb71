// Package openapi embeds the case records entity-model OpenAPI components for
// runtime distribution.
package openapi

import _ "embed"

// EntityModelSpec contains the OpenAPI components for the case records entity model.
//
//go:embed entity-model.yaml
var EntityModelSpec []byte

// Spec copies the embedded entity-model OpenAPI YAML so callers cannot
// mutate the canonical bytes.
func Spec() []byte {
	return append([]byte(nil), EntityModelSpec...)
}
