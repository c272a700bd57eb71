// Package entitymodel exposes runtime helpers for serving the case records
// entity-model OpenAPI components.
package entitymodel

import (
	"net/http"

	entitymodelopenapi "casefile/docs/schema/openapi"
)

// OpenAPISpec copies the embedded entity-model OpenAPI components so callers
// can modify the returned slice freely.
func OpenAPISpec() []byte {
	return entitymodelopenapi.Spec()
}

// NewOpenAPIHandler serves the embedded entity-model OpenAPI YAML under a
// static content-type, letting API clients fetch the canonical contract from
// a running server.
func NewOpenAPIHandler() http.Handler {
	doc := OpenAPISpec()
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(doc)
	})
}
