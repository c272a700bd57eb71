// Program entitymodelvalidate checks the entity model schema for structural
// defects before it ships.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
)

type fieldSpec struct {
	Type       string   `json:"type"`
	Required   bool     `json:"required"`
	Unique     bool     `json:"unique"`
	Nullable   bool     `json:"nullable"`
	Indexed    bool     `json:"indexed"`
	Enum       []string `json:"enum"`
	Items      string   `json:"items"`
	References string   `json:"references"`
}

type entitySpec struct {
	Description string               `json:"description"`
	Invariants  []string             `json:"invariants"`
	Fields      map[string]fieldSpec `json:"fields"`
}

type schemaDoc struct {
	Entities map[string]entitySpec `json:"entities"`
	Version  string                `json:"version"`
}

// fieldTypes lists every type a schema field may declare.
var fieldTypes = []string{"array", "boolean", "integer", "number", "string", "timestamp"}

func main() {
	path := "docs/schema/entity-model.json"
	if args := os.Args[1:]; len(args) > 0 {
		path = args[0]
	}
	if err := validate(path); err != nil {
		exitErr(err.Error())
	}
	fmt.Println("entity-model: valid")
}

func validate(path string) error {
	raw, err := os.ReadFile(path) //nolint:gosec // path comes from the CLI argument
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	var doc schemaDoc
	if err = json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse schema JSON: %w", err)
	}

	var problems []string
	if doc.Version == "" {
		problems = append(problems, "version must be set (semver expected)")
	}
	if len(doc.Entities) == 0 {
		problems = append(problems, "entities section must not be empty")
	}
	for name, ent := range doc.Entities {
		problems = append(problems, validateEntity(doc, name, ent)...)
	}
	if len(problems) == 0 {
		return nil
	}
	slices.Sort(problems)
	return errors.New(strings.Join(problems, "; "))
}

// baseFields are the audit columns every stored record carries.
var baseFields = []string{"id", "created_at", "updated_at"}

func validateEntity(doc schemaDoc, name string, ent entitySpec) []string {
	var errs []string
	if strings.TrimSpace(ent.Description) == "" {
		errs = append(errs, fmt.Sprintf("entity %q must declare a description", name))
	}
	if len(ent.Fields) == 0 {
		errs = append(errs, fmt.Sprintf("entity %q must declare fields", name))
	}

	for _, base := range baseFields {
		spec, ok := ent.Fields[base]
		if !ok {
			errs = append(errs, fmt.Sprintf("entity %q must declare base field %q", name, base))
			continue
		}
		if !spec.Required {
			errs = append(errs, fmt.Sprintf("entity %q base field %q must be required", name, base))
		}
	}

	for fieldName, spec := range ent.Fields {
		errs = append(errs, validateField(doc, name, fieldName, spec)...)
	}

	for i, invariant := range ent.Invariants {
		if strings.TrimSpace(invariant) == "" {
			errs = append(errs, fmt.Sprintf("entity %q invariants[%d] must not be empty", name, i))
		}
	}
	return errs
}

func validateField(doc schemaDoc, entity, field string, spec fieldSpec) []string {
	var errs []string
	if !slices.Contains(fieldTypes, spec.Type) {
		errs = append(errs, fmt.Sprintf("entity %q field %q has unknown type %q", entity, field, spec.Type))
	}
	if spec.Type == "array" && spec.Items == "" {
		errs = append(errs, fmt.Sprintf("entity %q field %q must declare array items", entity, field))
	}
	if spec.Required && spec.Nullable {
		errs = append(errs, fmt.Sprintf("entity %q field %q cannot be both required and nullable", entity, field))
	}
	for i, value := range spec.Enum {
		if strings.TrimSpace(value) == "" {
			errs = append(errs, fmt.Sprintf("entity %q field %q enum[%d] must not be empty", entity, field, i))
		}
	}
	if spec.References != "" {
		if _, ok := doc.Entities[spec.References]; !ok {
			errs = append(errs, fmt.Sprintf("entity %q field %q references unknown entity %q", entity, field, spec.References))
		}
	}
	return errs
}

var exitFn = os.Exit

var errWriter io.Writer = os.Stderr

func exitErr(msg string) {
	_, _ = fmt.Fprintf(errWriter, "entity-model validation failed: %s\n", msg)
	exitFn(1)
}
