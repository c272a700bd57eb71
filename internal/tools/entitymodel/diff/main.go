// Program entitymodeldiff compares the entity model schema against its
// stored fingerprint and fails on breaking changes.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
)

// fieldSpec and entitySpec mirror the parts of the schema document the
// fingerprint depends on. Unknown schema keys are ignored on purpose.
type fieldSpec struct {
	Required   bool     `json:"required"`
	Enum       []string `json:"enum"`
	References string   `json:"references"`
}

type entitySpec struct {
	Invariants []string             `json:"invariants"`
	Fields     map[string]fieldSpec `json:"fields"`
}

type schemaDoc struct {
	Entities map[string]entitySpec `json:"entities"`
	Version  string                `json:"version"`
}

// fingerprintDoc is the durable shape committed alongside the schema. Lists
// are sorted before writing so the file diffs cleanly in review.
type fingerprintDoc struct {
	Version  string                       `json:"version"`
	Source   string                       `json:"source"`
	Entities map[string]entityFingerprint `json:"entities"`
}

// entityFingerprint flattens one entity into sorted, diffable lists.
type entityFingerprint struct {
	Fields     []string            `json:"fields"`
	Required   []string            `json:"required"`
	Invariants []string            `json:"invariants"`
	References map[string]string   `json:"references,omitempty"`
	Enums      map[string][]string `json:"enums,omitempty"`
}

var (
	exitFunc           = os.Exit
	errOut   io.Writer = os.Stderr
)

func main() {
	var (
		schemaPath      = flag.String("schema", "docs/schema/entity-model.json", "entity model schema to fingerprint")
		fingerprintPath = flag.String("fingerprint", "docs/schema/entity-model.fingerprint.json", "stored fingerprint to compare against")
		write           = flag.Bool("write", false, "refresh the stored fingerprint instead of diffing")
	)
	flag.Parse()

	schema, err := loadSchema(*schemaPath)
	if err != nil {
		exitErr(err)
	}
	latest := computeFingerprint(schema, *schemaPath)

	if *write {
		if err := writeFingerprint(*fingerprintPath, latest); err != nil {
			exitErr(err)
		}
		fmt.Printf("fingerprint refreshed: %s\n", *fingerprintPath)
		return
	}

	stored, err := loadFingerprint(*fingerprintPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		exitErr(fmt.Errorf("fingerprint missing (%s); run with -write", *fingerprintPath))
	case err != nil:
		exitErr(err)
	}

	issues := diffFingerprints(stored, latest)
	if len(issues) == 0 {
		fmt.Println("entity model matches the stored fingerprint")
		return
	}
	for _, issue := range issues {
		fmt.Println(issue)
	}
	exitFunc(1)
}

func loadSchema(path string) (schemaDoc, error) {
	var spec schemaDoc
	raw, err := os.ReadFile(path) //nolint:gosec // path comes from a repo-local flag
	if err != nil {
		return spec, fmt.Errorf("read schema: %w", err)
	}
	if err := json.Unmarshal(raw, &spec); err != nil {
		return spec, fmt.Errorf("parse schema: %w", err)
	}
	return spec, nil
}

func computeFingerprint(doc schemaDoc, source string) fingerprintDoc {
	fp := fingerprintDoc{
		Version:  doc.Version,
		Source:   source,
		Entities: make(map[string]entityFingerprint, len(doc.Entities)),
	}
	for name, ent := range doc.Entities {
		fp.Entities[name] = fingerprintEntity(ent)
	}
	return fp
}

func fingerprintEntity(ent entitySpec) entityFingerprint {
	out := entityFingerprint{Fields: slices.Sorted(maps.Keys(ent.Fields))}

	for fieldName, spec := range ent.Fields {
		if spec.Required {
			out.Required = append(out.Required, fieldName)
		}
		if spec.References != "" {
			if out.References == nil {
				out.References = make(map[string]string)
			}
			out.References[fieldName] = spec.References
		}
		if len(spec.Enum) > 0 {
			if out.Enums == nil {
				out.Enums = make(map[string][]string)
			}
			values := slices.Clone(spec.Enum)
			slices.Sort(values)
			out.Enums[fieldName] = values
		}
	}
	slices.Sort(out.Required)

	out.Invariants = slices.Clone(ent.Invariants)
	slices.Sort(out.Invariants)
	return out
}

// loadFingerprint returns the raw read error unwrapped so callers can test
// for os.ErrNotExist.
func loadFingerprint(path string) (fingerprintDoc, error) {
	var saved fingerprintDoc
	raw, err := os.ReadFile(path) //nolint:gosec // path comes from a repo-local flag
	if err != nil {
		return saved, err
	}
	if err := json.Unmarshal(raw, &saved); err != nil {
		return saved, fmt.Errorf("parse fingerprint: %w", err)
	}
	return saved, nil
}

func writeFingerprint(path string, doc fingerprintDoc) error {
	blob, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fingerprint: %w", err)
	}
	// MarshalIndent emits no trailing newline; editors and git expect one.
	return os.WriteFile(path, append(blob, '\n'), 0o600)
}

// diffFingerprints reports removals and retargets only: additions are
// compatible, removals break downstream readers of the stored records.
func diffFingerprints(baseline, current fingerprintDoc) []string {
	var issues []string
	for name, base := range baseline.Entities {
		cur, ok := current.Entities[name]
		if !ok {
			issues = append(issues, "entity removed: "+name)
			continue
		}
		issues = append(issues, diffEntity(name, base, cur)...)
	}
	if baseline.Version != "" && current.Version != baseline.Version {
		issues = append(issues, fmt.Sprintf("schema version changed from %s to %s", baseline.Version, current.Version))
	}
	slices.Sort(issues)
	return issues
}

func diffEntity(name string, base, cur entityFingerprint) []string {
	scope := "entity " + name
	issues := diffList(scope, "field", base.Fields, cur.Fields)
	issues = append(issues, diffList(scope, "required field", base.Required, cur.Required)...)
	issues = append(issues, diffList(scope, "invariant", base.Invariants, cur.Invariants)...)

	for fieldName, from := range base.References {
		to, ok := cur.References[fieldName]
		switch {
		case !ok:
			issues = append(issues, fmt.Sprintf("%s reference removed: %s", scope, fieldName))
		case from != to:
			issues = append(issues, fmt.Sprintf("%s reference retargeted: %s (%s -> %s)", scope, fieldName, from, to))
		}
	}

	for fieldName, values := range base.Enums {
		kept, ok := cur.Enums[fieldName]
		if !ok {
			issues = append(issues, fmt.Sprintf("%s enum removed: %s", scope, fieldName))
			continue
		}
		issues = append(issues, diffList(fmt.Sprintf("%s enum %s", scope, fieldName), "value", values, kept)...)
	}
	return issues
}

func diffList(scope, label string, before, after []string) []string {
	var issues []string
	for _, v := range before {
		if slices.Contains(after, v) {
			continue
		}
		issues = append(issues, fmt.Sprintf("%s %s removed: %s", scope, label, v))
	}
	return issues
}

func exitErr(err error) {
	fmt.Fprintln(errOut, err)
	exitFunc(1)
}
