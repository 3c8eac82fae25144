package notes

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed note.schema.json
var noteSchemaJSON []byte

const noteSchemaURL = "https://whowrote.dev/schema/note-v2.json"

var (
	schemaOnce sync.Once
	noteSchema *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(noteSchemaURL, bytes.NewReader(noteSchemaJSON)); err != nil {
			schemaErr = fmt.Errorf("add note schema: %w", err)
			return
		}
		noteSchema, schemaErr = compiler.Compile(noteSchemaURL)
	})
	return noteSchema, schemaErr
}

// Validate checks a raw note document against the version 2 schema.
func Validate(data []byte) error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return fmt.Errorf("note is not JSON: %w", err)
	}
	if err := schema.Validate(instance); err != nil {
		return fmt.Errorf("note does not match schema: %w", err)
	}
	return nil
}
