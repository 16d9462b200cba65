package tx

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/registration_schema.json
var registrationSchemaJSON string

//go:embed schemas/consent_schema.json
var consentSchemaJSON string

//go:embed schemas/medical_record_schema.json
var medicalRecordSchemaJSON string

var (
	registrationSchema  = mustCompileSchema(registrationSchemaJSON)
	consentSchema       = mustCompileSchema(consentSchemaJSON)
	medicalRecordSchema = mustCompileSchema(medicalRecordSchemaJSON)
)

func mustCompileSchema(doc string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(doc))
	if err != nil {
		panic(fmt.Sprintf("invalid embedded transaction schema: %v", err))
	}
	return schema
}

// validatePayload checks a payload value against its JSON Schema and
// folds any violations into a single ErrMalformedPayload.
func validatePayload(schema *gojsonschema.Schema, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			details = append(details, e.String())
		}
		return fmt.Errorf("%w: %s", ErrMalformedPayload, strings.Join(details, "; "))
	}
	return nil
}
