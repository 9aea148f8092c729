package resource

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/celerix-dev/celerix-records/pkg/records"
	"github.com/celerix-dev/celerix-records/pkg/schema"
)

// NotFoundMessage is the client-facing text of a NotFoundError.
const NotFoundMessage = "Item not found"

// validate turns a raw request body into the values of a full record.
// Unknown fields are rejected, required fields must be present and non-null,
// omitted optional fields become nil and an identity key is ignored.
func (h *Handler) validate(raw []byte) (records.Values, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var body any
	if err := dec.Decode(&body); err != nil {
		return nil, &records.ValidationError{Message: "request body must be valid JSON"}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &records.ValidationError{Message: "request body must hold a single JSON value"}
	}
	obj, ok := body.(map[string]any)
	if !ok {
		return nil, &records.ValidationError{Message: "request body must be a JSON object"}
	}
	delete(obj, schema.IdentityField)

	// Required fields are checked first so the error names the field.
	for _, name := range h.schema.Required() {
		if obj[name] == nil {
			return nil, &records.ValidationError{Field: name, Message: "field required"}
		}
	}
	if err := h.payload.Validate(obj); err != nil {
		return nil, schemaError(err)
	}

	// Whitelist copy: only declared fields make it into the record.
	values := make(records.Values, len(obj))
	for _, f := range h.schema.Fields() {
		v := obj[f.Name]
		if v == nil {
			values[f.Name] = nil
			continue
		}
		typed, err := schema.Coerce(f.Type, v)
		if err != nil {
			return nil, &records.ValidationError{Field: f.Name, Message: err.Error()}
		}
		values[f.Name] = typed
	}
	return values, nil
}

// schemaError reduces a JSON Schema failure to its first leaf cause.
func schemaError(err error) error {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return &records.ValidationError{Message: err.Error()}
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return &records.ValidationError{
		Field:   strings.TrimPrefix(ve.InstanceLocation, "/"),
		Message: ve.Message,
	}
}

// ParseID parses an identity taken from a request path.
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, &records.ValidationError{Field: schema.IdentityField, Message: "id must be a positive integer"}
	}
	return id, nil
}

// ErrorBody is the structured body of every failure response.
type ErrorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// Classify maps an error to exactly one status code and a client-facing body.
// Storage failure details stay in the logs.
func Classify(err error) (int, ErrorBody) {
	var (
		ve *records.ValidationError
		nf *records.NotFoundError
	)
	switch {
	case errors.As(err, &ve):
		msg := ve.Message
		if ve.Field != "" {
			msg = ve.Field + ": " + msg
		}
		return ve.StatusCode(), ErrorBody{Error: msg, Field: ve.Field}
	case errors.As(err, &nf):
		return nf.StatusCode(), ErrorBody{Error: NotFoundMessage}
	}
	return http.StatusInternalServerError, ErrorBody{Error: "storage failure"}
}
