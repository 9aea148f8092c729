package resource

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celerix-dev/celerix-records/pkg/records"
)

func TestParseID(t *testing.T) {
	id, err := ParseID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, raw := range []string{"", "0", "-1", "abc", "1.5", "99999999999999999999"} {
		t.Run(raw, func(t *testing.T) {
			_, err := ParseID(raw)
			var ve *records.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, "id", ve.Field)
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   ErrorBody
	}{
		{
			"validation with field",
			&records.ValidationError{Field: "title", Message: "field required"},
			http.StatusUnprocessableEntity,
			ErrorBody{Error: "title: field required", Field: "title"},
		},
		{
			"validation without field",
			&records.ValidationError{Message: "request body must be a JSON object"},
			http.StatusUnprocessableEntity,
			ErrorBody{Error: "request body must be a JSON object"},
		},
		{
			"not found",
			&records.NotFoundError{Entity: "table1", ID: 3},
			http.StatusNotFound,
			ErrorBody{Error: NotFoundMessage},
		},
		{
			"wrapped not found",
			fmt.Errorf("lookup: %w", &records.NotFoundError{Entity: "table1", ID: 3}),
			http.StatusNotFound,
			ErrorBody{Error: NotFoundMessage},
		},
		{
			"persistence",
			&records.PersistenceError{Op: "get", Entity: "table1", Err: fmt.Errorf("dial tcp: refused")},
			http.StatusInternalServerError,
			ErrorBody{Error: "storage failure"},
		},
		{
			"unknown",
			fmt.Errorf("anything else"),
			http.StatusInternalServerError,
			ErrorBody{Error: "storage failure"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := Classify(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.body, body)
		})
	}
}
