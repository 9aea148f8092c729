// Package resource implements the generic resource handler: the five CRUD
// operations of an entity, driven entirely by its schema.
//
// A Handler is stateless after construction and safe for concurrent use. It
// validates payloads, delegates to the Persistence Gateway and shapes the
// results; it never retries and never holds a lock across a gateway call.
package resource

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"

	"github.com/celerix-dev/celerix-records/pkg/records"
	"github.com/celerix-dev/celerix-records/pkg/schema"
)

// DeletedMessage is the confirmation returned by Delete.
const DeletedMessage = "Item deleted successfully"

// Result is the outcome of a successful operation.
type Result struct {
	Code int
	Body any
}

// Confirmation is the body of a successful Delete.
type Confirmation struct {
	Message string `json:"message"`
}

// Handler serves the five operations of one entity.
type Handler struct {
	schema   *schema.Schema
	gateway  records.Gateway
	payload  *jsonschema.Schema
	logger   *zap.Logger
	omitNull bool
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger used for gateway failures.
func WithLogger(l *zap.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithOmitNull leaves absent optional fields out of responses instead of
// emitting them as null.
func WithOmitNull(omit bool) Option {
	return func(h *Handler) { h.omitNull = omit }
}

// NewHandler compiles the payload validator of s and binds it to gw.
func NewHandler(s *schema.Schema, gw records.Gateway, opts ...Option) (*Handler, error) {
	if s == nil || gw == nil {
		return nil, errors.New("resource: schema and gateway are required")
	}
	compiled, err := s.Compile()
	if err != nil {
		return nil, fmt.Errorf("compile payload schema for %s: %w", s.Name(), err)
	}
	h := &Handler{
		schema:  s,
		gateway: gw,
		payload: compiled,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With(zap.String("entity", s.Name()))
	return h, nil
}

// Schema returns the entity schema served by h.
func (h *Handler) Schema() *schema.Schema { return h.schema }

// Create validates raw and inserts it.
func (h *Handler) Create(ctx context.Context, raw []byte) (Result, error) {
	values, err := h.validate(raw)
	if err != nil {
		return Result{}, err
	}
	rec, err := h.gateway.Insert(ctx, values)
	if err != nil {
		return Result{}, h.gatewayError("create", err)
	}
	h.logger.Debug("Record created", zap.Int64("id", rec.ID))
	return Result{Code: http.StatusCreated, Body: h.shape(rec)}, nil
}

// List returns every record, possibly none.
func (h *Handler) List(ctx context.Context) (Result, error) {
	recs, err := h.gateway.List(ctx)
	if err != nil {
		return Result{}, h.gatewayError("list", err)
	}
	docs := make([]schema.Document, 0, len(recs))
	for _, rec := range recs {
		docs = append(docs, h.shape(rec))
	}
	return Result{Code: http.StatusOK, Body: docs}, nil
}

// Get returns the record with the given id.
func (h *Handler) Get(ctx context.Context, id int64) (Result, error) {
	rec, err := h.gateway.Get(ctx, id)
	if err != nil {
		return Result{}, h.gatewayError("get", err)
	}
	return Result{Code: http.StatusOK, Body: h.shape(rec)}, nil
}

// Update validates raw exactly as Create and replaces every field of the
// record. Omitted optional fields are reset to null.
func (h *Handler) Update(ctx context.Context, id int64, raw []byte) (Result, error) {
	values, err := h.validate(raw)
	if err != nil {
		return Result{}, err
	}
	rec, err := h.gateway.Update(ctx, id, values)
	if err != nil {
		return Result{}, h.gatewayError("update", err)
	}
	h.logger.Debug("Record updated", zap.Int64("id", id))
	return Result{Code: http.StatusOK, Body: h.shape(rec)}, nil
}

// Delete removes the record with the given id.
func (h *Handler) Delete(ctx context.Context, id int64) (Result, error) {
	if err := h.gateway.Delete(ctx, id); err != nil {
		return Result{}, h.gatewayError("delete", err)
	}
	h.logger.Debug("Record deleted", zap.Int64("id", id))
	return Result{Code: http.StatusOK, Body: Confirmation{Message: DeletedMessage}}, nil
}

func (h *Handler) shape(rec records.Record) schema.Document {
	return h.schema.Shape(rec.ID, rec.Values, h.omitNull)
}

// gatewayError passes the taxonomy through untouched and wraps anything
// else as a PersistenceError.
func (h *Handler) gatewayError(op string, err error) error {
	var nf *records.NotFoundError
	if errors.As(err, &nf) {
		return err
	}
	var pe *records.PersistenceError
	if !errors.As(err, &pe) {
		err = &records.PersistenceError{Op: op, Entity: h.schema.Name(), Err: err}
	}
	h.logger.Error("Gateway operation failed", zap.String("op", op), zap.Error(err))
	return err
}
