package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/celerix-dev/celerix-records/internal/resource"
	"github.com/celerix-dev/celerix-records/pkg/records"
)

// Register binds the five routes of h under rg. The collection routes answer
// both with and without a trailing slash.
func Register(rg *gin.RouterGroup, h *resource.Handler, m *Metrics) {
	r := &routes{handler: h, metrics: m, entity: h.Schema().Name()}

	rg.POST("", r.create)
	rg.POST("/", r.create)
	rg.GET("", r.list)
	rg.GET("/", r.list)
	rg.GET("/:id", r.get)
	rg.PUT("/:id", r.update)
	rg.DELETE("/:id", r.delete)
}

type routes struct {
	handler *resource.Handler
	metrics *Metrics
	entity  string
}

func (r *routes) create(c *gin.Context) {
	start := time.Now()
	body, err := c.GetRawData()
	if err != nil {
		r.respond(c, "create", start, resource.Result{}, &records.ValidationError{Message: "could not read request body"})
		return
	}
	res, err := r.handler.Create(c.Request.Context(), body)
	r.respond(c, "create", start, res, err)
}

func (r *routes) list(c *gin.Context) {
	start := time.Now()
	res, err := r.handler.List(c.Request.Context())
	r.respond(c, "list", start, res, err)
}

func (r *routes) get(c *gin.Context) {
	r.withID(c, "get", func(ctx context.Context, id int64) (resource.Result, error) {
		return r.handler.Get(ctx, id)
	})
}

func (r *routes) update(c *gin.Context) {
	r.withID(c, "update", func(ctx context.Context, id int64) (resource.Result, error) {
		body, err := c.GetRawData()
		if err != nil {
			return resource.Result{}, &records.ValidationError{Message: "could not read request body"}
		}
		return r.handler.Update(ctx, id, body)
	})
}

func (r *routes) delete(c *gin.Context) {
	r.withID(c, "delete", func(ctx context.Context, id int64) (resource.Result, error) {
		return r.handler.Delete(ctx, id)
	})
}

func (r *routes) withID(c *gin.Context, op string, fn func(context.Context, int64) (resource.Result, error)) {
	start := time.Now()
	id, err := resource.ParseID(c.Param("id"))
	if err != nil {
		r.respond(c, op, start, resource.Result{}, err)
		return
	}
	res, err := fn(c.Request.Context(), id)
	r.respond(c, op, start, res, err)
}

func (r *routes) respond(c *gin.Context, op string, start time.Time, res resource.Result, err error) {
	if err != nil {
		status, body := resource.Classify(err)
		_ = c.Error(err)
		c.JSON(status, body)
		r.metrics.Observe(r.entity, op, status, time.Since(start))
		return
	}
	c.JSON(res.Code, res.Body)
	r.metrics.Observe(r.entity, op, res.Code, time.Since(start))
}
