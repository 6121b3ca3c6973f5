// Package middleware holds the request stages that run in front of the API handlers.
// Stages are composed explicitly, in order, by the router; none of them reach for
// global state, and each can be exercised on its own with httptest.
package middleware

import "github.com/gin-gonic/gin"

// Stage is one named step of request processing.
type Stage struct {
	Name    string
	Handler gin.HandlerFunc
}

// Pipeline is an ordered list of stages. Order matters: identification before
// accounting, accounting before access control, access control before caching.
type Pipeline []Stage

// Handlers flattens the pipeline for gin, skipping stages without a handler.
func (p Pipeline) Handlers() []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(p))
	for _, s := range p {
		if s.Handler != nil {
			out = append(out, s.Handler)
		}
	}
	return out
}

// Names lists the stage names in order. Used for startup logging.
func (p Pipeline) Names() []string {
	out := make([]string, 0, len(p))
	for _, s := range p {
		if s.Handler != nil {
			out = append(out, s.Name)
		}
	}
	return out
}

// Then returns a new pipeline with extra stages appended; p is not modified.
func (p Pipeline) Then(stages ...Stage) Pipeline {
	out := make(Pipeline, 0, len(p)+len(stages))
	out = append(out, p...)
	return append(out, stages...)
}
