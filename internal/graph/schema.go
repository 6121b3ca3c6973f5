// Package graph exposes the read side of the hub over GraphQL.
//
// List arguments are typed, so they are validated strictly: a page below one or a
// perPage above the configured maximum is an error, never silently corrected.
package graph

import (
	"context"
	"errors"

	"github.com/graphql-go/graphql"

	"github.com/maxviazov/knowledge-hub/internal/model"
	"github.com/maxviazov/knowledge-hub/internal/paging"
	"github.com/maxviazov/knowledge-hub/internal/repository"
	"github.com/maxviazov/knowledge-hub/internal/service"
)

// Request is the standard GraphQL-over-HTTP body.
type Request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
}

// root is passed as RootObject so resolvers get the caller without ambient state.
type root struct {
	principal model.Principal
}

// Executor owns the compiled schema.
type Executor struct {
	schema graphql.Schema
}

type resolver struct {
	entries    service.EntryService
	categories service.CategoryService
	limits     paging.Limits
}

// NewExecutor compiles the schema over the given services.
func NewExecutor(entries service.EntryService, categories service.CategoryService, limits paging.Limits) (*Executor, error) {
	if limits.DefaultPerPage <= 0 || limits.MaxPerPage <= 0 {
		limits = paging.DefaultLimits()
	}
	r := &resolver{entries: entries, categories: categories, limits: limits}
	schema, err := graphql.NewSchema(graphql.SchemaConfig{Query: r.queryType()})
	if err != nil {
		return nil, err
	}
	return &Executor{schema: schema}, nil
}

// Execute runs one operation on behalf of p.
func (e *Executor) Execute(ctx context.Context, req Request, p model.Principal) *graphql.Result {
	return graphql.Do(graphql.Params{
		Schema:         e.schema,
		RequestString:  req.Query,
		OperationName:  req.OperationName,
		VariableValues: req.Variables,
		RootObject:     map[string]any{"root": root{principal: p}},
		Context:        ctx,
	})
}

func principalOf(p graphql.ResolveParams) model.Principal {
	if m, ok := p.Info.RootValue.(map[string]any); ok {
		if r, ok := m["root"].(root); ok {
			return r.principal
		}
	}
	return model.Principal{}
}

var linksType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Links",
	Fields: graphql.Fields{
		"self":  &graphql.Field{Type: graphql.String},
		"first": &graphql.Field{Type: graphql.String},
		"last":  &graphql.Field{Type: graphql.String},
		"prev":  &graphql.Field{Type: graphql.String},
		"next":  &graphql.Field{Type: graphql.String},
	},
})

var paginationType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Pagination",
	Fields: graphql.Fields{
		"page":    &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"perPage": &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"total":   &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"pages":   &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"hasPrev": &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
		"hasNext": &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
		"prevNum": &graphql.Field{Type: graphql.Int},
		"nextNum": &graphql.Field{Type: graphql.Int},
	},
})

var entryType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Entry",
	Fields: graphql.Fields{
		"id":          &graphql.Field{Type: graphql.NewNonNull(graphql.ID), Resolve: entryID},
		"title":       &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"slug":        &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"summary":     &graphql.Field{Type: graphql.String},
		"content":     &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"status":      &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"priority":    &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"isPublic":    &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
		"featured":    &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
		"author":      &graphql.Field{Type: graphql.String},
		"categories":  &graphql.Field{Type: graphql.NewList(graphql.String)},
		"tags":        &graphql.Field{Type: graphql.NewList(graphql.String)},
		"wordCount":   &graphql.Field{Type: graphql.Int},
		"readingTime": &graphql.Field{Type: graphql.Int},
		"viewCount":   &graphql.Field{Type: graphql.Int},
		"publishedAt": &graphql.Field{Type: graphql.DateTime},
		"createdAt":   &graphql.Field{Type: graphql.DateTime},
		"updatedAt":   &graphql.Field{Type: graphql.DateTime},
	},
})

func entryID(p graphql.ResolveParams) (any, error) {
	switch e := p.Source.(type) {
	case model.Entry:
		return e.ID, nil
	case *model.Entry:
		return e.ID, nil
	}
	return nil, nil
}

var entryPageType = graphql.NewObject(graphql.ObjectConfig{
	Name: "EntryPage",
	Fields: graphql.Fields{
		"items":      &graphql.Field{Type: graphql.NewList(entryType)},
		"pagination": &graphql.Field{Type: paginationType},
		"links":      &graphql.Field{Type: linksType},
	},
})

var entryFeedType = graphql.NewObject(graphql.ObjectConfig{
	Name: "EntryFeed",
	Fields: graphql.Fields{
		"items":      &graphql.Field{Type: graphql.NewList(entryType)},
		"perPage":    &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"hasMore":    &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
		"nextCursor": &graphql.Field{Type: graphql.String},
	},
})

var categoryType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Category",
	Fields: graphql.Fields{
		"id":          &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"name":        &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"slug":        &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"description": &graphql.Field{Type: graphql.String},
		"color":       &graphql.Field{Type: graphql.String},
		"entryCount":  &graphql.Field{Type: graphql.Int},
	},
})

func (r *resolver) queryType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"entries": &graphql.Field{
				Type: graphql.NewNonNull(entryPageType),
				Args: graphql.FieldConfigArgument{
					"page":     &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 1},
					"perPage":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: r.limits.DefaultPerPage},
					"category": &graphql.ArgumentConfig{Type: graphql.String},
					"search":   &graphql.ArgumentConfig{Type: graphql.String},
					"sort":     &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: r.resolveEntries,
			},
			"feed": &graphql.Field{
				Type: graphql.NewNonNull(entryFeedType),
				Args: graphql.FieldConfigArgument{
					"after":    &graphql.ArgumentConfig{Type: graphql.String},
					"first":    &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: r.limits.DefaultPerPage},
					"category": &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: r.resolveFeed,
			},
			"entry": &graphql.Field{
				Type: entryType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: r.resolveEntry,
			},
			"categories": &graphql.Field{
				Type:    graphql.NewList(categoryType),
				Resolve: r.resolveCategories,
			},
		},
	})
}

func strArg(p graphql.ResolveParams, name string) string {
	s, _ := p.Args[name].(string)
	return s
}

func intArg(p graphql.ResolveParams, name string) int {
	n, _ := p.Args[name].(int)
	return n
}

func (r *resolver) resolveEntries(p graphql.ResolveParams) (any, error) {
	req, err := paging.Validate(intArg(p, "page"), intArg(p, "perPage"), r.limits.MaxPerPage)
	if err != nil {
		return nil, coded(err)
	}
	q := service.EntryQuery{Category: strArg(p, "category"), Search: strArg(p, "search"), Sort: strArg(p, "sort")}
	page, err := r.entries.List(p.Context, principalOf(p), q, req, nil)
	if err != nil {
		return nil, coded(err)
	}
	return page, nil
}

func (r *resolver) resolveFeed(p graphql.ResolveParams) (any, error) {
	first := intArg(p, "first")
	if _, err := paging.Validate(1, first, r.limits.MaxPerPage); err != nil {
		return nil, coded(err)
	}
	req := paging.CursorRequest{PerPage: first}
	if raw := strArg(p, "after"); raw != "" {
		after, err := paging.DecodeCursor(raw)
		if err != nil {
			return nil, coded(err)
		}
		req.After = &after
	}
	out, err := r.entries.Feed(p.Context, principalOf(p), service.EntryQuery{Category: strArg(p, "category")}, req, nil)
	if err != nil {
		return nil, coded(err)
	}
	return out, nil
}

func (r *resolver) resolveEntry(p graphql.ResolveParams) (any, error) {
	e, err := r.entries.Get(p.Context, principalOf(p), int64(intArg(p, "id")))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, coded(err)
	}
	return e, nil
}

func (r *resolver) resolveCategories(p graphql.ResolveParams) (any, error) {
	out, err := r.categories.List(p.Context)
	if err != nil {
		return nil, coded(err)
	}
	return out, nil
}
