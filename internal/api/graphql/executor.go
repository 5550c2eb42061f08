package graphql

import (
	"context"

	gql "github.com/graph-gophers/graphql-go"
	"github.com/rs/zerolog"
)

const maxQueryDepth = 12

// Request is the body of POST /graphql.
type Request struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName,omitempty"`
	Variables     map[string]interface{} `json:"variables,omitempty"`
}

// Response is the engine's response envelope. Data is omitted when the
// document never reached execution.
type Response = gql.Response

// Executor runs operations against the order schema.
type Executor struct {
	schema    *gql.Schema
	presenter *Presenter
	log       zerolog.Logger
}

// NewExecutor binds r to the schema. It fails when a schema field has no
// matching resolver method.
func NewExecutor(r *Resolver, presenter *Presenter, log zerolog.Logger) (*Executor, error) {
	schema, err := gql.ParseSchema(schemaSource, r,
		gql.MaxDepth(maxQueryDepth),
		gql.PanicHandler(presenter),
		gql.Logger(presenter),
	)
	if err != nil {
		return nil, err
	}
	return &Executor{schema: schema, presenter: presenter, log: log}, nil
}

// Execute parses, validates and runs req. It never returns nil.
func (e *Executor) Execute(ctx context.Context, req Request) *Response {
	resp := e.schema.Exec(ctx, req.Query, req.OperationName, req.Variables)
	for _, qe := range resp.Errors {
		e.presenter.Present(ctx, qe)
	}
	if len(resp.Data) == 0 && len(resp.Errors) > 0 {
		e.log.Debug().Str("operation", req.OperationName).Int("errors", len(resp.Errors)).Msg("graphql document rejected")
	}
	return resp
}
