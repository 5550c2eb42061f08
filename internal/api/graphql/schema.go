// Package graphql serves the order API over GraphQL. Documents are parsed,
// validated and executed by graph-gophers/graphql-go against the resolvers
// in this package; gqlparser loads the same schema for endpoint discovery.
package graphql

import (
	_ "embed"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
)

//go:embed schema.graphql
var schemaSource string

// Definition is the schema AST, used to list the available operations.
var Definition = gqlparser.MustLoadSchema(&ast.Source{Name: "schema.graphql", Input: schemaSource})
