package handler

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/orderdesk/orderdesk/internal/api/graphql"
	"github.com/orderdesk/orderdesk/internal/api/middleware"
)

// GraphQLHandler serves the operation endpoint.
type GraphQLHandler struct {
	exec *graphql.Executor
	log  zerolog.Logger
}

func NewGraphQLHandler(exec *graphql.Executor, log zerolog.Logger) *GraphQLHandler {
	return &GraphQLHandler{exec: exec, log: log}
}

// Execute godoc
// @Summary      Execute a GraphQL operation
// @Description  Runs one query or mutation. Expected mutation failures are reported in the payload's errorMessage and errorCode fields.
// @Tags         graphql
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      graphql.Request   true  "operation"
// @Success      200   {object}  graphql.Response
// @Failure      400   {object}  map[string]string
// @Router       /graphql [post]
func (h *GraphQLHandler) Execute(c echo.Context) error {
	var req graphql.Request
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		h.log.Debug().Err(err).Msg("decode graphql request")
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}

	ctx := graphql.WithPrincipal(c.Request().Context(), middleware.PrincipalFrom(c))
	return c.JSON(http.StatusOK, h.exec.Execute(ctx, req))
}

type graphQLInfo struct {
	Service   string   `json:"service"`
	Endpoint  string   `json:"endpoint"`
	Method    string   `json:"method"`
	Queries   []string `json:"queries"`
	Mutations []string `json:"mutations"`
	Auth      string   `json:"auth"`
	Hub       string   `json:"hub"`
	Events    []string `json:"events"`
}

// Info godoc
// @Summary      Describe the GraphQL endpoint
// @Tags         graphql
// @Produce      json
// @Success      200  {object}  graphQLInfo
// @Router       /graphql [get]
func (h *GraphQLHandler) Info(c echo.Context) error {
	return c.JSON(http.StatusOK, graphQLInfo{
		Service:   "order-api",
		Endpoint:  "/graphql",
		Method:    http.MethodPost,
		Queries:   fieldNames(graphql.Definition.Query.Fields),
		Mutations: fieldNames(graphql.Definition.Mutation.Fields),
		Auth:      "Authorization: Bearer <token from the login mutation>",
		Hub:       "/hubs/notifications",
		Events:    []string{"OrderCreated", "OrderUpdated", "OrderDeleted"},
	})
}

func fieldNames(fields ast.FieldList) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f.Name) > 2 && f.Name[:2] == "__" {
			continue
		}
		out = append(out, f.Name)
	}
	return out
}
