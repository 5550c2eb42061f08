// Package docs registers the OpenAPI document served under /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/graphql": {
            "get": {
                "produces": ["application/json"],
                "tags": ["graphql"],
                "summary": "Describe the GraphQL endpoint",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.graphQLInfo"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Runs one query or mutation. Expected mutation failures are reported in the payload's errorMessage and errorCode fields.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["graphql"],
                "summary": "Execute a GraphQL operation",
                "parameters": [
                    {"description": "operation", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/graphql.Request"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/graphql.Response"}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Liveness check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.livenessResponse"}}
                }
            }
        },
        "/health/ready": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.readinessResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/handler.readinessResponse"}}
                }
            }
        }
    },
    "definitions": {
        "graphql.Error": {
            "type": "object",
            "properties": {
                "extensions": {"type": "object", "additionalProperties": true},
                "locations": {"type": "array", "items": {"$ref": "#/definitions/graphql.Location"}},
                "message": {"type": "string"},
                "path": {"type": "array", "items": {}}
            }
        },
        "graphql.Location": {
            "type": "object",
            "properties": {
                "column": {"type": "integer"},
                "line": {"type": "integer"}
            }
        },
        "graphql.Request": {
            "type": "object",
            "properties": {
                "operationName": {"type": "string"},
                "query": {"type": "string"},
                "variables": {"type": "object", "additionalProperties": true}
            }
        },
        "graphql.Response": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "errors": {"type": "array", "items": {"$ref": "#/definitions/graphql.Error"}}
            }
        },
        "handler.dependencyStatus": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "status": {"type": "string"}
            }
        },
        "handler.graphQLInfo": {
            "type": "object",
            "properties": {
                "auth": {"type": "string"},
                "endpoint": {"type": "string"},
                "events": {"type": "array", "items": {"type": "string"}},
                "hub": {"type": "string"},
                "method": {"type": "string"},
                "mutations": {"type": "array", "items": {"type": "string"}},
                "queries": {"type": "array", "items": {"type": "string"}},
                "service": {"type": "string"}
            }
        },
        "handler.livenessResponse": {
            "type": "object",
            "properties": {
                "service": {"type": "string"},
                "status": {"type": "string"}
            }
        },
        "handler.readinessResponse": {
            "type": "object",
            "properties": {
                "dependencies": {"type": "object", "additionalProperties": {"$ref": "#/definitions/handler.dependencyStatus"}},
                "service": {"type": "string"},
                "status": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Bearer token returned by the login mutation.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "orderdesk order API",
	Description:      "GraphQL order API with JWT authentication and real-time change notifications.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
