// Package resource holds the OpenAPI document for the resource API. It is
// kept in sync with the swag annotations on internal/resource/http.
package resource

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "AussieBroadWAN Team",
            "url": "https://github.com/aussiebroadwan/gatehouse"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/public": {
            "get": {
                "description": "Unauthenticated liveness of the resource API.",
                "produces": ["application/json"],
                "tags": ["Resource"],
                "summary": "Public status",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.StatusResponse"}}
                }
            }
        },
        "/time": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Current server time. Requires a valid access token carrying the time:read scope.",
                "produces": ["application/json"],
                "tags": ["Resource"],
                "summary": "Server time",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.TimeResponse"}},
                    "401": {"description": "unauthorized, details.reason names the verification failure", "schema": {"$ref": "#/definitions/httpx.APIError"}},
                    "403": {"description": "forbidden, details.required and details.provided", "schema": {"$ref": "#/definitions/httpx.APIError"}},
                    "429": {"description": "rate_limit_exceeded", "schema": {"$ref": "#/definitions/httpx.APIError"}}
                }
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Health",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.StatusResponse"}}
                }
            }
        }
    },
    "definitions": {
        "http.StatusResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "example": "ok"}
            }
        },
        "http.TimeResponse": {
            "type": "object",
            "properties": {
                "epoch": {"type": "integer", "example": 1760572800},
                "iso": {"type": "string", "example": "2025-10-16T00:00:00.000Z"}
            }
        },
        "httpx.APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "details": {"type": "object", "additionalProperties": true}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Access token from the issuer. Format: \"Bearer {token}\"",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Host:             "localhost:3010",
	BasePath:         "/api/v1/resource",
	Schemes:          []string{"http", "https"},
	Title:            "Gatehouse Resource API",
	Description:      "A protected resource that verifies access tokens issued by the Gatehouse credential issuer.",
	InfoInstanceName: "resource",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
