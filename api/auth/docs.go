// Package auth holds the OpenAPI document for the credential issuer. It is
// kept in sync with the swag annotations on internal/auth/http.
package auth

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
        "/api/auth/v1/sign-up/email": {
            "post": {
                "description": "Creates an account and signs it in. The session token is returned in the body and set as an HttpOnly cookie.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Accounts"],
                "summary": "Sign up with email",
                "parameters": [
                    {
                        "description": "New account",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/authsdk.SignUpRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/authsdk.SignUpResponse"}},
                    "400": {"description": "bad_request, details.fields lists invalid fields", "schema": {"$ref": "#/definitions/httpx.APIError"}},
                    "409": {"description": "user_already_exists", "schema": {"$ref": "#/definitions/httpx.APIError"}},
                    "429": {"description": "rate_limit_exceeded", "schema": {"$ref": "#/definitions/httpx.APIError"}}
                }
            }
        },
        "/api/auth/v1/sign-in/email": {
            "post": {
                "description": "Exchanges email and password for a session. Unknown emails and wrong passwords are indistinguishable.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Accounts"],
                "summary": "Sign in with email",
                "parameters": [
                    {
                        "description": "Credentials",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/authsdk.SignInRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/authsdk.SignInResponse"}},
                    "400": {"description": "bad_request", "schema": {"$ref": "#/definitions/httpx.APIError"}},
                    "401": {"description": "invalid_email_or_password", "schema": {"$ref": "#/definitions/httpx.APIError"}},
                    "429": {"description": "rate_limit_exceeded", "schema": {"$ref": "#/definitions/httpx.APIError"}}
                }
            }
        },
        "/api/auth/v1/sign-out": {
            "post": {
                "security": [{"SessionAuth": []}],
                "description": "Revokes the presented session and clears the cookie. Always succeeds.",
                "produces": ["application/json"],
                "tags": ["Accounts"],
                "summary": "Sign out",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/authsdk.SignOutResponse"}}
                }
            }
        },
        "/api/auth/v1/get-session": {
            "get": {
                "security": [{"SessionAuth": []}],
                "description": "Resolves the session cookie or bearer session token. Sessions older than a day are refreshed.",
                "produces": ["application/json"],
                "tags": ["Accounts"],
                "summary": "Get the current session",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/authsdk.GetSessionResponse"}},
                    "401": {"description": "session and user are null", "schema": {"$ref": "#/definitions/authsdk.GetSessionResponse"}}
                }
            }
        },
        "/api/auth/v1/token": {
            "get": {
                "security": [{"SessionAuth": []}],
                "description": "Returns a JWT for the signed-in user, valid for 15 minutes.",
                "produces": ["application/json"],
                "tags": ["Accounts"],
                "summary": "Mint an access token",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/authsdk.TokenResponse"},
                        "headers": {"Cache-Control": {"type": "string", "description": "no-store"}}
                    },
                    "401": {"description": "unauthorized", "schema": {"$ref": "#/definitions/httpx.APIError"}},
                    "500": {"description": "internal_error", "schema": {"$ref": "#/definitions/httpx.APIError"}}
                }
            }
        },
        "/api/auth/v1/jwks": {
            "get": {
                "description": "Public keys for verifying access tokens. Same document as /.well-known/jwks.json.",
                "produces": ["application/json"],
                "tags": ["well-known"],
                "summary": "JSON Web Key Set",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/jwtx.JWKS"}}
                }
            }
        },
        "/.well-known/jwks.json": {
            "get": {
                "description": "Public keys for verifying access tokens, including retired keys still in their grace period.",
                "produces": ["application/json"],
                "tags": ["well-known"],
                "summary": "JSON Web Key Set",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/jwtx.JWKS"}}
                }
            }
        },
        "/livez": {
            "get": {
                "description": "Reports that the process is up.",
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Liveness probe",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/authsdk.HealthResponse"}}
                }
            }
        },
        "/readyz": {
            "get": {
                "description": "Checks the database and the signing keys.",
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Readiness probe",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/authsdk.HealthResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/authsdk.HealthResponse"}}
                }
            }
        }
    },
    "definitions": {
        "authsdk.SignUpRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string", "example": "user@example.com"},
                "password": {"type": "string", "example": "correct horse battery"},
                "name": {"type": "string", "example": "Ada"}
            }
        },
        "authsdk.SignInRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string", "example": "user@example.com"},
                "password": {"type": "string", "example": "correct horse battery"}
            }
        },
        "authsdk.User": {
            "type": "object",
            "properties": {
                "id": {"type": "string", "example": "01J9Z3K6Q8W5H2B7N4C1XVYTRM"},
                "email": {"type": "string", "example": "user@example.com"},
                "name": {"type": "string", "example": "Ada"},
                "emailVerified": {"type": "boolean"},
                "scopes": {"type": "array", "items": {"type": "string"}, "example": ["time:read"]},
                "createdAt": {"type": "string"},
                "updatedAt": {"type": "string"}
            }
        },
        "authsdk.SessionInfo": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "userId": {"type": "string"},
                "expiresAt": {"type": "string"},
                "createdAt": {"type": "string"},
                "updatedAt": {"type": "string"},
                "ipAddress": {"type": "string"},
                "userAgent": {"type": "string"}
            }
        },
        "authsdk.SignUpResponse": {
            "type": "object",
            "properties": {
                "token": {"type": "string"},
                "user": {"$ref": "#/definitions/authsdk.User"}
            }
        },
        "authsdk.SignInResponse": {
            "type": "object",
            "properties": {
                "redirect": {"type": "boolean"},
                "token": {"type": "string"},
                "user": {"$ref": "#/definitions/authsdk.User"}
            }
        },
        "authsdk.GetSessionResponse": {
            "type": "object",
            "properties": {
                "session": {"$ref": "#/definitions/authsdk.SessionInfo"},
                "user": {"$ref": "#/definitions/authsdk.User"}
            }
        },
        "authsdk.SignOutResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"}
            }
        },
        "authsdk.TokenResponse": {
            "type": "object",
            "properties": {
                "token": {"type": "string", "example": "eyJhbGciOiJFZERTQSIsImtpZCI6Ii4uLiJ9..."}
            }
        },
        "authsdk.HealthChecks": {
            "type": "object",
            "properties": {
                "database": {"type": "string"},
                "signer": {"type": "string"}
            }
        },
        "authsdk.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "uptime": {"type": "string"},
                "version": {"type": "string"},
                "checks": {"$ref": "#/definitions/authsdk.HealthChecks"}
            }
        },
        "httpx.APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "details": {"type": "object", "additionalProperties": true}
            }
        },
        "jwtx.JWK": {
            "type": "object",
            "properties": {
                "kty": {"type": "string"},
                "use": {"type": "string"},
                "alg": {"type": "string"},
                "kid": {"type": "string"},
                "crv": {"type": "string"},
                "x": {"type": "string"},
                "y": {"type": "string"},
                "n": {"type": "string"},
                "e": {"type": "string"}
            }
        },
        "jwtx.JWKS": {
            "type": "object",
            "properties": {
                "keys": {"type": "array", "items": {"$ref": "#/definitions/jwtx.JWK"}}
            }
        }
    },
    "securityDefinitions": {
        "SessionAuth": {
            "description": "Session token. Format: \"Bearer {session token}\". Browsers use the session cookie instead.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Host:             "localhost:3000",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "Gatehouse Credential Issuer API",
	Description:      "Email and password accounts, opaque sessions and short-lived JWT access tokens.\n\nAccess tokens are signed with EdDSA by default and can be verified using the JWKS endpoint.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
