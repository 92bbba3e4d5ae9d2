package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Melo API",
        "description": "Gig-work marketplace backend: work lifecycle, applications, completion handshake and ratings",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Authentication", "description": "Registration, login and token refresh"},
        {"name": "Works", "description": "Work item lifecycle"},
        {"name": "Applications", "description": "Applications to work items"},
        {"name": "Completion", "description": "Completion code handshake"},
        {"name": "Reviews", "description": "Reviews and rating aggregates"},
        {"name": "Reports", "description": "Employer work summaries"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/auth/register": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Register a new account",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Email already registered"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Refresh access token",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current user profile",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/works": {
            "get": {
                "tags": ["Works"],
                "summary": "List works",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "employerId", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "category", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Works"],
                "summary": "Publish a new work item",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/works/active": {
            "get": {
                "tags": ["Works"],
                "summary": "Fetch the caller's active work as employee",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No active work"}
                }
            }
        },
        "/works/{id}": {
            "get": {
                "tags": ["Works"],
                "summary": "Fetch a single work item",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "put": {
                "tags": ["Works"],
                "summary": "Update work details",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Not the employer"}
                }
            },
            "delete": {
                "tags": ["Works"],
                "summary": "Delete a work item and its dependents",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "204": {"description": "Deleted"},
                    "403": {"description": "Not the employer"}
                }
            }
        },
        "/works/{id}/assign": {
            "patch": {
                "tags": ["Works"],
                "summary": "Assign an employee to a work item",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/works/{id}/status": {
            "patch": {
                "tags": ["Works"],
                "summary": "Change work status",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid or gated transition"}
                }
            }
        },
        "/works/{id}/applications": {
            "get": {
                "tags": ["Applications"],
                "summary": "List applications for a work item",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Not the employer"}
                }
            },
            "post": {
                "tags": ["Applications"],
                "summary": "Apply to a work item",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already applied"}
                }
            }
        },
        "/works/{id}/applications/check": {
            "get": {
                "tags": ["Applications"],
                "summary": "Check whether the caller has a live application",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/applications/{id}/status": {
            "patch": {
                "tags": ["Applications"],
                "summary": "Accept or reject an application",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/applications/{id}/withdraw": {
            "patch": {
                "tags": ["Applications"],
                "summary": "Withdraw own application",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already withdrawn"}
                }
            }
        },
        "/works/{id}/completion-code": {
            "get": {
                "tags": ["Completion"],
                "summary": "Fetch the current completion code",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Not the employer"}
                }
            },
            "post": {
                "tags": ["Completion"],
                "summary": "Generate (or regenerate) the completion code",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/works/{id}/complete": {
            "post": {
                "tags": ["Completion"],
                "summary": "Complete a work item by submitting the completion code",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid completion code"}
                }
            }
        },
        "/reviews": {
            "post": {
                "tags": ["Reviews"],
                "summary": "Record a review for a completed work",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Duplicate review"}
                }
            }
        },
        "/reviews/authored": {
            "get": {
                "tags": ["Reviews"],
                "summary": "List reviews written by the caller",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reviews/user/{id}": {
            "get": {
                "tags": ["Reviews"],
                "summary": "List reviews received by a user",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "type", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reviews/work/{id}": {
            "get": {
                "tags": ["Reviews"],
                "summary": "List reviews attached to a work item",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reviews/{id}": {
            "delete": {
                "tags": ["Reviews"],
                "summary": "Delete a review",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "204": {"description": "Deleted"},
                    "403": {"description": "Not the author"}
                }
            }
        },
        "/users/{id}/rating": {
            "get": {
                "tags": ["Reviews"],
                "summary": "Aggregate rating for a user",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/works": {
            "get": {
                "tags": ["Reports"],
                "summary": "Generate a summary report of the caller's published works",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "format", "in": "query", "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/download/{token}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download a generated report via signed token",
                "parameters": [{"name": "token", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "File"},
                    "403": {"description": "Invalid or expired token"}
                }
            }
        }
    },
    "definitions": {
        "RegisterRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"},
                "full_name": {"type": "string"}
            }
        },
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
