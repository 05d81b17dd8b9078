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
        "/auth/register": {"post": {"tags": ["auth"], "summary": "Register a new user", "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handler.registerRequest"}}], "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/handler.authResponse"}}, "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorResponse"}}, "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.errorResponse"}}}}},
        "/auth/login": {"post": {"tags": ["auth"], "summary": "Login", "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handler.loginRequest"}}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.authResponse"}}, "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}}}}},
        "/auth/logout": {"post": {"security": [{"BearerAuth": []}], "tags": ["auth"], "summary": "Logout", "responses": {"200": {"description": "OK"}}}},
        "/auth/profile": {"get": {"security": [{"BearerAuth": []}], "tags": ["auth"], "summary": "Current user", "responses": {"200": {"description": "OK"}}}},
        "/auth/google/login": {"get": {"tags": ["auth"], "summary": "Begin Google login", "responses": {"200": {"description": "OK"}, "503": {"description": "Service Unavailable"}}}},
        "/auth/google/callback": {"get": {"tags": ["auth"], "summary": "Complete Google login", "parameters": [{"in": "query", "name": "code", "type": "string", "required": true}, {"in": "query", "name": "state", "type": "string", "required": true}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.authResponse"}}}}},
        "/bugs": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["bugs"], "summary": "List bugs", "parameters": [{"in": "query", "name": "status", "type": "string"}, {"in": "query", "name": "priority", "type": "string"}, {"in": "query", "name": "assignee", "type": "string"}, {"in": "query", "name": "search", "type": "string"}, {"in": "query", "name": "page", "type": "integer"}, {"in": "query", "name": "per_page", "type": "integer"}], "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["bugs"], "summary": "Report a bug", "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handler.createBugRequest"}}], "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorResponse"}}}}
        },
        "/bugs/stats": {"get": {"security": [{"BearerAuth": []}], "tags": ["bugs"], "summary": "Bug counts by status and priority", "responses": {"200": {"description": "OK"}}}},
        "/bugs/{id}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["bugs"], "summary": "Get a bug with comments", "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}},
            "put": {"security": [{"BearerAuth": []}], "tags": ["bugs"], "summary": "Update a bug", "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["bugs"], "summary": "Delete a bug", "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}
        },
        "/bugs/{id}/comments": {"post": {"security": [{"BearerAuth": []}], "tags": ["bugs"], "summary": "Comment on a bug", "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}, {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handler.commentRequest"}}], "responses": {"201": {"description": "Created"}}}},
        "/bugs/{id}/activity": {"get": {"security": [{"BearerAuth": []}], "tags": ["bugs"], "summary": "Audit trail of a bug", "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}], "responses": {"200": {"description": "OK"}}}},
        "/users": {"get": {"security": [{"BearerAuth": []}], "tags": ["users"], "summary": "List users", "responses": {"200": {"description": "OK"}}}},
        "/users/assignees": {"get": {"security": [{"BearerAuth": []}], "tags": ["users"], "summary": "Users a bug can be assigned to", "responses": {"200": {"description": "OK"}}}},
        "/users/{id}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["users"], "summary": "Get a user", "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}], "responses": {"200": {"description": "OK"}}},
            "put": {"security": [{"BearerAuth": []}], "tags": ["users"], "summary": "Update a user", "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}], "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["users"], "summary": "Delete a user", "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}], "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}}}
        },
        "/health": {"get": {"tags": ["health"], "summary": "Liveness probe", "responses": {"200": {"description": "OK"}}}},
        "/health/ready": {"get": {"tags": ["health"], "summary": "Readiness probe", "responses": {"200": {"description": "OK"}, "503": {"description": "Service Unavailable"}}}}
    },
    "definitions": {
        "handler.errorResponse": {"type": "object", "properties": {"error": {"type": "string"}}},
        "handler.registerRequest": {"type": "object", "required": ["username", "email", "password"], "properties": {"username": {"type": "string"}, "email": {"type": "string"}, "password": {"type": "string"}}},
        "handler.loginRequest": {"type": "object", "required": ["username", "password"], "properties": {"username": {"type": "string"}, "password": {"type": "string"}}},
        "handler.authResponse": {"type": "object", "properties": {"token": {"type": "string"}, "user": {"type": "object"}}},
        "handler.createBugRequest": {"type": "object", "required": ["title", "description"], "properties": {"title": {"type": "string"}, "description": {"type": "string"}, "priority": {"type": "string"}, "status": {"type": "string"}, "assignee": {"type": "string"}, "tags": {"type": "array", "items": {"type": "string"}}, "steps_to_reproduce": {"type": "string"}, "expected_behavior": {"type": "string"}, "environment": {"type": "string"}}},
        "handler.commentRequest": {"type": "object", "required": ["content"], "properties": {"content": {"type": "string"}}}
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:8080",
	BasePath:         "/api",
	Schemes:          []string{"http"},
	Title:            "Bug Tracker API",
	Description:      "Bug reports, comments, users and authentication.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
