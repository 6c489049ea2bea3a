// Package docs registers the OpenAPI document served at /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header", "description": "Format: Bearer <token>"}
    },
    "paths": {
        "/login": {"post": {"tags": ["auth"], "summary": "Operator login", "responses": {"200": {"description": "token"}, "401": {"description": "invalid credentials"}}}},
        "/me": {"get": {"tags": ["auth"], "summary": "Current operator", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "profile"}}}},
        "/operators": {"post": {"tags": ["auth"], "summary": "Create operator (admin)", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "created"}, "409": {"description": "email taken"}}}},
        "/leads": {
            "post": {"tags": ["leads"], "summary": "Public intake", "responses": {"201": {"description": "lead reference"}}},
            "get": {"tags": ["leads"], "summary": "List leads", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "page"}}}
        },
        "/leads/{id}": {"get": {"tags": ["leads"], "summary": "Lead detail", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "lead"}, "404": {"description": "not found"}}}},
        "/leads/{id}/convert": {"post": {"tags": ["leads"], "summary": "Convert lead to case", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "case"}, "409": {"description": "already converted"}}}},
        "/cases": {
            "post": {"tags": ["cases"], "summary": "Create case", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "case"}, "422": {"description": "status not in phase"}}},
            "get": {"tags": ["cases"], "summary": "List cases", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "page"}}}
        },
        "/cases/{id}": {"get": {"tags": ["cases"], "summary": "Case detail", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "case"}}}},
        "/cases/{id}/status": {"post": {"tags": ["cases"], "summary": "Change status", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "case"}, "409": {"description": "completed or archived"}, "422": {"description": "unknown status"}}}},
        "/cases/{id}/reopen": {"post": {"tags": ["cases"], "summary": "Reopen case", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "case"}}}},
        "/cases/{id}/notes": {"post": {"tags": ["cases"], "summary": "Add case note", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "note"}}}},
        "/cases/{id}/archive": {"get": {"tags": ["cases"], "summary": "Archive countdown", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "countdown"}}}},
        "/archive/sweep": {"post": {"tags": ["archive"], "summary": "Run the archival sweep (admin)", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "archived count"}}}},
        "/cases/{id}/documents": {
            "post": {"tags": ["documents"], "summary": "Upload document", "consumes": ["multipart/form-data"], "security": [{"BearerAuth": []}], "responses": {"201": {"description": "document"}}},
            "get": {"tags": ["documents"], "summary": "List documents", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "documents"}}}
        },
        "/cases/{id}/document-requests": {
            "post": {"tags": ["documents"], "summary": "Request documents", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "request with upload token"}}},
            "get": {"tags": ["documents"], "summary": "List document requests", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "requests"}}}
        },
        "/documents/{id}": {"get": {"tags": ["documents"], "summary": "Document metadata", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "document"}}}},
        "/documents/{id}/signed-url": {"get": {"tags": ["documents"], "summary": "Signed download URL", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "url"}}}},
        "/documents/{id}/review": {"post": {"tags": ["documents"], "summary": "Approve or reject", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "document"}, "409": {"description": "already reviewed"}}}},
        "/upload/{token}": {"get": {"tags": ["upload"], "summary": "Resolve upload link", "responses": {"200": {"description": "requested types"}, "410": {"description": "expired"}}}},
        "/upload/{token}/documents": {"post": {"tags": ["upload"], "summary": "Client upload", "consumes": ["multipart/form-data"], "responses": {"201": {"description": "receipt"}}}},
        "/clients": {"post": {"tags": ["clients"], "summary": "Create client", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "client"}}}},
        "/clients/{id}": {"get": {"tags": ["clients"], "summary": "Client record", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "client"}}}},
        "/clients/{id}/notes": {"post": {"tags": ["clients"], "summary": "Add client note", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "note"}}}},
        "/clients/{id}/communications": {"post": {"tags": ["clients"], "summary": "Log communication", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "communication"}}}},
        "/clients/{id}/payments": {"post": {"tags": ["clients"], "summary": "Record payment", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "payment"}}}},
        "/portal/view": {"post": {"tags": ["portal"], "summary": "Client portal view", "responses": {"200": {"description": "case projection"}, "401": {"description": "invalid credentials"}}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{"http"},
	Title:            "Case Engine API",
	Description:      "Back office for immigration cases: leads, clients, case lifecycle, documents, archival and the client portal.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
