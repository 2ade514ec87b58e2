// Package docs registers the OpenAPI description served under /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "API Support",
            "url": "http://github.com/Pesokrava/reviewhub"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "paths": {
        "/auth/session": {
            "post": {
                "tags": ["Auth"],
                "summary": "Issue a session token",
                "responses": {"201": {"description": "Token issued"}, "400": {"description": "Missing userId"}}
            }
        },
        "/categories": {
            "get": {
                "tags": ["Items"],
                "summary": "List categories",
                "responses": {"200": {"description": "Distinct category names"}}
            }
        },
        "/items": {
            "get": {
                "tags": ["Items"],
                "summary": "List items",
                "parameters": [
                    {"type": "integer", "default": 10, "name": "limit", "in": "query"},
                    {"type": "integer", "default": 0, "name": "offset", "in": "query"},
                    {"type": "string", "name": "search", "in": "query"},
                    {"type": "string", "name": "category", "in": "query"}
                ],
                "responses": {"200": {"description": "Paginated list of items"}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Items"],
                "summary": "Create a new item",
                "responses": {"201": {"description": "Item created successfully"}, "400": {"description": "Validation failed"}}
            }
        },
        "/items/{id}": {
            "get": {
                "tags": ["Items"],
                "summary": "Get an item by ID",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "Item details"}, "404": {"description": "Item not found"}}
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["Items"],
                "summary": "Update an item",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "Item updated successfully"}, "404": {"description": "Item not found"}}
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["Items"],
                "summary": "Delete an item",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"204": {"description": "Item deleted successfully"}, "409": {"description": "Item still has reviews"}}
            }
        },
        "/items/{id}/reviews": {
            "get": {
                "tags": ["Reviews"],
                "summary": "Get reviews for an item",
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "default": 20, "name": "limit", "in": "query"},
                    {"type": "integer", "default": 0, "name": "offset", "in": "query"}
                ],
                "responses": {"200": {"description": "Paginated list of reviews"}}
            }
        },
        "/reviews": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Reviews"],
                "summary": "Create a new review",
                "responses": {
                    "201": {"description": "Review created successfully"},
                    "400": {"description": "Validation failed"},
                    "404": {"description": "Item not found"}
                }
            }
        },
        "/reviews/{id}": {
            "get": {
                "tags": ["Reviews"],
                "summary": "Get a review",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "Review"}, "404": {"description": "Review not found"}}
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["Reviews"],
                "summary": "Update a review",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "Review updated successfully"}, "404": {"description": "Review not found"}}
            },
            "patch": {
                "security": [{"BearerAuth": []}],
                "tags": ["Reviews"],
                "summary": "Update a review",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "Review updated successfully"}, "404": {"description": "Review not found"}}
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["Reviews"],
                "summary": "Delete a review",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "Deleted review id"}, "404": {"description": "Review not found"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{"http", "https"},
	Title:            "ReviewHub API",
	Description:      "Item reviews with synchronously maintained rating aggregates.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
