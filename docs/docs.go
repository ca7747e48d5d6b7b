// Package docs registers the OpenAPI description served under /swagger.
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
        "/api/v1/files/upload": {
            "post": {
                "security": [{"Bearer": []}],
                "description": "Stores the file and queues extraction. The extraction outcome appears in the ingestion log.",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["files"],
                "summary": "Upload a PDF into a bucket",
                "parameters": [
                    {"type": "file", "description": "PDF file", "name": "file", "in": "formData", "required": true},
                    {"type": "string", "description": "kif, kuf, transactions or contracts", "name": "bucketName", "in": "formData", "required": true},
                    {"type": "string", "description": "Free text description", "name": "description", "in": "formData"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/dto.UploadResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "413": {"description": "Request Entity Too Large", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/api/v1/{family}": {
            "get": {
                "security": [{"Bearer": []}],
                "produces": ["application/json"],
                "tags": ["documents"],
                "summary": "List documents of a family",
                "parameters": [
                    {"type": "string", "description": "kif, kuf, contracts, bank-transactions or partners", "name": "family", "in": "path", "required": true},
                    {"type": "integer", "description": "Page, 1-based", "name": "page", "in": "query"},
                    {"type": "integer", "description": "Page size, max 100", "name": "perPage", "in": "query"},
                    {"type": "string", "description": "Schema key or id, created_at, updated_at, approved_at", "name": "sortField", "in": "query"},
                    {"type": "string", "description": "asc or desc", "name": "sortOrder", "in": "query"},
                    {"type": "boolean", "description": "Only approved or only unapproved", "name": "approved", "in": "query"},
                    {"type": "string", "description": "Created at or after", "name": "from", "in": "query"},
                    {"type": "string", "description": "Created at or before", "name": "to", "in": "query"},
                    {"type": "string", "description": "Search in field values", "name": "q", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.DocumentPage"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/api/v1/{family}/logs/invalid": {
            "get": {
                "security": [{"Bearer": []}],
                "produces": ["application/json"],
                "tags": ["ingestion"],
                "summary": "List uploads that failed extraction or need manual attention",
                "parameters": [
                    {"type": "string", "description": "kif, kuf, contracts or bank-transactions", "name": "family", "in": "path", "required": true},
                    {"type": "integer", "description": "Page, 1-based", "name": "page", "in": "query"},
                    {"type": "integer", "description": "Page size, max 100", "name": "perPage", "in": "query"},
                    {"type": "string", "description": "filename, message, created_at, processed_at or is_processed", "name": "sortField", "in": "query"},
                    {"type": "string", "description": "asc or desc", "name": "sortOrder", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.IngestionLogPage"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/api/v1/{family}/logs/{logId}": {
            "get": {
                "security": [{"Bearer": []}],
                "produces": ["application/json"],
                "tags": ["ingestion"],
                "summary": "Get one ingestion log entry",
                "parameters": [
                    {"type": "string", "description": "Document family", "name": "family", "in": "path", "required": true},
                    {"type": "integer", "description": "Log entry ID", "name": "logId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.IngestionLogResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/api/v1/{family}/{id}": {
            "get": {
                "security": [{"Bearer": []}],
                "produces": ["application/json"],
                "tags": ["documents"],
                "summary": "Get one document with its PDF link",
                "parameters": [
                    {"type": "string", "description": "Document family", "name": "family", "in": "path", "required": true},
                    {"type": "integer", "description": "Document ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.DocumentResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            },
            "put": {
                "security": [{"Bearer": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["documents"],
                "summary": "Replace the fields of an unapproved document",
                "parameters": [
                    {"type": "string", "description": "Document family", "name": "family", "in": "path", "required": true},
                    {"type": "integer", "description": "Document ID", "name": "id", "in": "path", "required": true},
                    {"description": "Full field set", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.UpdateDocumentRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.DocumentResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/api/v1/{family}/{id}/approve": {
            "put": {
                "security": [{"Bearer": []}],
                "description": "Overrides and the approval stamp are written together. A second approval returns 409 ALREADY_APPROVED with the current record.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["documents"],
                "summary": "Approve a document, optionally with corrected fields",
                "parameters": [
                    {"type": "string", "description": "Document family", "name": "family", "in": "path", "required": true},
                    {"type": "integer", "description": "Document ID", "name": "id", "in": "path", "required": true},
                    {"description": "Field overrides", "name": "request", "in": "body", "schema": {"$ref": "#/definitions/dto.ApproveDocumentRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.DocumentResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "dto.DocumentResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "type": {"type": "string"},
                "fields": {"type": "object", "additionalProperties": true},
                "pdfUrl": {"type": "string"},
                "createdAt": {"type": "string"},
                "updatedAt": {"type": "string"},
                "approvedAt": {"type": "string"},
                "approvedBy": {"type": "string"}
            }
        },
        "dto.DocumentPage": {
            "type": "object",
            "properties": {
                "items": {"type": "array", "items": {"$ref": "#/definitions/dto.DocumentResponse"}},
                "total": {"type": "integer"},
                "page": {"type": "integer"},
                "perPage": {"type": "integer"}
            }
        },
        "dto.IngestionLogResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "type": {"type": "string"},
                "bucket": {"type": "string"},
                "filename": {"type": "string"},
                "description": {"type": "string"},
                "message": {"type": "string"},
                "isValid": {"type": "boolean"},
                "isProcessed": {"type": "boolean"},
                "processedAt": {"type": "string"},
                "documentId": {"type": "integer"},
                "createdAt": {"type": "string"}
            }
        },
        "dto.IngestionLogPage": {
            "type": "object",
            "properties": {
                "items": {"type": "array", "items": {"$ref": "#/definitions/dto.IngestionLogResponse"}},
                "total": {"type": "integer"},
                "page": {"type": "integer"},
                "perPage": {"type": "integer"}
            }
        },
        "dto.UpdateDocumentRequest": {
            "type": "object",
            "properties": {
                "fields": {"type": "object", "additionalProperties": true}
            }
        },
        "dto.ApproveDocumentRequest": {
            "type": "object",
            "properties": {
                "fields": {"type": "object", "additionalProperties": true}
            }
        },
        "dto.UploadResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "url": {"type": "string"},
                "fileName": {"type": "string"},
                "bucketName": {"type": "string"},
                "logId": {"type": "integer"},
                "processing": {"type": "string"}
            }
        },
        "dto.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "code": {"type": "string"},
                "fields": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "field": {"type": "string"},
                            "message": {"type": "string"}
                        }
                    }
                },
                "document": {"$ref": "#/definitions/dto.DocumentResponse"}
            }
        }
    },
    "securityDefinitions": {
        "Bearer": {
            "description": "Type \"Bearer\" followed by a space and the JWT.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Finetica API",
	Description:      "Financial document ingestion and approval.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
