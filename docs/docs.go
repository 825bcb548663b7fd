// Package docs registra o documento Swagger servido em /swagger.
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
        "/api/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Autentica um administrador e retorna um JWT",
                "parameters": [
                    {"description": "Credenciais", "name": "login", "in": "body", "required": true, "schema": {"$ref": "#/definitions/domain.LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "Token JWT emitido", "schema": {"$ref": "#/definitions/user.LoginResponse"}},
                    "401": {"description": "Credenciais inválidas", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}}
                }
            }
        },
        "/api/products": {
            "get": {
                "produces": ["application/json"],
                "tags": ["catalog"],
                "summary": "Lista produtos",
                "parameters": [
                    {"type": "string", "name": "category", "in": "query"},
                    {"type": "string", "name": "subcategory", "in": "query"},
                    {"type": "string", "name": "search", "in": "query"},
                    {"type": "string", "name": "size", "in": "query"},
                    {"type": "boolean", "name": "include_inactive", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["products"],
                "summary": "Cria um novo produto",
                "parameters": [
                    {"type": "string", "name": "name", "in": "formData", "required": true},
                    {"type": "string", "name": "category", "in": "formData", "required": true},
                    {"type": "string", "name": "price", "in": "formData", "required": true},
                    {"type": "string", "name": "sizes", "in": "formData"},
                    {"type": "integer", "name": "main_image_index", "in": "formData"},
                    {"type": "file", "name": "images", "in": "formData"}
                ],
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}}
                }
            }
        },
        "/api/products/search": {
            "get": {
                "produces": ["application/json"],
                "tags": ["catalog"],
                "summary": "Autocomplete por nome",
                "parameters": [{"type": "string", "name": "q", "in": "query", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/products/sizes/type/{type}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["sizes"],
                "summary": "Lista os talles de um tipo",
                "parameters": [{"type": "string", "name": "type", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/products/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["catalog"],
                "summary": "Detalhe do produto",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/domain.ErrorResponse"}}
                }
            },
            "put": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["products"],
                "summary": "Atualiza um produto",
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "name": "main_image_id", "in": "formData"},
                    {"type": "string", "name": "sizes", "in": "formData"},
                    {"type": "file", "name": "images", "in": "formData"}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "delete": {
                "security": [{"ApiKeyAuth": []}],
                "tags": ["products"],
                "summary": "Remove um produto",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/api/products/{id}/sizes": {
            "get": {
                "produces": ["application/json"],
                "tags": ["sizes"],
                "summary": "Estoque por talle de um produto",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            },
            "put": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["products"],
                "summary": "Substitui os talles de um produto",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/products/{id}/images/{imageId}": {
            "delete": {
                "security": [{"ApiKeyAuth": []}],
                "tags": ["products"],
                "summary": "Remove uma imagem do produto",
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "name": "imageId", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/home": {
            "get": {
                "produces": ["application/json"],
                "tags": ["home"],
                "summary": "Página inicial",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Health check",
                "responses": {"200": {"description": "OK"}, "503": {"description": "Service Unavailable"}}
            }
        }
    },
    "definitions": {
        "domain.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "integer", "example": 400},
                "category": {"type": "string", "example": "VALIDATION_ERROR"},
                "message": {"type": "string"}
            }
        },
        "domain.LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "user.LoginResponse": {
            "type": "object",
            "properties": {"token": {"type": "string"}}
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Pololo API",
	Description:      "Catálogo de produtos da loja Pololo: leitura pública e escrita administrativa.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
