// Package docs holds the OpenAPI spec for the price-comparison API. It is
// normally regenerated by `swag init` from the `@Router`/`@Summary`
// annotations on internal/handlers; this copy is hand-maintained to track
// that annotation set since the generator isn't run as part of this build.
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
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.HealthResponse"}}
                }
            }
        },
        "/search": {
            "get": {
                "produces": ["application/json"],
                "tags": ["search"],
                "summary": "Search products",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/search.Response"}}
                }
            }
        },
        "/suggestions": {
            "get": {
                "produces": ["application/json"],
                "tags": ["search"],
                "summary": "Autocomplete suggestions",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/suggest.Suggestion"}}}
                }
            }
        },
        "/facets": {
            "get": {
                "produces": ["application/json"],
                "tags": ["search"],
                "summary": "Category facets for a query",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/search.CategoryCount"}}}
                }
            }
        },
        "/product/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["products"],
                "summary": "Get product by id",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/store.Product"}}
                }
            }
        },
        "/product/ean/{ean}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["products"],
                "summary": "Get product by EAN",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/store.Product"}}
                }
            }
        },
        "/product/{id}/comparison": {
            "get": {
                "produces": ["application/json"],
                "tags": ["products"],
                "summary": "Compare a product's price across merchants",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/store.ComparisonEntry"}}}
                }
            }
        },
        "/shops": {
            "get": {
                "produces": ["application/json"],
                "tags": ["shops"],
                "summary": "List shops",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListShopsResponse"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["shops"],
                "summary": "Register a shop feed",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/store.Merchant"}}
                }
            }
        },
        "/shops/{id}": {
            "delete": {
                "tags": ["shops"],
                "summary": "Remove a shop",
                "responses": {
                    "204": {"description": "No content"}
                }
            }
        },
        "/internal/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.HealthResponse"}}
                }
            }
        },
        "/internal/admin/process-feeds": {
            "post": {
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Trigger feed ingestion across all shops",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ProcessFeedsResponse"}},
                    "500": {"description": "Internal server error"}
                }
            }
        },
        "/internal/admin/stats": {
            "get": {
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Catalog statistics",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "integer"}}}
                }
            }
        }
    },
    "definitions": {
        "handlers.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "database": {"type": "string"}
            }
        },
        "handlers.ListShopsResponse": {
            "type": "object",
            "properties": {
                "shops": {"type": "array", "items": {"$ref": "#/definitions/store.Merchant"}}
            }
        },
        "handlers.ProcessFeedsResponse": {
            "type": "object",
            "properties": {
                "results": {"type": "array", "items": {"type": "object"}}
            }
        },
        "search.Response": {
            "type": "object",
            "properties": {
                "products": {"type": "array", "items": {"$ref": "#/definitions/search.Product"}},
                "groups": {"type": "array", "items": {"$ref": "#/definitions/search.Group"}},
                "total": {"type": "integer"},
                "page": {"type": "integer"}
            }
        },
        "search.Product": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "title": {"type": "string"},
                "price": {"type": "number"}
            }
        },
        "search.Group": {
            "type": "object",
            "properties": {
                "key": {"type": "string"},
                "products": {"type": "array", "items": {"$ref": "#/definitions/search.Product"}}
            }
        },
        "search.CategoryCount": {
            "type": "object",
            "properties": {
                "category": {"type": "string"},
                "count": {"type": "integer"}
            }
        },
        "suggest.Suggestion": {
            "type": "object",
            "properties": {
                "text": {"type": "string"},
                "source": {"type": "string"}
            }
        },
        "store.Product": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "title": {"type": "string"},
                "price": {"type": "number"},
                "ean": {"type": "string"}
            }
        },
        "store.ComparisonEntry": {
            "type": "object",
            "properties": {
                "merchant_id": {"type": "string"},
                "price": {"type": "number"}
            }
        },
        "store.Merchant": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "feed_url": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Price Service API",
	Description:      "Multi-merchant product search and price-comparison API: catalog search, product lookup, shop registration, and admin-triggered ingestion.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
