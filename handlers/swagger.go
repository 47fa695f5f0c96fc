package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>neubio - Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "neubio", "version": "v0.1.0" },
  "components": {
    "securitySchemes": { "bearer": { "type": "http", "scheme": "bearer", "bearerFormat": "JWT" } }
  },
  "paths": {
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/api/profile": { "get": { "summary": "Public profile document", "responses": { "200": { "description": "document without admin block" } } } },
    "/admin/login": {
      "post": {
        "summary": "Check the admin password and issue an access token",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"password":{"type":"string"}}}}}},
        "responses": { "200": { "description": "accessToken returned" }, "401": { "description": "wrong password" }, "429": { "description": "rate limited" } }
      }
    },
    "/admin/logout": { "post": { "summary": "End the admin session and revoke the token", "security": [{"bearer": []}], "responses": { "204": { "description": "logged out" } } } },
    "/admin/status": { "get": { "summary": "Sync state and persisted client state", "security": [{"bearer": []}], "responses": { "200": { "description": "status" } } } },
    "/admin/document": { "get": { "summary": "Full local document", "security": [{"bearer": []}], "responses": { "200": { "description": "document" } } } },
    "/admin/profile": { "put": { "summary": "Patch profile fields", "security": [{"bearer": []}], "responses": { "200": { "description": "updated profile" } } } },
    "/admin/theme": { "put": { "summary": "Patch theme fields", "security": [{"bearer": []}], "responses": { "200": { "description": "updated theme" } } } },
    "/admin/sections": { "put": { "summary": "Patch section overrides", "security": [{"bearer": []}], "responses": { "200": { "description": "updated sections" } } } },
    "/admin/password": { "post": { "summary": "Change the admin password locally", "security": [{"bearer": []}], "responses": { "204": { "description": "changed" }, "400": { "description": "too short" } } } },
    "/admin/socials": { "post": { "summary": "Add a social link", "security": [{"bearer": []}], "responses": { "201": { "description": "created" } } } },
    "/admin/socials/{id}": {
      "patch": { "summary": "Patch a social link", "security": [{"bearer": []}], "responses": { "200": { "description": "updated" }, "404": { "description": "unknown id" } } },
      "delete": { "summary": "Remove a social link", "security": [{"bearer": []}], "responses": { "204": { "description": "removed" }, "404": { "description": "unknown id" } } }
    },
    "/admin/socials/{id}/move": { "post": { "summary": "Move a social link to an index", "security": [{"bearer": []}], "responses": { "200": { "description": "new order" } } } },
    "/admin/projects": { "post": { "summary": "Add a project card", "security": [{"bearer": []}], "responses": { "201": { "description": "created" } } } },
    "/admin/projects/{id}": {
      "patch": { "summary": "Patch a project card", "security": [{"bearer": []}], "responses": { "200": { "description": "updated" }, "404": { "description": "unknown id" } } },
      "delete": { "summary": "Remove a project card", "security": [{"bearer": []}], "responses": { "204": { "description": "removed" }, "404": { "description": "unknown id" } } }
    },
    "/admin/projects/{id}/move": { "post": { "summary": "Move a project card to an index", "security": [{"bearer": []}], "responses": { "200": { "description": "new order" } } } },
    "/admin/token": {
      "post": { "summary": "Verify and store the remote credential", "security": [{"bearer": []}], "responses": { "200": { "description": "verified" }, "401": { "description": "rejected" } } },
      "delete": { "summary": "Forget the remote credential", "security": [{"bearer": []}], "responses": { "204": { "description": "forgotten" } } }
    },
    "/admin/container": { "post": { "summary": "Create a container or use an existing id", "security": [{"bearer": []}], "responses": { "201": { "description": "created" }, "200": { "description": "switched" } } } },
    "/admin/push": { "post": { "summary": "Write the local document to the remote", "security": [{"bearer": []}], "responses": { "200": { "description": "new revision" }, "409": { "description": "stale revision or busy" } } } },
    "/admin/pull": { "post": { "summary": "Replace the local document with the remote one (confirm=true)", "security": [{"bearer": []}], "responses": { "200": { "description": "revision loaded" } } } },
    "/admin/history": { "get": { "summary": "Recent sync operations", "security": [{"bearer": []}], "responses": { "200": { "description": "entries" } } } },
    "/admin/history/{id}": { "get": { "summary": "One sync operation", "security": [{"bearer": []}], "responses": { "200": { "description": "entry" }, "404": { "description": "unknown id" } } } },
    "/admin/assets": { "post": { "summary": "Upload an image asset", "security": [{"bearer": []}], "responses": { "201": { "description": "hosted URL" } } } },
    "/admin/bio": { "post": { "summary": "Rewrite the profile title", "security": [{"bearer": []}], "responses": { "200": { "description": "rewritten title" }, "503": { "description": "not configured" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "metrics" } } } }
  }
}`
