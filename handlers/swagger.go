package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the service.
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
    <title>docsummarizer API</title>
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
  "info": { "title": "docsummarizer", "version": "v0.2.0" },
  "components": { "securitySchemes": { "bearer": { "type": "http", "scheme": "bearer", "bearerFormat": "JWT" } } },
  "paths": {
    "/auth/login": {
      "post": {
        "summary": "Password login or authorization-code exchange",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"mode":{"type":"string","enum":["password","auth_code"]},"username":{"type":"string"},"password":{"type":"string"},"code":{"type":"string"},"redirect_uri":{"type":"string"}}}}}},
        "responses": { "200": { "description": "accessToken, refreshToken, user, expiresIn" }, "401": { "description": "authentication failed" } }
      }
    },
    "/auth/refresh": {
      "post": { "summary": "Refresh access token", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refresh_token":{"type":"string"}}}}}}, "responses": { "200": { "description": "new access token" }, "401": { "description": "invalid refresh" } } }
    },
    "/auth/logout": {
      "post": { "summary": "Sign out: revoke the bearer token and drop the refresh session", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refresh_token":{"type":"string"}}}}}}, "responses": { "200": { "description": "logged out" }, "500": { "description": "Failed to sign out. Please try again." } } }
    },
    "/api/v1/me": { "get": { "summary": "Signed-in identity and profile", "security": [{"bearer": []}], "responses": { "200": { "description": "identity" } } } },
    "/api/v1/workspace": { "get": { "summary": "Workspace snapshot", "security": [{"bearer": []}], "responses": { "200": { "description": "snapshot" } } } },
    "/api/v1/workspace/view": { "put": { "summary": "Switch view (documents|chats)", "security": [{"bearer": []}], "responses": { "200": { "description": "snapshot" }, "400": { "description": "unknown view" } } } },
    "/api/v1/workspace/error": { "delete": { "summary": "Dismiss the current error", "security": [{"bearer": []}], "responses": { "204": { "description": "dismissed" } } } },
    "/api/v1/documents": {
      "get": { "summary": "List documents", "security": [{"bearer": []}], "responses": { "200": { "description": "documents and store status" } } },
      "post": { "summary": "Upload a document (multipart field 'file')", "security": [{"bearer": []}], "responses": { "201": { "description": "document" }, "400": { "description": "validation failed" }, "409": { "description": "upload in progress" }, "413": { "description": "body over the size limit" }, "502": { "description": "transfer failed" } } }
    },
    "/api/v1/documents/{id}/url": { "get": { "summary": "Download link for a document", "security": [{"bearer": []}], "responses": { "200": { "description": "url, with expiresIn when presigned" }, "404": { "description": "unknown document" }, "502": { "description": "link could not be signed" } } } },
    "/api/v1/documents/{id}/select": { "post": { "summary": "Select a document", "security": [{"bearer": []}], "responses": { "200": { "description": "snapshot" }, "404": { "description": "unknown document" } } } },
    "/api/v1/documents/{id}/delete": { "post": { "summary": "Ask to delete a document", "security": [{"bearer": []}], "responses": { "200": { "description": "pending confirmation" }, "404": { "description": "unknown document" } } } },
    "/api/v1/documents/delete/confirm": { "post": { "summary": "Confirm the pending delete", "security": [{"bearer": []}], "responses": { "200": { "description": "snapshot" }, "409": { "description": "nothing pending" } } } },
    "/api/v1/documents/delete/cancel": { "post": { "summary": "Cancel the pending delete", "security": [{"bearer": []}], "responses": { "200": { "description": "closed" } } } },
    "/api/v1/messages": { "post": { "summary": "Send a message about the selected document", "security": [{"bearer": []}], "responses": { "202": { "description": "accepted; reply arrives asynchronously" }, "400": { "description": "empty message or no selection" } } } },
    "/api/v1/chats": {
      "get": { "summary": "List saved chats", "security": [{"bearer": []}], "responses": { "200": { "description": "chats and store status" } } },
      "post": { "summary": "Save the current thread", "security": [{"bearer": []}], "responses": { "201": { "description": "chat id" }, "400": { "description": "nothing to save" } } }
    },
    "/api/v1/chats/{id}/load": { "post": { "summary": "Load a saved chat", "security": [{"bearer": []}], "responses": { "200": { "description": "snapshot" }, "404": { "description": "unknown chat" } } } },
    "/api/v1/chats/{id}": {
      "put": { "summary": "Overwrite a saved chat with the current thread", "security": [{"bearer": []}], "responses": { "204": { "description": "updated" } } },
      "delete": { "summary": "Delete a saved chat", "security": [{"bearer": []}], "responses": { "204": { "description": "deleted" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "metrics" } } } }
  }
}`
