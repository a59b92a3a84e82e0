// Package apidocs serves the OpenAPI description of the HTTP API and a
// Swagger UI page that renders it.
package apidocs

import (
    _ "embed"
    "encoding/json"
    "errors"
    "fmt"
    "net/http"

    "github.com/labstack/echo/v4"
    "gopkg.in/yaml.v3"
)

//go:embed openapi.yaml
var openapiYAML []byte

// Document is a parsed OpenAPI description kept in both wire formats.
type Document struct {
    yaml []byte
    json []byte
}

// Load parses the embedded OpenAPI document.
func Load() (*Document, error) {
    return Parse(openapiYAML)
}

// Parse decodes an OpenAPI document and checks the fields Swagger UI needs.
func Parse(raw []byte) (*Document, error) {
    var doc map[string]interface{}
    if err := yaml.Unmarshal(raw, &doc); err != nil {
        return nil, fmt.Errorf("parse openapi document: %w", err)
    }
    if _, ok := doc["openapi"].(string); !ok {
        return nil, errors.New("openapi document: missing openapi version")
    }
    if paths, ok := doc["paths"].(map[string]interface{}); !ok || len(paths) == 0 {
        return nil, errors.New("openapi document: no paths")
    }
    js, err := json.Marshal(doc)
    if err != nil {
        return nil, fmt.Errorf("encode openapi document: %w", err)
    }
    return &Document{yaml: raw, json: js}, nil
}

// UI renders Swagger UI pointed at the JSON document.
func (d *Document) UI(c echo.Context) error {
    return c.HTML(http.StatusOK, uiPage)
}

func (d *Document) JSON(c echo.Context) error {
    return c.JSONBlob(http.StatusOK, d.json)
}

func (d *Document) YAML(c echo.Context) error {
    return c.Blob(http.StatusOK, "application/yaml", d.yaml)
}

const uiPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>Q&amp;A Forum API</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.ui = SwaggerUIBundle({ url: "/api-docs/openapi.json", dom_id: "#swagger-ui" });
  </script>
</body>
</html>
`
