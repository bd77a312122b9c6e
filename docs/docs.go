// Package docs carries the OpenAPI description of the HTTP API.
package docs

import _ "embed"

// SwaggerYAML is served at /docs/swagger.yaml and rendered by /swagger/index.html.
//
//go:embed swagger.yaml
var SwaggerYAML []byte
