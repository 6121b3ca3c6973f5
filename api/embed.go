// Package api carries the published API description, embedded so the binary serves it from any working directory.
package api

import _ "embed"

//go:embed openapi.yaml
var OpenAPI []byte

// SwaggerHTML loads Swagger UI from a CDN and points it at /openapi.yaml.
//
//go:embed swagger.html
var SwaggerHTML []byte
