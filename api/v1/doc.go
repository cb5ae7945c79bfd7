// Package apiv1 embeds the OpenAPI 3 description of the timetuner admin API.
package apiv1

import _ "embed"

// Document contains the OpenAPI 3 JSON document. It is embedded at compile time
// so the binary works with scratch-based production images.
//
//go:embed openapi.json
var Document []byte
