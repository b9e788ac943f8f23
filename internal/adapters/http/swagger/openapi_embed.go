package swagger

import _ "embed"

// OpenAPI contains the embedded OpenAPI 3 document.
//
//go:embed openapi.yaml
var OpenAPI []byte
