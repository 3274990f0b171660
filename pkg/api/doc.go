// Package api defines the storefront HTTP contract: route paths and the JSON
// payloads exchanged with the API. The fake server in internal/api and the
// storefront SDK both speak it.
package api
