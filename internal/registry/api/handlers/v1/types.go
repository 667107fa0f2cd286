// Package v1 contains the huma handlers for the registry HTTP API.
package v1

// Response is a generic wrapper for Huma responses.
type Response[T any] struct {
	Body T
}

// Metadata carries pagination details alongside list results.
type Metadata struct {
	NextCursor string `json:"nextCursor,omitempty" doc:"Cursor to fetch the next page"`
	Count      int    `json:"count" doc:"Number of items in this page"`
}
