// Package ui embeds the built dashboard assets served by the HTTP server.
package ui

import "embed"

// Assets holds the dashboard single-page app.
//
//go:embed dist
var Assets embed.FS
