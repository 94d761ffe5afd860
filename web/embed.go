// Package web holds the portfolio page template and its static assets.
package web

import "embed"

//go:embed templates static
var FS embed.FS
