// ABOUTME: Embeds the export page template into the binary using go:embed

package main

import "embed"

//go:embed templates/*.html
var templateFS embed.FS
