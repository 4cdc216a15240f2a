package main

import "embed"

// WebFS bundles the page templates and static assets into the binary.
//
//go:embed templates assets
var WebFS embed.FS
