// Package dashboard embeds the status page served at "/" by the status
// server. It renders the latest poll and recent history from /api/status
// and refreshes from /api/sse.
package dashboard

import "embed"

// Assets holds assets/index.html.
//
//go:embed assets/*
var Assets embed.FS
