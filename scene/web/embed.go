// ABOUTME: Embedded filesystem for the scene index templates.
// ABOUTME: Keeps the server binary free of runtime template paths.
package web

import "embed"

//go:embed templates/*
var templateFS embed.FS
