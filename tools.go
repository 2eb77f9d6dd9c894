//go:build tools

// Package tools imports development dependencies so they are tracked in go.mod.
// Install with: go install -tags tools ./...
package tools

import (
	// Linting and formatting
	_ "github.com/golangci/golangci-lint/cmd/golangci-lint"
	_ "golang.org/x/tools/cmd/goimports"

	// Testing tools
	_ "gotest.tools/gotestsum"

	// Security scanning
	_ "github.com/securego/gosec/v2/cmd/gosec"

	// Performance profiling
	_ "github.com/google/pprof"
)
