/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

// Package version exposes build metadata. Values are overridden at link time:
//
//	go build -ldflags "-X detailpage/internal/version.Version=1.2.0 -X detailpage/internal/version.Commit=abc123"
package version

import "fmt"

var (
	Version = "0.1.0-dev"
	Commit  = ""
)

// String returns a human-readable version line.
func String() string {
	if Commit == "" {
		return Version
	}
	return fmt.Sprintf("%s (%s)", Version, Commit)
}

// UserAgent is sent on outbound HTTP requests.
func UserAgent() string {
	ua := "detailpage/" + Version
	if Commit != "" {
		ua += "+" + Commit
	}
	return ua
}
