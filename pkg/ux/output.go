// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ux provides terminal output styling for the resilience CLI.
package ux

import (
	"github.com/charmbracelet/lipgloss"
)

// ===== COLOR PALETTE =====

var (
	ColorCritical = lipgloss.Color("#FF5F56") // Red - critical severity, failures
	ColorHigh     = lipgloss.Color("#FFA657") // Orange - high severity
	ColorMedium   = lipgloss.Color("#F2CC60") // Yellow - medium severity, warnings
	ColorLow      = lipgloss.Color("#2CD7C7") // Teal - low severity, success
	ColorMuted    = lipgloss.Color("#8B949E") // Gray - secondary text
)

// ===== STYLES =====

var (
	successStyle = lipgloss.NewStyle().Foreground(ColorLow).Bold(true)
	failStyle    = lipgloss.NewStyle().Foreground(ColorCritical).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(ColorMedium)
	headerStyle  = lipgloss.NewStyle().Foreground(ColorMuted).Bold(true)

	severityStyles = map[string]lipgloss.Style{
		"critical": lipgloss.NewStyle().Foreground(ColorCritical).Bold(true),
		"high":     lipgloss.NewStyle().Foreground(ColorHigh),
		"medium":   lipgloss.NewStyle().Foreground(ColorMedium),
		"low":      lipgloss.NewStyle().Foreground(ColorLow),
	}
)

// Severity renders a severity level in its signal color. Unknown levels
// pass through unstyled.
func Severity(level string) string {
	style, ok := severityStyles[level]
	if !ok {
		return level
	}
	return style.Render(level)
}

// Success renders a success message.
func Success(msg string) string {
	return successStyle.Render("✓ " + msg)
}

// Fail renders a failure message.
func Fail(msg string) string {
	return failStyle.Render("✗ " + msg)
}

// Warn renders a warning message.
func Warn(msg string) string {
	return warnStyle.Render("! " + msg)
}

// Header renders a table or section header.
func Header(text string) string {
	return headerStyle.Render(text)
}
