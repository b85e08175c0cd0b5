// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"strings"
	"testing"
)

func TestSeverity_KnownLevelsKeepText(t *testing.T) {
	for _, level := range []string{"critical", "high", "medium", "low"} {
		if got := Severity(level); !strings.Contains(got, level) {
			t.Errorf("Severity(%q) = %q, lost the level text", level, got)
		}
	}
}

func TestSeverity_UnknownLevelPassesThrough(t *testing.T) {
	if got := Severity("cosmic"); got != "cosmic" {
		t.Errorf("Severity(cosmic) = %q, want unstyled pass-through", got)
	}
}

func TestStatusRenderers(t *testing.T) {
	if got := Success("done"); !strings.Contains(got, "done") {
		t.Errorf("Success = %q", got)
	}
	if got := Fail("broken"); !strings.Contains(got, "broken") {
		t.Errorf("Fail = %q", got)
	}
	if got := Warn("careful"); !strings.Contains(got, "careful") {
		t.Errorf("Warn = %q", got)
	}
	if got := Header("NAME"); !strings.Contains(got, "NAME") {
		t.Errorf("Header = %q", got)
	}
}
