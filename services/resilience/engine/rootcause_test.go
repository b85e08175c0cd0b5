// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import "testing"

func TestDeriveFeatures(t *testing.T) {
	tests := []struct {
		name string
		cls  Classification
		rctx RecoveryContext
		want rootCauseFeatures
	}{
		{
			name: "defaults",
			cls:  Classification{PrimaryCategory: CategoryDataIntegrity, Confidence: 1.0},
			want: rootCauseFeatures{errorContext: 1.0, systemState: 0.5, recentChanges: 0.2, externalFactors: 0.3},
		},
		{
			name: "context hints",
			cls:  Classification{PrimaryCategory: CategoryConnectivity, Confidence: 0.7},
			rctx: RecoveryContext{"degraded_system": true, "recent_deploy": true},
			want: rootCauseFeatures{errorContext: 0.7, systemState: 0.9, recentChanges: 0.9, externalFactors: 0.9},
		},
		{
			name: "security is partly external",
			cls:  Classification{PrimaryCategory: CategorySecurity, Confidence: 1.0},
			want: rootCauseFeatures{errorContext: 1.0, systemState: 0.5, recentChanges: 0.2, externalFactors: 0.6},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := deriveFeatures(tt.cls, tt.rctx); got != tt.want {
				t.Errorf("deriveFeatures() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRootCauseModel_ExternalCategoriesBlameExternalService(t *testing.T) {
	m := newRootCauseModel(DefaultConfig().Scoring)

	got := m.assess(Classification{PrimaryCategory: CategoryAPIThrottling, Confidence: 1.0}, nil)
	if got.PrimaryCause != CauseExternal {
		t.Errorf("PrimaryCause = %s, want %s", got.PrimaryCause, CauseExternal)
	}
	if got.Confidence <= 0 || got.Confidence > 1 {
		t.Errorf("Confidence = %v, want in (0, 1]", got.Confidence)
	}
	if len(got.Alternatives) != 2 {
		t.Errorf("Alternatives = %v, want 2 entries", got.Alternatives)
	}
	for _, alt := range got.Alternatives {
		if alt == got.PrimaryCause {
			t.Error("alternatives must not repeat the primary cause")
		}
	}
}

func TestRootCauseModel_RecentDeployBlamesConfiguration(t *testing.T) {
	m := newRootCauseModel(DefaultConfig().Scoring)

	rctx := RecoveryContext{"recent_deploy": true}
	got := m.assess(Classification{PrimaryCategory: CategoryUnknown, Confidence: 0.1}, rctx)
	if got.PrimaryCause != CauseConfiguration {
		t.Errorf("PrimaryCause = %s, want %s", got.PrimaryCause, CauseConfiguration)
	}
}

func TestRootCauseModel_Deterministic(t *testing.T) {
	m := newRootCauseModel(DefaultConfig().Scoring)
	cls := Classification{PrimaryCategory: CategoryResources, Confidence: 1.0}

	first := m.assess(cls, nil)
	for i := 0; i < 10; i++ {
		again := m.assess(cls, nil)
		if again.PrimaryCause != first.PrimaryCause || again.Confidence != first.Confidence {
			t.Fatalf("assessment varies across identical calls: %+v vs %+v", first, again)
		}
		if len(again.Alternatives) != len(first.Alternatives) {
			t.Fatal("alternatives vary across identical calls")
		}
		for j := range again.Alternatives {
			if again.Alternatives[j] != first.Alternatives[j] {
				t.Fatal("alternative order varies across identical calls")
			}
		}
	}
}

func TestRootCauseModel_NoWeights(t *testing.T) {
	m := newRootCauseModel(ScoringConfig{})

	got := m.assess(Classification{PrimaryCategory: CategoryUnknown, Confidence: 0.1}, nil)
	if got.PrimaryCause != CauseCodeBug {
		t.Errorf("PrimaryCause = %s, want fallback %s", got.PrimaryCause, CauseCodeBug)
	}
}
