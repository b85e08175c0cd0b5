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

import "errors"

// Sentinel errors for the resilience engine.
var (
	// ErrCircuitOpen indicates the circuit breaker rejected the request.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrUnknownStrategy indicates a strategy ID with no registration.
	ErrUnknownStrategy = errors.New("unknown recovery strategy")

	// ErrInvalidWindow indicates an unparseable analytics window.
	ErrInvalidWindow = errors.New("invalid analytics window")

	// ErrInvalidConfig indicates the engine configuration failed validation.
	ErrInvalidConfig = errors.New("invalid engine configuration")

	// ErrSessionFinalized indicates an attempt to mutate a finalized session.
	ErrSessionFinalized = errors.New("recovery session already finalized")
)
