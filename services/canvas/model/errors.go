// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package model defines the node-graph snapshot types read by the canvas
// core.
//
// # Ownership Model
//
// Nodes, edges, groups, and subflows are owned by an external store. The
// core receives them as per-call snapshots and MUST NOT mutate them.
// Helpers that return pointers (IndexNodes, Node.Port) alias the snapshot.
//
// # Validation
//
// Struct tags drive go-playground/validator. Validation is opt-in: query
// code never validates and never fails on malformed input.
package model

import "errors"

// Sentinel errors for model operations.
var (
	// ErrInvalidEntity is returned when an entity fails struct validation.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrUnknownNode is returned when an operation names a node that is not
	// present in the snapshot.
	ErrUnknownNode = errors.New("node not found")

	// ErrTooFewNodes is returned when a subflow would group fewer than two
	// distinct nodes.
	ErrTooFewNodes = errors.New("subflow requires at least two nodes")

	// ErrSubflowNotFound is returned when a subflow ID does not exist.
	ErrSubflowNotFound = errors.New("subflow not found")
)
