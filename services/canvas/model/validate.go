// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package model

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// modelValidate is the validator instance for model types.
// Initialized in init() with the datatype rule.
var modelValidate *validator.Validate

func init() {
	modelValidate = validator.New()
	_ = modelValidate.RegisterValidation("datatype", validateDataType)
}

// validateDataType accepts only the DataType enum values.
func validateDataType(fl validator.FieldLevel) bool {
	return DataType(fl.Field().String()).Known()
}

// Known reports whether d is one of the defined data types.
func (d DataType) Known() bool {
	switch d {
	case DataTypeAny, DataTypeString, DataTypeNumber, DataTypeBoolean,
		DataTypeObject, DataTypeArray, DataTypeImage, DataTypeAudio,
		DataTypeVideo, DataTypeFile:
		return true
	}
	return false
}

// Validator returns the shared validator so other packages can register
// their own structs against the same rules.
func Validator() *validator.Validate {
	return modelValidate
}

// Validate checks v against its struct tags.
//
// # Outputs
//
//   - error: Nil when valid, otherwise wraps ErrInvalidEntity with the
//     validator's field report.
//
// # Examples
//
//	if err := model.Validate(node); err != nil {
//	    return fmt.Errorf("load fixture: %w", err)
//	}
func Validate(v any) error {
	if err := modelValidate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEntity, err)
	}
	return nil
}

// ValidateGraph validates every entity of a snapshot and checks that edges
// reference existing nodes and ports. The first problem found is returned.
func ValidateGraph(nodes []Node, edges []Edge, groups []Group, subflows []Subflow) error {
	for i := range nodes {
		if err := Validate(&nodes[i]); err != nil {
			return fmt.Errorf("node %q: %w", nodes[i].ID, err)
		}
	}
	idx := IndexNodes(nodes)
	if len(idx) != len(nodes) {
		return fmt.Errorf("%w: duplicate node id", ErrInvalidEntity)
	}
	for i := range edges {
		e := &edges[i]
		if err := Validate(e); err != nil {
			return fmt.Errorf("edge %q: %w", e.ID, err)
		}
		src, ok := idx[e.Source]
		if !ok {
			return fmt.Errorf("edge %q source %q: %w", e.ID, e.Source, ErrUnknownNode)
		}
		if i, _ := src.Port(e.SourcePort, true); i < 0 {
			return fmt.Errorf("%w: edge %q source port %q", ErrInvalidEntity, e.ID, e.SourcePort)
		}
		dst, ok := idx[e.Target]
		if !ok {
			return fmt.Errorf("edge %q target %q: %w", e.ID, e.Target, ErrUnknownNode)
		}
		if i, _ := dst.Port(e.TargetPort, false); i < 0 {
			return fmt.Errorf("%w: edge %q target port %q", ErrInvalidEntity, e.ID, e.TargetPort)
		}
	}
	for i := range groups {
		if err := Validate(&groups[i]); err != nil {
			return fmt.Errorf("group %q: %w", groups[i].ID, err)
		}
	}
	for i := range subflows {
		if err := Validate(&subflows[i]); err != nil {
			return fmt.Errorf("subflow %q: %w", subflows[i].ID, err)
		}
	}
	return nil
}
