// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldService = "service"
	FieldVersion = "version"
	FieldRunID   = "run_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldStatus    = "status"

	// Declaration fields
	FieldSource       = "source"
	FieldPort         = "port"
	FieldDeclarations = "declarations"
	FieldConflicts    = "conflicts"

	// Path / network fields
	FieldPath   = "path"
	FieldRoot   = "root"
	FieldListen = "listen"
)
