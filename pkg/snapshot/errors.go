// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"errors"
	"fmt"
)

// ErrInvalidSnapshot is returned when a snapshot is inconsistent.
var ErrInvalidSnapshot = errors.New("invalid snapshot")

// ReferenceError is returned when a snapshot element refers to an object
// that does not exist.
type ReferenceError struct {
	// Node is the node the reference was found on, empty for edges and
	// sessions of unknown nodes.
	Node string
	// Kind is the kind of the missing object, e.g. "acl".
	Kind string
	Name string
	// From describes the referring element.
	From string
}

func (e *ReferenceError) Error() string {
	if e.Node == "" {
		return fmt.Sprintf("%s refers to unknown %s %q", e.From, e.Kind, e.Name)
	}
	return fmt.Sprintf("%s of node %q refers to unknown %s %q", e.From, e.Node, e.Kind, e.Name)
}

func (e *ReferenceError) Unwrap() error {
	return ErrInvalidSnapshot
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidSnapshot, fmt.Sprintf(format, args...))
}
