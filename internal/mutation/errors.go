/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package mutation

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrPrecondition marks requests refused before any external call.
	ErrPrecondition = errors.New("precondition failed")
	// ErrBusy is returned when the section already has a mutation in flight.
	ErrBusy = errors.New("section is processing")
	// ErrNoSelection is returned by batch applies with nothing to apply to.
	ErrNoSelection = errors.New("no sections selected")
	// ErrNoResult is returned when the capability answered without a usable image.
	ErrNoResult = errors.New("generator returned no result")
)

// PreconditionError carries the instruction shown to the user.
type PreconditionError struct {
	Instruction string
}

func (e *PreconditionError) Error() string { return "precondition: " + e.Instruction }
func (e *PreconditionError) Unwrap() error { return ErrPrecondition }

func precondition(format string, args ...any) error {
	return &PreconditionError{Instruction: fmt.Sprintf(format, args...)}
}

// ExternalError wraps a failure of the generative capability for one section.
type ExternalError struct {
	Op        Op
	SectionID string
	// Reason is the human readable failure reason reported by the capability, if any.
	Reason string
	Err    error
}

func (e *ExternalError) Error() string {
	msg := fmt.Sprintf("%s on %s failed", e.Op, e.SectionID)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExternalError) Unwrap() error { return e.Err }

// Reasoner is implemented by capability errors that carry a user-facing reason.
type Reasoner interface {
	Reason() string
}

func external(op Op, sectionID string, err error) *ExternalError {
	ee := &ExternalError{Op: op, SectionID: sectionID, Err: err}
	var r Reasoner
	if errors.As(err, &r) {
		ee.Reason = r.Reason()
	}
	return ee
}

const genericFailure = "Generation failed. Please try again."

// UserMessage turns an orchestrator error into the text shown to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var pe *PreconditionError
	var ee *ExternalError
	switch {
	case errors.As(err, &pe):
		return pe.Instruction
	case errors.Is(err, ErrBusy):
		return "This section is still processing. Wait for it to finish."
	case errors.Is(err, ErrNoSelection):
		return "Select at least one section first."
	case errors.Is(err, context.Canceled):
		return "Cancelled."
	case errors.As(err, &ee):
		if ee.Reason != "" {
			return ee.Reason
		}
		if errors.Is(ee, ErrNoResult) {
			return "The generator did not return an image. Please try again."
		}
		return genericFailure
	}
	return genericFailure
}
