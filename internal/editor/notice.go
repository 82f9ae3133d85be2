/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"context"
	"errors"

	"detailpage/internal/mutation"
)

// Level grades a notice.
type Level int

const (
	LevelInfo Level = iota
	LevelProgress
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelProgress:
		return "progress"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notice is a user-visible message.
type Notice struct {
	Level     Level
	SectionID string
	Message   string
	// Progress is set on LevelProgress notices.
	Progress mutation.Progress
	// Tally is set when the notice reports a batch.
	Tally *mutation.Tally
}

// Notifier receives notices. Implementations must not block; Notify may be
// called from background goroutines.
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

func (e *Editor) info(sectionID, msg string) {
	e.notify.Notify(Notice{Level: LevelInfo, SectionID: sectionID, Message: msg})
}

// fail reports err with the message a user should see.
func (e *Editor) fail(sectionID string, err error) {
	lvl := LevelError
	switch {
	case errors.Is(err, context.Canceled):
		lvl = LevelInfo
	case errors.Is(err, mutation.ErrPrecondition), errors.Is(err, mutation.ErrBusy), errors.Is(err, mutation.ErrNoSelection):
		lvl = LevelWarn
	}
	e.notify.Notify(Notice{Level: lvl, SectionID: sectionID, Message: mutation.UserMessage(err)})
}
