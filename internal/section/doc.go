/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package section holds the ordered list of sections of a detail page together with
// their per-section layout state (explicit height and image pan/zoom).
// Order, content, height and transform live in four maps that are always mutated
// together, so removing a section never leaves a dangling entry behind.
// The store knows nothing about permissions or gestures.
package section
