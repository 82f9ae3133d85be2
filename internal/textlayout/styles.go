/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"image/color"
	"strconv"
	"strings"

	"detailpage/internal/domain"
)

// Style presets for text overlays. Sizes are CSS pixels.
var builtinStyles = map[string]domain.TextStyle{
	"Headline": {FontSize: 48, FontFamily: "Pretendard", Color: "#111111", FontWeight: 800, Align: "center"},
	"Subhead":  {FontSize: 28, FontFamily: "Pretendard", Color: "#333333", FontWeight: 600, Align: "center"},
	"Body":     {FontSize: 18, FontFamily: "Pretendard", Color: "#444444", FontWeight: 400, Align: "left"},
	"Badge":    {FontSize: 16, FontFamily: "Pretendard", Color: "#ffffff", FontWeight: 700, Align: "center"},
	"Price":    {FontSize: 36, FontFamily: "Pretendard", Color: "#d0021b", FontWeight: 800, Align: "right"},
}

// DefaultStyle is used for overlays created without a preset.
const DefaultStyle = "Body"

// GetStyle returns a builtin style preset by name. The second return value is false if
// the style is not found.
func GetStyle(name string) (domain.TextStyle, bool) { s, ok := builtinStyles[name]; return s, ok }

// ListStyles lists the names of the builtin styles in stable order.
func ListStyles() []string {
	return []string{"Headline", "Subhead", "Body", "Badge", "Price"}
}

// ParseColor reads a CSS hex color (#rgb or #rrggbb). Anything else yields
// the near-black default text color and false.
func ParseColor(s string) (color.RGBA, bool) {
	def := color.RGBA{R: 26, G: 26, B: 26, A: 255}
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return def, false
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return def, false
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, true
}
