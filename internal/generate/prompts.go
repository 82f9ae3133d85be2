/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package generate

import (
	"fmt"
	"strings"

	"detailpage/internal/mutation"
)

var poseDescriptions = map[string]string{
	"standing-front":         "standing straight, facing the camera, arms relaxed",
	"standing-three-quarter": "standing in a three-quarter turn toward the camera",
	"walking":                "walking toward the camera mid-step",
	"hand-on-hip":            "standing with one hand on the hip",
	"leaning-wall":           "leaning casually against a plain wall",
	"crossed-legs":           "standing with legs crossed at the ankles",
	"side-profile":           "in side profile",
	"back-view":              "seen from behind, head slightly turned",
	"sitting-stool":          "sitting on a simple stool",
	"mid-stride":             "in a wide confident stride",
	"front-neutral":          "facing the camera with a neutral expression",
	"three-quarter-smile":    "turned three-quarters with a light smile",
	"hand-on-chin":           "resting the chin on one hand",
	"arms-crossed":           "with arms crossed",
	"looking-away":           "looking away from the camera",
	"over-shoulder":          "looking back over the shoulder",
	"hair-touch":             "touching the hair with one hand",
}

const keepRules = "Keep the same person, outfit, lighting and background. Do not add text or logos. Return only the edited photo."

// Prompt builds the instruction text for req.
func Prompt(req mutation.Request) string {
	p := req.Params
	switch req.Op {
	case mutation.OpAnalyze:
		return "Identify the main wearable product in this photo (for example shoes, a top or trousers). " +
			"Answer in one short line: category, color, material and where it appears in the frame."
	case mutation.OpComposite:
		return fmt.Sprintf("The first image is a product photo shoot. The item currently worn is: %s. "+
			"Replace that item with the product shown in the second image, matching its shape, color and texture exactly. %s",
			p["analysis"], keepRules)
	case mutation.OpRecolor:
		return fmt.Sprintf("Change the color of the %s in this photo to %s. Keep its material and shading. %s",
			p["target"], p["color"], keepRules)
	case mutation.OpPose:
		desc := poseDescriptions[p["pose"]]
		if desc == "" {
			desc = strings.ReplaceAll(p["pose"], "-", " ")
		}
		framing := "full body, head to toe in frame"
		if p["kind"] == string(mutation.UpperBody) {
			framing = "upper body, waist up"
		}
		return fmt.Sprintf("Re-photograph the same model %s, %s. %s", desc, framing, keepRules)
	}
	return string(req.Op)
}
