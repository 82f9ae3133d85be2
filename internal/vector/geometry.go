/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

// Basic 2D geometry and transforms for the document canvas.
// All values are CSS-like pixels in the page coordinate space (origin top-left, y down).

import (
	"math"

	"golang.org/x/image/math/f64"
)

// Pt is a 2D point.
type Pt struct{ X, Y float64 }

// Sub returns p-q.
func (p Pt) Sub(q Pt) Pt { return Pt{p.X - q.X, p.Y - q.Y} }

// Add returns p+q.
func (p Pt) Add(q Pt) Pt { return Pt{p.X + q.X, p.Y + q.Y} }

// Rect is an axis-aligned rectangle defined by min corner and size.
type Rect struct {
	X, Y float64
	W, H float64
}

func R(x, y, w, h float64) Rect { return Rect{X: x, Y: y, W: w, H: h} }

func (r Rect) Min() Pt { return Pt{r.X, r.Y} }
func (r Rect) Max() Pt { return Pt{r.X + r.W, r.Y + r.H} }

// Center returns the midpoint of r.
func (r Rect) Center() Pt { return Pt{r.X + r.W/2, r.Y + r.H/2} }

func (r Rect) Contains(p Pt) bool {
	return p.X >= r.X && p.Y >= r.Y && p.X <= r.X+r.W && p.Y <= r.Y+r.H
}

// Inset returns a rectangle inset by dx,dy on all sides (negative grows).
func (r Rect) Inset(dx, dy float64) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, W: r.W - 2*dx, H: r.H - 2*dy}
}

// Union returns the minimal rect containing both.
func (r Rect) Union(o Rect) Rect {
	minX := math.Min(r.X, o.X)
	minY := math.Min(r.Y, o.Y)
	maxX := math.Max(r.X+r.W, o.X+o.W)
	maxY := math.Max(r.Y+r.H, o.Y+o.H)
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// Affine2D represents a 2D affine transform as matrix:
// | a c e |
// | b d f |
// | 0 0 1 |
// stored as [a b c d e f].
type Affine2D struct{ A, B, C, D, E, F float64 }

var Identity = Affine2D{A: 1, D: 1}

func (m Affine2D) Mul(n Affine2D) Affine2D {
	return Affine2D{
		A: m.A*n.A + m.C*n.B,
		B: m.B*n.A + m.D*n.B,
		C: m.A*n.C + m.C*n.D,
		D: m.B*n.C + m.D*n.D,
		E: m.A*n.E + m.C*n.F + m.E,
		F: m.B*n.E + m.D*n.F + m.F,
	}
}

func (m Affine2D) Apply(p Pt) Pt {
	return Pt{
		X: m.A*p.X + m.C*p.Y + m.E,
		Y: m.B*p.X + m.D*p.Y + m.F,
	}
}

// Invert computes the inverse of m. A singular matrix yields Identity.
func (m Affine2D) Invert() Affine2D {
	det := m.A*m.D - m.B*m.C
	if det == 0 {
		return Identity
	}
	invDet := 1 / det
	return Affine2D{
		A: m.D * invDet,
		B: -m.B * invDet,
		C: -m.C * invDet,
		D: m.A * invDet,
		E: (m.C*m.F - m.D*m.E) * invDet,
		F: (m.B*m.E - m.A*m.F) * invDet,
	}
}

// Aff3 converts m to the row-major matrix used by golang.org/x/image/draw.
func (m Affine2D) Aff3() f64.Aff3 {
	return f64.Aff3{m.A, m.C, m.E, m.B, m.D, m.F}
}

func Translate(tx, ty float64) Affine2D { return Affine2D{A: 1, D: 1, E: tx, F: ty} }
func Scale(sx, sy float64) Affine2D     { return Affine2D{A: sx, D: sy} }

// ScaleAbout scales by s around the anchor point.
func ScaleAbout(anchor Pt, s float64) Affine2D {
	return Translate(anchor.X, anchor.Y).Mul(Scale(s, s)).Mul(Translate(-anchor.X, -anchor.Y))
}

// FloatRound rounds v to n decimal places deterministically.
func FloatRound(v float64, places int) float64 {
	if places < 0 {
		return v
	}
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
