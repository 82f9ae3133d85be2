/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export writes a detail page document to files: the JSON document
// other tools consume and a printable PDF.
package export

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	"detailpage/internal/domain"
)

//go:embed document.schema.json
var schemaJSON []byte

// Schema returns the JSON schema documents are validated against.
func Schema() []byte { return append([]byte(nil), schemaJSON...) }

// ErrInvalid marks a document that does not conform to the schema or
// references sections it does not contain.
var ErrInvalid = errors.New("invalid document")

// ValidationError lists every problem found in a document.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid document: %s", strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalid }

// Validate checks raw document bytes against the schema and then the
// cross references the schema cannot express.
func Validate(data []byte) error {
	res, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schemaJSON), gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("schema validate: %w", err)
	}
	if !res.Valid() {
		ve := &ValidationError{}
		for _, e := range res.Errors() {
			ve.Problems = append(ve.Problems, e.String())
		}
		return ve
	}
	var doc domain.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return checkRefs(doc)
}

func checkRefs(doc domain.Document) error {
	var problems []string
	seen := make(map[string]struct{}, len(doc.Sections))
	for _, s := range doc.Sections {
		if _, dup := seen[s.ID]; dup {
			problems = append(problems, fmt.Sprintf("duplicate section id %q", s.ID))
		}
		seen[s.ID] = struct{}{}
		if s.Content.Kind == domain.KindHero && s.Content.Hero == nil {
			problems = append(problems, fmt.Sprintf("section %q: hero content without hero record", s.ID))
		}
	}
	for _, t := range doc.Texts {
		if _, ok := seen[t.SectionID]; !ok {
			problems = append(problems, fmt.Sprintf("text %q: unknown section %q", t.ID, t.SectionID))
		}
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// WriteJSON encodes doc as indented JSON. The document is validated first so
// nothing unreadable is ever written.
func WriteJSON(w io.Writer, doc domain.Document) error {
	if doc.Sections == nil {
		doc.Sections = []domain.Section{}
	}
	if doc.Texts == nil {
		doc.Texts = []domain.TextOverlay{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := Validate(data); err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// ReadJSON decodes and validates a document.
func ReadJSON(r io.Reader) (domain.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return domain.Document{}, fmt.Errorf("read document: %w", err)
	}
	if err := Validate(data); err != nil {
		return domain.Document{}, err
	}
	var doc domain.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.Document{}, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

// WriteJSONFile writes doc to path atomically via a temp file and rename.
func WriteJSONFile(path string, doc domain.Document) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".doc-*.json")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := WriteJSON(tmp, doc); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// ReadJSONFile reads and validates the document at path.
func ReadJSONFile(path string) (domain.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Document{}, err
	}
	defer f.Close()
	return ReadJSON(f)
}
