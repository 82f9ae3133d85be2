/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package session

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"detailpage/internal/domain"
	"detailpage/internal/export"
)

// BackupsDirName is created next to a saved document.
const BackupsDirName = ".backups"

// SaveDocument writes doc to path transactionally, keeping a timestamped
// backup of the previous file.
func SaveDocument(path string, doc domain.Document) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("document path is required")
	}
	var buf bytes.Buffer
	if err := export.WriteJSON(&buf, doc); err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	if _, statErr := os.Stat(path); statErr == nil {
		bdir := filepath.Join(dir, BackupsDirName)
		stamp := time.Now().Format("20060102-150405.000")
		bpath := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(path), stamp))
		if cerr := copyFile(path, bpath); cerr != nil {
			return fmt.Errorf("backup current document: %w", cerr)
		}
	}
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(path), os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, buf.Bytes()); werr != nil {
		return fmt.Errorf("write temp document: %w", werr)
	}
	// On Windows, replace by removing destination first if needed
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
	if rerr := os.Rename(temp, path); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace document: %w", rerr)
	}
	return nil
}

// OpenDocument reads the document at path. When it is missing or invalid the
// latest backup is used instead; recovered reports that.
func OpenDocument(path string) (doc domain.Document, recovered bool, err error) {
	doc, err = export.ReadJSONFile(path)
	if err == nil {
		return doc, false, nil
	}
	b, berr := openFromLatestBackup(path)
	if berr != nil {
		return domain.Document{}, false, fmt.Errorf("open document: %w; backup attempt: %v", err, berr)
	}
	return b, true, nil
}

func openFromLatestBackup(path string) (domain.Document, error) {
	bdir := filepath.Join(filepath.Dir(path), BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return domain.Document{}, fmt.Errorf("read backups dir: %w", err)
	}
	prefix := filepath.Base(path) + "."
	var candidates []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".bak") {
			candidates = append(candidates, filepath.Join(bdir, name))
		}
	}
	if len(candidates) == 0 {
		return domain.Document{}, errors.New("no backups found")
	}
	sort.Strings(candidates) // timestamp in name yields lexicographic order
	for i := len(candidates) - 1; i >= 0; i-- {
		if doc, err := export.ReadJSONFile(candidates[i]); err == nil {
			return doc, nil
		}
	}
	return domain.Document{}, errors.New("no readable backup")
}

// writeFileSync writes data to a file, ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}
