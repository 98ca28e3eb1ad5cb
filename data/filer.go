// Copyright 2025
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package data

import (
	"os"
	"path"
	"path/filepath"
	"strings"
)

type Filer interface {
	CreateFile(name string, data []byte) (string, error)
}

// FSFiler writes files under BasePath. Writes are atomic: content
// lands in a temp file in the destination directory and is renamed
// into place, so readers never observe a partial artifact.
type FSFiler struct {
	BasePath string
}

func (fs *FSFiler) CreateFile(name string, data []byte) (string, error) {
	filePath := path.Join(fs.BasePath, name)
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return filePath, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(filePath), "."+filepath.Base(filePath)+".*")
	if err != nil {
		return filePath, err
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return filePath, err
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return filePath, err
	}

	if err := os.Rename(tmp.Name(), filePath); err != nil {
		os.Remove(tmp.Name())
		return filePath, err
	}

	return filePath, nil
}

func NewFilerFromString(spec string) Filer {
	switch {
	case strings.HasPrefix(spec, "file://"):
		return &FSFiler{
			BasePath: strings.TrimPrefix(spec, "file://"),
		}
	}
	return nil
}
