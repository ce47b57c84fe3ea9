// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/telekom/flowtrace/internal/logger"
	"github.com/telekom/flowtrace/pkg/snapshot"
)

var _ Loader = (*FileLoader)(nil)

// zstdSuffix marks a zstd compressed snapshot file.
const zstdSuffix = ".zst"

type FileLoader struct {
	config LoaderConfig
	fsys   fs.FS
}

func NewFileLoader(cfg *Config) *FileLoader {
	return &FileLoader{
		config: cfg.Snapshot,
		fsys:   os.DirFS(filepath.Dir(cfg.Snapshot.File.Path)),
	}
}

// Load reads the snapshot from the local file. Files ending in .zst are
// decompressed while reading.
func (f *FileLoader) Load(ctx context.Context) (s *snapshot.Snapshot, err error) {
	name := filepath.Base(f.config.File.Path)
	log := logger.FromContext(ctx).With("path", f.config.File.Path)

	file, err := f.fsys.Open(name)
	if err != nil {
		log.ErrorContext(ctx, "Failed to open snapshot file", "error", err)
		return nil, fmt.Errorf("failed to open snapshot file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			log.ErrorContext(ctx, "Failed to close snapshot file", "error", cerr)
			err = errors.Join(err, cerr)
		}
	}()

	var r io.Reader = file
	if strings.HasSuffix(name, zstdSuffix) {
		dec, err := zstd.NewReader(file)
		if err != nil {
			log.ErrorContext(ctx, "Failed to read compressed snapshot", "error", err)
			return nil, fmt.Errorf("failed to read compressed snapshot: %w", err)
		}
		defer dec.Close()
		r = dec
	}

	s, err = snapshot.Parse(r)
	if err != nil {
		log.ErrorContext(ctx, "Failed to parse snapshot file", "error", err)
		return nil, err
	}

	log.InfoContext(ctx, "Successfully loaded snapshot", "nodes", len(s.Nodes), "edges", len(s.Edges))
	return s, nil
}
