// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
)

// Disk stores objects as files in a single local directory. The directory
// is shared by all requests, so object names must already be unique;
// Put refuses to overwrite an existing file.
type Disk struct {
	dir string
}

// NewDisk returns a Disk rooted at dir. The directory is created on the
// first Put, not here.
func NewDisk(dir string) *Disk {
	return &Disk{dir: dir}
}

// Dir returns the directory files are written to.
func (d *Disk) Dir() string {
	return d.dir
}

// Put writes body to <dir>/<name> and returns "uploads/<name>".
func (d *Disk) Put(ctx context.Context, name, contentType string, body io.Reader, size int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name = filepath.Base(name)
	if name == "." || name == string(filepath.Separator) {
		return "", fmt.Errorf("disk put: invalid object name")
	}

	if err := d.ensureDir(); err != nil {
		return "", err
	}

	target := filepath.Join(d.dir, name)
	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("disk put %s: %w", name, err)
	}

	written, err := io.Copy(f, body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(target)
		return "", fmt.Errorf("disk write %s: %w", name, err)
	}
	if size >= 0 && written != size {
		os.Remove(target)
		return "", fmt.Errorf("disk write %s: wrote %d of %d bytes", name, written, size)
	}

	return path.Join(PublicPrefix, name), nil
}

// ensureDir creates the uploads directory if it does not exist yet.
func (d *Disk) ensureDir() error {
	_, err := os.Stat(d.dir)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("disk put: stat dir: %w", err)
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("disk put: create dir: %w", err)
	}
	slog.Info("created uploads directory", "dir", d.dir)
	return nil
}

// Delete removes the file behind ref. Only the base name of ref is used, so
// a reference can never point outside the uploads directory.
func (d *Disk) Delete(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name := path.Base(ref)
	if name == "." || name == "/" {
		return nil
	}
	err := os.Remove(filepath.Join(d.dir, name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("disk delete %s: %w", name, err)
	}
	return nil
}
