// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDiskPutCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "uploads")
	d := NewDisk(dir)

	ref, err := d.Put(context.Background(), "1700000000000-42.png", "image/png", strings.NewReader("png-bytes"), 9)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if ref != "uploads/1700000000000-42.png" {
		t.Errorf("ref: got %q", ref)
	}

	data, err := os.ReadFile(filepath.Join(dir, "1700000000000-42.png"))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Errorf("content: got %q", data)
	}
}

func TestDiskPutRefusesOverwrite(t *testing.T) {
	d := NewDisk(t.TempDir())
	ctx := context.Background()

	if _, err := d.Put(ctx, "same.png", "image/png", strings.NewReader("a"), 1); err != nil {
		t.Fatalf("first Put: %v", err)
	}
	if _, err := d.Put(ctx, "same.png", "image/png", strings.NewReader("b"), 1); err == nil {
		t.Error("second Put with the same name should fail")
	}
}

func TestDiskPutStripsDirectories(t *testing.T) {
	dir := t.TempDir()
	d := NewDisk(dir)

	ref, err := d.Put(context.Background(), "../../escape.png", "image/png", strings.NewReader("x"), 1)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if ref != "uploads/escape.png" {
		t.Errorf("ref: got %q", ref)
	}
	if _, err := os.Stat(filepath.Join(dir, "escape.png")); err != nil {
		t.Errorf("file should be inside the uploads dir: %v", err)
	}
}

func TestDiskPutShortWrite(t *testing.T) {
	dir := t.TempDir()
	d := NewDisk(dir)

	if _, err := d.Put(context.Background(), "short.png", "image/png", strings.NewReader("abc"), 10); err == nil {
		t.Fatal("expected size mismatch error")
	}
	if _, err := os.Stat(filepath.Join(dir, "short.png")); !os.IsNotExist(err) {
		t.Error("partial file should be removed")
	}
}

func TestDiskDelete(t *testing.T) {
	dir := t.TempDir()
	d := NewDisk(dir)
	ctx := context.Background()

	ref, err := d.Put(ctx, "gone.png", "image/png", strings.NewReader("x"), 1)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := d.Delete(ctx, ref); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "gone.png")); !os.IsNotExist(err) {
		t.Error("file should be deleted")
	}

	// Missing files are not an error.
	if err := d.Delete(ctx, ref); err != nil {
		t.Errorf("second Delete: %v", err)
	}
}

func TestS3ExtractKey(t *testing.T) {
	c, err := NewS3(S3Config{
		Endpoint:  "https://s3.example.com/",
		Region:    "eu-central",
		AccessKey: "ak",
		SecretKey: "sk",
		Bucket:    "inkpost",
	})
	if err != nil {
		t.Fatalf("NewS3: %v", err)
	}

	url := c.FileURL("uploads/1-2.png")
	if url != "https://s3.example.com/inkpost/uploads/1-2.png" {
		t.Errorf("FileURL: got %q", url)
	}
	key, ok := c.ExtractKey(url)
	if !ok || key != "uploads/1-2.png" {
		t.Errorf("ExtractKey: got %q, %v", key, ok)
	}
	if _, ok := c.ExtractKey("https://elsewhere.example.com/x.png"); ok {
		t.Error("foreign URL should not match")
	}
	if _, ok := c.ExtractKey("default-post.jpg"); ok {
		t.Error("default image sentinel should not match")
	}
}

func TestS3PublicURL(t *testing.T) {
	c, err := NewS3(S3Config{
		Endpoint: "https://s3.example.com", AccessKey: "ak", SecretKey: "sk",
		Bucket: "inkpost", PublicURL: "https://cdn.example.com/",
	})
	if err != nil {
		t.Fatalf("NewS3: %v", err)
	}
	if got := c.FileURL("uploads/a.png"); got != "https://cdn.example.com/uploads/a.png" {
		t.Errorf("FileURL: got %q", got)
	}
}

func TestNewS3RequiresCredentials(t *testing.T) {
	if _, err := NewS3(S3Config{Endpoint: "https://s3.example.com", Bucket: "b"}); err == nil {
		t.Error("expected error without credentials")
	}
}
