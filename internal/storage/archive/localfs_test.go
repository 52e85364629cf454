package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalFS_ImplementsStorage(t *testing.T) {
	var _ Storage = (*LocalFS)(nil)
}

func TestLocalFS_WriteRead(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewLocalFS(dir)
	if err != nil {
		t.Fatalf("NewLocalFS: %v", err)
	}

	ctx := context.Background()
	data := []byte("ticker,shares,avg_price\n")

	if err := fs.Write(ctx, "runs/2024-05-06/abc/ledger.csv", data); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := fs.Read(ctx, "runs/2024-05-06/abc/ledger.csv")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if string(got) != string(data) {
		t.Errorf("got %q, want %q", got, data)
	}
}

func TestLocalFS_KeysStayInsideRoot(t *testing.T) {
	dir := t.TempDir()
	fs, _ := NewLocalFS(filepath.Join(dir, "archive"))
	ctx := context.Background()

	if err := fs.Write(ctx, "../../escape.txt", []byte("x")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "archive", "escape.txt")); err != nil {
		t.Errorf("expected key to be rooted inside the archive: %v", err)
	}
	if err := fs.Write(ctx, "", []byte("x")); err == nil {
		t.Error("expected error for empty key")
	}
}

func TestLocalFS_List(t *testing.T) {
	dir := t.TempDir()
	fs, _ := NewLocalFS(dir)
	ctx := context.Background()

	fs.Write(ctx, "runs/2024-05-07/b/summary.json", []byte("{}"))
	fs.Write(ctx, "runs/2024-05-06/a/summary.json", []byte("{}"))
	fs.Write(ctx, "other/file.txt", []byte("x"))

	keys, err := fs.List(ctx, "runs")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %v", keys)
	}
	if keys[0] != "runs/2024-05-06/a/summary.json" {
		t.Errorf("expected sorted slash keys, got %v", keys)
	}

	keys, err = fs.List(ctx, "missing")
	if err != nil || len(keys) != 0 {
		t.Errorf("expected empty list for missing prefix, got %v %v", keys, err)
	}
}

func TestLocalFS_Delete(t *testing.T) {
	dir := t.TempDir()
	fs, _ := NewLocalFS(dir)
	ctx := context.Background()

	fs.Write(ctx, "runs/2024-05-06/a/summary.json", []byte("{}"))
	if err := fs.Delete(ctx, "runs/2024-05-06/a/summary.json"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "runs")); !os.IsNotExist(err) {
		t.Error("expected empty run directories to be removed")
	}
	if _, err := os.Stat(dir); err != nil {
		t.Error("archive root must survive delete")
	}
}
