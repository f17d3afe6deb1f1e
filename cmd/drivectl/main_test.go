package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/LeonardHd/maf-onedrive-integration/internal/graph"
	"github.com/LeonardHd/maf-onedrive-integration/internal/logging"
	"github.com/LeonardHd/maf-onedrive-integration/internal/models"
	"github.com/LeonardHd/maf-onedrive-integration/internal/summary"
)

type fakeDrive struct {
	items      []models.Item
	byPath     []string
	downloaded []string
	uploaded   map[string][]byte
	folders    []string
	deleted    []string
	content    []byte
}

func (f *fakeDrive) ListItems(_ context.Context, _, folderID string) ([]models.Item, error) {
	return f.items, nil
}

func (f *fakeDrive) ListItemsByPath(_ context.Context, _, p string) ([]models.Item, error) {
	f.byPath = append(f.byPath, p)
	return f.items, nil
}

func (f *fakeDrive) GetItem(_ context.Context, _, itemID string) (models.Item, error) {
	for _, item := range f.items {
		if item.ID == itemID {
			return item, nil
		}
	}
	return models.Item{}, graph.ErrNotFound
}

func (f *fakeDrive) Download(context.Context, string, string) ([]byte, error) {
	return f.content, nil
}

func (f *fakeDrive) DownloadTo(_ context.Context, _, itemID, dest string) (string, error) {
	f.downloaded = append(f.downloaded, itemID)
	return filepath.Join(dest, itemID), nil
}

func (f *fakeDrive) UploadByPath(_ context.Context, _, remotePath string, data []byte) (models.Item, error) {
	if f.uploaded == nil {
		f.uploaded = map[string][]byte{}
	}
	f.uploaded[remotePath] = data
	return models.Item{ID: "new-id", Name: filepath.Base(remotePath)}, nil
}

func (f *fakeDrive) CreateFolder(_ context.Context, _, parentID, name string) (models.Item, error) {
	f.folders = append(f.folders, parentID+"/"+name)
	return models.Item{ID: "folder-id", Name: name, IsFolder: true}, nil
}

func (f *fakeDrive) Delete(_ context.Context, _, itemID string) error {
	f.deleted = append(f.deleted, itemID)
	return nil
}

type stubSummarizer struct{ result summary.Result }

func (s stubSummarizer) Summarize(context.Context, []byte, string) summary.Result {
	return s.result
}

func sampleItems() []models.Item {
	size := int64(2048)
	mod := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	return []models.Item{
		{ID: "f1", Name: "Reports", IsFolder: true},
		{ID: "i1", Name: "plan.txt", Size: &size, MimeType: "text/plain", ModifiedAt: &mod},
	}
}

// run executes the root command against drive and returns stdout.
func run(t *testing.T, drive *fakeDrive, s summarizer, args ...string) (string, error) {
	t.Helper()
	output, downloadDest, mkdirParent, driveID = "table", ".", "root", ""
	verbose, logLevel = false, ""

	orig := connect
	connect = func(context.Context) (*target, error) {
		return &target{drive: drive, driveID: "d1", summarizer: s}, nil
	}
	t.Cleanup(func() { connect = orig })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRenderItems_Table(t *testing.T) {
	var buf bytes.Buffer
	if err := renderItems(&buf, sampleItems(), "table"); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"2 item(s)", "NAME", "Reports/", "plan.txt", "2.0 KiB", "i1"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestRenderItems_Empty(t *testing.T) {
	var buf bytes.Buffer
	renderItems(&buf, nil, "table")
	if !strings.Contains(buf.String(), "(empty folder)") {
		t.Errorf("got %q", buf.String())
	}
}

func TestRenderItems_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := renderItems(&buf, sampleItems(), "json"); err != nil {
		t.Fatalf("render: %v", err)
	}
	var entries []entry
	if err := json.Unmarshal(buf.Bytes(), &entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 2 || !entries[0].Folder || entries[0].Size != nil {
		t.Fatalf("unexpected entries %+v", entries)
	}
	if entries[1].Modified != "2024-03-01T09:30:00Z" || *entries[1].Size != 2048 {
		t.Errorf("unexpected file entry %+v", entries[1])
	}
}

func TestRenderItems_YAML(t *testing.T) {
	var buf bytes.Buffer
	if err := renderItems(&buf, sampleItems(), "yaml"); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"- id: f1", "  folder: true", "  name: plan.txt", "  size: 2048", "  mime_type: text/plain"} {
		if !strings.Contains(out, want) {
			t.Errorf("yaml missing %q:\n%s", want, out)
		}
	}
}

func TestRenderItems_UnknownFormat(t *testing.T) {
	if err := renderItems(&bytes.Buffer{}, nil, "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestLs_ByPath(t *testing.T) {
	drive := &fakeDrive{items: sampleItems()}
	out, err := run(t, drive, nil, "ls", "/Shared Documents/Q1/", "-o", "json")
	if err != nil {
		t.Fatalf("ls: %v", err)
	}
	if len(drive.byPath) != 1 || drive.byPath[0] != "Shared Documents/Q1" {
		t.Errorf("unexpected paths %v", drive.byPath)
	}
	if !strings.Contains(out, `"name": "plan.txt"`) {
		t.Errorf("unexpected output %s", out)
	}
}

func TestDownload_SkipsFolders(t *testing.T) {
	drive := &fakeDrive{items: sampleItems()}
	dest := filepath.Join(t.TempDir(), "out")

	out, err := run(t, drive, nil, "download", "--dest", dest)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if len(drive.downloaded) != 1 || drive.downloaded[0] != "i1" {
		t.Errorf("unexpected downloads %v", drive.downloaded)
	}
	if !strings.Contains(out, "Downloaded 1 file(s)") {
		t.Errorf("unexpected output %s", out)
	}
	if info, err := os.Stat(dest); err != nil || !info.IsDir() {
		t.Errorf("destination should be created: %v", err)
	}
}

func TestUpload_IntoFolder(t *testing.T) {
	local := filepath.Join(t.TempDir(), "notes.txt")
	os.WriteFile(local, []byte("hello"), 0o644)
	drive := &fakeDrive{}

	out, err := run(t, drive, nil, "upload", local, "Reports/")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if string(drive.uploaded["Reports/notes.txt"]) != "hello" {
		t.Errorf("unexpected uploads %v", drive.uploaded)
	}
	if !strings.Contains(out, "new-id") {
		t.Errorf("unexpected output %s", out)
	}
}

func TestMkdirAndRm(t *testing.T) {
	drive := &fakeDrive{}
	if _, err := run(t, drive, nil, "mkdir", "Archive", "--parent", "f1"); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if _, err := run(t, drive, nil, "rm", "i9"); err != nil {
		t.Fatalf("rm: %v", err)
	}
	if len(drive.folders) != 1 || drive.folders[0] != "f1/Archive" {
		t.Errorf("unexpected folders %v", drive.folders)
	}
	if len(drive.deleted) != 1 || drive.deleted[0] != "i9" {
		t.Errorf("unexpected deletes %v", drive.deleted)
	}
}

func TestSummarize(t *testing.T) {
	drive := &fakeDrive{items: sampleItems(), content: []byte("plan")}

	out, err := run(t, drive, stubSummarizer{summary.Succeeded("- ship it")}, "summarize", "i1")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if !strings.Contains(out, "- ship it") {
		t.Errorf("unexpected output %s", out)
	}

	failed := summary.Failed(summary.OutcomeModelUnavailable, "The model could not generate a summary.")
	_, err = run(t, drive, stubSummarizer{failed}, "summarize", "i1")
	if err == nil || !strings.Contains(err.Error(), "could not generate") {
		t.Errorf("expected pipeline error, got %v", err)
	}

	if _, err := run(t, drive, stubSummarizer{}, "summarize", "f1"); err == nil {
		t.Error("summarizing a folder should fail")
	}
}

func TestLogLevelFlag(t *testing.T) {
	if _, err := run(t, &fakeDrive{}, nil, "--log-level", "debug", "rm", "i1"); err != nil {
		t.Fatalf("rm: %v", err)
	}
	if !logging.L().Core().Enabled(zapcore.DebugLevel) {
		t.Error("--log-level debug should enable debug logs")
	}

	if _, err := run(t, &fakeDrive{}, nil, "--verbose", "--log-level", "error", "rm", "i1"); err != nil {
		t.Fatalf("rm: %v", err)
	}
	if logging.L().Core().Enabled(zapcore.WarnLevel) {
		t.Error("--log-level should override --verbose")
	}
}
