package uploader_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"cogstream/internal/config"
	"cogstream/internal/logging"
	"cogstream/internal/services"
	"cogstream/internal/services/uploader"
)

type stubExecutor struct {
	err  error
	args [][]string
}

func (s *stubExecutor) Run(ctx context.Context, binary string, args []string, onOutput func(string)) error {
	s.args = append(s.args, append([]string(nil), args...))
	if s.err != nil {
		onOutput("upload failed: AccessDenied")
	}
	return s.err
}

func TestCommandPublishExpandsPlaceholders(t *testing.T) {
	exec := &stubExecutor{}
	up, err := uploader.NewCommand("aws", []string{"s3", "sync", "{src}", "{dest}"}, 0, logging.NewNop(), uploader.WithExecutor(exec))
	if err != nil {
		t.Fatal(err)
	}
	if err := up.Publish(context.Background(), "/stage/u", "s3://bucket/x_1/y_2"); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	got := exec.args[0]
	if got[2] != "/stage/u" || got[3] != "s3://bucket/x_1/y_2" {
		t.Fatalf("args = %v", got)
	}
}

func TestCommandPublishFailure(t *testing.T) {
	up, _ := uploader.NewCommand("aws", nil, 0, logging.NewNop(), uploader.WithExecutor(&stubExecutor{err: errors.New("exit status 1")}))
	err := up.Publish(context.Background(), "/stage/u", "s3://bucket")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("err = %v, want ErrExternalTool", err)
	}
}

func TestLocalPublishCopiesTree(t *testing.T) {
	src := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "band.tif"), []byte("pixels"), 0o644); err != nil {
		t.Fatal(err)
	}
	dest := filepath.Join(t.TempDir(), "x_1", "y_2")
	if err := (uploader.Local{}).Publish(context.Background(), src, "file://"+dest); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dest, "band.tif"))
	if err != nil || string(got) != "pixels" {
		t.Fatalf("published file = %q, %v", got, err)
	}
}

func TestNewSelectsImplementation(t *testing.T) {
	up, err := uploader.New(config.Uploader{Bucket: "/mnt/archive"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := up.(uploader.Local); !ok {
		t.Fatalf("bare path bucket -> %T, want Local", up)
	}
	up, err = uploader.New(config.Uploader{Bucket: "s3://dea-public-data", Command: "aws"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := up.(*uploader.Command); !ok {
		t.Fatalf("s3 bucket -> %T, want *Command", up)
	}
	if _, err := uploader.New(config.Uploader{Bucket: "s3://b"}, nil); err == nil {
		t.Fatal("expected error without command for remote bucket")
	}
}

func TestJoin(t *testing.T) {
	tests := []struct {
		root string
		segs []string
		want string
	}{
		{"s3://bucket", []string{"fc/v2.2.0/ls5", "x_1/y_2/2008/03/03"}, "s3://bucket/fc/v2.2.0/ls5/x_1/y_2/2008/03/03"},
		{"s3://bucket/", []string{"", "/a/"}, "s3://bucket/a"},
		{"/mnt/archive", []string{"p", ""}, "/mnt/archive/p"},
		{"file:///mnt/a", []string{"b"}, "file:///mnt/a/b"},
	}
	for _, tc := range tests {
		if got := uploader.Join(tc.root, tc.segs...); got != tc.want {
			t.Errorf("Join(%q, %v) = %q, want %q", tc.root, tc.segs, got, tc.want)
		}
	}
}
