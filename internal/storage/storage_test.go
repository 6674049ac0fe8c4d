package storage

import (
	"context"
	"errors"
	"io"
	"sort"
	"testing"

	"github.com/andresuchdata/stockplanner/internal/config"
	"github.com/pkg/sftp"
	"github.com/rs/zerolog"
)

func TestExportKey(t *testing.T) {
	tests := []struct {
		prefix, run, file, want string
	}{
		{"exports", "r1", "plan.xlsx", "exports/r1/plan.xlsx"},
		{"/exports/", "r1", "../../etc/passwd", "exports/r1/passwd"},
		{"", "r1", "report.pdf", "r1/report.pdf"},
	}
	for _, tt := range tests {
		if got := ExportKey(tt.prefix, tt.run, tt.file); got != tt.want {
			t.Errorf("ExportKey(%q, %q, %q) = %q, want %q", tt.prefix, tt.run, tt.file, got, tt.want)
		}
	}
}

func TestParseS3URL(t *testing.T) {
	bucket, key, ok := ParseS3URL("s3://planning/in/stock.xlsx")
	if !ok || bucket != "planning" || key != "in/stock.xlsx" {
		t.Errorf("got %q %q %v", bucket, key, ok)
	}
	for _, bad := range []string{"stock.xlsx", "s3://bucket", "s3:///key", "https://x/y"} {
		if _, _, ok := ParseS3URL(bad); ok {
			t.Errorf("%q should not parse", bad)
		}
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		in     string
		ssl    bool
		want   string
		secure bool
	}{
		{"https://s3.example.com/", false, "s3.example.com", true},
		{"http://minio:9000", true, "minio:9000", false},
		{"minio:9000", true, "minio:9000", true},
	}
	for _, tt := range tests {
		got, secure := normalizeEndpoint(tt.in, tt.ssl)
		if got != tt.want || secure != tt.secure {
			t.Errorf("normalizeEndpoint(%q) = %q, %v", tt.in, got, secure)
		}
	}
}

func TestNewFromConfig(t *testing.T) {
	ctx := context.Background()
	s, err := NewFromConfig(ctx, config.StorageConfig{}, zerolog.Nop())
	if err != nil || s != nil {
		t.Errorf("no driver = %v, %v", s, err)
	}
	if _, err := NewFromConfig(ctx, config.StorageConfig{Driver: "ftp"}, zerolog.Nop()); err == nil {
		t.Errorf("unknown driver should fail")
	}
	if _, err := NewFromConfig(ctx, config.StorageConfig{Driver: "s3"}, zerolog.Nop()); err == nil {
		t.Errorf("s3 without endpoint should fail")
	}
	if _, err := NewFromConfig(ctx, config.StorageConfig{Driver: "sftp", SFTP: config.SFTPConfig{Host: "h"}}, zerolog.Nop()); err == nil {
		t.Errorf("sftp without user should fail")
	}

	c, err := NewS3Client(config.S3Config{Endpoint: "http://localhost:9000", AccessKey: "a", SecretKey: "b", Bucket: "plans"})
	if err != nil {
		t.Fatalf("NewS3Client: %v", err)
	}
	if c.bucket != "plans" {
		t.Errorf("bucket = %q", c.bucket)
	}
}

// pipeSFTP serves the local filesystem over in-memory pipes.
func pipeSFTP(t *testing.T, baseDir string) *SFTPClient {
	t.Helper()
	cr, sw := io.Pipe()
	sr, cw := io.Pipe()

	server, err := sftp.NewServer(struct {
		io.Reader
		io.WriteCloser
	}{sr, sw})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	go func() {
		server.Serve()
		sw.Close()
	}()

	client, err := sftp.NewClientPipe(cr, cw)
	if err != nil {
		t.Fatalf("NewClientPipe: %v", err)
	}
	c := newSFTPClient(client, server, baseDir)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestSFTPClient(t *testing.T) {
	ctx := context.Background()
	c := pipeSFTP(t, t.TempDir())

	if got, err := c.ListObjects(ctx, "exports"); err != nil || len(got) != 0 {
		t.Fatalf("empty list = %v, %v", got, err)
	}

	files := map[string]string{
		"exports/r1/plan.xlsx":  "xlsx",
		"exports/r1/report.pdf": "%PDF",
		"exports/r2/plan.xlsx":  "other",
	}
	for k, v := range files {
		if err := c.UploadObject(ctx, k, []byte(v), "application/octet-stream"); err != nil {
			t.Fatalf("UploadObject(%s): %v", k, err)
		}
	}

	got, err := c.GetObject(ctx, "exports/r1/report.pdf")
	if err != nil || string(got) != "%PDF" {
		t.Fatalf("GetObject = %q, %v", got, err)
	}
	if _, err := c.GetObject(ctx, "exports/none"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing object err = %v", err)
	}

	list, err := c.ListObjects(ctx, "exports/r1")
	if err != nil {
		t.Fatalf("ListObjects: %v", err)
	}
	var keys []string
	for _, o := range list {
		keys = append(keys, o.Key)
	}
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "exports/r1/plan.xlsx" || keys[1] != "exports/r1/report.pdf" {
		t.Errorf("keys = %v", keys)
	}
}
