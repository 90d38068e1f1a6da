package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/marmos91/larder/pkg/secrets/generator"
	"github.com/marmos91/larder/pkg/secrets/transformer"
	"github.com/marmos91/larder/pkg/storage"
	storageBadger "github.com/marmos91/larder/pkg/storage/badger"
	storageFs "github.com/marmos91/larder/pkg/storage/fs"
	"github.com/marmos91/larder/pkg/storage/memory"
	"github.com/marmos91/larder/pkg/storage/throttle"
	"github.com/marmos91/larder/pkg/task"
)

func TestCreateBackend_Memory(t *testing.T) {
	ctx := context.Background()
	cfg := &BackendConfig{
		Type: "memory",
		Memory: map[string]any{
			"contents": []any{
				map[string]any{"path": "seed/key", "content": "value"},
			},
		},
	}

	backend, err := CreateBackend(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to create memory backend: %v", err)
	}
	if _, ok := backend.(*memory.Backend); !ok {
		t.Fatalf("Expected *memory.Backend, got %T", backend)
	}

	st := storage.New(backend)
	got, err := st.Retrieve(ctx, "/seed/key")
	if err != nil {
		t.Fatalf("Expected seeded content, got error: %v", err)
	}
	if got != "value" {
		t.Errorf("Expected 'value', got %q", got)
	}
}

func TestCreateBackend_MemoryEntryWithoutPath(t *testing.T) {
	cfg := &BackendConfig{
		Type: "memory",
		Memory: map[string]any{
			"contents": []any{map[string]any{"content": "orphan"}},
		},
	}

	if _, err := CreateBackend(context.Background(), cfg); err == nil {
		t.Fatal("Expected error for a seed entry without a path")
	}
}

func TestLoad_MemoryContentsKeepPathCase(t *testing.T) {
	isolateEnv(t)
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `
storage:
  backend:
    type: memory
    memory:
      contents:
        - path: Secrets/DB
          content: s3cret
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	st, err := CreateStorage(ctx, &cfg.Storage)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	defer func() { _ = st.Close() }()

	got, err := st.Retrieve(ctx, "/Secrets/DB")
	if err != nil {
		t.Fatalf("Expected seeded content at /Secrets/DB, got error: %v", err)
	}
	if got != "s3cret" {
		t.Errorf("Expected 's3cret', got %q", got)
	}
}

func TestCreateBackend_Filesystem(t *testing.T) {
	ctx := context.Background()
	root := filepath.Join(t.TempDir(), "secrets")
	cfg := &BackendConfig{
		Type:       "filesystem",
		Filesystem: map[string]any{"root": root},
	}

	backend, err := CreateBackend(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to create filesystem backend: %v", err)
	}

	fsBackend, ok := backend.(*storageFs.Backend)
	if !ok {
		t.Fatalf("Expected *fs.Backend, got %T", backend)
	}
	if fsBackend.Root() != root {
		t.Errorf("Expected root %q, got %q", root, fsBackend.Root())
	}
}

func TestCreateBackend_FilesystemMissingRoot(t *testing.T) {
	cfg := &BackendConfig{
		Type:       "filesystem",
		Filesystem: map[string]any{},
	}

	_, err := CreateBackend(context.Background(), cfg)
	if err == nil {
		t.Fatal("Expected error for missing root")
	}
	if !strings.Contains(err.Error(), "root is required") {
		t.Errorf("Expected 'root is required' error, got: %v", err)
	}
}

func TestCreateBackend_BadgerInMemory(t *testing.T) {
	cfg := &BackendConfig{
		Type:   "badger",
		Badger: map[string]any{"in_memory": true},
	}

	backend, err := CreateBackend(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to create badger backend: %v", err)
	}

	b, ok := backend.(*storageBadger.Backend)
	if !ok {
		t.Fatalf("Expected *badger.Backend, got %T", backend)
	}
	if err := b.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestCreateBackend_BadgerOnDisk(t *testing.T) {
	cfg := &BackendConfig{
		Type:   "badger",
		Badger: map[string]any{"db_path": filepath.Join(t.TempDir(), "db"), "sync_writes": true},
	}

	backend, err := CreateBackend(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to create badger backend: %v", err)
	}
	_ = backend.(*storageBadger.Backend).Close()
}

func TestCreateBackend_BadgerMissingPath(t *testing.T) {
	cfg := &BackendConfig{
		Type:   "badger",
		Badger: map[string]any{},
	}

	_, err := CreateBackend(context.Background(), cfg)
	if err == nil {
		t.Fatal("Expected error for missing db_path")
	}
	if !strings.Contains(err.Error(), "db_path is required") {
		t.Errorf("Expected 'db_path is required' error, got: %v", err)
	}
}

func TestCreateBackend_S3MissingBucket(t *testing.T) {
	cfg := &BackendConfig{
		Type: "s3",
		S3:   map[string]any{"region": "us-east-1"},
	}

	_, err := CreateBackend(context.Background(), cfg)
	if err == nil {
		t.Fatal("Expected error for missing bucket")
	}
	if !strings.Contains(err.Error(), "bucket is required") {
		t.Errorf("Expected 'bucket is required' error, got: %v", err)
	}
}

func TestCreateBackend_S3MissingRegion(t *testing.T) {
	cfg := &BackendConfig{
		Type: "s3",
		S3:   map[string]any{"bucket": "secrets"},
	}

	_, err := CreateBackend(context.Background(), cfg)
	if err == nil {
		t.Fatal("Expected error for missing region")
	}
	if !strings.Contains(err.Error(), "region is required") {
		t.Errorf("Expected 'region is required' error, got: %v", err)
	}
}

func TestCreateBackend_DecodeError(t *testing.T) {
	cfg := &BackendConfig{
		Type:   "badger",
		Badger: map[string]any{"in_memory": []string{"not", "a", "bool"}},
	}

	_, err := CreateBackend(context.Background(), cfg)
	if err == nil {
		t.Fatal("Expected decode error")
	}
}

func TestCreateBackend_UnknownType(t *testing.T) {
	cfg := &BackendConfig{Type: "floppy"}

	_, err := CreateBackend(context.Background(), cfg)
	if err == nil {
		t.Fatal("Expected error for unknown backend type")
	}
	if !strings.Contains(err.Error(), "unknown storage backend type") {
		t.Errorf("Expected 'unknown storage backend type' error, got: %v", err)
	}
}

func TestCreateBackend_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := &BackendConfig{
		Type:       "filesystem",
		Filesystem: map[string]any{"root": t.TempDir()},
	}

	_, err := CreateBackend(ctx, cfg)
	if err != context.Canceled {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestCreateStorage_BasePath(t *testing.T) {
	ctx := context.Background()
	cfg := &StorageConfig{
		BasePath: "/secrets",
		Backend:  BackendConfig{Type: "memory"},
	}

	st, err := CreateStorage(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	defer func() { _ = st.Close() }()

	if err := st.Store(ctx, "db/password", "hunter2"); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	got, err := st.Retrieve(ctx, "/secrets/db/password")
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if got != "hunter2" {
		t.Errorf("Expected 'hunter2', got %q", got)
	}
}

func TestCreateStorage_RateLimit(t *testing.T) {
	cfg := &StorageConfig{
		BasePath:  "/",
		Backend:   BackendConfig{Type: "memory"},
		RateLimit: throttle.Config{OpsPerSecond: 100},
	}

	st, err := CreateStorage(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	if _, ok := st.Backend().(*throttle.Backend); !ok {
		t.Errorf("Expected throttled backend, got %T", st.Backend())
	}
}

func TestCreateStorage_NoRateLimit(t *testing.T) {
	cfg := &StorageConfig{
		BasePath: "/",
		Backend:  BackendConfig{Type: "memory"},
	}

	st, err := CreateStorage(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	if _, ok := st.Backend().(*memory.Backend); !ok {
		t.Errorf("Expected bare memory backend, got %T", st.Backend())
	}
}

func TestCreateStorage_BackendError(t *testing.T) {
	cfg := &StorageConfig{
		BasePath: "/",
		Backend:  BackendConfig{Type: "floppy"},
	}

	if _, err := CreateStorage(context.Background(), cfg); err == nil {
		t.Fatal("Expected error for unknown backend")
	}
}

func TestCreateTasks(t *testing.T) {
	ctx := context.Background()
	st := storage.New(memory.New(), storage.WithBasePath("/secrets"))

	tasks := []TaskConfig{
		{
			ID:        "database_password",
			Type:      TaskTypeGenerate,
			Path:      "database/password",
			Generator: &generator.Spec{Type: generator.TypeConstant, Value: "hunter2"},
			Transformer: &transformer.Spec{
				Type:    transformer.TypeTemplate,
				Content: "password: {{ .Value }}",
			},
		},
		{
			ID:        "pin",
			Type:      TaskTypeGenerate,
			Generator: &generator.Spec{Type: generator.TypeNumeric, Length: 4},
		},
		{
			ID:   "probe",
			Type: TaskTypePlaceholder,
		},
	}

	reg, err := CreateTasks(tasks, st)
	if err != nil {
		t.Fatalf("CreateTasks failed: %v", err)
	}

	if got := reg.Names(); strings.Join(got, ",") != "database_password,pin,probe" {
		t.Errorf("Unexpected task names: %v", got)
	}

	if err := reg.RunAll(ctx, 2); err != nil {
		t.Fatalf("RunAll failed: %v", err)
	}

	content, err := st.Retrieve(ctx, "/secrets/database/password")
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if content != "password: hunter2" {
		t.Errorf("Expected rendered template, got %q", content)
	}

	// Path defaults to the task ID
	pin, err := st.Retrieve(ctx, "/secrets/pin")
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(pin) != 4 {
		t.Errorf("Expected 4 digit pin, got %q", pin)
	}

	probe, err := reg.Get("probe")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if _, ok := probe.(*task.Placeholder); !ok {
		t.Errorf("Expected *task.Placeholder, got %T", probe)
	}
}

func TestCreateTasks_Errors(t *testing.T) {
	st := storage.New(memory.New())

	tests := []struct {
		name  string
		tasks []TaskConfig
		want  string
	}{
		{
			name:  "missing generator",
			tasks: []TaskConfig{{ID: "x", Type: TaskTypeGenerate}},
			want:  "requires a generator",
		},
		{
			name:  "unknown generator",
			tasks: []TaskConfig{{ID: "x", Generator: &generator.Spec{Type: "dice"}}},
			want:  "unknown generator type",
		},
		{
			name: "bad template",
			tasks: []TaskConfig{{
				ID:          "x",
				Generator:   &generator.Spec{Type: generator.TypeUUID},
				Transformer: &transformer.Spec{Type: transformer.TypeTemplate, Content: "{{ .Value"},
			}},
			want: "failed to parse template",
		},
		{
			name:  "unknown task type",
			tasks: []TaskConfig{{ID: "x", Type: "rotate"}},
			want:  "unknown task type",
		},
		{
			name: "duplicate ids",
			tasks: []TaskConfig{
				{ID: "x", Type: TaskTypePlaceholder},
				{ID: "x", Type: TaskTypePlaceholder},
			},
			want: "already registered",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CreateTasks(tt.tasks, st)
			if err == nil {
				t.Fatal("Expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got: %v", tt.want, err)
			}
		})
	}
}
