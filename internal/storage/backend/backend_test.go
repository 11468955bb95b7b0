package backend

import (
	"bytes"
	"context"
	"log"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fdg312/cityfix/internal/config"
	"github.com/fdg312/cityfix/internal/storage/memory"
	"github.com/fdg312/cityfix/internal/storage/sqlite"
)

func TestOpen_Memory(t *testing.T) {
	var buf bytes.Buffer
	cfg := &config.Config{StorageMode: config.StorageModeAuto}

	st, mode, err := Open(context.Background(), cfg, log.New(&buf, "", 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer st.Close()

	if mode != config.StorageModeMemory {
		t.Fatalf("expected memory mode, got %s", mode)
	}
	if _, ok := st.(*memory.MemoryStorage); !ok {
		t.Fatalf("expected *memory.MemoryStorage, got %T", st)
	}
	if !strings.Contains(buf.String(), "mode=memory") {
		t.Fatalf("expected log line with mode=memory, got %q", buf.String())
	}
}

func TestOpen_File(t *testing.T) {
	cfg := &config.Config{
		StorageMode: config.StorageModeFile,
		SQLitePath:  filepath.Join(t.TempDir(), "reports.db"),
	}

	st, mode, err := Open(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer st.Close()

	if mode != config.StorageModeFile {
		t.Fatalf("expected file mode, got %s", mode)
	}
	if _, ok := st.(*sqlite.SQLiteStorage); !ok {
		t.Fatalf("expected *sqlite.SQLiteStorage, got %T", st)
	}
}

func TestOpen_MissingConnectionSettings(t *testing.T) {
	cases := []struct {
		name string
		cfg  *config.Config
		want string
	}{
		{"postgres without url", &config.Config{StorageMode: config.StorageModePostgres}, "DATABASE_URL"},
		{"mongo without uri", &config.Config{StorageMode: config.StorageModeMongo}, "MONGO_URI"},
		{"unknown mode", &config.Config{StorageMode: "cassandra"}, "unsupported"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st, _, err := Open(context.Background(), tc.cfg, nil)
			if err == nil {
				st.Close()
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}
