package zfs

import (
	"context"
	"testing"
	"time"

	"github.com/runningman84/zfs-exporter/pkg/config"
)

// fixtureConfig returns a test-mode config with commands pointing at the
// repository fixtures, adjusted for the package working directory.
func fixtureConfig() *config.Config {
	cfg := config.NewConfig("test")
	cfg.ZPoolListCmd = []string{"cat", "../../test/zpool_list.json"}
	cfg.ZFSListCmd = []string{"cat", "../../test/zfs_list_datasets.json"}
	cfg.ZFSVersionCmd = []string{"cat", "../../test/zfs_version.json"}
	return cfg
}

func TestNewManager(t *testing.T) {
	cfg := config.NewConfig("test")
	manager := NewManager(cfg)

	if manager == nil {
		t.Fatal("NewManager() returned nil")
	}

	if manager.config != cfg {
		t.Error("Manager config not properly set")
	}
}

func TestGetPools(t *testing.T) {
	manager := NewManager(fixtureConfig())

	pools, err := manager.GetPools(context.Background())
	if err != nil {
		t.Fatalf("GetPools() error = %v", err)
	}

	if len(pools) != 1 {
		t.Fatalf("GetPools() returned %d pools, want 1", len(pools))
	}

	pool := pools[0]
	if pool.Name != "tank" {
		t.Errorf("pool.Name = %v, want tank", pool.Name)
	}
	if prop, ok := pool.Property("size"); !ok || prop.Value != "1000" {
		t.Errorf("pool size = %v (present %v), want 1000", prop.Value, ok)
	}
	if prop, ok := pool.Property("allocated"); !ok || prop.Value != "400" {
		t.Errorf("pool allocated = %v (present %v), want 400", prop.Value, ok)
	}
	if prop, ok := pool.Property("freeing"); !ok || prop.Value != "0" {
		t.Errorf("pool freeing = %v (present %v), want 0", prop.Value, ok)
	}
}

func TestGetDatasets(t *testing.T) {
	manager := NewManager(fixtureConfig())

	datasets, err := manager.GetDatasets(context.Background())
	if err != nil {
		t.Fatalf("GetDatasets() error = %v", err)
	}

	if len(datasets) != 5 {
		t.Fatalf("GetDatasets() returned %d datasets, want 5", len(datasets))
	}

	byName := make(map[string]bool)
	for _, dataset := range datasets {
		byName[dataset.Name] = true

		if dataset.Pool != "tank" {
			t.Errorf("dataset %s Pool = %v, want tank", dataset.Name, dataset.Pool)
		}

		switch dataset.Name {
		case "tank/vol1":
			if dataset.Type != "volume" {
				t.Errorf("tank/vol1 Type = %v, want volume", dataset.Type)
			}
		case "tank/data":
			if dataset.Type != "filesystem" {
				t.Errorf("tank/data Type = %v, want filesystem", dataset.Type)
			}
			// Fixture reports volsize as "-" which means absent
			if _, ok := dataset.Property("volsize"); ok {
				t.Error("tank/data volsize should be absent")
			}
		}
	}

	for _, want := range []string{"tank", "tank/data", "tank/data/logs", "tank/data/logs/archive", "tank/vol1"} {
		if !byName[want] {
			t.Errorf("dataset %s not returned", want)
		}
	}
}

func TestGetVersion(t *testing.T) {
	manager := NewManager(fixtureConfig())

	userland, kernel, err := manager.GetVersion(context.Background())
	if err != nil {
		t.Fatalf("GetVersion() error = %v", err)
	}

	if userland != "zfs-2.3.0-1" {
		t.Errorf("userland = %v, want zfs-2.3.0-1", userland)
	}
	if kernel != "zfs-kmod-2.3.0-1" {
		t.Errorf("kernel = %v, want zfs-kmod-2.3.0-1", kernel)
	}
}

func TestGetPools_CommandFailure(t *testing.T) {
	cfg := fixtureConfig()
	cfg.ZPoolListCmd = []string{"false"}
	manager := NewManager(cfg)

	_, err := manager.GetPools(context.Background())
	if err == nil {
		t.Error("GetPools() expected error for failing command, got nil")
	}
}

func TestGetDatasets_UnparseableOutput(t *testing.T) {
	cfg := fixtureConfig()
	cfg.ZFSListCmd = []string{"echo", "not json"}
	manager := NewManager(cfg)

	_, err := manager.GetDatasets(context.Background())
	if err == nil {
		t.Error("GetDatasets() expected error for unparseable output, got nil")
	}
}

func TestGetPools_Timeout(t *testing.T) {
	cfg := fixtureConfig()
	cfg.ZPoolListCmd = []string{"sleep", "5"}
	manager := NewManager(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := manager.GetPools(ctx)
	if err == nil {
		t.Error("GetPools() expected error for timed out command, got nil")
	}
}
