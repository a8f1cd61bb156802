package zfs

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/runningman84/zfs-exporter/pkg/config"
	"github.com/runningman84/zfs-exporter/pkg/models"
	"github.com/runningman84/zfs-exporter/pkg/parser"
	"k8s.io/klog/v2"
)

// Manager reads the live ZFS hierarchy through the configured commands.
// It is a read-only data source; every call re-queries the system.
type Manager struct {
	config *config.Config
}

// NewManager creates a new ZFS manager
func NewManager(cfg *config.Config) *Manager {
	return &Manager{
		config: cfg,
	}
}

// logCommand logs the command being executed if debug mode is enabled
func (m *Manager) logCommand(cmdArgs []string) {
	if m.config.IsDebug() {
		klog.V(1).Infof(" Executing command: %v", cmdArgs)
	}
}

// logCommandResult logs the command result if debug mode is enabled
func (m *Manager) logCommandResult(exitCode int, output []byte) {
	if m.config.IsDebug() {
		klog.V(1).Infof(" Exit code: %d", exitCode)
		if len(output) > 0 {
			klog.V(1).Infof(" output: %s", string(output))
		}
	}
}

// run executes a configured command and returns its combined output.
// The context bounds the whole invocation; expiry kills the command.
func (m *Manager) run(ctx context.Context, cmdArgs []string) ([]byte, error) {
	m.logCommand(cmdArgs)
	cmd := exec.CommandContext(ctx, cmdArgs[0], cmdArgs[1:]...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		exitCode := 0
		if exitError, ok := err.(*exec.ExitError); ok {
			exitCode = exitError.ExitCode()
		}
		m.logCommandResult(exitCode, output)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("command timed out: %w", ctxErr)
		}
		return nil, fmt.Errorf("command failed: %w", err)
	}
	m.logCommandResult(0, output)

	return output, nil
}

// GetVersion retrieves ZFS userland and kernel versions
func (m *Manager) GetVersion(ctx context.Context) (string, string, error) {
	output, err := m.run(ctx, m.config.ZFSVersionCmd)
	if err != nil {
		return "", "", fmt.Errorf("zfs version command failed: %w", err)
	}

	userland, kernel, err := parser.ParseVersionJSON(output)
	if err != nil {
		return "", "", fmt.Errorf("failed to parse version JSON: %w", err)
	}

	return userland, kernel, nil
}

// GetPools retrieves all ZFS pools with their catalog properties
func (m *Manager) GetPools(ctx context.Context) ([]*models.Pool, error) {
	output, err := m.run(ctx, m.config.ZPoolListCmd)
	if err != nil {
		return nil, err
	}

	pools, err := parser.ParsePoolsJSON(output)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pools JSON: %w", err)
	}

	return pools, nil
}

// GetDatasets retrieves all ZFS datasets (filesystems, volumes, snapshots
// and bookmarks) with their catalog properties
func (m *Manager) GetDatasets(ctx context.Context) ([]*models.Dataset, error) {
	output, err := m.run(ctx, m.config.ZFSListCmd)
	if err != nil {
		return nil, err
	}

	datasets, err := parser.ParseDatasetsJSON(output)
	if err != nil {
		return nil, fmt.Errorf("failed to parse datasets JSON: %w", err)
	}

	return datasets, nil
}
