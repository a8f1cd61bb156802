package parser

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/runningman84/zfs-exporter/pkg/models"
)

// ZFSProperty represents a ZFS property value
type ZFSProperty struct {
	Value string `json:"value"`
}

// ZFSDatasetJSON represents a ZFS dataset in JSON format
type ZFSDatasetJSON struct {
	Name       string                 `json:"name"`
	Type       string                 `json:"type"`
	Pool       string                 `json:"pool"`
	Properties map[string]ZFSProperty `json:"properties,omitempty"`
}

// ZFSDatasetResponse represents the root response from zfs list -j
type ZFSDatasetResponse struct {
	OutputVersion struct {
		Command   string `json:"command"`
		VersMajor int    `json:"vers_major"`
		VersMinor int    `json:"vers_minor"`
	} `json:"output_version"`
	Datasets map[string]ZFSDatasetJSON `json:"datasets"`
}

// ZPoolJSON represents a pool in zpool list -j output
type ZPoolJSON struct {
	Name       string                 `json:"name"`
	Type       string                 `json:"type"`
	State      string                 `json:"state"`
	Properties map[string]ZFSProperty `json:"properties,omitempty"`
}

// ZPoolListResponse represents the root response from zpool list -j
type ZPoolListResponse struct {
	OutputVersion struct {
		Command   string `json:"command"`
		VersMajor int    `json:"vers_major"`
		VersMinor int    `json:"vers_minor"`
	} `json:"output_version"`
	Pools map[string]ZPoolJSON `json:"pools"`
}

// ParsePoolsJSON parses zpool list JSON output into pool views.
// Pool state is folded into the property map under "health" so the
// collector sees one uniform property surface.
func ParsePoolsJSON(data []byte) ([]*models.Pool, error) {
	var response ZPoolListResponse

	if err := json.Unmarshal(data, &response); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	var pools []*models.Pool
	for _, pool := range response.Pools {
		properties := make(map[string]models.Property, len(pool.Properties)+1)
		for name, prop := range pool.Properties {
			properties[name] = models.Property{Value: prop.Value}
		}
		if pool.State != "" {
			if _, ok := properties["health"]; !ok {
				properties["health"] = models.Property{Value: pool.State}
			}
		}

		pools = append(pools, &models.Pool{
			Name:       pool.Name,
			Properties: properties,
		})
	}

	return pools, nil
}

// ParseDatasetsJSON parses zfs list JSON output into dataset views.
// The type reported by zfs is uppercase; it is normalized to the lowercase
// names used throughout the metric catalog.
func ParseDatasetsJSON(data []byte) ([]*models.Dataset, error) {
	var response ZFSDatasetResponse

	if err := json.Unmarshal(data, &response); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	var datasets []*models.Dataset
	for _, dataset := range response.Datasets {
		// The pool field is absent in older zfs versions; derive it from
		// the first path segment in that case.
		poolName := dataset.Pool
		if poolName == "" {
			poolName = strings.SplitN(dataset.Name, "/", 2)[0]
		}

		properties := make(map[string]models.Property, len(dataset.Properties))
		for name, prop := range dataset.Properties {
			// zfs reports unset properties as "-"; treat them as absent
			// so the catalog's missing-property fallbacks apply.
			if prop.Value == "-" {
				continue
			}
			properties[name] = models.Property{Value: prop.Value}
		}

		datasets = append(datasets, &models.Dataset{
			Name:       dataset.Name,
			Pool:       poolName,
			Type:       strings.ToLower(dataset.Type),
			Properties: properties,
		})
	}

	return datasets, nil
}

// ZFSVersionInfo holds ZFS version information
type ZFSVersionInfo struct {
	Userland string `json:"userland"`
	Kernel   string `json:"kernel"`
}

// ZFSVersionResponse is the complete zfs version -j output
type ZFSVersionResponse struct {
	ZFSVersion ZFSVersionInfo `json:"zfs_version"`
}

// ParseVersionJSON parses zfs version JSON output
func ParseVersionJSON(data []byte) (string, string, error) {
	var response ZFSVersionResponse

	if err := json.Unmarshal(data, &response); err != nil {
		return "", "", fmt.Errorf("failed to parse version JSON: %w", err)
	}

	return response.ZFSVersion.Userland, response.ZFSVersion.Kernel, nil
}
