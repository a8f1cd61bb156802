// Package collector turns the live ZFS hierarchy into a flat set of
// labeled gauges, one collection pass per scrape.
package collector

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/runningman84/zfs-exporter/pkg/config"
	"github.com/runningman84/zfs-exporter/pkg/models"
	"k8s.io/klog/v2"
)

// DataSource reads the live ZFS hierarchy. Both methods re-query the
// system on every call; the collector holds no view of previous passes.
type DataSource interface {
	GetPools(ctx context.Context) ([]*models.Pool, error)
	GetDatasets(ctx context.Context) ([]*models.Dataset, error)
}

// detailLevel is the per-dataset emission decision of the depth policy.
type detailLevel int

const (
	detailNone    detailLevel = iota // beyond the limit or excluded
	detailSummary                    // at the limit: used bytes only
	detailFull                       // below the limit: full catalog
)

var scrapeErrorDesc = prometheus.NewDesc(
	prometheus.BuildFQName(namespace, "", "scrape_error"),
	"Set when a collection pass failed entirely",
	nil, nil)

// Collector implements prometheus.Collector over a ZFS data source.
// A pass is synchronous; overlapping scrapes are serialized so the
// data source sees at most one invocation at a time.
type Collector struct {
	mu       sync.Mutex
	config   *config.Config
	source   DataSource
	duration prometheus.Summary
}

// New creates a collector bound to an immutable configuration and data source.
func New(cfg *config.Config, source DataSource) *Collector {
	return &Collector{
		config: cfg,
		source: source,
		duration: prometheus.NewSummary(prometheus.SummaryOpts{
			Namespace: namespace,
			Name:      "collect_duration_seconds",
			Help:      "Duration of a full metrics collection pass, in seconds",
		}),
	}
}

// Describe sends all metric descriptors.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, row := range poolCatalog {
		ch <- row.desc
	}
	ch <- poolHealthDesc
	for _, row := range datasetCatalog {
		ch <- row.desc
	}
	for _, row := range volumeCatalog {
		ch <- row.desc
	}
	ch <- scrapeErrorDesc
	c.duration.Describe(ch)
}

// Collect runs one collection pass. The hierarchy is fetched in full
// before anything is emitted, so a data-source failure never publishes
// a partial metric set; it surfaces as a scrape error instead.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), c.config.CommandTimeout)
	defer cancel()

	pools, err := c.source.GetPools(ctx)
	if err != nil {
		klog.Errorf("Collection pass aborted, failed to list pools: %v", err)
		ch <- prometheus.NewInvalidMetric(scrapeErrorDesc, err)
		return
	}

	datasets, err := c.source.GetDatasets(ctx)
	if err != nil {
		klog.Errorf("Collection pass aborted, failed to list datasets: %v", err)
		ch <- prometheus.NewInvalidMetric(scrapeErrorDesc, err)
		return
	}

	skipped := 0
	for _, pool := range pools {
		c.collectPool(ch, pool, &skipped)
	}
	for _, dataset := range datasets {
		detail := c.detailFor(dataset)
		if detail == detailNone {
			continue
		}
		c.collectDataset(ch, dataset, detail, &skipped)
	}

	if skipped > 0 {
		klog.Warningf(" Skipped %d sample(s) due to missing or unparseable properties", skipped)
	}

	c.duration.Observe(time.Since(start).Seconds())
	ch <- c.duration
}

// detailFor applies the exclusion set and the depth policy to one dataset.
func (c *Collector) detailFor(d *models.Dataset) detailLevel {
	if c.config.IsExcluded(d.Name) {
		return detailNone
	}

	depth := d.Depth()
	switch {
	case depth > c.config.DepthLimit:
		return detailNone
	case depth == c.config.DepthLimit:
		return detailSummary
	default:
		return detailFull
	}
}

func (c *Collector) collectPool(ch chan<- prometheus.Metric, pool *models.Pool, skipped *int) {
	for _, row := range poolCatalog {
		v, err := poolValue(pool, row.prop)
		if err != nil {
			*skipped++
			klog.V(1).Infof(" Skipping pool %s sample: %v", pool.Name, err)
			continue
		}
		ch <- prometheus.MustNewConstMetric(row.desc, prometheus.GaugeValue, v, pool.Name)
	}

	health, ok := pool.Property("health")
	if !ok {
		return
	}
	current := strings.ToLower(health.Value)
	for _, state := range healthStates {
		v := 0.0
		if state == current {
			v = 1.0
		}
		ch <- prometheus.MustNewConstMetric(poolHealthDesc, prometheus.GaugeValue, v, pool.Name, state)
	}
}

func (c *Collector) collectDataset(ch chan<- prometheus.Metric, d *models.Dataset, detail detailLevel, skipped *int) {
	for _, row := range datasetCatalog {
		if detail == detailSummary && !row.summary {
			continue
		}
		v, err := row.value(d)
		if err != nil {
			*skipped++
			klog.V(1).Infof(" Skipping dataset %s sample: %v", d.Name, err)
			continue
		}
		ch <- prometheus.MustNewConstMetric(row.desc, prometheus.GaugeValue, v, d.Pool, d.Name)
	}

	if detail != detailFull || d.Type != "volume" {
		return
	}
	for _, row := range volumeCatalog {
		v, err := row.value(d)
		if err != nil {
			*skipped++
			klog.V(1).Infof(" Skipping volume %s sample: %v", d.Name, err)
			continue
		}
		ch <- prometheus.MustNewConstMetric(row.desc, prometheus.GaugeValue, v, d.Pool, d.Name)
	}
}
