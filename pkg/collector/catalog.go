package collector

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/runningman84/zfs-exporter/pkg/models"
)

const namespace = "zfs"

// Renaming any metric or label below is a breaking change for downstream
// dashboards and alerts.

var (
	poolLabels    = []string{"pool"}
	datasetLabels = []string{"pool", "dataset"}
)

// healthStates enumerates the pool health states exported as a state set.
var healthStates = []string{"online", "degraded", "faulted", "offline", "removed", "unavail"}

// datasetTypeCodes maps the dataset type enum to its metric value.
// Types outside this set are reported as unknownTypeCode, never omitted.
var datasetTypeCodes = map[string]float64{
	"filesystem": 0,
	"volume":     1,
	"snapshot":   2,
	"bookmark":   3,
}

const unknownTypeCode = -1

var errPropertyMissing = errors.New("property not present")

// poolRow maps one pool property to one gauge.
type poolRow struct {
	desc *prometheus.Desc
	prop string
}

func newPoolRow(prop, help string) poolRow {
	return poolRow{
		desc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "pool", prop+"_bytes"),
			help, poolLabels, nil),
		prop: prop,
	}
}

var poolCatalog = []poolRow{
	newPoolRow("size", "Total capacity of the pool, in bytes"),
	newPoolRow("allocated", "Space allocated in the pool, in bytes"),
	newPoolRow("freeing", "Space pending reclamation in the pool, in bytes"),
}

var poolHealthDesc = prometheus.NewDesc(
	prometheus.BuildFQName(namespace, "pool", "health"),
	"1 if the pool is in the labeled health state, 0 otherwise",
	[]string{"pool", "state"}, nil)

// datasetRow maps one dataset property to one gauge. Rows marked summary
// are the only ones emitted for datasets at exactly the depth limit.
type datasetRow struct {
	desc    *prometheus.Desc
	summary bool
	value   func(d *models.Dataset) (float64, error)
}

func newDatasetRow(suffix, help string, summary bool, value func(d *models.Dataset) (float64, error)) datasetRow {
	return datasetRow{
		desc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "dataset", suffix),
			help, datasetLabels, nil),
		summary: summary,
		value:   value,
	}
}

var datasetCatalog = []datasetRow{
	newDatasetRow("used_bytes",
		"The amount of space consumed by this dataset and all its descendants, in bytes",
		true, byteValue("used")),
	newDatasetRow("usedbydataset_bytes",
		"The amount of space used by this dataset itself, excluding descendants, in bytes",
		false, byteValue("usedbydataset")),
	newDatasetRow("available_bytes",
		"The amount of space available to the dataset and all its children, in bytes",
		false, byteValue("available")),
	newDatasetRow("atime_enabled",
		"Whether access time updates are enabled (1 = on, 0 = off)",
		false, atimeValue),
	newDatasetRow("creation_date",
		"The time this dataset was created, in epoch",
		false, integerValue("creation")),
	newDatasetRow("type",
		"Dataset type: 0=filesystem, 1=volume, 2=snapshot, 3=bookmark",
		false, typeValue),
}

// volumeCatalog rows apply only to volumes reported at full detail.
var volumeCatalog = []datasetRow{
	newDatasetRow("volsize_bytes",
		"Logical size of the volume, in bytes",
		false, byteValue("volsize")),
}

// byteValue coerces a byte-count property to a gauge value.
func byteValue(prop string) func(d *models.Dataset) (float64, error) {
	return func(d *models.Dataset) (float64, error) {
		p, ok := d.Property(prop)
		if !ok {
			return 0, fmt.Errorf("%s: %w", prop, errPropertyMissing)
		}
		v, err := strconv.ParseFloat(p.Value, 64)
		if err != nil {
			return 0, fmt.Errorf("%s: cannot parse %q as bytes", prop, p.Value)
		}
		return v, nil
	}
}

// integerValue coerces the raw property value to an integer gauge value.
func integerValue(prop string) func(d *models.Dataset) (float64, error) {
	return func(d *models.Dataset) (float64, error) {
		p, ok := d.Property(prop)
		if !ok {
			return 0, fmt.Errorf("%s: %w", prop, errPropertyMissing)
		}
		v, err := strconv.ParseInt(p.Value, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%s: cannot parse %q as integer", prop, p.Value)
		}
		return float64(v), nil
	}
}

// atimeValue reports 1 when atime is present and "on", 0 otherwise.
// An absent atime property is a valid state, not an error.
func atimeValue(d *models.Dataset) (float64, error) {
	p, ok := d.Property("atime")
	if !ok {
		return 0, nil
	}
	if p.Value == "on" {
		return 1, nil
	}
	return 0, nil
}

// typeValue maps the dataset type to its enum code, -1 for unknown types.
func typeValue(d *models.Dataset) (float64, error) {
	if code, ok := datasetTypeCodes[d.Type]; ok {
		return code, nil
	}
	return unknownTypeCode, nil
}

// poolValue coerces a pool byte-count property to a gauge value.
func poolValue(p *models.Pool, prop string) (float64, error) {
	v, ok := p.Property(prop)
	if !ok {
		return 0, fmt.Errorf("%s: %w", prop, errPropertyMissing)
	}
	f, err := strconv.ParseFloat(v.Value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: cannot parse %q as bytes", prop, v.Value)
	}
	return f, nil
}
