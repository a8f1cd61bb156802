package models

import "strings"

// Property represents a single ZFS property value as reported by the CLI.
// Commands run with -p (parseable), so numeric properties carry exact values.
type Property struct {
	Value string
}

// Pool represents a ZFS storage pool
type Pool struct {
	Name       string
	Properties map[string]Property
}

// Property returns the named property and whether it is present on this pool.
func (p *Pool) Property(name string) (Property, bool) {
	v, ok := p.Properties[name]
	return v, ok
}

// Dataset represents a ZFS dataset (filesystem, volume, snapshot or bookmark)
type Dataset struct {
	Name       string // full hierarchical path, e.g. "tank/data/logs"
	Pool       string
	Type       string // "filesystem", "volume", "snapshot" or "bookmark"
	Properties map[string]Property
}

// Property returns the named property and whether it is present on this dataset.
func (d *Dataset) Property(name string) (Property, bool) {
	p, ok := d.Properties[name]
	return p, ok
}

// Depth returns the nesting depth of the dataset below its pool root.
// The pool root itself has depth 0.
func (d *Dataset) Depth() int {
	return strings.Count(d.Name, "/")
}
