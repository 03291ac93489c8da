// Copyright 2026 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metric provides primitives for collecting metrics.
package metric

import (
	"errors"
	"fmt"
	"sort"

	"gvisor.dev/pios/pkg/atomicbitops"
	"gvisor.dev/pios/pkg/sync"
)

var (
	// ErrNameInUse indicates that another metric is already defined for
	// the given name.
	ErrNameInUse = errors.New("metric name already in use")

	// ErrFieldHasNoAllowedValues indicates that the field needs to define some
	// allowed values to be a valid and useful field.
	ErrFieldHasNoAllowedValues = errors.New("metric field does not define any allowed values")

	// ErrTooManyFields indicates that a metric was defined with more than one
	// field.
	ErrTooManyFields = errors.New("metric supports at most one field")
)

// Field contains the field name and allowed values for the metric which is
// used in registration of the metric.
type Field struct {
	// name is the metric field name.
	name string

	// allowedValues is the list of allowed values for the field.
	allowedValues []string
}

// NewField defines a new Field that can be used to break down a metric.
func NewField(name string, allowedValues []string) Field {
	return Field{
		name:          name,
		allowedValues: allowedValues,
	}
}

// Uint64Metric encapsulates a uint64 that represents some kind of metric to be
// monitored. A metric may be broken down by at most one field.
type Uint64Metric struct {
	name        string
	description string

	// field is valid iff hasField.
	field    Field
	hasField bool

	// keys maps an allowed field value to its index in values.
	keys map[string]int

	// values holds one counter per allowed field value, or a single counter
	// when the metric has no field.
	values []atomicbitops.Uint64
}

// metricSet holds all registered metrics.
type metricSet struct {
	mu      sync.Mutex
	metrics map[string]*Uint64Metric
}

// allMetrics are the registered metrics.
var allMetrics = metricSet{metrics: make(map[string]*Uint64Metric)}

// NewUint64Metric creates and registers a new cumulative metric with the given
// name.
//
// Metrics should be statically defined (i.e., at init).
func NewUint64Metric(name string, description string, fields ...Field) (*Uint64Metric, error) {
	m := &Uint64Metric{
		name:        name,
		description: description,
	}
	switch len(fields) {
	case 0:
		m.values = make([]atomicbitops.Uint64, 1)
	case 1:
		f := fields[0]
		if len(f.allowedValues) == 0 {
			return nil, ErrFieldHasNoAllowedValues
		}
		m.field = f
		m.hasField = true
		m.keys = make(map[string]int, len(f.allowedValues))
		for i, v := range f.allowedValues {
			m.keys[v] = i
		}
		m.values = make([]atomicbitops.Uint64, len(f.allowedValues))
	default:
		return nil, ErrTooManyFields
	}

	allMetrics.mu.Lock()
	defer allMetrics.mu.Unlock()
	if _, ok := allMetrics.metrics[name]; ok {
		return nil, ErrNameInUse
	}
	allMetrics.metrics[name] = m
	return m, nil
}

// MustCreateNewUint64Metric calls NewUint64Metric and panics if it returns an
// error.
func MustCreateNewUint64Metric(name string, description string, fields ...Field) *Uint64Metric {
	m, err := NewUint64Metric(name, description, fields...)
	if err != nil {
		panic(fmt.Sprintf("Unable to create metric %q: %s", name, err))
	}
	return m
}

// key returns the index of the counter for the given field values. It panics
// if the field values do not match the metric definition.
func (m *Uint64Metric) key(fieldValues []string) int {
	if !m.hasField {
		if len(fieldValues) != 0 {
			panic(fmt.Sprintf("metric %q has no fields, got %v", m.name, fieldValues))
		}
		return 0
	}
	if len(fieldValues) != 1 {
		panic(fmt.Sprintf("metric %q has one field, got %v", m.name, fieldValues))
	}
	k, ok := m.keys[fieldValues[0]]
	if !ok {
		panic(fmt.Sprintf("metric %q: %q is not an allowed value for field %q", m.name, fieldValues[0], m.field.name))
	}
	return k
}

// Value returns the current value of the metric for the given set of fields.
// This must be called with the correct number of field values or it will panic.
func (m *Uint64Metric) Value(fieldValues ...string) uint64 {
	return m.values[m.key(fieldValues)].Load()
}

// Increment increments the metric field by 1.
// This must be called with the correct number of field values or it will panic.
func (m *Uint64Metric) Increment(fieldValues ...string) {
	m.values[m.key(fieldValues)].Add(1)
}

// IncrementBy increments the metric by v.
// This must be called with the correct number of field values or it will panic.
func (m *Uint64Metric) IncrementBy(v uint64, fieldValues ...string) {
	m.values[m.key(fieldValues)].Add(v)
}

// sample is a single metric value at one field value.
type sample struct {
	fieldValue string
	value      uint64
}

// samples returns a snapshot of all values of m.
func (m *Uint64Metric) samples() []sample {
	if !m.hasField {
		return []sample{{value: m.values[0].Load()}}
	}
	s := make([]sample, 0, len(m.field.allowedValues))
	for i, v := range m.field.allowedValues {
		s = append(s, sample{fieldValue: v, value: m.values[i].Load()})
	}
	return s
}

// registered returns all registered metrics sorted by name.
func registered() []*Uint64Metric {
	allMetrics.mu.Lock()
	defer allMetrics.mu.Unlock()
	ms := make([]*Uint64Metric, 0, len(allMetrics.metrics))
	for _, m := range allMetrics.metrics {
		ms = append(ms, m)
	}
	sort.Slice(ms, func(i, j int) bool { return ms[i].name < ms[j].name })
	return ms
}
