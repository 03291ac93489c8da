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

package metric

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/common/expfmt"
)

func TestRegisterDuplicate(t *testing.T) {
	if _, err := NewUint64Metric("/test/duplicate", "A test metric."); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	if _, err := NewUint64Metric("/test/duplicate", "A test metric."); err != ErrNameInUse {
		t.Errorf("second registration error = %v, want %v", err, ErrNameInUse)
	}
}

func TestFieldValidation(t *testing.T) {
	if _, err := NewUint64Metric("/test/nofieldvalues", "desc", NewField("f", nil)); err != ErrFieldHasNoAllowedValues {
		t.Errorf("got %v, want %v", err, ErrFieldHasNoAllowedValues)
	}
	two := []Field{NewField("a", []string{"x"}), NewField("b", []string{"y"})}
	if _, err := NewUint64Metric("/test/twofields", "desc", two...); err != ErrTooManyFields {
		t.Errorf("got %v, want %v", err, ErrTooManyFields)
	}
}

func TestIncrement(t *testing.T) {
	m := MustCreateNewUint64Metric("/test/increment", "desc", NewField("kind", []string{"a", "b"}))
	m.Increment("a")
	m.IncrementBy(4, "b")
	m.Increment("b")
	if got := m.Value("a"); got != 1 {
		t.Errorf("Value(a) = %d, want 1", got)
	}
	if got := m.Value("b"); got != 5 {
		t.Errorf("Value(b) = %d, want 5", got)
	}

	defer func() {
		if r := recover(); r == nil {
			t.Errorf("Increment with a disallowed field value did not panic")
		}
	}()
	m.Increment("c")
}

func TestPrometheusName(t *testing.T) {
	if got, want := PrometheusName("/pgalloc/allocs"), "pios_pgalloc_allocs"; got != want {
		t.Errorf("PrometheusName = %q, want %q", got, want)
	}
}

func TestWriteText(t *testing.T) {
	plain := MustCreateNewUint64Metric("/test/export/plain", "A plain counter.")
	fielded := MustCreateNewUint64Metric("/test/export/fielded", "A counter with a field.", NewField("op", []string{"alloc", "free"}))
	plain.IncrementBy(3)
	fielded.Increment("free")

	var buf bytes.Buffer
	if err := WriteText(&buf); err != nil {
		t.Fatalf("WriteText failed: %v", err)
	}
	parsed, err := (&expfmt.TextParser{}).TextToMetricFamilies(&buf)
	if err != nil {
		t.Fatalf("output does not parse: %v\n%s", err, buf.String())
	}

	mf, ok := parsed["pios_test_export_plain"]
	if !ok {
		t.Fatalf("plain metric missing from %v", parsed)
	}
	if got := mf.GetMetric()[0].GetCounter().GetValue(); got != 3 {
		t.Errorf("plain counter = %v, want 3", got)
	}

	mf, ok = parsed["pios_test_export_fielded"]
	if !ok {
		t.Fatalf("fielded metric missing from %v", parsed)
	}
	got := map[string]float64{}
	for _, m := range mf.GetMetric() {
		got[m.GetLabel()[0].GetValue()] = m.GetCounter().GetValue()
	}
	if diff := cmp.Diff(map[string]float64{"alloc": 0, "free": 1}, got); diff != "" {
		t.Errorf("fielded counters mismatch (-want +got):\n%s", diff)
	}
}
