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
	"fmt"
	"io"
	"strings"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"
)

// namePrefix is prepended to every exported metric name.
const namePrefix = "pios"

// PrometheusName converts a slash-separated metric name such as
// "/pgalloc/allocs" into a Prometheus metric name such as
// "pios_pgalloc_allocs".
func PrometheusName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool { return r == '/' })
	return namePrefix + "_" + strings.Join(parts, "_")
}

// family converts m into a Prometheus counter family.
func (m *Uint64Metric) family() *dto.MetricFamily {
	mf := &dto.MetricFamily{
		Name: proto.String(PrometheusName(m.name)),
		Help: proto.String(m.description),
		Type: dto.MetricType_COUNTER.Enum(),
	}
	for _, s := range m.samples() {
		pm := &dto.Metric{
			Counter: &dto.Counter{Value: proto.Float64(float64(s.value))},
		}
		if m.hasField {
			pm.Label = []*dto.LabelPair{{
				Name:  proto.String(m.field.name),
				Value: proto.String(s.fieldValue),
			}}
		}
		mf.Metric = append(mf.Metric, pm)
	}
	return mf
}

// WriteText writes every registered metric to w in the Prometheus text
// exposition format.
func WriteText(w io.Writer) error {
	for _, m := range registered() {
		if _, err := expfmt.MetricFamilyToText(w, m.family()); err != nil {
			return fmt.Errorf("writing metric %q: %w", m.name, err)
		}
	}
	return nil
}
