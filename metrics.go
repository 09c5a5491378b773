/*
	Copyright NetFoundry Inc.

	Licensed under the Apache License, Version 2.0 (the "License");
	you may not use this file except in compliance with the License.
	You may obtain a copy of the License at

	https://www.apache.org/licenses/LICENSE-2.0

	Unless required by applicable law or agreed to in writing, software
	distributed under the License is distributed on an "AS IS" BASIS,
	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
	See the License for the specific language governing permissions and
	limitations under the License.
*/

package xmapper

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics counts mapping outcomes. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry       *prometheus.Registry
	resolved       *prometheus.CounterVec
	unresolved     prometheus.Counter
	encodeFailures prometheus.Counter
}

func NewMetrics() *Metrics {
	metrics := &Metrics{
		Registry: prometheus.NewRegistry(),
		resolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xmapper",
			Name:      "requests_resolved_total",
			Help:      "Requests resolved to a target, by target kind.",
		}, []string{"target"}),
		unresolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "xmapper",
			Name:      "requests_unresolved_total",
			Help:      "Requests no mapper could resolve.",
		}),
		encodeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "xmapper",
			Name:      "url_encode_failures_total",
			Help:      "Targets no mapper could encode.",
		}),
	}

	metrics.Registry.MustRegister(metrics.resolved, metrics.unresolved, metrics.encodeFailures)
	return metrics
}

func (m *Metrics) requestResolved(target RequestTarget) {
	if m == nil {
		return
	}
	m.resolved.WithLabelValues(TargetKind(target)).Inc()
}

func (m *Metrics) requestUnresolved() {
	if m == nil {
		return
	}
	m.unresolved.Inc()
}

func (m *Metrics) encodeFailed() {
	if m == nil {
		return
	}
	m.encodeFailures.Inc()
}

// Handler exposes the metrics in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
