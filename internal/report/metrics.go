package report

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"subleqevo/internal/model"
)

const namespace = "subleqevo"

// MetricsReporter exposes run progress as Prometheus series. Collectors are
// registered on the Registerer handed to NewMetricsReporter.
type MetricsReporter struct {
	populationSize int

	generation  prometheus.Gauge
	bestFitness prometheus.Gauge
	meanFitness prometheus.Gauge
	bestLength  prometheus.Gauge
	evaluations prometheus.Counter
	outcomes    *prometheus.CounterVec
}

func NewMetricsReporter(reg prometheus.Registerer, populationSize int) *MetricsReporter {
	factory := promauto.With(reg)
	return &MetricsReporter{
		populationSize: populationSize,
		generation: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "generation",
			Help:      "Index of the most recently evaluated generation",
		}),
		bestFitness: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "best_fitness",
			Help:      "Best fitness in the most recently evaluated generation",
		}),
		meanFitness: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mean_fitness",
			Help:      "Mean fitness in the most recently evaluated generation",
		}),
		bestLength: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "best_program_length",
			Help:      "Length of the best program in the most recently evaluated generation",
		}),
		evaluations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Programs executed and scored",
		}),
		outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished runs by outcome",
		}, []string{"outcome"}),
	}
}

// ForPopulation returns a reporter sharing m's collectors that counts
// populationSize evaluations per generation.
func (m *MetricsReporter) ForPopulation(populationSize int) *MetricsReporter {
	clone := *m
	clone.populationSize = populationSize
	return &clone
}

func (m *MetricsReporter) Generation(_ context.Context, record model.GenerationRecord) error {
	m.generation.Set(float64(record.Generation))
	m.bestFitness.Set(float64(record.BestFitness))
	m.meanFitness.Set(record.MeanFitness)
	m.bestLength.Set(float64(record.BestLength))
	m.evaluations.Add(float64(m.populationSize))
	return nil
}

func (m *MetricsReporter) Success(context.Context, model.Replicator) error {
	m.outcomes.WithLabelValues(string(model.OutcomeSuccess)).Inc()
	return nil
}

func (m *MetricsReporter) Exhausted(context.Context, int) error {
	m.outcomes.WithLabelValues(string(model.OutcomeExhausted)).Inc()
	return nil
}
