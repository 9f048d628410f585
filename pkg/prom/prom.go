package prom

import (
	"errors"
	"fmt"
	"sync"

	xhttp "github.com/nimasrn/seva-booking/pkg/http"
	"github.com/nimasrn/seva-booking/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

const (
	SystemPayments  = "payments"
	SystemSlots     = "slots"
	SystemReconcile = "reconcile"
	SystemStream    = "stream"
)

const (
	MetricPaymentsRecorded   = "recorded_total"
	MetricPaymentsAmount     = "amount_total"
	MetricSlotsRejected      = "rejected_total"
	MetricSlotsBooked        = "booked"
	MetricReconcileDrift     = "drift_total"
	MetricReconcileDuration  = "duration_seconds"
	MetricStreamEventsFanout = "fanout_total"
)

var lockCreateMetricLock = &sync.Mutex{}
var namespace = "none"

var MetricSystemEnabled = false

var metricCounterVec = make(map[string]*prometheus.CounterVec)
var metricGaugeVec = make(map[string]*prometheus.GaugeVec)
var metricHistogramVec = make(map[string]*prometheus.HistogramVec)

var defaultLabels prometheus.Labels

// Create registers every metric of the service with the default registry.
func Create(host string, env string, nameSpace string) error {
	defaultLabels = prometheus.Labels{"env": env, "instance": host}
	namespace = nameSpace
	if namespace == "" {
		namespace = "seva"
	}

	var err error
	hasError := func(e error) {
		if err == nil && e != nil {
			err = e
		}
	}

	hasError(createCounterVec(SystemPayments, MetricPaymentsRecorded, "Payments appended to the ledger.", []string{"mode"}))
	hasError(createCounterVec(SystemPayments, MetricPaymentsAmount, "Sum of recorded payment amounts.", []string{"mode"}))
	hasError(createCounterVec(SystemSlots, MetricSlotsRejected, "Bookings rejected because the seva was full.", []string{"seva_id"}))
	hasError(createGaugeVec(SystemSlots, MetricSlotsBooked, "Booked slots per seva as last reconciled.", []string{"seva_id"}))
	hasError(createCounterVec(SystemReconcile, MetricReconcileDrift, "Drift found and repaired by the reconciler.", []string{"kind"}))
	hasError(createHistogramVec(SystemReconcile, MetricReconcileDuration, "Time spent reconciling one change event.", []string{"table"}))
	hasError(createCounterVec(SystemStream, MetricStreamEventsFanout, "Change events delivered to websocket clients.", []string{"table"}))

	if err == nil {
		MetricSystemEnabled = true
	}
	return err
}

func ListenAndServer(addr string, url string) {
	hh := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	s := xhttp.NewServer(xhttp.DefaultServerOption)
	s.GET(url, hh)
	logger.Info("[metrics-server] listening...", "addr", addr, "url", url)
	if err := s.ListenAndServe(addr); err != nil {
		logger.Panic("[metrics-server] http listen error", "error", err)
	}
}

func key(subsystem, name string) string {
	return subsystem + "_" + name
}

func createCounterVec(subsystem, name, help string, labels []string) error {
	lockCreateMetricLock.Lock()
	defer lockCreateMetricLock.Unlock()
	c := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: defaultLabels,
	}, labels)
	existing, err := register(c)
	if err == nil {
		metricCounterVec[key(subsystem, name)] = existing.(*prometheus.CounterVec)
	}
	return err
}

func createGaugeVec(subsystem, name, help string, labels []string) error {
	lockCreateMetricLock.Lock()
	defer lockCreateMetricLock.Unlock()
	g := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: defaultLabels,
	}, labels)
	existing, err := register(g)
	if err == nil {
		metricGaugeVec[key(subsystem, name)] = existing.(*prometheus.GaugeVec)
	}
	return err
}

func createHistogramVec(subsystem, name, help string, labels []string) error {
	lockCreateMetricLock.Lock()
	defer lockCreateMetricLock.Unlock()
	h := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: defaultLabels,
		Buckets:     prometheus.DefBuckets,
	}, labels)
	existing, err := register(h)
	if err == nil {
		metricHistogramVec[key(subsystem, name)] = existing.(*prometheus.HistogramVec)
	}
	return err
}

// register tolerates a second Create in the same process, which happens in tests.
func register(c prometheus.Collector) (prometheus.Collector, error) {
	err := prometheus.Register(c)
	if err == nil {
		return c, nil
	}
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		return already.ExistingCollector, nil
	}
	return nil, fmt.Errorf("register metric: %w", err)
}

func AddCounterVec(subsystem, name string, num float64, labelValues ...string) {
	if !MetricSystemEnabled {
		return
	}
	if v, ok := metricCounterVec[key(subsystem, name)]; ok {
		v.WithLabelValues(labelValues...).Add(num)
		return
	}
	logger.Warn("[metrics-server] counter vec not found", "subsystem", subsystem, "name", name)
}

func IncCounterVec(subsystem, name string, labelValues ...string) {
	AddCounterVec(subsystem, name, 1, labelValues...)
}

func SetGaugeVec(subsystem, name string, num float64, labelValues ...string) {
	if !MetricSystemEnabled {
		return
	}
	if v, ok := metricGaugeVec[key(subsystem, name)]; ok {
		v.WithLabelValues(labelValues...).Set(num)
		return
	}
	logger.Warn("[metrics-server] gauge not found", "subsystem", subsystem, "name", name)
}

func AddHistogramVec(subsystem, name string, number float64, labelValues ...string) {
	if !MetricSystemEnabled {
		return
	}
	if v, ok := metricHistogramVec[key(subsystem, name)]; ok {
		v.WithLabelValues(labelValues...).Observe(number)
		return
	}
	logger.Warn("[metrics-server] histogram vec not found", "subsystem", subsystem, "name", name)
}

func AddPaymentRecorded(mode string, amount float64) {
	IncCounterVec(SystemPayments, MetricPaymentsRecorded, mode)
	AddCounterVec(SystemPayments, MetricPaymentsAmount, amount, mode)
}

func IncSlotRejected(sevaID string) {
	IncCounterVec(SystemSlots, MetricSlotsRejected, sevaID)
}

func SetSlotsBooked(sevaID string, booked int64) {
	SetGaugeVec(SystemSlots, MetricSlotsBooked, float64(booked), sevaID)
}

func IncReconcileDrift(kind string) {
	IncCounterVec(SystemReconcile, MetricReconcileDrift, kind)
}

func AddReconcileDuration(seconds float64, table string) {
	AddHistogramVec(SystemReconcile, MetricReconcileDuration, seconds, table)
}

func IncFanout(table string) {
	IncCounterVec(SystemStream, MetricStreamEventsFanout, table)
}
