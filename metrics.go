package main

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/zabeloliver/pihole-adapter/host"
)

// metrics mirrors every sensor slot onto Prometheus.
type metrics struct {
	sensorValue    *prometheus.GaugeVec
	sensorTimedOut *prometheus.GaugeVec
	sensorUpdates  *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		sensorValue: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pihole_sensor_value",
				Help: "Current numeric value of a sensor slot.",
			},
			[]string{"unit", "name"}),
		sensorTimedOut: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pihole_sensor_timed_out",
				Help: "1 if the sensor slot is flagged as stale.",
			},
			[]string{"unit", "name"},
		),
		sensorUpdates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pihole_sensor_updates_total",
				Help: "Number of updates pushed to a sensor slot.",
			},
			[]string{"unit", "name"},
		),
	}
	reg.MustRegister(m.sensorValue)
	reg.MustRegister(m.sensorTimedOut)
	reg.MustRegister(m.sensorUpdates)
	return m
}

func labels(d host.Device) []string {
	return []string{strconv.Itoa(d.Unit), d.Name}
}

func (m *metrics) set(d host.Device) {
	m.sensorValue.WithLabelValues(labels(d)...).Set(float64(d.NValue))
	timedOut := 0.0
	if d.TimedOut {
		timedOut = 1
	}
	m.sensorTimedOut.WithLabelValues(labels(d)...).Set(timedOut)
}

func (m *metrics) DeviceCreated(d host.Device) {
	m.set(d)
}

func (m *metrics) DeviceUpdated(d host.Device) {
	m.set(d)
	m.sensorUpdates.WithLabelValues(labels(d)...).Inc()
}

func (m *metrics) DeviceDeleted(d host.Device) {
	m.sensorValue.DeleteLabelValues(labels(d)...)
	m.sensorTimedOut.DeleteLabelValues(labels(d)...)
	m.sensorUpdates.DeleteLabelValues(labels(d)...)
}
