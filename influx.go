package main

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zabeloliver/pihole-adapter/host"
)

const influxQueueSize = 256

// recordWriter is the part of influxdb2's api.WriteAPIBlocking used here.
type recordWriter interface {
	WriteRecord(ctx context.Context, line ...string) error
}

// influxWriter writes every slot update as a line-protocol record. Writes run
// on their own goroutine; observer callbacks only queue the line and drop it
// when the queue is full.
type influxWriter struct {
	api     recordWriter
	timeout time.Duration
	logger  *zap.SugaredLogger

	lines chan string
	wg    sync.WaitGroup
	once  sync.Once
}

func newInfluxWriter(api recordWriter, timeout time.Duration, queueSize int, logger *zap.SugaredLogger) *influxWriter {
	w := &influxWriter{
		api:     api,
		timeout: timeout,
		logger:  logger,
		lines:   make(chan string, queueSize),
	}
	w.wg.Add(1)
	go w.run()
	return w
}

func (w *influxWriter) run() {
	defer w.wg.Done()
	for line := range w.lines {
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		if err := w.api.WriteRecord(ctx, line); err != nil {
			w.logger.Errorf("Influx write failed: %v", err)
		}
		cancel()
	}
}

// Close stops accepting updates and waits for queued lines to be written.
func (w *influxWriter) Close() {
	w.once.Do(func() { close(w.lines) })
	w.wg.Wait()
}

var (
	tagEscaper    = strings.NewReplacer(",", `\,`, "=", `\=`, " ", `\ `)
	stringEscaper = strings.NewReplacer(`"`, `\"`, `\`, `\\`)
)

func influxLine(d host.Device) string {
	return fmt.Sprintf("pihole_sensor,unit=%d,name=%s value=%di,text=\"%s\",timed_out=%t %d",
		d.Unit,
		tagEscaper.Replace(d.Name),
		d.NValue,
		stringEscaper.Replace(d.SValue),
		d.TimedOut,
		d.LastUpdate.UTC().UnixNano())
}

func (w *influxWriter) DeviceCreated(host.Device) {}
func (w *influxWriter) DeviceDeleted(host.Device) {}

func (w *influxWriter) DeviceUpdated(d host.Device) {
	line := influxLine(d)
	w.logger.Debug(line)

	select {
	case w.lines <- line:
	default:
		w.logger.Warnf("Influx queue full, dropping update for unit %d", d.Unit)
	}
}
