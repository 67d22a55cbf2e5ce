package host

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type event func(p Plugin)

// Runtime delivers heartbeats, connection events and commands to a Plugin,
// one at a time, on the goroutine that called Run.
type Runtime struct {
	heartbeat   time.Duration
	dialTimeout time.Duration
	events      chan event
	done        chan struct{}
	ticks       <-chan time.Time
	logger      *zap.SugaredLogger
}

func NewRuntime(heartbeat time.Duration, dialTimeout time.Duration, logger *zap.SugaredLogger) *Runtime {
	return &Runtime{
		heartbeat:   heartbeat,
		dialTimeout: dialTimeout,
		events:      make(chan event, 16),
		done:        make(chan struct{}),
		logger:      logger,
	}
}

// NewConnection implements Dialer.
func (rt *Runtime) NewConnection(name string, address string, port string) Connection {
	return newHTTPConnection(name, address, port, rt.dialTimeout, rt.post, rt.logger)
}

// Command queues a command for the plugin. Safe to call from any goroutine.
func (rt *Runtime) Command(unit int, command string, level int) {
	rt.post(func(p Plugin) { p.OnCommand(unit, command, level) })
}

func (rt *Runtime) post(e event) {
	select {
	case rt.events <- e:
	case <-rt.done:
	}
}

// Run starts the plugin and dispatches callbacks until ctx is done. The
// plugin is stopped before Run returns.
func (rt *Runtime) Run(ctx context.Context, plugin Plugin) error {
	defer close(rt.done)

	if err := plugin.OnStart(); err != nil {
		return err
	}
	defer plugin.OnStop()

	ticks := rt.ticks
	if ticks == nil {
		ticker := time.NewTicker(rt.heartbeat)
		defer ticker.Stop()
		ticks = ticker.C
	}

	rt.logger.Infof("Runtime started, heartbeat every %v", rt.heartbeat)
	for {
		select {
		case <-ctx.Done():
			rt.logger.Info("Runtime stopping")
			return nil
		case <-ticks:
			plugin.OnHeartbeat()
		case e := <-rt.events:
			e(plugin)
		}
	}
}
