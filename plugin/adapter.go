// Package plugin mirrors a Pi-hole's summary statistics onto host sensor
// slots and relays the On/Off switch back to the appliance.
package plugin

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/zabeloliver/pihole-adapter/host"
	"github.com/zabeloliver/pihole-adapter/pihole-api/piholeApi"
)

const (
	DefaultPollHeartbeats = 30

	summaryConnection = "Pi-hole"
	recentConnection  = "Pi-hole recent"
)

// Parameters are supplied by the host configuration.
type Parameters struct {
	Address        string
	Port           string
	Token          string
	Debug          bool
	RecentBlocked  bool
	PollHeartbeats int
}

// Adapter implements host.Plugin.
type Adapter struct {
	params   Parameters
	registry host.SensorRegistry
	dialer   host.Dialer
	logger   *zap.SugaredLogger
	level    *zap.AtomicLevel

	summaryConn host.Connection
	recentConn  host.Connection
	headers     map[string]string

	url      string
	runAgain int
	active   bool
	recent   RecentLog
}

// New creates the adapter. level may be nil; when set, the Debug parameter
// lowers it to debug on start.
func New(params Parameters, registry host.SensorRegistry, dialer host.Dialer, logger *zap.SugaredLogger, level *zap.AtomicLevel) *Adapter {
	if params.PollHeartbeats <= 0 {
		params.PollHeartbeats = DefaultPollHeartbeats
	}
	return &Adapter{
		params:   params,
		registry: registry,
		dialer:   dialer,
		logger:   logger,
		level:    level,
	}
}

func (a *Adapter) OnStart() error {
	if a.params.Debug && a.level != nil {
		a.level.SetLevel(zapcore.DebugLevel)
	}
	a.logger.Debug("onStart called")

	for _, d := range summaryDevices {
		if err := a.ensureDevice(d); err != nil {
			return err
		}
	}
	if err := a.reconcileSwitch(); err != nil {
		return err
	}
	if a.params.RecentBlocked {
		if err := a.ensureDevice(recentBlockedDevice); err != nil {
			return err
		}
	}
	a.logger.Info("Devices created.")
	a.dumpConfigToLog()

	a.summaryConn = a.dialer.NewConnection(summaryConnection, a.params.Address, a.params.Port)
	if a.params.RecentBlocked {
		a.recentConn = a.dialer.NewConnection(recentConnection, a.params.Address, a.params.Port)
	}
	a.headers = piholeApi.Headers(a.params.Address, a.params.Port)
	return nil
}

func (a *Adapter) ensureDevice(d host.Device) error {
	if _, ok := a.registry.Device(d.Unit); ok {
		return nil
	}
	if err := a.registry.Create(d); err != nil {
		return fmt.Errorf("create device %q: %w", d.Name, err)
	}
	return nil
}

// reconcileSwitch keeps the On/Off switch only while an API token is set.
func (a *Adapter) reconcileSwitch() error {
	_, exists := a.registry.Device(SwitchUnit)
	switch {
	case a.params.Token == "" && exists:
		a.logger.Info("No API token, removing On/Off switch")
		if err := a.registry.Delete(SwitchUnit); err != nil {
			return fmt.Errorf("delete switch: %w", err)
		}
	case a.params.Token != "" && !exists:
		if err := a.registry.Create(switchDevice); err != nil {
			return fmt.Errorf("create switch: %w", err)
		}
	}
	return nil
}

func (a *Adapter) OnStop() {
	a.logger.Debug("onStop called")
	if a.summaryConn != nil {
		a.summaryConn.Disconnect()
	}
	if a.recentConn != nil {
		a.recentConn.Disconnect()
	}
}

func (a *Adapter) OnConnect(conn host.Connection, status int, description string) {
	a.logger.Debugf("onConnect called for %s (%d): %s", conn.Name(), status, description)
	if status != 0 {
		a.logger.Warnf("Failed to connect to %s:%s (%s): %s", a.params.Address, a.params.Port, conn.Name(), description)
		return
	}

	url := a.url
	if conn.Name() == recentConnection {
		url = piholeApi.RecentBlockedPath()
	}
	if url == "" {
		conn.Disconnect()
		return
	}

	req := host.Request{Verb: http.MethodGet, URL: url, Headers: a.headers}
	a.logger.Debugf("sendData: %+v", req)
	if err := conn.Send(req); err != nil {
		a.logger.Errorf("Send to %s failed: %v", conn.Name(), err)
	}
}

func (a *Adapter) OnMessage(conn host.Connection, msg host.Message) {
	a.logger.Debugf("onMessage called for %s, status %d", conn.Name(), msg.Status)
	if msg.Status != http.StatusOK {
		a.logger.Warnf("Pi-hole returned status %d on %s", msg.Status, conn.Name())
		return
	}

	if conn.Name() == recentConnection {
		a.onRecentBlocked(piholeApi.Text(msg.Data))
		return
	}
	a.onSummary(msg.Data)
}

func (a *Adapter) onSummary(data []byte) {
	a.logger.Debugf("Data: %s", piholeApi.Text(data))
	summary, err := piholeApi.DecodeSummary(data)
	if err != nil {
		a.logger.Errorf("Unreadable summary: %v", err)
		return
	}

	for _, f := range summaryFields {
		v, ok := summary.Lookup(f.key)
		if !ok {
			continue
		}
		a.logger.Debugf("%s: %s", f.key, v.String())
		nValue, sValue := f.transform(a, v)
		a.UpdateDevice(f.unit, nValue, sValue, false, f.force(a))
	}
}

func (a *Adapter) onRecentBlocked(text string) {
	a.logger.Debugf("Recently blocked: %s", text)
	if a.recent.Push(text) {
		a.logger.Debugf("Recently blocked changed to %q", a.recent.current)
	}
	a.UpdateDevice(RecentBlockedUnit, 0, a.recent.Display(), false, true)
}

func (a *Adapter) OnDisconnect(conn host.Connection) {
	a.logger.Debugf("onDisconnect called for %s", conn.Name())
}

func (a *Adapter) OnCommand(unit int, command string, level int) {
	a.logger.Debugf("onCommand called for Unit %d: Parameter '%s', Level: %d", unit, command, level)
	if unit != SwitchUnit {
		return
	}
	// poll the summary on the next heartbeat to pick up the new state
	a.runAgain = 0

	path, ok := piholeApi.TogglePath(command, a.params.Token)
	if !ok {
		if a.params.Token == "" {
			a.logger.Warn("Ignoring switch command, no API token configured")
		} else {
			a.logger.Warnf("Ignoring unknown switch command %q", command)
		}
		return
	}
	a.url = path
	a.summaryConn.Connect()
}

func (a *Adapter) OnHeartbeat() {
	a.logger.Debug("onHeartbeat called")
	a.runAgain--
	if a.runAgain > 0 {
		a.logger.Debugf("onHeartbeat called, run again in %d heartbeats.", a.runAgain)
		return
	}

	a.url = piholeApi.SummaryPath(a.params.Token)
	a.summaryConn.Connect()
	if a.recentConn != nil {
		a.recentConn.Connect()
	}
	a.runAgain = a.params.PollHeartbeats
}

// UpdateDevice pushes a value to the registry when it differs from the
// stored one or when always is set. Missing units are skipped.
func (a *Adapter) UpdateDevice(unit int, nValue int, sValue string, timedOut bool, always bool) {
	d, ok := a.registry.Device(unit)
	if !ok {
		return
	}
	if d.NValue == nValue && d.SValue == sValue && d.TimedOut == timedOut && !always {
		return
	}
	if err := a.registry.Update(unit, nValue, sValue, timedOut); err != nil {
		a.logger.Errorf("Update %s failed: %v", d.Name, err)
		return
	}
	a.logger.Debugf("Update %s: %d - '%s'", d.Name, nValue, sValue)
}

func (a *Adapter) dumpConfigToLog() {
	a.logger.Debugw("Parameters",
		"address", a.params.Address,
		"port", a.params.Port,
		"token", a.params.Token != "",
		"debug", a.params.Debug,
		"recentBlocked", a.params.RecentBlocked,
		"pollHeartbeats", a.params.PollHeartbeats)

	units := a.registry.Units()
	a.logger.Debugf("Device count: %d", len(units))
	for _, u := range units {
		d, _ := a.registry.Device(u)
		a.logger.Debugf("Device %d: '%s' nValue %d sValue '%s'", d.Unit, d.Name, d.NValue, d.SValue)
	}
}
