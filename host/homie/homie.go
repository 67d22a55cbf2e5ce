// Package homie mirrors host sensor slots onto MQTT, loosely following the
// Homie topic layout, and turns messages on <unit>/set into host commands.
package homie

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/zabeloliver/pihole-adapter/host"
)

const (
	mqttClientIDPrefix = "pihole-adapter"
	DefaultTopicBase   = "homie"
	publishTimeout     = 5 * time.Second
)

// CommandFunc receives commands published to a unit's set topic.
type CommandFunc func(unit int, command string, level int)

type Mirror struct {
	client    mqtt.Client
	topicBase string
	deviceID  string
	logger    *zap.SugaredLogger
}

// NewClient builds a paho client that reconnects on its own and leaves a
// "lost" will on the device state topic.
func NewClient(broker string, topicBase string, deviceID string) mqtt.Client {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(mqttClientIDPrefix + "-" + deviceID)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(time.Minute)
	opts.SetOrderMatters(false)
	opts.SetWill(topicBase+"/"+deviceID+"/$state", "lost", 1, true)
	return mqtt.NewClient(opts)
}

func NewMirror(client mqtt.Client, topicBase string, deviceID string, logger *zap.SugaredLogger) *Mirror {
	if topicBase == "" {
		topicBase = DefaultTopicBase
	}
	return &Mirror{
		client:    client,
		topicBase: topicBase,
		deviceID:  deviceID,
		logger:    logger,
	}
}

func (m *Mirror) topic(parts ...string) string {
	return m.topicBase + "/" + m.deviceID + "/" + strings.Join(parts, "/")
}

// Start connects to the broker and subscribes to the set topics. Commands
// are handed to fn.
func (m *Mirror) Start(fn CommandFunc) error {
	t := m.client.Connect()
	if !t.WaitTimeout(publishTimeout) {
		return fmt.Errorf("mqtt connect: timeout after %v", publishTimeout)
	}
	if err := t.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}

	t = m.client.Subscribe(m.topic("+", "set"), 1, func(_ mqtt.Client, msg mqtt.Message) {
		m.handleSet(msg, fn)
	})
	t.Wait()
	if err := t.Error(); err != nil {
		return fmt.Errorf("mqtt subscribe: %w", err)
	}

	m.publish(m.topic("$state"), "ready")
	m.logger.Infof("MQTT mirror publishing under %s", m.topic())
	return nil
}

func (m *Mirror) Stop() {
	m.publish(m.topic("$state"), "disconnected")
	m.client.Disconnect(250)
}

func (m *Mirror) handleSet(msg mqtt.Message, fn CommandFunc) {
	rest := strings.TrimPrefix(msg.Topic(), m.topic())
	unit, err := strconv.Atoi(strings.TrimSuffix(rest, "/set"))
	if err != nil {
		m.logger.Warnf("Ignoring set on %s", msg.Topic())
		return
	}
	command := commandFromPayload(string(msg.Payload()))
	m.logger.Infof("MQTT command for unit %d: %s", unit, command)
	fn(unit, command, 0)
}

// commandFromPayload accepts Homie booleans as well as On/Off.
func commandFromPayload(payload string) string {
	switch strings.ToLower(strings.TrimSpace(payload)) {
	case "true", "on", "1":
		return "On"
	case "false", "off", "0":
		return "Off"
	}
	return strings.TrimSpace(payload)
}

func (m *Mirror) publish(topic string, payload string) {
	t := m.client.Publish(topic, 1, true, payload)
	go func() {
		t.WaitTimeout(publishTimeout)
		if err := t.Error(); err != nil {
			m.logger.Errorf("Publish %s failed: %v", topic, err)
		}
	}()
}

func (m *Mirror) DeviceCreated(d host.Device) {
	unit := strconv.Itoa(d.Unit)
	m.publish(m.topic(unit, "$name"), d.Name)
	m.publish(m.topic(unit, "$type"), d.TypeName)
	m.DeviceUpdated(d)
}

func (m *Mirror) DeviceUpdated(d host.Device) {
	unit := strconv.Itoa(d.Unit)
	m.publish(m.topic(unit, "value"), d.SValue)
	m.publish(m.topic(unit, "nvalue"), strconv.Itoa(d.NValue))
}

// DeviceDeleted clears the retained topics of the unit.
func (m *Mirror) DeviceDeleted(d host.Device) {
	unit := strconv.Itoa(d.Unit)
	for _, leaf := range []string{"$name", "$type", "value", "nvalue"} {
		m.publish(m.topic(unit, leaf), "")
	}
}
