// Package host is a small home-automation host runtime. It owns the sensor
// registry, the appliance connections and the dispatch loop, and drives a
// Plugin through a fixed set of callbacks.
package host

import (
	"errors"
	"time"
)

var (
	ErrDeviceExists   = errors.New("device already exists")
	ErrDeviceNotFound = errors.New("device not found")
)

// Device is a sensor slot addressed by its unit number.
type Device struct {
	Unit       int
	Name       string
	TypeName   string
	Options    map[string]string
	Used       bool
	NValue     int
	SValue     string
	TimedOut   bool
	LastUpdate time.Time
}

// SensorRegistry stores the sensor slots of a plugin.
type SensorRegistry interface {
	Device(unit int) (Device, bool)
	Units() []int
	Create(d Device) error
	Update(unit int, nValue int, sValue string, timedOut bool) error
	Delete(unit int) error
}

// Observer is notified after every registry change.
type Observer interface {
	DeviceCreated(d Device)
	DeviceUpdated(d Device)
	DeviceDeleted(d Device)
}

// Request is a single HTTP request sent over a Connection.
type Request struct {
	Verb    string
	URL     string
	Headers map[string]string
}

// Message is the response delivered to Plugin.OnMessage.
type Message struct {
	Status  int
	Headers map[string]string
	Data    []byte
}

// Connection is an asynchronous appliance connection. Connect and Send return
// immediately; results arrive as OnConnect, OnMessage and OnDisconnect
// callbacks on the plugin.
type Connection interface {
	Name() string
	Connect()
	Send(req Request) error
	Disconnect()
	Connected() bool
}

// Dialer creates connections bound to the runtime's callback loop.
type Dialer interface {
	NewConnection(name string, address string, port string) Connection
}

// Plugin receives all host callbacks. Every callback runs on the runtime's
// dispatch goroutine.
type Plugin interface {
	OnStart() error
	OnStop()
	OnConnect(conn Connection, status int, description string)
	OnMessage(conn Connection, msg Message)
	OnDisconnect(conn Connection)
	OnCommand(unit int, command string, level int)
	OnHeartbeat()
}
