package plugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/zabeloliver/pihole-adapter/host"
)

const summaryDoc = `{
  "domains_being_blocked":106541,
  "dns_queries_today":9795,
  "ads_blocked_today":2371,
  "ads_percentage_today":24.206228,
  "unique_domains":1477,
  "queries_forwarded":4705,
  "queries_cached":2420,
  "clients_ever_seen":8,
  "unique_clients":8,
  "status":"enabled"
}`

type fakeConn struct {
	name      string
	connects  int
	sent      []host.Request
	connected bool
}

func (c *fakeConn) Name() string    { return c.name }
func (c *fakeConn) Connect()        { c.connects++ }
func (c *fakeConn) Connected() bool { return c.connected }
func (c *fakeConn) Disconnect()     { c.connected = false }
func (c *fakeConn) Send(req host.Request) error {
	c.sent = append(c.sent, req)
	return nil
}

type fakeDialer struct {
	conns map[string]*fakeConn
}

func (d *fakeDialer) NewConnection(name string, address string, port string) host.Connection {
	c := &fakeConn{name: name}
	d.conns[name] = c
	return c
}

type updateCounter struct {
	updates map[int]int
}

func (u *updateCounter) DeviceCreated(host.Device) {}
func (u *updateCounter) DeviceDeleted(host.Device) {}
func (u *updateCounter) DeviceUpdated(d host.Device) {
	u.updates[d.Unit]++
}

type fixture struct {
	adapter  *Adapter
	registry *host.MemoryRegistry
	dialer   *fakeDialer
	counter  *updateCounter
}

func newFixture(t *testing.T, params Parameters) *fixture {
	t.Helper()
	counter := &updateCounter{updates: map[int]int{}}
	registry := host.NewMemoryRegistry(counter)
	dialer := &fakeDialer{conns: map[string]*fakeConn{}}
	if params.Address == "" {
		params.Address = "pi.hole"
		params.Port = "80"
	}
	a := New(params, registry, dialer, zap.NewNop().Sugar(), nil)
	require.NoError(t, a.OnStart())
	return &fixture{adapter: a, registry: registry, dialer: dialer, counter: counter}
}

func (f *fixture) summary() *fakeConn { return f.dialer.conns[summaryConnection] }
func (f *fixture) recent() *fakeConn  { return f.dialer.conns[recentConnection] }

func (f *fixture) device(t *testing.T, unit int) host.Device {
	t.Helper()
	d, ok := f.registry.Device(unit)
	require.True(t, ok, "unit %d missing", unit)
	return d
}

func TestOnStart_CreatesDevices(t *testing.T) {
	f := newFixture(t, Parameters{})

	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9}, f.registry.Units())
	assert.True(t, f.device(t, AdsPercentageUnit).Used)
	assert.False(t, f.device(t, UniqueDomainsUnit).Used)
	assert.Equal(t, "1;%", f.device(t, AdsPercentageUnit).Options["Custom"])
	assert.NotNil(t, f.summary())
	assert.Nil(t, f.recent())
}

func TestOnStart_SwitchWithToken(t *testing.T) {
	f := newFixture(t, Parameters{Token: "T", RecentBlocked: true})

	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}, f.registry.Units())
	assert.Equal(t, "Switch", f.device(t, SwitchUnit).TypeName)
	assert.NotNil(t, f.recent())
}

func TestOnStart_IsIdempotent(t *testing.T) {
	registry := host.NewMemoryRegistry()
	dialer := &fakeDialer{conns: map[string]*fakeConn{}}
	params := Parameters{Address: "pi.hole", Port: "80", Token: "T"}

	require.NoError(t, New(params, registry, dialer, zap.NewNop().Sugar(), nil).OnStart())
	require.NoError(t, registry.Update(DnsQueriesUnit, 5, "5", false))
	require.NoError(t, New(params, registry, dialer, zap.NewNop().Sugar(), nil).OnStart())

	d, _ := registry.Device(DnsQueriesUnit)
	assert.Equal(t, "5", d.SValue)
	assert.Len(t, registry.Units(), 10)
}

func TestOnStart_RemovesSwitchWithoutToken(t *testing.T) {
	registry := host.NewMemoryRegistry()
	dialer := &fakeDialer{conns: map[string]*fakeConn{}}

	require.NoError(t, New(Parameters{Token: "T"}, registry, dialer, zap.NewNop().Sugar(), nil).OnStart())
	_, ok := registry.Device(SwitchUnit)
	require.True(t, ok)

	require.NoError(t, New(Parameters{}, registry, dialer, zap.NewNop().Sugar(), nil).OnStart())
	_, ok = registry.Device(SwitchUnit)
	assert.False(t, ok)
}

func TestOnStart_DebugLowersLevel(t *testing.T) {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	a := New(Parameters{Debug: true}, host.NewMemoryRegistry(), &fakeDialer{conns: map[string]*fakeConn{}}, zap.NewNop().Sugar(), &level)
	require.NoError(t, a.OnStart())
	assert.Equal(t, zapcore.DebugLevel, level.Level())
}

func TestOnMessage_Summary(t *testing.T) {
	f := newFixture(t, Parameters{Token: "T"})
	f.adapter.OnMessage(f.summary(), host.Message{Status: 200, Data: []byte(summaryDoc)})

	want := map[int]struct {
		n int
		s string
	}{
		DomainsBlockedUnit:   {106541, "106541"},
		DnsQueriesUnit:       {9795, "9795"},
		AdsBlockedUnit:       {2371, "2371"},
		AdsPercentageUnit:    {24, "24.21"},
		UniqueDomainsUnit:    {1477, "1477"},
		QueriesForwardedUnit: {4705, "4705"},
		QueriesCachedUnit:    {2420, "2420"},
		ClientsEverSeenUnit:  {8, "8"},
		UniqueClientsUnit:    {8, "8"},
		SwitchUnit:           {1, "On"},
	}
	for unit, w := range want {
		d := f.device(t, unit)
		assert.Equal(t, w.n, d.NValue, "unit %d", unit)
		assert.Equal(t, w.s, d.SValue, "unit %d", unit)
	}
}

func TestOnMessage_Disabled(t *testing.T) {
	f := newFixture(t, Parameters{Token: "T"})
	doc := `{"domains_being_blocked":"N/A","dns_queries_today":12,"status":"disabled"}`
	f.adapter.OnMessage(f.summary(), host.Message{Status: 200, Data: []byte(doc)})

	sw := f.device(t, SwitchUnit)
	assert.Equal(t, 0, sw.NValue)
	assert.Equal(t, "Off", sw.SValue)

	blocked := f.device(t, DomainsBlockedUnit)
	assert.Equal(t, 0, blocked.NValue)
	assert.Equal(t, "0", blocked.SValue)

	assert.Equal(t, 12, f.device(t, DnsQueriesUnit).NValue)
}

func TestOnMessage_PartialDocument(t *testing.T) {
	f := newFixture(t, Parameters{})
	f.adapter.OnMessage(f.summary(), host.Message{Status: 200, Data: []byte(`{"dns_queries_today":42}`)})

	assert.Equal(t, "42", f.device(t, DnsQueriesUnit).SValue)
	assert.Equal(t, 0, f.counter.updates[AdsBlockedUnit])
	assert.Equal(t, 1, f.counter.updates[DnsQueriesUnit])
}

func TestOnMessage_IgnoresErrors(t *testing.T) {
	f := newFixture(t, Parameters{})
	f.adapter.OnMessage(f.summary(), host.Message{Status: 500, Data: []byte(summaryDoc)})
	f.adapter.OnMessage(f.summary(), host.Message{Status: 200, Data: []byte("<html>oops</html>")})

	assert.Empty(t, f.counter.updates)
}

func TestOnMessage_ForcedUpdates(t *testing.T) {
	f := newFixture(t, Parameters{Token: "T"})
	msg := host.Message{Status: 200, Data: []byte(summaryDoc)}
	f.adapter.OnMessage(f.summary(), msg)
	f.adapter.OnMessage(f.summary(), msg)

	// unchanged values only push again when forced
	assert.Equal(t, 1, f.counter.updates[DnsQueriesUnit])
	assert.Equal(t, 1, f.counter.updates[QueriesCachedUnit])
	assert.Equal(t, 2, f.counter.updates[DomainsBlockedUnit])
	assert.Equal(t, 2, f.counter.updates[AdsPercentageUnit])
	assert.Equal(t, 2, f.counter.updates[ClientsEverSeenUnit])
	assert.Equal(t, 2, f.counter.updates[UniqueClientsUnit])
	assert.Equal(t, 2, f.counter.updates[SwitchUnit])
}

func TestOnMessage_DisabledSwitchNotForced(t *testing.T) {
	f := newFixture(t, Parameters{Token: "T"})
	msg := host.Message{Status: 200, Data: []byte(`{"status":"disabled"}`)}
	f.adapter.OnMessage(f.summary(), msg)
	f.adapter.OnMessage(f.summary(), msg)

	assert.Equal(t, 1, f.counter.updates[SwitchUnit])
}

func TestOnMessage_RecentBlocked(t *testing.T) {
	f := newFixture(t, Parameters{RecentBlocked: true})
	send := func(body string) string {
		f.adapter.OnMessage(f.recent(), host.Message{Status: 200, Data: []byte(body)})
		return f.device(t, RecentBlockedUnit).SValue
	}

	assert.Equal(t, "A<br/>", send("A"))
	assert.Equal(t, "A<br/>", send("A"))
	assert.Equal(t, "B<br/>A", send("B"))
	assert.Equal(t, "C<br/>B", send("C\n"))
	assert.Equal(t, 4, f.counter.updates[RecentBlockedUnit])
}

func TestUpdateDevice(t *testing.T) {
	f := newFixture(t, Parameters{})

	f.adapter.UpdateDevice(DnsQueriesUnit, 1, "1", false, false)
	f.adapter.UpdateDevice(DnsQueriesUnit, 1, "1", false, false)
	assert.Equal(t, 1, f.counter.updates[DnsQueriesUnit])

	f.adapter.UpdateDevice(DnsQueriesUnit, 1, "1", true, false)
	assert.Equal(t, 2, f.counter.updates[DnsQueriesUnit])
	assert.True(t, f.device(t, DnsQueriesUnit).TimedOut)

	f.adapter.UpdateDevice(DnsQueriesUnit, 1, "1", true, true)
	assert.Equal(t, 3, f.counter.updates[DnsQueriesUnit])

	f.adapter.UpdateDevice(SwitchUnit, 1, "On", false, true)
	assert.Equal(t, 0, f.counter.updates[SwitchUnit])
}

func TestOnHeartbeat_Countdown(t *testing.T) {
	f := newFixture(t, Parameters{RecentBlocked: true, PollHeartbeats: 3})

	f.adapter.OnHeartbeat()
	assert.Equal(t, 1, f.summary().connects)
	assert.Equal(t, 1, f.recent().connects)

	f.adapter.OnHeartbeat()
	f.adapter.OnHeartbeat()
	assert.Equal(t, 1, f.summary().connects)

	f.adapter.OnHeartbeat()
	assert.Equal(t, 2, f.summary().connects)
	assert.Equal(t, 2, f.recent().connects)
}

func TestOnConnect_SendsPendingURL(t *testing.T) {
	f := newFixture(t, Parameters{Token: "T", RecentBlocked: true})
	f.adapter.OnHeartbeat()

	f.adapter.OnConnect(f.summary(), 0, "ok")
	f.adapter.OnConnect(f.recent(), 0, "ok")

	require.Len(t, f.summary().sent, 1)
	assert.Equal(t, "/admin/api.php?summaryRaw&auth=T", f.summary().sent[0].URL)
	assert.Equal(t, "GET", f.summary().sent[0].Verb)
	assert.Equal(t, "pi.hole:80", f.summary().sent[0].Headers["Host"])

	require.Len(t, f.recent().sent, 1)
	assert.Equal(t, "/admin/api.php?recentBlocked", f.recent().sent[0].URL)
}

func TestOnConnect_Failure(t *testing.T) {
	f := newFixture(t, Parameters{})
	f.adapter.OnHeartbeat()
	f.adapter.OnConnect(f.summary(), 1, "connection refused")

	assert.Empty(t, f.summary().sent)
}

func TestOnCommand(t *testing.T) {
	f := newFixture(t, Parameters{Token: "T", PollHeartbeats: 5})
	f.adapter.OnHeartbeat()
	f.adapter.OnHeartbeat()

	f.adapter.OnCommand(SwitchUnit, "On", 0)
	assert.Equal(t, 2, f.summary().connects)
	f.adapter.OnConnect(f.summary(), 0, "ok")
	require.Len(t, f.summary().sent, 1)
	assert.Equal(t, "/admin/api.php?enable&auth=T", f.summary().sent[0].URL)

	// the command pulls the next summary poll forward
	f.adapter.OnHeartbeat()
	assert.Equal(t, 3, f.summary().connects)

	f.adapter.OnCommand(SwitchUnit, "Off", 0)
	f.adapter.OnConnect(f.summary(), 0, "ok")
	assert.Equal(t, "/admin/api.php?disable&auth=T", f.summary().sent[1].URL)
}

func TestOnCommand_Ignored(t *testing.T) {
	f := newFixture(t, Parameters{})
	f.adapter.OnCommand(SwitchUnit, "On", 0)
	assert.Equal(t, 0, f.summary().connects)

	f = newFixture(t, Parameters{Token: "T"})
	f.adapter.OnCommand(SwitchUnit, "Set Level", 50)
	f.adapter.OnCommand(DnsQueriesUnit, "On", 0)
	assert.Equal(t, 0, f.summary().connects)
}

func TestOnStop_Disconnects(t *testing.T) {
	f := newFixture(t, Parameters{RecentBlocked: true})
	f.summary().connected = true
	f.recent().connected = true

	f.adapter.OnStop()
	assert.False(t, f.summary().Connected())
	assert.False(t, f.recent().Connected())
}

func TestOnCommand_IgnoredCommandStillPullsPollForward(t *testing.T) {
	f := newFixture(t, Parameters{PollHeartbeats: 5})
	f.adapter.OnHeartbeat()
	f.adapter.OnHeartbeat()
	assert.Equal(t, 1, f.summary().connects)

	// no token: nothing is sent, but the next heartbeat polls
	f.adapter.OnCommand(SwitchUnit, "On", 0)
	assert.Equal(t, 1, f.summary().connects)
	f.adapter.OnHeartbeat()
	assert.Equal(t, 2, f.summary().connects)

	f = newFixture(t, Parameters{Token: "T", PollHeartbeats: 5})
	f.adapter.OnHeartbeat()
	f.adapter.OnCommand(SwitchUnit, "Set Level", 50)
	f.adapter.OnHeartbeat()
	assert.Equal(t, 2, f.summary().connects)

	// other units leave the countdown alone
	f.adapter.OnCommand(DnsQueriesUnit, "On", 0)
	f.adapter.OnHeartbeat()
	assert.Equal(t, 2, f.summary().connects)
}
