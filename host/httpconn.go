package host

import (
	"errors"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

var ErrNotConnected = errors.New("connection not established")

// HTTPConnection reaches an appliance over plain HTTP. A connect is a TCP
// reachability check; each Send performs one request and then reports the
// connection as closed.
type HTTPConnection struct {
	name        string
	address     string
	port        string
	dialTimeout time.Duration
	client      *resty.Client
	post        func(event)
	logger      *zap.SugaredLogger

	mu        sync.Mutex
	connected bool
}

func newHTTPConnection(name, address, port string, dialTimeout time.Duration, post func(event), logger *zap.SugaredLogger) *HTTPConnection {
	client := resty.New().
		SetBaseURL("http://" + net.JoinHostPort(address, port)).
		SetTimeout(2 * dialTimeout)

	return &HTTPConnection{
		name:        name,
		address:     address,
		port:        port,
		dialTimeout: dialTimeout,
		client:      client,
		post:        post,
		logger:      logger,
	}
}

func (c *HTTPConnection) Name() string {
	return c.name
}

func (c *HTTPConnection) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *HTTPConnection) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}

func (c *HTTPConnection) Connect() {
	go func() {
		addr := net.JoinHostPort(c.address, c.port)
		conn, err := net.DialTimeout("tcp", addr, c.dialTimeout)
		if err != nil {
			c.post(func(p Plugin) { p.OnConnect(c, 1, err.Error()) })
			return
		}
		conn.Close()
		c.setConnected(true)
		c.post(func(p Plugin) { p.OnConnect(c, 0, "Connected successfully to "+addr) })
	}()
}

func (c *HTTPConnection) Send(req Request) error {
	if !c.Connected() {
		return ErrNotConnected
	}
	verb := strings.ToUpper(req.Verb)
	if verb == "" {
		verb = resty.MethodGet
	}

	go func() {
		res, err := c.client.R().SetHeaders(req.Headers).Execute(verb, req.URL)
		if err != nil {
			c.logger.Errorf("%s: request %s failed: %v", c.name, req.URL, err)
		} else {
			msg := Message{
				Status:  res.StatusCode(),
				Headers: flattenHeaders(res.Header()),
				Data:    res.Body(),
			}
			c.post(func(p Plugin) { p.OnMessage(c, msg) })
		}
		c.setConnected(false)
		c.post(func(p Plugin) { p.OnDisconnect(c) })
	}()
	return nil
}

// Disconnect marks the connection closed. Requests already in flight still
// deliver their response.
func (c *HTTPConnection) Disconnect() {
	c.setConnected(false)
}

func flattenHeaders(h map[string][]string) map[string]string {
	flat := make(map[string]string, len(h))
	for k, v := range h {
		flat[k] = strings.Join(v, ", ")
	}
	return flat
}
