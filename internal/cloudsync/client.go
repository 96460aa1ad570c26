package cloudsync

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"cloudpico-station/internal/config"
	"cloudpico-station/internal/station"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	publishTimeout   = 5 * time.Second
	subscribeTimeout = 5 * time.Second
	inboundQueueSize = 16

	connectRetryInterval = 5 * time.Second
	maxReconnectInterval = 60 * time.Second
	keepAlive            = 30 * time.Second
	pingTimeout          = 10 * time.Second
)

// Callbacks fire after an inbound cloud write has been applied to the state.
// Nil entries are skipped.
type Callbacks struct {
	OnAirQualityChange    func()
	OnLocalTempChange     func()
	OnLocalPressureChange func()
	OnWebDataChange       func()
}

// PropertyMessage is the retained payload published for each property.
type PropertyMessage struct {
	Name      string    `json:"name"`
	Value     any       `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

type propertyWrite struct {
	name  string
	value json.RawMessage
}

// Client syncs station properties over MQTT. Update must be called from a
// single goroutine; paho callbacks only touch the connection flag and the
// inbound queue.
type Client struct {
	client    mqtt.Client
	cfg       config.Config
	logger    *slog.Logger
	mu        sync.RWMutex
	connected bool

	callbacks map[string]func()
	published map[string]any
	resync    atomic.Bool
	inbound   chan propertyWrite
	now       func() time.Time
}

func New(cfg config.Config, logger *slog.Logger) *Client {
	c := newClient(cfg, logger)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTTBroker, cfg.MQTTPort))
	opts.SetClientID(cfg.MQTTClientID)
	if cfg.MQTTUsername != "" {
		opts.SetUsername(cfg.MQTTUsername)
		opts.SetPassword(cfg.MQTTPassword)
	}

	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(connectRetryInterval)
	opts.SetMaxReconnectInterval(maxReconnectInterval)
	opts.SetKeepAlive(keepAlive)
	opts.SetPingTimeout(pingTimeout)

	opts.SetOnConnectHandler(func(mc mqtt.Client) { c.onConnect(mc) })
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) { c.onConnectionLost(err) })

	c.client = mqtt.NewClient(opts)
	return c
}

func newClient(cfg config.Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:       cfg,
		logger:    logger,
		callbacks: make(map[string]func()),
		published: make(map[string]any),
		inbound:   make(chan propertyWrite, inboundQueueSize),
		now:       time.Now,
	}
}

// InitProperties registers the change callbacks for the four properties.
func (c *Client) InitProperties(cb Callbacks) {
	c.callbacks[station.PropAirQuality] = cb.OnAirQualityChange
	c.callbacks[station.PropLocalTemp] = cb.OnLocalTempChange
	c.callbacks[station.PropLocalPressure] = cb.OnLocalPressureChange
	c.callbacks[station.PropWebData] = cb.OnWebDataChange
}

// Begin starts connecting in the background. Paho keeps retrying until the
// broker answers or ctx is done; Connected reports the outcome.
func (c *Client) Begin(ctx context.Context) {
	token := c.client.Connect()
	go func() {
		select {
		case <-token.Done():
			if err := token.Error(); err != nil {
				c.logger.Error("mqtt connect failed", "error", err)
			}
		case <-ctx.Done():
		}
	}()
}

// Update applies pending cloud writes, then publishes every property whose
// value differs from the last one the broker accepted.
func (c *Client) Update(s *station.State) {
	c.applyInbound(s)

	if !c.Connected() {
		return
	}
	if c.resync.Swap(false) {
		clear(c.published)
	}

	for _, p := range s.Properties() {
		if last, ok := c.published[p.Name]; ok && last == p.Value {
			continue
		}
		if err := c.publish(p); err != nil {
			c.logger.Warn("property publish failed", "property", p.Name, "error", err)
			continue
		}
		c.published[p.Name] = p.Value
	}
}

func (c *Client) applyInbound(s *station.State) {
	for {
		select {
		case w := <-c.inbound:
			if err := s.SetProperty(w.name, w.value); err != nil {
				c.logger.Warn("rejected property write", "property", w.name, "error", err)
				continue
			}
			// The broker already holds this value; do not echo it back.
			if v, ok := s.Value(w.name); ok {
				c.published[w.name] = v
			}
			if cb := c.callbacks[w.name]; cb != nil {
				cb()
			}
			c.logger.Debug("applied property write", "property", w.name)
		default:
			return
		}
	}
}

func (c *Client) publish(p station.Property) error {
	topic := c.propertyTopic(p.Name)

	data, err := json.Marshal(PropertyMessage{
		Name:      p.Name,
		Value:     p.Value,
		Timestamp: c.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", p.Name, err)
	}

	token := c.client.Publish(topic, 1, true, data) // retained
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish timeout for topic %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}

	c.logger.Debug("published property", "topic", topic, "value", p.Value)
	return nil
}

// Connected reports whether the broker session is up.
func (c *Client) Connected() bool {
	c.mu.RLock()
	connected := c.connected
	c.mu.RUnlock()
	return connected && c.client.IsConnected()
}

// PrintDebugInfo logs the connection settings and topics.
func (c *Client) PrintDebugInfo() {
	c.logger.Info("cloud sync settings",
		"broker", c.cfg.MQTTBroker,
		"port", c.cfg.MQTTPort,
		"client_id", c.cfg.MQTTClientID,
		"station_id", c.cfg.DeviceStationID,
		"auth", c.cfg.MQTTUsername != "",
		"publish_topic", c.propertyTopic("+"),
		"write_topic", c.writeFilter(),
	)
}

// Close disconnects from the broker. Safe to call more than once.
func (c *Client) Close() {
	if c.client != nil {
		c.client.Disconnect(250)
	}
	c.setConnected(false)
	c.logger.Info("mqtt disconnected")
}

func (c *Client) onConnect(mc mqtt.Client) {
	c.setConnected(true)
	c.logger.Info("mqtt connected", "broker", c.cfg.MQTTBroker, "port", c.cfg.MQTTPort)

	// Clean sessions drop subscriptions, so subscribe on every (re)connect.
	// Waiting here would block paho's connect path.
	token := mc.Subscribe(c.writeFilter(), 1, func(_ mqtt.Client, msg mqtt.Message) {
		c.handleWrite(msg.Topic(), msg.Payload())
	})
	go func() {
		if !token.WaitTimeout(subscribeTimeout) {
			c.logger.Warn("subscribe timeout", "topic", c.writeFilter())
			return
		}
		if err := token.Error(); err != nil {
			c.logger.Warn("subscribe failed", "topic", c.writeFilter(), "error", err)
		}
	}()
}

func (c *Client) onConnectionLost(err error) {
	c.setConnected(false)
	// Republish every property after the next connect.
	c.resync.Store(true)
	c.logger.Warn("mqtt connection lost", "error", err)
}

// handleWrite runs on a paho goroutine and only queues the write.
func (c *Client) handleWrite(topic string, payload []byte) {
	name, ok := c.propertyFromWriteTopic(topic)
	if !ok {
		c.logger.Debug("ignoring message", "topic", topic)
		return
	}

	var msg struct {
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(payload, &msg); err != nil || len(msg.Value) == 0 {
		c.logger.Warn("invalid property write", "topic", topic, "payload", string(payload))
		return
	}

	select {
	case c.inbound <- propertyWrite{name: name, value: msg.Value}:
	default:
		c.logger.Warn("property write dropped, queue full", "property", name)
	}
}

func (c *Client) propertyTopic(name string) string {
	return fmt.Sprintf("stations/%s/properties/%s", c.cfg.DeviceStationID, name)
}

func (c *Client) writeFilter() string {
	return c.propertyTopic("+") + "/set"
}

func (c *Client) propertyFromWriteTopic(topic string) (string, bool) {
	prefix := c.propertyTopic("")
	if !strings.HasPrefix(topic, prefix) || !strings.HasSuffix(topic, "/set") {
		return "", false
	}
	name := strings.TrimSuffix(strings.TrimPrefix(topic, prefix), "/set")
	if name == "" || strings.Contains(name, "/") {
		return "", false
	}
	return name, true
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}
