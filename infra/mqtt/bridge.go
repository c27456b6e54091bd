package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/smartcharge/core/logger"
	"github.com/kilianp07/smartcharge/core/monitoring"
	"github.com/kilianp07/smartcharge/core/snapshot"
	"github.com/kilianp07/smartcharge/core/system"
)

const (
	payloadOnline  = "online"
	payloadOffline = "offline"
	defaultPrefix  = "smartcharge"
	commandTimeout = 90 * time.Second
)

// Command names accepted under <prefix>/<account>/set/.
const (
	CommandTargetSoC     = "target_soc"
	CommandTargetTime    = "target_time"
	CommandBoost         = "boost"
	CommandSmartCharging = "smart_charging"
)

// Controller is the part of system.System the bridge drives.
type Controller interface {
	Status() (system.StatusView, error)
	SetTargetSoC(ctx context.Context, targetSoC int) error
	SetTargetTime(ctx context.Context, readyBy string) error
	StartBoostCharge(ctx context.Context) error
	CancelBoostCharge(ctx context.Context) error
	SetSmartCharging(ctx context.Context, enabled bool) error
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

type command struct {
	name    string
	payload string
}

// Bridge publishes the account status and forwards commands to a Controller.
type Bridge struct {
	cli       pahoClient
	ctrl      Controller
	qos       byte
	base      string
	republish time.Duration
	commands  chan command
	log       logger.Logger
	mon       monitoring.Monitor
}

// NewBridge connects to the broker and subscribes to the command topics of
// account.
func NewBridge(cfg Config, account string, ctrl Controller, log logger.Logger, mon monitoring.Monitor) (*Bridge, error) {
	prefix := strings.Trim(cfg.TopicPrefix, "/")
	if prefix == "" {
		prefix = defaultPrefix
	}
	b := &Bridge{
		ctrl:      ctrl,
		qos:       cfg.QoS,
		base:      prefix + "/" + account,
		republish: time.Duration(cfg.RepublishSeconds) * time.Second,
		commands:  make(chan command, 16),
		log:       logger.OrNop(log),
		mon:       monitoring.OrNop(mon),
	}
	if b.republish <= 0 {
		b.republish = time.Minute
	}
	opts, err := NewClientOptions(cfg, b.AvailabilityTopic())
	if err != nil {
		return nil, err
	}
	opts.OnConnect = func(c paho.Client) {
		b.log.Infof("MQTT connected")
		if token := c.Subscribe(b.base+"/set/+", b.qos, b.onCommand); token.Wait() && token.Error() != nil {
			b.log.Errorf("subscribe error: %v", token.Error())
		}
		c.Publish(b.AvailabilityTopic(), b.qos, true, payloadOnline)
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		b.log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		b.log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	b.cli = c
	return b, nil
}

// StateTopic is where the retained status document is published.
func (b *Bridge) StateTopic() string { return b.base + "/state" }

// AvailabilityTopic carries "online" or "offline".
func (b *Bridge) AvailabilityTopic() string { return b.base + "/availability" }

func (b *Bridge) onCommand(_ paho.Client, msg paho.Message) {
	name := msg.Topic()[strings.LastIndex(msg.Topic(), "/")+1:]
	select {
	case b.commands <- command{name: name, payload: strings.TrimSpace(string(msg.Payload()))}:
	default:
		b.log.Warnf("dropping command %s: queue full", name)
	}
}

// Run publishes the status whenever a snapshot arrives on snapshots and on
// every republish tick, and executes queued commands. It returns when ctx is
// cancelled.
func (b *Bridge) Run(ctx context.Context, snapshots <-chan *snapshot.Snapshot) error {
	defer b.mon.Recover()
	ticker := time.NewTicker(b.republish)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-snapshots:
			if !ok {
				snapshots = nil
				continue
			}
			b.PublishState()
		case <-ticker.C:
			b.PublishState()
		case cmd := <-b.commands:
			if err := b.execute(ctx, cmd); err != nil {
				b.log.Errorf("command %s: %v", cmd.name, err)
				b.mon.CaptureException(err, monitoring.Tags{"module": "mqtt", "command": cmd.name})
			}
		}
	}
}

// PublishState publishes the current status as retained JSON.
func (b *Bridge) PublishState() {
	v, err := b.ctrl.Status()
	if err != nil {
		b.log.Errorf("build status: %v", err)
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		b.log.Errorf("encode status: %v", err)
		return
	}
	token := b.cli.Publish(b.StateTopic(), b.qos, true, payload)
	if token.Wait() && token.Error() != nil {
		b.log.Errorf("publish state: %v", token.Error())
	}
}

func (b *Bridge) execute(ctx context.Context, cmd command) error {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	b.log.Infof("received command %s=%s", cmd.name, cmd.payload)
	switch cmd.name {
	case CommandTargetSoC:
		soc, err := strconv.Atoi(cmd.payload)
		if err != nil {
			return fmt.Errorf("invalid target SOC %q", cmd.payload)
		}
		return b.ctrl.SetTargetSoC(ctx, soc)
	case CommandTargetTime:
		return b.ctrl.SetTargetTime(ctx, cmd.payload)
	case CommandBoost:
		on, err := parseSwitch(cmd.payload)
		if err != nil {
			return err
		}
		if on {
			return b.ctrl.StartBoostCharge(ctx)
		}
		return b.ctrl.CancelBoostCharge(ctx)
	case CommandSmartCharging:
		on, err := parseSwitch(cmd.payload)
		if err != nil {
			return err
		}
		return b.ctrl.SetSmartCharging(ctx, on)
	default:
		return fmt.Errorf("unknown command %q", cmd.name)
	}
}

func parseSwitch(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("invalid switch value %q", s)
}

// Close marks the bridge offline and disconnects.
func (b *Bridge) Close() {
	if b.cli == nil || !b.cli.IsConnected() {
		return
	}
	token := b.cli.Publish(b.AvailabilityTopic(), b.qos, true, payloadOffline)
	token.WaitTimeout(2 * time.Second)
	b.cli.Disconnect(250)
}
