package clientmqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"pixelbridge/internal/logger"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// ClientMQTT структура клиента MQTT.
type ClientMQTT struct {
	ctx       context.Context
	log       logger.Logger
	cfgClient MQTTConf
	client    mqtt.Client
	opts      *mqtt.ClientOptions
	events    chan<- Event
	status    func() interface{}
	wg        sync.WaitGroup
}

// NewClient конструктор.
func NewClient(log logger.Logger, cfgClient MQTTConf) *ClientMQTT {
	if cfgClient.Schema == "" {
		cfgClient.Schema = "tcp"
	}
	return &ClientMQTT{
		log:       log,
		cfgClient: cfgClient,
	}
}

// Start connects to the broker, subscribes to the data and command topics and
// publishes status snapshots from status every StatusInterval.
func (c *ClientMQTT) Start(ctx context.Context, events chan<- Event, status func() interface{}) error {
	// TODO перенаправить в logger
	if c.log.GetLevel() == "debug" || c.log.GetLevel() == "trace" {
		mqtt.ERROR = log.New(os.Stdout, "[ERROR] ", 0)
		mqtt.CRITICAL = log.New(os.Stdout, "[CRIT] ", 0)
		mqtt.WARN = log.New(os.Stdout, "[WARN]  ", 0)
	}

	c.ctx = ctx
	c.events = events
	c.status = status

	c.opts = mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("%s://%s:%s", c.cfgClient.Schema, c.cfgClient.Host, c.cfgClient.Port)).
		SetUsername(c.cfgClient.User).
		SetPassword(c.cfgClient.Password).
		SetDefaultPublishHandler(c.messageHandler).
		SetOnConnectHandler(c.connectHandler).
		SetConnectionLostHandler(c.connectLostHandler).
		SetClientID(c.cfgClient.ClientID).
		SetOrderMatters(false).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetMaxReconnectInterval(5 * time.Second).
		SetKeepAlive(30 * time.Second).
		SetWill(c.topic(topicStatus), `{"online":false}`, c.cfgClient.Qos, true)

	c.client = mqtt.NewClient(c.opts)

	token := c.client.Connect()
	select {
	case <-token.Done():
		if token.Error() != nil {
			return token.Error()
		}
	case <-c.ctx.Done():
		return errors.New("context canceled")
	}

	c.log.With(logger.Fields{"module": "mqtt"}).Infof("Status: %v", c.client.IsConnected())

	if c.status != nil && c.cfgClient.StatusInterval > 0 {
		c.wg.Add(1)
		go c.statusBackground()
	}
	return nil
}

func (c *ClientMQTT) Stop() error {
	c.wg.Wait()
	if c.client != nil && c.client.IsConnected() {
		c.client.Disconnect(500)
	}
	return nil
}

func (c *ClientMQTT) topic(leaf string) string {
	return strings.TrimSuffix(c.cfgClient.Topic, "/") + "/" + leaf
}

// connectHandler (re)subscribes on every connect; the session is clean.
func (c *ClientMQTT) connectHandler(_ mqtt.Client) {
	c.log.With(logger.Fields{"module": "mqtt"}).Info("client connected to server")
	c.sub(c.topic(topicDMX))
	c.sub(c.topic(topicSet))
}

func (c *ClientMQTT) connectLostHandler(_ mqtt.Client, err error) {
	c.log.With(logger.Fields{"module": "mqtt"}).Errorf("server connect lost: %v\n", err)
}

func (c *ClientMQTT) messageHandler(_ mqtt.Client, msg mqtt.Message) {
	c.log.With(logger.Fields{"module": "mqtt"}).Debugf("received message: %s from topic: %s", msg.Payload(), msg.Topic())
	ev, err := c.parse(msg.Topic(), msg.Payload())
	if err != nil {
		c.log.With(logger.Fields{"module": "mqtt"}).Errorf("message could not be parsed (%s): %v\n", msg.Payload(), err)
		return
	}
	c.deliver(ev)
}

func (c *ClientMQTT) parse(topic string, payload []byte) (Event, error) {
	ev := Event{At: time.Now()}
	switch topic {
	case c.topic(topicDMX):
		var data Payload
		if err := json.Unmarshal(payload, &data); err != nil {
			return ev, err
		}
		ev.DMX = data
	case c.topic(topicSet):
		var cmd Command
		if err := json.Unmarshal(payload, &cmd); err != nil {
			return ev, err
		}
		cmd.State = strings.ToUpper(cmd.State)
		if cmd.State != StateOn && cmd.State != StateOff {
			return ev, fmt.Errorf("unknown state %q", cmd.State)
		}
		ev.Command = &cmd
	default:
		return ev, fmt.Errorf("unexpected topic %s", topic)
	}
	return ev, nil
}

// deliver hands the event to the pipeline, giving up when the context ends.
func (c *ClientMQTT) deliver(ev Event) {
	select {
	case <-c.ctx.Done():
	case c.events <- ev:
	}
}

func (c *ClientMQTT) sub(topic string) {
	token := c.client.Subscribe(topic, c.cfgClient.Qos, nil)
	go func() {
		select {
		case <-c.ctx.Done():
			return
		case <-token.Done():
			if token.Error() != nil {
				c.log.With(logger.Fields{"module": "mqtt"}).Errorf("topic %s subscription error. %v\n", topic, token.Error())
				return
			}
		}
		c.log.With(logger.Fields{"module": "mqtt"}).Debugf("topic %s subscribed\n", topic)
	}()
}

func (c *ClientMQTT) statusBackground() {
	defer c.wg.Done()
	t := time.NewTicker(c.cfgClient.StatusInterval)
	defer t.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-t.C:
			if err := c.PublishStatus(); err != nil {
				c.log.With(logger.Fields{"module": "mqtt"}).Errorf("status publish: %v", err)
			}
		}
	}
}

// PublishStatus publishes one retained status snapshot.
func (c *ClientMQTT) PublishStatus() error {
	msg, err := json.Marshal(c.status())
	if err != nil {
		return fmt.Errorf("status marshal: %w", err)
	}
	token := c.client.Publish(c.topic(topicStatus), c.cfgClient.Qos, true, msg)
	select {
	case <-c.ctx.Done():
		return c.ctx.Err()
	case <-token.Done():
		return token.Error()
	}
}
