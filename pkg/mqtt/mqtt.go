package mqtt

import (
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
)

type IPublisher interface {
	Publish(topic string, payload []byte) error
	Close()
}

type Options struct {
	Host     string
	Port     int
	Username string
	Password string
	ClientID string
}

type client struct {
	client pahomqtt.Client
	log    *logrus.Logger
}

func New(opts Options, log *logrus.Logger) (IPublisher, error) {
	broker := fmt.Sprintf("tcp://%s:%d", opts.Host, opts.Port)

	o := pahomqtt.NewClientOptions()
	o.AddBroker(broker)
	o.SetClientID(opts.ClientID)
	o.SetCleanSession(true)
	o.SetAutoReconnect(true)
	o.SetConnectTimeout(5 * time.Second)
	o.SetKeepAlive(30 * time.Second)
	o.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		log.Warnf("MQTT connection lost: %v", err)
	})

	if opts.Username != "" {
		o.SetUsername(opts.Username)
		o.SetPassword(opts.Password)
	}

	cli := pahomqtt.NewClient(o)
	token := cli.Connect()
	if ok := token.WaitTimeout(10 * time.Second); !ok {
		return nil, fmt.Errorf("mqtt connect timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect error: %w", err)
	}

	log.Infof("Connected to MQTT broker %s", broker)

	return &client{client: cli, log: log}, nil
}

func (c *client) Publish(topic string, payload []byte) error {
	token := c.client.Publish(topic, 1, false, payload)
	if ok := token.WaitTimeout(5 * time.Second); !ok {
		return fmt.Errorf("mqtt publish to %s timed out", topic)
	}
	return token.Error()
}

func (c *client) Close() {
	if c.client != nil && c.client.IsConnected() {
		c.client.Disconnect(250)
	}
}
