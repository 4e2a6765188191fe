// Package mqtt fans the bridge's logical channels out to an MQTT broker.
package mqtt

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/denisbrodbeck/machineid"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	"github.com/robotalks/picobridge/pkg/frame"
	"github.com/robotalks/picobridge/pkg/framework"
	"github.com/robotalks/picobridge/pkg/link"
)

// Inbound channel messages are published to "<prefix>ch/<n>" with the
// raw data bytes as payload, so subscribers see exactly what crossed the
// bus. Publishing to "<prefix>ch/<n>/send" transmits the payload out the
// link on channel n.

// Bridge connects one Link to an MQTT broker.
type Bridge struct {
	Client      paho.Client
	TopicPrefix string
	Link        *link.Link

	// SendTimeout bounds the credit-refresh cycle of each outbound send.
	SendTimeout time.Duration
}

// ClientOptionsFromURL creates ClientOptions from a broker URL like
// "mqtt://host:1883/prefix/". The client-id query parameter overrides
// the default "picobridge-<machineid>".
func ClientOptionsFromURL(serverURL string) (*paho.ClientOptions, string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, "", err
	}
	var server string
	if u.Scheme == "" || u.Scheme == "mqtt" {
		server = "tcp"
	} else {
		server = u.Scheme
	}
	server += "://" + u.Host

	topicPrefix := strings.TrimPrefix(u.Path, "/")

	opts := paho.NewClientOptions()
	opts.AddBroker(server).
		SetAutoReconnect(true).
		SetCleanSession(true)
	if u.User != nil {
		opts.SetUsername(u.User.Username())
		if pwd, ok := u.User.Password(); ok {
			opts.SetPassword(pwd)
		}
	}

	clientID := u.Query().Get("client-id")
	if clientID == "" {
		if id, err := machineid.ID(); err == nil {
			clientID = "picobridge-" + id
		}
	}
	if clientID != "" {
		opts.SetClientID(clientID)
	}

	return opts, topicPrefix, nil
}

// NewBridge creates a Bridge from a broker URL.
func NewBridge(brokerURL string, l *link.Link) (*Bridge, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	b := &Bridge{
		TopicPrefix: topicPrefix,
		Link:        l,
		SendTimeout: 2 * time.Second,
	}
	opts.SetOnConnectHandler(func(paho.Client) {
		glog.Info("mqtt connected")
	})
	opts.SetConnectionLostHandler(func(c paho.Client, err error) {
		glog.Warningf("mqtt connection lost: %v", err)
	})
	b.Client = paho.NewClient(opts)
	return b, nil
}

// Name implements framework.Named.
func (b *Bridge) Name() string {
	return "mqtt-bridge"
}

// HandleMessage implements link.MessageHandler by publishing the
// message on its channel topic.
func (b *Bridge) HandleMessage(ctx context.Context, msg frame.Message) {
	topic := fmt.Sprintf("%sch/%d", b.TopicPrefix, msg.Channel)
	glog.V(2).Infof("PUB %q %d bytes", topic, len(msg.Data))
	b.Client.Publish(topic, 0, false, msg.Data)
}

// Run implements framework.Runnable: connect, relay outbound sends
// until the context is canceled, then disconnect.
func (b *Bridge) Run(ctx context.Context) error {
	err := framework.RunWithContext(ctx, func() error {
		token := b.Client.Connect()
		token.Wait()
		return token.Error()
	})
	if err != nil {
		return err
	}
	defer b.Client.Disconnect(0)

	err = framework.RunWithContext(ctx, func() error {
		token := b.Client.Subscribe(b.TopicPrefix+"ch/+/send", 0, b.dispatch)
		token.Wait()
		return token.Error()
	})
	if err != nil {
		return err
	}

	<-ctx.Done()
	return ctx.Err()
}

func (b *Bridge) dispatch(c paho.Client, m paho.Message) {
	ch, ok := b.parseSendTopic(m.Topic())
	if !ok {
		glog.Warningf("ignoring topic %q", m.Topic())
		return
	}
	msg := frame.Message{Channel: ch, Data: m.Payload()}
	if err := b.Link.SendMessage(msg, b.SendTimeout); err != nil {
		glog.Errorf("send ch%d (%d bytes): %v", ch, len(m.Payload()), err)
	}
}

// parseSendTopic extracts the channel id from "<prefix>ch/<n>/send".
func (b *Bridge) parseSendTopic(topic string) (byte, bool) {
	topic = strings.TrimPrefix(topic, b.TopicPrefix)
	rest, found := strings.CutPrefix(topic, "ch/")
	if !found {
		return 0, false
	}
	chStr, found := strings.CutSuffix(rest, "/send")
	if !found {
		return 0, false
	}
	ch, err := strconv.Atoi(chStr)
	if err != nil || ch < 0 || ch > frame.MaxChannel {
		return 0, false
	}
	return byte(ch), true
}
