package diag

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/eclipse/paho.golang/paho"

	"github.com/shiwa/ffb-sync/internal/logger"
)

// PublisherConfig — брокер и топик публикации
type PublisherConfig struct {
	Broker   string // mqtt://host:1883 или host:1883
	Topic    string
	ClientID string
	Interval time.Duration
}

// Publisher публикует каждое поле Report в <topic>/<snake_key>
type Publisher struct {
	cfg PublisherConfig
	rec *Recorder
}

// NewPublisher создаёт публикатор MQTT
func NewPublisher(cfg PublisherConfig, rec *Recorder) *Publisher {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	cfg.Topic = strings.TrimSuffix(cfg.Topic, "/")
	return &Publisher{cfg: cfg, rec: rec}
}

// brokerAddr приводит адрес брокера к host:port
func brokerAddr(broker string) (string, error) {
	if !strings.Contains(broker, "://") {
		return broker, nil
	}
	u, err := url.Parse(broker)
	if err != nil {
		return "", fmt.Errorf("mqtt broker %q: %w", broker, err)
	}
	switch u.Scheme {
	case "mqtt", "tcp":
	default:
		return "", fmt.Errorf("mqtt broker %q: unsupported scheme %s", broker, u.Scheme)
	}
	host := u.Host
	if u.Port() == "" {
		host = net.JoinHostPort(u.Hostname(), "1883")
	}
	return host, nil
}

// Run подключается и публикует до отмены ctx
func (p *Publisher) Run(ctx context.Context) error {
	addr, err := brokerAddr(p.cfg.Broker)
	if err != nil {
		return err
	}
	var d net.Dialer
	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	conn, err := d.DialContext(dialCtx, "tcp", addr)
	cancel()
	if err != nil {
		return fmt.Errorf("mqtt dial %s: %w", addr, err)
	}

	client := paho.NewClient(paho.ClientConfig{
		Conn:     conn,
		ClientID: p.cfg.ClientID,
		OnClientError: func(err error) {
			logger.Warn("diag: mqtt client: %v", err)
		},
	})
	ack, err := client.Connect(ctx, &paho.Connect{
		ClientID:   p.cfg.ClientID,
		CleanStart: true,
		KeepAlive:  30,
	})
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("mqtt connect: %w", err)
	}
	if ack.ReasonCode != 0 {
		_ = conn.Close()
		return fmt.Errorf("mqtt connect: reason code %d", ack.ReasonCode)
	}
	logger.Info("diag: mqtt publishing to %s/%s every %s", addr, p.cfg.Topic, p.cfg.Interval)
	defer func() {
		_ = client.Disconnect(&paho.Disconnect{ReasonCode: 0})
	}()

	t := time.NewTicker(p.cfg.Interval)
	defer t.Stop()
	for {
		if err := p.publish(ctx, client); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

func (p *Publisher) publish(ctx context.Context, client *paho.Client) error {
	fields, err := Flatten(p.rec.Sample())
	if err != nil {
		return err
	}
	for _, f := range fields {
		_, err := client.Publish(ctx, &paho.Publish{
			Topic:   p.cfg.Topic + "/" + f.Key,
			QoS:     0,
			Payload: []byte(f.Value),
		})
		if err != nil {
			return fmt.Errorf("mqtt publish %s: %w", f.Key, err)
		}
	}
	return nil
}
