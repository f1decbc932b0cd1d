// Package mqtt is the broker-facing edge of the engine: it receives citizen
// submissions and driver presence updates, and pushes assignment
// notifications to driver-specific topics.
package mqtt

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/openrescue/dispatch/core/lifecycle"
	corelogger "github.com/openrescue/dispatch/core/logger"
	"github.com/openrescue/dispatch/core/model"
	"github.com/openrescue/dispatch/infra/logger"
)

const (
	defaultSubmitTopic      = "rescue/requests/submit"
	defaultPresenceFilter   = "rescue/drivers/+/presence"
	defaultAssignmentPrefix = "rescue/drivers"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker           string          `json:"broker"`
	ClientID         string          `json:"client_id"`
	Username         string          `json:"username"`
	Password         string          `json:"password"`
	UseTLS           bool            `json:"use_tls"`
	ClientCert       string          `json:"client_cert"`
	ClientKey        string          `json:"client_key"`
	CABundle         string          `json:"ca_bundle"`
	QoS              map[string]byte `json:"qos"`
	SubmitTopic      string          `json:"submit_topic"`
	PresenceFilter   string          `json:"presence_filter"`
	AssignmentPrefix string          `json:"assignment_prefix"`
	MaxRetries       int             `json:"max_retries"`
	BackoffMS        int             `json:"backoff_ms"`
	TLSConfig        *tls.Config     `json:"-"`
}

// SetDefaults fills in the standard topic layout.
func (c *Config) SetDefaults() {
	if c.SubmitTopic == "" {
		c.SubmitTopic = defaultSubmitTopic
	}
	if c.PresenceFilter == "" {
		c.PresenceFilter = defaultPresenceFilter
	}
	if c.AssignmentPrefix == "" {
		c.AssignmentPrefix = defaultAssignmentPrefix
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS <= 0 {
		c.BackoffMS = 100
	}
}

// Engine is the subset of the coordinator the edge needs.
type Engine interface {
	HandleSubmission(ctx context.Context, sub lifecycle.Submission) (model.Request, error)
	UpdatePresence(ctx context.Context, driverID string, coords model.Coordinates) error
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

// PahoClient bridges the MQTT broker and the dispatch engine.
type PahoClient struct {
	cli    pahoClient
	cfg    Config
	engine Engine
	logger corelogger.Logger
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// NewPahoClient connects to the broker and subscribes to the intake and
// presence topics on every (re)connect.
func NewPahoClient(cfg Config, engine Engine) (*PahoClient, error) {
	if engine == nil {
		return nil, fmt.Errorf("mqtt: nil engine provided to NewPahoClient")
	}
	cfg.SetDefaults()
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.New("mqtt_client")
	pc := &PahoClient{cfg: cfg, engine: engine, logger: log}

	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		if token := c.Subscribe(cfg.SubmitTopic, pc.qos("submit"), pc.onSubmit); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe %s error: %v", cfg.SubmitTopic, token.Error())
		}
		if token := c.Subscribe(cfg.PresenceFilter, pc.qos("presence"), pc.onPresence); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe %s error: %v", cfg.PresenceFilter, token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	pc.cli = c
	return pc, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	cfg := &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}
	return cfg, nil
}

func (p *PahoClient) qos(key string) byte {
	if q, ok := p.cfg.QoS[key]; ok {
		return q
	}
	return 0
}

func (p *PahoClient) onSubmit(_ paho.Client, msg paho.Message) {
	var sub lifecycle.Submission
	if err := json.Unmarshal(msg.Payload(), &sub); err != nil {
		p.logger.Errorf("failed to decode submission: %v", err)
		return
	}
	req, err := p.engine.HandleSubmission(context.Background(), sub)
	if err != nil {
		p.logger.Errorf("submission rejected: %v", err)
		return
	}
	p.logger.Infof("received submission %s from %s", req.ID, msg.Topic())
}

func (p *PahoClient) onPresence(_ paho.Client, msg paho.Message) {
	driverID, ok := driverFromTopic(msg.Topic())
	if !ok {
		p.logger.Errorf("unexpected presence topic %s", msg.Topic())
		return
	}
	var coords model.Coordinates
	if err := json.Unmarshal(msg.Payload(), &coords); err != nil {
		p.logger.Errorf("failed to decode presence for %s: %v", driverID, err)
		return
	}
	if err := p.engine.UpdatePresence(context.Background(), driverID, coords); err != nil {
		p.logger.Errorf("presence update for %s failed: %v", driverID, err)
	}
}

// driverFromTopic extracts the driver ID from rescue/drivers/<id>/presence.
func driverFromTopic(topic string) (string, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[3] != "presence" || parts[2] == "" {
		return "", false
	}
	return parts[2], true
}

// NotifyAssignment publishes the assignment to the driver's topic with a
// bounded retry.
func (p *PahoClient) NotifyAssignment(driverID string, req model.Request) error {
	payload, err := json.Marshal(struct {
		RequestID   string             `json:"request_id"`
		VehicleID   string             `json:"vehicle_id"`
		VehicleType model.ResourceType `json:"vehicle_type"`
		Requester   string             `json:"requester"`
		Phone       string             `json:"phone"`
		Situation   string             `json:"situation,omitempty"`
		Coordinates *model.Coordinates `json:"coordinates,omitempty"`
		Timestamp   int64              `json:"timestamp"`
	}{
		RequestID:   req.ID,
		VehicleID:   req.AssignedVehicleID,
		VehicleType: req.AssignedVehicleType,
		Requester:   req.RequesterName,
		Phone:       req.Phone,
		Situation:   req.Situation,
		Coordinates: req.Coordinates,
		Timestamp:   time.Now().UnixMilli(),
	})
	if err != nil {
		return err
	}

	topic := fmt.Sprintf("%s/%s/assignment", p.cfg.AssignmentPrefix, driverID)
	backoff := time.Duration(p.cfg.BackoffMS) * time.Millisecond
	var publishErr error
	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		token := p.cli.Publish(topic, p.qos("assignment"), false, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			p.logger.Infof("sent assignment %s to %s", req.ID, topic)
			return nil
		}
		p.logger.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		time.Sleep(backoff * time.Duration(1<<attempt))
	}
	return publishErr
}

// Disconnect gracefully closes the MQTT connection.
func (p *PahoClient) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
