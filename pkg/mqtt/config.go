package mqtt

import (
	"errors"
	"net/url"
	"time"
)

// ClientConfig holds the configuration for creating a new MQTT Client.
type ClientConfig struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string

	// KeepAlive in seconds. Default is 60.
	KeepAlive uint16

	// ConnectTimeout for each connection attempt. Default is 5s.
	ConnectTimeout time.Duration

	// ReconnectBackoff is the constant delay between attempts. Default is 3s.
	ReconnectBackoff time.Duration

	// SessionExpiry in seconds. Zero ends the session on disconnect.
	SessionExpiry uint32

	CleanStart         bool
	InsecureSkipVerify bool

	// MaxInflight bounds the handlers running at once. When every slot is
	// busy the reader stops pulling messages off the connection. Default is 64.
	MaxInflight int

	// OnConnectionChange, when set, is called with the new state each time
	// the connection goes up or down.
	OnConnectionChange func(up bool)

	// Will message published by the broker when the client disappears. Optional.
	WillTopic   string
	WillPayload []byte
	WillQoS     byte
	WillRetain  bool
}

func setDefaultConfig(cfg *ClientConfig) {
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	if cfg.ReconnectBackoff == 0 {
		cfg.ReconnectBackoff = 3 * time.Second
	}
	if cfg.KeepAlive == 0 {
		cfg.KeepAlive = 60
	}
	if cfg.MaxInflight <= 0 {
		cfg.MaxInflight = 64
	}
}

// Validate checks if the configuration is valid.
func (c *ClientConfig) Validate() error {
	if c.BrokerURL == "" {
		return errors.New("broker url is required")
	}
	u, err := url.Parse(c.BrokerURL)
	if err != nil {
		return err
	}
	if u.Scheme == "" || u.Host == "" {
		return errors.New("broker url must look like scheme://host:port")
	}
	if c.WillQoS > 2 {
		return errors.New("will qos must be 0, 1 or 2")
	}
	return nil
}
