// Package config loads queue manager connection defaults from a key-value file and
// the environment.
package config

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when no --config flag is given.
const DefaultPath = "mqk.cfg"

// Section is the file section holding the connection keys.
const Section = "IBM.MQ"

// ErrConfigMissing reports that no config file was found. Callers log it and carry
// on with whatever defaults the environment and flags provide.
var ErrConfigMissing = errors.New("config file not found")

// Connection holds the connection defaults for a queue manager.
type Connection struct {
	Transport    string
	QueueManager string
	Channel      string
	Host         string
	Port         int
	User         string
	Password     string
	TLS          TLS
}

// TLS holds the optional transport security settings. KeyRepository and
// CipherSpec apply to IBM MQ channels, the certificate files to AMQP and NATS.
type TLS struct {
	KeyRepository string
	CipherSpec    string

	Enabled    bool
	CACert     string
	ClientCert string
	ClientKey  string
	Insecure   bool
}

// ClientConfig builds a crypto/tls configuration from the certificate settings.
// It returns nil when TLS is not enabled and no certificate is configured.
func (t TLS) ClientConfig() (*tls.Config, error) {
	if !t.Enabled && t.CACert == "" && t.ClientCert == "" {
		return nil, nil
	}

	tlsConfig := &tls.Config{
		InsecureSkipVerify: t.Insecure, //nolint:gosec
	}

	if t.CACert != "" {
		caCert, err := os.ReadFile(t.CACert)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to parse CA certificate %s", t.CACert)
		}
		tlsConfig.RootCAs = pool
	}

	if t.ClientCert != "" && t.ClientKey != "" {
		cert, err := tls.LoadX509KeyPair(t.ClientCert, t.ClientKey)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return tlsConfig, nil
}

// ConnectionName returns the IBM MQ style connection name, host(port).
func (c Connection) ConnectionName() string {
	if c.Host == "" {
		return ""
	}
	if c.Port == 0 {
		return c.Host
	}
	return fmt.Sprintf("%s(%d)", c.Host, c.Port)
}

// yamlFile mirrors the INI layout: the same keys under an IBM.MQ mapping.
type yamlFile struct {
	Section yamlSection `yaml:"IBM.MQ"`
}

type yamlSection struct {
	Transport     string `yaml:"mq_transport"`
	QueueManager  string `yaml:"mq_qmgr"`
	Channel       string `yaml:"mq_channel"`
	Host          string `yaml:"mq_host"`
	Port          int    `yaml:"mq_port"`
	User          string `yaml:"mq_user"`
	Password      string `yaml:"mq_password"`
	KeyRepository string `yaml:"mq_ssl_key_repository"`
	CipherSpec    string `yaml:"mq_ssl_cipher_spec"`
	TLSEnabled    bool   `yaml:"mq_tls"`
	CACert        string `yaml:"mq_tls_ca_cert"`
	ClientCert    string `yaml:"mq_tls_cert"`
	ClientKey     string `yaml:"mq_tls_key"`
	Insecure      bool   `yaml:"mq_tls_insecure"`
}

// Load reads the connection defaults from path. A missing file yields an empty
// Connection and an error wrapping ErrConfigMissing; absent keys are left empty.
// Files ending in .yaml or .yml are parsed as YAML, everything else as INI.
func Load(path string) (Connection, error) {
	if path == "" {
		return Connection{}, ErrConfigMissing
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Connection{}, fmt.Errorf("%w: %s", ErrConfigMissing, path)
		}
		return Connection{}, fmt.Errorf("read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return parseYAML(data)
	default:
		return parseINI(data)
	}
}

func parseINI(data []byte) (Connection, error) {
	file, err := ini.Load(data)
	if err != nil {
		return Connection{}, fmt.Errorf("parse config file: %w", err)
	}

	sec, err := file.GetSection(Section)
	if err != nil {
		// a file without the section is the same as a file without keys
		return Connection{}, nil
	}

	conn := Connection{
		Transport:    sec.Key("mq_transport").String(),
		QueueManager: sec.Key("mq_qmgr").String(),
		Channel:      sec.Key("mq_channel").String(),
		Host:         sec.Key("mq_host").String(),
		User:         sec.Key("mq_user").String(),
		Password:     sec.Key("mq_password").String(),
		TLS: TLS{
			KeyRepository: sec.Key("mq_ssl_key_repository").String(),
			CipherSpec:    sec.Key("mq_ssl_cipher_spec").String(),
			CACert:        sec.Key("mq_tls_ca_cert").String(),
			ClientCert:    sec.Key("mq_tls_cert").String(),
			ClientKey:     sec.Key("mq_tls_key").String(),
		},
	}

	for key, dst := range map[string]*bool{
		"mq_tls":          &conn.TLS.Enabled,
		"mq_tls_insecure": &conn.TLS.Insecure,
	} {
		if !sec.HasKey(key) {
			continue
		}
		v, err := sec.Key(key).Bool()
		if err != nil {
			return Connection{}, fmt.Errorf("invalid %s %q: %w", key, sec.Key(key).String(), err)
		}
		*dst = v
	}

	if sec.HasKey("mq_port") {
		port, err := sec.Key("mq_port").Int()
		if err != nil {
			return Connection{}, fmt.Errorf("invalid mq_port %q: %w", sec.Key("mq_port").String(), err)
		}
		conn.Port = port
	}

	return conn, nil
}

func parseYAML(data []byte) (Connection, error) {
	var file yamlFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Connection{}, fmt.Errorf("parse config file: %w", err)
	}

	s := file.Section
	return Connection{
		Transport:    s.Transport,
		QueueManager: s.QueueManager,
		Channel:      s.Channel,
		Host:         s.Host,
		Port:         s.Port,
		User:         s.User,
		Password:     s.Password,
		TLS: TLS{
			KeyRepository: s.KeyRepository,
			CipherSpec:    s.CipherSpec,
			Enabled:       s.TLSEnabled,
			CACert:        s.CACert,
			ClientCert:    s.ClientCert,
			ClientKey:     s.ClientKey,
			Insecure:      s.Insecure,
		},
	}, nil
}

// Environment variables that override file values.
const (
	EnvTransport = "MQK_TRANSPORT"
	EnvQMgr      = "MQK_QMGR"
	EnvChannel   = "MQK_CHANNEL"
	EnvHost      = "MQK_HOST"
	EnvPort      = "MQK_PORT"
	EnvUser      = "MQK_USER"
	EnvPassword  = "MQK_PASSWORD"
)

// ApplyEnv overlays the MQK_* variables found by lookup onto c.
func ApplyEnv(c Connection, lookup func(string) (string, bool)) (Connection, error) {
	overrides := []struct {
		key string
		dst *string
	}{
		{EnvTransport, &c.Transport},
		{EnvQMgr, &c.QueueManager},
		{EnvChannel, &c.Channel},
		{EnvHost, &c.Host},
		{EnvUser, &c.User},
		{EnvPassword, &c.Password},
	}
	for _, o := range overrides {
		if v, ok := lookup(o.key); ok && v != "" {
			*o.dst = v
		}
	}

	if v, ok := lookup(EnvPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return c, fmt.Errorf("invalid %s %q: %w", EnvPort, v, err)
		}
		c.Port = port
	}

	return c, nil
}
