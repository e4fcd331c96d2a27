package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/cristalhq/aconfig"
)

const (
	brokerPrefix   = "AMQP"
	tutorialPrefix = "TUTORIAL"
)

type Config struct {
	Host          string        `env:"HOST" default:"localhost" usage:"host rabbitmq"`
	Port          int           `env:"PORT" default:"5672" usage:"port rabbitmq"`
	VHost         string        `env:"VHOST" default:"/" usage:"virtual host"`
	User          string        `env:"USER" default:"guest" usage:"login rabbitmq"`
	Pass          string        `env:"PASS" default:"guest" usage:"pass rabbitmq"`
	SocketTimeout time.Duration `env:"SOCKET_TIMEOUT" default:"300s" usage:"dial and handshake timeout"`
	DialRetries   uint64        `env:"DIAL_RETRIES" default:"0" usage:"extra dial attempts before giving up"`
	Confirm       bool          `env:"CONFIRM" default:"false" usage:"put publisher channels in confirm mode"`
	LogLevel      string        `env:"LOG_LEVEL" default:"error" usage:"debug, info, warn or error"`
	LogFormat     string        `env:"LOG_FORMAT" default:"text" usage:"text or json"`
	MetricsAddr   string        `env:"METRICS_ADDR" default:"" usage:"listen address for /metrics, empty disables"`
	Definitions   string        `env:"DEFINITIONS" default:"" usage:"path to a TOML topology file"`
}

// URL renders the broker address as an amqp:// URI. The virtual host is
// escaped, so the default "/" vhost survives the round trip.
func (c *Config) URL() string {
	return fmt.Sprintf("amqp://%s@%s/%s",
		url.UserPassword(c.User, c.Pass).String(),
		net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		url.PathEscape(c.VHost),
	)
}

// ReadDefinitions returns the contents of the optional topology file, or nil
// when none is configured.
func (c *Config) ReadDefinitions() ([]byte, error) {
	if c.Definitions == "" {
		return nil, nil
	}
	t, err := os.ReadFile(c.Definitions)
	if err != nil {
		return nil, fmt.Errorf("read definitions %s: %w", c.Definitions, err)
	}
	return t, nil
}

func NewConfig() (*Config, error) {
	var config Config
	if err := load(&config, brokerPrefix); err != nil {
		return nil, err
	}
	return &config, nil
}

// LoadTutorial fills a program-specific options struct from TUTORIAL_*
// variables, falling back to its default tags.
func LoadTutorial(dst any) error {
	return load(dst, tutorialPrefix)
}

func load(dst any, prefix string) error {
	loader := aconfig.LoaderFor(dst, aconfig.Config{
		SkipFiles:        true,
		SkipFlags:        true,
		EnvPrefix:        prefix,
		AllowUnknownEnvs: true,
	})

	if err := loader.Load(); err != nil {
		return fmt.Errorf("load %s config: %w", prefix, err)
	}
	return nil
}
