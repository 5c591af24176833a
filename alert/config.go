package alert

import "time"

// Config defines how failed queries are reported to the Sentinel service.
type Config struct {
	// Disable turns every provider built from this config into a no-op.
	Disable bool `yaml:"disable" default:"false"`

	// SentinelHost is the hostname or IP address of the Sentinel service.
	SentinelHost string `yaml:"sentinel_host" validate:"required_unless=Disable true"`

	// SentinelPort is the port number of the Sentinel service.
	SentinelPort int `yaml:"sentinel_port" validate:"required_unless=Disable true"`

	// SendTimeout bounds a single report to Sentinel.
	SendTimeout time.Duration `yaml:"send_timeout" default:"3s"`
}
