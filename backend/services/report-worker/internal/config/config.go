package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	libconfig "waterreport/backend/libs/config"
	"waterreport/backend/services/report-worker/internal/models"
)

// FailurePolicy decides what the fetcher does after a failed device request.
type FailurePolicy string

const (
	// FailurePolicyAbort stops the fetch at the first failed request.
	FailurePolicyAbort FailurePolicy = "abort"
	// FailurePolicySkip skips the failed device and keeps going.
	FailurePolicySkip FailurePolicy = "skip"
)

const (
	defaultPollInterval = 55 * time.Second
	defaultAPIPath      = "/energy_dashboard/get_all_log_book_info_by_device_id"
	defaultAPITimeout   = 10 * time.Second
	defaultTagCode      = "WATER-METER"
	defaultDuration     = "daily"
	defaultDateLabel    = "Today"
	defaultSMTPPort     = 465
	defaultDialTimeout  = 30 * time.Second
)

// Config defines report worker configuration. It is read once at startup and not mutated afterwards.
type Config struct {
	Schedule struct {
		At           string        `yaml:"at" env:"HOURS"`
		PollInterval time.Duration `yaml:"poll_interval" env:"POLL_INTERVAL"`
		// Trigger is parsed from At by Load.
		Trigger models.TimeOfDay `yaml:"-" env:"-"`
	} `yaml:"schedule"`
	API struct {
		Host          string        `yaml:"host" env:"IP"`
		Port          int           `yaml:"port" env:"PORT"`
		Path          string        `yaml:"path" env:"API_PATH"`
		Timeout       time.Duration `yaml:"timeout" env:"API_TIMEOUT"`
		DeviceTagCode string        `yaml:"device_tag_code" env:"DEVICE_TAG_CODE"`
		Duration      string        `yaml:"duration" env:"API_DURATION"`
		DatetimeLabel string        `yaml:"datetime_label" env:"API_DATETIME_LABEL"`
		FailurePolicy FailurePolicy `yaml:"failure_policy" env:"FETCH_FAILURE_POLICY"`
	} `yaml:"api"`
	Report struct {
		DeviceIDs models.DeviceIDs `yaml:"device_ids" env:"DEVICE_IDS"`
		SiteID    int64            `yaml:"site_id" env:"SITE_ID"`
		Combine   bool             `yaml:"combine" env:"COMBINE_FLAG"`
	} `yaml:"report"`
	Mail struct {
		Recipients  []string      `yaml:"recipients" env:"SEND_MAIL_ADDR"`
		From        string        `yaml:"from" env:"FROM_MAIL"`
		Username    string        `yaml:"username" env:"MAIL_USERNAME"`
		Password    string        `yaml:"password" env:"MAIL_PASSWORD"`
		Host        string        `yaml:"host" env:"SMTP_HOST"`
		Port        int           `yaml:"port" env:"SMTP_PORT"`
		Subject     string        `yaml:"subject" env:"SUBJECT"`
		DialTimeout time.Duration `yaml:"dial_timeout" env:"SMTP_DIAL_TIMEOUT"`
	} `yaml:"mail"`
}

// Load configuration using shared helper.
func Load() (*Config, error) {
	cfg := Default()
	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a config with every optional value filled in.
func Default() *Config {
	cfg := &Config{}
	cfg.Schedule.PollInterval = defaultPollInterval
	cfg.API.Path = defaultAPIPath
	cfg.API.Timeout = defaultAPITimeout
	cfg.API.DeviceTagCode = defaultTagCode
	cfg.API.Duration = defaultDuration
	cfg.API.DatetimeLabel = defaultDateLabel
	cfg.API.FailurePolicy = FailurePolicyAbort
	cfg.Mail.Port = defaultSMTPPort
	cfg.Mail.DialTimeout = defaultDialTimeout
	return cfg
}

// Validate checks required values and parses the trigger time.
func (c *Config) Validate() error {
	var problems []string
	require := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}

	trigger, err := models.ParseTimeOfDay(c.Schedule.At)
	if err != nil {
		problems = append(problems, "schedule time (HOURS): "+err.Error())
	} else {
		c.Schedule.Trigger = trigger
	}
	require(c.Schedule.PollInterval > 0, "poll interval must be positive")

	require(strings.TrimSpace(c.API.Host) != "", "api host (IP) required")
	require(c.API.Port > 0 && c.API.Port <= 65535, "api port (PORT) must be 1-65535")
	require(c.API.Timeout > 0, "api timeout must be positive")
	require(c.API.FailurePolicy == FailurePolicyAbort || c.API.FailurePolicy == FailurePolicySkip,
		fmt.Sprintf("fetch failure policy must be %q or %q", FailurePolicyAbort, FailurePolicySkip))

	require(len(c.Report.DeviceIDs) > 0, "device ids (DEVICE_IDS) required")
	require(c.Report.SiteID > 0, "site id (SITE_ID) required")

	require(len(c.Mail.Recipients) > 0, "recipients (SEND_MAIL_ADDR) required")
	require(strings.TrimSpace(c.Mail.From) != "", "sender address (FROM_MAIL) required")
	require(strings.TrimSpace(c.Mail.Username) != "", "smtp username (MAIL_USERNAME) required")
	require(c.Mail.Password != "", "smtp password (MAIL_PASSWORD) required")
	require(strings.TrimSpace(c.Mail.Host) != "", "smtp host (SMTP_HOST) required")
	require(c.Mail.Port > 0 && c.Mail.Port <= 65535, "smtp port (SMTP_PORT) must be 1-65535")
	require(strings.TrimSpace(c.Mail.Subject) != "", "subject (SUBJECT) required")

	if len(problems) > 0 {
		return errors.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// APIBaseURL returns the telemetry API base URL.
func (c *Config) APIBaseURL() string {
	return "http://" + net.JoinHostPort(c.API.Host, strconv.Itoa(c.API.Port))
}

// SMTPAddress returns host:port of the mail server.
func (c *Config) SMTPAddress() string {
	return net.JoinHostPort(c.Mail.Host, strconv.Itoa(c.Mail.Port))
}
