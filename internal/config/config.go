package config

import (
	"fmt"
	"strings"
	"time"

	yamlenv "github.com/ifuryst/go-yaml-env"

	"github.com/ifuryst/contentos/pkg/logger"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logger    logger.Config   `yaml:"logger"`
	Auth      AuthConfig      `yaml:"auth"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Workflow  WorkflowConfig  `yaml:"workflow"`
	Publisher PublisherConfig `yaml:"publisher"`
	Projects  []ProjectConfig `yaml:"projects"`
}

type ServerConfig struct {
	Port     int    `yaml:"port"`
	Host     string `yaml:"host"`
	Mode     string `yaml:"mode"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

type DatabaseConfig struct {
	Type     string `yaml:"type"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
	TimeZone string `yaml:"timezone"`
	// Path is the database file for the sqlite type.
	Path string `yaml:"path"`
}

// AuthConfig holds the shared secrets guarding the HTTP surface.
type AuthConfig struct {
	// CronSecret is compared against "Authorization: Bearer <secret>" on the cron route.
	CronSecret string `yaml:"cron_secret"`
	// TOTPSecret enables the X-TOTP-Code check on operator mutations when set.
	TOTPSecret string `yaml:"totp_secret"`
}

type SchedulerConfig struct {
	Enabled       bool   `yaml:"enabled"`
	SweepInterval string `yaml:"sweep_interval"`
	LockFile      string `yaml:"lock_file"`
}

type WorkflowConfig struct {
	// MinScheduleLead is the smallest distance between now and a scheduled time.
	MinScheduleLead string `yaml:"min_schedule_lead"`
	DefaultApprover string `yaml:"default_approver"`
}

type PublisherConfig struct {
	Timeout    string      `yaml:"timeout"`
	SweepLimit int         `yaml:"sweep_limit"`
	Brevo      BrevoConfig `yaml:"brevo"`
	Blog       BlogConfig  `yaml:"blog"`
}

type BrevoConfig struct {
	APIKey      string `yaml:"api_key"`
	APIURL      string `yaml:"api_url"`
	ListID      int    `yaml:"list_id"`
	SenderName  string `yaml:"sender_name"`
	SenderEmail string `yaml:"sender_email"`
	ReportURL   string `yaml:"report_url"`
}

type BlogConfig struct {
	APIKey string `yaml:"api_key"`
	APIURL string `yaml:"api_url"`
	Author string `yaml:"author"`
}

type ProjectConfig struct {
	ID       string         `yaml:"id"`
	Name     string         `yaml:"name"`
	Database DatabaseConfig `yaml:"database"`
}

func LoadConfig(configPath string) (*Config, error) {
	cfg, err := yamlenv.LoadConfig[Config](configPath)
	if err != nil {
		return nil, err
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyDefaults fills every unset field with its default value.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5334
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "debug"
	}
	if cfg.Scheduler.SweepInterval == "" {
		cfg.Scheduler.SweepInterval = "5m"
	}
	if cfg.Scheduler.LockFile == "" {
		cfg.Scheduler.LockFile = "contentos-sweep.lock"
	}
	if cfg.Workflow.MinScheduleLead == "" {
		cfg.Workflow.MinScheduleLead = "10m"
	}
	if cfg.Workflow.DefaultApprover == "" {
		cfg.Workflow.DefaultApprover = "VP/CEO"
	}
	if cfg.Publisher.Timeout == "" {
		cfg.Publisher.Timeout = "30s"
	}
	if cfg.Publisher.SweepLimit <= 0 {
		cfg.Publisher.SweepLimit = 500
	}
	if cfg.Publisher.Brevo.APIURL == "" {
		cfg.Publisher.Brevo.APIURL = "https://api.brevo.com/v3/emailCampaigns"
	}
	if cfg.Publisher.Brevo.ListID == 0 {
		cfg.Publisher.Brevo.ListID = 3
	}
	if cfg.Publisher.Brevo.SenderName == "" {
		cfg.Publisher.Brevo.SenderName = "AppPro AI"
	}
	if cfg.Publisher.Brevo.SenderEmail == "" {
		cfg.Publisher.Brevo.SenderEmail = "contact@apppro.kr"
	}
	if cfg.Publisher.Brevo.ReportURL == "" {
		cfg.Publisher.Brevo.ReportURL = "https://app.brevo.com/campaign/report/"
	}
	if cfg.Publisher.Blog.APIURL == "" {
		cfg.Publisher.Blog.APIURL = "https://apppro.kr/api/blog/publish"
	}
	if cfg.Publisher.Blog.Author == "" {
		cfg.Publisher.Blog.Author = "AppPro AI"
	}

	for i := range cfg.Projects {
		db := &cfg.Projects[i].Database
		if db.Type == "" {
			db.Type = "postgres"
		}
		if db.Type == "postgres" {
			if db.Host == "" {
				db.Host = "localhost"
			}
			if db.Port == 0 {
				db.Port = 5432
			}
			if db.SSLMode == "" {
				db.SSLMode = "disable"
			}
		}
		if db.TimeZone == "" {
			db.TimeZone = "UTC"
		}
		if cfg.Projects[i].Name == "" {
			cfg.Projects[i].Name = cfg.Projects[i].ID
		}
	}
}

// Validate checks the durations and the project list.
func (c *Config) Validate() error {
	for name, value := range map[string]string{
		"scheduler.sweep_interval":   c.Scheduler.SweepInterval,
		"workflow.min_schedule_lead": c.Workflow.MinScheduleLead,
		"publisher.timeout":          c.Publisher.Timeout,
	} {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, value, err)
		}
		if d <= 0 {
			return fmt.Errorf("invalid %s %q: must be positive", name, value)
		}
	}

	if len(c.Projects) == 0 {
		return fmt.Errorf("at least one project is required")
	}

	seen := make(map[string]struct{}, len(c.Projects))
	for _, p := range c.Projects {
		id := strings.TrimSpace(p.ID)
		if id == "" {
			return fmt.Errorf("project id is required")
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("duplicate project id %q", id)
		}
		seen[id] = struct{}{}

		switch p.Database.Type {
		case "postgres":
		case "sqlite":
			if p.Database.Path == "" {
				return fmt.Errorf("project %s: sqlite database requires path", id)
			}
		default:
			return fmt.Errorf("project %s: unsupported database type %q", id, p.Database.Type)
		}
	}

	return nil
}

// MinScheduleLead returns the parsed workflow lead time.
func (c *Config) MinScheduleLead() time.Duration {
	d, _ := time.ParseDuration(c.Workflow.MinScheduleLead)
	return d
}

// PublishTimeout returns the parsed outbound call timeout.
func (c *Config) PublishTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Publisher.Timeout)
	return d
}

// SweepInterval returns the parsed in-process sweep interval.
func (c *Config) SweepInterval() time.Duration {
	d, _ := time.ParseDuration(c.Scheduler.SweepInterval)
	return d
}

// Project looks up a project by id.
func (c *Config) Project(id string) (ProjectConfig, bool) {
	for _, p := range c.Projects {
		if p.ID == id {
			return p, true
		}
	}
	return ProjectConfig{}, false
}
