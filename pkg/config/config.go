// config is the package containing the settings of the control host
// nwp runs on: where sites and backups live, which tools to run, and
// how to reach the cloud.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	nwperr "github.com/nwpdev/nwp/pkg/errors"
)

const (
	ConfigName = "config.yml"
	ConfigType = "yaml"
	EnvPrefix  = "NWP"
)

type Config struct {
	SitesRoot    string `mapstructure:"sitesRoot"`
	BackupRoot   string `mapstructure:"backupRoot"`
	RegistryPath string `mapstructure:"registryPath"`
	LockDir      string `mapstructure:"lockDir"`
	LogFormat    string `mapstructure:"logFormat"`

	DDEVBinary      string `mapstructure:"ddevBinary"`
	ComposerPackage string `mapstructure:"composerPackage"`
	SSHBinary       string `mapstructure:"sshBinary"`
	RsyncBinary     string `mapstructure:"rsyncBinary"`
	GitBinary       string `mapstructure:"gitBinary"`
	PostmapBinary   string `mapstructure:"postmapBinary"`

	MailVirtualPath string `mapstructure:"mailVirtualPath"`
	MailDomain      string `mapstructure:"mailDomain"`
	MailForward     string `mapstructure:"mailForward"`

	PromoteExclude []string `mapstructure:"promoteExclude"`

	ProvisionTimeout      time.Duration `mapstructure:"provisionTimeout"`
	ProvisionPollInterval time.Duration `mapstructure:"provisionPollInterval"`
	AWSRegion             string        `mapstructure:"awsRegion"`
	InstanceImage         string        `mapstructure:"instanceImage"`
	InstanceType          string        `mapstructure:"instanceType"`
	InstanceKeyName       string        `mapstructure:"instanceKeyName"`
	InstanceSecurityGroup string        `mapstructure:"instanceSecurityGroup"`

	MetricsTextfile string `mapstructure:"metricsTextfile"`
}

// DefaultPath is where the config file is looked for when no other
// location is given.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, "nwp", ConfigName)
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"sitesRoot":    filepath.Join(xdg.Home, "nwp"),
		"backupRoot":   filepath.Join(xdg.DataHome, "nwp", "backups"),
		"registryPath": filepath.Join(xdg.ConfigHome, "nwp", "sites.yml"),
		"lockDir":      filepath.Join(xdg.StateHome, "nwp", "locks"),
		"logFormat":    "fmt",

		"ddevBinary":      "ddev",
		"composerPackage": "drupal/recommended-project",
		"sshBinary":       "ssh",
		"rsyncBinary":     "rsync",
		"gitBinary":       "git",
		"postmapBinary":   "postmap",

		"mailVirtualPath": "/etc/postfix/virtual",
		"mailDomain":      "",
		"mailForward":     "root",

		"promoteExclude": []string{
			".ddev",
			".git",
			"private",
			"web/sites/*/files",
			"web/sites/*/settings.local.php",
			"web/sites/*/settings.ddev.php",
		},

		"provisionTimeout":      5 * time.Minute,
		"provisionPollInterval": 10 * time.Second,
		"awsRegion":             "",
		"instanceImage":         "",
		"instanceType":          "t3.small",
		"instanceKeyName":       "",
		"instanceSecurityGroup": "",

		"metricsTextfile": "",
	}
}

// Load reads the config file at path, with NWP_ environment variables
// overriding what's in it (e.g., NWP_SITESROOT). If path is empty the
// default location is used, and it's fine for there to be no file
// there; a file asked for by name has to exist.
func Load(path string) (Config, error) {
	v := viper.New()
	for k, val := range defaults() {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	v.SetConfigFile(path)
	v.SetConfigType(ConfigType)
	if err := v.ReadInConfig(); err != nil {
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if explicit || !(notFound || os.IsNotExist(errors.Cause(err))) {
			return Config{}, invalid(path, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, invalid(path, err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, invalid(path, err)
	}
	return c, nil
}

func invalid(path string, err error) error {
	return &nwperr.Error{
		Kind: nwperr.InvalidConfig,
		Err:  errors.Wrap(err, "configuration"),
		Help: fmt.Sprintf(`The nwp configuration could not be used:

    %s

The configuration is read from

    %s

and from NWP_ environment variables.
`, err, path),
	}
}

func (c Config) Validate() error {
	for name, val := range map[string]string{
		"sitesRoot":    c.SitesRoot,
		"backupRoot":   c.BackupRoot,
		"registryPath": c.RegistryPath,
		"lockDir":      c.LockDir,
	} {
		if val == "" {
			return fmt.Errorf("%s must be set", name)
		}
	}
	switch c.LogFormat {
	case "fmt", "json":
	default:
		return fmt.Errorf("logFormat must be fmt or json, not %q", c.LogFormat)
	}
	if c.ProvisionTimeout <= 0 {
		return fmt.Errorf("provisionTimeout must be positive")
	}
	if c.ProvisionPollInterval <= 0 || c.ProvisionPollInterval > c.ProvisionTimeout {
		return fmt.Errorf("provisionPollInterval must be positive and no more than provisionTimeout")
	}
	return nil
}

// SiteDir gives the directory a site lives in when the registry doesn't
// say otherwise.
func (c Config) SiteDir(name string) string {
	return filepath.Join(c.SitesRoot, name)
}
