package ipupdate

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultIPService is the echo service queried when none is configured.
const DefaultIPService = "https://ipinfo.kanga.org/"

// DefaultTimeout bounds each IP service request when none is configured.
const DefaultTimeout = 10 * time.Second

// AddressType selects which address families are queried and updated.
type AddressType string

const (
	AddressTypeBoth AddressType = "both"
	AddressTypeIPv4 AddressType = "ipv4"
	AddressTypeIPv6 AddressType = "ipv6"
)

// ParseAddressType parses "both", "ipv4", or "ipv6".
func ParseAddressType(s string) (AddressType, error) {
	switch AddressType(strings.ToLower(s)) {
	case AddressTypeBoth:
		return AddressTypeBoth, nil
	case AddressTypeIPv4:
		return AddressTypeIPv4, nil
	case AddressTypeIPv6:
		return AddressTypeIPv6, nil
	}
	return "", &ConfigError{Problems: []string{fmt.Sprintf("invalid address type %q (expected both, ipv4, or ipv6)", s)}}
}

// Allows reports whether the given family is selected.
func (t AddressType) Allows(f Family) bool {
	switch f {
	case IPv4:
		return t == AddressTypeBoth || t == AddressTypeIPv4
	default:
		return t == AddressTypeBoth || t == AddressTypeIPv6
	}
}

// Families returns the selected families in fixed order.
func (t AddressType) Families() []Family {
	switch t {
	case AddressTypeIPv4:
		return []Family{IPv4}
	case AddressTypeIPv6:
		return []Family{IPv6}
	default:
		return []Family{IPv4, IPv6}
	}
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (t *AddressType) UnmarshalText(text []byte) error {
	parsed, err := ParseAddressType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (t *AddressType) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	return t.UnmarshalText([]byte(s))
}

// ConfigError reports configuration that is malformed or contradictory.
// It is fatal: nothing is attempted against the network when one is returned.
type ConfigError struct {
	Problems []string
}

func (e *ConfigError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, " ")
}

func configErrorf(format string, args ...any) *ConfigError {
	return &ConfigError{Problems: []string{fmt.Sprintf(format, args...)}}
}

// HostnameConfig names one DNS entry to manage, with an optional TTL
// override. In config files it may be written as a bare hostname string or
// as a {hostname, ttl} table.
type HostnameConfig struct {
	Hostname string `yaml:"hostname"`
	TTL      *TTL   `yaml:"ttl"`
}

// UnmarshalTOML implements toml.Unmarshaler, accepting either form.
func (h *HostnameConfig) UnmarshalTOML(v any) error {
	switch value := v.(type) {
	case string:
		h.Hostname = value
		h.TTL = nil
		return nil
	case map[string]any:
		hostname, ok := value["hostname"].(string)
		if !ok {
			return fmt.Errorf("hostname entry is missing the hostname key")
		}
		h.Hostname = hostname
		if raw, found := value["ttl"]; found {
			var ttl TTL
			if err := ttl.UnmarshalTOML(raw); err != nil {
				return err
			}
			h.TTL = &ttl
		}
		return nil
	}
	return fmt.Errorf("hostname entry must be a string or a table, not %T", v)
}

// UnmarshalYAML implements yaml.Unmarshaler, accepting either form.
func (h *HostnameConfig) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		h.TTL = nil
		return node.Decode(&h.Hostname)
	}
	type plain HostnameConfig
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	if p.Hostname == "" {
		return fmt.Errorf("hostname entry is missing the hostname key")
	}
	*h = HostnameConfig(p)
	return nil
}

// ZoneConfig names one Route 53 hosted zone and the hostnames managed in it.
type ZoneConfig struct {
	ZoneID    string           `toml:"zone-id" yaml:"zone-id"`
	Hostnames []HostnameConfig `toml:"hostnames" yaml:"hostnames"`
	TTL       *TTL             `toml:"ttl" yaml:"ttl"`
}

func (z *ZoneConfig) addHostname(hostname string) {
	for _, h := range z.Hostnames {
		if h.Hostname == hostname {
			return
		}
	}
	z.Hostnames = append(z.Hostnames, HostnameConfig{Hostname: hostname})
}

// FileConfig is the partial configuration read from a config file.
// Nil fields were not present and do not override the built-in defaults.
type FileConfig struct {
	AddressType      *AddressType `toml:"address-type" yaml:"address-type"`
	AllowNonroutable *bool        `toml:"allow-nonroutable" yaml:"allow-nonroutable"`
	QueryInterfaces  *bool        `toml:"query-interfaces" yaml:"query-interfaces"`
	QueryIPService   *bool        `toml:"query-ip-service" yaml:"query-ip-service"`
	IgnoreInterfaces []string     `toml:"ignore-interfaces" yaml:"ignore-interfaces"`
	IPService        *string      `toml:"ip-service" yaml:"ip-service"`
	Timeout          *Duration    `toml:"timeout" yaml:"timeout"`
	TTL              *TTL         `toml:"ttl" yaml:"ttl"`
	Zones            []ZoneConfig `toml:"route53-zones" yaml:"route53-zones"`
}

// Args is the partial configuration taken from the command line.
// Nil fields were not given and do not override the file or default layers.
type Args struct {
	AddressType      *AddressType
	AllowNonroutable *bool
	ConfigFile       *string
	QueryInterfaces  *bool
	QueryIPService   *bool
	IgnoreInterfaces []string
	IPService        *string
	Timeout          *time.Duration
	TTL              *TTL
	Route53Zone      *string
	Hostnames        []string
}

// Config is the fully merged configuration for one run. Every field has a
// definite value once IntoConfig returns.
type Config struct {
	AddressType      AddressType
	AllowNonroutable bool
	QueryInterfaces  bool
	QueryIPService   bool
	IgnoreInterfaces []string
	IPService        string
	Timeout          time.Duration
	TTL              *TTL
	Zones            []ZoneConfig
}

// DefaultConfig returns the built-in defaults: both families, routable
// addresses only, IP service enabled, interfaces not queried.
func DefaultConfig() *Config {
	return &Config{
		AddressType:    AddressTypeBoth,
		QueryIPService: true,
		IPService:      DefaultIPService,
		Timeout:        DefaultTimeout,
	}
}

// IntoConfig merges the three configuration layers. Built-in defaults are
// overridden field-by-field by the config file named in a.ConfigFile (if
// any), which is in turn overridden by the command-line values present in a.
func (a Args) IntoConfig() (*Config, error) {
	cfg := DefaultConfig()
	if a.ConfigFile != nil {
		file, err := LoadConfigFile(*a.ConfigFile)
		if err != nil {
			return nil, err
		}
		cfg.applyFile(file)
	}
	if err := cfg.applyArgs(a); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(file *FileConfig) {
	if file.AddressType != nil {
		c.AddressType = *file.AddressType
	}
	if file.AllowNonroutable != nil {
		c.AllowNonroutable = *file.AllowNonroutable
	}
	if file.QueryInterfaces != nil {
		c.QueryInterfaces = *file.QueryInterfaces
	}
	if file.QueryIPService != nil {
		c.QueryIPService = *file.QueryIPService
	}
	c.IgnoreInterfaces = append(c.IgnoreInterfaces, file.IgnoreInterfaces...)
	if file.IPService != nil {
		c.IPService = *file.IPService
	}
	if file.Timeout != nil {
		c.Timeout = time.Duration(*file.Timeout)
	}
	if file.TTL != nil {
		c.TTL = file.TTL
	}
	c.Zones = append(c.Zones, file.Zones...)
}

func (c *Config) applyArgs(a Args) error {
	if a.AddressType != nil {
		c.AddressType = *a.AddressType
	}
	if a.AllowNonroutable != nil {
		c.AllowNonroutable = *a.AllowNonroutable
	}
	if a.QueryInterfaces != nil {
		c.QueryInterfaces = *a.QueryInterfaces
	}
	if a.QueryIPService != nil {
		c.QueryIPService = *a.QueryIPService
	}
	// Ignored interfaces accumulate across layers rather than replacing.
	c.IgnoreInterfaces = append(c.IgnoreInterfaces, a.IgnoreInterfaces...)
	if a.IPService != nil {
		c.IPService = *a.IPService
	}
	if a.Timeout != nil {
		c.Timeout = *a.Timeout
	}
	if a.TTL != nil {
		c.TTL = a.TTL
	}

	if len(a.Hostnames) > 0 && (a.Route53Zone == nil || *a.Route53Zone == "") {
		return configErrorf("hostnames were given on the command line but no --route53-zone was specified")
	}
	if a.Route53Zone != nil && *a.Route53Zone != "" {
		zone := c.getOrCreateZone(*a.Route53Zone)
		for _, hostname := range a.Hostnames {
			zone.addHostname(hostname)
		}
	}
	return nil
}

func (c *Config) getOrCreateZone(zoneID string) *ZoneConfig {
	for i := range c.Zones {
		if c.Zones[i].ZoneID == zoneID {
			return &c.Zones[i]
		}
	}
	c.Zones = append(c.Zones, ZoneConfig{ZoneID: zoneID})
	return &c.Zones[len(c.Zones)-1]
}

// EffectiveTTL resolves the TTL for one hostname: the hostname's own TTL if
// set, else its zone's, else the global TTL, else DefaultRecordTTL.
func (c *Config) EffectiveTTL(zone ZoneConfig, hostname HostnameConfig) TTL {
	return effectiveTTL(hostname.TTL, zone.TTL, c.TTL)
}

// Check validates the merged configuration, collecting every problem found
// into one ConfigError.
func (c *Config) Check() error {
	var problems []string

	if c.QueryIPService && c.IPService == "" {
		problems = append(problems, "The IP service cannot be empty if querying the IP service is enabled.")
	}

	if len(c.Zones) == 0 {
		problems = append(problems, "No Route 53 zones have been configured.")
	} else {
		for _, zone := range c.Zones {
			if zone.ZoneID == "" {
				problems = append(problems, "A Route 53 zone is missing its zone id.")
			}
			if len(zone.Hostnames) == 0 {
				problems = append(problems, fmt.Sprintf("No hostnames have been configured for zone %s.", zone.ZoneID))
			}
		}
	}

	if len(problems) > 0 {
		return &ConfigError{Problems: problems}
	}
	return nil
}
