package ipupdate_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ipupdate "github.com/dacut/route53-ip-update"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func addrTypePtr(v ipupdate.AddressType) *ipupdate.AddressType { return &v }

func ttlPtr(t *testing.T, v int64) *ipupdate.TTL {
	t.Helper()
	ttl, err := ipupdate.NewTTL(v)
	require.NoError(t, err)
	return &ttl
}

func writeConfig(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := ipupdate.DefaultConfig()
	assert.Equal(t, ipupdate.AddressTypeBoth, cfg.AddressType)
	assert.False(t, cfg.AllowNonroutable)
	assert.False(t, cfg.QueryInterfaces)
	assert.True(t, cfg.QueryIPService)
	assert.Equal(t, ipupdate.DefaultIPService, cfg.IPService)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Nil(t, cfg.TTL)
	assert.Empty(t, cfg.Zones)
}

const fullTOML = `
address-type = "ipv4"
allow-nonroutable = true
query-interfaces = true
query-ip-service = false
ignore-interfaces = ["docker0"]
ip-service = "https://ip.example.com/"
timeout = "30s"
ttl = 120

[[route53-zones]]
zone-id = "Z111"
hostnames = ["host.net"]
ttl = 60
`

func TestFileOverridesDefaults(t *testing.T) {
	args := ipupdate.Args{ConfigFile: strPtr(writeConfig(t, "config.toml", fullTOML))}
	cfg, err := args.IntoConfig()
	require.NoError(t, err)

	assert.Equal(t, ipupdate.AddressTypeIPv4, cfg.AddressType)
	assert.True(t, cfg.AllowNonroutable)
	assert.True(t, cfg.QueryInterfaces)
	assert.False(t, cfg.QueryIPService)
	assert.Equal(t, []string{"docker0"}, cfg.IgnoreInterfaces)
	assert.Equal(t, "https://ip.example.com/", cfg.IPService)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	require.NotNil(t, cfg.TTL)
	assert.Equal(t, int64(120), cfg.TTL.Seconds())
	require.Len(t, cfg.Zones, 1)
	assert.Equal(t, "Z111", cfg.Zones[0].ZoneID)
	require.Len(t, cfg.Zones[0].Hostnames, 1)
	assert.Equal(t, "host.net", cfg.Zones[0].Hostnames[0].Hostname)
}

func TestArgsOverrideFile(t *testing.T) {
	timeout := 5 * time.Second
	args := ipupdate.Args{
		ConfigFile:       strPtr(writeConfig(t, "config.toml", fullTOML)),
		AddressType:      addrTypePtr(ipupdate.AddressTypeIPv6),
		AllowNonroutable: boolPtr(false),
		QueryInterfaces:  boolPtr(false),
		QueryIPService:   boolPtr(true),
		IPService:        strPtr("https://other.example.com/"),
		Timeout:          &timeout,
		TTL:              ttlPtr(t, 600),
	}
	cfg, err := args.IntoConfig()
	require.NoError(t, err)

	assert.Equal(t, ipupdate.AddressTypeIPv6, cfg.AddressType)
	assert.False(t, cfg.AllowNonroutable)
	assert.False(t, cfg.QueryInterfaces)
	assert.True(t, cfg.QueryIPService)
	assert.Equal(t, "https://other.example.com/", cfg.IPService)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	require.NotNil(t, cfg.TTL)
	assert.Equal(t, int64(600), cfg.TTL.Seconds())
}

func TestUnsetArgsLeaveFileValues(t *testing.T) {
	// Each field resolves independently: an empty Args layer must not mask
	// the file layer.
	args := ipupdate.Args{ConfigFile: strPtr(writeConfig(t, "config.toml", fullTOML))}
	cfg, err := args.IntoConfig()
	require.NoError(t, err)
	assert.Equal(t, ipupdate.AddressTypeIPv4, cfg.AddressType)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
}

func TestIgnoreInterfacesAccumulate(t *testing.T) {
	args := ipupdate.Args{
		ConfigFile:       strPtr(writeConfig(t, "config.toml", fullTOML)),
		IgnoreInterfaces: []string{"veth1", "wg0"},
	}
	cfg, err := args.IntoConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"docker0", "veth1", "wg0"}, cfg.IgnoreInterfaces)
}

func TestImplicitZoneFromHostnames(t *testing.T) {
	args := ipupdate.Args{
		Route53Zone: strPtr("Z222"),
		Hostnames:   []string{"a.example.com", "b.example.com", "a.example.com"},
	}
	cfg, err := args.IntoConfig()
	require.NoError(t, err)
	require.Len(t, cfg.Zones, 1)
	assert.Equal(t, "Z222", cfg.Zones[0].ZoneID)
	require.Len(t, cfg.Zones[0].Hostnames, 2, "duplicate hostnames collapse")
	assert.Equal(t, "a.example.com", cfg.Zones[0].Hostnames[0].Hostname)
	assert.Equal(t, "b.example.com", cfg.Zones[0].Hostnames[1].Hostname)
}

func TestHostnamesMergeIntoExistingZone(t *testing.T) {
	args := ipupdate.Args{
		ConfigFile:  strPtr(writeConfig(t, "config.toml", fullTOML)),
		Route53Zone: strPtr("Z111"),
		Hostnames:   []string{"host.net", "extra.host.net"},
	}
	cfg, err := args.IntoConfig()
	require.NoError(t, err)
	require.Len(t, cfg.Zones, 1)
	require.Len(t, cfg.Zones[0].Hostnames, 2)
	assert.Equal(t, "extra.host.net", cfg.Zones[0].Hostnames[1].Hostname)
}

func TestHostnamesWithoutZoneIsConfigError(t *testing.T) {
	args := ipupdate.Args{Hostnames: []string{"host.net"}}
	_, err := args.IntoConfig()
	var configErr *ipupdate.ConfigError
	require.ErrorAs(t, err, &configErr)
}

func TestCheckCollectsAllProblems(t *testing.T) {
	cfg := ipupdate.DefaultConfig()
	cfg.IPService = ""
	err := cfg.Check()
	var configErr *ipupdate.ConfigError
	require.ErrorAs(t, err, &configErr)
	assert.Len(t, configErr.Problems, 2, "empty IP service and missing zones are both reported")
}

func TestCheckZoneWithoutHostnames(t *testing.T) {
	cfg := ipupdate.DefaultConfig()
	cfg.Zones = []ipupdate.ZoneConfig{{ZoneID: "Z333"}}
	err := cfg.Check()
	var configErr *ipupdate.ConfigError
	require.ErrorAs(t, err, &configErr)
	assert.Contains(t, configErr.Problems[0], "Z333")
}

func TestCheckValidConfig(t *testing.T) {
	cfg := ipupdate.DefaultConfig()
	cfg.Zones = []ipupdate.ZoneConfig{{
		ZoneID:    "Z333",
		Hostnames: []ipupdate.HostnameConfig{{Hostname: "host.net"}},
	}}
	assert.NoError(t, cfg.Check())
}

func TestEffectiveTTL(t *testing.T) {
	cfg := ipupdate.DefaultConfig()
	zone := ipupdate.ZoneConfig{ZoneID: "Z1"}
	hostname := ipupdate.HostnameConfig{Hostname: "host.net"}

	assert.Equal(t, ipupdate.DefaultRecordTTL, cfg.EffectiveTTL(zone, hostname), "nothing set falls back to the default")

	cfg.TTL = ttlPtr(t, 900)
	assert.Equal(t, int64(900), cfg.EffectiveTTL(zone, hostname).Seconds())

	zone.TTL = ttlPtr(t, 60)
	assert.Equal(t, int64(60), cfg.EffectiveTTL(zone, hostname).Seconds(), "zone TTL beats global")

	hostname.TTL = ttlPtr(t, 30)
	assert.Equal(t, int64(30), cfg.EffectiveTTL(zone, hostname).Seconds(), "hostname TTL beats zone")
}

func TestParseAddressType(t *testing.T) {
	for _, valid := range []string{"both", "ipv4", "ipv6", "IPv4"} {
		_, err := ipupdate.ParseAddressType(valid)
		assert.NoError(t, err, valid)
	}
	_, err := ipupdate.ParseAddressType("ipv5")
	var configErr *ipupdate.ConfigError
	assert.ErrorAs(t, err, &configErr)
}

func TestAddressTypeFamilies(t *testing.T) {
	assert.Equal(t, []ipupdate.Family{ipupdate.IPv4, ipupdate.IPv6}, ipupdate.AddressTypeBoth.Families())
	assert.Equal(t, []ipupdate.Family{ipupdate.IPv4}, ipupdate.AddressTypeIPv4.Families())
	assert.Equal(t, []ipupdate.Family{ipupdate.IPv6}, ipupdate.AddressTypeIPv6.Families())
	assert.True(t, ipupdate.AddressTypeBoth.Allows(ipupdate.IPv6))
	assert.False(t, ipupdate.AddressTypeIPv4.Allows(ipupdate.IPv6))
}
