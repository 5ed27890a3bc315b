package ipupdate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/smithy-go"
	"github.com/sirupsen/logrus"
)

// Client performs one full discovery-reconcile-apply cycle.
type Client struct {
	cfg        *Config
	api        RecordAPI
	log        logrus.FieldLogger
	discoverer *Discoverer

	waitForSync bool
	sources     []Resolver
}

// Option customizes a Client.
type Option func(*Client) error

// UsingRoute53 registers AWS Route 53 as the DNS provider, using the given
// AWS configuration (typically from config.LoadDefaultConfig).
func UsingRoute53(awsConfig aws.Config) Option {
	return func(c *Client) error {
		c.api = newRoute53API(awsConfig)
		return nil
	}
}

// UsingRecordAPI registers a custom DNS provider.
func UsingRecordAPI(api RecordAPI) Option {
	return func(c *Client) error {
		if api == nil {
			return errors.New("record API cannot be nil")
		}
		c.api = api
		return nil
	}
}

// UsingResolvers replaces the discovery sources derived from the
// configuration.
func UsingResolvers(sources ...Resolver) Option {
	return func(c *Client) error {
		c.sources = sources
		return nil
	}
}

// WithLogger sets the logger for the client and its dependencies.
// The default discards all log output.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Client) error {
		if log != nil {
			c.log = log
		}
		return nil
	}
}

// WaitForSync controls whether change batches are followed by polling until
// Route 53 reports them INSYNC. It is on by default.
func WaitForSync(wait bool) Option {
	return func(c *Client) error {
		c.waitForSync = wait
		return nil
	}
}

// New assembles a Client from a merged configuration. A DNS provider must be
// registered with UsingRoute53 or UsingRecordAPI.
func New(cfg *Config, options ...Option) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("ipupdate.New: config cannot be nil")
	}
	c := &Client{
		cfg:         cfg,
		log:         discardLogger(),
		waitForSync: true,
	}
	for i, opt := range options {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("ipupdate.New: option %d returned an error: %w", i, err)
		}
	}
	if c.api == nil {
		return nil, errors.New("ipupdate.New: no DNS provider was registered - use ipupdate.UsingRoute53 or similar")
	}

	// Propagate the logger and sync setting now that all options have run.
	if r53, ok := c.api.(*route53API); ok {
		r53.log = c.log
		r53.waitForSync = c.waitForSync
	}

	discoverOptions := []DiscovererOption{WithDiscoveryLogger(c.log)}
	if c.sources != nil {
		discoverOptions = append(discoverOptions, WithSources(c.sources...))
	}
	discoverer, err := NewDiscoverer(cfg, discoverOptions...)
	if err != nil {
		return nil, fmt.Errorf("ipupdate.New: %w", err)
	}
	c.discoverer = discoverer
	return c, nil
}

// ZoneError reports that reconciliation or submission failed for one zone.
// Other zones are unaffected.
type ZoneError struct {
	ZoneID string
	Err    error
}

func (e *ZoneError) Error() string { return fmt.Sprintf("zone %s: %s", e.ZoneID, e.Err) }
func (e *ZoneError) Unwrap() error { return e.Err }

// Run discovers the host's current addresses and reconciles every
// configured zone against them. Zones are updated concurrently and fail
// independently; the returned error joins one ZoneError per failed zone and
// is nil only when every zone succeeded.
func (c *Client) Run(ctx context.Context) error {
	resolved := c.discoverer.Discover(ctx)
	if _, ok4 := resolved.Addr(IPv4); !ok4 {
		if _, ok6 := resolved.Addr(IPv6); !ok6 {
			c.log.Warn("no addresses were discovered; leaving all records untouched")
			return nil
		}
	}

	zoneErrors := make([]error, len(c.cfg.Zones))
	var wg sync.WaitGroup
	for i := range c.cfg.Zones {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			zone := c.cfg.Zones[i]
			if err := c.updateZone(ctx, zone, resolved); err != nil {
				c.logZoneFailure(zone.ZoneID, err)
				zoneErrors[i] = &ZoneError{ZoneID: zone.ZoneID, Err: err}
			}
		}(i)
	}
	wg.Wait()

	return errors.Join(zoneErrors...)
}

func (c *Client) updateZone(ctx context.Context, zone ZoneConfig, resolved Resolved) error {
	log := c.log.WithField("zone", zone.ZoneID)

	plan, err := PlanZone(ctx, c.api, c.cfg, zone, resolved)
	if err != nil {
		return err
	}

	upserts := Upserts(plan)
	if len(upserts) == 0 {
		log.Info("all records are up-to-date; no changes to make")
		return nil
	}

	if err := c.api.SubmitChanges(ctx, zone.ZoneID, upserts); err != nil {
		return err
	}
	for _, change := range upserts {
		log.WithFields(logrus.Fields{
			"hostname": change.Hostname,
			"type":     change.Family,
			"value":    change.Value,
			"ttl":      time.Duration(change.TTL.Seconds()) * time.Second,
		}).Info("record updated")
	}
	return nil
}

func (c *Client) logZoneFailure(zoneID string, err error) {
	log := c.log.WithField("zone", zoneID)
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		log = log.WithField("code", apiErr.ErrorCode())
	}
	log.WithError(err).Error("zone update failed")
}
