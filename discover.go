package ipupdate

import (
	"context"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

// Discoverer gathers candidate addresses from every enabled source and
// reduces them to at most one address per family.
type Discoverer struct {
	cfg     *Config
	log     logrus.FieldLogger
	sources []Resolver
}

// DiscovererOption customizes a Discoverer.
type DiscovererOption func(*Discoverer)

// WithDiscoveryLogger sets the logger used for source failures and
// selection decisions. The default discards everything.
func WithDiscoveryLogger(log logrus.FieldLogger) DiscovererOption {
	return func(d *Discoverer) {
		if log != nil {
			d.log = log
		}
	}
}

// WithSources replaces the sources derived from the configuration.
func WithSources(sources ...Resolver) DiscovererOption {
	return func(d *Discoverer) {
		d.sources = sources
	}
}

// NewDiscoverer builds a Discoverer from cfg: one interface source if
// query-interfaces is enabled, and one IP service source per selected family
// if query-ip-service is enabled.
func NewDiscoverer(cfg *Config, options ...DiscovererOption) (*Discoverer, error) {
	d := &Discoverer{cfg: cfg, log: discardLogger()}

	if cfg.QueryInterfaces {
		d.sources = append(d.sources, InterfaceResolver(cfg.IgnoreInterfaces...))
	}
	if cfg.QueryIPService {
		for _, family := range cfg.AddressType.Families() {
			wr, err := WebResolver(cfg.IPService, family, cfg.Timeout)
			if err != nil {
				return nil, err
			}
			d.sources = append(d.sources, wr)
		}
	}

	for _, opt := range options {
		opt(d)
	}
	return d, nil
}

// Discover queries every source concurrently, pools the candidates, and
// selects one address per family. A source failure degrades the pool and is
// logged; it never aborts the other sources. With no sources enabled the
// result is empty and a warning is logged.
func (d *Discoverer) Discover(ctx context.Context) Resolved {
	if len(d.sources) == 0 {
		d.log.Warn("not querying any interfaces or IP services; no addresses will be discovered")
		return Resolved{}
	}

	type sourceResult struct {
		candidates []Candidate
		err        error
	}

	// Results are gathered by source index so the pool order (and therefore
	// selection) does not depend on goroutine completion order.
	results := make([]sourceResult, len(d.sources))
	var wg sync.WaitGroup
	for i, source := range d.sources {
		wg.Add(1)
		go func(i int, source Resolver) {
			defer wg.Done()
			candidates, err := source.Resolve(ctx)
			results[i] = sourceResult{candidates: candidates, err: err}
		}(i, source)
	}
	wg.Wait()

	var pool []Candidate
	for _, result := range results {
		if result.err != nil {
			d.log.WithError(result.err).Warn("address source failed")
		}
		for _, c := range result.candidates {
			if !d.cfg.AddressType.Allows(FamilyOf(c.Addr)) {
				continue
			}
			d.log.WithFields(logrus.Fields{"addr": c.Addr, "source": c.Source}).Debug("found candidate address")
			pool = append(pool, c)
		}
	}

	var resolved Resolved
	for _, family := range d.cfg.AddressType.Families() {
		var candidates []Candidate
		for _, c := range pool {
			if FamilyOf(c.Addr) == family {
				candidates = append(candidates, c)
			}
		}
		addr, ok := SelectAddress(candidates, d.cfg.AllowNonroutable)
		if !ok {
			d.log.Warnf("no usable %s address was discovered; %s records will be left untouched", family, family)
			continue
		}
		d.log.WithField("addr", addr).Infof("resolved %s address", family)
		if family == IPv4 {
			resolved.IPv4 = addr
		} else {
			resolved.IPv6 = addr
		}
	}
	return resolved
}

func discardLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
