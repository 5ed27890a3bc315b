package ipupdate

import (
	"context"
	"fmt"
	"net/netip"
)

// ExistingRecord is a read-only snapshot of one address record set as it
// currently exists in the zone.
type ExistingRecord struct {
	Hostname string
	Family   Family
	Values   []netip.Addr
	TTL      TTL
}

// ChangeAction says what the executor should do with a change.
type ChangeAction int

const (
	// NoOp means the record already matches and nothing is submitted.
	NoOp ChangeAction = iota
	// Upsert means the record is created or replaced with Value and TTL.
	Upsert
)

func (a ChangeAction) String() string {
	if a == NoOp {
		return "no-op"
	}
	return "upsert"
}

// Change is the planned outcome for one (hostname, family) pair.
type Change struct {
	Hostname string
	Family   Family
	Action   ChangeAction
	Value    netip.Addr
	TTL      TTL
}

// RecordAPI is the boundary to the DNS zone service.
type RecordAPI interface {
	// ListAddressRecords returns the A/AAAA record sets for hostname in the
	// given zone.
	ListAddressRecords(ctx context.Context, zoneID, hostname string) ([]ExistingRecord, error)

	// SubmitChanges applies a batch of Upsert changes to one zone
	// atomically: either every change is accepted or the batch fails.
	SubmitChanges(ctx context.Context, zoneID string, changes []Change) error
}

// PlanZone computes the change plan for every hostname in one zone. A record
// is left untouched (NoOp) only when its value set is exactly the resolved
// address and its TTL matches the effective TTL; anything else becomes an
// Upsert. Families with no resolved address produce no entry at all, so a
// discovery failure can never remove an existing record.
func PlanZone(ctx context.Context, api RecordAPI, cfg *Config, zone ZoneConfig, resolved Resolved) ([]Change, error) {
	var plan []Change
	for _, hostname := range zone.Hostnames {
		existing, err := api.ListAddressRecords(ctx, zone.ZoneID, hostname.Hostname)
		if err != nil {
			return nil, fmt.Errorf("error listing records for %s: %w", hostname.Hostname, err)
		}
		ttl := cfg.EffectiveTTL(zone, hostname)
		plan = append(plan, planHostname(hostname.Hostname, ttl, resolved, existing)...)
	}
	return plan, nil
}

func planHostname(hostname string, ttl TTL, resolved Resolved, existing []ExistingRecord) []Change {
	var changes []Change
	for _, family := range []Family{IPv4, IPv6} {
		addr, ok := resolved.Addr(family)
		if !ok {
			continue
		}
		change := Change{Hostname: hostname, Family: family, Action: Upsert, Value: addr, TTL: ttl}
		if record := findRecord(existing, family); record != nil && recordMatches(record, addr, ttl) {
			change.Action = NoOp
		}
		changes = append(changes, change)
	}
	return changes
}

func findRecord(existing []ExistingRecord, family Family) *ExistingRecord {
	for i := range existing {
		if existing[i].Family == family {
			return &existing[i]
		}
	}
	return nil
}

func recordMatches(record *ExistingRecord, addr netip.Addr, ttl TTL) bool {
	return len(record.Values) == 1 && record.Values[0] == addr && record.TTL == ttl
}

// Upserts filters a plan down to the changes that must be submitted.
func Upserts(plan []Change) []Change {
	var result []Change
	for _, change := range plan {
		if change.Action == Upsert {
			result = append(result, change)
		}
	}
	return result
}
