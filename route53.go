package ipupdate

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"
	"github.com/sirupsen/logrus"
)

const defaultPollInterval = 500 * time.Millisecond

// route53SDK is the slice of the Route 53 client this package uses.
type route53SDK interface {
	ListResourceRecordSets(ctx context.Context, params *route53.ListResourceRecordSetsInput, optFns ...func(*route53.Options)) (*route53.ListResourceRecordSetsOutput, error)
	ChangeResourceRecordSets(ctx context.Context, params *route53.ChangeResourceRecordSetsInput, optFns ...func(*route53.Options)) (*route53.ChangeResourceRecordSetsOutput, error)
	GetChange(ctx context.Context, params *route53.GetChangeInput, optFns ...func(*route53.Options)) (*route53.GetChangeOutput, error)
}

// route53API implements RecordAPI against AWS Route 53.
//
// It should be constructed through the UsingRoute53 client option.
type route53API struct {
	sdk          route53SDK
	log          logrus.FieldLogger
	waitForSync  bool
	pollInterval time.Duration
}

func newRoute53API(awsConfig aws.Config) *route53API {
	return &route53API{
		sdk:          route53.NewFromConfig(awsConfig),
		log:          discardLogger(),
		waitForSync:  true,
		pollInterval: defaultPollInterval,
	}
}

func rrType(f Family) types.RRType {
	if f == IPv4 {
		return types.RRTypeA
	}
	return types.RRTypeAaaa
}

// ListAddressRecords pages through the zone's record sets starting at
// hostname and returns the plain A/AAAA sets whose name matches it exactly.
// Alias and routing-policy (set-identifier) record sets are not managed and
// are skipped. The scan stops at the first record set with a different name.
func (r *route53API) ListAddressRecords(ctx context.Context, zoneID, hostname string) ([]ExistingRecord, error) {
	// Route 53 reports names in dot-terminated form.
	hostnameDot := hostname
	if !strings.HasSuffix(hostnameDot, ".") {
		hostnameDot += "."
	}

	var results []ExistingRecord
	startName := hostname
	startType := types.RRTypeA

	for {
		out, err := r.sdk.ListResourceRecordSets(ctx, &route53.ListResourceRecordSetsInput{
			HostedZoneId:    aws.String(zoneID),
			StartRecordName: aws.String(startName),
			StartRecordType: startType,
		})
		if err != nil {
			return nil, fmt.Errorf("error listing record sets in zone %s: %w", zoneID, err)
		}

		for _, rrs := range out.ResourceRecordSets {
			if aws.ToString(rrs.Name) != hostnameDot {
				// Past the target hostname; nothing further can match.
				return results, nil
			}
			if rrs.Type != types.RRTypeA && rrs.Type != types.RRTypeAaaa {
				continue
			}
			if rrs.SetIdentifier != nil || rrs.AliasTarget != nil {
				r.log.WithField("hostname", hostname).Debugf("skipping unmanaged %s record set", rrs.Type)
				continue
			}
			record, err := existingRecordFromSet(hostname, rrs)
			if err != nil {
				return nil, err
			}
			results = append(results, record)
		}

		if !out.IsTruncated {
			return results, nil
		}
		startName = aws.ToString(out.NextRecordName)
		startType = out.NextRecordType
	}
}

func existingRecordFromSet(hostname string, rrs types.ResourceRecordSet) (ExistingRecord, error) {
	family := IPv4
	if rrs.Type == types.RRTypeAaaa {
		family = IPv6
	}
	record := ExistingRecord{
		Hostname: hostname,
		Family:   family,
		TTL:      TTL(aws.ToInt64(rrs.TTL)),
	}
	for _, rr := range rrs.ResourceRecords {
		addr, err := netip.ParseAddr(aws.ToString(rr.Value))
		if err != nil {
			return ExistingRecord{}, fmt.Errorf("invalid IP address in %s record for %s: %q", rrs.Type, hostname, aws.ToString(rr.Value))
		}
		record.Values = append(record.Values, addr)
	}
	return record, nil
}

// SubmitChanges sends one change batch for the zone and, when waitForSync is
// set, polls until Route 53 reports the change INSYNC.
func (r *route53API) SubmitChanges(ctx context.Context, zoneID string, changes []Change) error {
	if len(changes) == 0 {
		return nil
	}

	awsChanges := make([]types.Change, 0, len(changes))
	for _, change := range changes {
		awsChanges = append(awsChanges, types.Change{
			Action: types.ChangeActionUpsert,
			ResourceRecordSet: &types.ResourceRecordSet{
				Name: aws.String(change.Hostname),
				Type: rrType(change.Family),
				TTL:  aws.Int64(change.TTL.Seconds()),
				ResourceRecords: []types.ResourceRecord{
					{Value: aws.String(change.Value.String())},
				},
			},
		})
	}

	out, err := r.sdk.ChangeResourceRecordSets(ctx, &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(zoneID),
		ChangeBatch: &types.ChangeBatch{
			Changes: awsChanges,
			Comment: aws.String("Route 53 update for " + strings.Join(changeHostnames(changes), " ")),
		},
	})
	if err != nil {
		return fmt.Errorf("error submitting change batch for zone %s: %w", zoneID, err)
	}
	if !r.waitForSync {
		return nil
	}
	return r.waitInsync(ctx, zoneID, out.ChangeInfo)
}

func (r *route53API) waitInsync(ctx context.Context, zoneID string, info *types.ChangeInfo) error {
	if info == nil {
		return errors.New("Route 53 reply is missing expected field ChangeInfo")
	}
	changeID := aws.ToString(info.Id)
	log := r.log.WithFields(logrus.Fields{"zone": zoneID, "change": changeID})

	for {
		switch info.Status {
		case types.ChangeStatusInsync:
			log.Debug("change is in sync")
			return nil
		case types.ChangeStatusPending:
			log.Debug("change is pending; waiting for propagation")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.pollInterval):
			}
		default:
			return fmt.Errorf("unexpected Route 53 change status %q for change %s", info.Status, changeID)
		}

		out, err := r.sdk.GetChange(ctx, &route53.GetChangeInput{Id: aws.String(changeID)})
		if err != nil {
			return fmt.Errorf("error checking status of change %s: %w", changeID, err)
		}
		if out.ChangeInfo == nil {
			return errors.New("Route 53 reply is missing expected field ChangeInfo")
		}
		info = out.ChangeInfo
	}
}

func changeHostnames(changes []Change) []string {
	var hostnames []string
	seen := map[string]bool{}
	for _, change := range changes {
		if !seen[change.Hostname] {
			seen[change.Hostname] = true
			hostnames = append(hostnames, change.Hostname)
		}
	}
	return hostnames
}
