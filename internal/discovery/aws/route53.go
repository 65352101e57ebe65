package aws

import (
	"context"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	r53types "github.com/aws/aws-sdk-go-v2/service/route53/types"
	"github.com/lena/certscope/internal/discovery/types"
)

// discoverRoute53 walks Route53 hosted zones and reports the record
// names that resolve to an address, the only ones worth probing
func (p *Provider) discoverRoute53(ctx context.Context, cfg aws.Config) ([]types.DiscoveredEndpoint, []types.DiscoveryError) {
	var discovered []types.DiscoveredEndpoint
	var errors []types.DiscoveryError

	client := route53.NewFromConfig(cfg)

	zonesPaginator := route53.NewListHostedZonesPaginator(client, &route53.ListHostedZonesInput{})

	for zonesPaginator.HasMorePages() {
		zonesPage, err := zonesPaginator.NextPage(ctx)
		if err != nil {
			errors = append(errors, types.DiscoveryError{
				Region:   "global",
				Resource: "route53:zones",
				Message:  err.Error(),
			})
			break
		}

		for _, zone := range zonesPage.HostedZones {
			zoneName := strings.TrimSuffix(aws.ToString(zone.Name), ".")
			zoneID := aws.ToString(zone.Id)
			private := zone.Config != nil && zone.Config.PrivateZone

			recordEndpoints, recordErrors := p.discoverRoute53Records(ctx, client, zoneID, zoneName, private)
			discovered = append(discovered, recordEndpoints...)
			errors = append(errors, recordErrors...)
		}
	}

	p.logger.Debug("discovered Route53 records", "count", len(discovered))
	return discovered, errors
}

// discoverRoute53Records gets all address-bearing DNS records in a hosted zone
func (p *Provider) discoverRoute53Records(ctx context.Context, client *route53.Client, zoneID, zoneName string, private bool) ([]types.DiscoveredEndpoint, []types.DiscoveryError) {
	var discovered []types.DiscoveredEndpoint
	var errors []types.DiscoveryError

	paginator := route53.NewListResourceRecordSetsPaginator(client, &route53.ListResourceRecordSetsInput{
		HostedZoneId: aws.String(zoneID),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			errors = append(errors, types.DiscoveryError{
				Region:   "global",
				Resource: "route53:records",
				Message:  err.Error(),
			})
			break
		}

		for _, record := range page.ResourceRecordSets {
			recordName := strings.TrimSuffix(aws.ToString(record.Name), ".")
			recordType := string(record.Type)

			// Only records that resolve to an address name a probe-able host
			if recordType != "A" && recordType != "AAAA" && recordType != "CNAME" {
				continue
			}

			// Wildcard names cannot be probed directly
			if isWildcardName(recordName) {
				continue
			}

			discovered = append(discovered, types.DiscoveredEndpoint{
				Value:  recordName,
				Source: "aws:route53",
				Metadata: map[string]string{
					"zone_id":      zoneID,
					"zone_name":    zoneName,
					"record_type":  recordType,
					"ttl":          strconv.FormatInt(aws.ToInt64(record.TTL), 10),
					"private_zone": strconv.FormatBool(private),
				},
			})

			// CNAME targets are themselves probe-able hosts
			if record.Type == r53types.RRTypeCname {
				for _, rr := range record.ResourceRecords {
					target := strings.TrimSuffix(aws.ToString(rr.Value), ".")
					if target == "" || isWildcardName(target) {
						continue
					}
					discovered = append(discovered, types.DiscoveredEndpoint{
						Value:  target,
						Source: "aws:route53:cname",
						Metadata: map[string]string{
							"record_name": recordName,
							"zone_name":   zoneName,
						},
					})
				}
			}

			// Extract alias targets (often ELB/CloudFront endpoints)
			if record.AliasTarget != nil {
				aliasTarget := strings.TrimSuffix(aws.ToString(record.AliasTarget.DNSName), ".")
				if aliasTarget != "" {
					discovered = append(discovered, types.DiscoveredEndpoint{
						Value:  aliasTarget,
						Source: "aws:route53:alias",
						Metadata: map[string]string{
							"record_name":   recordName,
							"alias_zone_id": aws.ToString(record.AliasTarget.HostedZoneId),
						},
					})
				}
			}
		}
	}

	return discovered, errors
}

// isWildcardName reports wildcard records, which Route53 returns with
// the asterisk octal-escaped
func isWildcardName(name string) bool {
	return strings.HasPrefix(name, "*") || strings.HasPrefix(name, `\052`)
}
