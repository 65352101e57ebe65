package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancing"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/lena/certscope/internal/discovery/types"
)

// discoverELB finds Classic ELB and ALB/NLB load balancer DNS names
func (p *Provider) discoverELB(ctx context.Context, cfg aws.Config, region string) ([]types.DiscoveredEndpoint, []types.DiscoveryError) {
	var discovered []types.DiscoveredEndpoint
	var errors []types.DiscoveryError

	classicEndpoints, classicErrors := p.discoverClassicELB(ctx, cfg, region)
	discovered = append(discovered, classicEndpoints...)
	errors = append(errors, classicErrors...)

	v2Endpoints, v2Errors := p.discoverELBv2(ctx, cfg, region)
	discovered = append(discovered, v2Endpoints...)
	errors = append(errors, v2Errors...)

	return discovered, errors
}

// discoverClassicELB finds Classic Elastic Load Balancers
func (p *Provider) discoverClassicELB(ctx context.Context, cfg aws.Config, region string) ([]types.DiscoveredEndpoint, []types.DiscoveryError) {
	var discovered []types.DiscoveredEndpoint
	var errors []types.DiscoveryError

	client := elasticloadbalancing.NewFromConfig(cfg)

	result, err := client.DescribeLoadBalancers(ctx, &elasticloadbalancing.DescribeLoadBalancersInput{})
	if err != nil {
		errors = append(errors, types.DiscoveryError{
			Region:   region,
			Resource: "elb:classic",
			Message:  err.Error(),
		})
		return discovered, errors
	}

	for _, lb := range result.LoadBalancerDescriptions {
		dnsName := aws.ToString(lb.DNSName)
		if dnsName == "" {
			continue
		}

		// Only listeners that terminate TLS are probe-able
		var ports []int
		for _, listener := range lb.ListenerDescriptions {
			if listener.Listener == nil {
				continue
			}
			if tlsProtocol(aws.ToString(listener.Listener.Protocol)) {
				ports = append(ports, int(listener.Listener.LoadBalancerPort))
			}
		}

		discovered = append(discovered, types.DiscoveredEndpoint{
			Value:  dnsName,
			Source: "aws:elb:classic",
			Ports:  ports,
			Metadata: map[string]string{
				"name":   aws.ToString(lb.LoadBalancerName),
				"region": region,
				"type":   "classic",
				"scheme": aws.ToString(lb.Scheme),
				"vpc_id": aws.ToString(lb.VPCId),
			},
		})
	}

	return discovered, errors
}

// discoverELBv2 finds Application and Network Load Balancers
func (p *Provider) discoverELBv2(ctx context.Context, cfg aws.Config, region string) ([]types.DiscoveredEndpoint, []types.DiscoveryError) {
	var discovered []types.DiscoveredEndpoint
	var errors []types.DiscoveryError

	client := elasticloadbalancingv2.NewFromConfig(cfg)

	paginator := elasticloadbalancingv2.NewDescribeLoadBalancersPaginator(client, &elasticloadbalancingv2.DescribeLoadBalancersInput{})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			errors = append(errors, types.DiscoveryError{
				Region:   region,
				Resource: "elb:v2",
				Message:  err.Error(),
			})
			break
		}

		for _, lb := range page.LoadBalancers {
			dnsName := aws.ToString(lb.DNSName)
			if dnsName == "" {
				continue
			}
			lbType := string(lb.Type)

			metadata := map[string]string{
				"name":   aws.ToString(lb.LoadBalancerName),
				"arn":    aws.ToString(lb.LoadBalancerArn),
				"region": region,
				"type":   lbType,
				"scheme": string(lb.Scheme),
				"vpc_id": aws.ToString(lb.VpcId),
			}
			if lb.State != nil {
				metadata["state"] = string(lb.State.Code)
			}

			// Ask the listeners which ports terminate TLS
			var ports []int
			listenersResult, err := client.DescribeListeners(ctx, &elasticloadbalancingv2.DescribeListenersInput{
				LoadBalancerArn: lb.LoadBalancerArn,
			})
			if err != nil {
				errors = append(errors, types.DiscoveryError{
					Region:   region,
					Resource: "elb:v2:listeners",
					Message:  err.Error(),
				})
			} else {
				for _, listener := range listenersResult.Listeners {
					if tlsProtocol(string(listener.Protocol)) {
						ports = append(ports, int(aws.ToInt32(listener.Port)))
					}
				}
			}

			discovered = append(discovered, types.DiscoveredEndpoint{
				Value:    dnsName,
				Source:   fmt.Sprintf("aws:elb:%s", lbType),
				Ports:    ports,
				Metadata: metadata,
			})
		}
	}

	p.logger.Debug("discovered ELBv2 load balancers", "region", region)
	return discovered, errors
}
