package validation

import (
	"net"
	"regexp"
)

var (
	// hostnameRegex accepts dotted labels of up to 63 characters each.
	// Single-label names pass; internal networks scan hosts like
	// "db01" or "registry.local" that public-DNS rules would reject.
	hostnameRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?)*$`)

	// portSpecRegex validates port list syntax like "443", "1-1000" or
	// "443,8443,9000-9100"
	portSpecRegex = regexp.MustCompile(`^(\d+(-\d+)?)(,\s*\d+(-\d+)?)*$`)
)

// IsValidHostname checks whether the string is a plausible scan target
// name. It does not resolve anything.
func IsValidHostname(host string) bool {
	if len(host) == 0 || len(host) > 253 {
		return false
	}
	return hostnameRegex.MatchString(host)
}

// IsValidIP checks if the string is a valid IP address (v4 or v6)
func IsValidIP(ip string) bool {
	return net.ParseIP(ip) != nil
}

// IsValidCIDR checks if the string is a valid CIDR block
func IsValidCIDR(cidr string) bool {
	_, _, err := net.ParseCIDR(cidr)
	return err == nil
}

// IsValidTarget accepts a hostname or a literal IP.
func IsValidTarget(host string) bool {
	return IsValidHostname(host) || IsValidIP(host)
}

// IsValidPortSpec checks port list syntax only; range bounds are checked
// when the list is parsed.
func IsValidPortSpec(ports string) bool {
	if ports == "" {
		return true // empty means defaults
	}
	return portSpecRegex.MatchString(ports)
}

// ValidateCredentialData checks that the required fields for a provider
// are present. Values are verified against the provider API separately.
func ValidateCredentialData(provider string, data map[string]interface{}) map[string]string {
	errors := make(map[string]string)

	switch provider {
	case "aws":
		if _, ok := data["access_key_id"]; !ok {
			errors["access_key_id"] = "AWS Access Key ID is required"
		}
		if _, ok := data["secret_access_key"]; !ok {
			errors["secret_access_key"] = "AWS Secret Access Key is required"
		}
	case "azure":
		required := []string{"tenant_id", "client_id", "client_secret"}
		for _, field := range required {
			if _, ok := data[field]; !ok {
				errors[field] = "Azure " + field + " is required"
			}
		}
	case "digitalocean":
		if _, ok := data["api_token"]; !ok {
			errors["api_token"] = "DigitalOcean API token is required"
		}
	case "cloudflare":
		_, hasToken := data["api_token"]
		_, hasKey := data["api_key"]
		if !hasToken && !hasKey {
			errors["api_token"] = "Cloudflare API token or API key is required"
		}
		if hasKey && !hasToken {
			if _, ok := data["email"]; !ok {
				errors["email"] = "Cloudflare email is required with an API key"
			}
		}
	default:
		errors["provider"] = "Unsupported provider: " + provider
	}

	return errors
}
