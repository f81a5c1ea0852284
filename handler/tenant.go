package handler

// DefaultTenant is the namespace used when a request does not name one.
// Single-team deployments keep every document here; multi-team setups
// pass X-Tenant to partition their indexes.
const DefaultTenant = "default"

type tenantRequest interface {
	GetHeader(key string) string
}

func tenantFrom(c tenantRequest) string {
	if t := c.GetHeader("X-Tenant"); t != "" {
		return t
	}
	return DefaultTenant
}
