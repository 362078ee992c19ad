package shopee

import "fmt"

// Credentials holds the integrator's static Shopee Open Platform
// credentials. Loaded once at process start, shared read-only.
type Credentials struct {
	PartnerID   int64
	PartnerKey  string
	Region      string
	RedirectURI string
}

// Partner API hosts per region. The sandbox host is selected with the
// "sandbox" region.
var regionHosts = map[string]string{
	"global":  "https://partner.shopeemobile.com",
	"cn":      "https://openplatform.shopee.cn",
	"br":      "https://openplatform.shopee.com.br",
	"sandbox": "https://partner.test-stable.shopeemobile.com",
}

// BaseURL returns the partner API host for the configured region.
func (c Credentials) BaseURL() (string, error) {
	host, ok := regionHosts[c.Region]
	if !ok {
		return "", fmt.Errorf("unknown region %q", c.Region)
	}
	return host, nil
}

// Validate checks that all required fields are present.
func (c Credentials) Validate() error {
	if c.PartnerID == 0 {
		return fmt.Errorf("partner id is required")
	}
	if c.PartnerKey == "" {
		return fmt.Errorf("partner key is required")
	}
	if _, err := c.BaseURL(); err != nil {
		return err
	}
	return nil
}
