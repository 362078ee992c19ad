package shopee

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentials_BaseURL(t *testing.T) {
	cases := map[string]string{
		"global":  "https://partner.shopeemobile.com",
		"cn":      "https://openplatform.shopee.cn",
		"br":      "https://openplatform.shopee.com.br",
		"sandbox": "https://partner.test-stable.shopeemobile.com",
	}
	for region, host := range cases {
		c := Credentials{PartnerID: 1, PartnerKey: "k", Region: region}
		url, err := c.BaseURL()
		require.NoError(t, err, region)
		assert.Equal(t, host, url)
	}

	_, err := Credentials{Region: "mars"}.BaseURL()
	assert.ErrorContains(t, err, "unknown region")
}

func TestCredentials_Validate(t *testing.T) {
	valid := Credentials{PartnerID: 2011285, PartnerKey: "key", Region: "global"}
	assert.NoError(t, valid.Validate())

	missingID := valid
	missingID.PartnerID = 0
	assert.ErrorContains(t, missingID.Validate(), "partner id")

	missingKey := valid
	missingKey.PartnerKey = ""
	assert.ErrorContains(t, missingKey.Validate(), "partner key")

	badRegion := valid
	badRegion.Region = ""
	assert.Error(t, badRegion.Validate())
}
