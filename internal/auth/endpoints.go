package auth

import "net/http"

const (
	UserAgent     = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.13; rv:66.0) Gecko/20100101 Firefox/66.0"
	Platform      = "macintosh"
	BamSDKVersion = "3.4"
	Origin        = "https://www.mlb.com"

	tokenExchangeGrant = "urn:ietf:params:oauth:grant-type:token-exchange"
	deviceTokenType    = "urn:bamtech:params:oauth:token-type:device"
	accountTokenType   = "urn:bamtech:params:oauth:token-type:account"
)

// Endpoints holds the upstream URLs of the refresh chain.
type Endpoints struct {
	APIKeyPage    string
	OktaJS        string
	Authn         string
	OktaAuthorize string
	Devices       string
	Session       string
	Token         string
	Entitlement   string
}

// DefaultEndpoints returns the live MLB.tv endpoints.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		APIKeyPage:    "https://www.mlb.com/tv/g490865/",
		OktaJS:        "https://www.mlbstatic.com/mlb.com/vendor/mlb-okta/mlb-okta.js",
		Authn:         "https://ids.mlb.com/api/v1/authn",
		OktaAuthorize: "https://ids.mlb.com/oauth2/aus1m088yK07noBfh356/v1/authorize",
		Devices:       "https://us.edge.bamgrid.com/devices",
		Session:       "https://us.edge.bamgrid.com/session",
		Token:         "https://us.edge.bamgrid.com/token",
		Entitlement:   "https://media-entitlement.mlb.com/api/v3/jwt",
	}
}

// MediaHeaders sets the headers the media service expects on requests
// authorized by token.
func MediaHeaders(h http.Header, token string) {
	h.Set("Authorization", token)
	h.Set("User-Agent", UserAgent)
	h.Set("Accept", "application/vnd.media-service+json; version=1")
	h.Set("x-bamsdk-version", BamSDKVersion)
	h.Set("x-bamsdk-platform", Platform)
	h.Set("Origin", Origin)
}
