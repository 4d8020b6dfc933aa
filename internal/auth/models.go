package auth

// authnRequest is posted to the identity provider to log in.
type authnRequest struct {
	Username string       `json:"username"`
	Password string       `json:"password"`
	Options  authnOptions `json:"options"`
}

type authnOptions struct {
	MultiOptionalFactorEnroll bool `json:"multiOptionalFactorEnroll"`
	WarnBeforePasswordExpired bool `json:"warnBeforePasswordExpired"`
}

type authnResponse struct {
	Status       string `json:"status"`
	SessionToken string `json:"sessionToken"`
}

type devicesRequest struct {
	ApplicationRuntime string            `json:"applicationRuntime"`
	Attributes         map[string]string `json:"attributes"`
	DeviceFamily       string            `json:"deviceFamily"`
	DeviceProfile      string            `json:"deviceProfile"`
}

type devicesResponse struct {
	Assertion string `json:"assertion"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type sessionResponse struct {
	Device struct {
		ID string `json:"id"`
	} `json:"device"`
}
