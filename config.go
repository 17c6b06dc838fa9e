package membership

// SimpleConfig is a plain struct implementation of Config, handy for tests
// and small deployments; larger apps usually project their own config type
// onto the interface.
type SimpleConfig struct {
	SigningKey           string
	SigningMethod        string
	ContextKey           string
	TokenExpiration      int
	InvitationExpiration int
	TokenLookup          string
	AuthScheme           string
	Issuer               string
	Audience             []string
	FrontendURL          string
	Environment          string
}

func (c SimpleConfig) GetSigningKey() string { return c.SigningKey }

func (c SimpleConfig) GetSigningMethod() string {
	if c.SigningMethod == "" {
		return "HS256"
	}
	return c.SigningMethod
}

func (c SimpleConfig) GetContextKey() string {
	if c.ContextKey == "" {
		return "user"
	}
	return c.ContextKey
}

func (c SimpleConfig) GetTokenExpiration() int {
	if c.TokenExpiration <= 0 {
		return 24
	}
	return c.TokenExpiration
}

func (c SimpleConfig) GetInvitationExpiration() int {
	if c.InvitationExpiration <= 0 {
		return 7
	}
	return c.InvitationExpiration
}

func (c SimpleConfig) GetTokenLookup() string {
	if c.TokenLookup == "" {
		return "header:Authorization"
	}
	return c.TokenLookup
}

func (c SimpleConfig) GetAuthScheme() string {
	if c.AuthScheme == "" {
		return "Bearer"
	}
	return c.AuthScheme
}

func (c SimpleConfig) GetIssuer() string { return c.Issuer }

func (c SimpleConfig) GetAudience() []string { return c.Audience }

func (c SimpleConfig) GetFrontendURL() string { return c.FrontendURL }

func (c SimpleConfig) GetEnvironment() string {
	if c.Environment == "" {
		return "production"
	}
	return c.Environment
}

// IsDevelopment reports whether dev-only surfaces (the raw user listing)
// should be exposed.
func IsDevelopment(cfg Config) bool {
	env := cfg.GetEnvironment()
	return env == "development" || env == "local" || env == "dev"
}

var _ Config = SimpleConfig{}
