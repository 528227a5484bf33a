package controllers

import (
	"github.com/abdul-hamid-achik/hitshell/packages/auth/oauth2"
	"github.com/abdul-hamid-achik/hitshell/packages/core/registry"
	"github.com/abdul-hamid-achik/hitshell/packages/engine"
	"github.com/abdul-hamid-achik/hitshell/packages/http"
)

// Auth installs the authenticator applied to every request.
type Auth struct {
	engine *engine.Engine
	// tokens outlive a scheme switch so auth.oauth2 can be re-run cheaply.
	tokens *oauth2.TokenCache
}

func NewAuth(e *engine.Engine) *Auth {
	return &Auth{engine: e, tokens: oauth2.NewTokenCache()}
}

func (a *Auth) Name() string { return "auth" }

func (a *Auth) Namespace() *registry.Namespace {
	return registry.NewNamespace(
		registry.MustCallable("set", a.Set, registry.Params("publickey", "privatekey"),
			registry.Describe("sign requests with an API key pair")),
		registry.MustCallable("basic", a.Basic, registry.Params("username", "password"),
			registry.Describe("use HTTP basic authentication")),
		registry.MustCallable("bearer", a.Bearer, registry.Params("token"),
			registry.Describe("send a bearer token")),
		registry.MustCallable("digest", a.Digest, registry.Params("username", "password"),
			registry.Describe("answer HTTP digest challenges")),
		registry.MustCallable("aws", a.AWS, registry.Params("accesskey", "secretkey", "region", "service"),
			registry.Default("region", "us-east-1"), registry.Default("service", "execute-api"),
			registry.Describe("sign requests with AWS Signature Version 4")),
		registry.MustCallable("oauth2", a.OAuth2, registry.Params("tokenurl", "clientid", "clientsecret", "scope"),
			registry.Default("scope", ""),
			registry.Describe("send OAuth2 client credentials tokens, fetched on first use")),
		registry.MustCallable("oauth2password", a.OAuth2Password,
			registry.Params("tokenurl", "clientid", "clientsecret", "username", "password", "scope"),
			registry.Default("scope", ""),
			registry.Describe("send OAuth2 tokens from the password grant")),
		registry.MustCallable("clear", a.Clear, registry.Describe("stop authenticating requests")),
		registry.MustCallable("current", a.Current, registry.Describe("the active scheme")),
	)
}

func (a *Auth) use(auth http.Authenticator) {
	a.engine.Configure(func(cfg *http.Config) {
		cfg.Authenticator = auth
	})
}

func (a *Auth) Set(publicKey, privateKey string) {
	a.use(http.NewSigningAuthenticator(publicKey, privateKey))
}

func (a *Auth) Basic(username, password string) {
	a.use(&http.BasicAuthenticator{Username: username, Password: password})
}

func (a *Auth) Bearer(token string) {
	a.use(&http.BearerAuthenticator{Token: token})
}

func (a *Auth) Digest(username, password string) {
	a.use(&http.DigestAuthenticator{Username: username, Password: password})
}

func (a *Auth) AWS(accessKey, secretKey, region, service string) {
	a.use(&http.AWSAuthenticator{AccessKey: accessKey, SecretKey: secretKey, Region: region, Service: service})
}

func (a *Auth) OAuth2(tokenURL, clientID, clientSecret, scope string) error {
	return a.oauth2([]string{string(oauth2.ClientCredentials), tokenURL, clientID, clientSecret, scope})
}

func (a *Auth) OAuth2Password(tokenURL, clientID, clientSecret, username, password, scope string) error {
	return a.oauth2([]string{string(oauth2.Password), tokenURL, clientID, clientSecret, username, password, scope})
}

func (a *Auth) oauth2(params []string) error {
	cfg, err := oauth2.ParseGrant(params)
	if err != nil {
		return err
	}
	a.use(oauth2.NewProvider(cfg, oauth2.WithCache(a.tokens)))
	return nil
}

func (a *Auth) Clear() {
	a.use(nil)
}

// Current names the installed scheme, or returns nil when requests are
// sent unauthenticated.
func (a *Auth) Current() any {
	switch a.engine.Client().Config().Authenticator.(type) {
	case *http.SigningAuthenticator:
		return "signing"
	case *http.BasicAuthenticator:
		return "basic"
	case *http.BearerAuthenticator:
		return "bearer"
	case *http.DigestAuthenticator:
		return "digest"
	case *http.AWSAuthenticator:
		return "aws"
	case *oauth2.Provider:
		return "oauth2"
	case nil:
		return nil
	default:
		return "custom"
	}
}
