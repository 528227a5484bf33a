package http

import (
	"crypto/sha512"
	"encoding/base64"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// SigningAuthenticator signs requests with a key pair. Each request carries
// the public key, a millisecond timestamp, and a SHA-512 hash over the path
// and query, the timestamp, the private key and the body.
type SigningAuthenticator struct {
	PublicKey  string
	PrivateKey string
	// Now defaults to time.Now.
	Now func() time.Time
}

func NewSigningAuthenticator(publicKey, privateKey string) *SigningAuthenticator {
	return &SigningAuthenticator{PublicKey: publicKey, PrivateKey: privateKey}
}

func (a *SigningAuthenticator) Authenticate(req *http.Request, body []byte) error {
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	timestamp := strconv.FormatInt(now().UnixMilli(), 10)

	req.Header.Set("X-API-Key", a.PublicKey)
	req.Header.Set("X-API-Timestamp", timestamp)
	req.Header.Set("X-API-Hash", SignatureHash(req.URL.RequestURI(), timestamp, a.PrivateKey, body))
	return nil
}

// SignatureHash computes the X-API-Hash value. Each byte of the digest is
// written in lowercase hex without zero padding, which servers using this
// scheme expect.
func SignatureHash(pathAndQuery, timestamp, privateKey string, body []byte) string {
	h := sha512.New()
	h.Write([]byte(pathAndQuery))
	h.Write([]byte(timestamp))
	h.Write([]byte(privateKey))
	h.Write(body)

	var sb strings.Builder
	for _, b := range h.Sum(nil) {
		sb.WriteString(strconv.FormatUint(uint64(b), 16))
	}
	return sb.String()
}

// BasicAuthenticator sets HTTP basic credentials.
type BasicAuthenticator struct {
	Username string
	Password string
}

func (a *BasicAuthenticator) Authenticate(req *http.Request, _ []byte) error {
	creds := a.Username + ":" + a.Password
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(creds)))
	return nil
}

// BearerAuthenticator sets a bearer token.
type BearerAuthenticator struct {
	Token string
}

func (a *BearerAuthenticator) Authenticate(req *http.Request, _ []byte) error {
	req.Header.Set("Authorization", "Bearer "+a.Token)
	return nil
}
