package http

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DigestAuthenticator answers HTTP digest challenges. The first request is
// sent without credentials; a 401 carrying a Digest challenge is retried
// once with an Authorization header.
type DigestAuthenticator struct {
	Username string
	Password string
	// Cnonce defaults to a random client nonce.
	Cnonce func() (string, error)
}

func (a *DigestAuthenticator) Authenticate(*http.Request, []byte) error {
	return nil
}

func (a *DigestAuthenticator) Retry(req *http.Request, resp *Response) (bool, error) {
	challenge := resp.Header("WWW-Authenticate")
	if !strings.HasPrefix(challenge, "Digest ") {
		return false, nil
	}
	params := ParseWWWAuthenticate(challenge)

	d := &digest{
		username: a.Username,
		password: a.Password,
		realm:    params["realm"],
		nonce:    params["nonce"],
		uri:      req.URL.RequestURI(),
		qop:      params["qop"],
		opaque:   params["opaque"],
		method:   req.Method,
	}

	if d.qop != "" {
		gen := generateCnonce
		if a.Cnonce != nil {
			gen = a.Cnonce
		}
		cnonce, err := gen()
		if err != nil {
			return false, err
		}
		d.nc = "00000001"
		d.cnonce = cnonce
		if strings.Contains(d.qop, "auth") {
			d.qop = "auth"
		}
	}

	req.Header.Set("Authorization", d.header())
	return true, nil
}

type digest struct {
	username, password string
	realm, nonce, uri  string
	qop, nc, cnonce    string
	opaque, method     string
}

// ParseWWWAuthenticate parses the key="value" pairs of a Digest challenge.
func ParseWWWAuthenticate(header string) map[string]string {
	result := make(map[string]string)
	header = strings.TrimPrefix(header, "Digest ")

	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		result[strings.TrimSpace(key)] = strings.Trim(strings.TrimSpace(value), `"`)
	}
	return result
}

func (d *digest) response() string {
	ha1 := md5Hash(fmt.Sprintf("%s:%s:%s", d.username, d.realm, d.password))
	ha2 := md5Hash(fmt.Sprintf("%s:%s", d.method, d.uri))

	if d.qop == "auth" || d.qop == "auth-int" {
		return md5Hash(fmt.Sprintf("%s:%s:%s:%s:%s:%s", ha1, d.nonce, d.nc, d.cnonce, d.qop, ha2))
	}
	return md5Hash(fmt.Sprintf("%s:%s:%s", ha1, d.nonce, ha2))
}

func (d *digest) header() string {
	parts := []string{
		fmt.Sprintf(`username="%s"`, d.username),
		fmt.Sprintf(`realm="%s"`, d.realm),
		fmt.Sprintf(`nonce="%s"`, d.nonce),
		fmt.Sprintf(`uri="%s"`, d.uri),
		fmt.Sprintf(`response="%s"`, d.response()),
	}
	if d.qop != "" {
		parts = append(parts, "qop="+d.qop, "nc="+d.nc, fmt.Sprintf(`cnonce="%s"`, d.cnonce))
	}
	if d.opaque != "" {
		parts = append(parts, fmt.Sprintf(`opaque="%s"`, d.opaque))
	}
	return "Digest " + strings.Join(parts, ", ")
}

func generateCnonce() (string, error) {
	b := make([]byte, 8)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func md5Hash(s string) string {
	h := md5.Sum([]byte(s))
	return hex.EncodeToString(h[:])
}
