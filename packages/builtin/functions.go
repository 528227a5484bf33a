package builtin

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/rand"
	"net/url"
	"time"

	"github.com/abdul-hamid-achik/hitshell/packages/core/registry"
	"github.com/google/uuid"
)

const alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Functions returns the built-ins that depend on nothing but their
// arguments.
func Functions() []*registry.Callable {
	return []*registry.Callable{
		registry.MustCallable("echo", funcEcho, registry.Params("value"),
			registry.Describe("return the value unchanged")),
		registry.MustCallable("uuid", funcUUID,
			registry.Describe("random UUID v4")),
		registry.MustCallable("timestamp", funcTimestamp,
			registry.Describe("current Unix time in seconds")),
		registry.MustCallable("timestampms", funcTimestampMs,
			registry.Describe("current Unix time in milliseconds")),
		registry.MustCallable("now", funcNow,
			registry.Describe("current UTC time in RFC 3339 format")),
		registry.MustCallable("date", funcDate, registry.Params("format"), registry.Default("format", "2006-01-02"),
			registry.Describe("current UTC date in a Go time layout")),
		registry.MustCallable("base64", funcBase64, registry.Params("value"),
			registry.Describe("base64 encode a string")),
		registry.MustCallable("base64decode", funcBase64Decode, registry.Params("value"),
			registry.Describe("base64 decode a string")),
		registry.MustCallable("md5", funcMD5, registry.Params("value"),
			registry.Describe("hex MD5 digest")),
		registry.MustCallable("sha256", funcSHA256, registry.Params("value"),
			registry.Describe("hex SHA-256 digest")),
		registry.MustCallable("urlencode", funcURLEncode, registry.Params("value"),
			registry.Describe("query-escape a string")),
		registry.MustCallable("urldecode", funcURLDecode, registry.Params("value"),
			registry.Describe("unescape a query-escaped string")),
		registry.MustCallable("random", funcRandom, registry.Params("min", "max"),
			registry.Default("min", float64(0)), registry.Default("max", float64(100)),
			registry.Describe("random integer in [min, max]")),
		registry.MustCallable("randomstring", funcRandomString, registry.Params("length"),
			registry.Default("length", float64(16)),
			registry.Describe("random alphanumeric string")),
		registry.MustCallable("randomemail", funcRandomEmail,
			registry.Describe("random email address")),
	}
}

func funcEcho(v any) any {
	return v
}

func funcNow() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func funcTimestamp() int64 {
	return time.Now().Unix()
}

func funcTimestampMs() int64 {
	return time.Now().UnixMilli()
}

func funcDate(format string) string {
	return time.Now().UTC().Format(format)
}

func funcUUID() string {
	return uuid.New().String()
}

func funcRandom(min, max float64) (int, error) {
	lo, hi := int(min), int(max)
	if hi < lo {
		return 0, fmt.Errorf("max %d is less than min %d", hi, lo)
	}
	return rand.Intn(hi-lo+1) + lo, nil
}

func funcRandomString(length float64) (string, error) {
	if length < 0 {
		return "", fmt.Errorf("length must not be negative, got %v", length)
	}
	return randomString(int(length), alphanumeric), nil
}

func funcRandomEmail() string {
	user := randomString(8, "abcdefghijklmnopqrstuvwxyz")
	domain := randomString(6, "abcdefghijklmnopqrstuvwxyz")
	return fmt.Sprintf("%s@%s.com", user, domain)
}

func funcBase64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func funcBase64Decode(s string) (string, error) {
	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

func funcMD5(s string) string {
	hash := md5.Sum([]byte(s))
	return hex.EncodeToString(hash[:])
}

func funcSHA256(s string) string {
	hash := sha256.Sum256([]byte(s))
	return hex.EncodeToString(hash[:])
}

func funcURLEncode(s string) string {
	return url.QueryEscape(s)
}

func funcURLDecode(s string) (string, error) {
	return url.QueryUnescape(s)
}

func randomString(length int, charset string) string {
	result := make([]byte, length)
	for i := 0; i < length; i++ {
		result[i] = charset[rand.Intn(len(charset))]
	}
	return string(result)
}
