package jwtkit

import (
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultKeysMaxAge is the Cache-Control max-age used when the caller has no
// better estimate of how long the keys stay valid.
const DefaultKeysMaxAge = 5 * time.Minute

// JWK holds the RSA public key fields the identity provider publishes.
type JWK struct {
	Kty string   `json:"kty"`
	Use string   `json:"use,omitempty"`
	Kid string   `json:"kid,omitempty"`
	Alg string   `json:"alg,omitempty"`
	N   string   `json:"n"` // base64url
	E   string   `json:"e"` // base64url
	X5c []string `json:"x5c,omitempty"`
}

type JWKS struct {
	Keys []JWK `json:"keys"`
}

// KIDs lists the key ids in publication order.
func (s JWKS) KIDs() []string {
	out := make([]string, 0, len(s.Keys))
	for _, k := range s.Keys {
		out = append(out, k.Kid)
	}
	return out
}

// ETag is a strong validator over the serialized set.
func (s JWKS) ETag() (string, []byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", nil, err
	}
	sum := sha256.Sum256(b)
	return "\"" + hex.EncodeToString(sum[:]) + "\"", b, nil
}

// RSAPublicToJWK converts an RSA public key to a signing JWK.
func RSAPublicToJWK(pub *rsa.PublicKey, kid, alg string) JWK {
	return JWK{
		Kty: "RSA",
		Use: "sig",
		Kid: kid,
		Alg: alg,
		N:   base64URLEncode(pub.N),
		E:   base64URLEncode(big.NewInt(int64(pub.E))),
	}
}

// ServeJWKS writes ks with caching headers. maxAge <= 0 means
// DefaultKeysMaxAge.
func ServeJWKS(w http.ResponseWriter, r *http.Request, ks JWKS, maxAge time.Duration) {
	if ks.Keys == nil {
		ks.Keys = []JWK{}
	}
	etag, body, err := ks.ETag()
	if err != nil {
		http.Error(w, "key set encoding failed", http.StatusInternalServerError)
		return
	}
	if maxAge <= 0 {
		maxAge = DefaultKeysMaxAge
	}
	w.Header().Set("Cache-Control", "public, max-age="+strconv.Itoa(int(maxAge/time.Second))+", must-revalidate")
	w.Header().Set("ETag", etag)

	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

// etagMatches implements the weak comparison If-None-Match uses.
func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}

func base64URLEncode(i *big.Int) string {
	b := i.Bytes()
	// big.Int.Bytes never has leading zeros, except for an explicit zero value.
	for len(b) > 0 && b[0] == 0x00 {
		b = b[1:]
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
