package authhttp

import (
	"crypto/rsa"
	"net/http"

	jwtkit "github.com/PaulFidika/projectkit/jwt"
	oidckit "github.com/PaulFidika/projectkit/oidc"
)

// KeySetHandler serves the provider keys the verifier currently trusts.
// Clients may cache the response for as long as the verifier does.
func KeySetHandler(cache *oidckit.KeySetCache) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ks, err := cache.KeySet(r.Context())
		if err != nil {
			writeError(w, oidckit.StatusOf(err), "auth_unavailable")
			return
		}
		jwtkit.ServeJWKS(w, r, ToJWKS(ks), cache.TTL())
	})
}

// ToJWKS renders the RSA keys of ks. Keys of other types are skipped.
func ToJWKS(ks *oidckit.KeySet) jwtkit.JWKS {
	out := jwtkit.JWKS{Keys: []jwtkit.JWK{}}
	if ks == nil || ks.Keys == nil {
		return out
	}
	for i := 0; i < ks.Keys.Len(); i++ {
		key, ok := ks.Keys.Key(i)
		if !ok {
			continue
		}
		var raw interface{}
		if err := key.Raw(&raw); err != nil {
			continue
		}
		pub, ok := raw.(*rsa.PublicKey)
		if !ok {
			continue
		}
		alg := "RS256"
		if a := key.Algorithm(); a != nil && a.String() != "" {
			alg = a.String()
		}
		out.Keys = append(out.Keys, jwtkit.RSAPublicToJWK(pub, key.KeyID(), alg))
	}
	return out
}
