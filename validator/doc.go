/*
Package validator verifies the identity provider's access tokens with
lestrrat-go/jwx v3.

ValidateToken runs these checks in order and stops at the first failure:

 1. the token parses as a compact JWS with a JSON object payload (INVALID_TOKEN)
 2. the protected header carries kid and an asymmetric alg (INVALID_TOKEN_HEADER)
 3. the kid resolves through the KeyResolver, normally a *jwks.Cache (UNKNOWN_KEY_ID)
 4. the signature verifies with that key (INVALID_SIGNATURE)
 5. exp is present and in the future (TOKEN_EXPIRED)
 6. nbf, when present, is not in the future (TOKEN_NOT_YET_VALID)
 7. iss equals the configured issuer (INVALID_ISSUER)
 8. aud contains the configured audience, if any (INVALID_AUDIENCE)

Claims are decoded only from the verified payload. Header values are used
solely to pick the key and the algorithm.

# Usage

	cache, _ := jwks.NewCache(gotrueClient)
	v, err := validator.New(cache,
	    validator.WithBaseURL(cfg.SupabaseURL),   // issuer = <base>/auth/v1
	    validator.WithAudience("authenticated"),
	)

	raw, err := v.ValidateToken(ctx, token)
	claims := raw.(*validator.Claims)

The aud claim may be a string or a list; both decode into Audience.
*/
package validator
