/*
Package gotrue is a small client for the hosted auth API under <base>/auth/v1.

It serves three callers:

  - jwks.Cache, through FetchKeySet (GET /.well-known/jwks.json)
  - core.Core, through GetUser (GET /user, the who-am-I lookup)
  - the auth service, for sign-up, sign-in, refresh, sign-out, recovery and
    admin user creation

Every request carries the project's apikey header. Calls made on behalf of a
user also carry "Authorization: Bearer <token>"; admin calls use the service
role key for both.

# Errors

All failures are *core.Error values:

	transport error, timeout, 5xx  -> 502 AUTH_PROVIDER_UNAVAILABLE
	4xx                            -> provider status, provider code and message,
	                                  full response as details
	user without id or email       -> 502 INVALID_AUTH_USER
	admin call without service key -> 500 SERVICE_ROLE_KEY_MISSING

No call is retried.
*/
package gotrue
