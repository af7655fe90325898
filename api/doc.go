/*
Package api exposes the billetera services over HTTP with gin.

NewRouter mounts the meta endpoints (/, /health, /metrics) at the root and
every account and finance endpoint under the configured prefix:

	POST   {prefix}/auth/sign-up | sign-in | refresh | reset-password
	POST   {prefix}/auth/sign-out          (authenticated)
	GET    {prefix}/auth/me                (authenticated)
	GET    {prefix}/profile, PATCH {prefix}/profile
	GET    {prefix}/cash-wallets, POST, PATCH /:id, DELETE /:id
	       (same for bank-accounts, credit-cards and transactions)
	GET    {prefix}/categories, POST, DELETE /:id

Authenticated routes run behind billetera.Middleware. Request bodies are bound
with gin's validator; a failed binding answers 422 VALIDATION_ERROR with one
FieldError per rejected field. Every response carries X-Request-ID and
X-Response-Time-Ms.
*/
package api
