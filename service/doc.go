/*
Package service implements the Billetera API operations.

AuthService wraps the hosted auth API: sign-up, sign-in, refresh, sign-out and
password reset, normalizing every auth response with BuildSession.

The resource services (profile, cash wallets, bank accounts, credit cards,
categories, transactions) act on the data store through package postgrest
with the caller's own token, so row-level security applies. Every query is
scoped to user_id and to rows whose deleted_at is null; deletes only stamp
deleted_at.

Errors are *core.Error values:

	update that matched nothing      404 <RESOURCE>_NOT_FOUND
	insert that returned nothing     500 <RESOURCE>_CREATE_FAILED
	patch without fields             400 NO_<RESOURCE>_FIELDS
	table missing in the data store  503 MIGRATIONS_NOT_APPLIED
*/
package service
