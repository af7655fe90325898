/*
Package postgrest is a minimal typed client for the data store's REST
interface under <base>/rest/v1.

Requests carry the project's apikey and the caller's own bearer token, so
row-level security decides what each user can see. Writes ask for
"Prefer: return=representation" and get the stored rows back.

	rows, err := postgrest.List[Wallet](ctx, client, token,
		postgrest.From("cash_wallets").
			Select("id", "name", "balance").
			Eq("user_id", userID).
			IsNull("deleted_at").
			Order("created_at", false))

Failures are *core.Error values: a 4xx or 5xx response keeps its status under
SUPABASE_REST_ERROR with the response body as details, a body that is not a
row array is INVALID_SUPABASE_RESPONSE (500), and a transport failure is
SUPABASE_UNAVAILABLE (502).
*/
package postgrest
