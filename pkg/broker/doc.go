// Package broker obtains bearer tokens from the platform's authorization server.
//
// Client is stateless and maps one call to one request (plus retries):
//
//	POST {base}/token  Basic clientID:clientSecret   grant_type=client_credentials
//	PUT  {base}/token  Basic clientID:refreshToken   grant_type=refresh_token
//
// Only transport failures (*NetworkError) are retried, with exponential
// backoff. A non-2xx answer is an *AuthFailure and an unparseable 2xx body
// wraps ErrMalformedResponse; both are final.
//
// Session holds the service's own token:
//
//	Unauthenticated -> Acquiring -> Authenticated | Failed
//	Authenticated   -> Refreshing -> Authenticated | Failed
//
// A token within DefaultExpiryMargin of expiry is refreshed on the next call.
// A rejected refresh falls back to a full fetch. A forced Refresh never joins
// an on-demand fetch. TokenSource plugs the session into oauth2.Transport.
package broker
