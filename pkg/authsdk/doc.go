/*
Package authsdk is a client for the Gatehouse credential issuer.

# SDKClient vs Session

SDKClient covers the public routes (health, JWKS) and the account routes
that create a session:

	client := authsdk.NewSDKClient("http://localhost:3000")

	session, _, err := client.SignIn(ctx, "user@example.com", "correct horse battery")

A Session carries the opaque session token. The issuer accepts it as a bearer
credential in place of the browser cookie:

	info, err := session.Get(ctx)          // session + user
	jwt, err := session.AccessToken(ctx)   // short-lived access token
	err = session.SignOut(ctx)

# Errors

Non-2xx responses are returned as *httpx.APIError with the issuer's code and
message:

	var apiErr *httpx.APIError
	if errors.As(err, &apiErr) && apiErr.Code == authsdk.ErrorCodeInvalidEmailOrPassword {
		// wrong credentials
	}
*/
package authsdk
