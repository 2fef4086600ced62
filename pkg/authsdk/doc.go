/*
Package authsdk holds the wire types and errors of the sportteams auth API,
plus a small client for it.

The server writes every failure as an APIError:

	authsdk.ErrInvalidToken.WriteError(w)

Clients log in once and use the returned Session, which refreshes its access
token shortly before it expires:

	client := authsdk.NewSDKClient("http://localhost:8080")
	session, err := client.Login(ctx, "coach@example.com", "secret")
	if err != nil {
		var apiErr *authsdk.APIError
		if errors.As(err, &apiErr) && apiErr.Code == authsdk.ErrorCodeInvalidCredentials {
			// wrong email or password
		}
		return err
	}

	me, err := session.Me(ctx)
	players, err := session.ListPlayers(ctx)
	_ = session.Logout(ctx)

Sessions are safe for concurrent use.
*/
package authsdk
