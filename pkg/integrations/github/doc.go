// Package github implements the GitHub side of "Sign in with GitHub".
//
// # Overview
//
// [OAuthClient] runs the web application flow: it builds the authorization
// URL, exchanges the callback code for a token via golang.org/x/oauth2, and
// fetches the signed-in user's profile.
//
//	oc := github.NewOAuthClient(github.OAuthConfig{
//	    ClientID:     id,
//	    ClientSecret: secret,
//	    RedirectURI:  "https://example.com/auth/github/callback",
//	})
//	http.Redirect(w, r, oc.AuthorizationURL(state), http.StatusFound)
//
//	// in the callback handler
//	tok, err := oc.ExchangeCode(ctx, r.URL.Query().Get("code"))
//	user, err := oc.FetchUser(ctx, tok)
//
// # E-mail Addresses
//
// Users may hide their e-mail on their public profile. [OAuthClient.FetchUser]
// then falls back to /user/emails (granted by the user:email scope) and picks
// the primary verified address, or the first verified one.
package github
