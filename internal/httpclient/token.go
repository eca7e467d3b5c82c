package httpclient

import (
	"os"
	"strings"
)

// EnvToken names the environment variable consulted when no --token is given.
const EnvToken = "SITECHECK_TOKEN"

type TokenSource string

const (
	TokenSourceNone     TokenSource = ""
	TokenSourceExplicit TokenSource = "explicit"
	TokenSourceEnv      TokenSource = "env:" + EnvToken
)

// ResolveToken returns the bearer token for the site.
//
// Precedence:
//  1. provided (if non-empty)
//  2. SITECHECK_TOKEN env var
//
// An empty result means requests are sent unauthenticated.
func ResolveToken(provided string) (string, TokenSource) {
	if tok := strings.TrimSpace(provided); tok != "" {
		return tok, TokenSourceExplicit
	}
	if env := strings.TrimSpace(os.Getenv(EnvToken)); env != "" {
		return env, TokenSourceEnv
	}
	return "", TokenSourceNone
}

// AuthHeaders returns the headers a browser must send to present token.
func AuthHeaders(token string) map[string]string {
	if token == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + token}
}
