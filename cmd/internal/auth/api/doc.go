// Package authapi exposes signup, login and /me over HTTP and provides the
// bearer-token middleware that attaches an Identity to authenticated requests.
package authapi
