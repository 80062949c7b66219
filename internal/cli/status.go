package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aussiebroadwan/gatehouse/pkg/authsdk"
)

// KeySummary is the public part of one published signing key.
type KeySummary struct {
	KID string
	Alg string
	Kty string
}

// IssuerStatus collects what an operator checks before pointing the resource
// API or the MCP proxy at an issuer.
type IssuerStatus struct {
	Version string
	Uptime  string
	Ready   bool
	// Checks holds the readiness checks, including the failing ones.
	Checks *authsdk.HealthChecks
	Keys   []KeySummary
}

// CheckIssuer queries liveness, readiness and the JWKS. An issuer that is
// alive but not ready is reported, not returned as an error.
func CheckIssuer(ctx context.Context, issuerURL string) (IssuerStatus, error) {
	client := authsdk.NewSDKClient(issuerURL)

	live, err := client.GetLiveness(ctx)
	if err != nil {
		return IssuerStatus{}, fmt.Errorf("liveness: %w", err)
	}
	st := IssuerStatus{Version: live.Version, Uptime: live.Uptime}

	ready, err := client.GetReadiness(ctx)
	switch {
	case err == nil:
		st.Ready = true
	case !errors.Is(err, authsdk.ErrNotReady):
		return st, fmt.Errorf("readiness: %w", err)
	}
	if ready != nil {
		st.Checks = ready.Checks
	}

	jwks, err := client.GetJWKS(ctx)
	if err != nil {
		return st, fmt.Errorf("jwks: %w", err)
	}
	for _, k := range jwks.Keys {
		st.Keys = append(st.Keys, KeySummary{KID: k.Kid, Alg: k.Alg, Kty: k.Kty})
	}
	return st, nil
}

// Write prints st as a short report.
func (st IssuerStatus) Write(w io.Writer) {
	state := "ready"
	if !st.Ready {
		state = "not ready"
	}
	fmt.Fprintf(w, "issuer %s (version %s, up %s)\n", state, st.Version, st.Uptime)
	if st.Checks != nil {
		fmt.Fprintf(w, "  database: %s\n  signer:   %s\n", st.Checks.Database, st.Checks.Signer)
	}
	fmt.Fprintf(w, "published keys: %d\n", len(st.Keys))
	for _, k := range st.Keys {
		fmt.Fprintf(w, "  %s %s %s\n", k.KID, k.Alg, k.Kty)
	}
}
