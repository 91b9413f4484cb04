package apikey

import "studiobook/pkg/security"

// Verifier tests a presented plaintext secret against a snapshot of credential
// records. It holds no state of its own: the caller supplies the candidate
// set, so the scan is trivially testable with an in-memory slice.
//
// The per-candidate compare is unavoidable for verbatim API keys: the stored
// hash is salted, so there is no plaintext-indexable lookup. Token issuance
// avoids the scan entirely by addressing credentials through their key id.
type Verifier struct{}

func NewVerifier() *Verifier { return &Verifier{} }

// Match returns the first credential in the snapshot whose hash matches the
// plaintext, or nil when none does.
func (v *Verifier) Match(snapshot []*APIKey, plaintext string) *APIKey {
	if plaintext == "" {
		return nil
	}
	for _, key := range snapshot {
		if security.CompareSecret(key.SecretHash, plaintext) {
			return key
		}
	}
	return nil
}
