package credential

import "time"

// Issued is a signed credential and the instant it stops being valid.
type Issued struct {
	Token     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Claims are the verified contents of a credential.
type Claims struct {
	Wallet    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Issuer signs unlock credentials.
type Issuer interface {
	Issue(wallet string, now time.Time) (*Issued, error)
}

// Verifier validates unlock credentials. Any error means the credential must
// not be honoured.
type Verifier interface {
	Verify(token string) (*Claims, error)
}
