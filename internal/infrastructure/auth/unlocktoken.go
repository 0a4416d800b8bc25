package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/payhole/payments/internal/application/payment/credential"
	"github.com/payhole/payments/internal/domain/unlock"
)

// MinSecretLength is the shortest HMAC secret accepted for signing credentials.
const MinSecretLength = 32

// ErrInvalidCredential is returned for any credential that fails verification.
var ErrInvalidCredential = errors.New("invalid credential")

// UnlockClaims binds a credential to the wallet it unlocks.
type UnlockClaims struct {
	Wallet string `json:"wallet"`
	jwt.RegisteredClaims
}

// UnlockTokenService issues and verifies HS256 unlock credentials.
type UnlockTokenService struct {
	secret []byte
	issuer string
	now    func() time.Time
}

var (
	_ credential.Issuer   = (*UnlockTokenService)(nil)
	_ credential.Verifier = (*UnlockTokenService)(nil)
)

// NewUnlockTokenService returns an error when secret is shorter than MinSecretLength.
func NewUnlockTokenService(secret, issuer string) (*UnlockTokenService, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("credential secret must be at least %d characters", MinSecretLength)
	}
	if issuer == "" {
		return nil, errors.New("credential issuer is required")
	}
	return &UnlockTokenService{
		secret: []byte(secret),
		issuer: issuer,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// WithClock replaces the clock used when verifying expiry.
func (s *UnlockTokenService) WithClock(now func() time.Time) *UnlockTokenService {
	s.now = now
	return s
}

// Issue signs a credential for wallet valid for unlock.ValidityPeriod from now.
// Times carry second precision so ExpiresAt matches the signed exp claim.
func (s *UnlockTokenService) Issue(wallet string, now time.Time) (*credential.Issued, error) {
	if wallet == "" {
		return nil, errors.New("wallet is required")
	}

	issuedAt := now.UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(unlock.ValidityPeriod)

	claims := &UnlockClaims{
		Wallet: wallet,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   wallet,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign credential: %w", err)
	}

	return &credential.Issued{
		Token:     token,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

// Verify checks signature, issuer and expiry and returns the embedded claims.
// Every failure wraps ErrInvalidCredential.
func (s *UnlockTokenService) Verify(tokenString string) (*credential.Claims, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return nil, err
	}

	verified := &credential.Claims{Wallet: claims.Wallet}
	if claims.IssuedAt != nil {
		verified.IssuedAt = claims.IssuedAt.Time.UTC()
	}
	if claims.ExpiresAt != nil {
		verified.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	return verified, nil
}

func (s *UnlockTokenService) parse(tokenString string) (*UnlockClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &UnlockClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCredential, err)
	}

	claims, ok := token.Claims.(*UnlockClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidCredential
	}
	if claims.Wallet == "" {
		return nil, fmt.Errorf("%w: wallet claim missing", ErrInvalidCredential)
	}

	return claims, nil
}
