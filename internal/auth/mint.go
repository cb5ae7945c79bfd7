package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/aelexs/timetuner/internal/domain"
)

// MintResult holds the result of minting an operator token.
type MintResult struct {
	Token     string
	JTI       string
	ExpiresAt time.Time
}

// Minter creates signed HS256 operator tokens.
type Minter struct {
	secret domain.SecretString
	issuer string
	clock  domain.Clock
}

// MinterConfig holds configuration for creating a Minter.
type MinterConfig struct {
	Secret domain.SecretString
	Issuer string
	Clock  domain.Clock
}

// NewMinter creates a new JWT minter.
func NewMinter(cfg MinterConfig) *Minter {
	clock := cfg.Clock
	if clock == nil {
		clock = domain.RealClock{}
	}
	return &Minter{secret: cfg.Secret, issuer: cfg.Issuer, clock: clock}
}

// Mint signs a token for subject granting perms for ttl.
func (m *Minter) Mint(subject string, perms []string, ttl time.Duration) (MintResult, error) {
	if m.secret.IsEmpty() {
		return MintResult{}, fmt.Errorf("mint operator token: %w", domain.ErrConfigRequired)
	}
	if subject == "" || ttl <= 0 {
		return MintResult{}, fmt.Errorf("%w: subject and a positive ttl are required", domain.ErrInvalidInput)
	}

	now := m.clock.Now().UTC()
	jti := uuid.NewString()
	expiresAt := now.Add(ttl)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    m.issuer,
			Audience:  jwt.ClaimStrings{Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        jti,
		},
		Perms: perms,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims).SignedString(m.secret.Bytes())
	if err != nil {
		return MintResult{}, fmt.Errorf("sign operator token: %w", err)
	}

	return MintResult{Token: signed, JTI: jti, ExpiresAt: expiresAt}, nil
}
