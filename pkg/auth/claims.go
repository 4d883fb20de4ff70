package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/wjtan-dev/blockwatch-backend/pkg/enums"
)

// SessionTokenPayload captures the data available when minting a session token.
type SessionTokenPayload struct {
	AccountID uuid.UUID
	Email     string
	Tier      enums.Tier
}

// SessionClaims represents the typed JWT issued to clients. The embedded tier
// is a snapshot at mint time; entitlement checks re-read the account record.
type SessionClaims struct {
	AccountID uuid.UUID  `json:"account_id"`
	Email     string     `json:"email"`
	Tier      enums.Tier `json:"tier"`
	jwt.RegisteredClaims
}
