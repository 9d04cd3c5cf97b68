package dto

import "github.com/golang-jwt/jwt/v5"

// ==================== Auth DTOs ====================

// WalletAuthRequest wallet signature login; Message must come from /auth/nonce
type WalletAuthRequest struct {
	Address   string `json:"address" binding:"required"`   // 0x-prefixed wallet address
	Message   string `json:"message" binding:"required"`   // message to be signed
	Signature string `json:"signature" binding:"required"` // personal_sign signature, 65 bytes hex
}

// OperatorLoginRequest operator login with a TOTP code
type OperatorLoginRequest struct {
	Address  string `json:"address" binding:"required"`
	TOTPCode string `json:"totp_code" binding:"required"`
}

// AuthResponse Authentication response structure
type AuthResponse struct {
	Success   bool   `json:"success"`
	Token     string `json:"token,omitempty"`
	ExpiresAt int64  `json:"expires_at,omitempty"`
	Message   string `json:"message"`
}

// JWTClaims caller identity carried by every API token
type JWTClaims struct {
	Address string `json:"address"` // checksummed caller address
	Role    string `json:"role"`    // wallet | operator
	jwt.RegisteredClaims
}

const (
	RoleWallet   = "wallet"
	RoleOperator = "operator"
)
