package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"lockproxy/internal/config"
	"lockproxy/internal/dto"
	"lockproxy/internal/utils"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/pquerna/otp/totp"
	"github.com/sirupsen/logrus"
)

const (
	authMessagePrefix = "LockProxy Authentication"
	authMessageMaxAge = 10 * time.Minute
	tokenIssuer       = "lockproxy-gateway"
	maxPendingNonces  = 10_000
)

// TokenIssuer issues and validates API tokens
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	if secret == "" {
		secret = "lockproxy-jwt-secret-default-change-me"
		logrus.Warn("⚠️ 使用默认的 ADMIN_JWT_SECRET，请在生产环境中设置环境变量")
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}
}

// Issue signs a token for address
func (t *TokenIssuer) Issue(address common.Address, role string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(t.ttl)
	claims := dto.JWTClaims{
		Address: address.Hex(),
		Role:    role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   address.Hex(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Validate parses a token issued by Issue
func (t *TokenIssuer) Validate(tokenString string) (*dto.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &dto.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	claims, ok := token.Claims.(*dto.JWTClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if !utils.IsEvmAddress(claims.Address) {
		return nil, errors.New("token carries no valid address")
	}
	return claims, nil
}

// AuthHandler wallet and operator login
type AuthHandler struct {
	issuer    *TokenIssuer
	operators func(address string) (string, bool)
	nonces    *expirable.LRU[string, string] // nonce -> issued message, consumed by one login
	logger    *logrus.Logger
}

func NewAuthHandler(issuer *TokenIssuer, cfg *config.Config, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		issuer:    issuer,
		operators: cfg.OperatorSecret,
		nonces:    expirable.NewLRU[string, string](maxPendingNonces, nil, authMessageMaxAge),
		logger:    logger,
	}
}

// NonceHandler returns a message for the wallet to sign
// GET /api/auth/nonce
func (h *AuthHandler) NonceHandler(c *gin.Context) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		respondWithError(c, http.StatusInternalServerError, "NONCE_FAILED", "failed to generate nonce")
		return
	}
	timestamp := time.Now().Unix()
	value := hex.EncodeToString(nonce)
	message := fmt.Sprintf("%s\nNonce: %s\nTimestamp: %d", authMessagePrefix, value, timestamp)
	h.nonces.Add(value, message)
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"nonce":     value,
		"message":   message,
		"timestamp": timestamp,
	})
}

// WalletLoginHandler verifies a personal_sign signature and issues a token
// POST /api/auth/wallet
func (h *AuthHandler) WalletLoginHandler(c *gin.Context) {
	var req dto.WalletAuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.AuthResponse{Success: false, Message: fmt.Sprintf("Invalid request: %v", err)})
		return
	}
	address, err := utils.ParseAddress(req.Address)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.AuthResponse{Success: false, Message: err.Error()})
		return
	}
	if err := checkAuthMessage(req.Message, time.Now()); err != nil {
		c.JSON(http.StatusUnauthorized, dto.AuthResponse{Success: false, Message: err.Error()})
		return
	}
	signer, err := RecoverSigner(req.Message, req.Signature)
	if err != nil || signer != address {
		h.logger.WithFields(logrus.Fields{"address": address.Hex()}).Warn("🔐 Wallet signature rejected")
		c.JSON(http.StatusUnauthorized, dto.AuthResponse{Success: false, Message: "Invalid signature"})
		return
	}
	if !h.consumeNonce(req.Message) {
		h.logger.WithFields(logrus.Fields{"address": address.Hex()}).Warn("🔐 Wallet login with unknown or used nonce")
		c.JSON(http.StatusUnauthorized, dto.AuthResponse{Success: false, Message: "Unknown or used nonce"})
		return
	}
	h.issue(c, address, dto.RoleWallet)
}

// OperatorLoginHandler TOTP login for configured operators
// POST /api/auth/login
func (h *AuthHandler) OperatorLoginHandler(c *gin.Context) {
	var req dto.OperatorLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.AuthResponse{Success: false, Message: fmt.Sprintf("Invalid request: %v", err)})
		return
	}
	address, err := utils.ParseAddress(req.Address)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.AuthResponse{Success: false, Message: err.Error()})
		return
	}
	secret, ok := h.operators(address.Hex())
	if !ok || !totp.Validate(req.TOTPCode, secret) {
		h.logger.WithFields(logrus.Fields{"address": address.Hex()}).Warn("🔐 Operator login rejected")
		// 故意使用通用的错误消息
		c.JSON(http.StatusUnauthorized, dto.AuthResponse{Success: false, Message: "Invalid credentials"})
		return
	}
	h.issue(c, address, dto.RoleOperator)
}

func (h *AuthHandler) issue(c *gin.Context, address common.Address, role string) {
	token, expiresAt, err := h.issuer.Issue(address, role)
	if err != nil {
		h.logger.WithError(err).Error("❌ Failed to issue token")
		c.JSON(http.StatusInternalServerError, dto.AuthResponse{Success: false, Message: "Failed to generate token"})
		return
	}
	h.logger.WithFields(logrus.Fields{"address": address.Hex(), "role": role}).Info("✅ Login successful")
	c.JSON(http.StatusOK, dto.AuthResponse{
		Success:   true,
		Token:     token,
		ExpiresAt: expiresAt.Unix(),
		Message:   "Login successful",
	})
}

// RecoverSigner returns the address that personal_signed message
func RecoverSigner(message, signature string) (common.Address, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("invalid signature encoding: %w", err)
	}
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("signature must be %d bytes", crypto.SignatureLength)
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover signer: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// consumeNonce removes the nonce of message if NonceHandler issued exactly
// this message and it has not expired. Only one caller can consume a nonce.
func (h *AuthHandler) consumeNonce(message string) bool {
	nonce, ok := authMessageNonce(message)
	if !ok {
		return false
	}
	issued, ok := h.nonces.Get(nonce)
	if !ok || issued != message {
		return false
	}
	return h.nonces.Remove(nonce)
}

func authMessageNonce(message string) (string, bool) {
	for _, line := range strings.Split(message, "\n") {
		if nonce, ok := strings.CutPrefix(line, "Nonce: "); ok {
			nonce = strings.TrimSpace(nonce)
			return nonce, nonce != ""
		}
	}
	return "", false
}

// checkAuthMessage accepts only recent messages produced by NonceHandler
func checkAuthMessage(message string, now time.Time) error {
	if !strings.HasPrefix(message, authMessagePrefix) {
		return errors.New("unexpected authentication message")
	}
	idx := strings.LastIndex(message, "Timestamp: ")
	if idx < 0 {
		return errors.New("authentication message has no timestamp")
	}
	ts, err := strconv.ParseInt(strings.TrimSpace(message[idx+len("Timestamp: "):]), 10, 64)
	if err != nil {
		return errors.New("authentication message has an invalid timestamp")
	}
	age := now.Sub(time.Unix(ts, 0))
	if age < -time.Minute || age > authMessageMaxAge {
		return errors.New("authentication message expired")
	}
	return nil
}
