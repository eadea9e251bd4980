// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing, reset
// token derivation) from the domain logic. Its types are injected into the
// application layer through small interfaces declared by the consumers.
package sec

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// minSecretLength is the shortest HS256 secret accepted (256 bits).
const minSecretLength = 32

// AuthClaims represents the payload embedded inside a session token.
//
// # Why custom claims?
//
// By embedding the UserID and Role directly inside the JWT, the
// [middleware.Authenticate] can reconstruct the active identity WITHOUT
// querying the credential store on every request. The flip side is that a
// role change only takes effect once previously issued tokens expire.
type AuthClaims struct {
	jwt.RegisteredClaims

	// Custom application claims are abbreviated to keep the JWT payload small.
	UserID string   `json:"uid"`
	Role   UserRole `json:"rol"`
}

// TokenConfig carries the signing material and issuer for a [TokenService].
//
// When PrivateKeyPath is set the service signs with RS256 using PEM keys read
// from disk; otherwise it signs with HS256 using Secret.
type TokenConfig struct {
	Issuer         string
	Secret         string
	PrivateKeyPath string
	PublicKeyPath  string

	// Clock overrides time.Now for issuance and verification.
	Clock func() time.Time
}

// TokenService handles generation and verification of session tokens.
type TokenService struct {
	method     jwt.SigningMethod
	signingKey any
	verifyKey  any
	issuer     string
	now        func() time.Time
}

// NewTokenService creates a new TokenService from config.
func NewTokenService(config TokenConfig) (*TokenService, error) {
	service := &TokenService{
		issuer: config.Issuer,
		now:    config.Clock,
	}
	if service.now == nil {
		service.now = time.Now
	}

	if config.PrivateKeyPath != "" {
		privateKey, publicKey, err := loadRSAKeys(config.PrivateKeyPath, config.PublicKeyPath)
		if err != nil {
			return nil, err
		}
		service.method = jwt.SigningMethodRS256
		service.signingKey = privateKey
		service.verifyKey = publicKey
		return service, nil
	}

	if len(config.Secret) < minSecretLength {
		return nil, fmt.Errorf("auth: jwt secret must be at least %d bytes", minSecretLength)
	}

	service.method = jwt.SigningMethodHS256
	service.signingKey = []byte(config.Secret)
	service.verifyKey = []byte(config.Secret)
	return service, nil
}

// loadRSAKeys reads a PEM key pair from the filesystem.
func loadRSAKeys(privateKeyPath, publicKeyPath string) (*rsa.PrivateKey, *rsa.PublicKey, error) {
	privateKeyData, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, nil, fmt.Errorf("auth: failed to read private key from %s: %w", privateKeyPath, err)
	}

	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyData)
	if err != nil {
		return nil, nil, fmt.Errorf("auth: failed to parse private key: %w", err)
	}

	if publicKeyPath == "" {
		return privateKey, &privateKey.PublicKey, nil
	}

	publicKeyData, err := os.ReadFile(publicKeyPath)
	if err != nil {
		return nil, nil, fmt.Errorf("auth: failed to read public key from %s: %w", publicKeyPath, err)
	}

	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyData)
	if err != nil {
		return nil, nil, fmt.Errorf("auth: failed to parse public key: %w", err)
	}

	return privateKey, publicKey, nil
}

// Issue creates a signed session token for an identity.
func (service *TokenService) Issue(userID string, role UserRole, timeToLive time.Duration) (string, error) {
	currentTime := service.now()
	claims := AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(timeToLive)),
		},
		UserID: userID,
		Role:   role,
	}

	token := jwt.NewWithClaims(service.method, claims)
	signedToken, err := token.SignedString(service.signingKey)
	if err != nil {
		return "", fmt.Errorf("auth: failed to sign token: %w", err)
	}

	return signedToken, nil
}

// Verify checks the signature, issuer and expiry of a token string.
func (service *TokenService) Verify(tokenString string) (*AuthClaims, error) {
	claims := &AuthClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (interface{}, error) {
			return service.verifyKey, nil
		},
		jwt.WithValidMethods([]string{service.method.Alg()}),
		jwt.WithIssuer(service.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(service.now),
	)
	if err != nil {
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	if !token.Valid || claims.UserID == "" {
		return nil, errors.New("auth: invalid token claims")
	}

	return claims, nil
}
