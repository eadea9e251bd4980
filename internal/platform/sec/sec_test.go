// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/taibuivan/shopcore/internal/platform/sec"
)

const testSecret = "0123456789abcdef0123456789abcdef"

/*
TestBcryptHasher verifies hashing, verification and cost validation.
*/
func TestBcryptHasher(t *testing.T) {
	hasher, err := sec.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)

	digest, err := hasher.Hash("correct horse")
	require.NoError(t, err)

	assert.NotEqual(t, "correct horse", digest)
	assert.True(t, hasher.Verify("correct horse", digest))
	assert.False(t, hasher.Verify("wrong horse", digest))
	assert.False(t, hasher.Verify("correct horse", "not-a-bcrypt-digest"))

	// Salted: two digests of the same secret differ.
	other, err := hasher.Hash("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, digest, other)

	_, err = sec.NewBcryptHasher(bcrypt.MaxCost + 1)
	assert.Error(t, err)
}

/*
TestHashToken verifies the reset-token digest is deterministic and one-way.
*/
func TestHashToken(t *testing.T) {
	digest := sec.HashToken("abc")

	assert.Equal(t, digest, sec.HashToken("abc"))
	assert.NotEqual(t, digest, sec.HashToken("abd"))
	assert.Len(t, digest, 64)
	assert.NotContains(t, digest, "abc")
}

/*
TestResetTokenGenerator verifies raw/digest pairing and expiry.
*/
func TestResetTokenGenerator(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	generator := sec.NewResetTokenGenerator(20, time.Hour, func() time.Time { return fixed })

	token, err := generator.Generate()
	require.NoError(t, err)

	assert.Len(t, token.Raw, 40)
	assert.Equal(t, sec.HashToken(token.Raw), token.Digest)
	assert.Equal(t, fixed.Add(time.Hour), token.ExpiresAt)

	next, err := generator.Generate()
	require.NoError(t, err)
	assert.NotEqual(t, token.Raw, next.Raw)

	_, err = sec.GenerateSecureToken(0)
	assert.Error(t, err)
}

/*
TestTokenService_HS256 covers issue/verify round trips and every rejection path.
*/
func TestTokenService_HS256(t *testing.T) {
	service, err := sec.NewTokenService(sec.TokenConfig{Issuer: "shopcore.test", Secret: testSecret})
	require.NoError(t, err)

	token, err := service.Issue("user-1", sec.RoleSubadmin, time.Hour)
	require.NoError(t, err)

	claims, err := service.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, sec.RoleSubadmin, claims.Role)

	t.Run("expired", func(t *testing.T) {
		expired, err := service.Issue("user-1", sec.RoleAdmin, -time.Minute)
		require.NoError(t, err)

		_, err = service.Verify(expired)
		require.Error(t, err)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("wrong_secret", func(t *testing.T) {
		other, err := sec.NewTokenService(sec.TokenConfig{Issuer: "shopcore.test", Secret: testSecret + "x"})
		require.NoError(t, err)

		forged, err := other.Issue("user-1", sec.RoleAdmin, time.Hour)
		require.NoError(t, err)

		_, err = service.Verify(forged)
		assert.Error(t, err)
	})

	t.Run("wrong_issuer", func(t *testing.T) {
		other, err := sec.NewTokenService(sec.TokenConfig{Issuer: "elsewhere", Secret: testSecret})
		require.NoError(t, err)

		foreign, err := other.Issue("user-1", sec.RoleAdmin, time.Hour)
		require.NoError(t, err)

		_, err = service.Verify(foreign)
		assert.Error(t, err)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := service.Verify("not.a.jwt")
		assert.Error(t, err)
	})

	t.Run("alg_none", func(t *testing.T) {
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
			"uid": "user-1",
			"rol": "admin",
			"iss": "shopcore.test",
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = service.Verify(raw)
		assert.Error(t, err)
	})
}

/*
TestTokenService_Clock verifies that verification honours the injected clock.
*/
func TestTokenService_Clock(t *testing.T) {
	current := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	service, err := sec.NewTokenService(sec.TokenConfig{
		Issuer: "shopcore.test",
		Secret: testSecret,
		Clock:  func() time.Time { return current },
	})
	require.NoError(t, err)

	token, err := service.Issue("user-1", sec.RoleAdmin, 24*time.Hour)
	require.NoError(t, err)

	current = current.Add(23 * time.Hour)
	_, err = service.Verify(token)
	require.NoError(t, err)

	current = current.Add(2 * time.Hour)
	_, err = service.Verify(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

/*
TestTokenService_ShortSecret rejects HS256 secrets below 256 bits.
*/
func TestTokenService_ShortSecret(t *testing.T) {
	_, err := sec.NewTokenService(sec.TokenConfig{Issuer: "shopcore.test", Secret: "short"})
	assert.Error(t, err)
}

/*
TestTokenService_RS256 signs with a PEM key pair written to disk.
*/
func TestTokenService_RS256(t *testing.T) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	dir := t.TempDir()
	privatePath := filepath.Join(dir, "private.pem")
	publicPath := filepath.Join(dir, "public.pem")

	privatePEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	})
	require.NoError(t, os.WriteFile(privatePath, privatePEM, 0o600))

	publicDER, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	require.NoError(t, err)
	publicPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: publicDER})
	require.NoError(t, os.WriteFile(publicPath, publicPEM, 0o600))

	service, err := sec.NewTokenService(sec.TokenConfig{
		Issuer:         "shopcore.test",
		PrivateKeyPath: privatePath,
		PublicKeyPath:  publicPath,
	})
	require.NoError(t, err)

	token, err := service.Issue("user-9", sec.RoleAdmin, time.Hour)
	require.NoError(t, err)

	claims, err := service.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, sec.RoleAdmin, claims.Role)

	// An HS256 token signed with the public key bytes must not pass as RS256.
	hmacService, err := sec.NewTokenService(sec.TokenConfig{Issuer: "shopcore.test", Secret: string(publicPEM)})
	require.NoError(t, err)
	confused, err := hmacService.Issue("user-9", sec.RoleAdmin, time.Hour)
	require.NoError(t, err)

	_, err = service.Verify(confused)
	assert.Error(t, err)

	_, err = sec.NewTokenService(sec.TokenConfig{Issuer: "shopcore.test", PrivateKeyPath: filepath.Join(dir, "missing.pem")})
	assert.Error(t, err)
}

/*
TestUserRole_Membership checks seat classification and allow-lists.
*/
func TestUserRole_Membership(t *testing.T) {
	assert.True(t, sec.RoleAdmin.IsPrivileged())
	assert.True(t, sec.RoleSubadmin.IsPrivileged())
	assert.False(t, sec.RoleUser.IsPrivileged())

	assert.True(t, sec.RoleUser.In(sec.RoleUser, sec.RoleAdmin))
	assert.False(t, sec.RoleSubadmin.In(sec.RoleAdmin))
	assert.False(t, sec.UserRole("root").Valid())
	assert.True(t, sec.RoleSubadmin.Valid())
}
