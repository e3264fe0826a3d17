// Copyright (c) 2026 Ikusare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides operator token signing and verification.
//
// # Architecture
//
// The API process only ever verifies tokens with the RS256 public key. The
// private key stays with whoever mints operator tokens (the sync CLI).
package sec

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrSigningDisabled is returned when minting without a private key.
var ErrSigningDisabled = errors.New("sec: no private key configured")

// AuthClaims is the payload of an operator access token.
type AuthClaims struct {
	jwt.RegisteredClaims

	// Abbreviated to keep the token small.
	Operator string `json:"opr"`
	Role     string `json:"rol"`
}

// TokenService signs and verifies RS256 operator tokens.
type TokenService struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	issuer     string
}

// NewTokenService builds a service from PEM-encoded keys. privatePEM may be
// nil for a verify-only service.
func NewTokenService(privatePEM, publicPEM []byte, issuer string) (*TokenService, error) {
	service := &TokenService{issuer: issuer}

	if len(privatePEM) > 0 {
		privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(privatePEM)
		if err != nil {
			return nil, fmt.Errorf("sec: failed to parse private key: %w", err)
		}
		service.privateKey = privateKey
	}

	switch {
	case len(publicPEM) > 0:
		publicKey, err := jwt.ParseRSAPublicKeyFromPEM(publicPEM)
		if err != nil {
			return nil, fmt.Errorf("sec: failed to parse public key: %w", err)
		}
		service.publicKey = publicKey
	case service.privateKey != nil:
		service.publicKey = &service.privateKey.PublicKey
	default:
		return nil, errors.New("sec: no key configured")
	}

	return service, nil
}

// LoadTokenService reads the keys from disk. Either path may be empty.
func LoadTokenService(privateKeyPath, publicKeyPath, issuer string) (*TokenService, error) {
	privatePEM, err := readOptional(privateKeyPath)
	if err != nil {
		return nil, err
	}
	publicPEM, err := readOptional(publicKeyPath)
	if err != nil {
		return nil, err
	}
	return NewTokenService(privatePEM, publicPEM, issuer)
}

func readOptional(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to read key from %s: %w", path, err)
	}
	return data, nil
}

// GenerateAccessToken mints a token for operator with role, valid for timeToLive.
func (service *TokenService) GenerateAccessToken(operator string, role UserRole, timeToLive time.Duration) (string, error) {
	if service.privateKey == nil {
		return "", ErrSigningDisabled
	}

	currentTime := time.Now()
	claims := AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   operator,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(timeToLive)),
		},
		Operator: operator,
		Role:     string(role),
	}

	signedToken, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(service.privateKey)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign token: %w", err)
	}
	return signedToken, nil
}

// VerifyToken checks the signature, expiry and issuer of a token.
func (service *TokenService) VerifyToken(tokenString string) (*AuthClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AuthClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return service.publicKey, nil
	}, jwt.WithIssuer(service.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("sec: invalid token: %w", err)
	}

	claims, ok := token.Claims.(*AuthClaims)
	if !ok || !token.Valid {
		return nil, errors.New("sec: invalid token claims")
	}
	return claims, nil
}
