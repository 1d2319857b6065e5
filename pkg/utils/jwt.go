package utils

import (
	"errors"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/maheshrc27/socialsync/internal/transfer"
)

const issuer = "socialsync"

func GenerateToken(secretKey, userID string, tokenDuration time.Duration) (string, error) {
	claims := transfer.CustomClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    issuer,
		},
	}

	return sign(secretKey, claims)
}

func ValidateToken(secretKey, tokenString string) (*transfer.CustomClaims, error) {
	claims := &transfer.CustomClaims{}
	if err := parse(secretKey, tokenString, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// SignState issues the opaque OAuth state for one connect attempt and returns
// it with its nonce.
func SignState(secretKey string, workspaceID int64, platform, method string, ttl time.Duration) (string, string, error) {
	nonce := uuid.NewString()
	claims := transfer.StateClaims{
		WorkspaceID: workspaceID,
		Platform:    platform,
		Method:      method,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        nonce,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    issuer,
		},
	}

	state, err := sign(secretKey, claims)
	if err != nil {
		return "", "", err
	}
	return state, nonce, nil
}

func ValidateState(secretKey, state string) (*transfer.StateClaims, error) {
	claims := &transfer.StateClaims{}
	if err := parse(secretKey, state, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func sign(secretKey string, claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(secretKey))
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}
	return signedToken, nil
}

func parse(secretKey, tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid token signing method")
		}
		return []byte(secretKey), nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	if !token.Valid {
		return errors.New("invalid token")
	}
	return nil
}
