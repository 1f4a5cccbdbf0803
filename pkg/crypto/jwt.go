package crypto

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lborres/webpro/core"
)

var ErrInvalidSignedToken = errors.New("invalid signed token")

// AccessClaims is what the site asserts to the platform about a web pro
type AccessClaims struct {
	ReferenceID int64 `json:"webproReferenceId"`
	jwt.RegisteredClaims
}

// JWTIssuer implements core.TokenIssuer with HS256 signed JWTs.
// Tokens carry no expiry; the platform consumes them once.
type JWTIssuer struct {
	secret []byte
	issuer string
	now    func() time.Time
}

var _ core.TokenIssuer = (*JWTIssuer)(nil)

// NewJWTIssuer derives the signing key from siteSecret. issuer is the
// site URL and is placed in the iss claim.
func NewJWTIssuer(siteSecret, issuer string) (*JWTIssuer, error) {
	if siteSecret == "" {
		return nil, core.ErrSecretRequired
	}

	key, err := deriveKey([]byte(siteSecret), hkdfInfoToken)
	if err != nil {
		return nil, err
	}

	return &JWTIssuer{secret: key, issuer: issuer, now: time.Now}, nil
}

func (i *JWTIssuer) Generate(record core.Record) (string, error) {
	if record.AccountID == "" || record.ReferenceID == 0 {
		return "", fmt.Errorf("%w: account id and reference id are required", core.ErrInvalidArgument)
	}

	claims := AccessClaims{
		ReferenceID: record.ReferenceID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  record.AccountID,
			Issuer:   i.issuer,
			IssuedAt: jwt.NewNumericDate(i.now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Verify parses a token produced by Generate. The platform does this on
// its side; the site uses it in tests and diagnostics.
func (i *JWTIssuer) Verify(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignedToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidSignedToken
	}

	return claims, nil
}
