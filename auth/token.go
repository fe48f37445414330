package auth

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// --- JWT ---

type Claims struct {
	jwt.RegisteredClaims
}

// Codec creates and verifies signed access tokens. It is stateless apart
// from the signing secret; validity against account state is decided
// separately by Validate.
type Codec struct {
	secret []byte
	ttl    time.Duration
}

func NewCodec(secret []byte, ttl time.Duration) *Codec {
	return &Codec{secret: secret, ttl: ttl}
}

// Issue signs a token for the given account. issuedAt must come from the
// server clock, never from the client.
func (c *Codec) Issue(accountID int64, issuedAt time.Time) (string, error) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(accountID, 10),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(c.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// Decode verifies the signature and returns the embedded claims. Expiry and
// revocation are not checked here; that is Validate's job, so callers can
// distinguish a forged token from a stale one.
func (c *Codec) Decode(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	token, err := parser.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrMalformedToken
		}
		return c.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrMalformedToken
	}
	return claims, nil
}

// Validate decides whether decoded claims are still usable. Rules, in order:
// expired if now is past the expiry, revoked if the token predates the
// subject's last credential change. Returns the subject account id.
func Validate(claims *Claims, now time.Time, credentialChangedAt time.Time) (int64, error) {
	if claims.Subject == "" || claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return 0, ErrMalformedToken
	}
	accountID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, ErrMalformedToken
	}
	if now.After(claims.ExpiresAt.Time) {
		return 0, ErrTokenExpired
	}
	// iat survives the wire at second precision, so compare at second
	// precision: a token issued within the same second as the credential
	// change stays valid.
	if claims.IssuedAt.Time.Before(credentialChangedAt.Truncate(time.Second)) {
		return 0, ErrTokenRevoked
	}
	return accountID, nil
}
