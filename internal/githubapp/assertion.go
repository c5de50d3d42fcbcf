package githubapp

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// assertionTTL bounds the replay value of a minted assertion. GitHub
	// rejects anything over ten minutes.
	assertionTTL = 10 * time.Minute

	// clockSkew backdates issued-at to tolerate drift between this service
	// and the verifier.
	clockSkew = 60 * time.Second
)

// NormalizePrivateKey converts escaped newline sequences to literal newlines.
// PEM keys passed through environment variables commonly arrive with "\n"
// as two characters.
func NormalizePrivateKey(pem string) string {
	return strings.ReplaceAll(pem, `\n`, "\n")
}

// MintAssertion builds a signed RS256 JWT asserting the app's identity:
// issuer is the app id, issued-at is backdated by the skew allowance, and
// expiry is ten minutes after issued-at. No I/O; deterministic given now.
func MintAssertion(appID int64, privateKeyPEM string, now time.Time) (string, error) {
	if appID <= 0 {
		return "", fmt.Errorf("%w: app id must be a positive integer", ErrConfiguration)
	}
	if privateKeyPEM == "" {
		return "", fmt.Errorf("%w: private key is empty", ErrConfiguration)
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(NormalizePrivateKey(privateKeyPEM)))
	if err != nil {
		return "", fmt.Errorf("%w: parse private key: %v", ErrConfiguration, err)
	}

	issuedAt := now.Add(-clockSkew)
	claims := jwt.RegisteredClaims{
		Issuer:    strconv.FormatInt(appID, 10),
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(assertionTTL)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("%w: sign assertion: %v", ErrConfiguration, err)
	}

	return signed, nil
}
