package identity

//go:generate mockgen -source=identity.go -destination=mocks/mock_provider.go -package=mocks

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/patrickmn/go-cache"
)

var ErrInvalidCredential = errors.New("invalid credential")

const DefaultCertsURL = "https://www.googleapis.com/oauth2/v3/certs"

var validIssuers = []string{"accounts.google.com", "https://accounts.google.com"}

type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	GivenName string `json:"givenName"`
	Picture   string `json:"picture"`
	Admin     bool   `json:"admin"`
}

// DisplayName is the name shown next to a user's reservations.
func (u User) DisplayName() string {
	if given := strings.TrimSpace(u.GivenName); given != "" {
		return given
	}

	if fields := strings.Fields(u.Name); len(fields) > 0 {
		return fields[0]
	}

	return u.Email
}

type Provider interface {
	Authenticate(ctx context.Context, credential string) (*User, error)
}

type googleClaims struct {
	Email     string `json:"email"`
	Name      string `json:"name"`
	GivenName string `json:"given_name"`
	Picture   string `json:"picture"`
	jwt.RegisteredClaims
}

type jsonWebKey struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// GoogleVerifier checks Google ID tokens against the published signing keys.
type GoogleVerifier struct {
	clientID string
	certsURL string
	admins   []string
	client   *http.Client
	cache    *cache.Cache
}

func NewGoogleVerifier(clientID, certsURL string, admins []string) *GoogleVerifier {
	if certsURL == "" {
		certsURL = DefaultCertsURL
	}

	client := &http.Client{
		Timeout: 10 * time.Second,
	}

	return &GoogleVerifier{
		clientID: clientID,
		certsURL: certsURL,
		admins:   admins,
		client:   client,
		cache:    cache.New(5*time.Minute, 10*time.Minute),
	}
}

func (v *GoogleVerifier) Authenticate(ctx context.Context, credential string) (*User, error) {
	credential = strings.TrimSpace(credential)

	if len(credential) == 0 {
		return nil, ErrInvalidCredential
	}

	if cached, found := v.cache.Get("token:" + credential); found {
		user := cached.(User)
		return &user, nil
	}

	claims := &googleClaims{}

	_, err := jwt.ParseWithClaims(credential, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		return v.key(ctx, kid)
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.clientID),
		jwt.WithExpirationRequired(),
	)

	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCredential, err)
	}

	if !slices.Contains(validIssuers, claims.Issuer) {
		return nil, fmt.Errorf("%w: unexpected issuer %q", ErrInvalidCredential, claims.Issuer)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidCredential)
	}

	user := User{
		ID:        claims.Subject,
		Email:     claims.Email,
		Name:      claims.Name,
		GivenName: claims.GivenName,
		Picture:   claims.Picture,
		Admin:     slices.Contains(v.admins, claims.Subject),
	}

	ttl := 5 * time.Minute

	if claims.ExpiresAt != nil {
		ttl = min(ttl, time.Until(claims.ExpiresAt.Time))
	}

	if ttl > 0 {
		v.cache.Set("token:"+credential, user, ttl)
	}

	return &user, nil
}

func (v *GoogleVerifier) key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if cached, found := v.cache.Get("key:" + kid); found {
		return cached.(*rsa.PublicKey), nil
	}

	if err := v.refreshKeys(ctx); err != nil {
		return nil, err
	}

	if cached, found := v.cache.Get("key:" + kid); found {
		return cached.(*rsa.PublicKey), nil
	}

	return nil, fmt.Errorf("unknown signing key %q", kid)
}

func (v *GoogleVerifier) refreshKeys(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", v.certsURL, nil)

	if err != nil {
		return fmt.Errorf("failed create new request: %w", err)
	}

	res, err := v.client.Do(req)

	if err != nil {
		return fmt.Errorf("failed to fetch signing keys: %w", err)
	}

	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(res.Body)
		return fmt.Errorf("signing keys request failed with status '%v' and body:\n%v", res.StatusCode, string(bodyBytes))
	}

	var keySet struct {
		Keys []jsonWebKey `json:"keys"`
	}

	if err := json.NewDecoder(res.Body).Decode(&keySet); err != nil {
		return fmt.Errorf("failed to decode signing keys: %w", err)
	}

	for _, jwk := range keySet.Keys {
		if jwk.Kty != "RSA" {
			continue
		}

		key, err := jwk.publicKey()

		if err != nil {
			return err
		}

		v.cache.Set("key:"+jwk.Kid, key, time.Hour)
	}

	return nil
}

func (k jsonWebKey) publicKey() (*rsa.PublicKey, error) {
	n, err := base64.RawURLEncoding.DecodeString(k.N)

	if err != nil {
		return nil, fmt.Errorf("invalid modulus for key %q: %w", k.Kid, err)
	}

	e, err := base64.RawURLEncoding.DecodeString(k.E)

	if err != nil {
		return nil, fmt.Errorf("invalid exponent for key %q: %w", k.Kid, err)
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(n),
		E: int(new(big.Int).SetBytes(e).Int64()),
	}, nil
}
