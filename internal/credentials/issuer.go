// Package credentials mints case identifiers, client-portal credentials and upload-link tokens.
package credentials

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Token namespace prefixes. A portal token can never parse as an upload token and vice versa.
const (
	PortalPrefix = "pt_"
	UploadPrefix = "ul_"
)

// Unambiguous alphabet for codes a human may read back over the phone (no 0/O, 1/I/L).
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const passwordAlphabet = "abcdefghjkmnpqrstuvwxyzABCDEFGHJKMNPQRSTUVWXYZ23456789"

// Issuer implements lifecycle.Issuer on crypto/rand.
type Issuer struct {
	now func() time.Time
}

func NewIssuer() *Issuer { return &Issuer{now: time.Now} }

// NewCaseID returns a human-readable application code like APP-2026-K7Q2MX.
func (i *Issuer) NewCaseID() (string, error) {
	suffix, err := randomString(codeAlphabet, 6)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("APP-%d-%s", i.now().Year(), suffix), nil
}

// NewPortalToken returns a 128-bit token in the portal namespace.
func (i *Issuer) NewPortalToken() (string, error) { return newToken(PortalPrefix) }

// NewUploadToken returns a 128-bit token in the upload-link namespace.
func (i *Issuer) NewUploadToken() (string, error) { return newToken(UploadPrefix) }

// NewPassword returns a 10 character one-time portal password.
func (i *Issuer) NewPassword() (string, error) { return randomString(passwordAlphabet, 10) }

// IsPortalToken reports whether tok was minted by NewPortalToken.
func IsPortalToken(tok string) bool { return hasNamespace(tok, PortalPrefix) }

// IsUploadToken reports whether tok was minted by NewUploadToken.
func IsUploadToken(tok string) bool { return hasNamespace(tok, UploadPrefix) }

func hasNamespace(tok, prefix string) bool {
	rest, ok := strings.CutPrefix(tok, prefix)
	if !ok || len(rest) != 32 {
		return false
	}
	_, err := hex.DecodeString(rest)
	return err == nil
}

func newToken(prefix string) (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return prefix + hex.EncodeToString(b), nil
}

// randomString draws n characters uniformly from alphabet (rejection sampling, no modulo bias).
func randomString(alphabet string, n int) (string, error) {
	limit := 256 - 256%len(alphabet)
	out := make([]byte, 0, n)
	buf := make([]byte, n*2)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, alphabet[int(b)%len(alphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}
