/*
	Copyright NetFoundry Inc.

	Licensed under the Apache License, Version 2.0 (the "License");
	you may not use this file except in compliance with the License.
	You may obtain a copy of the License at

	https://www.apache.org/licenses/LICENSE-2.0

	Unless required by applicable law or agreed to in writing, software
	distributed under the License is distributed on an "AS IS" BASIS,
	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
	See the License for the specific language governing permissions and
	limitations under the License.
*/

package xmapper

import (
	"crypto/aes"
	"crypto/cipher"
	crand "crypto/rand"
	"encoding/base64"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/michaelquigley/pfxlog"
	"github.com/pkg/errors"
	"golang.org/x/crypto/scrypt"
)

// SecretSource supplies the secrets Url encryption keys are derived from. The first secret encrypts, all of them
// decrypt, which allows rotating secrets without invalidating Urls already handed out.
type SecretSource interface {
	GetSecrets() ([][]byte, error)
}

// StaticSecretSource is a fixed list of secrets.
type StaticSecretSource []string

func (s StaticSecretSource) GetSecrets() ([][]byte, error) {
	if len(s) == 0 {
		return nil, errors.New("no secrets configured")
	}

	result := make([][]byte, len(s))
	for i, secret := range s {
		if secret == "" {
			return nil, errors.Errorf("secret %d is empty", i)
		}
		result[i] = []byte(secret)
	}
	return result, nil
}

// FileSecretSource reads comma separated secrets from a file on every refresh.
type FileSecretSource struct {
	FileName string
}

func (s *FileSecretSource) GetSecrets() ([][]byte, error) {
	contents, err := os.ReadFile(s.FileName)
	if err != nil {
		return nil, err
	}

	secrets := strings.Split(strings.TrimSpace(string(contents)), ",")
	result := make([][]byte, len(secrets))
	for i, secret := range secrets {
		if secret == "" {
			return nil, errors.Errorf("file %s secret %d is empty", s.FileName, i)
		}
		result[i] = []byte(secret)
	}

	return result, nil
}

// Encrypter seals and opens byte strings with AES-256-GCM. Keys are derived from a SecretSource with scrypt.
type Encrypter struct {
	lock         sync.RWMutex
	cipherSuites []cipher.AEAD
	secretSource SecretSource
	closer       chan struct{}
	closeOnce    sync.Once
}

// NewEncrypter creates an Encrypter and derives its keys once.
func NewEncrypter(source SecretSource) (*Encrypter, error) {
	encrypter := &Encrypter{
		secretSource: source,
		closer:       make(chan struct{}),
	}

	if err := encrypter.RefreshCiphers(); err != nil {
		return nil, err
	}

	return encrypter, nil
}

// RefreshCiphers re-reads the secrets and replaces the cipher list.
func (e *Encrypter) RefreshCiphers() error {
	secrets, err := e.secretSource.GetSecrets()
	if err != nil {
		return errors.Wrap(err, "failed to read secrets")
	}

	suites := make([]cipher.AEAD, len(secrets))
	for i, secret := range secrets {
		key, err := scrypt.Key(secret, []byte{}, 1<<15, 8, 1, 32)
		if err != nil {
			return errors.Wrap(err, "failed to derive key")
		}

		block, err := aes.NewCipher(key)
		if err != nil {
			return errors.Wrap(err, "failed to create cipher")
		}

		aead, err := cipher.NewGCM(block)
		if err != nil {
			return errors.Wrap(err, "failed to create GCM")
		}
		suites[i] = aead
	}

	e.lock.Lock()
	defer e.lock.Unlock()
	e.cipherSuites = suites
	return nil
}

// RunRefresher refreshes the ciphers every interval until Close is called.
func (e *Encrypter) RunRefresher(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-e.closer:
				return
			case <-ticker.C:
				if err := e.RefreshCiphers(); err != nil {
					pfxlog.Logger().Errorf("failed to refresh url ciphers: %v", err)
				}
			}
		}
	}()
}

// Close stops a running refresher.
func (e *Encrypter) Close() {
	e.closeOnce.Do(func() {
		close(e.closer)
	})
}

// Encrypt seals plaintext with the first cipher. The random nonce is prepended to the output.
func (e *Encrypter) Encrypt(plaintext []byte) ([]byte, error) {
	e.lock.RLock()
	defer e.lock.RUnlock()

	if len(e.cipherSuites) == 0 {
		return nil, errors.New("no ciphers which can be used")
	}

	suite := e.cipherSuites[0]
	nonce := make([]byte, suite.NonceSize())
	if _, err := io.ReadFull(crand.Reader, nonce); err != nil {
		return nil, err
	}

	return suite.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens ciphertext with the first cipher that authenticates it.
func (e *Encrypter) Decrypt(ciphertext []byte) ([]byte, error) {
	e.lock.RLock()
	defer e.lock.RUnlock()

	for _, suite := range e.cipherSuites {
		nonceSize := suite.NonceSize()
		if len(ciphertext) < nonceSize {
			return nil, errors.Errorf("failed to decrypt, ciphertext too short %d", len(ciphertext))
		}

		nonce, input := ciphertext[:nonceSize], ciphertext[nonceSize:]
		if data, err := suite.Open(nil, nonce, input, nil); err == nil {
			return data, nil
		}
	}

	return nil, errors.New("none of the ciphers can decrypt the data")
}

// CryptoMapper hides the Urls of the mapper it wraps. Each Url produced by the wrapped mapper is rendered to a
// string, encrypted and handed out as a single base64url segment. Incoming requests are decrypted and passed on.
//
// Urls that fail to decrypt are treated as not recognised: they score 0 and map to nil. The empty Url of the
// application root has nothing to hide and passes through in the clear.
type CryptoMapper struct {
	inner     Mapper
	encrypter *Encrypter
}

var _ Mapper = &CryptoMapper{}

func NewCryptoMapper(inner Mapper, encrypter *Encrypter) *CryptoMapper {
	return &CryptoMapper{inner: inner, encrypter: encrypter}
}

// EncryptUrl renders u as a single encrypted segment, keeping nothing else in the clear.
func (m *CryptoMapper) EncryptUrl(u *Url) (*Url, error) {
	ciphertext, err := m.encrypter.Encrypt([]byte(u.String()))
	if err != nil {
		return nil, err
	}
	return NewUrl(base64.RawURLEncoding.EncodeToString(ciphertext)), nil
}

// DecryptUrl reverses EncryptUrl.
func (m *CryptoMapper) DecryptUrl(u *Url) (*Url, error) {
	if len(u.Segments) != 1 {
		return nil, errors.Errorf("expected a single encrypted segment, found %d", len(u.Segments))
	}

	ciphertext, err := base64.RawURLEncoding.Strict().DecodeString(u.Segments[0])
	if err != nil {
		return nil, errors.Wrap(err, "invalid encrypted segment")
	}

	plaintext, err := m.encrypter.Decrypt(ciphertext)
	if err != nil {
		return nil, err
	}

	return ParseUrl(string(plaintext))
}

func isEmptyUrl(u *Url) bool {
	return len(u.Segments) == 0 && len(u.Query) == 0
}

func (m *CryptoMapper) decrypt(request *Request) (*Request, bool) {
	if isEmptyUrl(request.Url) {
		return request, true
	}

	decrypted, err := m.DecryptUrl(request.Url)
	if err != nil {
		pfxlog.Logger().WithField("url", request.Url.String()).Debugf("could not decrypt url: %v", err)
		return nil, false
	}
	return request.WithUrl(decrypted), true
}

func (m *CryptoMapper) MapRequest(rc *RequestContext, request *Request) RequestTarget {
	decrypted, ok := m.decrypt(request)
	if !ok {
		return nil
	}
	return m.inner.MapRequest(rc, decrypted)
}

func (m *CryptoMapper) CompatibilityScore(request *Request) int {
	decrypted, ok := m.decrypt(request)
	if !ok {
		return 0
	}
	return m.inner.CompatibilityScore(decrypted)
}

func (m *CryptoMapper) MapHandler(rc *RequestContext, target RequestTarget) *Url {
	u := m.inner.MapHandler(rc, target)
	if u == nil || isEmptyUrl(u) {
		return u
	}

	encrypted, err := m.EncryptUrl(u)
	if err != nil {
		rc.Logger().Errorf("could not encrypt url for %s: %v", target, err)
		return nil
	}
	return encrypted
}
