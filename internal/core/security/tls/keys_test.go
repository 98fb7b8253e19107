package tls

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/pbkdf2"
)

// encryptPKCS8 以 PBES2（PBKDF2-HMAC-SHA256 + AES-256-CBC）加密私钥
func encryptPKCS8(t *testing.T, key any, passphrase string) []byte {
	t.Helper()

	plain, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)

	salt := make([]byte, 8)
	iv := make([]byte, aes.BlockSize)
	_, err = rand.Read(salt)
	require.NoError(t, err)
	_, err = rand.Read(iv)
	require.NoError(t, err)

	const iterations = 2048
	dk := pbkdf2.Key([]byte(passphrase), salt, iterations, 32, sha256.New)
	block, err := aes.NewCipher(dk)
	require.NoError(t, err)

	n := aes.BlockSize - len(plain)%aes.BlockSize
	plain = append(plain, bytes.Repeat([]byte{byte(n)}, n)...)
	ct := make([]byte, len(plain))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ct, plain)

	kdf, err := asn1.Marshal(pbkdf2Params{
		Salt:           salt,
		IterationCount: iterations,
		KeyLength:      32,
		PRF:            pkix.AlgorithmIdentifier{Algorithm: oidHMACWithSHA256, Parameters: asn1.NullRawValue},
	})
	require.NoError(t, err)
	ivDER, err := asn1.Marshal(iv)
	require.NoError(t, err)
	scheme, err := asn1.Marshal(pbes2Params{
		KeyDerivationFunc: pkix.AlgorithmIdentifier{Algorithm: oidPBKDF2, Parameters: asn1.RawValue{FullBytes: kdf}},
		EncryptionScheme:  pkix.AlgorithmIdentifier{Algorithm: oidAES256CBC, Parameters: asn1.RawValue{FullBytes: ivDER}},
	})
	require.NoError(t, err)
	der, err := asn1.Marshal(encryptedPrivateKeyInfo{
		Algorithm:     pkix.AlgorithmIdentifier{Algorithm: oidPBES2, Parameters: asn1.RawValue{FullBytes: scheme}},
		EncryptedData: ct,
	})
	require.NoError(t, err)

	return pem.EncodeToMemory(&pem.Block{Type: "ENCRYPTED PRIVATE KEY", Bytes: der})
}

func fixedPassphrase(s string) func() []byte {
	return func() []byte { return passphraseBuffer(s) }
}

// wrongPassphrase 错误口令在极少数情况下得到合法填充，此时解析失败
func wrongPassphrase(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIncorrectPassphrase) || errors.Is(err, ErrUnsupportedKey), err.Error())
}

// TestParsePrivateKey_Formats 未加密私钥格式
func TestParsePrivateKey_Formats(t *testing.T) {
	ca := newCA(t, "keys-ca")

	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	pkcs8, err := x509.MarshalPKCS8PrivateKey(ca.key)
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
	}{
		{"sec1", ca.keyPEM(t)},
		{"pkcs8", pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: pkcs8})},
		{"pkcs1", pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(rsaKey)})},
		{"after certificate", append(ca.certPEM(), ca.keyPEM(t)...)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := ParsePrivateKey(tt.data, nil)
			require.NoError(t, err)
			assert.NotNil(t, key.Public())
		})
	}
}

// TestParsePrivateKey_NoKey 没有私钥块
func TestParsePrivateKey_NoKey(t *testing.T) {
	ca := newCA(t, "keys-ca")

	_, err := ParsePrivateKey(ca.certPEM(), nil)
	assert.ErrorIs(t, err, ErrNoPrivateKey)

	_, err = ParsePrivateKey(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: []byte("garbage")}), nil)
	assert.ErrorIs(t, err, ErrUnsupportedKey)
}

// TestParsePrivateKey_EncryptedPKCS8 PKCS#8 加密私钥
func TestParsePrivateKey_EncryptedPKCS8(t *testing.T) {
	ca := newCA(t, "keys-ca")
	data := encryptPKCS8(t, ca.key, "s3cret")

	calls := 0
	key, err := ParsePrivateKey(data, func() []byte {
		calls++
		return passphraseBuffer("s3cret")
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, ca.key.PublicKey.Equal(key.Public()))

	_, err = ParsePrivateKey(data, fixedPassphrase("wrong"))
	wrongPassphrase(t, err)

	_, err = ParsePrivateKey(data, nil)
	wrongPassphrase(t, err)
}

// TestParsePrivateKey_LegacyEncrypted 传统加密 PEM
func TestParsePrivateKey_LegacyEncrypted(t *testing.T) {
	ca := newCA(t, "keys-ca")
	der, err := x509.MarshalECPrivateKey(ca.key)
	require.NoError(t, err)

	//nolint:staticcheck
	block, err := x509.EncryptPEMBlock(rand.Reader, "EC PRIVATE KEY", der, []byte("legacy"), x509.PEMCipherAES256)
	require.NoError(t, err)
	data := pem.EncodeToMemory(block)

	key, err := ParsePrivateKey(data, fixedPassphrase("legacy"))
	require.NoError(t, err)
	ec, ok := key.(*ecdsa.PrivateKey)
	require.True(t, ok)
	assert.True(t, ca.key.Equal(ec))

	_, err = ParsePrivateKey(data, fixedPassphrase("nope"))
	wrongPassphrase(t, err)
}

// TestPassphraseBuffer 口令截断到缓冲区容量减一
func TestPassphraseBuffer(t *testing.T) {
	assert.Equal(t, []byte("abc"), passphraseBuffer("abc"))
	assert.Empty(t, passphraseBuffer(""))

	long := strings.Repeat("x", PassphraseBufferSize+10)
	buf := passphraseBuffer(long)
	assert.Len(t, buf, PassphraseBufferSize-1)
}

// TestParseCertificateChain 证书链顺序与空文件
func TestParseCertificateChain(t *testing.T) {
	ca := newCA(t, "chain-ca")
	leaf := newLeaf(t, "chain.test", ca)

	chain, err := ParseCertificateChain(append(leaf.certPEM(), ca.certPEM()...))
	require.NoError(t, err)
	require.Len(t, chain, 2)
	assert.Equal(t, "chain.test", chain[0].Subject.CommonName)
	assert.Equal(t, "chain-ca", chain[1].Subject.CommonName)

	_, err = ParseCertificateChain(leaf.keyPEM(t))
	assert.ErrorIs(t, err, ErrNoCertificate)

	_, err = LoadCertificateChain("/nonexistent/cert.pem")
	assert.Error(t, err)
}

// TestKeyMatches 私钥与证书匹配
func TestKeyMatches(t *testing.T) {
	a := newCA(t, "a")
	b := newCA(t, "b")
	assert.True(t, keyMatches(a.cert, a.key))
	assert.False(t, keyMatches(a.cert, b.key))
}
