package secrets

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Decrypter reveals values encrypted by the orchestrator before they are
// sent to the device
type Decrypter interface {
	Decrypt(value string) (string, error)
}

// ErrNotEncrypted is returned for values without a $4$ or $8$ prefix
var ErrNotEncrypted = errors.New("value is not orchestrator encrypted")

// KeyDecrypter decrypts $8$ (AES-256-CFB) and $4$ (3DES-CBC) values.
// The payload is base64(iv || ciphertext).
type KeyDecrypter struct {
	AESKey  []byte // 32 bytes
	DES3Key []byte // 24 bytes
}

func (d KeyDecrypter) Decrypt(value string) (string, error) {
	switch {
	case strings.HasPrefix(value, "$8$"):
		return d.decryptAES(value[3:])
	case strings.HasPrefix(value, "$4$"):
		return d.decryptDES3(value[3:])
	}
	return "", ErrNotEncrypted
}

func (d KeyDecrypter) decryptAES(payload string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("decode $8$ payload: %w", err)
	}
	block, err := aes.NewCipher(d.AESKey)
	if err != nil {
		return "", fmt.Errorf("aes key: %w", err)
	}
	if len(raw) < aes.BlockSize {
		return "", errors.New("$8$ payload shorter than iv")
	}
	iv, ct := raw[:aes.BlockSize], raw[aes.BlockSize:]
	out := make([]byte, len(ct))
	cipher.NewCFBDecrypter(block, iv).XORKeyStream(out, ct)
	return string(out), nil
}

func (d KeyDecrypter) decryptDES3(payload string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("decode $4$ payload: %w", err)
	}
	block, err := des.NewTripleDESCipher(d.DES3Key)
	if err != nil {
		return "", fmt.Errorf("3des key: %w", err)
	}
	if len(raw) < 2*des.BlockSize || len(raw)%des.BlockSize != 0 {
		return "", errors.New("$4$ payload has invalid length")
	}
	iv, ct := raw[:des.BlockSize], raw[des.BlockSize:]
	out := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ct)
	return string(bytes.TrimRight(out, "\x00")), nil
}

// EncryptAES produces a $8$ value; used by tooling and tests
func (d KeyDecrypter) EncryptAES(plain string) (string, error) {
	block, err := aes.NewCipher(d.AESKey)
	if err != nil {
		return "", fmt.Errorf("aes key: %w", err)
	}
	raw := make([]byte, aes.BlockSize+len(plain))
	if _, err := rand.Read(raw[:aes.BlockSize]); err != nil {
		return "", err
	}
	cipher.NewCFBEncrypter(block, raw[:aes.BlockSize]).XORKeyStream(raw[aes.BlockSize:], []byte(plain))
	return "$8$" + base64.StdEncoding.EncodeToString(raw), nil
}

var encryptedValue = regexp.MustCompile(` \$[48]\$\S*`)

// Reveal replaces every " $4$..." / " $8$..." token in line with its
// cleartext. It reports whether anything was substituted. A token that fails
// to decrypt is left as is since it may be a device encoding.
func Reveal(d Decrypter, line string) (string, bool) {
	if d == nil {
		return line, false
	}
	substituted := false
	out := encryptedValue.ReplaceAllStringFunc(line, func(tok string) string {
		plain, err := d.Decrypt(tok[1:])
		if err != nil {
			return tok
		}
		substituted = true
		return " " + plain
	})
	return out, substituted
}
