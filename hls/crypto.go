package hls

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/grafov/m3u8"
)

var errBadPadding = errors.New("aes-128: bad padding")

// decrypt reverses AES-128 CBC segment encryption.
// Without an explicit IV the media sequence number is used, big-endian in the low bytes.
func decrypt(data, key []byte, info *m3u8.Key, sequence uint64) ([]byte, error) {
	if !strings.EqualFold(info.Method, "AES-128") {
		return nil, fmt.Errorf("unsupported encryption method %q", info.Method)
	}
	if len(key) != aes.BlockSize {
		return nil, fmt.Errorf("aes-128: key is %d bytes", len(key))
	}
	if len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("aes-128: ciphertext is %d bytes", len(data))
	}

	iv, err := initVector(info.IV, sequence)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	plain := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, data)
	return unpad(plain)
}

func initVector(raw string, sequence uint64) ([]byte, error) {
	if raw == "" {
		iv := make([]byte, aes.BlockSize)
		binary.BigEndian.PutUint64(iv[8:], sequence)
		return iv, nil
	}

	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "0x"), "0X")
	iv, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("aes-128: iv: %w", err)
	}
	if len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("aes-128: iv is %d bytes", len(iv))
	}
	return iv, nil
}

func unpad(data []byte) ([]byte, error) {
	n := int(data[len(data)-1])
	if n == 0 || n > aes.BlockSize || n > len(data) {
		return nil, errBadPadding
	}
	if !bytes.Equal(data[len(data)-n:], bytes.Repeat([]byte{byte(n)}, n)) {
		return nil, errBadPadding
	}
	return data[:len(data)-n], nil
}
