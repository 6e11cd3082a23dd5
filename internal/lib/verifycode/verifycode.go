// Package verifycode реализует одноразовые числовые коды подтверждения.
//
// Код генерируется из криптографически стойкого источника и хранится
// только в виде sha256-хэша: в базу попадает хэш, пользователю уходит
// открытый код по почте.
package verifycode

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"
)

// DefaultLength длина кода по умолчанию.
const DefaultLength = 6

// randSource источник случайности, подменяется в тестах.
var randSource io.Reader = rand.Reader

// Generate возвращает строку ровно из length цифр, каждая выбрана
// независимо и равновероятно из 0-9.
func Generate(length int) (string, error) {
	const op = "verifycode.Generate"
	code := make([]byte, length)
	for i := range code {
		n, err := rand.Int(randSource, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
		code[i] = byte('0' + n.Int64())
	}
	return string(code), nil
}

// Hash возвращает hex-представление sha256-хэша кода.
func Hash(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// Match сравнивает открытый код с хэшем из хранилища за постоянное время.
func Match(code, storedHash string) bool {
	return subtle.ConstantTimeCompare([]byte(Hash(code)), []byte(storedHash)) == 1
}
