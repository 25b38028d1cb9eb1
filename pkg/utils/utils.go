package utils

import (
	"crypto/rand"
	"math"
	"math/big"
	mrand "math/rand/v2"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var Json = jsoniter.ConfigCompatibleWithStandardLibrary

// GenerateRandomString 生成 n 位字母数字随机串
func GenerateRandomString(n int) (string, error) {
	const letters = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	lettersLength := big.NewInt(int64(len(letters)))
	ret := make([]byte, n)
	for i := 0; i < n; i++ {
		num, err := rand.Int(rand.Reader, lettersLength)
		if err != nil {
			return "", err
		}
		ret[i] = letters[num.Int64()]
	}
	return string(ret), nil
}

// Milliseconds 将时长换算为毫秒浮点数
func Milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// Duration 将毫秒数换算为时长
func Duration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// RandomDelay 返回 [0, max) 内均匀分布的随机时长，max 非正时返回 0
func RandomDelay(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(mrand.Int64N(int64(max)))
}

// FiniteOrZero 将 NaN 与 ±Inf 归零
func FiniteOrZero(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
