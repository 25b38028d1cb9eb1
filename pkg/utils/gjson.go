package utils

import (
	"errors"

	"github.com/tidwall/gjson"
)

var (
	ErrGjsonNotFound  = errors.New("specified path does not exist")
	ErrGjsonWrongType = errors.New("wrong type")
)

func GjsonGet(json []byte, path string) (gjson.Result, error) {
	result := gjson.GetBytes(json, path)
	if !result.Exists() {
		return result, ErrGjsonNotFound
	}

	return result, nil
}

// GjsonNumber 要求 path 存在且为数字
func GjsonNumber(json []byte, path string) (float64, error) {
	result, err := GjsonGet(json, path)
	if err != nil {
		return 0, err
	}
	if result.Type != gjson.Number {
		return 0, ErrGjsonWrongType
	}
	return result.Float(), nil
}

// GjsonString 要求 path 存在且为字符串
func GjsonString(json []byte, path string) (string, error) {
	result, err := GjsonGet(json, path)
	if err != nil {
		return "", err
	}
	if result.Type != gjson.String {
		return "", ErrGjsonWrongType
	}
	return result.String(), nil
}

// GjsonOptionalArray path 不存在时通过，存在时必须为数组
func GjsonOptionalArray(json []byte, path string) error {
	result := gjson.GetBytes(json, path)
	if !result.Exists() {
		return nil
	}
	if !result.IsArray() {
		return ErrGjsonWrongType
	}
	return nil
}

// GjsonIsObject 要求 path 存在且为对象
func GjsonIsObject(json []byte, path string) error {
	result, err := GjsonGet(json, path)
	if err != nil {
		return err
	}
	if !result.IsObject() {
		return ErrGjsonWrongType
	}
	return nil
}
