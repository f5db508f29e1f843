package utils

import (
	"bytes"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// BytesToString cuts bs at the first zero byte and decodes it with enc.
// A nil enc keeps the bytes as they are (UTF-8 / ASCII content).
func BytesToString(bs []byte, enc encoding.Encoding) (string, error) {
	n := bytes.IndexByte(bs, 0)
	if n < 0 {
		n = len(bs)
	}
	if enc == nil {
		return string(bs[:n]), nil
	}

	s, _, err := transform.Bytes(enc.NewDecoder(), bs[:n])
	if err != nil {
		return "", err
	}
	return string(s), nil
}

// StringToBytes encodes s with enc (nil keeps it as is), optionally zero terminated.
func StringToBytes(s string, enc encoding.Encoding, nilTerminate bool) ([]byte, error) {
	bs := []byte(s)
	if enc != nil {
		var err error
		if bs, _, err = transform.Bytes(enc.NewEncoder(), bs); err != nil {
			return nil, err
		}
	}
	if nilTerminate {
		bs = append(bs, 0)
	}
	return bs, nil
}
