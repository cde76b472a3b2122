package csv

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"hermannm.dev/wrap"
)

type Encoding string

const (
	EncodingUTF8   Encoding = "utf-8"
	EncodingLatin1 Encoding = "latin-1"
)

var utf8ByteOrderMark = []byte{0xEF, 0xBB, 0xBF}

// Decode converts the given CSV bytes to UTF-8. Valid UTF-8 is returned as-is (minus a leading
// byte order mark); anything else is decoded as Latin-1, which maps every byte to a character.
func Decode(data []byte) (Encoding, []byte, error) {
	if utf8.Valid(data) {
		return EncodingUTF8, bytes.TrimPrefix(data, utf8ByteOrderMark), nil
	}

	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", nil, wrap.Errorf(
			err, "failed to decode CSV as any of '%s', '%s'", EncodingUTF8, EncodingLatin1,
		)
	}

	return EncodingLatin1, decoded, nil
}
