package egp

import (
	"bytes"
	"io/ioutil"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/siddontang/go/ioutil2"
	"golang.org/x/text/encoding/unicode"
)

// Encoding identifies how a project.xml was stored, so the rewritten text
// can be written back exactly the way it was read.
type Encoding int

const (
	UTF16LE      Encoding = iota // little-endian with BOM
	UTF16BE                      // big-endian with BOM
	UTF16LENoBOM                 // little-endian, no BOM
	UTF16BENoBOM                 // big-endian, no BOM
	UTF8
)

func (e Encoding) String() string {
	switch e {
	case UTF16LE:
		return "utf-16le-bom"
	case UTF16BE:
		return "utf-16be-bom"
	case UTF16LENoBOM:
		return "utf-16le"
	case UTF16BENoBOM:
		return "utf-16be"
	case UTF8:
		return "utf-8"
	}

	return "unknown"
}

var (
	bomLE = []byte{0xFF, 0xFE}
	bomBE = []byte{0xFE, 0xFF}
)

// ErrUndecodable reports that no supported encoding produced valid text.
var ErrUndecodable = errors.New("document is not valid UTF-16 or UTF-8")

// DecodeText decodes raw project.xml bytes. SAS writes the document as
// UTF-16 with a BOM; older exports have been seen BOM-less or in UTF-8,
// so the fallback order is BOM, valid UTF-8, bare UTF-16 little then big
// endian. A decode producing replacement runes is treated as a failure
// rather than silently corrupting the document.
func DecodeText(data []byte) (string, Encoding, error) {
	switch {
	case bytes.HasPrefix(data, bomLE):
		s, err := decodeUTF16(data, unicode.LittleEndian, unicode.UseBOM)
		return s, UTF16LE, err
	case bytes.HasPrefix(data, bomBE):
		s, err := decodeUTF16(data, unicode.BigEndian, unicode.UseBOM)
		return s, UTF16BE, err
	case utf8.Valid(data) && !bytes.Contains(data, []byte{0x00}):
		// NUL bytes are technically valid UTF-8 but never appear in a
		// real document; BOM-less UTF-16 ASCII text is full of them.
		return string(data), UTF8, nil
	}

	if len(data)%2 == 0 {
		if s, err := decodeUTF16(data, unicode.LittleEndian, unicode.IgnoreBOM); err == nil {
			return s, UTF16LENoBOM, nil
		}
		if s, err := decodeUTF16(data, unicode.BigEndian, unicode.IgnoreBOM); err == nil {
			return s, UTF16BENoBOM, nil
		}
	}

	return "", UTF8, ErrUndecodable
}

func decodeUTF16(data []byte, endianness unicode.Endianness, bom unicode.BOMPolicy) (string, error) {
	decoded, err := unicode.UTF16(endianness, bom).NewDecoder().Bytes(data)
	if err != nil {
		return "", ErrUndecodable
	}
	if bytes.ContainsRune(decoded, utf8.RuneError) {
		return "", ErrUndecodable
	}

	return string(decoded), nil
}

// EncodeText encodes text with the given encoding, restoring the BOM for
// the variants that carried one.
func EncodeText(text string, enc Encoding) ([]byte, error) {
	switch enc {
	case UTF16LE:
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().Bytes([]byte(text))
	case UTF16BE:
		return unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder().Bytes([]byte(text))
	case UTF16LENoBOM:
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder().Bytes([]byte(text))
	case UTF16BENoBOM:
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewEncoder().Bytes([]byte(text))
	case UTF8:
		return []byte(text), nil
	}

	return nil, errors.Errorf("unknown encoding: %d", enc)
}

// ReadText reads and decodes a metadata document.
func ReadText(path string) (string, Encoding, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return "", UTF8, err
	}

	return DecodeText(data)
}

// WriteText encodes text and writes it atomically.
func WriteText(path, text string, enc Encoding) error {
	data, err := EncodeText(text, enc)
	if err != nil {
		return err
	}

	return ioutil2.WriteFileAtomic(path, data, 0644)
}

// ReadLog reads an auxiliary log file as UTF-8, dropping invalid bytes
// instead of failing: SAS logs are ASCII-mostly but not guaranteed clean.
func ReadLog(path string) (string, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return "", err
	}

	return strings.ToValidUTF8(string(data), ""), nil
}

// WriteLog writes a rewritten log file back as UTF-8.
func WriteLog(path, text string) error {
	return ioutil2.WriteFileAtomic(path, []byte(text), 0644)
}
