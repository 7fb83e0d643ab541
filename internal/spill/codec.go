package spill

import (
	"bytes"
	"errors"
	"fmt"
	"santasleigh/internal/crypto"
	"santasleigh/internal/crypto/aead"
	"santasleigh/internal/crypto/hkdf"
	"santasleigh/internal/crypto/random"

	"github.com/fxamacker/cbor/v2"
)

var (
	ErrFormat = errors.New("not a spill record")
	ErrSealed = errors.New("spill record is sealed and no key is configured")
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	encOptions.Time = cbor.TimeRFC3339Nano
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("spill: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("spill: CBOR decoder initialization failed: " + err.Error())
	}
}

// Layout: magic | version | suite | [nonce] | body
// The header is authenticated as associated data when sealed.
func marshal(record Record, secret []byte) (data []byte, err error) {
	body, err := encMode.Marshal(record)
	if err != nil {
		err = fmt.Errorf("failed to encode record: %w", err)
		return
	}

	suiteID := crypto.SuitePlain
	if secret != nil {
		suiteID = crypto.SuiteSealed
	}
	header := append(magic[:], formatVersion, suiteID)

	if suiteID == crypto.SuitePlain {
		data = append(header, body...)
		return
	}

	suite, _ := crypto.GetSuiteInfo(suiteID)
	var nonce []byte
	err = random.PopulateEmptySlice(&nonce, suite.NonceSize)
	if err != nil {
		return
	}

	key, err := deriveKey(secret, nonce, suite)
	if err != nil {
		return
	}
	sealed, err := aead.Encrypt(body, key, &nonce, header)
	if err != nil {
		err = fmt.Errorf("failed to seal record: %w", err)
		return
	}

	data = make([]byte, 0, len(header)+len(nonce)+len(sealed))
	data = append(data, header...)
	data = append(data, nonce...)
	data = append(data, sealed...)
	return
}

func unmarshal(data []byte, secret []byte) (record Record, err error) {
	if len(data) < headerLen || !bytes.Equal(data[:4], magic[:]) || data[4] != formatVersion {
		err = ErrFormat
		return
	}
	header := data[:headerLen]
	suite, ok := crypto.GetSuiteInfo(header[5])
	if !ok {
		err = fmt.Errorf("%w: unknown suite %d", ErrFormat, header[5])
		return
	}

	body := data[headerLen:]
	if header[5] == crypto.SuiteSealed {
		if secret == nil {
			err = ErrSealed
			return
		}
		if len(body) < suite.NonceSize+suite.CipherOverhead {
			err = fmt.Errorf("%w: sealed record too short", ErrFormat)
			return
		}
		nonce := body[:suite.NonceSize]

		var key []byte
		key, err = deriveKey(secret, nonce, suite)
		if err != nil {
			return
		}
		body, err = aead.Decrypt(body[suite.NonceSize:], key, nonce, header)
		if err != nil {
			return
		}
	}

	err = decMode.Unmarshal(body, &record)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrFormat, err)
	}
	return
}

// The nonce doubles as salt. Both inputs are copied because derivation zeroes them.
func deriveKey(secret, nonce []byte, suite crypto.SuiteInfo) (key []byte, err error) {
	key, err = hkdf.DeriveKey(bytes.Clone(secret), bytes.Clone(nonce), keyNamespace+suite.Name, suite.KeySize)
	if err != nil {
		err = fmt.Errorf("failed to derive record key: %w", err)
	}
	return
}
