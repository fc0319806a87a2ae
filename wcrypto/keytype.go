package wcrypto

import "fmt"

type KeyType int

const (
	KeyRSA2048 KeyType = iota
	KeySECP256R1
)

// DefaultKeyType matches the key type the matrix was historically generated with.
var DefaultKeyType = KeyRSA2048

func (kt KeyType) String() string {
	switch kt {
	case KeyRSA2048:
		return "rsa"
	case KeySECP256R1:
		return "ecdsa"
	default:
		return "unknown_keytype"
	}
}

func KeyTypeFromString(s string) (KeyType, error) {
	switch s {
	case "rsa":
		return KeyRSA2048, nil
	case "secp256r1", "ecdsa", "ec":
		return KeySECP256R1, nil
	default:
		return KeyRSA2048, fmt.Errorf("Unknown key type %q.", s)
	}
}

func (p *KeyType) UnmarshalFlag(s string) error {
	kt, err := KeyTypeFromString(s)
	if err != nil {
		return err
	}

	*p = kt
	return nil
}

func (p *KeyType) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}

	kt, err := KeyTypeFromString(s)
	if err != nil {
		return err
	}

	*p = kt
	return nil
}

func (kt KeyType) MarshalYAML() (interface{}, error) {
	return kt.String(), nil
}
