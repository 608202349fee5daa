package domain

const redacted = "[REDACTED]"

// Secret is an opaque credential. Its value only leaves the type through Reveal,
// so it is never printed or serialized by accident.
type Secret struct {
	value string
}

// NewSecret wraps a credential value.
func NewSecret(value string) Secret {
	return Secret{value: value}
}

// Reveal returns the raw credential.
func (s Secret) Reveal() string {
	return s.value
}

// IsZero reports whether the secret holds no value.
func (s Secret) IsZero() bool {
	return s.value == ""
}

func (s Secret) String() string {
	return redacted
}

// GoString keeps %#v from leaking the value.
func (s Secret) GoString() string {
	return redacted
}

// MarshalJSON always encodes the redacted placeholder.
func (s Secret) MarshalJSON() ([]byte, error) {
	return []byte(`"` + redacted + `"`), nil
}

// SecretRef names a secret in a provider, e.g. env:QUAY_ROBOT_TOKEN.
type SecretRef struct {
	Provider string
	Key      string
}

func (r SecretRef) String() string {
	return r.Provider + ":" + r.Key
}
