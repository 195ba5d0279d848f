package cache

// KeyPrefix - префиксы для разных типов ключей
type KeyPrefix string

const (
	PrefixShort   KeyPrefix = "short"   // short:shortCode -> original URL
	PrefixArchive KeyPrefix = "archive" // archive:shortCode -> hash of a deleted link
)

// KeyBuilder - построитель ключей кэша
type KeyBuilder struct {
	namespace string
}

func NewKeyBuilder(namespace string) *KeyBuilder {
	return &KeyBuilder{namespace: namespace}
}

// Build создает ключ с префиксом и опциональным namespace
func (k *KeyBuilder) Build(prefix KeyPrefix, parts ...string) string {
	key := string(prefix)

	if k.namespace != "" {
		key = k.namespace + ":" + key
	}

	for _, part := range parts {
		key += ":" + part
	}

	return key
}

// Short is the resolve cache key for a short code.
func (k *KeyBuilder) Short(shortCode string) string {
	return k.Build(PrefixShort, shortCode)
}

// Archive is the audit key for a deleted short code.
func (k *KeyBuilder) Archive(shortCode string) string {
	return k.Build(PrefixArchive, shortCode)
}

var DefaultKeyBuilder = NewKeyBuilder("")
