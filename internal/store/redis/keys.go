package redis

const (
	// KeyPrefix namespaces every key written by the mirror.
	KeyPrefix = "portal:"

	keyRoutes    = "routes"     // hash token -> port
	keyPublic    = "public"     // set of bare ports
	keySources   = "sources"    // hash token -> manifest path
	keyUpdatedAt = "updated_at" // RFC 3339 timestamp of the last publish
)

// RoutesKey returns the hash holding token -> port for a gateway instance.
func RoutesKey(instance string) string {
	return instanceKey(instance, keyRoutes)
}

// PublicKey returns the set of public ports for a gateway instance.
func PublicKey(instance string) string {
	return instanceKey(instance, keyPublic)
}

// SourcesKey returns the hash holding token -> manifest path.
func SourcesKey(instance string) string {
	return instanceKey(instance, keySources)
}

// UpdatedAtKey returns the key holding the last publish time.
func UpdatedAtKey(instance string) string {
	return instanceKey(instance, keyUpdatedAt)
}

func instanceKey(instance, name string) string {
	if instance == "" {
		instance = "default"
	}
	return KeyPrefix + instance + ":" + name
}
