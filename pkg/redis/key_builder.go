package redis

import "fmt"

// KeyBuilder provides environment-aware Redis key building functionality
type KeyBuilder struct {
	prefix string // Environment prefix (staging/prod)
}

// NewKeyBuilder creates a new key builder with environment-based prefix
func NewKeyBuilder(environment string) *KeyBuilder {
	prefix := "prod"
	if environment == "development" || environment == "staging" {
		prefix = "staging"
	}

	return &KeyBuilder{
		prefix: prefix,
	}
}

// BuildKey constructs a Redis key with the environment prefix
func (kb *KeyBuilder) BuildKey(key string) string {
	return fmt.Sprintf("%s:leaguesync:%s", kb.prefix, key)
}

// GetPrefix returns the current environment prefix
func (kb *KeyBuilder) GetPrefix() string {
	return kb.prefix
}

// KeyLock wraps a lock scope into a lock key
func (kb *KeyBuilder) KeyLock(scope string) string {
	return kb.BuildKey(fmt.Sprintf(KeyLock, scope))
}

// MatchLockScope is the lock scope serializing result writes on one match
func MatchLockScope(matchID string) string {
	return fmt.Sprintf(KeyMatchLock, matchID)
}

// NotificationLockScope is the lock scope serializing notification creation per (user, match)
func NotificationLockScope(userID, matchID string) string {
	return fmt.Sprintf(KeyNotificationLock, userID, matchID)
}
