package redis

import (
	"fmt"

	"github.com/joyverse/joyverse-backend/internal/model"
)

// Key prefix for all JoyVerse data
const keyPrefix = "joyverse"

// userKey returns the Redis HASH key for a user profile
func userKey(id model.UserID) string {
	return fmt.Sprintf("%s:user:%s", keyPrefix, id)
}

// userKeyPrefix is userKey without the id, for scripts that resolve ids
func userKeyPrefix() string {
	return keyPrefix + ":user:"
}

// userEmotionsKey returns the LIST key of a user's emotion log
func userEmotionsKey(id model.UserID) string {
	return fmt.Sprintf("%s:user:%s:emotions", keyPrefix, id)
}

// userGamePlaysKey returns the LIST key of a user's game-play log
func userGamePlaysKey(id model.UserID) string {
	return fmt.Sprintf("%s:user:%s:game_plays", keyPrefix, id)
}

// userSuggestionsKey returns the LIST key of a user's suggested games
func userSuggestionsKey(id model.UserID) string {
	return fmt.Sprintf("%s:user:%s:suggested_games", keyPrefix, id)
}

// usernameIndexKey returns the key for the username -> user_id index
func usernameIndexKey(username string) string {
	return usernameIndexPrefix() + username
}

func usernameIndexPrefix() string {
	return keyPrefix + ":idx:username:"
}

// usersIndexKey returns the ZSET of all user ids scored by creation time
func usersIndexKey() string {
	return fmt.Sprintf("%s:idx:users", keyPrefix)
}

// sessionKey returns the HASH key for a game session
func sessionKey(id model.SessionID) string {
	return sessionKeyPrefix() + string(id)
}

func sessionKeyPrefix() string {
	return keyPrefix + ":session:"
}

// sessionQuestionsKey returns the LIST key of a session's questions
func sessionQuestionsKey(id model.SessionID) string {
	return sessionKey(id) + questionsSuffix
}

const questionsSuffix = ":questions"

// userSessionsIndexKey returns the ZSET of a user's session ids scored by timestamp
func userSessionsIndexKey(userID model.UserID) string {
	return fmt.Sprintf("%s:idx:user_sessions:%s", keyPrefix, userID)
}

// openSessionKey returns the pointer to the session an observation with
// the given open key is recorded into
func openSessionKey(userID model.UserID, gameName, openKey string) string {
	return fmt.Sprintf("%s:idx:open_session:%s:%s:%s", keyPrefix, userID, gameName, openKey)
}
