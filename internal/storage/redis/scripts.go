package redis

import "github.com/redis/go-redis/v9"

// createUserScript claims the username and writes the profile in one step.
// KEYS: username index, user hash, users index
// ARGV: id, profile json, role, approved, username, created score
var createUserScript = redis.NewScript(`
if redis.call('SETNX', KEYS[1], ARGV[1]) == 0 then
  return 0
end
redis.call('HSET', KEYS[2], 'profile', ARGV[2], 'role', ARGV[3], 'approved', ARGV[4], 'username', ARGV[5])
redis.call('ZADD', KEYS[3], ARGV[6], ARGV[1])
return 1
`)

// deleteUserScript removes a user, its logs and its indexes.
// KEYS: user hash, emotions, game plays, suggestions, users index
// ARGV: id, username index prefix
var deleteUserScript = redis.NewScript(`
local username = redis.call('HGET', KEYS[1], 'username')
if not username then
  return 0
end
redis.call('DEL', KEYS[1], KEYS[2], KEYS[3], KEYS[4], ARGV[2] .. username)
redis.call('ZREM', KEYS[5], ARGV[1])
return 1
`)

// appendIfExistsScript pushes onto a user's log only while the user exists.
// KEYS: user hash, list
// ARGV: value
var appendIfExistsScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
redis.call('RPUSH', KEYS[2], ARGV[1])
return 1
`)

// approveTherapistScript sets approved on a therapist found by username.
// KEYS: username index
// ARGV: user key prefix
var approveTherapistScript = redis.NewScript(`
local id = redis.call('GET', KEYS[1])
if not id then
  return false
end
local key = ARGV[1] .. id
if redis.call('HGET', key, 'role') ~= 'therapist' then
  return false
end
redis.call('HSET', key, 'approved', '1')
return id
`)

// recordObservationScript finds or creates the session behind an open
// pointer, appends a question and applies the final score.
// KEYS: open pointer, candidate session hash, candidate questions, user sessions index
// ARGV: candidate id, candidate meta json, candidate score, question json,
// final score or "", "1" to drop the pointer, session key prefix, questions suffix
var recordObservationScript = redis.NewScript(`
local id = redis.call('GET', KEYS[1])
local hkey
local qkey
if id then
  hkey = ARGV[7] .. id
  qkey = hkey .. ARGV[8]
else
  id = ARGV[1]
  hkey = KEYS[2]
  qkey = KEYS[3]
  redis.call('HSET', hkey, 'meta', ARGV[2])
  redis.call('ZADD', KEYS[4], ARGV[3], id)
  redis.call('SET', KEYS[1], id)
end
redis.call('RPUSH', qkey, ARGV[4])
if ARGV[5] ~= '' then
  redis.call('HSET', hkey, 'final_score', ARGV[5])
end
if ARGV[6] == '1' then
  redis.call('DEL', KEYS[1])
end
return id
`)
