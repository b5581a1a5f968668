// Package redis wraps go-redis with reqkit logging, configuration and
// component lifecycle. The credential package persists tokens and the
// re-authentication guard through it so several processes can share one
// session.
//
//	client, err := redis.New(redis.Config{Enabled: true, Addr: "localhost:6379"}, log)
//	store := credential.NewRedisStore(client, credential.RedisStoreConfig{})
package redis
