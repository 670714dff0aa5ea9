// Package redis builds the client for the kiosk's local durable storage.
package redis

import (
	"github.com/redis/go-redis/v9"
)

func New(address, username, password string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     address,
		Username: username,
		Password: password,
		DB:       0,
	})
}
