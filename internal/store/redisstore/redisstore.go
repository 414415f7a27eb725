package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// New builds a redis client and verifies the connection.
func New(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func userNotifyChannel(userID uint64) string {
	return fmt.Sprintf("user_notify:%d", userID)
}

// Notifier fans out server events to whichever node holds the user's
// live connection.
type Notifier struct {
	client *redis.Client
}

func NewNotifier(client *redis.Client) *Notifier {
	return &Notifier{client: client}
}

// PublishUserNotify pushes a JSON payload onto the user's notify channel.
func (n *Notifier) PublishUserNotify(ctx context.Context, userID uint64, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return n.client.Publish(ctx, userNotifyChannel(userID), data).Err()
}

// SubscribeUserNotify opens a pub/sub subscription on the user's notify
// channel. The caller owns the returned subscription and must Close it.
func (n *Notifier) SubscribeUserNotify(ctx context.Context, userID uint64) *redis.PubSub {
	return n.client.Subscribe(ctx, userNotifyChannel(userID))
}

// Subscription is the billing status surfaced to clients on connect.
type Subscription struct {
	IsActive bool   `json:"isActive"`
	Plan     string `json:"plan"`
}

const subscriptionTTL = 10 * time.Minute

// SubscriptionStore caches per-user billing status. The source of truth
// lives with the billing provider; absent a cached entry every user is
// treated as active on the free plan.
type SubscriptionStore struct {
	client *redis.Client
}

func NewSubscriptionStore(client *redis.Client) *SubscriptionStore {
	return &SubscriptionStore{client: client}
}

func subscriptionKey(userID uint64) string {
	return fmt.Sprintf("subscription:%d", userID)
}

func (s *SubscriptionStore) Get(ctx context.Context, userID uint64) (Subscription, error) {
	raw, err := s.client.Get(ctx, subscriptionKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Subscription{IsActive: true, Plan: "free"}, nil
		}
		return Subscription{}, err
	}
	var sub Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return Subscription{IsActive: true, Plan: "free"}, nil
	}
	return sub, nil
}

func (s *SubscriptionStore) Set(ctx context.Context, userID uint64, sub Subscription) error {
	data, err := json.Marshal(sub)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, subscriptionKey(userID), data, subscriptionTTL).Err()
}
