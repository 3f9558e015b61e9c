package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"engage-quiz/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	balancesKey = "points:balances"

	// optimistic redeem attempts before giving up under contention
	maxRedeemRetries = 50
)

var errLedgerContention = errors.New("ledger busy, retry later")

// LedgerStore keeps points balances in a Redis hash: HSET points:balances {userID} {balance}.
// Credits are HSETNX+HINCRBY in one MULTI; redeems are WATCH-guarded
// check-and-set, so several processes can share the hash.
type LedgerStore struct {
	client *redis.Client
}

func NewLedgerStore(client *redis.Client) *LedgerStore {
	return &LedgerStore{client: client}
}

func (s *LedgerStore) GetLedger(ctx context.Context, userID string) (domain.Ledger, bool, error) {
	return readLedger(ctx, s.client, userID)
}

func (s *LedgerStore) Credit(ctx context.Context, userID string, opening, points int) (domain.Ledger, domain.Ledger, error) {
	if points < 0 {
		points = 0
	}
	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSetNX(ctx, balancesKey, userID, opening)
		incr = pipe.HIncrBy(ctx, balancesKey, userID, int64(points))
		return nil
	})
	if err != nil {
		return domain.Ledger{}, domain.Ledger{}, fmt.Errorf("credit balance: %w", err)
	}
	after := domain.Ledger{UserID: userID, Balance: int(incr.Val())}
	before := domain.Ledger{UserID: userID, Balance: after.Balance - points}
	return before, after, nil
}

func (s *LedgerStore) Redeem(ctx context.Context, userID string, opening int, reward domain.Reward) (domain.Ledger, domain.Ledger, error) {
	var before, after domain.Ledger
	redeem := func(tx *redis.Tx) error {
		current, ok, err := readLedger(ctx, tx, userID)
		if err != nil {
			return err
		}
		if !ok {
			current = domain.Ledger{UserID: userID, Balance: opening}
		}
		before, after = current, current
		updated, err := current.Redeem(reward)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, balancesKey, userID, updated.Balance)
			return nil
		})
		if err != nil {
			return err
		}
		after = updated
		return nil
	}

	for i := 0; i < maxRedeemRetries; i++ {
		err := s.client.Watch(ctx, redeem, balancesKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, domain.ErrInsufficientPoints) {
			return before, before, err
		}
		if err != nil {
			return before, before, fmt.Errorf("redeem balance: %w", err)
		}
		return before, after, nil
	}
	return before, before, errLedgerContention
}

type hashReader interface {
	HGet(ctx context.Context, key, field string) *redis.StringCmd
}

func readLedger(ctx context.Context, r hashReader, userID string) (domain.Ledger, bool, error) {
	raw, err := r.HGet(ctx, balancesKey, userID).Result()
	if errors.Is(err, redis.Nil) {
		return domain.Ledger{}, false, nil
	}
	if err != nil {
		return domain.Ledger{}, false, fmt.Errorf("get balance: %w", err)
	}
	balance, err := strconv.Atoi(raw)
	if err != nil {
		return domain.Ledger{}, false, fmt.Errorf("parse balance %q: %w", raw, err)
	}
	return domain.Ledger{UserID: userID, Balance: balance}, true, nil
}
