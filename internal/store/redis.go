package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	accountPrefix   = "acct:"
	signaturePrefix = "tx:"
)

// RedisConfig tunes commit retries.
type RedisConfig struct {
	MaxRetries   int
	RetryBackoff time.Duration
	Logger       *logrus.Logger
}

// RedisStore keeps each account under acct:<base58> as owner || data.
// Commits run in MULTI/EXEC guarded by WATCH on the transaction signature
// and on every account the batch expects to find unchanged.
type RedisStore struct {
	client redis.UniversalClient
	cfg    RedisConfig
}

func NewRedisStore(client redis.UniversalClient, cfg RedisConfig) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 50 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &RedisStore{client: client, cfg: cfg}, nil
}

func (s *RedisStore) Get(ctx context.Context, key solana.PublicKey) (*Account, error) {
	val, err := s.client.Get(ctx, accountKey(key)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return decodeAccount(val)
}

func (s *RedisStore) GetMany(ctx context.Context, keys []solana.PublicKey) (map[solana.PublicKey]*Account, error) {
	out := make(map[solana.PublicKey]*Account, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	redisKeys := make([]string, len(keys))
	for i, k := range keys {
		redisKeys[i] = accountKey(k)
	}
	vals, err := s.client.MGet(ctx, redisKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget accounts: %w", err)
	}

	for i, v := range vals {
		if v == nil {
			continue
		}
		str, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("account %s: unexpected value type %T", keys[i], v)
		}
		acct, err := decodeAccount([]byte(str))
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", keys[i], err)
		}
		out[keys[i]] = acct
	}
	return out, nil
}

func (s *RedisStore) Seen(ctx context.Context, signature string) (bool, error) {
	if signature == "" {
		return false, nil
	}
	n, err := s.client.Exists(ctx, signaturePrefix+signature).Result()
	if err != nil {
		return false, fmt.Errorf("check signature: %w", err)
	}
	return n > 0, nil
}

func (s *RedisStore) Commit(ctx context.Context, batch Batch) error {
	if len(batch.Writes) == 0 && batch.Signature == "" {
		return nil
	}

	payload := make(map[string][]byte, len(batch.Writes))
	for k, acct := range batch.Writes {
		payload[accountKey(k)] = encodeAccount(acct)
	}

	var watch []string
	sigKey := ""
	if batch.Signature != "" {
		sigKey = signaturePrefix + batch.Signature
		watch = append(watch, sigKey)
	}
	expectKeys := make([]solana.PublicKey, 0, len(batch.Expect))
	for k := range batch.Expect {
		expectKeys = append(expectKeys, k)
		watch = append(watch, accountKey(k))
	}

	txf := func(tx *redis.Tx) error {
		if sigKey != "" {
			n, err := tx.Exists(ctx, sigKey).Result()
			if err != nil {
				return err
			}
			if n > 0 {
				return ErrDuplicate
			}
		}
		if err := s.checkExpected(ctx, tx, expectKeys, batch.Expect); err != nil {
			return err
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for k, v := range payload {
				pipe.Set(ctx, k, v, 0)
			}
			if sigKey != "" {
				pipe.Set(ctx, sigKey, time.Now().UTC().Unix(), 0)
			}
			return nil
		})
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.cfg.RetryBackoff
	policy.MaxInterval = s.cfg.RetryBackoff * 10

	op := func() (struct{}, error) {
		err := s.client.Watch(ctx, txf, watch...)
		if errors.Is(err, ErrDuplicate) || errors.Is(err, ErrConflict) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}
	notify := func(err error, d time.Duration) {
		s.cfg.Logger.WithFields(logrus.Fields{
			"signature": batch.Signature,
			"accounts":  len(batch.Writes),
			"backoff":   d,
		}).WithError(err).Warn("retrying account commit")
	}

	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(s.cfg.MaxRetries)),
		backoff.WithNotify(notify))
	if errors.Is(err, ErrDuplicate) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("commit accounts: %w", err)
	}
	return nil
}

// checkExpected compares the watched accounts with the state the batch was
// built from. Another writer changing one of them after this read aborts the
// EXEC through WATCH.
func (s *RedisStore) checkExpected(ctx context.Context, tx *redis.Tx, keys []solana.PublicKey, expect map[solana.PublicKey]*Account) error {
	if len(keys) == 0 {
		return nil
	}
	redisKeys := make([]string, len(keys))
	for i, k := range keys {
		redisKeys[i] = accountKey(k)
	}
	vals, err := tx.MGet(ctx, redisKeys...).Result()
	if err != nil {
		return err
	}
	for i, v := range vals {
		var cur *Account
		if str, ok := v.(string); ok {
			if cur, err = decodeAccount([]byte(str)); err != nil {
				return err
			}
		}
		if !matches(expect[keys[i]], cur) {
			return fmt.Errorf("%w: %s", ErrConflict, keys[i])
		}
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close is a no-op; the client is owned by the caller.
func (s *RedisStore) Close() error { return nil }

func accountKey(k solana.PublicKey) string {
	return accountPrefix + k.String()
}

func encodeAccount(a *Account) []byte {
	out := make([]byte, solana.PublicKeyLength+len(a.Data))
	copy(out, a.Owner[:])
	copy(out[solana.PublicKeyLength:], a.Data)
	return out
}

func decodeAccount(b []byte) (*Account, error) {
	if len(b) < solana.PublicKeyLength {
		return nil, fmt.Errorf("stored account is %d bytes", len(b))
	}
	data := make([]byte, len(b)-solana.PublicKeyLength)
	copy(data, b[solana.PublicKeyLength:])
	return &Account{Owner: solana.PublicKeyFromBytes(b[:solana.PublicKeyLength]), Data: data}, nil
}
