package redis

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/jewelmatch/internal/db"
)

var _ db.Store = (*Store)(nil)

// ErrNoAddrs is returned by NewStore when no cache address is configured.
var ErrNoAddrs = errors.New("redis: at least one address is required")

const (
	defaultClientName  = "jewelmatch-captions"
	defaultDialTimeout = 5 * time.Second

	readyFirstBackoff = 50 * time.Millisecond
	readyMaxBackoff   = time.Second
)

// Config describes the caption cache endpoint.
type Config struct {
	Addrs       []string
	Password    string
	ClientName  string
	DialTimeout time.Duration
}

func (c Config) option() (rueidis.ClientOption, error) {
	if len(c.Addrs) == 0 {
		return rueidis.ClientOption{}, ErrNoAddrs
	}
	name := c.ClientName
	if name == "" {
		name = defaultClientName
	}
	dial := c.DialTimeout
	if dial <= 0 {
		dial = defaultDialTimeout
	}
	return rueidis.ClientOption{
		InitAddress:  c.Addrs,
		Password:     c.Password,
		ClientName:   name,
		Dialer:       net.Dialer{Timeout: dial},
		DisableCache: true,
	}, nil
}

// Store is the caption cache backend.
type Store struct {
	client rueidis.Client
}

// NewStore dials the cache described by cfg.
func NewStore(cfg Config) (*Store, error) {
	opt, err := cfg.option()
	if err != nil {
		return nil, err
	}
	client, err := rueidis.NewClient(opt)
	if err != nil {
		return nil, fmt.Errorf("redis: connect %v: %w", cfg.Addrs, err)
	}
	return &Store{client: client}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.do(ctx, s.b().Ping().Build()).Error(); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

func (s *Store) Close() { s.client.Close() }

// WaitForReady pings right away and then with a doubling backoff until the
// cache answers or timeout elapses. The returned error carries both the
// deadline and the last ping failure.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	backoff := readyFirstBackoff
	for {
		lastErr := s.Ping(ctx)
		if lastErr == nil {
			return nil
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("redis: not ready after %s: %w (last ping: %w)", timeout, ctx.Err(), lastErr)
		case <-timer.C:
		}
		backoff = min(backoff*2, readyMaxBackoff)
	}
}

func (s *Store) do(ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	return s.client.Do(ctx, cmd)
}

func (s *Store) b() rueidis.Builder { return s.client.B() }
