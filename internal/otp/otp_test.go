package otp

import (
	"context"
	"sync"
	"testing"
	"time"

	"dineflow/internal/apperr"
	"dineflow/internal/cache"
	"dineflow/internal/logger"
	"dineflow/internal/store/storetest"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newService(t *testing.T) (*Service, *clock) {
	c := &clock{now: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}
	s := NewService(storetest.New(t), logger.Discard())
	s.Clock = c.Now
	return s, c
}

func TestPhoneCodesAreScopedToTenant(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	code, err := s.Issue(ctx, PhoneKey("tenant-a", "+15550009"), 5*time.Minute)
	require.NoError(t, err)

	assert.ErrorIs(t, s.Verify(ctx, PhoneKey("tenant-b", "+15550009"), code), ErrInvalidOrExpired)
	assert.NoError(t, s.Verify(ctx, PhoneKey("tenant-a", "+15550009"), code))
}

func TestVerifyBeforeExpiry(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	code, err := s.Issue(ctx, PhoneKey("t1", "+15550001"), 5*time.Minute)
	require.NoError(t, err)
	assert.Len(t, code, CodeLength)

	assert.NoError(t, s.Verify(ctx, PhoneKey("t1", "+15550001"), code))
}

func TestVerifyTwiceFailsSecondTime(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	code, err := s.Issue(ctx, PhoneKey("t1", "+15550002"), 5*time.Minute)
	require.NoError(t, err)

	require.NoError(t, s.Verify(ctx, PhoneKey("t1", "+15550002"), code))
	assert.ErrorIs(t, s.Verify(ctx, PhoneKey("t1", "+15550002"), code), ErrInvalidOrExpired)
}

func TestVerifyAfterExpiryFails(t *testing.T) {
	s, c := newService(t)
	ctx := context.Background()

	code, err := s.Issue(ctx, PhoneKey("t1", "+15550003"), 5*time.Minute)
	require.NoError(t, err)

	c.Advance(5*time.Minute + time.Second)
	err = s.Verify(ctx, PhoneKey("t1", "+15550003"), code)
	assert.ErrorIs(t, err, ErrInvalidOrExpired)
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
}

func TestVerifyWrongCodeOrNamespace(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	code, err := s.Issue(ctx, VerifyKey("Owner@Example.com"), 15*time.Minute)
	require.NoError(t, err)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	assert.ErrorIs(t, s.Verify(ctx, VerifyKey("owner@example.com"), wrong), ErrInvalidOrExpired)
	assert.ErrorIs(t, s.Verify(ctx, ResetKey("owner@example.com"), code), ErrInvalidOrExpired)
	assert.NoError(t, s.Verify(ctx, VerifyKey("owner@example.com"), code))
}

func TestEarlierCodesStayValid(t *testing.T) {
	s, c := newService(t)
	ctx := context.Background()

	first, err := s.Issue(ctx, PhoneKey("t1", "+15550004"), 5*time.Minute)
	require.NoError(t, err)
	c.Advance(time.Minute)
	_, err = s.Issue(ctx, PhoneKey("t1", "+15550004"), 5*time.Minute)
	require.NoError(t, err)

	assert.NoError(t, s.Verify(ctx, PhoneKey("t1", "+15550004"), first))
}

func TestConcurrentVerifySucceedsOnce(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	code, err := s.Issue(ctx, PhoneKey("t1", "+15550005"), 5*time.Minute)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Verify(ctx, PhoneKey("t1", "+15550005"), code) == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, ok)
}

func TestThrottle(t *testing.T) {
	s, _ := newService(t)
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	s.WithThrottle(cache.NewRedis(client, logger.Discard()), 2, 15*time.Minute)
	ctx := context.Background()

	_, err = s.Issue(ctx, PhoneKey("t1", "+1"), time.Minute)
	require.NoError(t, err)
	_, err = s.Issue(ctx, PhoneKey("t1", "+1"), time.Minute)
	require.NoError(t, err)
	_, err = s.Issue(ctx, PhoneKey("t1", "+1"), time.Minute)
	assert.Equal(t, apperr.RateLimited, apperr.KindOf(err))

	_, err = s.Issue(ctx, PhoneKey("t1", "+2"), time.Minute)
	assert.NoError(t, err)
}

func TestCodeMessage(t *testing.T) {
	subject, body := CodeMessage("verification", "123456", 15)
	assert.Equal(t, "Your verification code", subject)
	assert.Contains(t, body, "123456")
	assert.Contains(t, body, "15 minutes")
}
