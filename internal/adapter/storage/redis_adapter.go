package storage

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/rl1809/bloodbank/internal/core/domain"
)

const DefaultRedisKey = "bloodbank:stock"

// Quantities travel as strings: Lua numbers returned to Redis are truncated
// to integers.
var adjustStockScript = redis.NewScript(`
local key = KEYS[1]
local field = ARGV[1]
local amount = tonumber(ARGV[2])

local current = tonumber(redis.call('HGET', key, field))
if not current then
	return redis.error_reply('missing quantity for ' .. field)
end

if ARGV[3] == 'remove' then
	if current < amount then
		return {0, tostring(current)}
	end
	amount = -amount
end

local balance = redis.call('HINCRBYFLOAT', key, field, amount)
return {1, balance}
`)

// RedisAdapter keeps the inventory in one hash, one field per blood type code.
// Adjustments run server side in a script, so every server sharing the hash
// is serialized.
type RedisAdapter struct {
	client *redis.Client
	key    string
}

func NewRedisAdapter(client *redis.Client, key string) *RedisAdapter {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisAdapter{client: client, key: key}
}

func (r *RedisAdapter) Bootstrap(ctx context.Context) error {
	fields, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return fmt.Errorf("read stock hash: %w", err)
	}

	present := 0
	for _, t := range domain.AllTypes() {
		if _, ok := fields[t.String()]; ok {
			present++
		}
	}

	if present < domain.TypeCount {
		log.Warn().Str("key", r.key).Int("fields", present).Msg("stock hash is invalid, recreating with seed values")
		return r.SetInventory(ctx, domain.SeedInventory)
	}

	for _, t := range domain.AllTypes() {
		raw := fields[t.String()]
		if _, err := parseQuantity(raw); err == nil {
			continue
		}
		log.Warn().Str("type", t.String()).Str("value", raw).Msg("invalid quantity replaced with 0")
		if err := r.client.HSet(ctx, r.key, t.String(), domain.FormatLiters(0)).Err(); err != nil {
			return fmt.Errorf("repair %s: %w", t, err)
		}
	}
	return nil
}

func (r *RedisAdapter) ReadAll(ctx context.Context) (domain.Inventory, error) {
	var inv domain.Inventory

	codes := make([]string, domain.TypeCount)
	for i, t := range domain.AllTypes() {
		codes[i] = t.String()
	}

	values, err := r.client.HMGet(ctx, r.key, codes...).Result()
	if err != nil {
		return inv, fmt.Errorf("read stock hash: %w", err)
	}

	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			return inv, fmt.Errorf("%w: missing %s", ErrCorruptStore, codes[i])
		}
		q, err := parseQuantity(s)
		if err != nil {
			return inv, fmt.Errorf("%w: %s: %v", ErrCorruptStore, codes[i], err)
		}
		inv[i] = q
	}
	return inv, nil
}

func (r *RedisAdapter) Adjust(ctx context.Context, adj domain.Adjustment) (float64, bool, error) {
	if !adj.Type.Valid() {
		return 0, false, domain.ErrUnknownBloodType
	}
	if !adj.Direction.Valid() {
		return 0, false, fmt.Errorf("unknown direction %q", adj.Direction)
	}

	amount := strconv.FormatFloat(adj.Amount, 'f', -1, 64)
	result, err := adjustStockScript.Run(ctx, r.client, []string{r.key}, adj.Type.String(), amount, string(adj.Direction)).Slice()
	if err != nil {
		return 0, false, err
	}
	if len(result) != 2 {
		return 0, false, fmt.Errorf("unexpected script result %v", result)
	}

	applied, _ := result[0].(int64)
	raw, _ := result[1].(string)
	balance, err := parseQuantity(raw)
	if err != nil {
		return 0, false, fmt.Errorf("parse balance: %w", err)
	}

	return balance, applied == 1, nil
}

// SetInventory overwrites the whole hash.
func (r *RedisAdapter) SetInventory(ctx context.Context, inv domain.Inventory) error {
	values := make(map[string]interface{}, domain.TypeCount)
	for _, t := range domain.AllTypes() {
		values[t.String()] = domain.FormatLiters(inv.Get(t))
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.key)
		pipe.HSet(ctx, r.key, values)
		return nil
	})
	return err
}
