package vehiclestate

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func stateKey(vehicleID int64) string {
	return fmt.Sprintf("depotflow:vehicle:%d:state", vehicleID)
}

const allVehiclesKey = "depotflow:vehicles"

func (r *RedisStore) SetState(ctx context.Context, state *VehicleState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	pipe := r.client.Pipeline()
	pipe.Set(ctx, stateKey(state.VehicleID), data, 0)
	pipe.SAdd(ctx, allVehiclesKey, state.VehicleID)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisStore) GetState(ctx context.Context, vehicleID int64) (*VehicleState, error) {
	data, err := r.client.Get(ctx, stateKey(vehicleID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var state VehicleState
	return &state, json.Unmarshal(data, &state)
}

func (r *RedisStore) GetAllVehicleIDs(ctx context.Context) ([]int64, error) {
	members, err := r.client.SMembers(ctx, allVehiclesKey).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *RedisStore) RemoveVehicle(ctx context.Context, vehicleID int64) error {
	pipe := r.client.Pipeline()
	pipe.Del(ctx, stateKey(vehicleID))
	pipe.SRem(ctx, allVehiclesKey, vehicleID)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisStore) FlushAll(ctx context.Context) error {
	ids, err := r.GetAllVehicleIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		r.RemoveVehicle(ctx, id)
	}
	return r.client.Del(ctx, allVehiclesKey).Err()
}
