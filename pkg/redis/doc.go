// Package redis opens the Redis connection shared by the job queue
// (queue.RedisStorage) and real-time events (broadcast.RedisPublisher).
//
//	client, err := redis.Connect(ctx, cfg, log)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
package redis
