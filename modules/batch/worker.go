package batch

import (
	"context"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// StartWorker - Redis Queue Worker 시작
// batch:queue에서는 전체 런을, batch:regen에서는 단일 인덱스 재생성을 받음
func StartWorker(service *Service, rdb *redis.Client) {
	log.Println("🔄 Batch queue worker starting...")
	log.Printf("👀 Watching queues: %s, %s", QueueKey, RegenQueueKey)

	ctx := context.Background()

	for {
		result, err := rdb.BRPop(ctx, 0, QueueKey, RegenQueueKey).Result()
		if err != nil {
			log.Printf("❌ Redis BRPOP error: %v", err)
			time.Sleep(5 * time.Second)
			continue
		}

		// result[0]은 큐 이름, result[1]이 payload
		queue, payload := result[0], result[1]

		switch queue {
		case QueueKey:
			log.Printf("🎯 Received batch run: %s", payload)
			go service.Execute(ctx, payload)

		case RegenQueueKey:
			runID, index, ok := parseRegenPayload(payload)
			if !ok {
				log.Printf("❌ Invalid regen payload: %s", payload)
				continue
			}
			log.Printf("🎯 Received regen request: run %s index %d", runID, index)
			go func() {
				if err := service.RegenerateIndex(ctx, runID, index); err != nil {
					log.Printf("❌ Regeneration failed: %v", err)
				}
			}()
		}
	}
}

// EnqueueRegen - 재생성 요청을 큐에 등록
func EnqueueRegen(ctx context.Context, rdb *redis.Client, runID string, index int) error {
	return rdb.LPush(ctx, RegenQueueKey, runID+"|"+strconv.Itoa(index)).Err()
}

func parseRegenPayload(payload string) (string, int, bool) {
	parts := strings.SplitN(payload, "|", 2)
	if len(parts) != 2 {
		return "", 0, false
	}
	index, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, false
	}
	return parts[0], index, true
}
