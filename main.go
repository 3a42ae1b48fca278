package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"aigen-server/modules/analyze"
	"aigen-server/modules/batch"
	"aigen-server/modules/common/compositor"
	"aigen-server/modules/common/config"
	"aigen-server/modules/common/gemini"
	commonredis "aigen-server/modules/common/redis"
	"aigen-server/modules/common/storage"
	"aigen-server/modules/export"
	"aigen-server/modules/generate"
	"aigen-server/modules/history"
)

// WebSocket upgrader
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// 개발용 - 모든 origin 허용
		return true
	},
}

// Client - 런 상태를 구독하는 WebSocket 연결
type Client struct {
	conn      *websocket.Conn
	sessionID string
	send      chan []byte
}

// ServerMetrics - 서버 메트릭
type ServerMetrics struct {
	TotalConnections  int       `json:"totalConnections"`
	ActiveConnections int       `json:"activeConnections"`
	StartTime         time.Time `json:"startTime"`
	mutex             sync.RWMutex
}

// Hub - 세션별 런 상태 브로드캐스트 허브
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[*Client]bool
	metrics  *ServerMetrics
}

func newHub() *Hub {
	return &Hub{
		sessions: make(map[string]map[*Client]bool),
		metrics:  &ServerMetrics{StartTime: time.Now()},
	}
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	clients, ok := h.sessions[client.sessionID]
	if !ok {
		clients = make(map[*Client]bool)
		h.sessions[client.sessionID] = clients
	}
	clients[client] = true
	h.mu.Unlock()

	h.metrics.mutex.Lock()
	h.metrics.TotalConnections++
	h.metrics.ActiveConnections++
	h.metrics.mutex.Unlock()

	log.Printf("👤 Client subscribed to session %s (Total: %d)", client.sessionID, h.metrics.TotalConnections)
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	if clients, ok := h.sessions[client.sessionID]; ok {
		if _, exists := clients[client]; exists {
			delete(clients, client)
			close(client.send)
			if len(clients) == 0 {
				delete(h.sessions, client.sessionID)
			}
		}
	}
	h.mu.Unlock()

	h.metrics.mutex.Lock()
	h.metrics.ActiveConnections--
	h.metrics.mutex.Unlock()
}

// PublishRunStatus - 배치 런 상태 변경을 세션 구독자에게 전파
func (h *Hub) PublishRunStatus(sessionID string, run *batch.Run) {
	payload, err := json.Marshal(map[string]interface{}{
		"type": "batch_status",
		"run":  run,
	})
	if err != nil {
		log.Printf("❌ Failed to marshal run status: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.sessions[sessionID] {
		select {
		case client.send <- payload:
		default:
			// 느린 클라이언트는 버림
		}
	}
}

// handleWebSocket - 런 상태 구독 연결 처리
func (h *Hub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		http.Error(w, "sessionId is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("❌ WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{conn: conn, sessionID: sessionID, send: make(chan []byte, 16)}
	h.register(client)

	go client.writePump()
	client.readPump(h)
}

// readPump - 연결 종료 감지용. 클라이언트가 보내는 메시지는 무시
func (c *Client) readPump(h *Hub) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}
	}
}

// writePump - 클라이언트로 메시지 쓰기
func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			log.Printf("WebSocket write error: %v", err)
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// enableCORS - CORS 헤더 추가
func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// healthCheck - 헬스 체크 엔드포인트
func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "aigen-server",
	})
}

// getMetrics - 서버 메트릭 조회 엔드포인트
func (h *Hub) getMetrics(w http.ResponseWriter, r *http.Request) {
	h.metrics.mutex.RLock()
	total := h.metrics.TotalConnections
	active := h.metrics.ActiveConnections
	start := h.metrics.StartTime
	h.metrics.mutex.RUnlock()

	h.mu.RLock()
	sessionCount := len(h.sessions)
	h.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"uptime":            time.Since(start).String(),
		"startTime":         start,
		"totalConnections":  total,
		"activeConnections": active,
		"activeSessions":    sessionCount,
	})
}

func main() {
	// 환경변수 로드
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	// Redis 연결
	rdb := commonredis.Connect(cfg)
	if rdb == nil {
		log.Fatal("❌ Failed to connect to Redis")
	}

	// Gemini 클라이언트
	geminiClient, err := gemini.NewClient(context.Background(), cfg.GeminiAPIKey, cfg.GeminiImageModel, cfg.GeminiTextModel)
	if err != nil {
		log.Fatalf("❌ Failed to create Gemini client: %v", err)
	}

	// 공용 컴포넌트
	comp := compositor.New(cfg.MaxImageEdge)
	historyStore := history.NewStore()
	hub := newHub()

	// 아카이브 (선택)
	archiveClient, err := storage.NewClient(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to create archive client: %v", err)
	}
	var archiver generate.Archiver
	if archiveClient != nil {
		archiver = archiveClient
	}

	// 서비스 구성
	generateService := generate.NewService(geminiClient, comp, historyStore, archiver)
	analyzeService := analyze.NewService(geminiClient, comp)
	batchService := batch.NewService(geminiClient, analyzeService, comp, historyStore, rdb, hub)
	exportService := export.NewService(cfg.MaxImageEdge)

	// Batch Queue Worker 시작 (백그라운드)
	go batch.StartWorker(batchService, rdb)

	// 라우터 설정
	r := mux.NewRouter()
	r.Use(enableCORS)

	r.HandleFunc("/", healthCheck).Methods("GET")
	r.HandleFunc("/health", healthCheck).Methods("GET")
	r.HandleFunc("/ws", hub.handleWebSocket)
	r.HandleFunc("/metrics", hub.getMetrics).Methods("GET")

	generate.NewHandler(generateService).RegisterRoutes(r)
	batch.NewHandler(batchService, rdb).RegisterRoutes(r)
	history.NewHandler(historyStore).RegisterRoutes(r)
	export.NewHandler(exportService).RegisterRoutes(r)

	log.Printf("🚀 AIGen Server starting on port %s", cfg.Port)
	log.Printf("📡 WebSocket endpoint: ws://localhost:%s/ws", cfg.Port)
	log.Printf("❤️  Health check: http://localhost:%s/health", cfg.Port)
	log.Printf("📊 Metrics: http://localhost:%s/metrics", cfg.Port)

	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
