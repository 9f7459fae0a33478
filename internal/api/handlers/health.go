package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Broker is satisfied by *amqp.Connection.
type Broker interface {
	IsClosed() bool
}

type HealthHandler struct {
	db     *gorm.DB
	redis  *redis.Client
	broker Broker
}

// NewHealthHandler takes optional redis and broker dependencies; nil ones are not reported.
func NewHealthHandler(db *gorm.DB, redis *redis.Client, broker Broker) *HealthHandler {
	return &HealthHandler{db: db, redis: redis, broker: broker}
}

type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	services := make(map[string]string)
	status := "healthy"

	if h.pingDB(ctx) != nil {
		services["database"] = "unhealthy"
		status = "unhealthy"
	} else {
		services["database"] = "healthy"
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			services["redis"] = "unhealthy"
			status = "unhealthy"
		} else {
			services["redis"] = "healthy"
		}
	}

	// Events are best effort, so a closed broker degrades instead of failing the check.
	if h.broker != nil {
		if h.broker.IsClosed() {
			services["rabbitmq"] = "unhealthy"
			if status == "healthy" {
				status = "degraded"
			}
		} else {
			services["rabbitmq"] = "healthy"
		}
	}

	statusCode := http.StatusOK
	if status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, HealthResponse{
		Status:   status,
		Services: services,
	})
}

// Ready reports whether the database accepts connections.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.pingDB(ctx); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *HealthHandler) pingDB(ctx context.Context) error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
