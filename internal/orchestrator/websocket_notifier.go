package orchestrator

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/felixgeelhaar/pulse/pkg/observability"
	"github.com/gorilla/websocket"
)

// EventType is the closed set of websocket event envelope types.
type EventType string

const (
	EventTaskCreated         EventType = "task_created"
	EventTaskProgress        EventType = "task_progress"
	EventStepCompleted       EventType = "step_completed"
	EventTaskCompleted       EventType = "task_completed"
	EventTaskFailed          EventType = "task_failed"
	EventTaskCancelled       EventType = "task_cancelled"
	EventCRUDSuccess         EventType = "crud_success"
	EventCRUDFailure         EventType = "crud_failure"
	EventImmediateResponse   EventType = "immediate_response"
	EventClarificationRequest EventType = "clarification_request"
	EventWorkflowSwitch      EventType = "workflow_switch"
)

// Envelope is the wire shape of every emitted websocket message.
type Envelope struct {
	Type           EventType `json:"type"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	Payload        any       `json:"payload"`
}

// WebSocketNotifier is a process-wide per-user connection registry. It
// never buffers: emitting to a disconnected user is a no-op that returns
// false, grounded on the per-user emit-or-drop model the solve pipeline
// assumes in its backpressure policy, generalized from a broadcast-to-all
// metrics hub into one-registration-per-user fan-out.
type WebSocketNotifier struct {
	mu      sync.RWMutex
	clients map[string]*websocket.Conn
	metrics observability.Metrics
	logger  *slog.Logger
}

// NewWebSocketNotifier creates a WebSocketNotifier.
func NewWebSocketNotifier(metrics observability.Metrics, logger *slog.Logger) *WebSocketNotifier {
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSocketNotifier{clients: make(map[string]*websocket.Conn), metrics: metrics, logger: logger}
}

// Register associates a connection with a user, replacing any prior one.
func (n *WebSocketNotifier) Register(userID string, conn *websocket.Conn) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if old, ok := n.clients[userID]; ok && old != conn {
		_ = old.Close()
	}
	n.clients[userID] = conn
}

// Unregister removes a user's connection if it matches, closing it.
func (n *WebSocketNotifier) Unregister(userID string, conn *websocket.Conn) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if cur, ok := n.clients[userID]; ok && cur == conn {
		delete(n.clients, userID)
		_ = conn.Close()
	}
}

// EmitToUser sends an envelope to the user's connection, if any. Returns
// false (and logs) on no-connection or write failure; never blocks the caller.
func (n *WebSocketNotifier) EmitToUser(userID string, eventType EventType, conversationID string, payload any) bool {
	n.mu.RLock()
	conn, ok := n.clients[userID]
	n.mu.RUnlock()
	if !ok {
		n.metrics.Counter(observability.MetricWSEmitDropped, 1, observability.T("reason", "not_connected"))
		return false
	}

	envelope := Envelope{Type: eventType, ConversationID: conversationID, Timestamp: time.Now(), Payload: payload}
	data, err := json.Marshal(envelope)
	if err != nil {
		n.metrics.Counter(observability.MetricWSEmitDropped, 1, observability.T("reason", "marshal_error"))
		return false
	}

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		n.logger.Warn("websocket emit failed", "user_id", userID, "event", eventType, "error", err)
		n.metrics.Counter(observability.MetricWSEmitDropped, 1, observability.T("reason", "write_error"))
		n.Unregister(userID, conn)
		return false
	}

	n.metrics.Counter(observability.MetricWSEmitSuccess, 1, observability.T("event", string(eventType)))
	return true
}

// Connected reports whether a user currently has a registered connection.
func (n *WebSocketNotifier) Connected(userID string) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	_, ok := n.clients[userID]
	return ok
}
