// api.go

package gateway

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jacl-coder/SeaStorm-Server/internal/leaderboard"
	"github.com/jacl-coder/SeaStorm-Server/internal/models"
	"github.com/jacl-coder/SeaStorm-Server/internal/store"
	log "github.com/sirupsen/logrus"
)

const adminTokenHeader = "X-Admin-Token"

const (
	maxLeaderboardLimit = 100
	defaultMessageLimit = 50
	maxMessageLimit     = 200
)

// apiHandler 世界状态查询
type apiHandler struct {
	deps       Deps
	adminToken string
}

// RegisterHandlers 注册HTTP处理器
func (h *apiHandler) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/api/players", h.handlePlayers)
	mux.HandleFunc("/api/islands", h.handleIslands)
	mux.HandleFunc("/api/leaderboard", h.handleLeaderboard)
	mux.HandleFunc("/api/messages", h.handleMessages)
	mux.HandleFunc("/api/inventory/", h.handleInventory)
	mux.HandleFunc("/api/status", h.handleStatus)
}

// CreateIslandRequest 创建岛屿请求
type CreateIslandRequest struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Z      float64 `json:"z"`
	Radius float64 `json:"radius,omitempty"`
	Type   string  `json:"type,omitempty"`
}

// handlePlayers 在线玩家
func (h *apiHandler) handlePlayers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		sendErrorResponse(w, "仅支持GET方法", http.StatusMethodNotAllowed)
		return
	}
	sendSuccessResponse(w, "查询成功", h.deps.World.ActivePlayers())
}

// handleIslands GET查询岛屿，POST创建岛屿（需要管理令牌）
func (h *apiHandler) handleIslands(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		sendSuccessResponse(w, "查询成功", h.deps.World.Islands())
	case http.MethodPost:
		h.createIsland(w, r)
	default:
		sendErrorResponse(w, "仅支持GET和POST方法", http.StatusMethodNotAllowed)
	}
}

func (h *apiHandler) createIsland(w http.ResponseWriter, r *http.Request) {
	if h.adminToken == "" {
		sendErrorResponse(w, "管理接口未启用", http.StatusForbidden)
		return
	}
	given := r.Header.Get(adminTokenHeader)
	if subtle.ConstantTimeCompare([]byte(given), []byte(h.adminToken)) != 1 {
		sendErrorResponse(w, "管理令牌无效", http.StatusUnauthorized)
		return
	}

	var req CreateIslandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendErrorResponse(w, "无效的请求格式", http.StatusBadRequest)
		return
	}
	if req.Radius < 0 {
		sendErrorResponse(w, "半径不能为负数", http.StatusBadRequest)
		return
	}

	is, err := h.deps.World.CreateIsland(r.Context(), models.Island{
		Position: models.Vector3{X: req.X, Y: req.Y, Z: req.Z},
		Radius:   req.Radius,
		Type:     strings.TrimSpace(req.Type),
	})
	if err != nil {
		log.WithError(err).Error("创建岛屿失败")
		sendErrorResponse(w, "创建岛屿失败", http.StatusInternalServerError)
		return
	}
	sendSuccessResponse(w, "创建成功", is)
}

// handleLeaderboard 排行榜，优先读取Redis镜像
func (h *apiHandler) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		sendErrorResponse(w, "仅支持GET方法", http.StatusMethodNotAllowed)
		return
	}
	limit, err := parseLimit(r, 0, maxLeaderboardLimit)
	if err != nil {
		sendErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	if h.deps.Mirror != nil {
		n := limit
		if n == 0 {
			n = leaderboard.DefaultSize
		}
		lb, ok, err := h.deps.Mirror.Get(r.Context(), n)
		if err != nil {
			log.WithError(err).Warn("读取Redis排行榜失败，改为重新计算")
		} else if ok {
			sendSuccessResponse(w, "查询成功", lb)
			return
		}
	}
	sendSuccessResponse(w, "查询成功", h.deps.World.Leaderboard(r.Context(), limit))
}

// handleMessages 最近的聊天记录
func (h *apiHandler) handleMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		sendErrorResponse(w, "仅支持GET方法", http.StatusMethodNotAllowed)
		return
	}
	limit, err := parseLimit(r, defaultMessageLimit, maxMessageLimit)
	if err != nil {
		sendErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	msgType := r.URL.Query().Get("type")
	if msgType == "" {
		msgType = models.MessageTypeGlobal
	}

	msgs, err := h.deps.Messages.Recent(r.Context(), msgType, limit)
	if err != nil {
		log.WithError(err).Error("查询聊天记录失败")
		sendErrorResponse(w, "查询聊天记录失败", http.StatusInternalServerError)
		return
	}
	if msgs == nil {
		msgs = []models.ChatMessage{}
	}
	sendSuccessResponse(w, "查询成功", msgs)
}

// handleInventory 玩家背包，不存在时返回空背包
func (h *apiHandler) handleInventory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		sendErrorResponse(w, "仅支持GET方法", http.StatusMethodNotAllowed)
		return
	}
	playerID := strings.TrimPrefix(r.URL.Path, "/api/inventory/")
	if playerID == "" || strings.Contains(playerID, "/") {
		sendErrorResponse(w, "无效的玩家ID", http.StatusBadRequest)
		return
	}
	if h.deps.Inventories == nil {
		sendErrorResponse(w, "背包服务不可用", http.StatusServiceUnavailable)
		return
	}

	inv, err := h.deps.Inventories.GetInventory(r.Context(), playerID)
	if errors.Is(err, store.ErrNotFound) {
		inv, err = models.NewInventory(playerID, time.Now()), nil
	}
	if err != nil {
		log.WithError(err).WithField("player", playerID).Error("查询背包失败")
		sendErrorResponse(w, "查询背包失败", http.StatusInternalServerError)
		return
	}
	sendSuccessResponse(w, "查询成功", inv)
}

// handleStatus 服务器状态
func (h *apiHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		sendErrorResponse(w, "仅支持GET方法", http.StatusMethodNotAllowed)
		return
	}
	sendSuccessResponse(w, "查询成功", h.deps.World.Status())
}

var errInvalidLimit = errors.New("无效的limit参数")

// parseLimit 读取limit参数，缺省时返回def，超过上限时截断
func parseLimit(r *http.Request, def, maxLimit int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errInvalidLimit
	}
	if n > maxLimit {
		n = maxLimit
	}
	return n, nil
}
