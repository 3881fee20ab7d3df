// Command gptagd serves the scan pipeline to camera clients: sessions are
// allocated over HTTP and frames stream in as base64 images over a
// per-session websocket.
package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/S-SB/gp-tag-mobile/config"
	"github.com/S-SB/gp-tag-mobile/logger"
	"github.com/S-SB/gp-tag-mobile/monitor"
	"github.com/S-SB/gp-tag-mobile/pipeline"
	"github.com/S-SB/gp-tag-mobile/pose"
	"github.com/S-SB/gp-tag-mobile/registry"
	"github.com/S-SB/gp-tag-mobile/scan"
)

const (
	idleStatus = 0x1001
	busyStatus = 0x1002
)

type worker struct {
	mu    sync.Mutex
	State int
	pipe  *pipeline.Pipeline
}

type instance struct {
	id     string
	worker *worker
	// lastActive is the UnixNano of the last received frame; it is written
	// by the websocket read loop and read by the idle monitor goroutine.
	lastActive  atomic.Int64
	conn        *websocket.Conn
	closeOnce   sync.Once
	cancelTimer chan struct{}
	cancelOnce  sync.Once
}

func (inst *instance) touch() {
	inst.lastActive.Store(time.Now().UnixNano())
}

func (inst *instance) idleFor() time.Duration {
	return time.Since(time.Unix(0, inst.lastActive.Load()))
}

var (
	seqMu     sync.RWMutex
	workers   = map[string]*worker{}
	sessionMu sync.RWMutex
	sessions  = map[string]*instance{}
	upgrader  = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	idleTimeout time.Duration
)

func addWorker(cfg config.Config) string {
	reader := scan.NewReaderConfig(cfg.ScanConfig())
	k := cfg.Intrinsics()
	pipe := pipeline.New(reader, pipeline.SinkFunc(func(pipeline.Outcome) {}), pipeline.Config{
		Workers:    1,
		Intrinsics: &k,
	})
	w := &worker{State: idleStatus, pipe: pipe}
	id := uuid.New().String()
	seqMu.Lock()
	workers[id] = w
	seqMu.Unlock()
	return id
}

func allocInstance() (string, string, error) {
	seqMu.RLock()
	var chosenID string
	var chosen *worker
	for id, w := range workers {
		w.mu.Lock()
		if w.State == idleStatus {
			w.State = busyStatus
			chosenID = id
			chosen = w
			w.mu.Unlock()
			break
		}
		w.mu.Unlock()
	}
	seqMu.RUnlock()
	if chosen == nil {
		return "", "", errors.New("no available workers")
	}

	sessionID := uuid.New().String()
	inst := &instance{
		id:          sessionID,
		worker:      chosen,
		cancelTimer: make(chan struct{}),
	}
	inst.touch()
	sessionMu.Lock()
	sessions[sessionID] = inst
	sessionMu.Unlock()
	return sessionID, chosenID, nil
}

func releaseInstance(sessionID string) bool {
	sessionMu.Lock()
	inst, ok := sessions[sessionID]
	if ok {
		delete(sessions, sessionID)
	}
	sessionMu.Unlock()
	if !ok {
		return false
	}

	inst.closeOnce.Do(func() {
		if inst.conn != nil {
			_ = inst.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session released"))
			_ = inst.conn.Close()
		}
	})
	inst.cancelOnce.Do(func() {
		close(inst.cancelTimer)
	})
	inst.worker.mu.Lock()
	inst.worker.State = idleStatus
	inst.worker.mu.Unlock()
	return true
}

func startIdleMonitor(inst *instance) {
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-inst.cancelTimer:
				return
			case <-ticker.C:
				if inst.idleFor() > idleTimeout {
					_ = releaseInstance(inst.id)
					logger.Log().Info("session idle, released", zap.String("session", inst.id))
					return
				}
			}
		}
	}()
}

// decodeFrame converts a base64 string (optionally a data URL) to an image.
func decodeFrame(b64 string) (image.Image, error) {
	if i := strings.Index(b64, ","); i != -1 && strings.HasPrefix(b64, "data:") {
		b64 = b64[i+1:]
	}
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

type poseJSON struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

type scanJSON struct {
	FrameID   string    `json:"frameId"`
	Success   bool      `json:"success"`
	Stage     string    `json:"stage"`
	ElapsedMs float64   `json:"elapsedMs"`
	Error     string    `json:"error,omitempty"`
	TagID     int       `json:"tagId,omitempty"`
	VersionID int       `json:"versionId,omitempty"`
	Latitude  float64   `json:"latitude,omitempty"`
	Longitude float64   `json:"longitude,omitempty"`
	Altitude  float64   `json:"altitude,omitempty"`
	Accuracy  int       `json:"accuracy,omitempty"`
	Corrected int       `json:"corrected,omitempty"`
	Corners   []float64 `json:"corners,omitempty"`
	Pose      *poseJSON `json:"pose,omitempty"`
}

func outcomeJSON(o pipeline.Outcome) scanJSON {
	out := scanJSON{
		FrameID:   o.FrameID,
		Success:   o.Err == nil,
		Stage:     o.Stage.String(),
		ElapsedMs: float64(o.Elapsed.Microseconds()) / 1000,
	}
	if o.Err != nil {
		out.Error = o.Err.Error()
		return out
	}
	d := o.Result.Data
	out.TagID = d.TagID
	out.VersionID = d.VersionID
	out.Latitude = d.Latitude
	out.Longitude = d.Longitude
	out.Altitude = d.Altitude
	out.Accuracy = d.Accuracy
	out.Corrected = o.Result.ErrorsCorrected + o.Result.IDErrorsCorrected
	for _, c := range o.Result.Corners {
		out.Corners = append(out.Corners, c.X, c.Y)
	}
	if o.Pose != nil {
		roll, pitch, yaw := pose.EulerNegY(o.Pose.Rotation)
		out.Pose = &poseJSON{
			X: o.Pose.Translation[0], Y: o.Pose.Translation[1], Z: o.Pose.Translation[2],
			Roll: roll, Pitch: pitch, Yaw: yaw,
		}
	}
	return out
}

func getOutboundIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String(), nil
}

func main() {
	configPath := flag.String("config", "config.yaml", "configuration file path")
	dev := flag.Bool("dev", false, "console-friendly logging")
	flag.Parse()

	var err error
	if *dev {
		err = logger.InitDevelopment()
	} else {
		err = logger.InitProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Log().Fatal("configuration", zap.Error(err))
	}
	idleTimeout = time.Duration(cfg.IdleTimeoutMs) * time.Millisecond

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go monitor.StartMon(cfg.MetricsPort, ctx)

	var wg sync.WaitGroup
	if cfg.Registry.Enabled {
		ip, err := getOutboundIP()
		if err != nil {
			logger.Log().Warn("outbound IP lookup failed, registry disabled", zap.Error(err))
		} else {
			client := registry.NewClient(cfg.Registry.Host, cfg.Registry.Port, ip, cfg.HTTPPort)
			wg.Add(1)
			go client.Run(ctx, &wg)
		}
	}

	for i := 0; i < cfg.WorkersNum; i++ {
		addWorker(cfg)
	}
	logger.Log().Info("scanner ready",
		zap.Int("workers", cfg.WorkersNum),
		zap.Int("httpPort", cfg.HTTPPort),
		zap.Int("metricsPort", cfg.MetricsPort))

	r := gin.Default()
	r.GET("/api/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/api/status", func(c *gin.Context) {
		seqMu.RLock()
		total := len(workers)
		idle := 0
		for _, w := range workers {
			w.mu.Lock()
			if w.State == idleStatus {
				idle++
			}
			w.mu.Unlock()
		}
		seqMu.RUnlock()
		sessionMu.RLock()
		active := len(sessions)
		sessionMu.RUnlock()
		c.JSON(http.StatusOK, gin.H{
			"workers":  total,
			"idle":     idle,
			"sessions": active,
		})
	})
	r.GET("/api/workers/check/:id", func(c *gin.Context) {
		id := c.Param("id")
		seqMu.RLock()
		w, exists := workers[id]
		seqMu.RUnlock()
		if !exists {
			c.JSON(http.StatusNotFound, gin.H{"error": "Worker not found"})
			return
		}
		w.mu.Lock()
		state := w.State
		w.mu.Unlock()
		c.JSON(http.StatusOK, gin.H{"data": gin.H{"state": state}})
	})
	r.POST("/api/workers/alloc", func(c *gin.Context) {
		sessionID, workerID, err := allocInstance()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "All workers are busy"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"sessionID": sessionID,
			"workerID":  workerID,
			"wsURL":     fmt.Sprintf("ws://%s/ws/%s", c.Request.Host, sessionID),
			"timeoutMs": idleTimeout.Milliseconds(),
		})
	})
	r.POST("/api/workers/:sessionID/release", func(c *gin.Context) {
		if !releaseInstance(c.Param("sessionID")) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": "Session released"})
	})
	r.GET("/ws/:sessionID", func(c *gin.Context) {
		sessionID := c.Param("sessionID")
		sessionMu.RLock()
		inst, exists := sessions[sessionID]
		sessionMu.RUnlock()
		if !exists {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		inst.conn = conn
		conn.SetReadLimit(20 * 1024 * 1024)

		startIdleMonitor(inst)
		for {
			mt, msg, err := conn.ReadMessage()
			if err != nil {
				releaseInstance(sessionID)
				logger.Log().Info("connection closed",
					zap.String("session", sessionID), zap.Error(err))
				return
			}
			inst.touch()
			if mt != websocket.TextMessage {
				_ = conn.WriteMessage(websocket.TextMessage, []byte("unsupported message type"))
				continue
			}
			img, err := decodeFrame(string(msg))
			if err != nil {
				_ = conn.WriteJSON(scanJSON{Success: false, Error: fmt.Sprintf("invalid image: %v", err)})
				continue
			}
			outcome := inst.worker.pipe.Process(pipeline.NewFrame(img))
			_ = conn.WriteJSON(outcomeJSON(outcome))
		}
	})
	_ = r.Run(fmt.Sprintf(":%d", cfg.HTTPPort))
}
