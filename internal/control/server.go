package control

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/satriahrh/rekam/domain/entities"
	"github.com/satriahrh/rekam/domain/repositories"
	"github.com/satriahrh/rekam/internal/auth"
	"github.com/satriahrh/rekam/internal/config"
	"github.com/satriahrh/rekam/usecase"
)

// Version is stamped at build time.
var Version = "dev"

// Server is the local control-plane HTTP server. The desktop shell and the
// web app drive the agent through it; it binds to loopback only.
type Server struct {
	echo    *echo.Echo
	service *usecase.SessionService
	session *entities.Session
	sources repositories.SourceFactory
	backend repositories.RecordingBackend
	store   *config.Store
	logger  *zap.Logger
}

// NewServer wires the control-plane routes.
func NewServer(
	service *usecase.SessionService,
	sources repositories.SourceFactory,
	backend repositories.RecordingBackend,
	store *config.Store,
	logger *zap.Logger,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{
		echo:    e,
		service: service,
		session: service.Session(),
		sources: sources,
		backend: backend,
		store:   store,
		logger:  logger,
	}

	e.GET("/status", s.getStatus)
	e.POST("/auth", s.authorize)
	e.GET("/config", s.getConfig)
	e.POST("/config", s.updateConfig)
	e.GET("/devices", s.getDevices)
	e.GET("/levels", s.getLevels)
	e.POST("/start", s.startRecording)
	e.POST("/stop", s.stopRecording)
	e.POST("/pause", s.pauseRecording)
	e.POST("/resume", s.resumeRecording)
	e.GET("/ws", s.streamStatus)

	return s
}

// Start serves on the configured local port until Shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf("127.0.0.1:%d", s.store.Get().LocalPort)
	s.logger.Info("Control server listening", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// StatusResponse is the control-plane view of the session.
type StatusResponse struct {
	Status          entities.SessionStatus `json:"status"`
	ErrorReason     string                 `json:"error_reason,omitempty"`
	DurationSeconds int64                  `json:"duration_seconds"`
	UploadProgress  uint32                 `json:"upload_progress"`
	Version         string                 `json:"version"`
	Authenticated   bool                   `json:"authenticated"`
	APIHost         string                 `json:"api_host"`
}

func (s *Server) statusResponse() StatusResponse {
	snapshot := s.session.Snapshot()
	cfg := s.store.Get()
	return StatusResponse{
		Status:          snapshot.Status,
		ErrorReason:     snapshot.ErrorReason,
		DurationSeconds: int64(snapshot.Duration / time.Second),
		UploadProgress:  snapshot.UploadProgress,
		Version:         Version,
		Authenticated:   auth.Authenticated(cfg.APIToken),
		APIHost:         cfg.APIHost,
	}
}

func (s *Server) getStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, s.statusResponse())
}

// AuthRequest pairs the agent with the backend from the web app.
type AuthRequest struct {
	Token   string `json:"token"`
	APIHost string `json:"api_host,omitempty"`
	APIPort int    `json:"api_port,omitempty"`
}

// MessageResponse is a generic acknowledgement body.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (s *Server) authorize(c echo.Context) error {
	var req AuthRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, MessageResponse{Message: "invalid request"})
	}
	if req.Token == "" {
		return c.JSON(http.StatusBadRequest, MessageResponse{Message: "token cannot be empty"})
	}

	if info, err := auth.Inspect(req.Token); err == nil {
		s.logger.Info("Pairing token received",
			zap.String("subject", info.Subject),
			zap.Time("expires_at", info.ExpiresAt))
	}

	err := s.store.Update(func(cfg *config.Config) {
		cfg.APIToken = req.Token
		if req.APIHost != "" {
			cfg.APIHost = req.APIHost
		}
		if req.APIPort != 0 {
			cfg.APIPort = req.APIPort
		}
	})
	if err != nil {
		s.logger.Error("Failed to save config", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, MessageResponse{Message: "failed to save config"})
	}

	s.logger.Info("Agent authorized and configured")
	return c.JSON(http.StatusOK, MessageResponse{Success: true, Message: "authorization successful"})
}

// ConfigResponse exposes the non-secret connection settings.
type ConfigResponse struct {
	APIPort          int    `json:"api_port"`
	LocalPort        int    `json:"local_port"`
	InputDeviceName  string `json:"input_device_name,omitempty"`
	OutputDeviceName string `json:"output_device_name,omitempty"`
	MinMeetingLength int    `json:"min_meeting_length"`
}

func (s *Server) getConfig(c echo.Context) error {
	cfg := s.store.Get()
	return c.JSON(http.StatusOK, ConfigResponse{
		APIPort:          cfg.APIPort,
		LocalPort:        cfg.LocalPort,
		InputDeviceName:  cfg.InputDeviceName,
		OutputDeviceName: cfg.OutputDeviceName,
		MinMeetingLength: cfg.MinMeetingLength,
	})
}

// ConfigUpdateRequest carries optional settings changes.
type ConfigUpdateRequest struct {
	APIPort          *int    `json:"api_port,omitempty"`
	APIToken         *string `json:"api_token,omitempty"`
	InputDeviceName  *string `json:"input_device_name,omitempty"`
	OutputDeviceName *string `json:"output_device_name,omitempty"`
	MinMeetingLength *int    `json:"min_meeting_length,omitempty"`
}

func (s *Server) updateConfig(c echo.Context) error {
	var req ConfigUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, MessageResponse{Message: "invalid request"})
	}
	err := s.store.Update(func(cfg *config.Config) {
		if req.APIPort != nil {
			cfg.APIPort = *req.APIPort
		}
		if req.APIToken != nil {
			cfg.APIToken = *req.APIToken
		}
		if req.InputDeviceName != nil {
			cfg.InputDeviceName = *req.InputDeviceName
		}
		if req.OutputDeviceName != nil {
			cfg.OutputDeviceName = *req.OutputDeviceName
		}
		if req.MinMeetingLength != nil {
			cfg.MinMeetingLength = *req.MinMeetingLength
		}
	})
	if err != nil {
		s.logger.Error("Failed to save config", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, MessageResponse{Message: "failed to save config"})
	}
	return s.getConfig(c)
}

// DevicesResponse lists the selectable audio devices.
type DevicesResponse struct {
	InputDevices   []entities.DeviceInfo `json:"input_devices"`
	OutputDevices  []entities.DeviceInfo `json:"output_devices"`
	SelectedInput  string                `json:"selected_input,omitempty"`
	SelectedOutput string                `json:"selected_output,omitempty"`
}

func (s *Server) getDevices(c echo.Context) error {
	inputs, outputs, err := s.sources.Devices()
	if err != nil {
		s.logger.Error("Device enumeration failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, MessageResponse{Message: "device enumeration failed"})
	}
	cfg := s.store.Get()
	return c.JSON(http.StatusOK, DevicesResponse{
		InputDevices:   inputs,
		OutputDevices:  outputs,
		SelectedInput:  cfg.InputDeviceName,
		SelectedOutput: cfg.OutputDeviceName,
	})
}

// LevelsResponse carries the live audio meters. Reading drains the peaks.
type LevelsResponse struct {
	InputLevel  uint32 `json:"input_level"`
	OutputLevel uint32 `json:"output_level"`
	IsRecording bool   `json:"is_recording"`
}

func (s *Server) getLevels(c echo.Context) error {
	status, _ := s.session.Status()
	return c.JSON(http.StatusOK, LevelsResponse{
		InputLevel:  s.session.InputLevel.Take(),
		OutputLevel: s.session.OutputLevel.Take(),
		IsRecording: status == entities.StatusRecording,
	})
}

// StartRequest names the recording to create.
type StartRequest struct {
	Name string `json:"name"`
}

// StartResponse returns the backend-issued recording identifier.
type StartResponse struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

func (s *Server) startRecording(c echo.Context) error {
	var req StartRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, StartResponse{Message: "invalid request"})
	}
	s.logger.Info("Start requested", zap.String("name", req.Name))

	status, _ := s.session.Status()
	switch status {
	case entities.StatusIdle, entities.StatusBackendOffline, entities.StatusError:
	default:
		return c.JSON(http.StatusBadRequest, StartResponse{Message: "already recording"})
	}

	id, err := s.backend.CreateRecording(c.Request().Context(), req.Name)
	if err != nil {
		s.logger.Error("Failed to create recording on backend", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, StartResponse{Message: "failed to start recording"})
	}

	s.service.Enqueue(entities.Command{Type: entities.CommandStart, RecordingID: id})
	return c.JSON(http.StatusOK, StartResponse{ID: id, Message: "recording started"})
}

func (s *Server) stopRecording(c echo.Context) error {
	s.logger.Info("Stop requested")
	s.service.Enqueue(entities.Command{Type: entities.CommandStop})
	return c.JSON(http.StatusOK, MessageResponse{Success: true, Message: "stopped"})
}

func (s *Server) pauseRecording(c echo.Context) error {
	s.logger.Info("Pause requested")
	s.service.Enqueue(entities.Command{Type: entities.CommandPause})
	return c.JSON(http.StatusOK, MessageResponse{Success: true, Message: "paused"})
}

func (s *Server) resumeRecording(c echo.Context) error {
	s.logger.Info("Resume requested")
	s.service.Enqueue(entities.Command{Type: entities.CommandResume})
	return c.JSON(http.StatusOK, MessageResponse{Success: true, Message: "resumed"})
}
