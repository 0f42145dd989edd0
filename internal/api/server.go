package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/calleye/internal/alert"
	"github.com/calleye/internal/auth"
	"github.com/calleye/internal/config"
	"github.com/calleye/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Server struct {
	db        *gorm.DB
	evaluator *alert.Evaluator
	cfg       *config.Config
	router    *gin.Engine
}

func NewServer(db *gorm.DB, evaluator *alert.Evaluator, cfg *config.Config) *Server {
	server := &Server{
		db:        db,
		evaluator: evaluator,
		cfg:       cfg,
		router:    gin.Default(),
	}

	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	s.router.POST("/api/v1/auth/login", s.login)
	s.router.POST("/api/v1/auth/register", s.register)

	api := s.router.Group("/api/v1")
	api.Use(auth.AuthMiddleware(s.db, []byte(s.cfg.Auth.JWTSecret)))

	alerts := api.Group("/alerts")
	{
		alerts.GET("", s.listAlerts)
		alerts.POST("", auth.RequireRole(models.RoleAdmin, models.RoleUser), s.createAlert)
		alerts.GET("/:id", s.getAlert)
		alerts.PUT("/:id", auth.RequireRole(models.RoleAdmin, models.RoleUser), s.updateAlert)
		alerts.DELETE("/:id", auth.RequireRole(models.RoleAdmin, models.RoleUser), s.deleteAlert)
		alerts.PUT("/:id/enable", auth.RequireRole(models.RoleAdmin, models.RoleUser), s.enableAlert)
		alerts.PUT("/:id/disable", auth.RequireRole(models.RoleAdmin, models.RoleUser), s.disableAlert)
		alerts.POST("/:id/evaluate", auth.RequireRole(models.RoleAdmin, models.RoleUser), s.evaluateAlert)
		alerts.GET("/:id/history", s.listAlertHistory)
	}
	api.POST("/evaluate-all", auth.RequireRole(models.RoleAdmin), s.evaluateAll)

	history := api.Group("/history")
	{
		history.GET("", s.listHistory)
		history.PUT("/:id/acknowledge", auth.RequireRole(models.RoleAdmin, models.RoleUser), s.acknowledgeHistory)
		history.PUT("/:id/resolve", auth.RequireRole(models.RoleAdmin, models.RoleUser), s.resolveHistory)
	}

	api.GET("/calls", s.listCalls)
	api.POST("/calls", auth.RequireRole(models.RoleAdmin, models.RoleUser), s.createCall)
	api.GET("/agents", s.listAgents)
	api.POST("/agents", auth.RequireRole(models.RoleAdmin, models.RoleUser), s.createAgent)
	api.PUT("/agents/:id", auth.RequireRole(models.RoleAdmin, models.RoleUser), s.updateAgent)
	api.DELETE("/agents/:id", auth.RequireRole(models.RoleAdmin), s.deleteAgent)
}

func (s *Server) Start(port int) error {
	return s.router.Run(fmt.Sprintf(":%d", port))
}

// Router exposes the engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func orgID(c *gin.Context) string {
	return c.GetString("organization_id")
}

// Auth handlers

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := s.db.Where("username = ?", req.Username).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if !user.CheckPassword(req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	ttl := time.Duration(s.cfg.Auth.TokenHours) * time.Hour
	token, err := auth.GenerateToken(&user, []byte(s.cfg.Auth.JWTSecret), ttl)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

type registerRequest struct {
	Username       string `json:"username" binding:"required"`
	Password       string `json:"password" binding:"required"`
	Email          string `json:"email"`
	OrganizationID string `json:"organization_id" binding:"required"`
}

func (s *Server) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := models.User{
		Username:       req.Username,
		Email:          req.Email,
		OrganizationID: req.OrganizationID,
		Role:           models.RoleUser,
		IsActive:       true,
	}
	if err := user.SetPassword(req.Password); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
		return
	}

	// First user of an organization administers it.
	var orgUsers int64
	s.db.Model(&models.User{}).Where("organization_id = ?", req.OrganizationID).Count(&orgUsers)
	if orgUsers == 0 {
		user.Role = models.RoleAdmin
	}

	if err := s.db.Create(&user).Error; err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "username already exists"})
		return
	}

	var alertCount int64
	s.db.Model(&models.Alert{}).Where("organization_id = ?", req.OrganizationID).Count(&alertCount)
	if alertCount == 0 {
		if err := alert.CreateDefaultAlerts(s.db, req.OrganizationID); err != nil {
			c.JSON(http.StatusCreated, gin.H{"user": user, "warning": "failed to seed default alerts"})
			return
		}
	}

	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// Alert handlers

var validMetricTypes = map[models.MetricType]bool{
	models.MetricCallCount:    true,
	models.MetricCallDuration: true,
	models.MetricErrorRate:    true,
	models.MetricSuccessRate:  true,
	models.MetricLatency:      true,
	models.MetricCustom:       true,
}

var validAggregations = map[models.Aggregation]bool{
	models.AggregationSum:   true,
	models.AggregationAvg:   true,
	models.AggregationCount: true,
	models.AggregationMin:   true,
	models.AggregationMax:   true,
}

var validOperators = map[models.Operator]bool{
	models.OperatorGT:  true,
	models.OperatorLT:  true,
	models.OperatorGTE: true,
	models.OperatorLTE: true,
	models.OperatorEQ:  true,
	models.OperatorNEQ: true,
}

var validFrequencies = map[models.NotifyFrequency]bool{
	models.FrequencyImmediate: true,
	models.FrequencyHourly:    true,
	models.FrequencyDaily:     true,
	models.FrequencyWeekly:    true,
}

func validateAlert(a *models.Alert) error {
	if a.Name == "" {
		return fmt.Errorf("name is required")
	}
	if !validMetricTypes[a.MetricType] {
		return fmt.Errorf("invalid metric_type %q", a.MetricType)
	}
	if a.Aggregation != "" && !validAggregations[a.Aggregation] {
		return fmt.Errorf("invalid aggregation %q", a.Aggregation)
	}
	if !validOperators[a.Operator] {
		return fmt.Errorf("invalid operator %q", a.Operator)
	}
	if a.TimeWindowMinutes <= 0 {
		return fmt.Errorf("time_window_minutes must be positive")
	}
	if a.NotifyFrequency != "" && !validFrequencies[a.NotifyFrequency] {
		return fmt.Errorf("invalid notify_frequency %q", a.NotifyFrequency)
	}
	return nil
}

func (s *Server) listAlerts(c *gin.Context) {
	var alerts []models.Alert
	query := s.db.Where("organization_id = ?", orgID(c))
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Find(&alerts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, alerts)
}

func (s *Server) createAlert(c *gin.Context) {
	var a models.Alert
	if err := c.ShouldBindJSON(&a); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	a.ID = 0
	a.OrganizationID = orgID(c)
	if a.Aggregation == "" {
		a.Aggregation = models.AggregationCount
	}
	if a.NotifyFrequency == "" {
		a.NotifyFrequency = models.FrequencyImmediate
	}
	if a.Status == "" {
		a.Status = models.AlertStatusActive
	}

	if err := validateAlert(&a); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.db.Create(&a).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, a)
}

// findAlert loads an alert within the caller's organization. Alerts of
// other organizations are indistinguishable from missing ones.
func (s *Server) findAlert(c *gin.Context) (*models.Alert, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid alert id"})
		return nil, false
	}

	var a models.Alert
	if err := s.db.Where("id = ? AND organization_id = ?", id, orgID(c)).First(&a).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
		return nil, false
	}
	return &a, true
}

func (s *Server) getAlert(c *gin.Context) {
	a, ok := s.findAlert(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, a)
}

func (s *Server) updateAlert(c *gin.Context) {
	a, ok := s.findAlert(c)
	if !ok {
		return
	}

	var update models.Alert
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	update.ID = a.ID
	update.CreatedAt = a.CreatedAt
	update.OrganizationID = a.OrganizationID
	if update.Aggregation == "" {
		update.Aggregation = a.Aggregation
	}
	if update.NotifyFrequency == "" {
		update.NotifyFrequency = a.NotifyFrequency
	}
	if update.Status == "" {
		update.Status = a.Status
	}

	if err := validateAlert(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.db.Save(&update).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, update)
}

func (s *Server) deleteAlert(c *gin.Context) {
	a, ok := s.findAlert(c)
	if !ok {
		return
	}
	// History rows are owned by the alert and go with it.
	if err := s.db.Unscoped().Where("alert_id = ?", a.ID).Delete(&models.AlertHistory{}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := s.db.Delete(a).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "alert deleted"})
}

func (s *Server) setAlertStatus(c *gin.Context, status models.AlertStatus) {
	a, ok := s.findAlert(c)
	if !ok {
		return
	}
	if err := s.db.Model(a).Update("status", status).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("alert %s", status)})
}

func (s *Server) enableAlert(c *gin.Context) {
	s.setAlertStatus(c, models.AlertStatusActive)
}

func (s *Server) disableAlert(c *gin.Context) {
	s.setAlertStatus(c, models.AlertStatusInactive)
}

// Evaluation handlers

func (s *Server) evaluateAlert(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid alert id"})
		return
	}

	result, err := s.evaluator.EvaluateAlertByID(uint(id), orgID(c))
	if errors.Is(err, alert.ErrAlertNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) evaluateAll(c *gin.Context) {
	batch, err := s.evaluator.EvaluateAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, batch)
}

// History handlers

func (s *Server) listAlertHistory(c *gin.Context) {
	a, ok := s.findAlert(c)
	if !ok {
		return
	}

	var history []models.AlertHistory
	if err := s.db.Where("alert_id = ?", a.ID).Order("triggered_at DESC").Limit(100).Find(&history).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, history)
}

func (s *Server) listHistory(c *gin.Context) {
	var history []models.AlertHistory
	err := s.db.Joins("JOIN alerts ON alerts.id = alert_histories.alert_id").
		Where("alerts.organization_id = ?", orgID(c)).
		Order("alert_histories.triggered_at DESC").
		Limit(100).
		Find(&history).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, history)
}

// findHistory loads a history row owned by the caller's organization.
func (s *Server) findHistory(c *gin.Context) (*models.AlertHistory, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid history id"})
		return nil, false
	}

	var h models.AlertHistory
	err = s.db.Joins("JOIN alerts ON alerts.id = alert_histories.alert_id").
		Where("alert_histories.id = ? AND alerts.organization_id = ?", id, orgID(c)).
		First(&h).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "history entry not found"})
		return nil, false
	}
	return &h, true
}

func (s *Server) acknowledgeHistory(c *gin.Context) {
	h, ok := s.findHistory(c)
	if !ok {
		return
	}

	now := time.Now()
	updates := map[string]interface{}{
		"acknowledged_at": now,
	}
	if user, exists := c.Get("user"); exists {
		updates["acknowledged_by"] = user.(models.User).Username
	}
	if err := s.db.Model(h).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h)
}

func (s *Server) resolveHistory(c *gin.Context) {
	h, ok := s.findHistory(c)
	if !ok {
		return
	}

	now := time.Now()
	updates := map[string]interface{}{
		"resolved_at": now,
	}
	if user, exists := c.Get("user"); exists {
		updates["resolved_by"] = user.(models.User).Username
	}
	if err := s.db.Model(h).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h)
}

// Call and agent handlers

func (s *Server) listCalls(c *gin.Context) {
	var calls []models.Call
	query := s.db.Where("organization_id = ?", orgID(c))
	if agentID := c.Query("agent_id"); agentID != "" {
		query = query.Where("agent_id = ?", agentID)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Order("created_at DESC").Limit(200).Find(&calls).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, calls)
}

func (s *Server) createCall(c *gin.Context) {
	var call models.Call
	if err := c.ShouldBindJSON(&call); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	call.ID = 0
	call.OrganizationID = orgID(c)
	if call.Status == "" {
		call.Status = models.CallStatusQueued
	}

	if err := s.db.Create(&call).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, call)
}

func (s *Server) listAgents(c *gin.Context) {
	var agents []models.Agent
	if err := s.db.Where("organization_id = ?", orgID(c)).Find(&agents).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, agents)
}

func (s *Server) createAgent(c *gin.Context) {
	var agent models.Agent
	if err := c.ShouldBindJSON(&agent); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	agent.ID = 0
	agent.OrganizationID = orgID(c)
	if agent.AgentID == "" || agent.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "agent_id and name are required"})
		return
	}

	if err := s.db.Create(&agent).Error; err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "agent already exists"})
		return
	}
	c.JSON(http.StatusCreated, agent)
}

func (s *Server) findAgent(c *gin.Context) (*models.Agent, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid agent id"})
		return nil, false
	}

	var agent models.Agent
	if err := s.db.Where("id = ? AND organization_id = ?", id, orgID(c)).First(&agent).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "agent not found"})
		return nil, false
	}
	return &agent, true
}

func (s *Server) updateAgent(c *gin.Context) {
	agent, ok := s.findAgent(c)
	if !ok {
		return
	}

	var update models.Agent
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// The external agent_id is the join key to call records and stays fixed.
	if update.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	agent.Name = update.Name

	if err := s.db.Save(agent).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, agent)
}

func (s *Server) deleteAgent(c *gin.Context) {
	agent, ok := s.findAgent(c)
	if !ok {
		return
	}

	if err := s.db.Delete(agent).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "agent deleted"})
}
