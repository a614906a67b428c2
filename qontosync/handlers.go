package qontosync

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ateliernord/finops_backend/config"
	"github.com/ateliernord/finops_backend/models"
)

// Handlers is the HTTP surface of the sync and classification pipeline.
type Handlers struct {
	Service *SyncService
}

func (h *Handlers) RegisterRoutes(r gin.IRouter) {
	api := r.Group("/api")
	api.POST("/sync", h.TriggerSync)
	api.GET("/sync/status", h.SyncStatus)
	api.GET("/sync/runs/:id", h.SyncRunDetail)
	api.POST("/invoices/:id/classify", h.ClassifyInvoice)
	api.PUT("/invoices/:id", h.OverrideInvoice)
}

type triggerSyncRequest struct {
	Scope         string `json:"scope"`
	ForceFullSync bool   `json:"forceFullSync"`
}

// TriggerSync starts a sync run synchronously and returns its summary.
func (h *Handlers) TriggerSync(c *gin.Context) {
	var req triggerSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	scope := models.SyncScope(req.Scope)
	if req.Scope == "" || req.ForceFullSync {
		scope = models.SyncScopeAll
	}
	if !scope.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown sync scope: " + req.Scope})
		return
	}

	run, err := h.Service.RunSync(c.Request.Context(), scope, models.SyncTriggeredManual)
	if err != nil {
		if errors.Is(err, ErrSyncInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		if run == nil {
			config.LogError(h.Service.Logger, "handlers.go", "TriggerSync", "RunSync", req, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		// Run finished failed with partial counts; report them.
	}

	c.JSON(http.StatusOK, gin.H{
		"syncId":           run.ID,
		"status":           run.Status,
		"recordsProcessed": run.RecordsProcessed,
		"recordsCreated":   run.RecordsCreated,
		"recordsUpdated":   run.RecordsUpdated,
		"recordsSkipped":   run.RecordsSkipped,
		"errorMessage":     run.ErrorMessage,
	})
}

// SyncStatus returns the recent runs plus per-entity row totals.
func (h *Handlers) SyncStatus(c *gin.Context) {
	db := h.Service.DB

	var runs []models.ExternalSyncRun
	if err := db.Order("started_at DESC").Limit(10).Find(&runs).Error; err != nil {
		config.LogError(h.Service.Logger, "handlers.go", "SyncStatus", "ListRuns", nil, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load sync runs"})
		return
	}

	var clients, clientInvoices, supplierInvoices int64
	db.Model(&models.Client{}).Count(&clients)
	db.Model(&models.ClientInvoice{}).Count(&clientInvoices)
	db.Model(&models.SupplierInvoice{}).Count(&supplierInvoices)

	c.JSON(http.StatusOK, gin.H{
		"recentRuns": runs,
		"totals": gin.H{
			"clients":          clients,
			"clientInvoices":   clientInvoices,
			"supplierInvoices": supplierInvoices,
		},
	})
}

// SyncRunDetail returns one run with its per-record errors.
func (h *Handlers) SyncRunDetail(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return
	}

	var run models.ExternalSyncRun
	if err := h.Service.DB.Where("id = ?", id).Take(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "sync run not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load sync run"})
		return
	}

	var recordErrors []models.SyncRecordError
	if err := h.Service.DB.Where("sync_run_id = ?", run.ID).Find(&recordErrors).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load record errors"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"run": run, "recordErrors": recordErrors})
}

// ClassifyInvoice triggers an immediate classification for one invoice,
// bypassing the stagger but not the rate-limited call queue. Safe to
// re-trigger: the result row is an upsert and terminal invoices refuse.
func (h *Handlers) ClassifyInvoice(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice id"})
		return
	}

	result, err := h.Service.ClassifyInvoice(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "invoice not found"})
		case errors.Is(err, ErrNotClassifiable):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			config.LogError(h.Service.Logger, "handlers.go", "ClassifyInvoice", "Classify", id, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "result": result})
		}
		return
	}

	invoice, _ := models.GetSupplierInvoice(h.Service.DB, id)
	c.JSON(http.StatusOK, gin.H{"result": result, "invoice": invoice})
}

type overrideInvoiceRequest struct {
	Status    string `json:"status"`
	ProjectId *int   `json:"projectId"`
	Note      string `json:"note"`
}

// OverrideInvoice applies a manual review decision. The same transition
// table that guards the pipeline guards overrides: only "assigned" (with a
// project) or "non-project" can be forced, and never off an already
// assigned invoice.
func (h *Handlers) OverrideInvoice(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice id"})
		return
	}

	var req overrideInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	next := models.InvoiceStatus(req.Status)
	if !next.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown invoice status: " + req.Status})
		return
	}

	invoice, err := models.GetSupplierInvoice(h.Service.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "invoice not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load invoice"})
		return
	}

	if next == models.InvoiceStatusAssigned && req.ProjectId == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "projectId is required to assign"})
		return
	}

	err = h.Service.DB.Transaction(func(tx *gorm.DB) error {
		if next == models.InvoiceStatusAssigned {
			var project models.Project
			if err := tx.Where("id = ?", *req.ProjectId).Take(&project).Error; err != nil {
				return err
			}
			assignment := models.ProjectAssignment{
				SupplierInvoiceId: invoice.ID,
				ProjectId:         project.ID,
				AmountAssigned:    invoice.AmountTotal,
				Percentage:        decimal.NewFromInt(100),
				AssignmentType:    models.AssignmentTypeManual,
				AssignedBy:        "manual",
				AssignedAt:        time.Now(),
			}
			if err := tx.Create(&assignment).Error; err != nil {
				return err
			}
		}
		return invoice.SetStatus(tx, next, true)
	})
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidTransition):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		default:
			config.LogError(h.Service.Logger, "handlers.go", "OverrideInvoice", "ApplyOverride", id, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"invoice": invoice})
}
