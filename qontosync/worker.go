package qontosync

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/ateliernord/finops_backend/config"
	"github.com/ateliernord/finops_backend/invoiceai"
	"github.com/ateliernord/finops_backend/models"
)

const syncLockKey = "qonto:sync"
const syncLockTTL = 15 * time.Minute

// ErrSyncInProgress is returned when another process holds the sync lock.
var ErrSyncInProgress = errors.New("a sync run is already in progress")

// ErrNotClassifiable is returned for invoices with no attachment or in a
// terminal status.
var ErrNotClassifiable = errors.New("invoice is not classifiable")

// SyncService orchestrates one sync run: fetch every page per entity,
// reconcile each record, account the run, and stagger classification of
// the supplier invoices that arrived with a document. A nil Locker skips
// mutual exclusion (tests, one-shot CLI against a dedicated database).
type SyncService struct {
	DB         *gorm.DB
	Qonto      *Client
	Classifier *invoiceai.Classifier
	Scheduler  *Scheduler
	Locker     *redislock.Client
	Logger     *logrus.Logger

	PerPage         int
	StaggerInterval time.Duration
	Thresholds      invoiceai.PolicyThresholds
}

func NewSyncService(db *gorm.DB, qonto *Client, classifier *invoiceai.Classifier, scheduler *Scheduler, locker *redislock.Client, logger *logrus.Logger) *SyncService {
	return &SyncService{
		DB:              db,
		Qonto:           qonto,
		Classifier:      classifier,
		Scheduler:       scheduler,
		Locker:          locker,
		Logger:          logger,
		PerPage:         100,
		StaggerInterval: time.Duration(config.IntFromEnv("AI_MIN_CALL_INTERVAL_MS", 15000)) * time.Millisecond,
		Thresholds:      invoiceai.DefaultThresholds(),
	}
}

// RunSync executes a full run for the given scope. An entity phase that
// fails is recorded and the remaining phases still run; the run finishes
// failed if any phase errored, with whatever counters accumulated. The
// returned run always carries the final counters and status.
func (s *SyncService) RunSync(ctx context.Context, scope models.SyncScope, triggeredBy string) (*models.ExternalSyncRun, error) {
	if !scope.Valid() {
		return nil, errors.New("unknown sync scope: " + string(scope))
	}

	if s.Locker != nil {
		lock, err := s.Locker.Obtain(ctx, syncLockKey, syncLockTTL, nil)
		if err != nil {
			if errors.Is(err, redislock.ErrNotObtained) {
				return nil, ErrSyncInProgress
			}
			return nil, err
		}
		defer lock.Release(context.Background())
	}

	run, err := models.CreateSyncRun(s.DB, scope, triggeredBy)
	if err != nil {
		return nil, err
	}

	var phaseErrs []string
	var freshInvoiceIds []int

	if scope.Includes(models.SyncScopeClients) {
		if err := s.syncClients(ctx, run); err != nil {
			phaseErrs = append(phaseErrs, "clients: "+err.Error())
			config.LogError(s.Logger, "worker.go", "RunSync", "SyncClients", run.ID, err)
		}
	}
	if scope.Includes(models.SyncScopeClientInvoices) {
		if err := s.syncClientInvoices(ctx, run); err != nil {
			phaseErrs = append(phaseErrs, "client_invoices: "+err.Error())
			config.LogError(s.Logger, "worker.go", "RunSync", "SyncClientInvoices", run.ID, err)
		}
	}
	if scope.Includes(models.SyncScopeSupplierInvoices) {
		fresh, err := s.syncSupplierInvoices(ctx, run)
		freshInvoiceIds = fresh
		if err != nil {
			phaseErrs = append(phaseErrs, "supplier_invoices: "+err.Error())
			config.LogError(s.Logger, "worker.go", "RunSync", "SyncSupplierInvoices", run.ID, err)
		}
	}

	status := models.SyncRunStatusCompleted
	errMsg := ""
	if len(phaseErrs) > 0 {
		status = models.SyncRunStatusFailed
		errMsg = strings.Join(phaseErrs, "; ")
	}
	if finishErr := run.Finish(s.DB, status, errMsg); finishErr != nil {
		config.LogError(s.Logger, "worker.go", "RunSync", "FinishRun", run.ID, finishErr)
	}

	s.scheduleClassifications(ctx, freshInvoiceIds)

	s.Logger.WithFields(logrus.Fields{
		"module":    "qontosync",
		"runId":     run.ID,
		"scope":     scope,
		"status":    status,
		"processed": run.RecordsProcessed,
		"created":   run.RecordsCreated,
		"updated":   run.RecordsUpdated,
		"skipped":   run.RecordsSkipped,
		"scheduled": len(freshInvoiceIds),
	}).Info("sync run finished")

	if status == models.SyncRunStatusFailed {
		return run, errors.New(errMsg)
	}
	return run, nil
}

func (s *SyncService) syncClients(ctx context.Context, run *models.ExternalSyncRun) error {
	_, err := fetchAllPages(ctx, s.Logger, "clients", s.PerPage, s.Qonto.FetchClients, func(items []json.RawMessage) error {
		for _, item := range items {
			run.RecordsProcessed++
			var raw QontoClientRecord
			if err := json.Unmarshal(item, &raw); err != nil {
				s.recordError(run, "client", "", "decode", err, false)
				continue
			}
			_, created, err := reconcileClient(s.DB, raw)
			if err != nil {
				s.recordError(run, "client", raw.ID, "persist", err, true)
				continue
			}
			if created {
				run.RecordsCreated++
			} else {
				run.RecordsUpdated++
			}
		}
		return nil
	})
	return err
}

func (s *SyncService) syncClientInvoices(ctx context.Context, run *models.ExternalSyncRun) error {
	clientIds, err := s.clientIdsByExternal()
	if err != nil {
		return err
	}
	_, err = fetchAllPages(ctx, s.Logger, "client_invoices", s.PerPage, s.Qonto.FetchClientInvoices, func(items []json.RawMessage) error {
		for _, item := range items {
			run.RecordsProcessed++
			var raw QontoClientInvoiceRecord
			if err := json.Unmarshal(item, &raw); err != nil {
				s.recordError(run, "client_invoice", "", "decode", err, false)
				continue
			}
			_, created, err := reconcileClientInvoice(s.DB, raw, clientIds)
			if err != nil {
				s.recordError(run, "client_invoice", raw.ID, "persist", err, true)
				continue
			}
			if created {
				run.RecordsCreated++
			} else {
				run.RecordsUpdated++
			}
		}
		return nil
	})
	return err
}

func (s *SyncService) syncSupplierInvoices(ctx context.Context, run *models.ExternalSyncRun) ([]int, error) {
	var fresh []int
	_, err := fetchAllPages(ctx, s.Logger, "supplier_invoices", s.PerPage, s.Qonto.FetchSupplierInvoices, func(items []json.RawMessage) error {
		for _, item := range items {
			run.RecordsProcessed++
			var raw QontoSupplierInvoiceRecord
			if err := json.Unmarshal(item, &raw); err != nil {
				s.recordError(run, "supplier_invoice", "", "decode", err, false)
				continue
			}
			id, created, skipped, err := reconcileSupplierInvoice(s.DB, raw)
			if err != nil {
				s.recordError(run, "supplier_invoice", raw.ID, "persist", err, true)
				continue
			}
			if skipped {
				run.RecordsSkipped++
				continue
			}
			if created {
				run.RecordsCreated++
				if strings.TrimSpace(raw.AttachmentId) != "" {
					fresh = append(fresh, id)
				}
			} else {
				run.RecordsUpdated++
			}
		}
		return nil
	})
	return fresh, err
}

func (s *SyncService) clientIdsByExternal() (map[string]int, error) {
	var clients []models.Client
	if err := s.DB.Where("external_id IS NOT NULL").Find(&clients).Error; err != nil {
		return nil, err
	}
	byExternal := make(map[string]int, len(clients))
	for _, c := range clients {
		if c.ExternalId != nil {
			byExternal[*c.ExternalId] = c.ID
		}
	}
	return byExternal, nil
}

func (s *SyncService) recordError(run *models.ExternalSyncRun, entityType, externalId, code string, cause error, retryable bool) {
	if err := models.CreateSyncRecordError(s.DB, run.ID, entityType, externalId, code, cause.Error(), retryable); err != nil {
		config.LogError(s.Logger, "worker.go", "recordError", "PersistRecordError", externalId, err)
	}
}

// scheduleClassifications staggers classification of freshly synced
// invoices so the model call queue fills gradually. Tasks outlive the
// triggering request, so the schedule context is detached from it.
func (s *SyncService) scheduleClassifications(ctx context.Context, invoiceIds []int) {
	if s.Scheduler == nil || s.Classifier == nil {
		return
	}
	detached := context.WithoutCancel(ctx)
	for i, id := range invoiceIds {
		invoiceId := id
		delay := time.Duration(i) * s.StaggerInterval
		s.Scheduler.Schedule(detached, "classify-invoice", delay, func(taskCtx context.Context) error {
			_, err := s.ClassifyInvoice(taskCtx, invoiceId)
			if errors.Is(err, ErrNotClassifiable) {
				return nil
			}
			return err
		})
	}
}

// ClassifyInvoice runs the classification pipeline for one invoice:
// resolve the document, call the model through the rate-limited queue,
// persist the result and apply the assignment policy. The policy runs only
// on a fully successful classification; a failed or partially parsed
// result leaves the invoice untouched for a later re-trigger.
func (s *SyncService) ClassifyInvoice(ctx context.Context, invoiceId int) (*models.ClassificationResult, error) {
	if s.Classifier == nil {
		return nil, errors.New("document model is not configured")
	}

	invoice, err := models.GetSupplierInvoice(s.DB, invoiceId)
	if err != nil {
		return nil, err
	}
	if !invoice.Classifiable() {
		return nil, ErrNotClassifiable
	}

	projects, err := models.ListActiveProjects(s.DB)
	if err != nil {
		return nil, err
	}

	doc, err := s.resolveDocument(ctx, invoice.AttachmentId)
	if err != nil {
		return nil, err
	}

	result, err := s.Classifier.Classify(ctx, s.DB, invoice, doc, projects)
	if err != nil {
		return result, err
	}
	if result.ProcessingStatus != models.ProcessingStatusSuccess {
		s.Logger.WithFields(logrus.Fields{
			"module":    "qontosync",
			"invoiceId": invoice.ID,
			"status":    result.ProcessingStatus,
		}).Warn("classification result unusable, invoice left for manual re-trigger")
		return result, nil
	}

	if err := invoiceai.ApplyAssignmentPolicy(s.DB, s.Logger, invoice, result, s.Classifier.Invoker.ModelID(), s.Thresholds); err != nil {
		return result, err
	}
	return result, nil
}

// resolveDocument exchanges the attachment id for a signed URL. When
// AI_DOCUMENT_INLINE is set the document is downloaded and submitted as
// base64 instead, for model endpoints that cannot reach the signed URL.
func (s *SyncService) resolveDocument(ctx context.Context, attachmentId string) (invoiceai.DocumentRef, error) {
	attachment, err := s.Qonto.ResolveAttachment(ctx, attachmentId)
	if err != nil {
		return invoiceai.DocumentRef{}, err
	}
	if config.EnvOrDefault("AI_DOCUMENT_INLINE", "") == "" {
		return invoiceai.DocumentRef{URL: attachment.URL}, nil
	}
	data, err := s.Qonto.DownloadAttachment(ctx, attachment.URL)
	if err != nil {
		return invoiceai.DocumentRef{}, err
	}
	return invoiceai.DocumentRef{Base64: base64.StdEncoding.EncodeToString(data)}, nil
}
