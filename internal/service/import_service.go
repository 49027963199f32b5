package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/truckdock/internal/config"
	"github.com/truckdock/internal/constants"
	"github.com/truckdock/internal/logger"
	"github.com/truckdock/internal/models"
	"github.com/truckdock/internal/notifier"
	"github.com/truckdock/internal/queue"
	"github.com/truckdock/internal/repository"

	"gorm.io/gorm"
)

const defaultPreviewLimit = 10

// ImportService 月度模板导入服务（预览 + 确认对账）
type ImportService struct {
	truckRepo      repository.TruckRepository
	importLogRepo  repository.ImportLogRepository
	sessions       ImportSessionStore
	notifier       notifier.Notifier
	queueClient    *queue.Client
	previewLimit   int
	maxUploadBytes int64
	now            func() time.Time
}

// NewImportService 创建导入服务
func NewImportService(
	truckRepo repository.TruckRepository,
	importLogRepo repository.ImportLogRepository,
	sessions ImportSessionStore,
	n notifier.Notifier,
	queueClient *queue.Client,
	cfg config.ImportConfig,
) *ImportService {
	if n == nil {
		n = notifier.Nop{}
	}
	previewLimit := cfg.PreviewLimit
	if previewLimit <= 0 {
		previewLimit = defaultPreviewLimit
	}
	return &ImportService{
		truckRepo:      truckRepo,
		importLogRepo:  importLogRepo,
		sessions:       sessions,
		notifier:       n,
		queueClient:    queueClient,
		previewLimit:   previewLimit,
		maxUploadBytes: cfg.MaxUploadBytes,
		now:            time.Now,
	}
}

// PreviewInput 预览入参
type PreviewInput struct {
	Filename string
	Reader   io.Reader
}

// PreviewResult 预览结果
type PreviewResult struct {
	Success              bool              `json:"success"`
	SessionID            string            `json:"session_id"`
	Preview              []MonthlyTemplate `json:"preview"`
	TotalTemplates       int               `json:"total_templates"`
	TotalRecordsToCreate int               `json:"total_records_to_create"`
	Errors               []string          `json:"errors"`
	ColumnsFound         []string          `json:"columns_found"`
}

// ConfirmResult 确认导入汇总
type ConfirmResult struct {
	Success       bool                   `json:"success"`
	Imported      int                    `json:"imported"`
	Updated       int                    `json:"updated"`
	Created       int                    `json:"created"`
	Failed        int                    `json:"failed"`
	FailedDetails []models.ImportFailure `json:"failed_details"`
}

// Preview 解析上传文件并创建导入会话；行级错误随结果返回，不中断请求
func (s *ImportService) Preview(ctx context.Context, input PreviewInput, principal *Principal) (*PreviewResult, error) {
	if principal == nil {
		return nil, ErrTokenInvalid
	}
	if err := ValidateImportFilename(input.Filename); err != nil {
		return nil, err
	}
	if input.Reader == nil {
		return nil, ErrImportReadFailed
	}

	reader := input.Reader
	if s.maxUploadBytes > 0 {
		reader = io.LimitReader(input.Reader, s.maxUploadBytes+1)
	}
	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportReadFailed, err)
	}
	if s.maxUploadBytes > 0 && int64(len(raw)) > s.maxUploadBytes {
		return nil, ErrImportFileTooLarge
	}

	parsed, err := ParseTemplateWorkbook(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	session := &ImportSession{
		OwnerID:              principal.UserID,
		OwnerName:            principal.Username,
		Filename:             strings.TrimSpace(input.Filename),
		Templates:            parsed.Templates,
		TotalRecordsToCreate: parsed.TotalRecordsToCreate,
		CreatedAt:            s.now(),
	}
	sessionID, err := s.sessions.Create(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("create import session: %w", err)
	}

	preview := parsed.Templates
	if len(preview) > s.previewLimit {
		preview = preview[:s.previewLimit]
	}
	logger.Infow("import_preview_created",
		"session_id", sessionID,
		"owner_id", principal.UserID,
		"filename", session.Filename,
		"templates", len(parsed.Templates),
		"row_errors", len(parsed.Errors),
	)
	return &PreviewResult{
		Success:              true,
		SessionID:            sessionID,
		Preview:              preview,
		TotalTemplates:       len(parsed.Templates),
		TotalRecordsToCreate: parsed.TotalRecordsToCreate,
		Errors:               parsed.Errors,
		ColumnsFound:         parsed.ColumnsFound,
	}, nil
}

// Confirm 对账写入：逐模板逐天更新或新建，每天一个事务，失败逐条记录后继续
func (s *ImportService) Confirm(ctx context.Context, sessionID string, principal *Principal) (*ConfirmResult, error) {
	if principal == nil {
		return nil, ErrTokenInvalid
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, ErrImportSessionNotFound
	}
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		_, _ = s.sessions.Delete(ctx, sessionID)
		return nil, fmt.Errorf("load import session: %w", err)
	}
	if session == nil {
		return nil, ErrImportSessionNotFound
	}
	if session.OwnerID != principal.UserID {
		logger.Warnw("import_confirm_forbidden", "session_id", sessionID, "owner_id", session.OwnerID, "actor_id", principal.UserID)
		return nil, ErrImportSessionForbidden
	}
	// 会话一次性使用：只有真正删除了会话的调用才继续写入
	taken, err := s.sessions.Delete(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("release import session: %w", err)
	}
	if !taken {
		logger.Warnw("import_confirm_session_taken", "session_id", sessionID, "actor_id", principal.UserID)
		return nil, ErrImportSessionNotFound
	}

	result := &ConfirmResult{FailedDetails: []models.ImportFailure{}}
	for index, template := range session.Templates {
		if err := s.applyTemplate(index, template, result); err != nil {
			result.FailedDetails = append(result.FailedDetails, models.ImportFailure{
				Template:   index + 1,
				ShippingNo: template.ShippingNo,
				Error:      err.Error(),
			})
			logger.Warnw("import_confirm_template_failed",
				"session_id", sessionID,
				"template", index+1,
				"shipping_no", template.ShippingNo,
				"error", err,
			)
		}
	}
	result.Imported = result.Created + result.Updated
	result.Failed = len(result.FailedDetails)
	result.Success = true

	logger.Infow("import_confirm_finished",
		"session_id", sessionID,
		"owner_id", principal.UserID,
		"created", result.Created,
		"updated", result.Updated,
		"failed", result.Failed,
	)
	s.recordImportLog(session, result)
	return result, nil
}

// applyTemplate 展开单个模板；循环外的 panic 转为模板级错误
func (s *ImportService) applyTemplate(index int, template MonthlyTemplate, result *ConfirmResult) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("template processing panic: %v", r)
		}
	}()
	if err := validateTemplate(template); err != nil {
		return err
	}

	days := DaysInMonth(template.Year, template.Month)
	for day := 1; day <= days; day++ {
		truck, created, err := s.safeApplyDay(template, day)
		if err != nil {
			dayNo := day
			result.FailedDetails = append(result.FailedDetails, models.ImportFailure{
				Template:   index + 1,
				Day:        &dayNo,
				ShippingNo: template.ShippingNo,
				Error:      err.Error(),
			})
			logger.Warnw("import_confirm_day_failed",
				"template", index+1,
				"day", day,
				"shipping_no", template.ShippingNo,
				"error", err,
			)
			continue
		}
		eventType := constants.EventTruckUpdated
		if created {
			result.Created++
			eventType = constants.EventTruckCreated
		} else {
			result.Updated++
		}
		broadcastSafely(s.notifier, notifier.NewTruckEvent(eventType, truck))
	}
	return nil
}

// safeApplyDay 单日 panic 转为当日错误，不影响后续日期
func (s *ImportService) safeApplyDay(template MonthlyTemplate, day int) (truck *models.Truck, created bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			truck, created = nil, false
			err = fmt.Errorf("day processing panic: %v", r)
		}
	}()
	return s.applyDay(template, day)
}

// applyDay 单日更新或新建，返回写入后的记录以及是否为新建
func (s *ImportService) applyDay(template MonthlyTemplate, day int) (*models.Truck, bool, error) {
	recordDate := time.Date(template.Year, time.Month(template.Month), day, 0, 0, 0, 0, time.UTC)
	var written *models.Truck
	created := false

	err := s.truckRepo.Transaction(func(tx *gorm.DB) error {
		repoTx := s.truckRepo.WithTx(tx)
		existing, err := repoTx.FindByBusinessKey(repository.TruckBusinessKey{
			Date:       recordDate,
			Terminal:   template.Terminal,
			ShippingNo: template.ShippingNo,
			DockCode:   template.DockCode,
			TruckRoute: template.TruckRoute,
		})
		if err != nil {
			return err
		}
		if existing != nil {
			applyTemplateFields(existing, template)
			now := s.now().UTC()
			existing.UpdatedAt = &now
			if err := repoTx.Update(existing); err != nil {
				return err
			}
			written = existing
			return nil
		}

		truck := &models.Truck{
			Terminal:   template.Terminal,
			ShippingNo: template.ShippingNo,
			DockCode:   template.DockCode,
			TruckRoute: template.TruckRoute,
			CreatedAt:  recordDate,
		}
		applyTemplateFields(truck, template)
		if err := repoTx.Create(truck); err != nil {
			return err
		}
		written = truck
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return written, created, nil
}

func validateTemplate(template MonthlyTemplate) error {
	if template.Year < 1 || template.Year > 9999 || template.Month < 1 || template.Month > 12 {
		return fmt.Errorf("invalid template month %04d-%02d", template.Year, template.Month)
	}
	if strings.TrimSpace(template.Terminal) == "" ||
		strings.TrimSpace(template.ShippingNo) == "" ||
		strings.TrimSpace(template.DockCode) == "" ||
		strings.TrimSpace(template.TruckRoute) == "" {
		return errors.New("template key fields are required")
	}
	return nil
}

// applyTemplateFields 仅覆盖可变字段（时间与状态）
func applyTemplateFields(truck *models.Truck, template MonthlyTemplate) {
	truck.PreparationStart = cloneStringPtr(template.PreparationStart)
	truck.PreparationEnd = cloneStringPtr(template.PreparationEnd)
	truck.LoadingStart = cloneStringPtr(template.LoadingStart)
	truck.LoadingEnd = cloneStringPtr(template.LoadingEnd)
	truck.StatusPreparation = NormalizeStatus(template.StatusPreparation)
	truck.StatusLoading = NormalizeStatus(template.StatusLoading)
}

func cloneStringPtr(value *string) *string {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}

// importLogStatus 全部成功 completed；无成功且有失败 failed；其余 partial
func importLogStatus(result *ConfirmResult) string {
	switch {
	case result.Failed == 0:
		return constants.ImportLogStatusCompleted
	case result.Imported == 0:
		return constants.ImportLogStatusFailed
	default:
		return constants.ImportLogStatusPartial
	}
}

// recordImportLog 队列可用时异步落库，否则同步写入；失败只记日志
func (s *ImportService) recordImportLog(session *ImportSession, result *ConfirmResult) {
	payload := queue.ImportLogRecordPayload{
		SessionID:      session.ID,
		OwnerID:        session.OwnerID,
		OwnerName:      session.OwnerName,
		Filename:       session.Filename,
		TotalTemplates: len(session.Templates),
		Imported:       result.Imported,
		Created:        result.Created,
		Updated:        result.Updated,
		Failed:         result.Failed,
		FailedDetails:  models.ImportFailureList(result.FailedDetails),
		Status:         importLogStatus(result),
		FinishedAt:     s.now().Unix(),
	}
	if s.queueClient.Enabled() {
		err := s.queueClient.EnqueueImportLogRecord(payload)
		if err == nil {
			return
		}
		logger.Warnw("import_log_enqueue_failed", "session_id", session.ID, "error", err)
	}
	if err := s.RecordImportLog(payload); err != nil {
		logger.Errorw("import_log_record_failed", "session_id", session.ID, "error", err)
	}
}

// RecordImportLog 写入导入记录（同步路径与队列消费者共用）
func (s *ImportService) RecordImportLog(payload queue.ImportLogRecordPayload) error {
	finishedAt := s.now()
	if payload.FinishedAt > 0 {
		finishedAt = time.Unix(payload.FinishedAt, 0)
	}
	details := payload.FailedDetails
	if details == nil {
		details = models.ImportFailureList{}
	}
	return s.importLogRepo.Create(&models.ImportLog{
		SessionID:      payload.SessionID,
		OwnerID:        payload.OwnerID,
		OwnerName:      payload.OwnerName,
		Filename:       payload.Filename,
		TotalTemplates: payload.TotalTemplates,
		Imported:       payload.Imported,
		Created:        payload.Created,
		Updated:        payload.Updated,
		Failed:         payload.Failed,
		FailedDetails:  details,
		Status:         payload.Status,
		CreatedAt:      finishedAt.UTC(),
	})
}

// CancelSession 会话所有者放弃导入
func (s *ImportService) CancelSession(ctx context.Context, sessionID string, principal *Principal) error {
	if principal == nil {
		return ErrTokenInvalid
	}
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if session == nil {
		return ErrImportSessionNotFound
	}
	if session.OwnerID != principal.UserID {
		return ErrImportSessionForbidden
	}
	removed, err := s.sessions.Delete(ctx, sessionID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrImportSessionNotFound
	}
	return nil
}

// ListImportLogs 导入记录列表
func (s *ImportService) ListImportLogs(filter repository.ImportLogListFilter) ([]models.ImportLog, int64, error) {
	return s.importLogRepo.List(filter)
}

// PurgeExpiredSessions 清理过期会话（定时任务调用）
func (s *ImportService) PurgeExpiredSessions(ctx context.Context) (int, error) {
	return s.sessions.PurgeExpired(ctx, s.now())
}

// CleanupImportLogs 删除超过保留天数的导入记录，retentionDays <= 0 时不清理
func (s *ImportService) CleanupImportLogs(retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := s.now().UTC().AddDate(0, 0, -retentionDays)
	return s.importLogRepo.DeleteBefore(cutoff)
}

// broadcastSafely 推送失败或 panic 只记录日志，不影响写入结果
func broadcastSafely(n notifier.Notifier, event notifier.Event) {
	if n == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Warnw("notifier_broadcast_panic", "event", event.Type, "panic", r)
		}
	}()
	if err := n.Broadcast(event); err != nil {
		logger.Warnw("notifier_broadcast_failed", "event", event.Type, "error", err)
	}
}
