package businessflow

import (
	"context"
	"strconv"
	"time"

	"github.com/kairan-app/kairan/models"
	"github.com/kairan-app/kairan/repository"
	"github.com/xuri/excelize/v2"
)

// ReportFlow produces admin-facing delivery reports
type ReportFlow interface {
	DeliveryReportXLSX(ctx context.Context, start, end *time.Time) (filename string, data []byte, err error)
}

// ReportFlowImpl implements ReportFlow
type ReportFlowImpl struct {
	messageRepo     repository.BroadcastMessageRepository
	deliveryLogRepo repository.DeliveryLogRepository
	memberRepo      repository.MemberRepository
}

// NewReportFlow creates a new report flow
func NewReportFlow(
	messageRepo repository.BroadcastMessageRepository,
	deliveryLogRepo repository.DeliveryLogRepository,
	memberRepo repository.MemberRepository,
) ReportFlow {
	return &ReportFlowImpl{
		messageRepo:     messageRepo,
		deliveryLogRepo: deliveryLogRepo,
		memberRepo:      memberRepo,
	}
}

// DeliveryReportXLSX renders one workbook with a broadcasts sheet and a
// per-recipient deliveries sheet for the given window
func (f *ReportFlowImpl) DeliveryReportXLSX(ctx context.Context, start, end *time.Time) (string, []byte, error) {
	messageFilter := models.BroadcastMessageFilter{CreatedAfter: start, CreatedBefore: end}
	messages, err := f.messageRepo.ByFilter(ctx, messageFilter, "created_at ASC", 0, 0)
	if err != nil {
		return "", nil, NewBusinessError("REPORT_LOAD_FAILED", "failed to load broadcasts", err)
	}

	memberNames, err := f.memberNameIndex(ctx)
	if err != nil {
		return "", nil, err
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	broadcastSheet := "broadcasts"
	xl.SetSheetName(xl.GetSheetName(0), broadcastSheet)
	broadcastHeader := []string{"id", "sender", "text", "media_count", "processing_status", "delivery_status", "created_at"}
	_ = xl.SetSheetRow(broadcastSheet, "A1", &broadcastHeader)

	deliverySheet := "deliveries"
	_, _ = xl.NewSheet(deliverySheet)
	deliveryHeader := []string{"message_id", "recipient", "method", "status", "provider_id", "error", "elapsed_ms", "created_at"}
	_ = xl.SetSheetRow(deliverySheet, "A1", &deliveryHeader)

	deliveryRow := 2
	for i, m := range messages {
		record := []string{
			strconv.FormatUint(uint64(m.ID), 10),
			m.SenderName,
			m.OriginalText,
			strconv.Itoa(m.MediaCount),
			m.ProcessingStatus.String(),
			m.DeliveryStatus.String(),
			m.CreatedAt.UTC().Format(time.RFC3339),
		}
		cellRef, _ := excelize.CoordinatesToCellName(1, i+2)
		_ = xl.SetSheetRow(broadcastSheet, cellRef, &record)

		logs, err := f.deliveryLogRepo.ListByMessage(ctx, m.ID)
		if err != nil {
			return "", nil, NewBusinessError("REPORT_LOAD_FAILED", "failed to load delivery logs", err)
		}
		for _, l := range logs {
			providerID := ""
			if l.ProviderID != nil {
				providerID = *l.ProviderID
			}
			errText := ""
			if l.Error != nil {
				errText = *l.Error
			}
			recipient := memberNames[l.RecipientID]
			if recipient == "" {
				recipient = strconv.FormatUint(uint64(l.RecipientID), 10)
			}
			logRecord := []string{
				strconv.FormatUint(uint64(l.MessageID), 10),
				recipient,
				l.Method,
				string(l.Status),
				providerID,
				errText,
				strconv.FormatInt(l.ElapsedMS, 10),
				l.CreatedAt.UTC().Format(time.RFC3339),
			}
			cellRef, _ := excelize.CoordinatesToCellName(1, deliveryRow)
			_ = xl.SetSheetRow(deliverySheet, cellRef, &logRecord)
			deliveryRow++
		}
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "failed to write report workbook", err)
	}
	return "delivery_report.xlsx", buf.Bytes(), nil
}

func (f *ReportFlowImpl) memberNameIndex(ctx context.Context) (map[uint]string, error) {
	members, err := f.memberRepo.ByFilter(ctx, models.MemberFilter{}, "id ASC", 0, 0)
	if err != nil {
		return nil, NewBusinessError("REPORT_LOAD_FAILED", "failed to load members", err)
	}
	index := make(map[uint]string, len(members))
	for _, m := range members {
		name := m.Name
		if name == "" {
			name = m.Phone
		}
		index[m.ID] = name
	}
	return index, nil
}
