package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/nurpe/delivery-reports/internal/model"
)

const unknownUser = "Unknown User"

// ReportStore is the persistence surface the generation pipeline needs.
type ReportStore interface {
	GetReport(ctx context.Context, id uint) (*model.DeliveryReport, error)
	GetUser(ctx context.Context, id uint) (*model.User, error)
	GetLocation(ctx context.Context, id uint) (*model.Location, error)
	UpdateReportFiles(ctx context.Context, id uint, excelKey, pdfKey string) error
}

// DocumentRenderer lays out the report workbook under the given storage key.
type DocumentRenderer interface {
	Render(ctx context.Context, payload *model.ReportPayload, excelKey string) error
}

// PDFConverter turns a stored workbook into a stored PDF and returns its key.
type PDFConverter interface {
	Convert(ctx context.Context, excelKey string) (string, error)
}

type ReportService struct {
	repo        ReportStore
	renderer    DocumentRenderer
	converter   PDFConverter
	excelSubdir string
	log         zerolog.Logger
	now         func() time.Time
}

func NewReportService(repo ReportStore, renderer DocumentRenderer, converter PDFConverter, excelSubdir string, log zerolog.Logger) *ReportService {
	return &ReportService{
		repo:        repo,
		renderer:    renderer,
		converter:   converter,
		excelSubdir: excelSubdir,
		log:         log,
		now:         time.Now,
	}
}

// GenerateReportFiles produces the spreadsheet and PDF for one report and
// writes both storage keys back onto the record. Each invocation produces a
// fresh timestamped artifact pair; earlier pairs are orphaned, not deleted.
func (s *ReportService) GenerateReportFiles(ctx context.Context, reportID uint) error {
	report, err := s.repo.GetReport(ctx, reportID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: report %d", ErrNotFound, reportID)
		}
		return fmt.Errorf("load report %d: %w", reportID, err)
	}

	payload := s.prepare(ctx, report)

	timestamp := s.now().Format("20060102_150405")
	excelKey := path.Join(s.excelSubdir, fmt.Sprintf("delivery_report_%s.xlsx", timestamp))

	if err := s.renderer.Render(ctx, payload, excelKey); err != nil {
		return fmt.Errorf("%w: report %d: %v", ErrRenderFailed, reportID, err)
	}
	pdfKey, err := s.converter.Convert(ctx, excelKey)
	if err != nil {
		return fmt.Errorf("convert report %d: %w", reportID, err)
	}

	if err := s.repo.UpdateReportFiles(ctx, reportID, excelKey, pdfKey); err != nil {
		return fmt.Errorf("persist file keys for report %d: %w", reportID, err)
	}
	s.log.Info().Uint("report_id", reportID).Str("excel", excelKey).Str("pdf", pdfKey).
		Msg("report files generated")
	return nil
}

// prepare flattens the persisted record into the payload the layout engine
// consumes: foreign keys resolved to display values, empty URLs filtered out
// of every list-valued photo group. Resolution failures degrade to defaults
// rather than aborting.
func (s *ReportService) prepare(ctx context.Context, report *model.DeliveryReport) *model.ReportPayload {
	p := &model.ReportPayload{
		Supplier:            report.Supplier,
		DeliverySlipNumber:  report.DeliverySlipNumber,
		LogisticCompany:     report.LogisticCompany,
		ContainerNumber:     report.ContainerNumber,
		LicencePlateTruck:   report.LicencePlateTruck,
		LicencePlateTrailer: report.LicencePlateTrailer,
		WeatherConditions:   report.WeatherConditions,
		Comments:            report.Comments,
		DamageDescription:   report.DamageDescription,

		TruckPlateImageURL:   report.TruckLicensePlateImage,
		TrailerPlateImageURL: report.TrailerLicensePlateImage,
		ProofOfDeliveryURL:   report.ProofOfDeliveryImage,
		CMRImageURL:          report.CMRImage,

		DeliverySlipImageURLs: report.ImagesOfKind(model.ImageKindDeliverySlip),
		AdditionalImageURLs:   report.ImagesOfKind(model.ImageKindAdditional),
		DamageImageURLs:       report.ImagesOfKind(model.ImageKindDamage),
		GoodsSealProofURLs:    report.ImagesOfKind(model.ImageKindGoodsSealContainer),

		UserDisplayName: unknownUser,
	}

	for _, item := range report.Items {
		p.Items = append(p.Items, model.ReportItem{Name: item.Name, Quantity: item.Quantity})
	}

	p.Checklist = map[string]model.ChecklistEntry{
		model.ChecklistLoadSecured:            {Status: report.LoadSecuredStatus, Comment: report.LoadSecuredComment},
		model.ChecklistDeliveryWithoutDamages: {Status: report.DeliveryWithoutDamagesStatus, Comment: report.DeliveryWithoutDamagesComment},
		model.ChecklistPackaging:              {Status: report.PackagingStatus, Comment: report.PackagingComment},
		model.ChecklistGoodsAccording:         {Status: report.GoodsAccordingStatus, Comment: report.GoodsAccordingComment},
		model.ChecklistSuitableMachines:       {Status: report.SuitableMachinesStatus, Comment: report.SuitableMachinesComment},
		model.ChecklistDeliverySlip:           {Status: report.DeliverySlipStatus, Comment: report.DeliverySlipComment},
		model.ChecklistInspectionReport:       {Status: report.InspectionReportStatus, Comment: report.InspectionReportComment},
	}

	if report.UserID != nil {
		if user, err := s.repo.GetUser(ctx, *report.UserID); err == nil {
			p.UserDisplayName = displayName(user)
			p.UserSignatureURL = user.SignatureURL
		} else {
			s.log.Warn().Err(err).Uint("user_id", *report.UserID).Msg("user resolution failed")
		}
	}

	if report.LocationID != nil {
		if location, err := s.repo.GetLocation(ctx, *report.LocationID); err == nil {
			p.Location = location.Name
			p.ClientName = location.ClientName
			p.ClientLogoURL = location.LogoURL
		} else {
			s.log.Warn().Err(err).Uint("location_id", *report.LocationID).Msg("location resolution failed")
		}
	}

	return p
}

// displayName prefers the full name, falls back to the account username.
func displayName(user *model.User) string {
	full := strings.TrimSpace(strings.TrimSpace(user.FirstName) + " " + strings.TrimSpace(user.LastName))
	if full != "" {
		return full
	}
	if user.Username != "" {
		return user.Username
	}
	return unknownUser
}
